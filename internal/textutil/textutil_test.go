package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean name", "episode-42.wav", "episode-42.wav"},
		{"slashes to dashes", "show/ep: part*2", "show-ep- part-2"},
		{"removed characters", `what?"is<this>|`, "whatisthis"},
		{"whitespace trimmed", "  draft  ", "draft"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Interview", "interview"},
		{"keeps digits and dashes", "ep-042_final", "ep-042_final"},
		{"punctuation to underscores", "a b.c", "a_b_c"},
		{"empty", "", "unknown"},
		{"all punctuation", "!!!", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.input); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTitleFromPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"separators collapse", "/input/my_show.episode-42.wav", "My Show Episode 42"},
		{"already clean", "/audio/Morning Brief.flac", "Morning Brief"},
		{"dots between words", "deep.dive.ai.mp3", "Deep Dive Ai"},
		{"empty path", "", "Untitled Episode"},
		{"punctuation only", "/tmp/!!!.wav", "Untitled Episode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitleFromPath(tt.input); got != tt.want {
				t.Errorf("TitleFromPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
