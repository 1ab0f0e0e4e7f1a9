package streaminfo

import (
	"strings"
	"testing"
	"time"
)

const monoWav = `Input #0, wav, from 'episode.wav':
  Duration: 00:10:10.48, bitrate: 768 kb/s
  Stream #0:0: Audio: pcm_s16le ([1][0][0][0] / 0x0001), 48000 Hz, mono, s16, 768 kb/s
`

const stereoMP3 = `Input #0, mp3, from 'episode.mp3':
  Metadata:
    encoder         : LAME3.100
  Duration: 01:02:03.50, start: 0.025057, bitrate: 128 kb/s
  Stream #0:0: Audio: mp3, 44100 Hz, stereo, fltp, 128 kb/s
`

func TestParseMono(t *testing.T) {
	info, err := Parse(monoWav)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := 10*time.Minute + 10*time.Second + 480*time.Millisecond
	if info.Duration != want {
		t.Errorf("Duration = %s, want %s", info.Duration, want)
	}
	if !info.Mono {
		t.Error("expected mono layout")
	}
	if info.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", info.SampleRate)
	}
	if info.Codec != "pcm_s16le" {
		t.Errorf("Codec = %q, want pcm_s16le", info.Codec)
	}
}

func TestParseStereo(t *testing.T) {
	info, err := Parse(stereoMP3)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := time.Hour + 2*time.Minute + 3*time.Second + 500*time.Millisecond
	if info.Duration != want {
		t.Errorf("Duration = %s, want %s", info.Duration, want)
	}
	if info.Mono {
		t.Error("expected stereo layout")
	}
	if info.Codec != "mp3" {
		t.Errorf("Codec = %q, want mp3", info.Codec)
	}
}

func TestParseChannelCountFallback(t *testing.T) {
	text := strings.ReplaceAll(monoWav, "48000 Hz, mono", "48000 Hz, 1 channels")
	info, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !info.Mono {
		t.Error("1 channels should classify as mono")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"duration not available", "Input #0, matroska\n  Duration: N/A, bitrate: N/A\n  Stream #0:0: Audio: aac, 48000 Hz, stereo, fltp\n"},
		{"no audio stream", "Input #0, mov\n  Duration: 00:05:00.00\n  Stream #0:0: Video: h264, yuv420p, 1920x1080\n"},
		{"surround layout", "Input #0, mov\n  Duration: 00:05:00.00\n  Stream #0:0: Audio: aac, 48000 Hz, 5.1(side), fltp\n"},
		{"odd channel count", "Input #0, wav\n  Duration: 00:05:00.00\n  Stream #0:0: Audio: pcm_s24le, 96000 Hz, 6 channels, s32\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.text); err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
		})
	}
}
