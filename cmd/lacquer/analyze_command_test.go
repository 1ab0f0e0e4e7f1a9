package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"lacquer/internal/config"
	"lacquer/internal/loudness"
	"lacquer/internal/workflow"
)

func stubAnalysis(t *testing.T, fn func(ctx context.Context, cfg *config.Config, logger *slog.Logger, input string) (*workflow.Analysis, error)) {
	t.Helper()
	orig := runAnalysis
	runAnalysis = fn
	t.Cleanup(func() { runAnalysis = orig })
}

func TestAnalyzeRendersMeasurements(t *testing.T) {
	env := newCLIFixture(t)

	stubAnalysis(t, func(ctx context.Context, cfg *config.Config, logger *slog.Logger, input string) (*workflow.Analysis, error) {
		return &workflow.Analysis{
			Input:      input,
			Codec:      "flac",
			SampleRate: "44100",
			Channels:   1,
			Duration:   10*time.Minute + 10*time.Second + 480*time.Millisecond,
			Measured: loudness.Measurements{
				InputI:      -21.9,
				InputTP:     -4.3,
				InputLRA:    10.1,
				InputThresh: -32.0,
			},
		}, nil
	})

	out, _, err := runCLI(t, []string{"analyze", "ep.flac"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	requireContains(t, out, "flac")
	requireContains(t, out, "mono")
	requireContains(t, out, "44100 Hz")
	requireContains(t, out, "10:10")
	requireContains(t, out, "-21.9 LUFS")
	requireContains(t, out, "-4.3 dBTP")
	requireContains(t, out, "10.1 LU")
	// Default target is -16 LUFS, so the gain line shows +5.9 dB.
	requireContains(t, out, "+5.9 dB")
}

func TestChannelLabel(t *testing.T) {
	cases := []struct {
		channels int
		want     string
	}{
		{1, "mono"},
		{2, "stereo"},
		{6, "6 channels"},
	}
	for _, tc := range cases {
		if got := channelLabel(tc.channels); got != tc.want {
			t.Errorf("channelLabel(%d) = %q, want %q", tc.channels, got, tc.want)
		}
	}
}
