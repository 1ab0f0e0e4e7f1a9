package services_test

import (
	"errors"
	"strings"
	"testing"

	"lacquer/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrEngine, "encoding", "filter", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEngine) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encoding", "filter", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToValidation(t *testing.T) {
	err := services.Wrap(nil, "analysis", "parse", "bad value", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker for nil input, got %v", err)
	}
}

func TestWrapWithoutDetailUsesFallback(t *testing.T) {
	err := services.Wrap(services.ErrCrash, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestTerminalRecognizesSentinels(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		expect bool
	}{
		{"setup", services.Wrap(services.ErrSetup, "pool", "init", "unit 3", nil), true},
		{"postcondition", services.Wrap(services.ErrPostcondition, "encoding", "verify", "missing", nil), true},
		{"assembly", services.Wrap(services.ErrAssembly, "concat", "verify", "missing", nil), true},
		{"raw io", errors.New("read: connection reset"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Terminal(tc.err); got != tc.expect {
				t.Fatalf("Terminal(%v) = %v, want %v", tc.err, got, tc.expect)
			}
		})
	}
}
