package filtergraph

import (
	"math"
	"strings"
	"testing"

	"lacquer/internal/loudness"
)

func newTestChain() *Chain {
	return &Chain{
		TargetI:   -16.0,
		TargetTP:  -1.5,
		TargetLRA: 11.0,
		Mono:      true,
		RMS:       -20.0,
	}
}

func TestMeasureSpec(t *testing.T) {
	spec := newTestChain().MeasureSpec()

	required := []string{
		"aformat=channel_layouts=mono",
		"highpass=f=80:poles=2",
		"afftdn=nr=12",
		"deesser=i=0.32",
		"loudnorm=I=-16.0:TP=-1.5:LRA=11.0:dual_mono=true:print_format=json",
	}
	for _, want := range required {
		if !strings.Contains(spec, want) {
			t.Errorf("MeasureSpec() missing %q in %q", want, spec)
		}
	}
	if !strings.HasSuffix(spec, "print_format=json") {
		t.Errorf("MeasureSpec() probe must run last, got %q", spec)
	}
}

func TestMeasureSpecStereo(t *testing.T) {
	chain := newTestChain()
	chain.Mono = false
	spec := chain.MeasureSpec()

	if !strings.Contains(spec, "aformat=channel_layouts=stereo") {
		t.Errorf("MeasureSpec() missing stereo conform in %q", spec)
	}
	if !strings.Contains(spec, "dual_mono=false") {
		t.Errorf("MeasureSpec() stereo input must not use dual mono, got %q", spec)
	}
}

func TestCorrectSpec(t *testing.T) {
	chain := newTestChain()
	chain.Measured = &loudness.Measurements{
		InputI:       -18.20,
		InputTP:      -3.51,
		InputLRA:     9.70,
		InputThresh:  -28.95,
		TargetOffset: 0.12,
	}
	spec := chain.CorrectSpec()

	required := []string{
		"measured_I=-18.20",
		"measured_TP=-3.51",
		"measured_LRA=9.70",
		"measured_thresh=-28.95",
		"offset=0.12",
		"linear=true",
	}
	for _, want := range required {
		if !strings.Contains(spec, want) {
			t.Errorf("CorrectSpec() missing %q in %q", want, spec)
		}
	}
	if strings.Contains(spec, "print_format") {
		t.Errorf("CorrectSpec() should not request JSON output, got %q", spec)
	}
}

func TestCorrectSpecWithoutMeasurements(t *testing.T) {
	spec := newTestChain().CorrectSpec()
	if strings.Contains(spec, "loudnorm") {
		t.Errorf("CorrectSpec() must omit loudnorm until measured, got %q", spec)
	}
}

func TestStatsSpec(t *testing.T) {
	chain := newTestChain()
	if spec := chain.StatsSpec(); spec != "" {
		t.Errorf("StatsSpec() without report path = %q, want empty", spec)
	}

	chain.ReportPath = "/work/chunk-002/stats.txt"
	want := "astats=metadata=1,ametadata=mode=print:key=lavfi.astats.Overall.RMS_level:file=/work/chunk-002/stats.txt"
	if spec := chain.StatsSpec(); spec != want {
		t.Errorf("StatsSpec() = %q, want %q", spec, want)
	}
}

func TestDynamicsSpecRequiredStages(t *testing.T) {
	spec := newTestChain().DynamicsSpec()

	if !strings.Contains(spec, "adynamicequalizer=threshold=-17.0") {
		t.Errorf("DynamicsSpec() de-mud threshold should be RMS+3, got %q", spec)
	}
	if !strings.Contains(spec, "adynamicequalizer=threshold=22.0") {
		t.Errorf("DynamicsSpec() missing fixed presence threshold in %q", spec)
	}
	if !strings.Contains(spec, "alimiter=limit=0.900000") {
		t.Errorf("DynamicsSpec() missing peak ceiling in %q", spec)
	}

	for _, disabled := range []string{"agate=", "highshelf=", "equalizer=f=", "asoftclip="} {
		if strings.Contains(spec, disabled) {
			t.Errorf("DynamicsSpec() stage %q should be off by default in %q", disabled, spec)
		}
	}
}

func TestDynamicsSpecFixedOrder(t *testing.T) {
	chain := newTestChain()
	chain.GateEnabled = true
	chain.ClarityEnabled = true
	chain.TonalEnabled = true
	chain.SoftClipEnabled = true
	spec := chain.DynamicsSpec()

	order := []string{
		"adynamicequalizer=threshold=-17.0",
		"adynamicequalizer=threshold=22.0",
		"alimiter=",
		"agate=",
		"highshelf=",
		"equalizer=f=120",
		"equalizer=f=300",
		"equalizer=f=4000",
		"asoftclip=",
	}
	last := -1
	for _, stage := range order {
		idx := strings.Index(spec, stage)
		if idx == -1 {
			t.Fatalf("DynamicsSpec() missing %q in %q", stage, spec)
		}
		if idx <= last {
			t.Errorf("DynamicsSpec() stage %q out of order in %q", stage, spec)
		}
		last = idx
	}

	if !strings.Contains(spec, "agate=threshold=0.012589") {
		t.Errorf("DynamicsSpec() gate threshold for RMS -20 should be 0.012589, got %q", spec)
	}
	for _, bad := range []string{"NaN", "Inf"} {
		if strings.Contains(spec, bad) {
			t.Errorf("DynamicsSpec() contains %s: %q", bad, spec)
		}
	}
}

func TestThresholdHelpers(t *testing.T) {
	if got := DemudThreshold(-20); got != -17.0 {
		t.Errorf("DemudThreshold(-20) = %v, want -17.0", got)
	}
	if got := GateThreshold(-20); math.Abs(got-0.0126) > 0.0001 {
		t.Errorf("GateThreshold(-20) = %v, want about 0.0126", got)
	}
	if got := GateThreshold(18); got != 1.0 {
		t.Errorf("GateThreshold(18) = %v, want 1.0", got)
	}
}
