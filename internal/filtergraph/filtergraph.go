// Package filtergraph assembles ffmpeg audio filter specifications for the
// mastering passes. Each pass has a fixed filter order; individual builders
// render one filter spec and return an empty string when their stage is
// disabled or its inputs are not available yet.
package filtergraph

import (
	"fmt"
	"strings"

	"lacquer/internal/loudness"
)

// FilterID identifies a filter stage in a pass chain.
type FilterID string

const (
	FilterConform       FilterID = "conform"
	FilterRumble        FilterID = "rumble"
	FilterDenoise       FilterID = "denoise"
	FilterDeess         FilterID = "deess"
	FilterLoudnessProbe FilterID = "loudness_probe"
	FilterLoudnessApply FilterID = "loudness_apply"
	FilterStatsReport   FilterID = "stats_report"
	FilterDemud         FilterID = "demud"
	FilterPresence      FilterID = "presence"
	FilterCeiling       FilterID = "ceiling"
	FilterGate          FilterID = "gate"
	FilterClarity       FilterID = "clarity"
	FilterTonal         FilterID = "tonal"
	FilterSoftClip      FilterID = "softclip"
)

// MeasureOrder is the loudness measurement chain. The probe runs last so it
// sees the same cleaned signal the correction pass will normalize.
var MeasureOrder = []FilterID{
	FilterConform,
	FilterRumble,
	FilterDenoise,
	FilterDeess,
	FilterLoudnessProbe,
}

// CorrectOrder mirrors MeasureOrder with the probe swapped for the
// parameterized correction stage.
var CorrectOrder = []FilterID{
	FilterConform,
	FilterRumble,
	FilterDenoise,
	FilterDeess,
	FilterLoudnessApply,
}

// StatsOrder measures the normalized artifact and writes the RMS report.
var StatsOrder = []FilterID{
	FilterStatsReport,
}

// DynamicsOrder is the final mastering chain. The first three stages always
// run; the rest are config toggles applied in this fixed order.
var DynamicsOrder = []FilterID{
	FilterDemud,
	FilterPresence,
	FilterCeiling,
	FilterGate,
	FilterClarity,
	FilterTonal,
	FilterSoftClip,
}

// Fixed chain parameters. Loudness targets and stage toggles come from
// configuration; everything here is part of the house mastering sound.
const (
	rumbleCutoffHz = 80
	rumblePoles    = 2
	rumbleWidth    = 0.707

	denoiseReductionDB = 12
	denoiseFloorDB     = -48

	deessIntensity = 0.32
	deessAmount    = 0.50
	deessKeep      = 0.50

	demudOffsetDB       = 3.0
	presenceThresholdDB = 22.0

	// CeilingLinear is the brick-wall peak ceiling applied before the
	// optional dynamics stages.
	CeilingLinear = 0.9

	gateOffsetDB = 18.0
	gateRatio    = 2.0
	gateAttack   = 12.0
	gateRelease  = 350.0
	gateRange    = 0.0625
	gateKnee     = 3.0

	clarityFreqHz = 8000
	clarityGainDB = 2.5
)

// DemudThreshold derives the de-mud dynamic EQ detection threshold from the
// measured overall RMS level.
func DemudThreshold(rms float64) float64 {
	return rms + demudOffsetDB
}

// GateThreshold derives the noise gate threshold, as linear amplitude, from
// the measured overall RMS level.
func GateThreshold(rms float64) float64 {
	return loudness.DBToLinear(rms - gateOffsetDB)
}

// Chain holds the per-chunk inputs that parameterize the pass chains.
type Chain struct {
	// Loudness targets for the probe and correction stages.
	TargetI   float64
	TargetTP  float64
	TargetLRA float64

	// Mono selects the conform layout and the loudnorm dual-mono mode.
	Mono bool

	// Measured parameterizes the correction stage. Nil until the
	// measurement pass has run.
	Measured *loudness.Measurements

	// RMS is the overall level in dB from the stats pass. It drives the
	// de-mud and gate thresholds.
	RMS float64

	// Dynamics stage toggles.
	GateEnabled     bool
	ClarityEnabled  bool
	TonalEnabled    bool
	SoftClipEnabled bool

	// ReportPath receives the ametadata RMS report.
	ReportPath string
}

// builderFunc renders one filter spec, or an empty string when the stage
// does not apply.
type builderFunc func(*Chain) string

var builders = map[FilterID]builderFunc{
	FilterConform:       (*Chain).buildConform,
	FilterRumble:        (*Chain).buildRumble,
	FilterDenoise:       (*Chain).buildDenoise,
	FilterDeess:         (*Chain).buildDeess,
	FilterLoudnessProbe: (*Chain).buildLoudnessProbe,
	FilterLoudnessApply: (*Chain).buildLoudnessApply,
	FilterStatsReport:   (*Chain).buildStatsReport,
	FilterDemud:         (*Chain).buildDemud,
	FilterPresence:      (*Chain).buildPresence,
	FilterCeiling:       (*Chain).buildCeiling,
	FilterGate:          (*Chain).buildGate,
	FilterClarity:       (*Chain).buildClarity,
	FilterTonal:         (*Chain).buildTonal,
	FilterSoftClip:      (*Chain).buildSoftClip,
}

// Build renders the filters of order into a single comma-joined ffmpeg
// filter specification, skipping stages that render empty.
func (c *Chain) Build(order []FilterID) string {
	var specs []string
	for _, id := range order {
		if builder, ok := builders[id]; ok {
			if spec := builder(c); spec != "" {
				specs = append(specs, spec)
			}
		}
	}
	return strings.Join(specs, ",")
}

// MeasureSpec renders the loudness measurement chain.
func (c *Chain) MeasureSpec() string { return c.Build(MeasureOrder) }

// CorrectSpec renders the loudness correction chain. The result is empty
// until Measured is set.
func (c *Chain) CorrectSpec() string { return c.Build(CorrectOrder) }

// StatsSpec renders the RMS stats chain. The result is empty until
// ReportPath is set.
func (c *Chain) StatsSpec() string { return c.Build(StatsOrder) }

// DynamicsSpec renders the mastering dynamics chain.
func (c *Chain) DynamicsSpec() string { return c.Build(DynamicsOrder) }

func (c *Chain) layout() string {
	if c.Mono {
		return "mono"
	}
	return "stereo"
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (c *Chain) buildConform() string {
	return fmt.Sprintf("aformat=channel_layouts=%s", c.layout())
}

func (c *Chain) buildRumble() string {
	return fmt.Sprintf("highpass=f=%d:poles=%d:width_type=q:width=%.3f",
		rumbleCutoffHz, rumblePoles, rumbleWidth)
}

func (c *Chain) buildDenoise() string {
	return fmt.Sprintf("afftdn=nr=%d:nf=%d:tn=1", denoiseReductionDB, denoiseFloorDB)
}

func (c *Chain) buildDeess() string {
	return fmt.Sprintf("deesser=i=%.2f:m=%.2f:f=%.2f", deessIntensity, deessAmount, deessKeep)
}

func (c *Chain) buildLoudnessProbe() string {
	return fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f:LRA=%.1f:dual_mono=%s:print_format=json",
		c.TargetI, c.TargetTP, c.TargetLRA, boolToString(c.Mono))
}

func (c *Chain) buildLoudnessApply() string {
	if c.Measured == nil {
		return ""
	}
	return fmt.Sprintf(
		"loudnorm=I=%.1f:TP=%.1f:LRA=%.1f:"+
			"measured_I=%.2f:measured_TP=%.2f:measured_LRA=%.2f:measured_thresh=%.2f:"+
			"offset=%.2f:dual_mono=%s:linear=true",
		c.TargetI, c.TargetTP, c.TargetLRA,
		c.Measured.InputI, c.Measured.InputTP, c.Measured.InputLRA, c.Measured.InputThresh,
		c.Measured.TargetOffset, boolToString(c.Mono))
}

func (c *Chain) buildStatsReport() string {
	if c.ReportPath == "" {
		return ""
	}
	return fmt.Sprintf("astats=metadata=1,ametadata=mode=print:key=lavfi.astats.Overall.RMS_level:file=%s",
		c.ReportPath)
}

func (c *Chain) buildDemud() string {
	return fmt.Sprintf(
		"adynamicequalizer=threshold=%.1f:dfrequency=250:dqfactor=3:"+
			"tfrequency=300:tqfactor=3:attack=20:release=300:ratio=2:mode=cutabove",
		DemudThreshold(c.RMS))
}

func (c *Chain) buildPresence() string {
	return fmt.Sprintf(
		"adynamicequalizer=threshold=%.1f:dfrequency=8000:dqfactor=1:"+
			"tfrequency=9000:tqfactor=1:attack=10:release=100:ratio=1.5:mode=cutabove",
		presenceThresholdDB)
}

func (c *Chain) buildCeiling() string {
	return fmt.Sprintf("alimiter=limit=%.6f:attack=5:release=50:level=0:latency=1", CeilingLinear)
}

func (c *Chain) buildGate() string {
	if !c.GateEnabled {
		return ""
	}
	return fmt.Sprintf(
		"agate=threshold=%.6f:ratio=%.1f:attack=%.2f:release=%.0f:"+
			"range=%.4f:knee=%.1f:detection=rms:makeup=1.0",
		GateThreshold(c.RMS), gateRatio, gateAttack, gateRelease, gateRange, gateKnee)
}

func (c *Chain) buildClarity() string {
	if !c.ClarityEnabled {
		return ""
	}
	return fmt.Sprintf("highshelf=f=%d:g=%.1f:width_type=q:width=%.3f",
		clarityFreqHz, clarityGainDB, rumbleWidth)
}

func (c *Chain) buildTonal() string {
	if !c.TonalEnabled {
		return ""
	}
	bands := []string{
		"equalizer=f=120:t=q:w=1.2:g=1.5",
		"equalizer=f=300:t=q:w=1.5:g=-2.0",
		"equalizer=f=4000:t=q:w=1.0:g=1.5",
	}
	return strings.Join(bands, ",")
}

func (c *Chain) buildSoftClip() string {
	if !c.SoftClipEnabled {
		return ""
	}
	return "asoftclip=type=atan:threshold=0.95"
}
