package logging

import (
	"math"
	"strings"
)

// ProgressSampler rate-limits progress logging. It emits when the stage
// changes and otherwise only when percent reaches the next width boundary,
// so a chatty progress stream collapses to a handful of lines per stage.
type ProgressSampler struct {
	width float64
	stage string
	next  float64
}

// NewProgressSampler returns a sampler that emits roughly every width
// percent. Width values at or below zero fall back to 5.
func NewProgressSampler(width float64) *ProgressSampler {
	if width <= 0 {
		width = 5
	}
	return &ProgressSampler{width: width}
}

// ShouldLog reports whether this progress event is worth a log line.
// A negative percent means the caller has no percentage to offer, which
// still emits on stage transitions. The message is ignored; messages carry
// volatile detail that would defeat sampling. A nil sampler emits everything.
func (s *ProgressSampler) ShouldLog(percent float64, stage, message string) bool {
	if s == nil {
		return true
	}
	emit := false
	if name := strings.TrimSpace(stage); name != "" && name != s.stage {
		s.stage = name
		s.next = 0
		emit = true
	}
	if percent >= 0 && percent >= s.next {
		s.next = (math.Floor(percent/s.width) + 1) * s.width
		emit = true
	}
	return emit
}

// Reset clears the stage and threshold so the next event always emits.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.stage = ""
	s.next = 0
}
