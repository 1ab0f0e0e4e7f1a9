// Package loudness parses the numeric measurements the mastering passes
// exchange: the JSON block a measurement-mode loudness pass prints into its
// diagnostics, and the overall RMS level written into a stats report file.
package loudness

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Measurements holds the values reported by a measurement-mode loudness pass.
// They parameterize the correction pass that follows.
type Measurements struct {
	InputI       float64
	InputTP      float64
	InputLRA     float64
	InputThresh  float64
	TargetOffset float64
}

// flexFloat unmarshals loudness values that arrive either as JSON numbers or
// as quoted decimal strings. ffmpeg's loudnorm filter quotes every value.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		return fmt.Errorf("empty loudness value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse loudness value %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

type rawMeasurements struct {
	InputI       *flexFloat `json:"input_i"`
	InputTP      *flexFloat `json:"input_tp"`
	InputLRA     *flexFloat `json:"input_lra"`
	InputThresh  *flexFloat `json:"input_thresh"`
	TargetOffset *flexFloat `json:"target_offset"`
}

// ParseMeasurements extracts the trailing {...} JSON block from engine
// diagnostic text and decodes the measured loudness values. The measurement
// pass prints the block last, after all progress lines.
func ParseMeasurements(diagnostics string) (Measurements, error) {
	start := strings.LastIndex(diagnostics, "{")
	end := strings.LastIndex(diagnostics, "}")
	if start == -1 || end <= start {
		return Measurements{}, fmt.Errorf("no measurement block in engine output (%d bytes)", len(diagnostics))
	}

	var raw rawMeasurements
	if err := json.Unmarshal([]byte(diagnostics[start:end+1]), &raw); err != nil {
		return Measurements{}, fmt.Errorf("parse measurement block: %w", err)
	}

	fields := []struct {
		name  string
		value *flexFloat
	}{
		{"input_i", raw.InputI},
		{"input_tp", raw.InputTP},
		{"input_lra", raw.InputLRA},
		{"input_thresh", raw.InputThresh},
		{"target_offset", raw.TargetOffset},
	}
	for _, field := range fields {
		if field.value == nil {
			return Measurements{}, fmt.Errorf("measurement block missing %s", field.name)
		}
	}

	return Measurements{
		InputI:       float64(*raw.InputI),
		InputTP:      float64(*raw.InputTP),
		InputLRA:     float64(*raw.InputLRA),
		InputThresh:  float64(*raw.InputThresh),
		TargetOffset: float64(*raw.TargetOffset),
	}, nil
}

var rmsPattern = regexp.MustCompile(`Overall\.RMS_level=(-?[0-9a-zA-Z.+-]+)`)

// ParseRMS extracts the overall RMS level in dB from a stats report. The
// report carries one line per processed frame; the last occurrence covers the
// whole artifact. A literal -inf means digital silence and parses to 0.00
// rather than an error so the dynamics chain falls back to neutral thresholds.
func ParseRMS(report string) (float64, error) {
	matches := rmsPattern.FindAllStringSubmatch(report, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("no Overall.RMS_level entry in stats report")
	}
	value := matches[len(matches)-1][1]
	if value == "-inf" {
		return 0.00, nil
	}
	rms, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(rms, 0) || math.IsNaN(rms) {
		return 0, fmt.Errorf("unparsable Overall.RMS_level value %q", value)
	}
	return rms, nil
}

// DBToLinear converts a decibel value to linear amplitude.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// LinearToDB converts linear amplitude to decibels. Zero or negative input
// returns negative infinity.
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(linear)
}
