// Package streaminfo parses the free-text stream description ffmpeg prints
// when probing an input. The acquire step uses it to learn the source
// duration and channel layout before splitting.
package streaminfo

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Info describes the first audio stream of a probed input.
type Info struct {
	Duration   time.Duration
	Mono       bool
	SampleRate int
	Codec      string
}

var (
	durationPattern   = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	audioPattern      = regexp.MustCompile(`Stream #\d+:\d+.*?Audio:\s*([A-Za-z0-9_]+)([^\n]*)`)
	sampleRatePattern = regexp.MustCompile(`(\d+) Hz`)
	layoutPattern     = regexp.MustCompile(`\b(mono|stereo)\b`)
	channelsPattern   = regexp.MustCompile(`(\d+) channels`)
)

// Parse extracts duration and audio layout from probe diagnostics. It fails
// when the duration is absent (including Duration: N/A), when no audio
// stream is described, or when the channel layout cannot be classified as
// mono or stereo.
func Parse(diagnostics string) (Info, error) {
	var info Info

	duration, err := parseDuration(diagnostics)
	if err != nil {
		return Info{}, err
	}
	info.Duration = duration

	audio := audioPattern.FindStringSubmatch(diagnostics)
	if audio == nil {
		return Info{}, fmt.Errorf("no audio stream in stream info")
	}
	info.Codec = audio[1]
	detail := audio[2]

	if rate := sampleRatePattern.FindStringSubmatch(detail); rate != nil {
		info.SampleRate, _ = strconv.Atoi(rate[1])
	}

	mono, err := classifyLayout(detail)
	if err != nil {
		return Info{}, err
	}
	info.Mono = mono

	return info, nil
}

func parseDuration(diagnostics string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(diagnostics)
	if match == nil {
		return 0, fmt.Errorf("no duration in stream info")
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration seconds %q: %w", match[3], err)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second)), nil
}

func classifyLayout(detail string) (bool, error) {
	if layout := layoutPattern.FindStringSubmatch(detail); layout != nil {
		return layout[1] == "mono", nil
	}
	if channels := channelsPattern.FindStringSubmatch(detail); channels != nil {
		count, _ := strconv.Atoi(channels[1])
		switch count {
		case 1:
			return true, nil
		case 2:
			return false, nil
		}
		return false, fmt.Errorf("unsupported channel count %d", count)
	}
	return false, fmt.Errorf("unrecognized channel layout in %q", detail)
}
