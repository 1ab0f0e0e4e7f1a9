package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Result is one decoded ffprobe report.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream is a single elementary stream inside the container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

func (s Stream) isAudio() bool {
	return strings.EqualFold(s.CodecType, "audio")
}

// Format is the container-level block of the report.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect probes path with the given ffprobe binary. An empty binary name
// falls back to "ffprobe" on PATH.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}

	args := []string{
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	}
	output, err := commandContext(ctx, binary, args...).CombinedOutput() //nolint:gosec
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return decode(output)
}

func decode(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	result.raw = append([]byte(nil), payload...)
	return result, nil
}

// RawJSON returns a copy of the JSON payload the report was decoded from.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// AudioStreamCount counts the audio streams in the container.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if stream.isAudio() {
			count++
		}
	}
	return count
}

// FirstAudioStream returns the first audio stream, if any.
func (r Result) FirstAudioStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if stream.isAudio() {
			return stream, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration. A missing field reads as
// zero; a malformed one reads as NaN so callers can tell a broken report
// from a zero-length file.
func (r Result) DurationSeconds() float64 {
	return numeric(r.Format.Duration)
}

// SizeBytes returns the container size, or 0 when missing or malformed.
func (r Result) SizeBytes() int64 {
	return wholeNumber(r.Format.Size)
}

// BitRate returns the container bitrate in bits per second, or 0 when
// missing or malformed.
func (r Result) BitRate() int64 {
	return wholeNumber(r.Format.BitRate)
}

func numeric(field string) float64 {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0
	}
	value, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return math.NaN()
	}
	return value
}

func wholeNumber(field string) int64 {
	value := numeric(field)
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	return int64(value)
}
