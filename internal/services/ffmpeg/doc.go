// Package ffmpeg wraps the ffmpeg command line interface used for every
// engine invocation: sanitizing, splitting, the per-chunk mastering passes,
// and final assembly. Output is captured from both process streams so
// callers can parse diagnostic text and receive progress updates.
package ffmpeg
