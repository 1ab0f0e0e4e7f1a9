// Package ffprobe runs ffprobe against a media file and decodes its JSON
// report into typed stream and container metadata.
//
// Lacquer probes in two places: before a run to learn the source's codec,
// channel layout, and duration, and after assembly to confirm the episode
// file really contains the audio the pipeline wrote. ffprobe reports
// numeric fields as strings on the wire, so Result carries accessors that
// parse duration, size, and bitrate on demand.
package ffprobe
