// Package main implements the lacquer command line tool.
//
// The binary exposes a small cobra verb set: "master" runs a recording
// through the full pipeline, "analyze" measures loudness without writing
// anything, "doctor" checks the environment, and "config" inspects or
// scaffolds the TOML configuration. A shared commandContext loads the
// configuration exactly once per invocation; each subcommand builds its
// own logger from that configuration before touching the workflow layer.
//
// Rendering helpers for tables and status lines also live here. Anything
// heavier belongs in the internal packages.
package main
