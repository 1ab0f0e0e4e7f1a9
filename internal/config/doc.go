// Package config loads, normalizes, and validates the TOML configuration for
// lacquer. Defaults live in defaults.go; Load applies the file on top of them
// and returns a fully expanded, validated configuration.
package config
