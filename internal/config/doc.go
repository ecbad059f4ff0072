// Package config loads, normalizes, and validates shelfsync configuration
// from TOML, applying repository defaults for anything unset.
package config
