// Package config loads meshkv-cli defaults from ~/.meshkv/cli.yaml.
//
// Command-line flags and MESHKV_* environment variables override the
// file; a missing file yields the built-in defaults.
package config
