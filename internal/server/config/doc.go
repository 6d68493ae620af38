// Package config defines the MeshKV server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation (ranges, enumerations, address syntax)
//   - sanitize.go: masking of secrets for logs and the admin API
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// MESHKV_ environment variables and command-line flags.
package config
