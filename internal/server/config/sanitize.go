package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging
// and the admin API.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Metrics.AllowList = append([]string(nil), cfg.Metrics.AllowList...)

	if sanitized.Server.Password != "" {
		sanitized.Server.Password = maskSecret(sanitized.Server.Password)
	}
	if sanitized.Storage.AOFEncryptionKey != "" {
		sanitized.Storage.AOFEncryptionKey = maskSecret(sanitized.Storage.AOFEncryptionKey)
	}
	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
