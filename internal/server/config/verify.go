package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/meshkv/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyMetrics(&cfg.Metrics); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Host == "" {
		return errors.New("server.host is required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 0-65535", cfg.Port)
	}
	if cfg.Databases < 1 {
		return errors.New("server.databases must be at least 1")
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	if cfg.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	return verifyTLS(&cfg.TLS)
}

func verifyTLS(cfg *TLSSection) error {
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return errors.New("server.tls.cert_file and server.tls.key_file must be set together")
	}
	if cfg.ClientCAFile != "" && !cfg.Enabled() {
		return errors.New("server.tls.client_ca_file requires server.tls.cert_file")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if err := oneOf("storage.aof_sync", cfg.AOFSync, "always", "everysec", "no"); err != nil {
		return err
	}
	if err := oneOf("storage.aof_failure_policy", cfg.AOFFailurePolicy, "log", "reject"); err != nil {
		return err
	}
	if err := oneOf("storage.aof_cipher", cfg.AOFCipher, "xchacha20-poly1305", "aes-256-gcm"); err != nil {
		return err
	}
	if cfg.AOFEncryptionKey != "" && cfg.AOFFilePath == "" {
		return errors.New("storage.aof_encryption_key requires storage.aof_file_path")
	}
	if cfg.ActiveExpireInterval < 0 {
		return errors.New("storage.active_expire_interval must not be negative")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
			return fmt.Errorf("metrics.addr: %w", err)
		}
	}
	for _, entry := range cfg.AllowList {
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("metrics.allow_list: %w", err)
			}
		} else if net.ParseIP(entry) == nil {
			return fmt.Errorf("metrics.allow_list: invalid IP %q", entry)
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level: %q is not one of debug, info, warn, error", cfg.Level)
	}
	return oneOf("log.format", cfg.Format, "json", "text")
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", "))
}
