package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".meshkv", "cli.yaml")
}

// Load reads path over the defaults. An empty path means
// DefaultConfigPath; a missing file is not an error.
func Load(path string) (*CLIConfig, error) {
	cfg := Default()
	if path == "" {
		path = DefaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cli config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	return cfg, nil
}

// Overrides carries values given explicitly on the command line or in the
// environment. Nil fields leave the file value in place.
type Overrides struct {
	Host        *string
	Port        *int
	Password    *string
	DB          *int
	Output      *string
	Timeout     *time.Duration
	HistoryFile *string

	TLS         *bool
	TLSCACert   *string
	TLSCert     *string
	TLSKey      *string
	TLSSNI      *string
	TLSInsecure *bool
}

// Merge applies o onto cfg and returns cfg.
func Merge(cfg *CLIConfig, o Overrides) *CLIConfig {
	if o.Host != nil {
		cfg.Host = *o.Host
	}
	if o.Port != nil {
		cfg.Port = *o.Port
	}
	if o.Password != nil {
		cfg.Password = *o.Password
	}
	if o.DB != nil {
		cfg.DB = *o.DB
	}
	if o.Output != nil {
		cfg.Output = *o.Output
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.HistoryFile != nil {
		cfg.HistoryFile = *o.HistoryFile
	}
	if o.TLS != nil {
		cfg.TLS.Enabled = *o.TLS
	}
	if o.TLSCACert != nil {
		cfg.TLS.CACert = *o.TLSCACert
	}
	if o.TLSCert != nil {
		cfg.TLS.Cert = *o.TLSCert
	}
	if o.TLSKey != nil {
		cfg.TLS.Key = *o.TLSKey
	}
	if o.TLSSNI != nil {
		cfg.TLS.SNI = *o.TLSSNI
	}
	if o.TLSInsecure != nil {
		cfg.TLS.Insecure = *o.TLSInsecure
	}
	return cfg
}
