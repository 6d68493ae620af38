package config

import (
	"time"

	"github.com/yndnr/meshkv/internal/cli/repl"
)

// CLIConfig is the configuration for meshkv-cli.
type CLIConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Output   string `yaml:"output"` // text, raw, json, yaml

	Timeout     time.Duration `yaml:"timeout"`
	HistoryFile string        `yaml:"history_file"`

	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig mirrors the redis-cli TLS options.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CACert   string `yaml:"cacert"`
	Cert     string `yaml:"cert"`
	Key      string `yaml:"key"`
	SNI      string `yaml:"sni"`
	Insecure bool   `yaml:"insecure"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Host:        "127.0.0.1",
		Port:        6379,
		Output:      "text",
		Timeout:     5 * time.Second,
		HistoryFile: repl.DefaultHistoryFile(),
	}
}
