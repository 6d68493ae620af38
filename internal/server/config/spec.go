package config

import (
	"net"
	"strconv"
	"time"
)

// ServerConfig is the root configuration for meshkv-server. It is
// immutable once the server has started.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server" json:"server" yaml:"server"`
	Storage StorageSection `koanf:"storage" json:"storage" yaml:"storage"`
	Metrics MetricsSection `koanf:"metrics" json:"metrics" yaml:"metrics"`
	Log     LogSection     `koanf:"log" json:"log" yaml:"log"`
}

// ServerSection configures the RESP listener and sessions.
type ServerSection struct {
	Host      string `koanf:"host" json:"host" yaml:"host"`
	Port      int    `koanf:"port" json:"port" yaml:"port"`
	Databases int    `koanf:"databases" json:"databases" yaml:"databases"`

	// Password enables the AUTH gate when non-empty.
	Password string `koanf:"password" json:"password" yaml:"password"`

	ReadTimeout  time.Duration `koanf:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" json:"write_timeout" yaml:"write_timeout"`
	// IdleTimeout closes silent connections; 0 keeps them forever.
	IdleTimeout time.Duration `koanf:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout"`

	// RateLimit is commands per second per client IP; 0 disables it.
	RateLimit int `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`

	TLS TLSSection `koanf:"tls" json:"tls" yaml:"tls"`
}

// TLSSection enables TLS on the RESP listener when CertFile is set.
type TLSSection struct {
	CertFile string `koanf:"cert_file" json:"cert_file" yaml:"cert_file"`
	KeyFile  string `koanf:"key_file" json:"key_file" yaml:"key_file"`

	// ClientCAFile requires clients to present a certificate signed by
	// one of these CAs.
	ClientCAFile string `koanf:"client_ca_file" json:"client_ca_file" yaml:"client_ca_file"`
}

// Enabled reports whether TLS is configured.
func (t TLSSection) Enabled() bool {
	return t.CertFile != ""
}

// Address returns host:port.
func (s ServerSection) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageSection configures persistence and expiration.
type StorageSection struct {
	// AOFFilePath enables the append-only file when non-empty.
	AOFFilePath string `koanf:"aof_file_path" json:"aof_file_path" yaml:"aof_file_path"`

	// AOFSync is one of always, everysec, no.
	AOFSync string `koanf:"aof_sync" json:"aof_sync" yaml:"aof_sync"`

	// AOFFailurePolicy is one of log, reject.
	AOFFailurePolicy string `koanf:"aof_failure_policy" json:"aof_failure_policy" yaml:"aof_failure_policy"`

	// AOFEncryptionKey enables record encryption when non-empty.
	AOFEncryptionKey string `koanf:"aof_encryption_key" json:"aof_encryption_key" yaml:"aof_encryption_key"`

	// AOFCipher is xchacha20-poly1305 or aes-256-gcm.
	AOFCipher string `koanf:"aof_cipher" json:"aof_cipher" yaml:"aof_cipher"`

	// ActiveExpireInterval is the sweeper period; 0 disables the sweeper.
	ActiveExpireInterval time.Duration `koanf:"active_expire_interval" json:"active_expire_interval" yaml:"active_expire_interval"`
}

// MetricsSection configures the admin HTTP endpoint.
type MetricsSection struct {
	// Addr enables /metrics and /healthz when non-empty.
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`

	// AllowList restricts admin endpoints to these IPs or CIDRs.
	AllowList []string `koanf:"allow_list" json:"allow_list" yaml:"allow_list"`

	// Socket serves the same endpoints on a Unix socket, unguarded by
	// AllowList. Empty disables it.
	Socket string `koanf:"socket" json:"socket" yaml:"socket"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
