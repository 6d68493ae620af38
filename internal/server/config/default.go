package config

import "time"

// Default configuration values.
const (
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 6379
	DefaultDatabases = 16

	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second

	DefaultAOFSync              = "everysec"
	DefaultAOFFailurePolicy     = "log"
	DefaultAOFCipher            = "xchacha20-poly1305"
	DefaultActiveExpireInterval = 100 * time.Millisecond

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Host:         DefaultHost,
			Port:         DefaultPort,
			Databases:    DefaultDatabases,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		Storage: StorageSection{
			AOFSync:              DefaultAOFSync,
			AOFFailurePolicy:     DefaultAOFFailurePolicy,
			AOFCipher:            DefaultAOFCipher,
			ActiveExpireInterval: DefaultActiveExpireInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
