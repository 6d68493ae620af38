package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshkv/internal/command"
	"github.com/yndnr/meshkv/internal/core/service"
	"github.com/yndnr/meshkv/internal/infra/buildinfo"
	"github.com/yndnr/meshkv/internal/infra/confloader"
	"github.com/yndnr/meshkv/internal/infra/shutdown"
	"github.com/yndnr/meshkv/internal/infra/tlsroots"
	"github.com/yndnr/meshkv/internal/server/config"
	"github.com/yndnr/meshkv/internal/server/httpserver"
	"github.com/yndnr/meshkv/internal/server/httpserver/handler"
	"github.com/yndnr/meshkv/internal/server/localserver"
	"github.com/yndnr/meshkv/internal/server/redisserver"
	"github.com/yndnr/meshkv/internal/storage/aof"
	"github.com/yndnr/meshkv/internal/storage/memory"
	"github.com/yndnr/meshkv/internal/telemetry/logger"
	"github.com/yndnr/meshkv/internal/telemetry/metric"
	"github.com/yndnr/meshkv/pkg/crypto/adaptive"
)

const shutdownTimeout = 30 * time.Second

func run(c *cli.Context) error {
	startedAt := time.Now()
	configFile := c.String("config")
	overrides := flagOverrides(c)

	cfg, err := loadConfig(configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	buildinfo.PrintBanner(os.Stdout, "meshkv-server")
	log.Info("starting meshkv-server",
		"version", buildinfo.Version,
		"config", configFile,
		"settings", config.Sanitize(cfg))

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	policy, err := command.ParseFailurePolicy(cfg.Storage.AOFFailurePolicy)
	if err != nil {
		return err
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, shutdown.WithLogger(log))
	// abort runs the hooks registered so far and returns err.
	abort := func(err error) error {
		shutdownHandler.Trigger()
		_ = shutdownHandler.Wait(ctx)
		return err
	}

	// Keyspace and persistence.
	store := memory.New(cfg.Server.Databases)
	registry := command.DefaultRegistry()

	aofLog, err := openAOF(cfg, log)
	if err != nil {
		return fmt.Errorf("open aof: %w", err)
	}
	shutdownHandler.OnShutdown("aof", func(context.Context) error {
		return aofLog.Close()
	})

	result, err := command.Replay(aofLog, registry, store, log)
	if err != nil {
		return abort(err)
	}
	log.Info("keyspace loaded", "applied", result.Applied, "rejected", result.Rejected)

	expireCtx, stopExpirer := context.WithCancel(ctx)
	go store.RunExpirer(expireCtx, cfg.Storage.ActiveExpireInterval)
	shutdownHandler.OnShutdown("expirer", func(context.Context) error {
		stopExpirer()
		return nil
	})

	// Metrics and dispatch.
	metrics := metric.NewRegistry()
	metrics.MustRegister(metric.NewKeyspaceCollector(store))

	sessions := service.NewSessionRegistry(cfg.Server.Databases, service.NewAuthenticator(cfg.Server.Password))
	dispatcher := command.NewDispatcher(registry, store, sessions, aofLog,
		command.WithLogger(log.With("component", "dispatcher")),
		command.WithFailurePolicy(policy),
		command.WithObserver(metrics),
	)

	// Admin HTTP.
	var admin *handler.Handler
	if cfg.Metrics.Addr != "" || cfg.Metrics.Socket != "" {
		admin, err = startAdmin(cfg, store, sessions, aofLog, metrics, log, startedAt, shutdownHandler)
		if err != nil {
			return abort(err)
		}
	}

	// RESP listener.
	tlsConfig, err := setupTLS(cfg.Server.TLS, log, shutdownHandler)
	if err != nil {
		return abort(err)
	}
	redisSrv := redisserver.New(&redisserver.Config{
		Address:      cfg.Server.Address(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		RateLimit:    cfg.Server.RateLimit,
		TLS:          tlsConfig,
	}, dispatcher, sessions,
		redisserver.WithLogger(log.With("component", "redisserver")),
		redisserver.WithConnObserver(metrics),
	)
	if err := redisSrv.Start(ctx); err != nil {
		return abort(fmt.Errorf("listen %s: %w", cfg.Server.Address(), err))
	}
	shutdownHandler.OnShutdown("redisserver", redisSrv.Shutdown)

	if admin != nil {
		admin.SetReady(true)
	}

	if configFile != "" {
		if _, pinned := overrides["log.level"]; !pinned {
			if err := watchLogLevel(configFile, log, shutdownHandler); err != nil {
				log.Warn("config watcher disabled", "error", err)
			}
		}
	}

	log.Info("ready to accept connections", "address", cfg.Server.Address(), "tls", tlsConfig != nil)
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, file, environment and flags, then validates.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithFlags(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  os.Stdout,
		Service: "meshkv-server",
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// openAOF returns aof.Discard when persistence is disabled.
func openAOF(cfg *config.ServerConfig, log logger.Logger) (aof.Log, error) {
	if cfg.Storage.AOFFilePath == "" {
		log.Warn("append-only file disabled, data will not survive a restart")
		return aof.Discard, nil
	}
	sync, err := aof.ParseSyncPolicy(cfg.Storage.AOFSync)
	if err != nil {
		return nil, err
	}
	return aof.Open(aof.Config{
		Path:          cfg.Storage.AOFFilePath,
		Sync:          sync,
		EncryptionKey: cfg.Storage.AOFEncryptionKey,
		Cipher:        adaptive.CipherType(cfg.Storage.AOFCipher),
		Logger:        log.With("component", "aof"),
	})
}

func startAdmin(
	cfg *config.ServerConfig,
	store *memory.Store,
	sessions *service.SessionRegistry,
	aofLog aof.Log,
	metrics *metric.Registry,
	log logger.Logger,
	startedAt time.Time,
	shutdownHandler *shutdown.Handler,
) (*handler.Handler, error) {
	var rewrite func() (int, error)
	if cfg.Storage.AOFFilePath != "" {
		rewrite = func() (int, error) {
			var n int
			err := store.Exec(func(tx *memory.Tx) error {
				records := command.SnapshotRecords(tx)
				n = len(records)
				return aofLog.Rewrite(records)
			})
			return n, err
		}
	}

	adminLog := log.With("component", "admin")
	admin := handler.New(handler.Config{
		Keyspace:  store,
		Sessions:  sessions,
		Settings:  func() any { return config.Sanitize(cfg) },
		Rewrite:   rewrite,
		Logger:    adminLog,
		StartedAt: startedAt,
	})

	if cfg.Metrics.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", cfg.Metrics.Addr, err)
		}
		srv := httpserver.New(cfg.Metrics.Addr, httpserver.NewRouter(httpserver.RouterConfig{
			Admin:     admin,
			Metrics:   metrics.Handler(),
			AllowList: cfg.Metrics.AllowList,
			Logger:    adminLog,
		}))
		go func() {
			adminLog.Info("admin http listening", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil {
				adminLog.Error("admin http server error", "error", err)
			}
		}()
		shutdownHandler.OnShutdown("admin", srv.Shutdown)
	}

	if cfg.Metrics.Socket != "" {
		local := localserver.New(cfg.Metrics.Socket, admin, metrics.Handler(), localserver.WithLogger(adminLog))
		if err := local.Start(); err != nil {
			return nil, fmt.Errorf("admin socket %s: %w", cfg.Metrics.Socket, err)
		}
		shutdownHandler.OnShutdown("admin-socket", local.Shutdown)
	}
	return admin, nil
}

// setupTLS loads the listener certificate and keeps it fresh. It returns
// nil when TLS is not configured.
func setupTLS(cfg config.TLSSection, log logger.Logger, shutdownHandler *shutdown.Handler) (*tls.Config, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	certs, err := tlsroots.NewWatcher(cfg.CertFile, cfg.KeyFile,
		tlsroots.WithLogger(log.With("component", "tlsroots")))
	if err != nil {
		return nil, err
	}

	var clientCAs *tlsroots.Pool
	if cfg.ClientCAFile != "" {
		if clientCAs, err = tlsroots.LoadPool(cfg.ClientCAFile); err != nil {
			return nil, err
		}
	}

	certs.StartAsync()
	shutdownHandler.OnShutdown("tlsroots", func(context.Context) error {
		certs.Stop()
		return nil
	})
	return tlsroots.ServerConfig(certs, clientCAs), nil
}

func watchLogLevel(configFile string, log logger.Logger, shutdownHandler *shutdown.Handler) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.With("component", "confloader")))
	if err != nil {
		return err
	}
	if err := w.Watch(configFile); err != nil {
		w.Stop()
		return err
	}
	w.OnChange(confloader.LogLevelReloader(confloader.DefaultEnvPrefix, logger.SetLevel, log))
	w.StartAsync()
	shutdownHandler.OnShutdown("confloader", func(context.Context) error {
		return w.Stop()
	})
	return nil
}
