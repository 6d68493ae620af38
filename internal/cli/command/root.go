package command

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshkv/internal/cli/config"
	"github.com/yndnr/meshkv/internal/cli/connection"
	"github.com/yndnr/meshkv/internal/cli/output"
	"github.com/yndnr/meshkv/internal/cli/repl"
	servercmd "github.com/yndnr/meshkv/internal/command"
	"github.com/yndnr/meshkv/internal/infra/buildinfo"
	"github.com/yndnr/meshkv/internal/infra/tlsroots"
	"github.com/yndnr/meshkv/pkg/resp"
)

// App creates the CLI application.
func App() *cli.App {
	// -h selects the host, as in redis-cli.
	cli.HelpFlag = &cli.BoolFlag{Name: "help", Usage: "show help"}

	return &cli.App{
		Name:            "meshkv-cli",
		Usage:           "command-line client for meshkv",
		UsageText:       "meshkv-cli [-h host] [-p port] [-a password] [-n db] [-o format] [command [arg ...]]",
		Version:         buildinfo.String(),
		Flags:           globalFlags(),
		HideHelpCommand: true,
		Action:          run,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"MESHKV_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"h"},
			Usage:   "server host",
			EnvVars: []string{"MESHKV_HOST"},
			Value:   "127.0.0.1",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "server port",
			EnvVars: []string{"MESHKV_PORT"},
			Value:   6379,
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"a"},
			Usage:   "password sent with AUTH on connect",
			EnvVars: []string{"MESHKV_PASSWORD"},
		},
		&cli.IntFlag{
			Name:    "db",
			Aliases: []string{"n"},
			Usage:   "database number selected on connect",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, raw, json, yaml",
			Value:   string(output.FormatText),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "dial and per-command timeout",
			Value: 5 * time.Second,
		},
		&cli.BoolFlag{Name: "tls", Usage: "establish a TLS connection"},
		&cli.StringFlag{Name: "cacert", Usage: "CA certificate file to verify the server"},
		&cli.StringFlag{Name: "cert", Usage: "client certificate for mutual TLS"},
		&cli.StringFlag{Name: "key", Usage: "private key for --cert"},
		&cli.StringFlag{Name: "sni", Usage: "server name for TLS verification"},
		&cli.BoolFlag{Name: "insecure", Usage: "skip server certificate verification"},
		&cli.StringFlag{
			Name:  "history-file",
			Usage: "REPL history file (empty disables)",
			Value: repl.DefaultHistoryFile(),
		},
	}
}

// loadConfig reads the CLI config file and applies flags and environment
// variables that were set explicitly.
func loadConfig(c *cli.Context) (*config.CLIConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	var o config.Overrides
	if c.IsSet("host") {
		v := c.String("host")
		o.Host = &v
	}
	if c.IsSet("port") {
		v := c.Int("port")
		o.Port = &v
	}
	if c.IsSet("password") {
		v := c.String("password")
		o.Password = &v
	}
	if c.IsSet("db") {
		v := c.Int("db")
		o.DB = &v
	}
	if c.IsSet("output") {
		v := c.String("output")
		o.Output = &v
	}
	if c.IsSet("timeout") {
		v := c.Duration("timeout")
		o.Timeout = &v
	}
	if c.IsSet("history-file") {
		v := c.String("history-file")
		o.HistoryFile = &v
	}
	if c.IsSet("tls") {
		v := c.Bool("tls")
		o.TLS = &v
	}
	if c.IsSet("cacert") {
		v := c.String("cacert")
		o.TLSCACert = &v
	}
	if c.IsSet("cert") {
		v := c.String("cert")
		o.TLSCert = &v
	}
	if c.IsSet("key") {
		v := c.String("key")
		o.TLSKey = &v
	}
	if c.IsSet("sni") {
		v := c.String("sni")
		o.TLSSNI = &v
	}
	if c.IsSet("insecure") {
		v := c.Bool("insecure")
		o.TLSInsecure = &v
	}
	return config.Merge(cfg, o), nil
}

func run(c *cli.Context) error {
	flags, err := loadConfig(c)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	formatter := output.NewFormatter(format)

	tlsConfig, err := clientTLS(flags.TLS)
	if err != nil {
		return err
	}
	mgr := connection.NewManager(connection.Options{
		Host:     flags.Host,
		Port:     flags.Port,
		Password: flags.Password,
		DB:       flags.DB,
		Timeout:  flags.Timeout,
		TLS:      tlsConfig,
	})
	defer mgr.Disconnect()

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := mgr.Connect(ctx); err != nil {
		return fmt.Errorf("could not connect to %s: %w", mgr.Addr(), err)
	}

	if c.NArg() > 0 {
		v, err := mgr.Do(ctx, c.Args().Slice()...)
		if err != nil {
			return err
		}
		if err := formatter.Format(c.App.Writer, v); err != nil {
			return err
		}
		if v.Type == resp.TypeError {
			return cli.Exit("", 1)
		}
		return nil
	}

	history := repl.NewHistory(flags.HistoryFile)
	if err := history.Load(); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: history not loaded: %v\n", err)
	}
	defer history.Save()

	completer := repl.NewCompleter(servercmd.DefaultRegistry().Names())
	r := repl.New(c.App.Reader, c.App.Writer, func(args []string) error {
		v, err := mgr.Do(ctx, args...)
		if err != nil {
			return err
		}
		return formatter.Format(c.App.Writer, v)
	}, completer, history)
	r.SetPrompt(func() string { return prompt(mgr) })
	return r.Run()
}

// clientTLS returns nil when TLS is disabled.
func clientTLS(cfg config.TLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return tlsroots.ClientConfig(tlsroots.ClientOptions{
		CAFile:             cfg.CACert,
		CertFile:           cfg.Cert,
		KeyFile:            cfg.Key,
		ServerName:         cfg.SNI,
		InsecureSkipVerify: cfg.Insecure,
	})
}

func prompt(mgr *connection.Manager) string {
	if db := mgr.DB(); db != 0 {
		return mgr.Addr() + "[" + strconv.Itoa(db) + "]> "
	}
	return mgr.Addr() + "> "
}
