package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshkv/internal/infra/buildinfo"
)

func main() {
	if err := newApp(run).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(action cli.ActionFunc) *cli.App {
	return &cli.App{
		Name:    "meshkv-server",
		Usage:   "in-memory key-value store speaking RESP",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML configuration file",
				EnvVars: []string{"MESHKV_CONFIG"},
			},
			&cli.StringFlag{Name: "host", Usage: "RESP listen host"},
			&cli.IntFlag{Name: "port", Usage: "RESP listen port"},
			&cli.IntFlag{Name: "databases", Usage: "number of logical databases"},
			&cli.StringFlag{Name: "password", Usage: "require AUTH with this password"},
			&cli.StringFlag{
				Name:    "aof_file_path",
				Aliases: []string{"aof-file-path"},
				Usage:   "append-only file path (empty disables persistence)",
			},
			&cli.StringFlag{Name: "tls-cert-file", Usage: "serve RESP over TLS with this certificate"},
			&cli.StringFlag{Name: "tls-key-file", Usage: "private key for --tls-cert-file"},
			&cli.StringFlag{Name: "tls-client-ca-file", Usage: "require client certificates signed by these CAs"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Action: action,
	}
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"host":               "server.host",
	"port":               "server.port",
	"databases":          "server.databases",
	"password":           "server.password",
	"aof_file_path":      "storage.aof_file_path",
	"tls-cert-file":      "server.tls.cert_file",
	"tls-key-file":       "server.tls.key_file",
	"tls-client-ca-file": "server.tls.client_ca_file",
	"log-level":          "log.level",
}

// flagOverrides returns the explicitly set flags as configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	out := make(map[string]any)
	for name, key := range flagKeys {
		if !c.IsSet(name) {
			continue
		}
		switch name {
		case "port", "databases":
			out[key] = c.Int(name)
		default:
			out[key] = c.String(name)
		}
	}
	return out
}
