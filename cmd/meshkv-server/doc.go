// Package main provides the entry point for meshkv-server.
//
// meshkv-server is an in-memory key-value store speaking RESP. It loads
// its configuration (flags > MESHKV_* environment > YAML file >
// defaults), replays the append-only file, and then serves:
//
//   - the RESP listener (server.host:server.port)
//   - an optional admin HTTP listener (metrics.addr) with /metrics,
//     /healthz, /readyz and /admin/v1/*
//
// Usage:
//
//	meshkv-server --config /etc/meshkv/meshkv.yaml
//	meshkv-server --port 6380 --aof-file-path /var/lib/meshkv/appendonly.aof
package main
