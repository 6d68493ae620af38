// Package httpserver provides the admin HTTP server for meshkv.
//
// It serves Prometheus metrics, health probes and a small read-mostly
// admin API next to the RESP listener:
//
//   - GET  /metrics
//   - GET  /healthz, /readyz
//   - GET  /admin/v1/status/summary
//   - GET  /admin/v1/config
//   - POST /admin/v1/aof/rewrite
//
// /metrics and /admin/v1/* are guarded by an optional IP/CIDR allow list.
package httpserver
