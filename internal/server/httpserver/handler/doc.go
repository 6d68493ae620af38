// Package handler implements the meshkv admin HTTP endpoints.
//
//   - health.go: liveness and readiness probes
//   - admin.go: status summary, effective configuration, AOF rewrite
//
// Every JSON response uses the Response envelope. /metrics is served by
// the Prometheus handler and is not part of this package.
package handler
