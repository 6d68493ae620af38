// Package metric provides Prometheus metrics for MeshKV.
//
//   - prometheus.go: the metrics registry, the /metrics handler and the
//     command and connection observers
//   - collector.go: a collector reading keyspace gauges at scrape time
//
// Metrics use a private prometheus.Registry rather than the global default,
// so tests and embedded servers never collide on registration.
package metric
