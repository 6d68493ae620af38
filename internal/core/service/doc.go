// Package service provides the connection-scoped services of MeshKV.
//
// This package contains:
//
//   - SessionRegistry: per-connection authentication and database selection
//   - Authenticator: the server password check used by AUTH
//   - RateLimiterRegistry: per-client command rate limiters
//
// All types are safe for concurrent use and hold their own locks,
// independent of the keyspace lock.
package service
