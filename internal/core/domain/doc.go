// Package domain defines the core domain models for MeshKV.
//
// Domain models are plain values without any IO dependencies:
//
//   - Value/Entry: the typed, possibly-expiring payload stored under a key
//   - Session: per-connection authentication and database selection state
//   - Errors: error kinds surfaced to clients as RESP error replies
package domain
