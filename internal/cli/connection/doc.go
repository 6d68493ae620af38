// Package connection manages the meshkv-cli link to a server.
//
//   - client.go: a single RESP connection (request/reply)
//   - manager.go: dial options, AUTH/SELECT on connect, reconnect and
//     selected-database tracking for the REPL prompt
package connection
