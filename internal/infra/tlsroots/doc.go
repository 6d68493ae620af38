// Package tlsroots builds TLS configurations for the RESP listener and
// the CLI client.
//
// The server certificate is held by a Watcher that reloads the key pair
// when either file changes, so certificates can be rotated without a
// restart. Client certificates are verified against a Pool when a client
// CA file is configured.
package tlsroots
