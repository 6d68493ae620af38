// Package adaptive provides AEAD ciphers for data at rest.
//
// Supported algorithms:
//
//   - XChaCha20-Poly1305: default; 24-byte random nonces are safe for
//     long-lived keys without a counter
//   - AES-256-GCM: for deployments that require FIPS-style algorithms
//
// Keys are derived from an operator secret with HKDF-SHA256 (DeriveKey), so
// the configured secret can be any length.
//
// Usage:
//
//	key, err := adaptive.DeriveKey([]byte(secret), "meshkv aof v1")
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
package adaptive
