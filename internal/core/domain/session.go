// Package domain defines the core domain models for MeshKV.
package domain

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session is the per-connection state layered on top of the shared keyspace.
type Session struct {
	// ID identifies the connection; a lowercase ULID.
	ID string `json:"id"`

	// RemoteAddr is the peer address at accept time.
	RemoteAddr string `json:"remote_addr"`

	// Authenticated is set by a successful AUTH, or at creation when no
	// password is configured.
	Authenticated bool `json:"authenticated"`

	// SelectedDB is the database index used by keyspace commands.
	SelectedDB int `json:"selected_db"`

	// CreatedAt is the accept timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// NewSession creates a session for a freshly accepted connection.
func NewSession(remoteAddr string, authenticated bool) *Session {
	return &Session{
		ID:            GenerateSessionID(),
		RemoteAddr:    remoteAddr,
		Authenticated: authenticated,
		SelectedDB:    0,
		CreatedAt:     time.Now().UnixMilli(),
	}
}

// GenerateSessionID generates a new connection identity using ULID.
func GenerateSessionID() string {
	return strings.ToLower(ulid.Make().String())
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
