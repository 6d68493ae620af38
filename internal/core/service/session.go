package service

import (
	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/pkg/cmap"
)

// SessionRegistry owns the state of every open connection.
//
// Sessions are created on accept and removed on close; callers always go
// through the registry, so the selected database is read fresh on every
// command.
type SessionRegistry struct {
	sessions  *cmap.Map[*domain.Session]
	databases int
	auth      *Authenticator
}

// NewSessionRegistry creates a registry for a server with the given
// database count and password policy.
func NewSessionRegistry(databases int, auth *Authenticator) *SessionRegistry {
	if auth == nil {
		auth = NewAuthenticator("")
	}
	return &SessionRegistry{
		sessions:  cmap.New[*domain.Session](),
		databases: databases,
		auth:      auth,
	}
}

// Create registers a new session for an accepted connection. It starts on
// database 0 and is authenticated only when no password is configured.
func (r *SessionRegistry) Create(remoteAddr string) *domain.Session {
	sess := domain.NewSession(remoteAddr, !r.auth.Required())
	r.sessions.Set(sess.ID, sess)
	return sess.Clone()
}

// Get returns a copy of the session.
func (r *SessionRegistry) Get(id string) (*domain.Session, bool) {
	sess, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// SetSelectedDB switches the database used by the session's next command.
func (r *SessionRegistry) SetSelectedDB(id string, index int) error {
	if index < 0 || index >= r.databases {
		return domain.ErrOutOfRange
	}
	ok := r.sessions.Update(id, func(s *domain.Session) *domain.Session {
		c := s.Clone()
		c.SelectedDB = index
		return c
	})
	if !ok {
		return domain.ErrNotFound.WithDetails("session " + id)
	}
	return nil
}

// SetAuthenticated records the outcome of an AUTH command.
func (r *SessionRegistry) SetAuthenticated(id string, authenticated bool) error {
	ok := r.sessions.Update(id, func(s *domain.Session) *domain.Session {
		c := s.Clone()
		c.Authenticated = authenticated
		return c
	})
	if !ok {
		return domain.ErrNotFound.WithDetails("session " + id)
	}
	return nil
}

// Remove drops the session; removing an unknown id is a no-op.
func (r *SessionRegistry) Remove(id string) {
	r.sessions.Delete(id)
}

// Count returns the number of open sessions.
func (r *SessionRegistry) Count() int {
	return r.sessions.Count()
}

// Databases returns the database count sessions may select from.
func (r *SessionRegistry) Databases() int {
	return r.databases
}

// Authenticator returns the password policy shared by all sessions.
func (r *SessionRegistry) Authenticator() *Authenticator {
	return r.auth
}
