package service

import (
	"crypto/subtle"
	"sync"

	"golang.org/x/time/rate"
)

// Authenticator checks AUTH credentials against the configured password.
type Authenticator struct {
	password []byte
}

// NewAuthenticator creates an Authenticator. An empty password disables
// the authentication gate.
func NewAuthenticator(password string) *Authenticator {
	a := &Authenticator{}
	if password != "" {
		a.password = []byte(password)
	}
	return a
}

// Required reports whether sessions must authenticate before issuing commands.
func (a *Authenticator) Required() bool {
	return len(a.password) > 0
}

// Verify reports whether the supplied credential equals the password
// byte-for-byte. With no password configured every credential is accepted.
func (a *Authenticator) Verify(credential []byte) bool {
	if !a.Required() {
		return true
	}
	return subtle.ConstantTimeCompare(credential, a.password) == 1
}

// ============================================================================
// RateLimiterRegistry - Rate Limiter Management
// ============================================================================

// RateLimiterRegistry manages one token-bucket limiter per client address.
//
// Connections from the same address share a limiter; it is dropped when
// the last of them releases it.
type RateLimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    int
}

type limiterEntry struct {
	limiter *rate.Limiter
	refs    int
}

// NewRateLimiterRegistry creates a registry allowing limit commands per
// second (burst = limit) for each client. A limit <= 0 disables limiting.
func NewRateLimiterRegistry(limit int) *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
	}
}

// Enabled reports whether limiting is active.
func (r *RateLimiterRegistry) Enabled() bool {
	return r != nil && r.limit > 0
}

// Acquire returns the limiter for a client, creating it on first use. Each
// Acquire must be paired with a Release. It returns nil when limiting is
// disabled.
func (r *RateLimiterRegistry) Acquire(clientID string) *rate.Limiter {
	if !r.Enabled() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.limiters[clientID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(r.limit), r.limit)}
		r.limiters[clientID] = e
	}
	e.refs++
	return e.limiter
}

// Release drops one reference to a client's limiter.
func (r *RateLimiterRegistry) Release(clientID string) {
	if !r.Enabled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.limiters[clientID]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.limiters, clientID)
	}
}

// Len returns the number of tracked clients.
func (r *RateLimiterRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
