package redisserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/meshkv/internal/command"
	"github.com/yndnr/meshkv/internal/core/service"
	"github.com/yndnr/meshkv/internal/telemetry/logger"
)

// Config holds the RESP listener configuration.
type Config struct {
	// Address is the TCP listen address (host:port).
	Address string
	// ReadTimeout bounds reading one command once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply.
	WriteTimeout time.Duration
	// IdleTimeout closes connections with no traffic; 0 disables it.
	IdleTimeout time.Duration
	// RateLimit is the number of commands per second per client IP; 0
	// disables rate limiting.
	RateLimit int
	// TLS wraps accepted connections when non-nil.
	TLS *tls.Config
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      "127.0.0.1:6379",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// ConnObserver receives connection lifecycle events.
type ConnObserver interface {
	ConnOpened()
	ConnClosed()
}

type nopConnObserver struct{}

func (nopConnObserver) ConnOpened() {}
func (nopConnObserver) ConnClosed() {}

// Server accepts RESP connections and feeds them to the dispatcher.
type Server struct {
	cfg        *Config
	dispatcher *command.Dispatcher
	sessions   *service.SessionRegistry
	limiters   *service.RateLimiterRegistry
	observer   ConnObserver
	logger     logger.Logger

	mu      sync.Mutex
	ln      net.Listener
	conns   map[*Conn]struct{}
	running atomic.Bool
	wg      sync.WaitGroup
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConnObserver installs a connection metrics observer.
func WithConnObserver(o ConnObserver) Option {
	return func(s *Server) {
		if o != nil {
			s.observer = o
		}
	}
}

// New creates a server. Nothing is bound until Start.
func New(cfg *Config, d *command.Dispatcher, sessions *service.SessionRegistry, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: d,
		sessions:   sessions,
		limiters:   service.NewRateLimiterRegistry(cfg.RateLimit),
		observer:   nopConnObserver{},
		logger:     logger.Default(),
		conns:      make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	if s.cfg.TLS != nil {
		ln = tls.NewListener(ln, s.cfg.TLS)
	}
	s.Serve(ctx, ln)
	return nil
}

// Serve accepts connections from ln in the background.
func (s *Server) Serve(ctx context.Context, ln net.Listener) {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.running.Store(true)

	s.logger.Info("resp server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("resp accept loop stopped", "error", err)
		}
	}()
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown closes the listener and every open connection, then waits for
// connection goroutines until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	s.mu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return err
		}

		c := newConn(nc)
		if !s.track(c) {
			_ = c.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.serveConn(ctx, c)
		}()
	}
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// ConnCount returns the number of open connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
