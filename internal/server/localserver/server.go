package localserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/yndnr/meshkv/internal/server/httpserver"
	"github.com/yndnr/meshkv/internal/server/httpserver/handler"
	"github.com/yndnr/meshkv/internal/telemetry/logger"
)

// SocketMode is the permission applied to the socket file.
const SocketMode fs.FileMode = 0600

// Server represents the local management server.
type Server struct {
	path    string
	http    *httpserver.Server
	logger  logger.Logger
	running atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a local server that exposes admin and metrics on socketPath.
func New(socketPath string, admin *handler.Handler, metrics http.Handler, opts ...Option) *Server {
	s := &Server{
		path:   socketPath,
		logger: logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.http = httpserver.New("", httpserver.NewRouter(httpserver.RouterConfig{
		Admin:   admin,
		Metrics: metrics,
		Logger:  s.logger,
	}))
	return s
}

// Start binds the socket and serves in the background. A stale socket
// left by a crashed process is replaced; any other file at the path is
// an error.
func (s *Server) Start() error {
	if err := removeStaleSocket(s.path); err != nil {
		return err
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, SocketMode); err != nil {
		ln.Close()
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}

	s.running.Store(true)
	s.logger.Info("admin socket listening", "path", s.path)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(ln); err != nil && s.running.Load() {
			s.logger.Error("admin socket server error", "error", err)
		}
	}()
	return nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Shutdown stops accepting connections, drains in-flight requests until
// ctx is done, and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	err := s.http.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

func removeStaleSocket(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	return os.Remove(path)
}
