package connection

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/meshkv/pkg/resp"
)

// ErrNotConnected is returned when no server connection is open.
var ErrNotConnected = errors.New("not connected")

// Options describes how to reach and prepare a server session.
type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
	Timeout  time.Duration

	// TLS enables TLS when non-nil.
	TLS *tls.Config
}

// Addr returns host:port.
func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Dialer opens a client. Tests replace it with net.Pipe based clients.
type Dialer func(ctx context.Context, addr string, timeout time.Duration) (*Client, error)

// Manager owns the CLI connection and replays AUTH and SELECT after a
// reconnect.
type Manager struct {
	opts    Options
	dial    Dialer
	current *Client
	db      int
}

// NewManager creates a new connection manager.
func NewManager(opts Options) *Manager {
	m := &Manager{opts: opts, dial: Dial, db: opts.DB}
	if opts.TLS != nil {
		m.dial = DialTLS(opts.TLS)
	}
	return m
}

// WithDialer replaces the dial function.
func (m *Manager) WithDialer(d Dialer) *Manager {
	m.dial = d
	return m
}

// Connect dials the server and restores authentication and the selected
// database.
func (m *Manager) Connect(ctx context.Context) error {
	c, err := m.dial(ctx, m.opts.Addr(), m.opts.Timeout)
	if err != nil {
		return err
	}
	if m.opts.Password != "" {
		if err := expectOK(c.Do("AUTH", m.opts.Password)); err != nil {
			c.Close()
			return fmt.Errorf("auth: %w", err)
		}
	}
	if m.db != 0 {
		if err := expectOK(c.Do("SELECT", strconv.Itoa(m.db))); err != nil {
			c.Close()
			return fmt.Errorf("select %d: %w", m.db, err)
		}
	}
	m.Disconnect()
	m.current = c
	return nil
}

// Do runs a command on the current connection. A transport failure
// triggers one reconnect and retry.
func (m *Manager) Do(ctx context.Context, args ...string) (resp.Value, error) {
	if m.current == nil {
		if err := m.Connect(ctx); err != nil {
			return resp.Value{}, err
		}
	}
	v, err := m.current.Do(args...)
	if err != nil {
		if rerr := m.Connect(ctx); rerr != nil {
			return resp.Value{}, fmt.Errorf("%w (reconnect: %v)", err, rerr)
		}
		v, err = m.current.Do(args...)
		if err != nil {
			return resp.Value{}, err
		}
	}
	m.track(args, v)
	return v, nil
}

// track follows successful SELECT and AUTH so a reconnect restores them.
func (m *Manager) track(args []string, v resp.Value) {
	if v.Type == resp.TypeError {
		return
	}
	switch strings.ToUpper(args[0]) {
	case "SELECT":
		if len(args) == 2 {
			if db, err := strconv.Atoi(args[1]); err == nil {
				m.db = db
			}
		}
	case "AUTH":
		if len(args) >= 2 {
			m.opts.Password = args[len(args)-1]
		}
	}
}

// DB returns the currently selected database.
func (m *Manager) DB() int {
	return m.db
}

// Addr returns the server address.
func (m *Manager) Addr() string {
	return m.opts.Addr()
}

// Disconnect closes the current connection.
func (m *Manager) Disconnect() {
	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
}

// IsConnected returns true if connected to a server.
func (m *Manager) IsConnected() bool {
	return m.current != nil
}

func expectOK(v resp.Value, err error) error {
	if err != nil {
		return err
	}
	if v.Type == resp.TypeError {
		return errors.New(v.Str)
	}
	return nil
}
