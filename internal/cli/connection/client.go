package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/yndnr/meshkv/pkg/resp"
)

// Client is a single RESP connection. It is not safe for concurrent use.
type Client struct {
	conn    net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	timeout time.Duration
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewClient(conn, timeout), nil
}

// DialTLS returns a Dialer that negotiates TLS with cfg. An empty
// ServerName is taken from the dialed host.
func DialTLS(cfg *tls.Config) Dialer {
	return func(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
		d := tls.Dialer{NetDialer: &net.Dialer{Timeout: timeout}, Config: cfg}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return NewClient(conn, timeout), nil
	}
}

// NewClient wraps an established connection. A zero timeout disables
// per-request deadlines.
func NewClient(conn net.Conn, timeout time.Duration) *Client {
	return &Client{
		conn:    conn,
		br:      bufio.NewReader(conn),
		bw:      bufio.NewWriter(conn),
		timeout: timeout,
	}
}

// Do sends one command and waits for its reply. Server error replies are
// returned as values, not errors; the error is for transport failures.
func (c *Client) Do(args ...string) (resp.Value, error) {
	if len(args) == 0 {
		return resp.Value{}, fmt.Errorf("empty command")
	}
	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return resp.Value{}, err
		}
	}

	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	if err := resp.WriteCommand(c.bw, raw...); err != nil {
		return resp.Value{}, fmt.Errorf("write: %w", err)
	}
	if err := c.bw.Flush(); err != nil {
		return resp.Value{}, fmt.Errorf("write: %w", err)
	}

	v, err := resp.ReadValue(c.br)
	if err != nil {
		return resp.Value{}, fmt.Errorf("read: %w", err)
	}
	return v, nil
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
