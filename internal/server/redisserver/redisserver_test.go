package redisserver

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/meshkv/internal/command"
	"github.com/yndnr/meshkv/internal/core/service"
	"github.com/yndnr/meshkv/internal/storage/aof"
	"github.com/yndnr/meshkv/internal/storage/memory"
	"github.com/yndnr/meshkv/pkg/resp"
)

// ============================================================
// Helpers
// ============================================================

type fixture struct {
	store    *memory.Store
	sessions *service.SessionRegistry
	srv      *Server
}

func newFixture(t *testing.T, password string, cfg *Config) *fixture {
	t.Helper()
	store := memory.New(16)
	sessions := service.NewSessionRegistry(store.Databases(), service.NewAuthenticator(password))
	d := command.NewDispatcher(command.DefaultRegistry(), store, sessions, aof.Discard)
	if cfg == nil {
		cfg = &Config{
			Address:      "127.0.0.1:0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		}
	}
	return &fixture{store: store, sessions: sessions, srv: New(cfg, d, sessions)}
}

// pipe serves one side of a net.Pipe and returns the client side plus a
// channel closed when the connection handler returns.
func (f *fixture) pipe(t *testing.T) (*testClient, <-chan struct{}) {
	t.Helper()
	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.srv.serveConn(context.Background(), newConn(server))
	}()
	t.Cleanup(func() { client.Close() })
	return newTestClient(t, client), done
}

type testClient struct {
	t  *testing.T
	nc net.Conn
	br *bufio.Reader
	bw *bufio.Writer
}

func newTestClient(t *testing.T, nc net.Conn) *testClient {
	return &testClient{t: t, nc: nc, br: bufio.NewReader(nc), bw: bufio.NewWriter(nc)}
}

func (c *testClient) send(args ...string) {
	c.t.Helper()
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	_ = c.nc.SetDeadline(time.Now().Add(2 * time.Second))
	if err := resp.WriteCommand(c.bw, raw...); err != nil {
		c.t.Fatalf("WriteCommand: %v", err)
	}
	if err := c.bw.Flush(); err != nil {
		c.t.Fatalf("Flush: %v", err)
	}
}

func (c *testClient) read() resp.Value {
	c.t.Helper()
	_ = c.nc.SetReadDeadline(time.Now().Add(2 * time.Second))
	v, err := resp.ReadValue(c.br)
	if err != nil {
		c.t.Fatalf("ReadValue: %v", err)
	}
	return v
}

// do sends a command and renders the reply as "<type><text>", e.g. "+OK",
// ":1", "$v", "$(nil)", "-ERR ...".
func (c *testClient) do(args ...string) string {
	c.t.Helper()
	c.send(args...)
	return render(c.read())
}

func render(v resp.Value) string {
	switch {
	case v.Type == resp.TypeBulk && v.Null:
		return "$(nil)"
	case v.Type == resp.TypeArray:
		parts := make([]string, len(v.Array))
		for i, it := range v.Array {
			parts[i] = it.String()
		}
		return "*[" + strings.Join(parts, ",") + "]"
	default:
		return string(v.Type) + v.String()
	}
}

func expect(t *testing.T, c *testClient, want string, args ...string) {
	t.Helper()
	if got := c.do(args...); got != want {
		t.Fatalf("%v = %q, want %q", args, got, want)
	}
}

// ============================================================
// Connection handler
// ============================================================

func TestServeConn_PingAndQuit(t *testing.T) {
	f := newFixture(t, "", nil)
	c, done := f.pipe(t)

	expect(t, c, "+PONG", "PING")
	expect(t, c, "+PONG", "ping")
	expect(t, c, "+PONG", "NO-SUCH-COMMAND", "x")
	expect(t, c, "+OK", "QUIT")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after QUIT")
	}
	if n := f.sessions.Count(); n != 0 {
		t.Fatalf("sessions after close = %d, want 0", n)
	}
}

func TestServeConn_InlineCommand(t *testing.T) {
	f := newFixture(t, "", nil)
	c, _ := f.pipe(t)

	_ = c.nc.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.nc.Write([]byte("SET greeting hello\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := render(c.read()); got != "+OK" {
		t.Fatalf("inline SET = %q", got)
	}
	expect(t, c, "$hello", "GET", "greeting")
}

func TestServeConn_ProtocolError(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array too large", "*99999999\r\n"},
		{"bad bulk length", "*1\r\n$abc\r\n"},
		{"missing bulk prefix", "*1\r\n:12\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "", nil)
			c, done := f.pipe(t)

			_ = c.nc.SetDeadline(time.Now().Add(2 * time.Second))
			if _, err := c.nc.Write([]byte(tt.input)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if got := render(c.read()); got != "-ERR protocol error" {
				t.Fatalf("reply = %q, want protocol error", got)
			}
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("connection not closed after protocol error")
			}
		})
	}
}

func TestServeConn_AuthGate(t *testing.T) {
	f := newFixture(t, "pw", nil)
	c, _ := f.pipe(t)

	expect(t, c, "-ERR authentication required", "SET", "a", "1")
	expect(t, c, "-ERR invalid password", "AUTH", "nope")
	expect(t, c, "+OK", "AUTH", "pw")
	expect(t, c, "+OK", "SET", "a", "1")
	expect(t, c, "$1", "GET", "a")
}

func TestServeConn_TwoClientsIsolation(t *testing.T) {
	f := newFixture(t, "", nil)
	a, _ := f.pipe(t)
	b, _ := f.pipe(t)

	expect(t, a, "+OK", "SELECT", "1")
	expect(t, a, "+OK", "SET", "shared", "from-a")
	expect(t, b, "$(nil)", "GET", "shared")
	expect(t, b, "+OK", "SET", "shared", "from-b")
	expect(t, a, "$from-a", "GET", "shared")
	expect(t, b, "$from-b", "GET", "shared")

	// Same database, shared keyspace.
	expect(t, b, "+OK", "SELECT", "1")
	expect(t, b, "$from-a", "GET", "shared")
	expect(t, a, "*[shared]", "KEYS", "*")
}

func TestServeConn_Pipelined(t *testing.T) {
	f := newFixture(t, "", nil)
	c, _ := f.pipe(t)

	_ = c.nc.SetDeadline(time.Now().Add(2 * time.Second))
	for _, args := range [][]string{{"RPUSH", "l", "a"}, {"RPUSH", "l", "b"}, {"LLEN", "l"}} {
		raw := make([][]byte, len(args))
		for i, a := range args {
			raw[i] = []byte(a)
		}
		if err := resp.WriteCommand(c.bw, raw...); err != nil {
			t.Fatalf("WriteCommand: %v", err)
		}
	}
	// net.Pipe is synchronous, so the writes run alongside the reads.
	go c.bw.Flush()

	for _, want := range []string{":1", ":2", ":2"} {
		if got := render(c.read()); got != want {
			t.Fatalf("reply = %q, want %q", got, want)
		}
	}
}

func TestServeConn_RateLimit(t *testing.T) {
	f := newFixture(t, "", &Config{
		Address:      "127.0.0.1:0",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		RateLimit:    2,
	})
	c, _ := f.pipe(t)

	limited := 0
	for i := 0; i < 10; i++ {
		if c.do("PING") == "-ERR rate limit exceeded" {
			limited++
		}
	}
	if limited == 0 {
		t.Fatal("expected some commands to be rate limited")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		addr net.Addr
		want string
	}{
		{&net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 5000}, "10.0.0.1"},
		{&net.TCPAddr{IP: net.ParseIP("::1"), Port: 5000}, "::1"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := clientIP(tt.addr); got != tt.want {
			t.Errorf("clientIP(%v) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

// ============================================================
// Listener
// ============================================================

func TestServer_LoopbackLifecycle(t *testing.T) {
	f := newFixture(t, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	const clients = 4
	var wg sync.WaitGroup
	errs := make(chan string, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			nc, err := net.Dial("tcp", f.srv.Addr().String())
			if err != nil {
				errs <- err.Error()
				return
			}
			defer nc.Close()
			c := newTestClient(t, nc)
			c.send("INCR", "hits")
			if v := c.read(); v.Type != resp.TypeInteger {
				errs <- "INCR reply " + render(v)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}

	var hits []byte
	_ = f.store.Exec(func(tx *memory.Tx) error {
		hits, _, _ = tx.GetString(0, "hits")
		return nil
	})
	if string(hits) != "4" {
		t.Fatalf("hits = %q, want 4", hits)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := f.srv.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if n := f.srv.ConnCount(); n != 0 {
		t.Fatalf("ConnCount after shutdown = %d", n)
	}
}

func TestServer_ShutdownClosesIdleConnections(t *testing.T) {
	f := newFixture(t, "", nil)
	if err := f.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	nc, err := net.Dial("tcp", f.srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer nc.Close()
	c := newTestClient(t, nc)
	expect(t, c, "+PONG", "PING")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	_ = nc.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := nc.Read(make([]byte, 1)); err == nil {
		t.Fatal("connection still open after Shutdown")
	}
}

func TestServer_StartBindError(t *testing.T) {
	f := newFixture(t, "", &Config{Address: "256.0.0.1:0"})
	if err := f.srv.Start(context.Background()); err == nil {
		t.Fatal("Start with invalid address should fail")
	}
}
