package localserver

import (
	"context"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/meshkv/internal/server/httpserver/handler"
	"github.com/yndnr/meshkv/internal/storage/memory"
)

type fakeKeyspace struct{}

func (fakeKeyspace) KeyCounts() []int    { return []int{3, 0} }
func (fakeKeyspace) Stats() memory.Stats { return memory.Stats{} }

type fakeSessions struct{}

func (fakeSessions) Count() int { return 1 }

func socketPath(t *testing.T) string {
	t.Helper()
	// Keep the path short; sun_path is limited to ~108 bytes.
	dir, err := os.MkdirTemp("", "mkv")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "admin.sock")
}

func unixClient(path string) *http.Client {
	return &http.Client{
		Timeout: 2 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
	}
}

func startServer(t *testing.T, path string) *Server {
	t.Helper()
	admin := handler.New(handler.Config{Keyspace: fakeKeyspace{}, Sessions: fakeSessions{}})
	admin.SetReady(true)
	s := New(path, admin, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func get(t *testing.T, c *http.Client, path string) (int, string) {
	t.Helper()
	resp, err := c.Get("http://local" + path)
	if err != nil {
		t.Fatalf("GET %s error = %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServer_ServesAdmin(t *testing.T) {
	path := socketPath(t)
	startServer(t, path)
	c := unixClient(path)

	if code, _ := get(t, c, "/healthz"); code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", code)
	}
	code, body := get(t, c, "/admin/v1/status/summary")
	if code != http.StatusOK {
		t.Fatalf("status summary = %d, want 200: %s", code, body)
	}
	if !strings.Contains(body, `"total_keys":3`) {
		t.Errorf("summary body = %s, want total_keys 3", body)
	}
}

func TestServer_SocketMode(t *testing.T) {
	path := socketPath(t)
	startServer(t, path)

	info, err := os.Lstat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&fs.ModeSocket == 0 {
		t.Errorf("mode = %v, want socket", info.Mode())
	}
	if perm := info.Mode().Perm(); perm != SocketMode {
		t.Errorf("perm = %v, want %v", perm, SocketMode)
	}
}

func TestServer_ShutdownRemovesSocket(t *testing.T) {
	path := socketPath(t)
	s := startServer(t, path)

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Errorf("socket still present after Shutdown: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestServer_ReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)
	stale, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	// Leave the file behind as a crashed process would.
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	stale.Close()

	startServer(t, path)
	if code, _ := get(t, unixClient(path), "/healthz"); code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", code)
	}
}

func TestServer_RefusesRegularFile(t *testing.T) {
	path := socketPath(t)
	if err := os.WriteFile(path, []byte("data"), 0600); err != nil {
		t.Fatal(err)
	}
	s := New(path, handler.New(handler.Config{}), nil)
	if err := s.Start(); err == nil {
		s.Shutdown(context.Background())
		t.Fatal("Start() error = nil, want error for regular file")
	}
}
