package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/meshkv/internal/server/httpserver/handler"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	admin := handler.New(handler.Config{})
	s := New(ln.Addr().String(), NewRouter(RouterConfig{Admin: admin}))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve returned %v, want nil after Shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestRouter(t *testing.T) {
	admin := handler.New(handler.Config{})
	admin.SetReady(true)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "meshkv_up 1\n")
	})
	router := NewRouter(RouterConfig{
		Admin:     admin,
		Metrics:   metrics,
		AllowList: []string{"127.0.0.1"},
	})

	tests := []struct {
		name   string
		method string
		path   string
		remote string
		want   int
	}{
		{"health open", http.MethodGet, "/healthz", "203.0.113.1:1", http.StatusOK},
		{"ready open", http.MethodGet, "/readyz", "203.0.113.1:1", http.StatusOK},
		{"metrics allowed", http.MethodGet, "/metrics", "127.0.0.1:1", http.StatusOK},
		{"metrics denied", http.MethodGet, "/metrics", "203.0.113.1:1", http.StatusForbidden},
		{"admin allowed", http.MethodGet, "/admin/v1/status/summary", "127.0.0.1:1", http.StatusOK},
		{"admin denied", http.MethodGet, "/admin/v1/config", "203.0.113.1:1", http.StatusForbidden},
		{"unknown path", http.MethodGet, "/sessions", "127.0.0.1:1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.RemoteAddr = tt.remote
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if rec.Code == http.StatusOK && rec.Header().Get("X-Request-ID") == "" {
				t.Fatal("X-Request-ID missing")
			}
		})
	}
}

func TestRouter_NoMetrics(t *testing.T) {
	router := NewRouter(RouterConfig{Admin: handler.New(handler.Config{})})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "meshkv_") {
		t.Fatal("metrics served without a handler")
	}
}
