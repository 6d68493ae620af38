package shutdown

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHandler_ReverseOrder(t *testing.T) {
	h := NewHandler(time.Second)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"aof", "redis", "admin"} {
		name := name
		h.OnShutdown(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	h.Trigger()
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if got := strings.Join(order, ","); got != "admin,redis,aof" {
		t.Fatalf("order = %s, want admin,redis,aof", got)
	}

	select {
	case <-h.Done():
	default:
		t.Fatal("Done() not closed after Wait")
	}
}

func TestHandler_JoinsErrors(t *testing.T) {
	h := NewHandler(time.Second)
	errAOF := errors.New("fsync failed")
	ran := false
	h.OnShutdown("aof", func(context.Context) error { return errAOF })
	h.OnShutdown("redis", func(context.Context) error { ran = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.Wait(ctx)
	if !errors.Is(err, errAOF) {
		t.Fatalf("Wait() = %v, want wrapped %v", err, errAOF)
	}
	if !strings.Contains(err.Error(), "aof: fsync failed") {
		t.Fatalf("error = %q, want hook name prefix", err)
	}
	if !ran {
		t.Fatal("later hooks must still run after a failure")
	}
}

func TestHandler_HookTimeout(t *testing.T) {
	h := NewHandler(20 * time.Millisecond)
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	h.Trigger()
	h.Trigger()
	if err := h.Wait(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() = %v, want deadline exceeded", err)
	}
}
