package benchmark

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/meshkv/internal/command"
	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/internal/core/service"
	"github.com/yndnr/meshkv/internal/storage/aof"
	"github.com/yndnr/meshkv/internal/storage/memory"
	"github.com/yndnr/meshkv/pkg/resp"
)

// KeyCounts defines the keyspace sizes for full benchmarks.
var KeyCounts = []int{10000, 100000, 500000, 1000000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{1000, 10000, 100000}

// newKey generates a unique, lexically sortable key.
func newKey() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, _ := ulid.New(ulid.Timestamp(time.Now()), entropy)
	return "bench:" + strings.ToLower(id.String())
}

// prefillStore writes count string keys into db 0 and returns them.
func prefillStore(b *testing.B, store *memory.Store, count int, ttl time.Duration) []string {
	b.Helper()
	keys := make([]string, count)
	for i := range keys {
		keys[i] = newKey()
	}
	err := store.Exec(func(tx *memory.Tx) error {
		for i, k := range keys {
			v := domain.StringValue([]byte(fmt.Sprintf("value-%d", i)))
			if err := tx.Set(0, k, v, ttl); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Fatalf("prefill failed: %v", err)
	}
	return keys
}

// benchServer is a dispatcher with one authenticated session.
type benchServer struct {
	store      *memory.Store
	dispatcher *command.Dispatcher
	sessionID  string
}

func newBenchServer(log aof.Log) *benchServer {
	store := memory.New(16)
	sessions := service.NewSessionRegistry(store.Databases(), service.NewAuthenticator(""))
	sess := sessions.Create("127.0.0.1:6000")
	return &benchServer{
		store:      store,
		dispatcher: command.NewDispatcher(command.DefaultRegistry(), store, sessions, log),
		sessionID:  sess.ID,
	}
}

// do dispatches one command and fails the benchmark on an error reply.
func (s *benchServer) do(b *testing.B, name string, args ...[]byte) {
	if reply := s.dispatcher.Dispatch(s.sessionID, name, args); resp.IsError(reply) {
		b.Fatalf("%s failed: %v", name, reply)
	}
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs a benchmark function with various keyspace sizes.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
