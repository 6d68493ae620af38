package benchmark

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/meshkv/internal/storage/aof"
	"github.com/yndnr/meshkv/internal/storage/memory"
)

// BenchmarkKeyspaceSet benchmarks SET through the dispatcher at various scales.
func BenchmarkKeyspaceSet(b *testing.B) {
	runWithKeyCounts(b, SmallKeyCounts, func(b *testing.B, count int) {
		srv := newBenchServer(aof.Discard)
		prefillStore(b, srv.store, count, 0)
		value := []byte("bench-value")

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			srv.do(b, "SET", []byte("k:"+strconv.Itoa(i)), value)
		}

		b.StopTimer()
		reportMemory(b, "mem")
	})
}

// BenchmarkKeyspaceGet benchmarks GET hits at various scales.
func BenchmarkKeyspaceGet(b *testing.B) {
	runWithKeyCounts(b, SmallKeyCounts, func(b *testing.B, count int) {
		srv := newBenchServer(aof.Discard)
		keys := prefillStore(b, srv.store, count, 0)

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			srv.do(b, "GET", []byte(keys[i%len(keys)]))
		}
	})
}

// BenchmarkKeyspaceIncr benchmarks INCR on a single hot counter.
func BenchmarkKeyspaceIncr(b *testing.B) {
	srv := newBenchServer(aof.Discard)
	key := []byte("counter")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		srv.do(b, "INCR", key)
	}
}

// BenchmarkKeyspaceListPush benchmarks RPUSH onto a growing list.
func BenchmarkKeyspaceListPush(b *testing.B) {
	srv := newBenchServer(aof.Discard)
	key := []byte("queue")
	item := []byte("item")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		srv.do(b, "RPUSH", key, item)
	}
}

// BenchmarkKeyspaceListRange benchmarks LRANGE over lists of various lengths.
func BenchmarkKeyspaceListRange(b *testing.B) {
	for _, length := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("len_%d", length), func(b *testing.B) {
			srv := newBenchServer(aof.Discard)
			key := []byte("list")
			for i := 0; i < length; i++ {
				srv.do(b, "RPUSH", key, []byte(strconv.Itoa(i)))
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				srv.do(b, "LRANGE", key, []byte("0"), []byte("-1"))
			}
		})
	}
}

// BenchmarkKeyspaceConcurrent benchmarks mixed GET/SET under contention on
// the keyspace lock.
func BenchmarkKeyspaceConcurrent(b *testing.B) {
	srv := newBenchServer(aof.Discard)
	keys := prefillStore(b, srv.store, 10000, 0)
	var counter atomic.Int64

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			key := []byte(keys[int(i)%len(keys)])
			if i%4 == 0 {
				srv.do(b, "SET", key, []byte("updated"))
			} else {
				srv.do(b, "GET", key)
			}
		}
	})
}

// BenchmarkKeyspaceExpireSweep benchmarks the active expiration sweep
// over keyspaces where every key has already expired.
func BenchmarkKeyspaceExpireSweep(b *testing.B) {
	runWithKeyCounts(b, SmallKeyCounts, func(b *testing.B, count int) {
		now := time.Now()
		clock := func() time.Time { return now }

		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			now = time.Now()
			store := memory.New(1, memory.WithClock(clock))
			prefillStore(b, store, count, time.Millisecond)
			now = now.Add(time.Second)
			b.StartTimer()

			if removed := store.DeleteExpired(); removed != count {
				b.Fatalf("DeleteExpired() = %d, want %d", removed, count)
			}
		}
	})
}

// BenchmarkKeyspaceRunExpirer measures how quickly the background sweeper
// drains an expired keyspace.
func BenchmarkKeyspaceRunExpirer(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		store := memory.New(1)
		prefillStore(b, store, 10000, time.Millisecond)
		time.Sleep(2 * time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		b.StartTimer()

		go store.RunExpirer(ctx, time.Millisecond)
		for store.KeyCounts()[0] > 0 {
			time.Sleep(100 * time.Microsecond)
		}

		b.StopTimer()
		cancel()
		b.StartTimer()
	}
}
