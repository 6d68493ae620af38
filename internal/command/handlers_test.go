package command

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/meshkv/internal/core/service"
	"github.com/yndnr/meshkv/internal/storage/aof"
	"github.com/yndnr/meshkv/internal/storage/memory"
)

func TestSet_Options(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	run(t, h, sid, []step{
		{[]string{"SET", "a", "1", "NX"}, "+OK\r\n"},
		{[]string{"SET", "a", "2", "NX"}, "$-1\r\n"},
		{[]string{"SET", "b", "1", "XX"}, "$-1\r\n"},
		{[]string{"SET", "a", "3", "XX"}, "+OK\r\n"},
		{[]string{"GET", "a"}, "$1\r\n3\r\n"},
		{[]string{"SET", "a", "1", "NX", "XX"}, "-ERR syntax error\r\n"},
		{[]string{"SET", "a", "1", "EX", "1", "PX", "5"}, "-ERR syntax error\r\n"},
		{[]string{"SET", "a", "1", "EX"}, "-ERR syntax error\r\n"},
		{[]string{"SET", "a", "1", "BOGUS"}, "-ERR syntax error\r\n"},
		{[]string{"SET", "a", "1", "EX", "0"}, "-ERR invalid expire time\r\n"},
		{[]string{"SET", "a", "1", "PX", "-5"}, "-ERR invalid expire time\r\n"},
		{[]string{"SET", "a", "1", "PX", "abc"}, "-ERR value is not an integer or out of range\r\n"},
	})
}

func TestSet_PXBoundary(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()

	run(t, h, sid, []step{{[]string{"SET", "k", "v", "px", "100"}, "+OK\r\n"}})
	h.clock.Advance(99 * time.Millisecond)
	run(t, h, sid, []step{
		{[]string{"GET", "k"}, "$1\r\nv\r\n"},
		{[]string{"PTTL", "k"}, ":1\r\n"},
	})
	h.clock.Advance(time.Millisecond)
	run(t, h, sid, []step{
		{[]string{"GET", "k"}, "$-1\r\n"},
		{[]string{"TTL", "k"}, ":-2\r\n"},
	})
}

func TestSet_RecordsAbsoluteDeadline(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	now := h.clock.Now().UnixMilli()

	h.do(sid, "SET", "a", "1", "EX", "10")
	h.do(sid, "SET", "b", "1", "PX", "250")
	h.do(sid, "SET", "c", "1")
	h.do(sid, "SET", "a", "2", "KEEPTTL")

	want := []string{
		"db=0 SET a 1 PXAT " + strconv.FormatInt(now+10_000, 10),
		"db=0 SET b 1 PXAT " + strconv.FormatInt(now+250, 10),
		"db=0 SET c 1",
		"db=0 SET a 2 PXAT " + strconv.FormatInt(now+10_000, 10),
	}
	if got := h.log.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("records = %v, want %v", got, want)
	}
}

func TestSet_ClearsTTL(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	run(t, h, sid, []step{
		{[]string{"SET", "k", "v", "EX", "5"}, "+OK\r\n"},
		{[]string{"TTL", "k"}, ":5\r\n"},
		{[]string{"SET", "k", "w"}, "+OK\r\n"},
		{[]string{"TTL", "k"}, ":-1\r\n"},
	})
}

func TestIncrFamily(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	run(t, h, sid, []step{
		{[]string{"INCR", "n"}, ":1\r\n"},
		{[]string{"INCRBY", "n", "10"}, ":11\r\n"},
		{[]string{"DECR", "n"}, ":10\r\n"},
		{[]string{"DECRBY", "n", "20"}, ":-10\r\n"},
		{[]string{"INCRBY", "n", "x"}, "-ERR value is not an integer or out of range\r\n"},
		{[]string{"DECRBY", "n", "-9223372036854775808"}, "-ERR value is not an integer or out of range\r\n"},
		{[]string{"SET", "s", "abc"}, "+OK\r\n"},
		{[]string{"INCR", "s"}, "-ERR value is not an integer or out of range\r\n"},
		{[]string{"SET", "max", "9223372036854775807"}, "+OK\r\n"},
		{[]string{"INCR", "max"}, "-ERR value is not an integer or out of range\r\n"},
		{[]string{"RPUSH", "l", "a"}, ":1\r\n"},
		{[]string{"INCR", "l"}, "-ERR operation against a key holding the wrong kind of value\r\n"},
	})
}

func TestAppend(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	now := h.clock.Now().UnixMilli()
	run(t, h, sid, []step{
		{[]string{"APPEND", "s", "ab"}, ":2\r\n"},
		{[]string{"PEXPIRE", "s", "1000"}, ":1\r\n"},
		{[]string{"APPEND", "s", "cd"}, ":4\r\n"},
		{[]string{"GET", "s"}, "$4\r\nabcd\r\n"},
		{[]string{"PTTL", "s"}, ":1000\r\n"},
	})

	at := strconv.FormatInt(now+1000, 10)
	want := []string{
		"db=0 APPEND s ab",
		"db=0 PEXPIREAT s " + at,
		"db=0 APPEND s cd",
		"db=0 PEXPIREAT s " + at,
	}
	if got := h.log.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("records = %v, want %v", got, want)
	}
}

func TestKeys_DelExists(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	run(t, h, sid, []step{
		{[]string{"SET", "a", "1"}, "+OK\r\n"},
		{[]string{"SET", "b", "1"}, "+OK\r\n"},
		{[]string{"EXISTS", "a", "a", "z"}, ":2\r\n"},
		{[]string{"DEL", "a", "z"}, ":1\r\n"},
		{[]string{"DEL", "z"}, ":0\r\n"},
		{[]string{"EXISTS", "a"}, ":0\r\n"},
	})
	want := []string{"db=0 SET a 1", "db=0 SET b 1", "db=0 DEL a"}
	if got := h.log.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("records = %v, want %v", got, want)
	}
}

func TestKeys_Expire(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	now := h.clock.Now().UnixMilli()

	run(t, h, sid, []step{
		{[]string{"EXPIRE", "missing", "10"}, ":0\r\n"},
		{[]string{"SET", "a", "1"}, "+OK\r\n"},
		{[]string{"TTL", "a"}, ":-1\r\n"},
		{[]string{"EXPIRE", "a", "10"}, ":1\r\n"},
		{[]string{"TTL", "a"}, ":10\r\n"},
		{[]string{"PERSIST", "a"}, ":1\r\n"},
		{[]string{"PERSIST", "a"}, ":0\r\n"},
		{[]string{"PEXPIREAT", "a", strconv.FormatInt(now+500, 10)}, ":1\r\n"},
		{[]string{"PTTL", "a"}, ":500\r\n"},
		{[]string{"EXPIRE", "a", "-1"}, ":1\r\n"},
		{[]string{"EXISTS", "a"}, ":0\r\n"},
		{[]string{"EXPIRE", "a", "nope"}, "-ERR value is not an integer or out of range\r\n"},
	})

	want := []string{
		"db=0 SET a 1",
		"db=0 DEL a", "db=0 SET a 1", "db=0 PEXPIREAT a " + strconv.FormatInt(now+10_000, 10),
		"db=0 DEL a", "db=0 SET a 1",
		"db=0 DEL a", "db=0 SET a 1", "db=0 PEXPIREAT a " + strconv.FormatInt(now+500, 10),
		"db=0 DEL a",
	}
	if got := h.log.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("records = %v, want %v", got, want)
	}
}

func TestKeys_TypeKeysRename(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	run(t, h, sid, []step{
		{[]string{"SET", "user:1", "a"}, "+OK\r\n"},
		{[]string{"SET", "user:2", "b"}, "+OK\r\n"},
		{[]string{"RPUSH", "queue", "x"}, ":1\r\n"},
		{[]string{"TYPE", "user:1"}, "+string\r\n"},
		{[]string{"TYPE", "queue"}, "+list\r\n"},
		{[]string{"TYPE", "nope"}, "+none\r\n"},
		{[]string{"KEYS", "user:*"}, "*2\r\n$6\r\nuser:1\r\n$6\r\nuser:2\r\n"},
		{[]string{"KEYS", "nothing*"}, "*0\r\n"},
		{[]string{"RENAME", "user:1", "user:9"}, "+OK\r\n"},
		{[]string{"GET", "user:9"}, "$1\r\na\r\n"},
		{[]string{"RENAME", "nope", "x"}, "-ERR no such key\r\n"},
	})
}

func TestKeys_RenameMoveRecordState(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	at := strconv.FormatInt(h.clock.Now().UnixMilli()+100, 10)

	h.do(sid, "SET", "a", "1", "PX", "100")
	h.do(sid, "RENAME", "a", "b")
	h.do(sid, "RPUSH", "l", "x")
	h.do(sid, "MOVE", "l", "2")

	want := []string{
		"db=0 SET a 1 PXAT " + at,
		"db=0 DEL a", "db=0 DEL b", "db=0 SET b 1", "db=0 PEXPIREAT b " + at,
		"db=0 RPUSH l x",
		"db=0 DEL l", "db=2 DEL l", "db=2 RPUSH l x",
	}
	if got := h.log.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("records = %v, want %v", got, want)
	}
}

func TestKeys_Move(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	run(t, h, sid, []step{
		{[]string{"SET", "k", "v"}, "+OK\r\n"},
		{[]string{"MOVE", "k", "0"}, "-ERR target key already exists\r\n"},
		{[]string{"MOVE", "k", "9"}, "-ERR DB index is out of range\r\n"},
		{[]string{"MOVE", "k", "2"}, ":1\r\n"},
		{[]string{"MOVE", "k", "2"}, "-ERR no such key\r\n"},
		{[]string{"SELECT", "2"}, "+OK\r\n"},
		{[]string{"GET", "k"}, "$1\r\nv\r\n"},
		{[]string{"SET", "dup", "2"}, "+OK\r\n"},
		{[]string{"SELECT", "0"}, "+OK\r\n"},
		{[]string{"SET", "dup", "0"}, "+OK\r\n"},
		{[]string{"MOVE", "dup", "2"}, "-ERR target key already exists\r\n"},
		{[]string{"GET", "dup"}, "$1\r\n0\r\n"},
	})
}

func TestLists(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	run(t, h, sid, []step{
		{[]string{"LPUSH", "l", "a", "b"}, ":2\r\n"},
		{[]string{"RPUSH", "l", "c"}, ":3\r\n"},
		{[]string{"LLEN", "l"}, ":3\r\n"},
		{[]string{"LRANGE", "l", "0", "-1"}, "*3\r\n$1\r\nb\r\n$1\r\na\r\n$1\r\nc\r\n"},
		{[]string{"LRANGE", "l", "-2", "-1"}, "*2\r\n$1\r\na\r\n$1\r\nc\r\n"},
		{[]string{"LRANGE", "l", "5", "10"}, "*0\r\n"},
		{[]string{"LRANGE", "missing", "0", "-1"}, "*0\r\n"},
		{[]string{"LRANGE", "l", "a", "1"}, "-ERR value is not an integer or out of range\r\n"},
		{[]string{"LLEN", "missing"}, ":0\r\n"},
		{[]string{"SET", "s", "x"}, "+OK\r\n"},
		{[]string{"LPUSH", "s", "y"}, "-ERR operation against a key holding the wrong kind of value\r\n"},
		{[]string{"GET", "l"}, "-ERR operation against a key holding the wrong kind of value\r\n"},
	})
}

func TestServer_FlushAndSize(t *testing.T) {
	h := newHarness(t, "")
	a, b := h.session(), h.session()
	run(t, h, b, []step{{[]string{"SELECT", "1"}, "+OK\r\n"}})

	run(t, h, a, []step{
		{[]string{"SET", "x", "1"}, "+OK\r\n"},
		{[]string{"SET", "y", "1", "PX", "10"}, "+OK\r\n"},
	})
	run(t, h, b, []step{{[]string{"SET", "x", "1"}, "+OK\r\n"}})

	h.clock.Advance(10 * time.Millisecond)
	run(t, h, a, []step{
		{[]string{"DBSIZE"}, ":1\r\n"},
		{[]string{"FLUSHDB"}, "+OK\r\n"},
		{[]string{"DBSIZE"}, ":0\r\n"},
	})
	run(t, h, b, []step{
		{[]string{"DBSIZE"}, ":1\r\n"},
		{[]string{"FLUSHALL", "ASYNC"}, "+OK\r\n"},
		{[]string{"DBSIZE"}, ":0\r\n"},
		{[]string{"FLUSHALL", "NOW"}, "-ERR syntax error\r\n"},
	})
}

func TestServer_Rewrite(t *testing.T) {
	h := newHarness(t, "")
	sid := h.session()
	now := h.clock.Now().UnixMilli()

	h.do(sid, "SET", "a", "1")
	h.do(sid, "SET", "a", "2")
	h.do(sid, "INCR", "a")
	h.do(sid, "DEL", "gone")
	h.do(sid, "RPUSH", "l", "x", "y")
	h.do(sid, "PEXPIRE", "l", "100")

	if got := h.do(sid, "BGREWRITEAOF"); !strings.HasPrefix(got, "+") {
		t.Fatalf("BGREWRITEAOF = %q", got)
	}
	if h.log.rewritten != 1 {
		t.Fatalf("rewritten = %d, want 1", h.log.rewritten)
	}

	got := map[string]bool{}
	for _, l := range h.log.lines() {
		got[l] = true
	}
	want := []string{
		"db=0 SET a 3",
		"db=0 RPUSH l x y",
		"db=0 PEXPIREAT l " + strconv.FormatInt(now+100, 10),
	}
	if len(got) != len(want) {
		t.Fatalf("records = %v, want %v", h.log.lines(), want)
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("missing record %q in %v", w, h.log.lines())
		}
	}
}

func TestServer_RewriteWithoutPersistence(t *testing.T) {
	store := memory.New(1)
	sessions := service.NewSessionRegistry(1, service.NewAuthenticator(""))
	d := NewDispatcher(DefaultRegistry(), store, sessions, aof.Discard)
	sid := sessions.Create("127.0.0.1:5000").ID

	got := wire(t, d.Dispatch(sid, "BGREWRITEAOF", nil))
	if want := "-ERR persistence failure\r\n"; got != want {
		t.Fatalf("BGREWRITEAOF = %q, want %q", got, want)
	}
}
