package command

import (
	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/internal/core/service"
	"github.com/yndnr/meshkv/internal/storage/aof"
	"github.com/yndnr/meshkv/internal/storage/memory"
)

// Context carries everything a handler may touch for one invocation.
type Context struct {
	// Name is the resolved command name.
	Name string

	// Args are the arguments after the command name.
	Args [][]byte

	// DB is the database the command targets: the session's selection
	// during live traffic, the record's database during replay.
	DB int

	// Session is a snapshot of the caller's session; nil during replay.
	Session *domain.Session

	// Sessions is the registry for SELECT and AUTH; nil during replay.
	Sessions *service.SessionRegistry

	// Tx is the keyspace view; set only for FlagKeyspace commands.
	Tx *memory.Tx

	// Log is the persistence log, for commands that manage it.
	Log aof.Log

	// Replaying is true while the persistence log is being folded.
	Replaying bool

	records []*aof.Record
}

// Arg returns argument i as a string.
func (c *Context) Arg(i int) string {
	return string(c.Args[i])
}

// Propagate queues a canonical record for the persistence log. It is a
// no-op during replay.
func (c *Context) Propagate(name string, args ...[]byte) {
	if c.Replaying {
		return
	}
	c.records = append(c.records, aof.NewRecord(c.DB, name, args...))
}

// PropagateDB queues a record that targets an explicit database.
func (c *Context) PropagateDB(db int, name string, args ...[]byte) {
	if c.Replaying {
		return
	}
	c.records = append(c.records, aof.NewRecord(db, name, args...))
}

// PropagateSelf queues the invocation itself as the record.
func (c *Context) PropagateSelf() {
	c.Propagate(c.Name, c.Args...)
}

// PropagateState queues the whole current state of key in db: a DEL
// followed by the records that recreate the entry, if it still exists.
// Replay then yields the same entry no matter which earlier deadlines have
// passed since.
func (c *Context) PropagateState(db int, key []byte) {
	if c.Replaying {
		return
	}
	c.records = append(c.records, aof.NewRecord(db, "DEL", key))
	e, err := c.Tx.Entry(db, string(key))
	if err != nil || e == nil {
		return
	}
	c.records = append(c.records, entryRecords(db, key, e)...)
}

// Records returns the queued records.
func (c *Context) Records() []*aof.Record {
	return c.records
}
