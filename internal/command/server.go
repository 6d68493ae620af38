package command

import (
	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/internal/storage/aof"
	"github.com/yndnr/meshkv/internal/storage/memory"
	"github.com/yndnr/meshkv/pkg/resp"
)

// rewriteChunk bounds the number of list items per RPUSH record written
// by BGREWRITEAOF.
const rewriteChunk = 512

func registerServer(r *Registry) {
	r.Register(&Command{Name: "DBSIZE", Arity: 1, Flags: FlagKeyspace, Handler: HandlerFunc(dbsizeCommand)})
	r.Register(&Command{Name: "FLUSHDB", Arity: -1, Flags: FlagWrite | FlagKeyspace, Handler: HandlerFunc(flushdbCommand)})
	r.Register(&Command{Name: "FLUSHALL", Arity: -1, Flags: FlagWrite | FlagKeyspace, Handler: HandlerFunc(flushallCommand)})
	r.Register(&Command{Name: "BGREWRITEAOF", Arity: 1, Flags: FlagKeyspace, Handler: HandlerFunc(rewriteCommand)})
}

// DBSIZE counts live keys; expired ones are purged first.
func dbsizeCommand(ctx *Context) resp.Reply {
	n, err := ctx.Tx.Size(ctx.DB)
	if err != nil {
		return ErrorReply(err)
	}
	return resp.Int(int64(n))
}

// flushMode accepts the ASYNC/SYNC modifier for compatibility. Both run
// synchronously.
func flushMode(args [][]byte) error {
	switch len(args) {
	case 0:
		return nil
	case 1:
		switch string(args[0]) {
		case "ASYNC", "async", "SYNC", "sync":
			return nil
		}
	}
	return domain.ErrSyntax
}

func flushdbCommand(ctx *Context) resp.Reply {
	if err := flushMode(ctx.Args); err != nil {
		return ErrorReply(err)
	}
	if err := ctx.Tx.Flush(ctx.DB); err != nil {
		return ErrorReply(err)
	}
	ctx.Propagate("FLUSHDB")
	return resp.OK
}

func flushallCommand(ctx *Context) resp.Reply {
	if err := flushMode(ctx.Args); err != nil {
		return ErrorReply(err)
	}
	ctx.Tx.FlushAll()
	ctx.Propagate("FLUSHALL")
	return resp.OK
}

// BGREWRITEAOF compacts the log to the minimal record set for the live
// keyspace. It runs under the keyspace lock, so no write can slip between
// the snapshot and the swap.
func rewriteCommand(ctx *Context) resp.Reply {
	if ctx.Replaying {
		return resp.OK
	}
	if ctx.Log == nil || ctx.Log == aof.Discard {
		return ErrorReply(domain.ErrIOFailure.WithDetails("persistence disabled"))
	}
	if err := ctx.Log.Rewrite(SnapshotRecords(ctx.Tx)); err != nil {
		return ErrorReply(domain.ErrIOFailure.WithCause(err))
	}
	return resp.Status("Background append only file rewriting started")
}

// SnapshotRecords renders the live keyspace as records that rebuild it.
func SnapshotRecords(tx *memory.Tx) []*aof.Record {
	var out []*aof.Record
	tx.Range(func(db int, key string, e *domain.Entry) bool {
		out = append(out, entryRecords(db, []byte(key), e)...)
		return true
	})
	return out
}

// entryRecords renders one entry as the records that recreate it, value
// first and deadline last.
func entryRecords(db int, key []byte, e *domain.Entry) []*aof.Record {
	var out []*aof.Record
	k := append([]byte{}, key...)
	switch e.Value.Kind() {
	case domain.KindString:
		b, _ := e.Value.Bytes()
		out = append(out, aof.NewRecord(db, "SET", k, append([]byte{}, b...)))
	case domain.KindList:
		items, _ := e.Value.List()
		for start := 0; start < len(items); start += rewriteChunk {
			end := min(start+rewriteChunk, len(items))
			args := make([][]byte, 0, end-start+1)
			args = append(args, k)
			for _, it := range items[start:end] {
				args = append(args, append([]byte{}, it...))
			}
			out = append(out, aof.NewRecord(db, "RPUSH", args...))
		}
	}
	if e.HasTTL() {
		out = append(out, aof.NewRecord(db, "PEXPIREAT", k, formatInt(e.ExpiresAt)))
	}
	return out
}
