package command

import (
	"math"

	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/pkg/resp"
)

func registerKeys(r *Registry) {
	rw := FlagWrite | FlagKeyspace
	r.Register(&Command{Name: "DEL", Arity: -2, Flags: rw, Handler: HandlerFunc(delCommand)})
	r.Register(&Command{Name: "EXISTS", Arity: -2, Flags: FlagKeyspace, Handler: HandlerFunc(existsCommand)})
	r.Register(&Command{Name: "EXPIRE", Arity: 3, Flags: rw, Handler: expireHandler(1000, false)})
	r.Register(&Command{Name: "PEXPIRE", Arity: 3, Flags: rw, Handler: expireHandler(1, false)})
	r.Register(&Command{Name: "EXPIREAT", Arity: 3, Flags: rw, Handler: expireHandler(1000, true)})
	r.Register(&Command{Name: "PEXPIREAT", Arity: 3, Flags: rw, Handler: expireHandler(1, true)})
	r.Register(&Command{Name: "TTL", Arity: 2, Flags: FlagKeyspace, Handler: ttlHandler(true)})
	r.Register(&Command{Name: "PTTL", Arity: 2, Flags: FlagKeyspace, Handler: ttlHandler(false)})
	r.Register(&Command{Name: "PERSIST", Arity: 2, Flags: rw, Handler: HandlerFunc(persistCommand)})
	r.Register(&Command{Name: "TYPE", Arity: 2, Flags: FlagKeyspace, Handler: HandlerFunc(typeCommand)})
	r.Register(&Command{Name: "RENAME", Arity: 3, Flags: rw, Handler: HandlerFunc(renameCommand)})
	r.Register(&Command{Name: "MOVE", Arity: 3, Flags: rw, Handler: HandlerFunc(moveCommand)})
	r.Register(&Command{Name: "KEYS", Arity: 2, Flags: FlagKeyspace, Handler: HandlerFunc(keysCommand)})
}

func delCommand(ctx *Context) resp.Reply {
	var removed [][]byte
	for _, k := range ctx.Args {
		ok, err := ctx.Tx.Delete(ctx.DB, string(k))
		if err != nil {
			return ErrorReply(err)
		}
		if ok {
			removed = append(removed, k)
		}
	}
	if len(removed) > 0 {
		ctx.Propagate("DEL", removed...)
	}
	return resp.Int(int64(len(removed)))
}

// EXISTS counts repeated keys once per mention.
func existsCommand(ctx *Context) resp.Reply {
	var n int64
	for _, k := range ctx.Args {
		ok, err := ctx.Tx.Exists(ctx.DB, string(k))
		if err != nil {
			return ErrorReply(err)
		}
		if ok {
			n++
		}
	}
	return resp.Int(n)
}

// expireHandler builds the four expire commands. unit converts the
// argument to milliseconds; absolute selects a Unix timestamp over a
// relative duration. A deadline in the past is recorded as DEL; otherwise
// the key's full state is recorded, since a PEXPIREAT alone cannot revive
// a key whose earlier deadline passed before replay.
func expireHandler(unit int64, absolute bool) Handler {
	return HandlerFunc(func(ctx *Context) resp.Reply {
		n, err := parseInt(ctx.Args[1])
		if err != nil {
			return ErrorReply(err)
		}
		if n > math.MaxInt64/unit || n < math.MinInt64/unit {
			return ErrorReply(domain.ErrInvalidExpire)
		}
		at := n * unit
		if !absolute {
			now := ctx.Tx.Now()
			if at > 0 && at > math.MaxInt64-now {
				return ErrorReply(domain.ErrInvalidExpire)
			}
			at += now
		}

		ok, err := ctx.Tx.ExpireAt(ctx.DB, ctx.Arg(0), at)
		if err != nil {
			return ErrorReply(err)
		}
		if !ok {
			return resp.Int(0)
		}
		if at <= ctx.Tx.Now() {
			ctx.Propagate("DEL", ctx.Args[0])
		} else {
			ctx.PropagateState(ctx.DB, ctx.Args[0])
		}
		return resp.Int(1)
	})
}

// ttlHandler builds TTL (seconds, rounded) and PTTL (milliseconds).
func ttlHandler(seconds bool) Handler {
	return HandlerFunc(func(ctx *Context) resp.Reply {
		ttl, err := ctx.Tx.TTL(ctx.DB, ctx.Arg(0))
		if err != nil {
			return ErrorReply(err)
		}
		if ttl >= 0 && seconds {
			ttl = (ttl + 500) / 1000
		}
		return resp.Int(ttl)
	})
}

func persistCommand(ctx *Context) resp.Reply {
	ok, err := ctx.Tx.Persist(ctx.DB, ctx.Arg(0))
	if err != nil {
		return ErrorReply(err)
	}
	if !ok {
		return resp.Int(0)
	}
	ctx.PropagateState(ctx.DB, ctx.Args[0])
	return resp.Int(1)
}

func typeCommand(ctx *Context) resp.Reply {
	kind, err := ctx.Tx.Type(ctx.DB, ctx.Arg(0))
	if err != nil {
		return ErrorReply(err)
	}
	return resp.Status(kind.String())
}

// RENAME is recorded as the removal of both names plus the state of the
// destination, so replay does not depend on the source still being live.
func renameCommand(ctx *Context) resp.Reply {
	if err := ctx.Tx.Rename(ctx.DB, ctx.Arg(0), ctx.Arg(1)); err != nil {
		return ErrorReply(err)
	}
	if ctx.Arg(0) != ctx.Arg(1) {
		ctx.Propagate("DEL", ctx.Args[0])
	}
	ctx.PropagateState(ctx.DB, ctx.Args[1])
	return resp.OK
}

// MOVE key db
//
// Fails when the key is missing in the current database or already present
// in the target one, including when both databases are the same.
func moveCommand(ctx *Context) resp.Reply {
	target, err := parseInt(ctx.Args[1])
	if err != nil {
		return ErrorReply(err)
	}
	if target < 0 || target >= int64(ctx.Tx.Databases()) {
		return ErrorReply(domain.ErrOutOfRange)
	}
	if err := ctx.Tx.Move(ctx.DB, int(target), ctx.Arg(0)); err != nil {
		return ErrorReply(err)
	}
	ctx.Propagate("DEL", ctx.Args[0])
	ctx.PropagateState(int(target), ctx.Args[0])
	return resp.Int(1)
}

func keysCommand(ctx *Context) resp.Reply {
	keys, err := ctx.Tx.Keys(ctx.DB, ctx.Arg(0))
	if err != nil {
		return ErrorReply(err)
	}
	return resp.StringArray(keys)
}
