package command

import (
	"math"
	"strings"

	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/pkg/resp"
)

func registerStrings(r *Registry) {
	rw := FlagWrite | FlagKeyspace
	r.Register(&Command{Name: "SET", Arity: -3, Flags: rw, Handler: HandlerFunc(setCommand)})
	r.Register(&Command{Name: "GET", Arity: 2, Flags: FlagKeyspace, Handler: HandlerFunc(getCommand)})
	r.Register(&Command{Name: "APPEND", Arity: 3, Flags: rw, Handler: HandlerFunc(appendCommand)})
	r.Register(&Command{Name: "INCR", Arity: 2, Flags: rw, Handler: incrHandler(1, false)})
	r.Register(&Command{Name: "DECR", Arity: 2, Flags: rw, Handler: incrHandler(-1, false)})
	r.Register(&Command{Name: "INCRBY", Arity: 3, Flags: rw, Handler: incrHandler(1, true)})
	r.Register(&Command{Name: "DECRBY", Arity: 3, Flags: rw, Handler: incrHandler(-1, true)})
}

// setOptions is the parsed tail of SET.
type setOptions struct {
	nx, xx    bool
	keepTTL   bool
	expiresAt int64 // absolute ms; 0 means none
}

// parseSetOptions parses EX/PX/EXAT/PXAT/KEEPTTL and NX/XX. At most one
// expiry option is allowed and NX excludes XX.
func parseSetOptions(args [][]byte, nowMs int64) (setOptions, error) {
	var opts setOptions
	expirySeen := false

	for i := 0; i < len(args); i++ {
		opt := strings.ToUpper(string(args[i]))
		switch opt {
		case "NX":
			if opts.xx {
				return opts, domain.ErrSyntax
			}
			opts.nx = true
		case "XX":
			if opts.nx {
				return opts, domain.ErrSyntax
			}
			opts.xx = true
		case "KEEPTTL":
			if expirySeen {
				return opts, domain.ErrSyntax
			}
			expirySeen = true
			opts.keepTTL = true
		case "EX", "PX", "EXAT", "PXAT":
			if expirySeen || i+1 >= len(args) {
				return opts, domain.ErrSyntax
			}
			expirySeen = true
			i++
			n, err := parseInt(args[i])
			if err != nil {
				return opts, err
			}
			at, err := expiryDeadline(opt, n, nowMs)
			if err != nil {
				return opts, err
			}
			opts.expiresAt = at
		default:
			return opts, domain.ErrSyntax
		}
	}
	return opts, nil
}

// expiryDeadline turns a SET expiry option into an absolute deadline.
func expiryDeadline(opt string, n, nowMs int64) (int64, error) {
	if n <= 0 {
		return 0, domain.ErrInvalidExpire
	}
	switch opt {
	case "EX":
		if n > (math.MaxInt64-nowMs)/1000 {
			return 0, domain.ErrInvalidExpire
		}
		return nowMs + n*1000, nil
	case "PX":
		if n > math.MaxInt64-nowMs {
			return 0, domain.ErrInvalidExpire
		}
		return nowMs + n, nil
	case "EXAT":
		if n > math.MaxInt64/1000 {
			return 0, domain.ErrInvalidExpire
		}
		return n * 1000, nil
	default:
		return n, nil
	}
}

// SET key value [NX|XX] [EX s|PX ms|EXAT s|PXAT ms|KEEPTTL]
//
// A plain SET clears any previous deadline. The record carries the
// absolute deadline so replay does not depend on when it runs.
func setCommand(ctx *Context) resp.Reply {
	key, val := ctx.Arg(0), ctx.Args[1]
	opts, err := parseSetOptions(ctx.Args[2:], ctx.Tx.Now())
	if err != nil {
		return ErrorReply(err)
	}

	if opts.nx || opts.xx {
		exists, err := ctx.Tx.Exists(ctx.DB, key)
		if err != nil {
			return ErrorReply(err)
		}
		if (opts.nx && exists) || (opts.xx && !exists) {
			return resp.Null
		}
	}

	v := domain.StringValue(append([]byte{}, val...))
	switch {
	case opts.keepTTL:
		err = ctx.Tx.SetKeepTTL(ctx.DB, key, v)
	default:
		err = ctx.Tx.SetDeadline(ctx.DB, key, v, opts.expiresAt)
	}
	if err != nil {
		return ErrorReply(err)
	}

	at := opts.expiresAt
	if opts.keepTTL {
		at = deadlineOf(ctx, key)
	}
	if at > 0 {
		ctx.Propagate("SET", ctx.Args[0], val, []byte("PXAT"), formatInt(at))
	} else {
		ctx.Propagate("SET", ctx.Args[0], val)
	}
	return resp.OK
}

func getCommand(ctx *Context) resp.Reply {
	b, ok, err := ctx.Tx.GetString(ctx.DB, ctx.Arg(0))
	if err != nil {
		return ErrorReply(err)
	}
	if !ok {
		return resp.Null
	}
	return resp.Bulk(b)
}

func appendCommand(ctx *Context) resp.Reply {
	n, err := ctx.Tx.Append(ctx.DB, ctx.Arg(0), ctx.Args[1])
	if err != nil {
		return ErrorReply(err)
	}
	ctx.PropagateSelf()
	propagateDeadline(ctx, ctx.Args[0])
	return resp.Int(int64(n))
}

// incrHandler builds INCR/DECR (fixed step) and INCRBY/DECRBY (explicit
// step). sign is applied to the step.
func incrHandler(sign int64, explicit bool) Handler {
	return HandlerFunc(func(ctx *Context) resp.Reply {
		delta := int64(1)
		if explicit {
			n, err := parseInt(ctx.Args[1])
			if err != nil {
				return ErrorReply(err)
			}
			delta = n
		}
		if sign < 0 {
			if delta == math.MinInt64 {
				return ErrorReply(domain.ErrMalformedArgument.WithDetails("decrement would overflow"))
			}
			delta = -delta
		}

		n, err := ctx.Tx.IncrBy(ctx.DB, ctx.Arg(0), delta)
		if err != nil {
			return ErrorReply(err)
		}
		ctx.Propagate("INCRBY", ctx.Args[0], formatInt(delta))
		propagateDeadline(ctx, ctx.Args[0])
		return resp.Int(n)
	})
}

// deadlineOf returns the absolute deadline of key, or 0 when it has none.
func deadlineOf(ctx *Context, key string) int64 {
	ttl, err := ctx.Tx.TTL(ctx.DB, key)
	if err != nil || ttl <= 0 {
		return 0
	}
	return ctx.Tx.Now() + ttl
}

// propagateDeadline follows a TTL-preserving mutation with the key's
// deadline. Replayed after that deadline, the mutation would otherwise
// recreate the key without one.
func propagateDeadline(ctx *Context, key []byte) {
	if ctx.Replaying {
		return
	}
	if at := deadlineOf(ctx, string(key)); at > 0 {
		ctx.Propagate("PEXPIREAT", key, formatInt(at))
	}
}
