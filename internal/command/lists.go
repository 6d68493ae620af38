package command

import (
	"github.com/yndnr/meshkv/pkg/resp"
)

func registerLists(r *Registry) {
	rw := FlagWrite | FlagKeyspace
	r.Register(&Command{Name: "LPUSH", Arity: -3, Flags: rw, Handler: pushHandler(true)})
	r.Register(&Command{Name: "RPUSH", Arity: -3, Flags: rw, Handler: pushHandler(false)})
	r.Register(&Command{Name: "LLEN", Arity: 2, Flags: FlagKeyspace, Handler: HandlerFunc(llenCommand)})
	r.Register(&Command{Name: "LRANGE", Arity: 4, Flags: FlagKeyspace, Handler: HandlerFunc(lrangeCommand)})
}

func pushHandler(head bool) Handler {
	return HandlerFunc(func(ctx *Context) resp.Reply {
		push := ctx.Tx.RPush
		if head {
			push = ctx.Tx.LPush
		}
		n, err := push(ctx.DB, ctx.Arg(0), ctx.Args[1:]...)
		if err != nil {
			return ErrorReply(err)
		}
		ctx.PropagateSelf()
		propagateDeadline(ctx, ctx.Args[0])
		return resp.Int(int64(n))
	})
}

func llenCommand(ctx *Context) resp.Reply {
	n, err := ctx.Tx.LLen(ctx.DB, ctx.Arg(0))
	if err != nil {
		return ErrorReply(err)
	}
	return resp.Int(int64(n))
}

func lrangeCommand(ctx *Context) resp.Reply {
	start, err := parseInt(ctx.Args[1])
	if err != nil {
		return ErrorReply(err)
	}
	stop, err := parseInt(ctx.Args[2])
	if err != nil {
		return ErrorReply(err)
	}
	items, err := ctx.Tx.LRange(ctx.DB, ctx.Arg(0), start, stop)
	if err != nil {
		return ErrorReply(err)
	}
	return resp.BulkArray(items)
}
