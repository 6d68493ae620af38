package command

import (
	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/pkg/resp"
)

func registerConnection(r *Registry) {
	r.Register(&Command{Name: "AUTH", Arity: -2, Flags: FlagNoAuth, Handler: HandlerFunc(authCommand)})
	r.Register(&Command{Name: "SELECT", Arity: 2, Handler: HandlerFunc(selectCommand)})
	r.Register(&Command{Name: "PING", Arity: -1, Handler: HandlerFunc(pingCommand)})
	r.Register(&Command{Name: "ECHO", Arity: 2, Handler: HandlerFunc(echoCommand)})
	r.Register(&Command{Name: "QUIT", Arity: 1, Handler: HandlerFunc(quitCommand)})
}

// AUTH password | AUTH username password
//
// The username form is accepted for client compatibility; only the
// password is checked.
func authCommand(ctx *Context) resp.Reply {
	if len(ctx.Args) > 2 {
		return ErrorReply(domain.ErrSyntax)
	}
	if ctx.Sessions == nil || ctx.Session == nil {
		return ErrorReply(domain.ErrInternal)
	}
	password := ctx.Args[len(ctx.Args)-1]
	if !ctx.Sessions.Authenticator().Verify(password) {
		return ErrorReply(domain.ErrAuthFailed)
	}
	if err := ctx.Sessions.SetAuthenticated(ctx.Session.ID, true); err != nil {
		return ErrorReply(err)
	}
	return resp.OK
}

func selectCommand(ctx *Context) resp.Reply {
	if ctx.Sessions == nil || ctx.Session == nil {
		return ErrorReply(domain.ErrInternal)
	}
	idx, err := parseInt(ctx.Args[0])
	if err != nil {
		return ErrorReply(err)
	}
	if idx < 0 || idx >= int64(ctx.Sessions.Databases()) {
		return ErrorReply(domain.ErrOutOfRange)
	}
	if err := ctx.Sessions.SetSelectedDB(ctx.Session.ID, int(idx)); err != nil {
		return ErrorReply(err)
	}
	return resp.OK
}

func pingCommand(ctx *Context) resp.Reply {
	switch len(ctx.Args) {
	case 0:
		return resp.Pong
	case 1:
		return resp.BulkString(ctx.Arg(0))
	default:
		return arityError(ctx.Name)
	}
}

func echoCommand(ctx *Context) resp.Reply {
	return resp.BulkString(ctx.Arg(0))
}

// QUIT only acknowledges; the connection layer closes after the reply.
func quitCommand(*Context) resp.Reply {
	return resp.OK
}
