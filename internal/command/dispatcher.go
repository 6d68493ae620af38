package command

import (
	"strings"
	"time"

	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/internal/core/service"
	"github.com/yndnr/meshkv/internal/storage/aof"
	"github.com/yndnr/meshkv/internal/storage/memory"
	"github.com/yndnr/meshkv/internal/telemetry/logger"
	"github.com/yndnr/meshkv/pkg/resp"
)

// FailurePolicy selects what a client sees when the persistence log
// rejects an append.
type FailurePolicy string

const (
	// FailureLog keeps the in-memory result and only logs the failure.
	FailureLog FailurePolicy = "log"
	// FailureReject replaces the reply with a persistence error. The
	// in-memory mutation is not rolled back.
	FailureReject FailurePolicy = "reject"
)

// ParseFailurePolicy validates a configured policy name.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(s)); p {
	case FailureLog, FailureReject:
		return p, nil
	case "":
		return FailureLog, nil
	default:
		return "", domain.ErrSyntax.WithDetails("unknown aof failure policy: " + s)
	}
}

// Result labels reported to the Observer.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultUnknown = "unknown"
	ResultNoAuth  = "noauth"
)

// Observer receives per-command measurements.
type Observer interface {
	ObserveCommand(name, result string, elapsed time.Duration)
	ObserveAppend(records int, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveCommand(string, string, time.Duration) {}
func (nopObserver) ObserveAppend(int, error)                     {}

// Dispatcher routes requests from sessions to command handlers.
type Dispatcher struct {
	registry *Registry
	store    *memory.Store
	sessions *service.SessionRegistry
	log      aof.Log

	policy   FailurePolicy
	observer Observer
	logger   logger.Logger
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithFailurePolicy sets how persistence failures surface to clients.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithObserver installs a metrics observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// NewDispatcher creates a dispatcher. A nil log disables persistence.
func NewDispatcher(reg *Registry, store *memory.Store, sessions *service.SessionRegistry, log aof.Log, opts ...Option) *Dispatcher {
	if log == nil {
		log = aof.Discard
	}
	d := &Dispatcher{
		registry: reg,
		store:    store,
		sessions: sessions,
		log:      log,
		policy:   FailureLog,
		observer: nopObserver{},
		logger:   logger.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the command table.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch executes one request for the session. name must already be
// upper-case; args exclude the name.
//
// Unknown commands answer PONG. Keyspace commands run inside a single
// Store.Exec; their records are appended before the lock is released.
func (d *Dispatcher) Dispatch(sessionID, name string, args [][]byte) resp.Reply {
	start := time.Now()

	sess, ok := d.sessions.Get(sessionID)
	if !ok {
		return ErrorReply(domain.ErrInternal)
	}

	cmd, found := d.registry.Resolve(name)
	if !sess.Authenticated && !(found && cmd.Has(FlagNoAuth)) {
		d.observer.ObserveCommand(name, ResultNoAuth, time.Since(start))
		return ErrorReply(domain.ErrAuthRequired)
	}
	if !found {
		d.observer.ObserveCommand("unknown", ResultUnknown, time.Since(start))
		return resp.Pong
	}
	if !cmd.CheckArity(len(args) + 1) {
		d.observer.ObserveCommand(cmd.Name, ResultError, time.Since(start))
		return arityError(cmd.Name)
	}

	ctx := &Context{
		Name:     cmd.Name,
		Args:     args,
		DB:       sess.SelectedDB,
		Session:  sess,
		Sessions: d.sessions,
		Log:      d.log,
	}

	var reply resp.Reply
	if cmd.Has(FlagKeyspace) {
		reply = d.execKeyspace(cmd, ctx)
	} else {
		reply = cmd.Handler.Execute(ctx)
	}

	result := ResultOK
	if resp.IsError(reply) {
		result = ResultError
	}
	d.observer.ObserveCommand(cmd.Name, result, time.Since(start))
	return reply
}

func (d *Dispatcher) execKeyspace(cmd *Command, ctx *Context) resp.Reply {
	var reply resp.Reply
	var appendErr error

	_ = d.store.Exec(func(tx *memory.Tx) error {
		ctx.Tx = tx
		reply = cmd.Handler.Execute(ctx)
		ctx.Tx = nil

		recs := ctx.Records()
		if len(recs) == 0 {
			return nil
		}
		for _, rec := range recs {
			if appendErr = d.log.Append(rec); appendErr != nil {
				break
			}
		}
		d.observer.ObserveAppend(len(recs), appendErr)
		return nil
	})

	if appendErr != nil {
		d.logger.Error("aof append failed",
			"command", cmd.Name,
			"db", ctx.DB,
			"error", appendErr,
		)
		if d.policy == FailureReject {
			return ErrorReply(domain.ErrIOFailure)
		}
	}
	return reply
}
