package command

import (
	"fmt"
	"sort"

	"github.com/yndnr/meshkv/pkg/resp"
)

// Flag describes how the dispatcher runs a command.
type Flag uint8

const (
	// FlagWrite marks commands that may mutate the keyspace.
	FlagWrite Flag = 1 << iota
	// FlagKeyspace marks commands that run under the keyspace lock.
	FlagKeyspace
	// FlagNoAuth marks commands allowed before authentication.
	FlagNoAuth
)

// Handler executes one command.
type Handler interface {
	Execute(ctx *Context) resp.Reply
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx *Context) resp.Reply

// Execute calls f(ctx).
func (f HandlerFunc) Execute(ctx *Context) resp.Reply {
	return f(ctx)
}

// Command is one entry of the command table.
//
// Arity counts the command name itself. A positive arity is exact; a
// negative arity -N means at least N.
type Command struct {
	Name    string
	Arity   int
	Flags   Flag
	Handler Handler
}

// Has reports whether the command carries flag f.
func (c *Command) Has(f Flag) bool {
	return c.Flags&f != 0
}

// CheckArity reports whether argc (including the name) fits the arity.
func (c *Command) CheckArity(argc int) bool {
	if c.Arity >= 0 {
		return argc == c.Arity
	}
	return argc >= -c.Arity
}

// Registry maps upper-case command names to commands.
//
// It is written only during startup; after Freeze it is read-only and safe
// for concurrent use without locking.
type Registry struct {
	commands map[string]*Command
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds cmd. It panics on duplicates, on invalid entries and after
// Freeze, since those are programming errors.
func (r *Registry) Register(cmd *Command) {
	if r.frozen {
		panic(fmt.Sprintf("command: register %q after freeze", cmd.Name))
	}
	if cmd == nil || cmd.Name == "" || cmd.Handler == nil || cmd.Arity == 0 {
		panic("command: invalid command registration")
	}
	if _, dup := r.commands[cmd.Name]; dup {
		panic(fmt.Sprintf("command: duplicate command %q", cmd.Name))
	}
	r.commands[cmd.Name] = cmd
}

// Resolve looks a command up by its exact (upper-case) name.
func (r *Registry) Resolve(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Freeze forbids further registration.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.commands))
	for name := range r.commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry builds the frozen table of every built-in command.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerConnection(r)
	registerStrings(r)
	registerKeys(r)
	registerLists(r)
	registerServer(r)
	r.Freeze()
	return r
}
