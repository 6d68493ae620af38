package repl

import (
	"sort"
	"strings"
)

// Builtins are handled by the REPL itself.
var Builtins = []string{"help", "history", "exit", "quit"}

// Completer matches command names by prefix, case-insensitively.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over the server command names plus
// the REPL built-ins.
func NewCompleter(commands []string) *Completer {
	seen := make(map[string]struct{})
	var all []string
	for _, c := range append(append([]string{}, commands...), Builtins...) {
		c = strings.ToLower(c)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		all = append(all, c)
	}
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns completion suggestions for the given prefix.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Known reports whether name is an exact command or built-in.
func (c *Completer) Known(name string) bool {
	name = strings.ToLower(name)
	i := sort.SearchStrings(c.commands, name)
	return i < len(c.commands) && c.commands[i] == name
}
