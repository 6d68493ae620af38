package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Executor runs one server command and prints its reply. A returned
// error is printed and the loop continues.
type Executor func(args []string) error

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    func() string
	exec      Executor
	completer *Completer
	history   *History
}

// New creates a new REPL instance.
func New(in io.Reader, out io.Writer, exec Executor, completer *Completer, history *History) *REPL {
	return &REPL{
		input:     in,
		output:    out,
		prompt:    func() string { return "meshkv> " },
		exec:      exec,
		completer: completer,
		history:   history,
	}
}

// SetPrompt installs a dynamic prompt.
func (r *REPL) SetPrompt(p func() string) {
	r.prompt = p
}

// Run starts the REPL loop. It returns nil on EOF, exit or quit.
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)

	for {
		fmt.Fprint(r.output, r.prompt())

		line, err := reader.ReadString('\n')
		if err == io.EOF && line == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		args, perr := ParseLine(line)
		if perr != nil {
			fmt.Fprintf(r.output, "(error) %v\n", perr)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if done := r.dispatch(args); done {
			return nil
		}
		if err == io.EOF {
			return nil
		}
	}
}

// dispatch runs a built-in or forwards to the executor. It reports
// whether the loop should stop.
func (r *REPL) dispatch(args []string) bool {
	switch strings.ToLower(args[0]) {
	case "exit", "quit":
		return true
	case "help":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		r.help(prefix)
		return false
	case "history":
		for i := r.history.Len() - 1; i >= 0; i-- {
			fmt.Fprintf(r.output, "%4d  %s\n", r.history.Len()-i, r.history.Get(i))
		}
		return false
	}

	// The server answers unknown commands with PONG, so flag typos here.
	if !r.completer.Known(args[0]) {
		if s := r.completer.Complete(args[0][:1]); len(s) > 0 {
			fmt.Fprintf(r.output, "(hint) unknown command %q, commands starting with %q: %s\n",
				args[0], args[0][:1], strings.Join(s, " "))
		}
	}
	if err := r.exec(args); err != nil {
		fmt.Fprintf(r.output, "(error) %v\n", err)
	}
	return false
}

func (r *REPL) help(prefix string) {
	cmds := r.completer.Complete(prefix)
	if len(cmds) == 0 {
		fmt.Fprintf(r.output, "no commands match %q\n", prefix)
		return
	}
	fmt.Fprintln(r.output, strings.Join(cmds, " "))
}
