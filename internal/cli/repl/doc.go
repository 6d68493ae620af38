// Package repl provides the interactive mode of meshkv-cli.
//
//   - repl.go: the read-eval-print loop and built-ins (help, history, exit)
//   - parse.go: splitting an input line into arguments with quoting
//   - completer.go: command-name prefix matching for help and hints
//   - history.go: history persisted under ~/.meshkv/history
package repl
