// Package command defines the meshkv-cli application using urfave/cli/v2.
//
// With trailing arguments the CLI sends them as one command and prints
// the reply; without, it starts the interactive REPL.
package command
