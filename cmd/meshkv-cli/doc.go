// Command meshkv-cli is an interactive client for meshkv.
//
// Usage:
//
//	meshkv-cli [-h host] [-p port] [-a password] [-n db] [-o format] [command [arg ...]]
//
// Given a command it prints the single reply; otherwise it opens a REPL
// with history and command-name completion.
package main
