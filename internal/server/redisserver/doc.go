// Package redisserver serves the MeshKV command set over RESP2.
//
// Each accepted connection gets its own goroutine and its own session in
// the session registry. Requests are decoded with pkg/resp, handed to the
// command dispatcher, and the reply is written only after the dispatcher
// has released the keyspace lock.
package redisserver
