package resp

import (
	"bufio"
	"strings"
)

// Reply is one encoded server response.
type Reply interface {
	WriteTo(w *bufio.Writer) error
}

// StatusReply is a simple string: "+OK".
type StatusReply string

func (r StatusReply) WriteTo(w *bufio.Writer) error { return WriteSimpleString(w, string(r)) }

// ErrorReply is an error line. The message excludes the leading '-'.
type ErrorReply string

func (r ErrorReply) WriteTo(w *bufio.Writer) error { return WriteError(w, string(r)) }

// Error implements error so replies can be inspected in tests.
func (r ErrorReply) Error() string { return string(r) }

// IntegerReply is ":<n>".
type IntegerReply int64

func (r IntegerReply) WriteTo(w *bufio.Writer) error { return WriteInteger(w, int64(r)) }

// BulkReply is a length-prefixed byte string. A nil BulkReply encodes as
// the null bulk reply.
type BulkReply []byte

func (r BulkReply) WriteTo(w *bufio.Writer) error { return WriteBulk(w, r) }

// ArrayReply is a multi-bulk reply.
type ArrayReply []Reply

func (r ArrayReply) WriteTo(w *bufio.Writer) error {
	if err := WriteArrayHeader(w, len(r)); err != nil {
		return err
	}
	for _, item := range r {
		if err := item.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// Common replies.
var (
	OK   Reply = StatusReply("OK")
	Pong Reply = StatusReply("PONG")
	Null Reply = BulkReply(nil)
)

// Status returns a simple-string reply.
func Status(s string) Reply { return StatusReply(s) }

// Error returns an error reply carrying the generic "ERR" prefix.
func Error(msg string) Reply {
	if strings.HasPrefix(msg, "ERR ") {
		return ErrorReply(msg)
	}
	return ErrorReply("ERR " + msg)
}

// Int returns an integer reply.
func Int(n int64) Reply { return IntegerReply(n) }

// Bulk returns a bulk reply; nil yields the null bulk reply.
func Bulk(b []byte) Reply { return BulkReply(b) }

// BulkString returns a non-null bulk reply.
func BulkString(s string) Reply { return BulkReply([]byte(s)) }

// BulkArray builds an array of bulk replies.
func BulkArray(items [][]byte) Reply {
	out := make(ArrayReply, len(items))
	for i, it := range items {
		if it == nil {
			it = []byte{}
		}
		out[i] = BulkReply(it)
	}
	return out
}

// StringArray builds an array of bulk replies from strings.
func StringArray(items []string) Reply {
	out := make(ArrayReply, len(items))
	for i, it := range items {
		out[i] = BulkReply([]byte(it))
	}
	return out
}

// IsError reports whether r is an error reply.
func IsError(r Reply) bool {
	_, ok := r.(ErrorReply)
	return ok
}
