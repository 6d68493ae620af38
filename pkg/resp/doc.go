// Package resp implements the RESP2 wire protocol used by MeshKV.
//
// The server side decodes requests with ReadCommand (multi-bulk arrays of
// length-prefixed bulk strings, plus inline commands) and encodes replies
// through the Reply types. The client side encodes requests with
// WriteCommand and decodes replies with ReadValue.
package resp
