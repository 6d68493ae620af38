// Package aof provides the append-only persistence log.
//
// Every mutating command is appended as one Record after it has been
// applied to the keyspace; at startup the log is replayed in order against
// an empty keyspace to rebuild it.
//
// File format:
//
//	[magic:8 "MESHAOF\x01"]
//	[Frame]*
//
// Frame wire format:
//
//	[Length:4][CRC32:4][Type:1][Payload:Length-5]
//
// Where:
//   - Length = CRC32 + Type + Payload (big-endian uint32)
//   - CRC32 covers Type+Payload (IEEE)
//   - Type 1 is a plain record; 2 and 3 are records sealed with
//     XChaCha20-Poly1305 and AES-256-GCM respectively
//   - Payload is protobuf wire format: 1=db (varint), 2=name (bytes),
//     3=arg (bytes, repeated). Unknown fields are skipped, so records
//     written by newer versions still replay.
//
// Recovery:
//
//   - A frame cut short by a crash is dropped with a warning and the file
//     is truncated to the last complete frame.
//   - A complete frame with a checksum mismatch is skipped with a warning
//     and replay continues.
package aof
