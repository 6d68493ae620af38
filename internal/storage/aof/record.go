package aof

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Record field numbers.
const (
	fieldDB   protowire.Number = 1
	fieldName protowire.Number = 2
	fieldArg  protowire.Number = 3
)

// Record is one canonical mutating command, resolved against the database
// it targeted.
type Record struct {
	DB   int
	Name string
	Args [][]byte
}

// NewRecord creates a record.
func NewRecord(db int, name string, args ...[]byte) *Record {
	return &Record{DB: db, Name: name, Args: args}
}

// String renders the record for logs and tests: "db=0 SET k v".
func (r *Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "db=%d %s", r.DB, r.Name)
	for _, a := range r.Args {
		b.WriteByte(' ')
		b.Write(a)
	}
	return b.String()
}

// MarshalRecord encodes r in protobuf wire format.
func MarshalRecord(r *Record) []byte {
	size := protowire.SizeTag(fieldDB) + protowire.SizeVarint(uint64(r.DB)) +
		protowire.SizeTag(fieldName) + protowire.SizeBytes(len(r.Name))
	for _, a := range r.Args {
		size += protowire.SizeTag(fieldArg) + protowire.SizeBytes(len(a))
	}

	b := make([]byte, 0, size)
	b = protowire.AppendTag(b, fieldDB, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.DB))
	b = protowire.AppendTag(b, fieldName, protowire.BytesType)
	b = protowire.AppendString(b, r.Name)
	for _, a := range r.Args {
		b = protowire.AppendTag(b, fieldArg, protowire.BytesType)
		b = protowire.AppendBytes(b, a)
	}
	return b
}

// UnmarshalRecord decodes a payload produced by MarshalRecord.
func UnmarshalRecord(b []byte) (*Record, error) {
	r := &Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedRecord, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldDB && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorruptedRecord, protowire.ParseError(n))
			}
			r.DB = int(v)
			b = b[n:]
		case num == fieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorruptedRecord, protowire.ParseError(n))
			}
			r.Name = string(v)
			b = b[n:]
		case num == fieldArg && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorruptedRecord, protowire.ParseError(n))
			}
			r.Args = append(r.Args, append([]byte{}, v...))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorruptedRecord, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if r.Name == "" {
		return nil, fmt.Errorf("%w: missing command name", ErrCorruptedRecord)
	}
	return r, nil
}
