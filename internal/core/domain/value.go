// Package domain defines the core domain models for MeshKV.
package domain

// Kind identifies the shape of a stored value.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindList
)

// String returns the name reported by the TYPE command.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "none"
	}
}

// Value is a tagged union: exactly one of a byte string or a list of byte
// strings. The zero Value is invalid.
type Value struct {
	kind Kind
	str  []byte
	list [][]byte
}

// StringValue returns a string-shaped value. b is retained, not copied.
func StringValue(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindString, str: b}
}

// ListValue returns a list-shaped value. items is retained, not copied.
func ListValue(items [][]byte) Value {
	return Value{kind: KindList, list: items}
}

// Kind returns the value shape.
func (v Value) Kind() Kind { return v.kind }

// IsString reports whether v holds a byte string.
func (v Value) IsString() bool { return v.kind == KindString }

// IsList reports whether v holds a list.
func (v Value) IsList() bool { return v.kind == KindList }

// Bytes returns the string payload, or ErrWrongType for a list.
func (v Value) Bytes() ([]byte, error) {
	if v.kind != KindString {
		return nil, ErrWrongType
	}
	return v.str, nil
}

// List returns the list payload, or ErrWrongType for a string.
func (v Value) List() ([][]byte, error) {
	if v.kind != KindList {
		return nil, ErrWrongType
	}
	return v.list, nil
}

// Clone returns a deep copy so callers outside the store lock never alias
// stored bytes.
func (v Value) Clone() Value {
	switch v.kind {
	case KindString:
		return Value{kind: KindString, str: append([]byte{}, v.str...)}
	case KindList:
		items := make([][]byte, len(v.list))
		for i, it := range v.list {
			items[i] = append([]byte{}, it...)
		}
		return Value{kind: KindList, list: items}
	default:
		return v
	}
}

// Entry is a stored value plus its optional expiration deadline.
type Entry struct {
	Value Value

	// ExpiresAt is the absolute deadline in Unix milliseconds; 0 means no TTL.
	ExpiresAt int64
}

// HasTTL reports whether the entry carries a deadline.
func (e *Entry) HasTTL() bool {
	return e.ExpiresAt > 0
}

// IsExpired reports whether the entry is past its deadline at nowMs.
func (e *Entry) IsExpired(nowMs int64) bool {
	return e.ExpiresAt > 0 && e.ExpiresAt <= nowMs
}
