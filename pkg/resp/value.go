package resp

import (
	"bufio"
	"fmt"
	"strconv"
)

// Type is the RESP2 type marker of a decoded reply.
type Type byte

const (
	TypeStatus  Type = '+'
	TypeError   Type = '-'
	TypeInteger Type = ':'
	TypeBulk    Type = '$'
	TypeArray   Type = '*'
)

// Value is a decoded reply, as seen by a client.
type Value struct {
	Type  Type
	Str   string  // status and error text
	Int   int64   // integer replies
	Bulk  []byte  // bulk replies
	Array []Value // array replies
	Null  bool    // null bulk or null array
}

// String renders the value the way redis-cli does in raw mode.
func (v Value) String() string {
	switch v.Type {
	case TypeStatus, TypeError:
		return v.Str
	case TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case TypeBulk:
		if v.Null {
			return ""
		}
		return string(v.Bulk)
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// Interface converts the value into plain Go values suitable for JSON or
// YAML encoding: string, int64, nil, or []any.
func (v Value) Interface() any {
	switch v.Type {
	case TypeStatus:
		return v.Str
	case TypeError:
		return map[string]string{"error": v.Str}
	case TypeInteger:
		return v.Int
	case TypeBulk:
		if v.Null {
			return nil
		}
		return string(v.Bulk)
	case TypeArray:
		if v.Null {
			return nil
		}
		out := make([]any, len(v.Array))
		for i, it := range v.Array {
			out[i] = it.Interface()
		}
		return out
	}
	return nil
}

// ReadValue decodes one reply.
func ReadValue(r *bufio.Reader) (Value, error) {
	line, err := readLine(r, MaxInlineLen)
	if err != nil {
		return Value{}, err
	}
	if line == "" {
		return Value{}, fmt.Errorf("%w: empty reply line", ErrProtocol)
	}

	switch Type(line[0]) {
	case TypeStatus:
		return Value{Type: TypeStatus, Str: line[1:]}, nil
	case TypeError:
		return Value{Type: TypeError, Str: line[1:]}, nil
	case TypeInteger:
		n, err := strconv.ParseInt(line[1:], 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid integer", ErrProtocol)
		}
		return Value{Type: TypeInteger, Int: n}, nil
	case TypeBulk:
		n, err := parseLength(line, '$')
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{Type: TypeBulk, Null: true}, nil
		}
		if n > MaxBulkLen {
			return Value{}, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
		}
		b, err := readBulkBody(r, n)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: TypeBulk, Bulk: b}, nil
	case TypeArray:
		n, err := parseLength(line, '*')
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{Type: TypeArray, Null: true}, nil
		}
		if n > MaxArrayLen {
			return Value{}, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
		}
		items := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			it, err := ReadValue(r)
			if err != nil {
				return Value{}, err
			}
			items = append(items, it)
		}
		return Value{Type: TypeArray, Array: items}, nil
	default:
		return Value{}, fmt.Errorf("%w: unknown reply type %q", ErrProtocol, line[0])
	}
}
