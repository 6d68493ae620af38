package domain

import (
	"errors"
	"testing"
)

func TestValue_Shapes(t *testing.T) {
	s := StringValue([]byte("v"))
	if !s.IsString() || s.IsList() {
		t.Fatalf("StringValue kind = %v", s.Kind())
	}
	if _, err := s.List(); !errors.Is(err, ErrWrongType) {
		t.Errorf("List() on string err = %v, want ErrWrongType", err)
	}

	l := ListValue([][]byte{[]byte("a")})
	if !l.IsList() {
		t.Fatalf("ListValue kind = %v", l.Kind())
	}
	if _, err := l.Bytes(); !errors.Is(err, ErrWrongType) {
		t.Errorf("Bytes() on list err = %v, want ErrWrongType", err)
	}
}

func TestValue_StringNilBecomesEmpty(t *testing.T) {
	b, err := StringValue(nil).Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if b == nil || len(b) != 0 {
		t.Errorf("Bytes() = %v, want empty non-nil", b)
	}
}

func TestValue_CloneDoesNotAlias(t *testing.T) {
	orig := ListValue([][]byte{[]byte("a"), []byte("b")})
	c := orig.Clone()
	items, _ := c.List()
	items[0][0] = 'z'

	got, _ := orig.List()
	if string(got[0]) != "a" {
		t.Errorf("original mutated through clone: %q", got[0])
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{KindString: "string", KindList: "list", Kind(0): "none"}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt int64
		now       int64
		want      bool
	}{
		{"no ttl", 0, 1000, false},
		{"before deadline", 2000, 1999, false},
		{"at deadline", 2000, 2000, true},
		{"after deadline", 2000, 2500, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{Value: StringValue([]byte("x")), ExpiresAt: tt.expiresAt}
			if got := e.IsExpired(tt.now); got != tt.want {
				t.Errorf("IsExpired(%d) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestNewSession(t *testing.T) {
	s := NewSession("127.0.0.1:5000", true)
	if len(s.ID) != 26 {
		t.Errorf("ID length = %d, want 26", len(s.ID))
	}
	if s.SelectedDB != 0 || !s.Authenticated {
		t.Errorf("unexpected defaults: %+v", s)
	}
	other := NewSession("127.0.0.1:5001", false)
	if other.ID == s.ID {
		t.Error("session IDs must be unique")
	}
}
