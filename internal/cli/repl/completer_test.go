package repl

import (
	"strings"
	"testing"
)

func TestCompleter(t *testing.T) {
	c := NewCompleter([]string{"GET", "SET", "SELECT", "get"})

	tests := []struct {
		prefix string
		want   string
	}{
		{"se", "select set"},
		{"SE", "select set"},
		{"g", "get"},
		{"h", "help history"},
		{"zz", ""},
	}
	for _, tt := range tests {
		if got := strings.Join(c.Complete(tt.prefix), " "); got != tt.want {
			t.Errorf("Complete(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}

	if !c.Known("Get") || !c.Known("exit") {
		t.Error("Known misses registered names")
	}
	if c.Known("ge") {
		t.Error("Known matched a prefix")
	}
}
