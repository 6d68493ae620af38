package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != Default() {
		t.Fatal("FromContext without logger should return Default()")
	}

	var buf bytes.Buffer
	l, _ := New(Config{Level: "debug", Format: "json", Output: &buf})
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("FromContext did not return the stored logger")
	}
}

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" || SessionIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no IDs")
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithSessionID(ctx, "01HZX")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q, want req-1", got)
	}
	if got := SessionIDFromContext(ctx); got != "01HZX" {
		t.Errorf("SessionIDFromContext = %q, want 01HZX", got)
	}
}

func TestL(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
		sessionID string
	}{
		{"none", "", ""},
		{"request only", "req-9", ""},
		{"session only", "", "sess-3"},
		{"both", "req-9", "sess-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, _ := New(Config{Level: "debug", Format: "json", Output: &buf})
			ctx := WithLogger(context.Background(), l)
			if tt.requestID != "" {
				ctx = WithRequestID(ctx, tt.requestID)
			}
			if tt.sessionID != "" {
				ctx = WithSessionID(ctx, tt.sessionID)
			}

			L(ctx).Info("hello")
			entry := decodeLine(t, &buf)

			got, ok := entry["request_id"]
			if tt.requestID == "" && ok {
				t.Errorf("request_id = %v, want absent", got)
			}
			if tt.requestID != "" && got != tt.requestID {
				t.Errorf("request_id = %v, want %v", got, tt.requestID)
			}
			got, ok = entry["session"]
			if tt.sessionID == "" && ok {
				t.Errorf("session = %v, want absent", got)
			}
			if tt.sessionID != "" && got != tt.sessionID {
				t.Errorf("session = %v, want %v", got, tt.sessionID)
			}
		})
	}
}
