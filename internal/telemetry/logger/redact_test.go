package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactSensitive_Attributes(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("config loaded",
		"password", "hunter2",
		"aof_encryption_key", "00112233",
		"key", "user:1",
		"session", "01HZX",
		"empty_password", "",
	)
	entry := decodeLine(t, &buf)

	tests := []struct {
		key  string
		want any
	}{
		{"password", redactedValue},
		{"aof_encryption_key", redactedValue},
		{"key", "user:1"},
		{"session", "01HZX"},
		{"empty_password", ""},
	}
	for _, tt := range tests {
		if got := entry[tt.key]; got != tt.want {
			t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("grouped", slog.Group("server", "password", "pw", "host", "h"))
	out := buf.String()
	if strings.Contains(out, `"pw"`) {
		t.Fatalf("group password leaked: %s", out)
	}
	if !strings.Contains(out, `"host":"h"`) {
		t.Fatalf("group host missing: %s", out)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"Server.Password", true},
		{"aof_encryption_key", true},
		{"client_secret", true},
		{"key", false},
		{"keys", false},
		{"db", false},
	}
	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestRedactCommand(t *testing.T) {
	long := strings.Repeat("x", maxLoggedArg+6)
	tests := []struct {
		name string
		cmd  string
		args []string
		want string
	}{
		{"plain", "SET", []string{"k", "v"}, `SET "k" "v"`},
		{"no args", "PING", nil, "PING"},
		{"auth", "AUTH", []string{"s3cret"}, "AUTH ***(6)"},
		{"auth lower", "auth", []string{"user", "pw"}, "auth ***(4) ***(2)"},
		{"long arg", "SET", []string{"k", long}, `SET "k" "` + long[:maxLoggedArg] + `"...(70 bytes)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := make([][]byte, len(tt.args))
			for i, a := range tt.args {
				args[i] = []byte(a)
			}
			if got := RedactCommand(tt.cmd, args); got != tt.want {
				t.Fatalf("RedactCommand = %q, want %q", got, tt.want)
			}
		})
	}
}
