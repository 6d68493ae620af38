package logger

import (
	"log/slog"
	"strconv"
	"strings"
)

// Attribute keys containing one of these are redacted. Plain "key" is
// deliberately absent: keyspace keys are logged as "key".
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"credential",
	"token",
	"encryption_key",
	"requirepass",
}

// Commands whose arguments are never logged.
var sensitiveCommands = map[string]struct{}{
	"AUTH": {},
}

const redactedValue = "***REDACTED***"

// maxLoggedArg bounds how much of a single argument RedactCommand keeps.
const maxLoggedArg = 64

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// IsSensitiveKey reports whether an attribute key names secret content.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// RedactString masks a secret, keeping only its length.
func RedactString(value string) string {
	if value == "" {
		return ""
	}
	return "***(" + strconv.Itoa(len(value)) + ")"
}

// RedactCommand renders a command line for debug logs. Arguments of
// sensitive commands are masked and long arguments are truncated.
func RedactCommand(name string, args [][]byte) string {
	var b strings.Builder
	b.WriteString(name)
	_, secret := sensitiveCommands[strings.ToUpper(name)]
	for _, arg := range args {
		b.WriteByte(' ')
		switch {
		case secret:
			b.WriteString(RedactString(string(arg)))
		case len(arg) > maxLoggedArg:
			b.WriteString(strconv.Quote(string(arg[:maxLoggedArg])))
			b.WriteString("...(")
			b.WriteString(strconv.Itoa(len(arg)))
			b.WriteString(" bytes)")
		default:
			b.WriteString(strconv.Quote(string(arg)))
		}
	}
	return b.String()
}
