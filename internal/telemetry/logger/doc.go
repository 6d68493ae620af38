// Package logger provides structured logging for meshkv.
//
// It wraps log/slog with a small Logger interface. What meshkv logs
// through it:
//
//   - server lifecycle: config, AOF open and replay results, listeners,
//     shutdown hooks (logger.go)
//   - one scoped logger per client connection carrying the session ID and
//     remote address (ForSession)
//   - rejected commands at debug level, rendered by RedactCommand so AUTH
//     passwords never reach the log and long values are truncated
//     (redact.go)
//   - admin HTTP requests with their request ID (context.go)
//
// Attributes named like secrets (password, aof_encryption_key, ...) are
// masked by the handler itself. The level lives in one slog.LevelVar
// shared by every logger, so SetLevel applies to all of them when the
// configuration file is reloaded.
package logger
