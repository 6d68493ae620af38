package handler

import (
	"time"

	"github.com/yndnr/meshkv/internal/infra/buildinfo"
)

// Response is the standard API response envelope.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// DatabaseStatus is the key count of one non-empty database.
type DatabaseStatus struct {
	DB   int `json:"db"`
	Keys int `json:"keys"`
}

// StatusSummary is the body of GET /admin/v1/status/summary.
type StatusSummary struct {
	Build         buildinfo.Info   `json:"build"`
	StartedAt     time.Time        `json:"started_at"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Ready         bool             `json:"ready"`
	Databases     int              `json:"databases"`
	Keyspace      []DatabaseStatus `json:"keyspace"`
	TotalKeys     int              `json:"total_keys"`
	ExpiredLazy   uint64           `json:"expired_lazy"`
	ExpiredActive uint64           `json:"expired_active"`
	Sessions      int              `json:"sessions"`
}

// RewriteResponse is the body of POST /admin/v1/aof/rewrite.
type RewriteResponse struct {
	Records     int       `json:"records"`
	CompletedAt time.Time `json:"completed_at"`
}
