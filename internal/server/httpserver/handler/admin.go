package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/internal/infra/buildinfo"
)

// handleStatus handles GET /admin/v1/status/summary.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	summary := StatusSummary{
		Build:         buildinfo.Get(),
		StartedAt:     h.cfg.StartedAt.UTC(),
		UptimeSeconds: int64(now.Sub(h.cfg.StartedAt).Seconds()),
		Ready:         h.ready.Load(),
		Keyspace:      []DatabaseStatus{},
	}

	if ks := h.cfg.Keyspace; ks != nil {
		counts := ks.KeyCounts()
		summary.Databases = len(counts)
		for db, n := range counts {
			if n == 0 {
				continue
			}
			summary.Keyspace = append(summary.Keyspace, DatabaseStatus{DB: db, Keys: n})
			summary.TotalKeys += n
		}
		stats := ks.Stats()
		summary.ExpiredLazy = stats.ExpiredLazy
		summary.ExpiredActive = stats.ExpiredActive
	}
	if h.cfg.Sessions != nil {
		summary.Sessions = h.cfg.Sessions.Count()
	}

	h.writeJSON(w, r, http.StatusOK, summary)
}

// handleConfig handles GET /admin/v1/config.
func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Settings == nil {
		h.writeJSON(w, r, http.StatusOK, map[string]any{})
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.cfg.Settings())
}

// handleRewrite handles POST /admin/v1/aof/rewrite.
func (h *Handler) handleRewrite(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Rewrite == nil {
		h.writeError(w, r, http.StatusNotFound, "KV-ADMIN-4040", "append-only file disabled", nil)
		return
	}
	n, err := h.cfg.Rewrite()
	if err != nil {
		h.handleServiceError(w, r, domain.ErrIOFailure.WithCause(err))
		return
	}
	h.logger.Info("aof rewritten via admin api", "records", n)
	h.writeJSON(w, r, http.StatusOK, RewriteResponse{
		Records:     n,
		CompletedAt: time.Now().UTC(),
	})
}
