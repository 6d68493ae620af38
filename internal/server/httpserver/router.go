package httpserver

import (
	"net/http"

	"github.com/yndnr/meshkv/internal/server/httpserver/handler"
	"github.com/yndnr/meshkv/internal/telemetry/logger"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Admin serves /healthz, /readyz and /admin/v1/*.
	Admin *handler.Handler

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// AllowList restricts /metrics and /admin/v1/* by client IP/CIDR.
	AllowList []string

	Logger logger.Logger
}

// NewRouter creates the admin router. Probes stay open to everyone so
// orchestrators can reach them.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	base := []Middleware{RequestID(), Recover(log), AccessLog(log)}
	guarded := append(append([]Middleware{}, base...), NetworkACL(cfg.AllowList, log))

	mux := http.NewServeMux()

	probes := Chain(cfg.Admin, base...)
	mux.Handle("GET /healthz", probes)
	mux.Handle("GET /readyz", probes)

	mux.Handle("/admin/v1/", Chain(cfg.Admin, guarded...))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, guarded...))
	}

	return mux
}
