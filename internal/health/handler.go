package health

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lacomanda/pos-terminal/internal/common"
)

// BackendPinger reports whether the restaurant backend is reachable.
type BackendPinger interface {
	Ping(ctx context.Context) error
}

// ReadyChecker reports whether the catalog is available for order taking.
type ReadyChecker interface {
	Ready() bool
}

// Handler serves liveness and readiness probes.
type Handler struct {
	Redis   *redis.Client
	Backend BackendPinger
	Catalog ReadyChecker
	Timeout time.Duration
}

type status struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Catalog bool              `json:"catalog_ready"`
}

// Live always reports ok while the process runs.
func (h Handler) Live(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, status{Status: "ok", Catalog: h.catalogReady()})
}

// Ready checks redis and the backend. A degraded dependency turns the
// terminal not-ready so the front-of-house can fall back to paper.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := make(map[string]string, 2)
	healthy := true

	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}
	if h.Backend != nil {
		if err := h.Backend.Ping(ctx); err != nil {
			checks["backend"] = err.Error()
			healthy = false
		} else {
			checks["backend"] = "ok"
		}
	}

	code := http.StatusOK
	state := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	common.JSON(w, code, status{Status: state, Checks: checks, Catalog: h.catalogReady()})
}

func (h Handler) catalogReady() bool {
	return h.Catalog != nil && h.Catalog.Ready()
}
