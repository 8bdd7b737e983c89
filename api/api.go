// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api assembles the REST router over the staking engine.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/plumenetwork/plume/api/restutil"
	apistaking "github.com/plumenetwork/plume/api/staking"
	"github.com/plumenetwork/plume/health"
	"github.com/plumenetwork/plume/metrics"
	"github.com/plumenetwork/plume/staking"
)

// Options tunes the assembled handler.
type Options struct {
	AllowedOrigins string // comma-separated CORS origins, "*" for any
	EnableMetrics  bool   // mount /metrics and record request metrics
}

// New assembles the API handler for the staking engine.
func New(minter *staking.Minter, h *health.Health, opts Options) http.Handler {
	router := mux.NewRouter()
	apistaking.New(minter).Mount(router, "/staking")
	if h != nil {
		router.Path("/health").Methods(http.MethodGet).HandlerFunc(healthHandler(h))
	}
	if opts.EnableMetrics {
		router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(strings.Split(opts.AllowedOrigins, ",")),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
	)(handler)
	if opts.EnableMetrics {
		handler = metricsMiddleware(handler)
	}
	return handler
}

// healthHandler serves 200 while the engine is healthy and 503 otherwise.
func healthHandler(h *health.Health) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := h.Status()
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", restutil.JSONContentType)
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
