package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/sdk"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the host's operational routes.
func (h *Host) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	return r
}

func (h *Host) healthz(w http.ResponseWriter, _ *http.Request) {
	state := h.coordinator.State()
	body := map[string]any{
		"state": state.String(),
		"slots": len(h.Slots()),
	}
	if err := h.coordinator.LastError(); err != nil {
		body["last_error"] = err.Error()
	}

	status := http.StatusOK
	if state != sdk.StateInitialized {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Host) startServer(ctx context.Context) *http.Server {
	srv := &http.Server{
		Addr:        h.cfg.MetricsAddr,
		Handler:     h.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		h.log.InfoObj("metrics server listening", "addr", h.cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.ErrorObj("metrics server error", "error", err.Error())
		}
	}()
	return srv
}
