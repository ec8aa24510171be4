package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/oshokin/intruder-sentry/internal/logger"
)

// Status is the JSON document served at /status.
type Status struct {
	// SensorBackend names the active range sensor backend.
	SensorBackend string `json:"sensor_backend"`
	// LastDistanceCM is the most recent distance reading.
	LastDistanceCM float64 `json:"last_distance_cm"`
	// InRange reports whether the last sample was inside the threshold.
	InRange bool `json:"in_range"`
	// LastAlertAt is when the last alert dispatch was initiated, if any.
	LastAlertAt *time.Time `json:"last_alert_at,omitempty"`
	// AlertsSent counts alert dispatches since startup.
	AlertsSent uint64 `json:"alerts_sent"`
	// SamplesRead counts sensor readings since startup.
	SamplesRead uint64 `json:"samples_read"`
	// StartedAt is when the monitor started.
	StartedAt time.Time `json:"started_at"`
}

// Source provides the current monitor status snapshot.
type Source interface {
	Snapshot() Status
}

// shutdownTimeout bounds the graceful drain of in-flight requests.
const shutdownTimeout = 3 * time.Second

// Server exposes read-only monitor state over HTTP for local inspection
// (curl from an SSH session, a dashboard scraper, a liveness probe).
type Server struct {
	// address is the listen address.
	address string
	// source supplies status snapshots.
	source Source
}

// NewServer creates a status server for the given listen address.
func NewServer(address string, source Source) *Server {
	return &Server{
		address: address,
		source:  source,
	}
}

// Run serves until the context is canceled, then drains and returns.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}

	httpServer := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.InfoKV(ctx, "Status endpoint listening", "address", listener.Addr().String())

	// Done channel is closed after Shutdown finishes so we block until the
	// server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "Status endpoint shutdown", "error", err)
		}

		close(done)
	}()

	if err = httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve status endpoint: %w", err)
	}

	<-done
	logger.Info(ctx, "Status endpoint stopped")

	return nil
}

// Routes builds the HTTP routing table. Exposed for handler tests.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	return router
}

// handleHealthz is a trivial liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// handleStatus serves the current snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.source.Snapshot()); err != nil {
		logger.WarnKV(r.Context(), "Encode status", "error", err)
	}
}
