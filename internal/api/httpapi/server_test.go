package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// staticSource serves a fixed snapshot.
type staticSource struct {
	status Status
}

func (s *staticSource) Snapshot() Status {
	return s.status
}

// TestHealthz checks the liveness probe.
func TestHealthz(t *testing.T) {
	t.Parallel()

	server := NewServer("127.0.0.1:0", &staticSource{})

	recorder := httptest.NewRecorder()
	server.Routes().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "ok\n", recorder.Body.String())
}

// TestStatusJSON checks the snapshot JSON shape.
func TestStatusJSON(t *testing.T) {
	t.Parallel()

	alertAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	source := &staticSource{status: Status{
		SensorBackend:  "sim",
		LastDistanceCM: 27.5,
		InRange:        true,
		LastAlertAt:    &alertAt,
		AlertsSent:     3,
		SamplesRead:    1200,
		StartedAt:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}}

	server := NewServer("127.0.0.1:0", source)

	recorder := httptest.NewRecorder()
	server.Routes().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var got Status
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, source.status.SensorBackend, got.SensorBackend)
	require.InDelta(t, source.status.LastDistanceCM, got.LastDistanceCM, 0.001)
	require.True(t, got.InRange)
	require.NotNil(t, got.LastAlertAt)
	require.Equal(t, uint64(3), got.AlertsSent)
}

// TestStatusRejectsPost ensures the surface stays read-only.
func TestStatusRejectsPost(t *testing.T) {
	t.Parallel()

	server := NewServer("127.0.0.1:0", &staticSource{})

	recorder := httptest.NewRecorder()
	server.Routes().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/status", nil))

	require.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}
