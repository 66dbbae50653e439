package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
	"github.com/DoyleJ11/entry-lobby/internal/hub"
	wire "github.com/DoyleJ11/entry-lobby/pkg/types"
)

func newTestRouter(t *testing.T) (http.Handler, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, hub.Options{Config: engine.DefaultConfig(), Clock: clockwork.NewFakeClock()})
	return SetupRoutes(h, []string{"http://localhost:3000"}, nil), h
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStats(t *testing.T) {
	router, h := newTestRouter(t)

	reply := make(chan hub.ConnectResult, 1)
	h.Inbox() <- hub.Connect{ID: "A", Outbox: make(chan wire.Frame, 1), Reply: reply}
	require.NoError(t, (<-reply).Err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var stats hub.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, hub.Stats{Clients: 1, Host: "A", TickRate: 30}, stats)
}

func TestStats_RelayStopped(t *testing.T) {
	router, h := newTestRouter(t)
	h.Inbox() <- hub.ShutdownHub{}
	<-h.Done()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOriginPatterns(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"wildcard", []string{"*"}, []string{"*"}},
		{"urls", []string{"http://localhost:3000", "https://entry.example"}, []string{"localhost:3000", "entry.example"}},
		{"invalid skipped", []string{"localhost"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, originPatterns(tt.in))
		})
	}
}
