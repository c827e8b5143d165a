// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/engine"
	"github.com/voxdesk/voxdesk/internal/session/store"
	"github.com/voxdesk/voxdesk/internal/slots"
	"github.com/voxdesk/voxdesk/internal/validation"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	seed := slots.DemoSlots(time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), 7)
	eng, err := engine.New(engine.Options{
		Store:     store.NewMemoryStore(),
		Slots:     slots.NewMemory(seed),
		Validator: validation.New(validation.DefaultCatalogue(), nil),
	})
	require.NoError(t, err)
	return New(eng, cfg)
}

func postTurn(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/turn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTurnEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{}).Handler()
	rec := postTurn(t, h, `{"conversation_id":"conv-1","text":"bonjour, je voudrais un rendez-vous"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var ev dialog.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, dialog.EventFinal, ev.Type)
	assert.NotEmpty(t, ev.Text)
	assert.Equal(t, dialog.StateQualifName, ev.ConvState)
}

func TestTurnEndpointValidation(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{}).Handler()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing conversation id", `{"text":"bonjour"}`, http.StatusBadRequest},
		{"malformed json", `{"conversation_id":`, http.StatusBadRequest},
		{"unknown field", `{"conversation_id":"c","text":"x","audio":"AAA"}`, http.StatusBadRequest},
		{"invalid channel", `{"conversation_id":"c","text":"x","channel":"fax"}`, http.StatusBadRequest},
		{"oversized body", fmt.Sprintf(`{"conversation_id":"c","text":%q}`, strings.Repeat("a", 20<<10)), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postTurn(t, h, tc.body)
			assert.Equal(t, tc.want, rec.Code)

			var resp struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{}).Handler()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRequestIDEchoedAndGenerated(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-abc", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestTurnRateLimit(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, Config{RateLimitPerMinute: 2}).Handler()

	body := `{"conversation_id":"conv-rl","text":"bonjour"}`
	for i := 0; i < 2; i++ {
		rec := postTurn(t, h, body)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := postTurn(t, h, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestPanicRecovery(t *testing.T) {
	t.Parallel()

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()
	recoverer(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("internal_error")))
}
