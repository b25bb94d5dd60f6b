package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/toolrelay/toolrelay/internal/handler"
	"github.com/toolrelay/toolrelay/internal/health"
	"github.com/toolrelay/toolrelay/internal/middleware"
	"github.com/toolrelay/toolrelay/internal/provider"
)

type countingChecker struct{ calls atomic.Int64 }

func (c *countingChecker) TestConnection(context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestProvidersRefresh(t *testing.T) {
	tests := []struct {
		name            string
		refreshNeedsKey bool
		key             string
		wantChecks      int64
	}{
		{"auth disabled", false, "", 1},
		{"anonymous caller", true, "", 0},
		{"wrong key", true, "nope", 0},
		{"valid key", true, "secret", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &countingChecker{}
			prober := health.NewProber(map[string]provider.Checker{"database": c}, time.Second)
			h := handler.NewHealthHandler(nil, prober, tt.refreshNeedsKey)
			srv := middleware.Auth([]string{"secret"}, "X-API-Key")(http.HandlerFunc(h.Providers))

			req := httptest.NewRequest(http.MethodGet, "/health/providers?refresh=1", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if n := c.calls.Load(); n != tt.wantChecks {
				t.Errorf("checks = %d, want %d", n, tt.wantChecks)
			}
			var body struct {
				Probes []health.Probe `json:"probes"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if int64(len(body.Probes)) != tt.wantChecks {
				t.Errorf("probes = %+v", body.Probes)
			}
		})
	}
}
