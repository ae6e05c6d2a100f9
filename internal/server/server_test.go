package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/handlers"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestNew_Routes(t *testing.T) {
	e := New(map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, rec.Body.String())

	metrics.ObserveToken("memory", "check", metrics.ResultOK)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "authmail_token_operations_total")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/register", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_RecoversFromPanics(t *testing.T) {
	e := New(map[string]handlers.HealthCheck{
		"broken": func(ctx context.Context) error { panic(errors.New("boom")) },
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
