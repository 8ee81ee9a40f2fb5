package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/storage/memory"
)

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func serveHealth(t *testing.T, store Pinger) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	NewHealthHandler(store, "postgres", time.Now(), logging.NewSilent()).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealth_StorageReachable(t *testing.T) {
	rec, body := serveHealth(t, memory.NewStore())
	assert.Equal(t, http.StatusOK, rec.Code)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "postgres", data["storage"])
}

func TestHealth_StorageDown(t *testing.T) {
	rec, body := serveHealth(t, downStore{})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "storage unavailable", body["message"])
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
