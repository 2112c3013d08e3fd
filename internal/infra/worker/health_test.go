package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHealthServer(addr string) *HealthServer {
	return NewHealthServer(addr, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func getHealth(t *testing.T, h http.Handler, path string) (int, healthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, body
}

func TestHealthServer_Liveness(t *testing.T) {
	server := newTestHealthServer(":0")

	code, body := getHealth(t, server.Handler(), "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestHealthServer_Readiness(t *testing.T) {
	server := newTestHealthServer(":0")
	h := server.Handler()

	t.Run("TC-1: not ready at start", func(t *testing.T) {
		code, body := getHealth(t, h, "/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not ready", body.Status)
		assert.Nil(t, body.LastRun)
	})

	t.Run("TC-2: ready", func(t *testing.T) {
		server.SetReady(true)

		code, body := getHealth(t, h, "/health/ready")

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("TC-3: last run reported", func(t *testing.T) {
		finished := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		server.RecordRun("degraded", finished)

		_, body := getHealth(t, h, "/health/ready")

		require.NotNil(t, body.LastRun)
		assert.Equal(t, "degraded", body.LastRun.Outcome)
		assert.True(t, finished.Equal(body.LastRun.FinishedAt))
	})

	t.Run("TC-4: back to not ready", func(t *testing.T) {
		server.SetReady(false)

		code, body := getHealth(t, h, "/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, code)
		require.NotNil(t, body.LastRun)
	})
}

func TestHealthServer_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHealthServer(":0").Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthServer_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	server := newTestHealthServer(addr)
	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() { errChan <- server.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-errChan:
		assert.True(t, errors.Is(err, http.ErrServerClosed), "got %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown timeout")
	}

	_, err = http.Get("http://" + addr + "/health")
	assert.Error(t, err)
}

func TestNewHealthServer(t *testing.T) {
	server := newTestHealthServer(":9091")

	assert.Equal(t, ":9091", server.addr)
	assert.NotNil(t, server.logger)
	require.NotNil(t, server.isReady)
	assert.False(t, server.isReady.Load())
}
