package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codesync/codesync/internal/database"
	"github.com/codesync/codesync/internal/server"
	"github.com/codesync/codesync/internal/stats"
	"github.com/codesync/codesync/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestApp(t *testing.T, db database.Store) *CodeSyncApp {
	t.Helper()

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(5)

	logger := testutil.TestLogger(t)
	rs, err := server.NewRelayServer(logger, db, su)
	if err != nil {
		t.Fatalf("failed to create relay server: %v", err)
	}

	return &CodeSyncApp{
		log:            logger,
		db:             db,
		rs:             rs,
		stats:          su,
		allowedOrigins: []string{"*"},
	}
}

func TestHealthCheck(t *testing.T) {
	t.Run("storage reachable", func(t *testing.T) {
		db := &database.MockStore{}
		defer db.AssertExpectations(t)
		db.On("Ping").Return(nil)

		app := newTestApp(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rr := httptest.NewRecorder()
		app.healthCheck(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 when storage is reachable")

		var resp HealthResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), "expected valid JSON response")
		assert.Equal(t, "ok", resp.Status, "expected ok status")
		assert.Equal(t, "connected", resp.Storage, "expected connected storage")
	})

	t.Run("storage unreachable", func(t *testing.T) {
		db := &database.MockStore{}
		defer db.AssertExpectations(t)
		db.On("Ping").Return(errors.New("connection refused"))

		app := newTestApp(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rr := httptest.NewRecorder()
		app.healthCheck(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected 500 when storage is unreachable")

		var resp HealthResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), "expected valid JSON response")
		assert.Equal(t, "fail", resp.Status, "expected fail status")
		assert.Equal(t, "disconnected", resp.Storage, "expected disconnected storage")
	})
}

func TestNewRoomId(t *testing.T) {
	app := newTestApp(t, &database.MockStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/new", nil)
	rr := httptest.NewRecorder()
	app.newRoomId(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "expected 200")

	var resp NewRoomResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), "expected valid JSON response")
	assert.NotEmpty(t, resp.RoomId, "expected a generated room id")

	// ids are unique across calls
	rr2 := httptest.NewRecorder()
	app.newRoomId(rr2, req)
	var resp2 NewRoomResponse
	assert.NoError(t, json.NewDecoder(rr2.Body).Decode(&resp2), "expected valid JSON response")
	assert.NotEqual(t, resp.RoomId, resp2.RoomId, "expected a fresh id per request")
}

func TestServeWs(t *testing.T) {
	app := newTestApp(t, &database.MockStore{})

	srv := httptest.NewServer(http.HandlerFunc(app.serveWs))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err, "expected websocket upgrade to succeed")
	if resp != nil {
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode, "expected protocol switch")
	}
	if conn != nil {
		conn.Close()
	}
}

func TestSpaHandler(t *testing.T) {
	dir := t.TempDir()
	index := []byte("<html>index</html>")
	asset := []byte("console.log('app')")
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), index, 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), asset, 0o644))

	h := spaHandler(dir)

	t.Run("serves existing files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 for an existing asset")
		assert.Equal(t, string(asset), rr.Body.String(), "expected asset contents")
	})

	t.Run("falls back to index.html for client routes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/editor/some-room", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 for a client-side route")
		assert.Equal(t, string(index), rr.Body.String(), "expected index.html fallback")
	})
}
