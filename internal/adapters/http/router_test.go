package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/dicetable/internal/adapters/signal"
	"github.com/dkeye/dicetable/internal/app"
	"github.com/dkeye/dicetable/internal/auth"
	"github.com/dkeye/dicetable/internal/config"
	"github.com/dkeye/dicetable/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine *gin.Engine
	router *app.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureMode(t, "test")
}

func newFixtureMode(t *testing.T, mode string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })
	cfg := &config.Config{
		Mode:       mode,
		Secret:     "cookie-secret",
		StaticPath: t.TempDir(),
	}
	hub := signal.NewHub(nil)
	router := app.NewRouter(app.Options{Sink: hub})
	tokens, err := auth.NewJWTProvider("jwt-secret", "dicetable", time.Hour)
	require.NoError(t, err)

	engine := SetupRouter(context.Background(), cfg, Services{
		Router: router,
		Hub:    hub,
		Store:  store.NewMemory(),
		Tokens: tokens,
	})
	return &fixture{engine: engine, router: router}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"ok"`)
}

func TestClientTokenCookieIsIssued(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", "")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "DiceTableSessions=")
}

func TestRoomsAndRoster(t *testing.T) {
	f := newFixture(t)
	f.router.Connect("gm", nil, "")
	f.router.Handle("gm", app.EventGMJoinRoom, []byte(`{"roomCode":"ABCD1234"}`))
	f.router.Connect("p", nil, "")
	f.router.Handle("p", app.EventPlayerJoinRoom, []byte(`{"roomCode":"ABCD1234","playerName":"Alice"}`))

	w := f.do(t, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "ABCD1234", rooms[0]["roomCode"])
	assert.Equal(t, true, rooms[0]["hasGm"])

	w = f.do(t, http.MethodGet, "/api/rooms/ABCD1234/roster", "")
	require.Equal(t, http.StatusOK, w.Code)
	var roster RosterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roster))
	require.Len(t, roster.Players, 1)
	assert.Equal(t, "Alice", roster.Players[0].PlayerName)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/rooms/NOPE/roster", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/rooms/constructor/roster", "").Code)
}

func TestRecordLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/records/sheets/s1", `{"roomId":"ABCD1234","data":{"name":"Lyra"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/records/sheets/s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec store.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.JSONEq(t, `{"name":"Lyra"}`, string(rec.Data))
	assert.Equal(t, "ABCD1234", rec.RoomID)

	w = f.do(t, http.MethodGet, "/api/rooms/ABCD1234/records/sheets", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []store.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/records/sheets/s1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/records/sheets/s1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/records/sheets/s1", "").Code)
}

func TestRecordValidation(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/records/spells/x", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/records/monsters/m1", `{"roomId":"R"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/records/monsters/m1", `not json`).Code)
}

func TestIssueToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/token", `{"displayName":"Morgan","userId":"u-9"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Morgan", resp.Identity.DisplayName)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/auth/token", `{}`).Code)
}

func TestIssueTokenDisabledInRelease(t *testing.T) {
	f := newFixtureMode(t, "release")

	w := f.do(t, http.MethodPost, "/api/auth/token", `{"displayName":"Mallory","userId":"someone-else"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "token")

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)
}
