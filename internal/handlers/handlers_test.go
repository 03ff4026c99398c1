package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamemaster-scheduling/pickup/internal/auth"
	"github.com/gamemaster-scheduling/pickup/internal/games"
	"github.com/gamemaster-scheduling/pickup/internal/models"
	"github.com/gamemaster-scheduling/pickup/internal/rsvp"
	"github.com/gamemaster-scheduling/pickup/internal/testutil"
)

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

// testServer holds a running API and its dependencies.
type testServer struct {
	server *httptest.Server
	db     *sqlx.DB
	clock  *testutil.Clock
}

// setupTestServer starts the API over an in-memory database with header auth.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.OpenDB(t)
	clock := testutil.NewClock(testNow)

	router := NewRouter(Deps{
		DB:    db,
		Games: games.NewService(db, games.WithClock(clock.Now)),
		RSVPs: rsvp.NewEngine(db, rsvp.WithClock(clock.Now)),
		Authn: auth.HeaderAuthenticator{},
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{server: server, db: db, clock: clock}
}

// do sends a request as userID (0 for anonymous) and returns the status and body.
func (ts *testServer) do(t *testing.T, method, path string, userID int64, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, rd)
	require.NoError(t, err)
	if userID != 0 {
		id := strconv.FormatInt(userID, 10)
		req.Header.Set(auth.HeaderUserID, id)
		req.Header.Set(auth.HeaderUserName, "user"+id)
		req.Header.Set(auth.HeaderUserEmail, "user"+id+"@example.com")
	}
	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), "body: %s", data)
	return v
}

func requireError(t *testing.T, status int, data []byte, wantStatus int, wantCode string) {
	t.Helper()
	require.Equal(t, wantStatus, status, "body: %s", data)
	e := decode[errorResponse](t, data)
	assert.Equal(t, wantCode, e.Code)
	assert.NotEmpty(t, e.Error)
}

func gameBody(capacity int) map[string]any {
	return map[string]any{
		"title":        "Thursday Hoops",
		"sport_type":   "Basketball",
		"location":     "Eastside Gym",
		"scheduled_at": testNow.Add(48 * time.Hour).Format(time.RFC3339),
		"timezone":     "America/New_York",
		"max_capacity": capacity,
		"description":  "Full court, bring a light and a dark shirt",
	}
}

func (ts *testServer) createGame(t *testing.T, organizer int64, capacity int) *models.Game {
	t.Helper()
	status, data := ts.do(t, http.MethodPost, "/games", organizer, gameBody(capacity))
	require.Equal(t, http.StatusCreated, status, "body: %s", data)
	return decode[*models.Game](t, data)
}

func (ts *testServer) rsvp(t *testing.T, gameID, userID int64) *models.RSVP {
	t.Helper()
	status, data := ts.do(t, http.MethodPost, "/games/"+strconv.FormatInt(gameID, 10)+"/rsvps", userID, nil)
	require.Equal(t, http.StatusCreated, status, "body: %s", data)
	return decode[*models.RSVP](t, data)
}

func gamePath(id int64) string { return "/games/" + strconv.FormatInt(id, 10) }
func rsvpPath(id int64) string { return "/rsvps/" + strconv.FormatInt(id, 10) }
