package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamemaster-scheduling/pickup/internal/auth"
)

func TestRequestIDMiddleware(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := ts.server.Client().Get(ts.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = uuid.Parse(resp.Header.Get(HeaderRequestID))
	assert.NoError(t, err, "generated request id should be a uuid")

	req, err := http.NewRequest(http.MethodGet, ts.server.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(HeaderRequestID, "trace-me")
	resp, err = ts.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-me", resp.Header.Get(HeaderRequestID))
}

func TestRecoverMiddleware(t *testing.T) {
	h := RequestIDMiddleware(RecoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"code":"internal"`)
	assert.NotContains(t, body, "boom")
}

func TestInvalidCredentialsRejected(t *testing.T) {
	ts := setupTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.server.URL+"/games", nil)
	require.NoError(t, err)
	req.Header.Set(auth.HeaderUserID, "not-a-number")
	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMalformedJSON(t *testing.T) {
	ts := setupTestServer(t)
	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/games", strings.NewReader(`{"title":`))
	require.NoError(t, err)
	req.Header.Set(auth.HeaderUserID, "1")
	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
