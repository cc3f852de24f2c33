package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenterAuth(t *testing.T) {
	app := setupTestApp(t)

	resp := app.post(t, "/auth/presenter", map[string]string{"key": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.post(t, "/api/polls", map[string]any{"question": "q?"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.post(t, "/auth/presenter", map[string]string{"key": presenterKey}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "access_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	req, err := http.NewRequest(http.MethodPost, app.Server.URL+"/api/polls/active/close", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err = app.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRemoveRespondent(t *testing.T) {
	app := setupTestApp(t)

	resp := app.post(t, "/api/respondents", map[string]string{"name": "Ada"}, "ada-session")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.request(t, http.MethodDelete, "/api/respondents/ada-session", nil, "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.request(t, http.MethodDelete, "/api/respondents/ada-session", nil, "", true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = app.get(t, "/api/respondents")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var roster []map[string]any
	app.decode(t, resp, &roster)
	assert.Empty(t, roster)
}
