package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/unigest/unigest/internal/config"
	"github.com/unigest/unigest/internal/server"
)

// API is a running Unigest server backed by a throwaway SQLite file
type API struct {
	URL      string
	JWTToken string // Set with Login, used by APICall
}

// StartAPI boots the real server in-process. Redis is never dialed unless a
// notification is queued.
func StartAPI(t *testing.T) *API {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "0",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Database: config.DatabaseConfig{
			URL: filepath.Join(t.TempDir(), "unigest.sqlite"),
		},
		Redis: config.RedisConfig{
			Address: "127.0.0.1:1",
		},
		Auth: config.AuthConfig{
			JWTSecret: "e2e-secret",
			TokenTTL:  time.Hour,
		},
	}

	srv, err := server.New(cfg, zerolog.Nop(), "e2e")
	require.NoError(t, err, "Failed to start server")

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	t.Logf("API ready at %s", ts.URL)
	return &API{URL: ts.URL}
}

// Login stores a token for later APICall invocations
func (a *API) Login(t *testing.T, email, password string) {
	t.Helper()

	resp := a.APICall(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	token, ok := resp["token"].(string)
	require.True(t, ok, "login response has no token: %v", resp)
	a.JWTToken = token
}

// APICall makes an API call and decodes a JSON object response
func (a *API) APICall(t *testing.T, method, path string, body interface{}) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	a.do(t, method, path, body, &result)
	return result
}

// APICallList makes an API call and decodes a JSON array response
func (a *API) APICallList(t *testing.T, method, path string, body interface{}) []map[string]interface{} {
	t.Helper()

	var result []map[string]interface{}
	a.do(t, method, path, body, &result)
	return result
}

func (a *API) do(t *testing.T, method, path string, body interface{}, out interface{}) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if a.JWTToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.JWTToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Less(t, resp.StatusCode, 300, "%s %s failed (%d): %s", method, path, resp.StatusCode, respBody)

	if len(respBody) > 0 {
		require.NoError(t, json.Unmarshal(respBody, out), "Failed to parse response: %s", respBody)
	}
}
