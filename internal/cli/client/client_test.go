package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unigest/unigest/internal/cli/credentials"
	"github.com/unigest/unigest/internal/cli/nav"
	"github.com/unigest/unigest/internal/models"
)

// recordingExpiry counts forced logouts
type recordingExpiry struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recordingExpiry) Logout(reason string) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
}

func (r *recordingExpiry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

type fixture struct {
	client    *Client
	store     *credentials.MemoryStore
	expiry    *recordingExpiry
	history   *nav.History
	redirects *int32Counter
}

type int32Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int32Counter) inc() { c.mu.Lock(); c.n++; c.mu.Unlock() }

func (c *int32Counter) get() int { c.mu.Lock(); defer c.mu.Unlock(); return c.n }

func newFixture(t *testing.T, handler http.Handler, token string, opts ...Option) *fixture {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f := &fixture{
		store:     credentials.NewMemoryStore(credentials.Record{AuthToken: token}),
		expiry:    &recordingExpiry{},
		redirects: &int32Counter{},
	}
	f.history = nav.NewHistory("students ls", func(to, from string) { f.redirects.inc() })

	opts = append([]Option{WithNavigator(f.history, nav.LoginPath)}, opts...)
	f.client = New(srv.URL, f.store, opts...)
	f.client.OnSessionExpired(f.expiry)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestBearerTokenAttachedWhenStored(t *testing.T) {
	var gotAuth string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []models.Faculty{{Code: "FST", Name: "Sciences et Techniques"}})
	}), "abc123")

	faculties, err := f.client.ListFaculties(context.Background())
	require.NoError(t, err)
	assert.Len(t, faculties, 1)
	assert.Equal(t, "Bearer abc123", gotAuth)
}

func TestBearerStageDoesNotMutateCallerRequest(t *testing.T) {
	var gotTrace, gotAuth string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get("X-Trace")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}), "abc123")

	req, err := f.client.NewRequest(context.Background(), http.MethodGet, "/api/faculties", nil)
	require.NoError(t, err)
	req.Header.Set("X-Trace", "t-1")

	require.NoError(t, f.client.Do(req, nil))

	assert.Equal(t, "t-1", gotTrace)
	assert.Equal(t, "Bearer abc123", gotAuth)
	assert.Empty(t, req.Header.Get("Authorization"), "caller's request is left untouched")
	assert.Equal(t, "t-1", req.Header.Get("X-Trace"))
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	var hadAuth bool
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		writeJSON(w, http.StatusOK, []models.Faculty{})
	}), "")

	_, err := f.client.ListFaculties(context.Background())
	require.NoError(t, err)
	assert.False(t, hadAuth)
}

func TestLoginWithWrongPasswordKeepsSession(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}), "abc123")

	_, err := f.client.Login(context.Background(), "prof@univ.test", "wrong-password")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Message)
	assert.False(t, errors.Is(err, ErrSessionExpired))

	assert.Equal(t, "abc123", credentials.Token(f.store), "credential store unchanged")
	assert.Zero(t, f.expiry.count(), "logout not invoked")
	assert.Zero(t, f.redirects.get(), "no redirect")
	assert.Equal(t, "students ls", f.history.Location())
}

func TestAllowListedEndpointsNeverExpireSession(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Mot de passe incorrect"})
	}), "abc123")

	err := f.client.VerifyPassword(context.Background(), "not-my-password")
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	_, err = f.client.Register(context.Background(), RegisterRequest{
		Email: "new@univ.test", Password: "longenough", FirstName: "A", LastName: "B", Role: models.RoleProfesseur,
	})
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	assert.Equal(t, "abc123", credentials.Token(f.store))
	assert.Zero(t, f.expiry.count())
}

func TestUnauthorizedElsewhereExpiresSession(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
	}), "expired-token")
	f.client.SetDefaultHeader("Authorization", "Bearer expired-token")

	_, err := f.client.ListStudents(context.Background(), StudentFilter{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionExpired), "caller still receives the rejection")
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	assert.Equal(t, "", credentials.Token(f.store), "credential store cleared")
	assert.Empty(t, f.client.DefaultHeader("Authorization"), "default authorization removed")
	assert.Equal(t, []string{ReasonSessionExpired}, f.expiry.reasons)
	assert.Equal(t, nav.LoginPath, f.history.Location())
	assert.Equal(t, "students ls", f.history.ReturnTo(), "originating location preserved")
	assert.Equal(t, 1, f.redirects.get())
}

func TestConcurrentExpiredRequestsRedirectOnce(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
	}), "expired-token")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.client.ListStudents(context.Background(), StudentFilter{})
			assert.ErrorIs(t, err, ErrSessionExpired)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.redirects.get())
	assert.Equal(t, nav.LoginPath, f.history.Location())
}

func TestTimeoutIsConnectivityError(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), "abc123", WithTimeout(50*time.Millisecond))

	_, err := f.client.ListStudents(context.Background(), StudentFilter{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectivity))
	var connErr *ConnectivityError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "/api/students", connErr.Path)

	assert.Equal(t, "abc123", credentials.Token(f.store), "credential store unchanged")
	assert.Zero(t, f.expiry.count(), "session untouched")
	assert.Equal(t, "students ls", f.history.Location())
}

func TestOtherErrorStatusesPropagate(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/students/missing":
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Étudiant introuvable"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}), "abc123")

	_, err := f.client.GetStudent(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Contains(t, err.Error(), "Étudiant introuvable")

	_, err = f.client.ListFaculties(context.Background())
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))

	assert.Equal(t, "abc123", credentials.Token(f.store))
	assert.Zero(t, f.expiry.count())
}

func TestStagesCanShortCircuit(t *testing.T) {
	blocked := errors.New("read-only mode")
	readOnly := func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Method != http.MethodGet {
				return nil, blocked
			}
			return next.RoundTrip(r)
		})
	}

	var hits int
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	}), "abc123", WithStages(readOnly))

	err := f.client.SendNotification(context.Background(), NotificationRequest{
		Recipient: "a@univ.test", Subject: "s", Body: "b",
	})
	assert.ErrorIs(t, err, blocked)
	assert.Zero(t, hits)
}

func TestRequestSchemasValidatedBeforeSending(t *testing.T) {
	var hits int
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}), "")

	_, err := f.client.Login(context.Background(), "not-an-email", "pw")
	require.Error(t, err)
	assert.Zero(t, hits)
}

func TestAllowListMatchesSegments(t *testing.T) {
	c := New("http://unused", credentials.NewMemoryStore(credentials.Record{}))

	tests := []struct {
		path string
		want bool
	}{
		{"/api/auth/login", true},
		{"/api/auth/register", true},
		{"/api/auth/verify-password", true},
		{"/api/auth/login/", true},
		{"/api/auth/login-history", false},
		{"/api/auth/logout", false},
		{"/api/students", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, c.allowListed(tt.path))
		})
	}
}

func TestBearerTokenStaysOnAPIHost(t *testing.T) {
	var foreignAuth []string
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignAuth = append(foreignAuth, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []models.Faculty{})
	}))
	t.Cleanup(foreign.Close)

	var apiAuth []string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiAuth = append(apiAuth, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/faculties":
			http.Redirect(w, r, "/api/faculties/v2", http.StatusFound)
		case "/api/faculties/v2":
			http.Redirect(w, r, foreign.URL+"/collect", http.StatusFound)
		}
	}), "abc123")

	_, err := f.client.ListFaculties(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer abc123", "Bearer abc123"}, apiAuth, "same-host hops keep the token")
	assert.Equal(t, []string{""}, foreignAuth, "token never leaves the API host")
}

func TestUnauthorizedForForeignHostKeepsSession(t *testing.T) {
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "who are you"})
	}))
	t.Cleanup(foreign.Close)

	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, foreign.URL, http.StatusFound)
	}), "abc123")

	_, err := f.client.ListFaculties(context.Background())
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	assert.Equal(t, "abc123", credentials.Token(f.store))
	assert.Zero(t, f.expiry.count())
	assert.Zero(t, f.redirects.get())
}

func TestStaleUnauthorizedKeepsNewerLogin(t *testing.T) {
	var f *fixture
	f = newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A new login lands while the old-token request is in flight
		assert.NoError(t, f.store.Save(credentials.Record{AuthToken: "new-token"}))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
	}), "old-token")

	_, err := f.client.ListStudents(context.Background(), StudentFilter{})
	assert.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, "new-token", credentials.Token(f.store), "newer credentials survive")
	assert.Zero(t, f.expiry.count())
	assert.Zero(t, f.redirects.get())
	assert.Equal(t, "students ls", f.history.Location())
}

func TestConcurrentExpiredRequestsLogoutOnce(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
	}), "expired-token")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.client.ListStudents(context.Background(), StudentFilter{})
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{ReasonSessionExpired}, f.expiry.reasons)
	assert.Empty(t, credentials.Token(f.store))
}
