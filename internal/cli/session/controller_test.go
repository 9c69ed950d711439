package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unigest/unigest/internal/cli/client"
	"github.com/unigest/unigest/internal/cli/credentials"
	"github.com/unigest/unigest/internal/cli/nav"
	"github.com/unigest/unigest/internal/models"
)

var testUser = models.UserProfile{
	ID:        "01HZX0000000000000000000AB",
	Email:     "secretariat@univ.test",
	FirstName: "Awa",
	LastName:  "Diallo",
	Role:      models.RoleSecretaire,
	Status:    models.AccountActif,
}

// fakeAPI answers Me from a function and counts calls
type fakeAPI struct {
	meCalls     atomic.Int32
	me          func(ctx context.Context) (*models.UserProfile, error)
	login       func(email, password string) (*client.LoginResponse, error)
	logoutCalls atomic.Int32
}

func (f *fakeAPI) Me(ctx context.Context) (*models.UserProfile, error) {
	f.meCalls.Add(1)
	return f.me(ctx)
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*client.LoginResponse, error) {
	return f.login(email, password)
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.logoutCalls.Add(1)
	return nil
}

func okMe(ctx context.Context) (*models.UserProfile, error) {
	u := testUser
	return &u, nil
}

func TestCheckAuthWithValidToken(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Record{AuthToken: "abc123"})
	api := &fakeAPI{me: okMe}
	ctrl := NewController(store, api, zerolog.Nop())

	state := ctrl.CheckAuth(context.Background())

	assert.Equal(t, PhaseAuthenticated, state.Phase)
	assert.True(t, state.IsAuthenticated)
	assert.True(t, state.Initialized)
	assert.False(t, state.Loading)
	assert.Equal(t, "abc123", state.Token)
	require.NotNil(t, state.User)
	assert.Equal(t, testUser.Email, state.User.Email)

	rec, err := store.Load()
	require.NoError(t, err)
	cached, err := rec.User()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, testUser.ID, cached.ID, "cached user refreshed")
}

func TestCheckAuthWithoutTokenSkipsNetwork(t *testing.T) {
	api := &fakeAPI{me: okMe}
	ctrl := NewController(credentials.NewMemoryStore(credentials.Record{}), api, zerolog.Nop())

	state := ctrl.CheckAuth(context.Background())

	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.False(t, state.IsAuthenticated)
	assert.True(t, state.Initialized)
	assert.Zero(t, api.meCalls.Load())
}

func TestCheckAuthAbsorbsFailures(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Record{AuthToken: "abc123"})
	api := &fakeAPI{me: func(ctx context.Context) (*models.UserProfile, error) {
		return nil, &client.ConnectivityError{Method: "GET", Path: "/api/auth/me", Err: context.DeadlineExceeded}
	}}
	ctrl := NewController(store, api, zerolog.Nop())

	state := ctrl.CheckAuth(context.Background())

	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.True(t, state.Initialized)
	assert.False(t, state.Loading)
	assert.Nil(t, state.User)
	assert.NotEmpty(t, state.Reason)
}

func TestCheckAuthFastPathOnceInitialized(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Record{AuthToken: "abc123"})
	api := &fakeAPI{me: okMe}
	ctrl := NewController(store, api, zerolog.Nop())

	first := ctrl.CheckAuth(context.Background())
	second := ctrl.CheckAuth(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), api.meCalls.Load())
}

func TestConcurrentCheckAuthSharesOneValidation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var startOnce sync.Once

	store := credentials.NewMemoryStore(credentials.Record{AuthToken: "abc123"})
	api := &fakeAPI{me: func(ctx context.Context) (*models.UserProfile, error) {
		startOnce.Do(func() { close(started) })
		<-release
		return okMe(ctx)
	}}
	ctrl := NewController(store, api, zerolog.Nop())

	results := make(chan State, 5)
	go func() { results <- ctrl.CheckAuth(context.Background()) }()
	<-started

	checking := ctrl.State()
	assert.Equal(t, PhaseChecking, checking.Phase)
	assert.True(t, checking.Loading)
	assert.False(t, checking.Initialized)

	for i := 0; i < 4; i++ {
		go func() { results <- ctrl.CheckAuth(context.Background()) }()
	}
	close(release)

	for i := 0; i < 5; i++ {
		state := <-results
		assert.Equal(t, PhaseAuthenticated, state.Phase)
	}
	assert.Equal(t, int32(1), api.meCalls.Load())
}

func TestCheckAuthReturnsWhenCallerContextEnds(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	store := credentials.NewMemoryStore(credentials.Record{AuthToken: "abc123"})
	api := &fakeAPI{me: func(ctx context.Context) (*models.UserProfile, error) {
		<-release
		return okMe(ctx)
	}}
	ctrl := NewController(store, api, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := ctrl.CheckAuth(ctx)
	assert.False(t, state.IsAuthenticated)
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Record{AuthToken: "abc123"})
	ctrl := NewController(store, &fakeAPI{me: okMe}, zerolog.Nop())
	ctrl.CheckAuth(context.Background())

	var published []State
	cancel := ctrl.Subscribe(func(s State) { published = append(published, s) })
	defer cancel()

	ctrl.Logout(client.ReasonSessionExpired)
	once := ctrl.State()
	ctrl.Logout(ReasonSignedOut)
	twice := ctrl.State()

	assert.Equal(t, once, twice)
	assert.Equal(t, PhaseUnauthenticated, twice.Phase)
	assert.True(t, twice.Initialized)
	assert.False(t, twice.IsAuthenticated)
	assert.Empty(t, twice.Token)
	assert.Equal(t, client.ReasonSessionExpired, twice.Reason)
	assert.Len(t, published, 1)
	assert.Empty(t, credentials.Token(store))
}

func TestLogoutBeforeCheckMarksInitialized(t *testing.T) {
	api := &fakeAPI{me: okMe}
	ctrl := NewController(credentials.NewMemoryStore(credentials.Record{AuthToken: "abc123"}), api, zerolog.Nop())

	ctrl.Logout(ReasonSignedOut)
	state := ctrl.CheckAuth(context.Background())

	assert.True(t, state.Initialized)
	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.Zero(t, api.meCalls.Load())
}

func TestLogoutDuringCheckWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	store := credentials.NewMemoryStore(credentials.Record{AuthToken: "abc123"})
	api := &fakeAPI{me: func(ctx context.Context) (*models.UserProfile, error) {
		close(started)
		<-release
		return okMe(ctx)
	}}
	ctrl := NewController(store, api, zerolog.Nop())

	done := make(chan State)
	go func() { done <- ctrl.CheckAuth(context.Background()) }()
	<-started

	ctrl.Logout(ReasonSignedOut)
	close(release)

	state := <-done
	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.False(t, state.IsAuthenticated)
	assert.Empty(t, credentials.Token(store))
}

func TestLogin(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Record{})
	api := &fakeAPI{
		me: okMe,
		login: func(email, password string) (*client.LoginResponse, error) {
			if password != "bonmotdepasse" {
				return nil, &client.APIError{Status: http.StatusUnauthorized, Message: "Email ou mot de passe invalide"}
			}
			return &client.LoginResponse{Token: "fresh-token", User: testUser}, nil
		},
	}
	ctrl := NewController(store, api, zerolog.Nop())

	t.Run("wrong password leaves session alone", func(t *testing.T) {
		_, err := ctrl.Login(context.Background(), testUser.Email, "mauvais")
		assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))
		assert.Equal(t, PhaseUnverified, ctrl.State().Phase)
		assert.Empty(t, credentials.Token(store))
	})

	t.Run("success stores the record", func(t *testing.T) {
		var got State
		cancel := ctrl.Subscribe(func(s State) { got = s })
		defer cancel()

		user, err := ctrl.Login(context.Background(), testUser.Email, "bonmotdepasse")
		require.NoError(t, err)
		assert.Equal(t, testUser.Email, user.Email)

		assert.Equal(t, PhaseAuthenticated, got.Phase)
		assert.Equal(t, "fresh-token", got.Token)
		assert.Equal(t, "fresh-token", credentials.Token(store))
	})
}

func TestSignOut(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Record{AuthToken: "abc123"})
	api := &fakeAPI{me: okMe}
	ctrl := NewController(store, api, zerolog.Nop())
	ctrl.CheckAuth(context.Background())

	ctrl.SignOut(context.Background())
	ctrl.SignOut(context.Background())

	assert.Equal(t, int32(1), api.logoutCalls.Load(), "server told once")
	assert.Equal(t, ReasonSignedOut, ctrl.State().Reason)
}

func TestSubscribeCancel(t *testing.T) {
	ctrl := NewController(credentials.NewMemoryStore(credentials.Record{}), &fakeAPI{me: okMe}, zerolog.Nop())

	var calls int
	cancel := ctrl.Subscribe(func(State) { calls++ })
	cancel()
	cancel()

	ctrl.CheckAuth(context.Background())
	assert.Zero(t, calls)
}

// wired exercises the controller behind a real client and server
type wired struct {
	ctrl    *Controller
	api     *client.Client
	store   *credentials.MemoryStore
	history *nav.History
	meHits  atomic.Int32
	navs    atomic.Int32
}

func newWired(t *testing.T, token string, handler func(w http.ResponseWriter, r *http.Request)) *wired {
	t.Helper()
	w := &wired{store: credentials.NewMemoryStore(credentials.Record{AuthToken: token})}

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/me" {
			w.meHits.Add(1)
		}
		handler(rw, r)
	}))
	t.Cleanup(srv.Close)

	w.history = nav.NewHistory("students ls", func(to, from string) { w.navs.Add(1) })
	w.api = client.New(srv.URL, w.store, client.WithNavigator(w.history, nav.LoginPath))
	w.ctrl = NewController(w.store, w.api, zerolog.Nop())
	w.api.OnSessionExpired(w.ctrl)
	return w
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestWiredCheckAuthAgainstServer(t *testing.T) {
	w := newWired(t, "abc123", func(rw http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc123" {
			respond(rw, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			return
		}
		respond(rw, http.StatusOK, testUser)
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.ctrl.CheckAuth(context.Background())
		}()
	}
	wg.Wait()

	state := w.ctrl.State()
	assert.Equal(t, PhaseAuthenticated, state.Phase)
	assert.True(t, state.IsAuthenticated)
	assert.True(t, state.Initialized)
	assert.Equal(t, int32(1), w.meHits.Load())
}

func TestWiredExpiredTokenOnStudents(t *testing.T) {
	w := newWired(t, "expired-token", func(rw http.ResponseWriter, r *http.Request) {
		respond(rw, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
	})

	_, err := w.api.ListStudents(context.Background(), client.StudentFilter{})
	require.True(t, errors.Is(err, client.ErrSessionExpired))

	state := w.ctrl.State()
	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.True(t, state.Initialized)
	assert.Equal(t, client.ReasonSessionExpired, state.Reason)
	assert.Empty(t, credentials.Token(w.store))
	assert.Equal(t, int32(1), w.navs.Load())
	assert.Equal(t, nav.LoginPath, w.history.Location())
}

func TestWiredCheckAuthWithExpiredToken(t *testing.T) {
	w := newWired(t, "expired-token", func(rw http.ResponseWriter, r *http.Request) {
		respond(rw, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
	})

	state := w.ctrl.CheckAuth(context.Background())

	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.True(t, state.Initialized)
	assert.False(t, state.Loading)
	assert.Empty(t, credentials.Token(w.store))
}

func TestWiredTimeoutLeavesSession(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	w := newWired(t, "abc123", func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/me" {
			respond(rw, http.StatusOK, testUser)
			return
		}
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	before := w.ctrl.CheckAuth(context.Background())
	require.True(t, before.IsAuthenticated)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := w.api.ListStudents(ctx, client.StudentFilter{})

	assert.True(t, errors.Is(err, client.ErrConnectivity))
	assert.Equal(t, before, w.ctrl.State())
	assert.Equal(t, "abc123", credentials.Token(w.store))
}
