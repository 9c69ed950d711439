// Package session owns the client's authentication state. All transitions go
// through a Controller, which publishes a snapshot to subscribers after each
// one.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/unigest/unigest/internal/cli/client"
	"github.com/unigest/unigest/internal/cli/credentials"
	"github.com/unigest/unigest/internal/models"
)

// Phase is the position of the session in its state machine
type Phase string

const (
	PhaseUnverified      Phase = "unverified"
	PhaseChecking        Phase = "checking"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseUnauthenticated Phase = "unauthenticated"
)

// ReasonSignedOut is recorded when the user logs out explicitly
const ReasonSignedOut = "Déconnexion"

// State is a snapshot of the session.
// IsAuthenticated implies Token is set.
type State struct {
	Token           string
	User            *models.UserProfile
	IsAuthenticated bool
	Initialized     bool
	Loading         bool
	Phase           Phase

	// Reason explains the last transition to PhaseUnauthenticated
	Reason string
}

// API is the part of the HTTP client the controller calls
type API interface {
	Me(ctx context.Context) (*models.UserProfile, error)
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	Logout(ctx context.Context) error
}

// Controller is safe for concurrent use
type Controller struct {
	store  credentials.Store
	api    API
	logger zerolog.Logger
	flight singleflight.Group

	mu    sync.Mutex
	state State
	// bumped by Login and Logout; a check started in an older epoch is stale
	epoch uint64

	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSubID   int
}

// NewController returns a controller in PhaseUnverified
func NewController(store credentials.Store, api API, log zerolog.Logger) *Controller {
	return &Controller{
		store:       store,
		api:         api,
		logger:      log.With().Str("component", "session").Logger(),
		state:       State{Phase: PhaseUnverified},
		subscribers: make(map[int]func(State)),
	}
}

// State returns the current snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every published snapshot. The returned
// func removes the subscription.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subscribers, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Controller) publish(s State) {
	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// CheckAuth validates the stored credential once per controller lifetime.
// Later calls return the current state without side effects. Concurrent
// callers share the in-flight validation. Failures end in
// PhaseUnauthenticated; CheckAuth never returns an error.
//
// If ctx ends first, CheckAuth returns the current (possibly still checking)
// state while the validation carries on for other waiters.
func (c *Controller) CheckAuth(ctx context.Context) State {
	if s := c.State(); s.Initialized {
		return s
	}

	ch := c.flight.DoChan("check", func() (any, error) {
		c.check(context.WithoutCancel(ctx))
		return nil, nil
	})

	select {
	case <-ch:
	case <-ctx.Done():
	}
	return c.State()
}

func (c *Controller) check(ctx context.Context) {
	c.mu.Lock()
	if c.state.Initialized {
		c.mu.Unlock()
		return
	}
	epoch := c.epoch

	rec, err := c.store.Load()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read stored credentials")
	}
	if err != nil || rec.Empty() {
		c.state = State{Initialized: true, Phase: PhaseUnauthenticated}
		s := c.state
		c.mu.Unlock()
		c.publish(s)
		return
	}

	c.state.Token = rec.AuthToken
	c.state.Loading = true
	c.state.Phase = PhaseChecking
	s := c.state
	c.mu.Unlock()
	c.publish(s)

	user, err := c.api.Me(ctx)

	c.mu.Lock()
	if c.epoch != epoch {
		// Login or Logout ran meanwhile and already settled the state
		c.mu.Unlock()
		return
	}

	if err != nil {
		c.logger.Debug().Err(err).Msg("Stored credentials rejected")
		c.state = State{Initialized: true, Phase: PhaseUnauthenticated, Reason: err.Error()}
	} else {
		if fresh, recErr := credentials.NewRecord(rec.AuthToken, *user); recErr == nil {
			if err := c.store.Save(fresh); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to refresh cached user")
			}
		}
		c.state = State{
			Token:           rec.AuthToken,
			User:            user,
			IsAuthenticated: true,
			Initialized:     true,
			Phase:           PhaseAuthenticated,
		}
	}
	s = c.state
	c.mu.Unlock()
	c.publish(s)
}

// Logout clears the credential store and the session. Calling it while
// already logged out leaves the state as is.
func (c *Controller) Logout(reason string) {
	c.mu.Lock()
	c.epoch++
	if err := c.store.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear credentials")
	}

	if c.state.Initialized && !c.state.IsAuthenticated && c.state.Token == "" && !c.state.Loading {
		c.mu.Unlock()
		return
	}

	c.state = State{Initialized: true, Phase: PhaseUnauthenticated, Reason: reason}
	s := c.state
	c.mu.Unlock()

	c.logger.Info().Str("reason", reason).Msg("Logged out")
	c.publish(s)
}

// Login exchanges credentials for a token and stores it. A rejected login
// leaves the session untouched.
func (c *Controller) Login(ctx context.Context, email, password string) (*models.UserProfile, error) {
	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	rec, err := credentials.NewRecord(resp.Token, resp.User)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.epoch++
	if err := c.store.Save(rec); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	user := resp.User
	c.state = State{
		Token:           resp.Token,
		User:            &user,
		IsAuthenticated: true,
		Initialized:     true,
		Phase:           PhaseAuthenticated,
	}
	s := c.state
	c.mu.Unlock()

	c.logger.Info().Str("email", user.Email).Msg("Logged in")
	c.publish(s)
	return &user, nil
}

// SignOut notifies the server (best effort) and logs out locally
func (c *Controller) SignOut(ctx context.Context) {
	if c.State().Token != "" || credentials.Token(c.store) != "" {
		if err := c.api.Logout(ctx); err != nil {
			c.logger.Debug().Err(err).Msg("Server logout failed")
		}
	}
	c.Logout(ReasonSignedOut)
}
