// Package guard keeps protected commands from running until the session is
// known to be authenticated.
package guard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/unigest/unigest/internal/cli/nav"
	"github.com/unigest/unigest/internal/cli/session"
)

// LoadingMessage is shown while the session is being verified
const LoadingMessage = "Vérification de la session..."

// ErrLoginRequired matches every *RedirectError
var ErrLoginRequired = errors.New("login required")

// Kind says what a guarded view shows
type Kind int

const (
	Loading Kind = iota
	Render
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Outcome is the decision for one snapshot. To and From are set on Redirect.
type Outcome struct {
	Kind Kind
	To   string
	From string
}

// View decides what a view at location shows for s. It shows Loading
// exactly while s is not initialized.
func View(s session.State, loginPath, location string) Outcome {
	switch {
	case !s.Initialized:
		return Outcome{Kind: Loading}
	case s.IsAuthenticated:
		return Outcome{Kind: Render}
	default:
		return Outcome{Kind: Redirect, To: loginPath, From: location}
	}
}

// RedirectError is returned by Protect when the user must log in first
type RedirectError struct {
	To     string
	From   string
	Reason string
}

func (e *RedirectError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s. Connectez-vous avec 'unigest login'.", e.Reason)
	}
	return "Vous n'êtes pas connecté. Connectez-vous avec 'unigest login'."
}

func (e *RedirectError) Is(target error) bool { return target == ErrLoginRequired }

// Session is the part of the session controller the guard reads
type Session interface {
	State() session.State
	CheckAuth(ctx context.Context) session.State
	Subscribe(fn func(session.State)) (cancel func())
}

// Guard wraps protected views
type Guard struct {
	session   Session
	navigator nav.Navigator
	loginPath string
}

// New creates a guard. navigator may be nil.
func New(sess Session, navigator nav.Navigator) *Guard {
	return &Guard{session: sess, navigator: navigator, loginPath: nav.LoginPath}
}

// Mount is one guarded view instance
type Mount struct {
	guard    *Guard
	location string
	render   func(Outcome)

	settled    chan struct{}
	settleOnce sync.Once
	unsub      func()
}

// Mount shows the view at location and re-renders on every session change.
// If the session is not initialized yet, the mount triggers one CheckAuth
// in the background; later renders never trigger another.
func (g *Guard) Mount(ctx context.Context, location string, render func(Outcome)) *Mount {
	m := &Mount{
		guard:    g,
		location: location,
		render:   render,
		settled:  make(chan struct{}),
	}
	m.unsub = g.session.Subscribe(func(session.State) { m.Rerender() })
	m.Rerender()

	if !g.session.State().Initialized {
		go g.session.CheckAuth(ctx)
	}
	return m
}

// Outcome returns the decision for the current session state
func (m *Mount) Outcome() Outcome {
	return View(m.guard.session.State(), m.guard.loginPath, m.location)
}

// Rerender renders the current decision again
func (m *Mount) Rerender() {
	o := m.Outcome()
	if m.render != nil {
		m.render(o)
	}
	if o.Kind != Loading {
		m.settleOnce.Do(func() { close(m.settled) })
	}
}

// Wait blocks until the view leaves Loading
func (m *Mount) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-m.settled:
		return m.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Unmount stops re-rendering
func (m *Mount) Unmount() {
	m.unsub()
}

// Protect runs run once the session is authenticated. While the session is
// checked, LoadingMessage is written to indicator once (nil disables it).
// An unauthenticated session navigates to the login view and returns a
// *RedirectError carrying location.
func (g *Guard) Protect(ctx context.Context, location string, indicator io.Writer, run func() error) error {
	var shown sync.Once
	m := g.Mount(ctx, location, func(o Outcome) {
		if o.Kind == Loading && indicator != nil {
			shown.Do(func() { fmt.Fprintln(indicator, LoadingMessage) })
		}
	})
	defer m.Unmount()

	o, err := m.Wait(ctx)
	if err != nil {
		return err
	}

	if o.Kind == Render {
		return run()
	}

	if g.navigator != nil {
		g.navigator.Navigate(o.To, o.From)
	}
	return &RedirectError{To: o.To, From: o.From, Reason: g.session.State().Reason}
}
