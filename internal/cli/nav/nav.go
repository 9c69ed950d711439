// Package nav tracks the client's current view and performs redirects.
package nav

import "sync"

// LoginPath is the location of the login view
const LoginPath = "login"

// Navigator moves the client between views.
// Navigate reports false when the client is already at to.
type Navigator interface {
	Location() string
	Navigate(to, from string) bool
}

// History is a goroutine-safe Navigator remembering where a redirect to the
// login view came from.
type History struct {
	mu         sync.Mutex
	current    string
	returnTo   string
	onNavigate func(to, from string)
}

// NewHistory starts at location. onNavigate, if set, runs after every
// effective navigation, outside the lock.
func NewHistory(location string, onNavigate func(to, from string)) *History {
	return &History{current: location, onNavigate: onNavigate}
}

// Location returns the current view
func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Navigate moves to to. Navigating to the current location is a no-op, so
// any number of concurrent redirects to the login view collapse into one.
func (h *History) Navigate(to, from string) bool {
	h.mu.Lock()
	if h.current == to {
		h.mu.Unlock()
		return false
	}
	h.current = to
	if to == LoginPath && from != "" && from != LoginPath {
		h.returnTo = from
	}
	cb := h.onNavigate
	h.mu.Unlock()

	if cb != nil {
		cb(to, from)
	}
	return true
}

// ReturnTo returns the location a login redirect originated from, or ""
func (h *History) ReturnTo() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.returnTo
}
