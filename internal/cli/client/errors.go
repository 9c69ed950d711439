package client

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectivity matches every failure where no response was received
	ErrConnectivity = errors.New("connectivity failure")

	// ErrSessionExpired matches 401 responses that ended the session
	ErrSessionExpired = errors.New("session expired")

	ErrDocumentTooLarge = errors.New("document exceeds the download limit")
)

// ReasonSessionExpired is passed to the expiry handler on forced logout
const ReasonSessionExpired = "Session expirée"

// ConnectivityError reports a request that got no response (timeout, DNS,
// refused connection, cancelled context).
type ConnectivityError struct {
	Method string
	Path   string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return "Impossible de joindre le serveur. Vérifiez votre connexion et réessayez."
}

// Detail includes the underlying transport error, for logs
func (e *ConnectivityError) Detail() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }

// APIError is a response with an error status. It is returned unchanged to
// callers, including when the response also triggered a session expiry.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string

	expired bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// SessionExpired reports whether this response ended the local session
func (e *APIError) SessionExpired() bool { return e.expired }

func (e *APIError) Is(target error) bool {
	return target == ErrSessionExpired && e.expired
}

// StatusCode extracts the HTTP status of an *APIError, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
