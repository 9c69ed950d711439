package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/unigest/unigest/internal/cli/credentials"
)

// DefaultTimeout bounds every request; a request exceeding it fails as a
// connectivity error.
const DefaultTimeout = 10 * time.Second

// DefaultAllowList holds the endpoints where 401 means wrong credentials
// rather than an expired session.
var DefaultAllowList = []string{
	"/auth/login",
	"/auth/register",
	"/auth/verify-password",
}

// ExpiryHandler is told when the server rejects the session
type ExpiryHandler interface {
	Logout(reason string)
}

// Navigator moves the client to another view
type Navigator interface {
	Location() string
	Navigate(to, from string) bool
}

// Stage is one step of the outbound request pipeline. A stage may transform
// the request or short-circuit by returning an error without calling next.
type Stage func(next http.RoundTripper) http.RoundTripper

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Client is the single egress point for calls to the Unigest API.
// Build one per process with New and pass it to the code that needs it.
type Client struct {
	baseURL   string
	apiHost   string
	http      *http.Client
	store     credentials.Store
	allowList []string
	validate  *validator.Validate
	logger    zerolog.Logger

	mu        sync.Mutex
	defaults  http.Header
	onExpired ExpiryHandler
	navigator Navigator
	loginPath string

	// serializes session expiry handling between concurrent failing requests
	expiryMu sync.Mutex

	maxDocument int64
}

// sentToken records the token the bearer stage attached to a request
type sentToken struct {
	value string
}

type sentTokenKey struct{}

// Option configures a Client
type Option func(*options)

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
	allowList []string
	logger    zerolog.Logger
	stages    []Stage
	navigator Navigator
	loginPath string
}

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport sets the base transport the pipeline ends with
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithAllowList replaces DefaultAllowList
func WithAllowList(fragments ...string) Option {
	return func(o *options) { o.allowList = fragments }
}

// WithLogger sets the logger used by the logging stage
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithStages appends stages after the built-in ones, closest to the transport
func WithStages(stages ...Stage) Option {
	return func(o *options) { o.stages = append(o.stages, stages...) }
}

// WithNavigator sets where session expiry redirects to
func WithNavigator(n Navigator, loginPath string) Option {
	return func(o *options) {
		o.navigator = n
		o.loginPath = loginPath
	}
}

// New creates a new API client
func New(baseURL string, store credentials.Store, opts ...Option) *Client {
	o := options{
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
		allowList: DefaultAllowList,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiHost:   hostOf(baseURL),
		store:     store,
		allowList: o.allowList,
		validate:  validator.New(),
		logger:    o.logger.With().Str("component", "api-client").Logger(),
		defaults:  http.Header{},
		navigator: o.navigator,
		loginPath: o.loginPath,

		maxDocument: maxDocumentSize,
	}
	c.defaults.Set("Accept", "application/json")

	// logStage is outermost so it observes the final outcome of each request
	stages := append([]Stage{c.logStage, c.bearerStage}, o.stages...)
	transport := o.transport
	for i := len(stages) - 1; i >= 0; i-- {
		transport = stages[i](transport)
	}

	c.http = &http.Client{
		Timeout:   o.timeout,
		Transport: transport,
	}
	return c
}

// OnSessionExpired registers the handler told about session expiry
func (c *Client) OnSessionExpired(h ExpiryHandler) {
	c.mu.Lock()
	c.onExpired = h
	c.mu.Unlock()
}

// SetDefaultHeader sets a header sent with every request
func (c *Client) SetDefaultHeader(key, value string) {
	c.mu.Lock()
	c.defaults.Set(key, value)
	c.mu.Unlock()
}

// DefaultHeader returns a default header value
func (c *Client) DefaultHeader(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaults.Get(key)
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// bearerStage attaches the stored token to requests for the API host only;
// redirect hops to any other host go out without it. The request is cloned
// so the caller's headers are never mutated.
func (c *Client) bearerStage(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		var token string
		if c.apiHost != "" && strings.EqualFold(req.URL.Host, c.apiHost) {
			token = credentials.Token(c.store)
		}
		if sent, ok := req.Context().Value(sentTokenKey{}).(*sentToken); ok {
			sent.value = token
		}
		if token == "" {
			return next.RoundTrip(req)
		}
		authed := req.Clone(req.Context())
		authed.Header.Set("Authorization", "Bearer "+token)
		return next.RoundTrip(authed)
	})
}

func (c *Client) logStage(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)

		event := c.logger.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("duration", time.Since(start))
		if err != nil {
			event.Err(err).Msg("API request failed")
		} else {
			event.Int("status", resp.StatusCode).Msg("API request")
		}
		return resp, err
	})
}

// NewRequest builds a request against the API with the default headers.
// A non-nil body is encoded as JSON.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.Lock()
	for key, values := range c.defaults {
		req.Header[key] = append([]string(nil), values...)
	}
	c.mu.Unlock()

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req and decodes a JSON response into out (skipped when out is nil).
// Failures are classified as *ConnectivityError or *APIError.
func (c *Client) Do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// send runs the pipeline and returns a successful response with its body
// still open, or a classified error.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	sent := &sentToken{}
	resp, err := c.http.Do(req.WithContext(context.WithValue(req.Context(), sentTokenKey{}, sent)))
	if err != nil {
		return nil, &ConnectivityError{Method: req.Method, Path: req.URL.Path, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, c.classify(req, resp, sent.value)
	}
	return resp, nil
}

func (c *Client) classify(req *http.Request, resp *http.Response, sent string) error {
	apiErr := &APIError{
		Method:  req.Method,
		Path:    req.URL.Path,
		Status:  resp.StatusCode,
		Message: errorMessage(resp),
	}

	if resp.StatusCode == http.StatusUnauthorized && !c.allowListed(req.URL.Path) {
		apiErr.expired = true
		c.expireSession(req.URL.Path, sent)
	}
	return apiErr
}

// allowListed matches fragments on path segment boundaries so that
// "/auth/login" matches "/api/auth/login" but not "/api/auth/login-history".
func (c *Client) allowListed(path string) bool {
	for _, fragment := range c.allowList {
		rest := path
		for {
			idx := strings.Index(rest, fragment)
			if idx < 0 {
				break
			}
			after := rest[idx+len(fragment):]
			if after == "" || after[0] == '/' {
				return true
			}
			rest = rest[idx+1:]
		}
	}
	return false
}

// expireSession ends the session the rejected request was sent with. When the
// stored token has changed since (an earlier 401 cleared it, or a newer login
// replaced it) there is nothing left to expire.
func (c *Client) expireSession(path, sent string) {
	c.expiryMu.Lock()
	defer c.expiryMu.Unlock()

	if current := credentials.Token(c.store); current != sent {
		c.logger.Debug().Str("path", path).Msg("Ignoring 401 for a token that is no longer stored")
		return
	}

	c.logger.Warn().Str("path", path).Msg("Session rejected by server, logging out")

	if err := c.store.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear credentials")
	}

	c.mu.Lock()
	c.defaults.Del("Authorization")
	handler := c.onExpired
	navigator := c.navigator
	loginPath := c.loginPath
	c.mu.Unlock()

	if handler != nil {
		handler.Logout(ReasonSessionExpired)
	}

	if navigator != nil {
		if from := navigator.Location(); from != loginPath {
			navigator.Navigate(loginPath, from)
		}
	}
}

// errorMessage extracts {"error": "..."} from an error response
func errorMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
