// Package app builds the client-side object graph once per process: the
// credential store, API client, session controller, navigator and guard.
package app

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/client"
	"github.com/unigest/unigest/internal/cli/credentials"
	"github.com/unigest/unigest/internal/cli/guard"
	"github.com/unigest/unigest/internal/cli/nav"
	"github.com/unigest/unigest/internal/cli/session"
	"github.com/unigest/unigest/internal/cli/userconfig"
)

// Options configures New
type Options struct {
	APIURL  string
	Timeout time.Duration
	Store   credentials.Store

	// Location is the command being run, e.g. "students ls"
	Location string

	// ConfigPath is where the return location is remembered; empty disables it
	ConfigPath string

	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Logger zerolog.Logger
	Stages []client.Stage
}

// App holds the wired components
type App struct {
	APIURL     string
	ConfigPath string

	Store   credentials.Store
	Client  *client.Client
	Session *session.Controller
	Guard   *guard.Guard
	History *nav.History

	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Logger zerolog.Logger
}

// New wires the components together
func New(opts Options) *App {
	a := &App{}
	a.Init(opts)
	return a
}

// Ready reports whether Init has run
func (a *App) Ready() bool {
	return a.Client != nil
}

// Init wires the components into a
func (a *App) Init(opts Options) {
	a.APIURL = opts.APIURL
	a.ConfigPath = opts.ConfigPath
	a.Store = opts.Store
	a.In = opts.In
	a.Out = opts.Out
	a.Err = opts.Err
	a.Logger = opts.Logger

	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
	if a.Store == nil {
		a.Store = credentials.NewKeyringStore(opts.APIURL)
	}

	a.History = nav.NewHistory(opts.Location, a.onNavigate)

	clientOpts := []client.Option{
		client.WithLogger(opts.Logger),
		client.WithNavigator(a.History, nav.LoginPath),
		client.WithStages(opts.Stages...),
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, client.WithTimeout(opts.Timeout))
	}
	a.Client = client.New(opts.APIURL, a.Store, clientOpts...)

	a.Session = session.NewController(a.Store, a.Client, opts.Logger)
	a.Client.OnSessionExpired(a.Session)
	a.Guard = guard.New(a.Session, a.History)
}

// onNavigate remembers where a redirect to the login view came from so
// login can point the user back to it
func (a *App) onNavigate(to, from string) {
	if to != nav.LoginPath || a.ConfigPath == "" || from == "" {
		return
	}
	if err := userconfig.SetReturnTo(a.ConfigPath, from); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to remember location")
	}
}

// Protect runs fn only for an authenticated session
func (a *App) Protect(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	location := Location(cmd)
	a.History.Navigate(location, "")
	return a.Guard.Protect(ctx, location, a.Err, func() error {
		return fn(ctx)
	})
}

// Location names cmd without the binary name, e.g. "students ls"
func Location(cmd *cobra.Command) string {
	path := cmd.CommandPath()
	if i := strings.IndexByte(path, ' '); i >= 0 {
		return path[i+1:]
	}
	return path
}
