package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
	"github.com/unigest/unigest/internal/cli/client"
	"github.com/unigest/unigest/internal/cli/commands"
	"github.com/unigest/unigest/internal/cli/userconfig"
	"github.com/unigest/unigest/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around a. When a is not yet
// initialized, it is wired from the user config before any command runs.
func NewRootCmd(a *app.App) *cobra.Command {
	var apiURL, logLevel string
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:   "unigest",
		Short: "Unigest - Gestion académique",
		Long: `Unigest CLI - Gérez étudiants, inscriptions, notes et relevés
depuis le terminal.

Connectez-vous d'abord avec 'unigest login'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.Ready() {
				return nil
			}

			cfg, configPath, err := userconfig.Load()
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.APIURL = apiURL
			}
			if timeout > 0 {
				cfg.Timeout = timeout
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if cfg.LogLevel == "" {
				cfg.LogLevel = "warn"
			}

			a.Init(app.Options{
				APIURL:     cfg.APIURL,
				Timeout:    cfg.Timeout,
				Location:   app.Location(cmd),
				ConfigPath: configPath,
				In:         cmd.InOrStdin(),
				Out:        cmd.OutOrStdout(),
				Err:        cmd.ErrOrStderr(),
				Logger:     logger.New(cmd.ErrOrStderr(), cfg.LogLevel, "console"),
			})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "URL du serveur (ou UNIGEST_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Délai maximal par requête (10s par défaut)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Niveau de log (debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// No API access needed
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "unigest version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(a))
	rootCmd.AddCommand(commands.NewLogoutCmd(a))
	rootCmd.AddCommand(commands.NewWhoamiCmd(a))
	rootCmd.AddCommand(commands.NewRegisterCmd(a))
	rootCmd.AddCommand(commands.NewStudentsCmd(a))
	rootCmd.AddCommand(commands.NewFacultiesCmd(a))
	rootCmd.AddCommand(commands.NewEnrollmentsCmd(a))
	rootCmd.AddCommand(commands.NewGradesCmd(a))
	rootCmd.AddCommand(commands.NewExpensesCmd(a))
	rootCmd.AddCommand(commands.NewTranscriptCmd(a))
	rootCmd.AddCommand(commands.NewNotifyCmd(a))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(&app.App{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", userMessage(err))
		return err
	}
	return nil
}

// userMessage rewrites session expiry into an actionable message
func userMessage(err error) string {
	if errors.Is(err, client.ErrSessionExpired) {
		return client.ReasonSessionExpired + ". Reconnectez-vous avec 'unigest login'."
	}
	return err.Error()
}
