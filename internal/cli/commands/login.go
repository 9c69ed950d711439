package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
	"github.com/unigest/unigest/internal/cli/prompt"
	"github.com/unigest/unigest/internal/cli/userconfig"
)

// NewLoginCmd creates the login command
func NewLoginCmd(a *app.App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Se connecter au serveur Unigest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, a, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Adresse email (ou UNIGEST_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Mot de passe (ou UNIGEST_PASSWORD, demandé si absent)")

	return cmd
}

func runLogin(cmd *cobra.Command, a *app.App, email, password string) error {
	// Environment variables are useful for scripts
	if email == "" {
		email = os.Getenv("UNIGEST_EMAIL")
	}
	if password == "" {
		password = os.Getenv("UNIGEST_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or UNIGEST_EMAIL env var)")
	}

	if password == "" {
		var err error
		password, err = prompt.Password(a.Out, "Mot de passe")
		if errors.Is(err, prompt.ErrNotInteractive) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or UNIGEST_PASSWORD env var)")
		}
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(a.Out, "Connexion à %s...\n", a.APIURL)

	user, err := a.Session.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintln(a.Out, "✓ Connexion réussie")
	fmt.Fprintf(a.Out, "  Utilisateur: %s (%s)\n", user.FullName(), user.Email)
	fmt.Fprintf(a.Out, "  Fonction: %s\n", user.Role)

	if a.ConfigPath != "" {
		location, err := userconfig.TakeReturnTo(a.ConfigPath)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to read return location")
		} else if location != "" {
			fmt.Fprintf(a.Out, "\nReprenez avec: unigest %s\n", location)
		}
	}

	return nil
}
