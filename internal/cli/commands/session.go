package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Se déconnecter et oublier les identifiants",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Session.SignOut(cmd.Context())
			fmt.Fprintln(a.Out, "✓ Déconnecté")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Afficher l'utilisateur connecté",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				user := a.Session.State().User
				if user == nil {
					return fmt.Errorf("no user data in session")
				}

				fmt.Fprintf(a.Out, "%s (%s)\n", user.FullName(), user.Email)
				fmt.Fprintf(a.Out, "  Fonction: %s\n", user.Role)
				fmt.Fprintf(a.Out, "  Statut: %s\n", user.Status)
				fmt.Fprintf(a.Out, "  Serveur: %s\n", a.APIURL)
				return nil
			})
		},
	}
}
