package commands

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
	"github.com/unigest/unigest/internal/cli/client"
	"github.com/unigest/unigest/internal/cli/prompt"
	"github.com/unigest/unigest/internal/models"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(a *app.App) *cobra.Command {
	var req client.RegisterRequest
	var role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Créer un compte du personnel",
		Long: `Créer un compte du personnel.

Le premier compte créé sur un serveur devient administrateur. Les comptes
suivants restent inactifs jusqu'à leur activation par un administrateur.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = models.Role(role)
			return runRegister(cmd, a, req)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Adresse email")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "Prénom")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Nom")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Téléphone")
	cmd.Flags().StringVar(&role, "role", "", "Fonction (Admin, Professeur, Secretaire, Directeur, Doyen)")
	cmd.Flags().StringVar(&req.Password, "password", "", "Mot de passe (demandé si absent)")

	return cmd
}

func runRegister(cmd *cobra.Command, a *app.App, req client.RegisterRequest) error {
	in := bufio.NewReader(a.In)
	fields := []struct {
		value *string
		label string
	}{
		{&req.Email, "Email"},
		{&req.FirstName, "Prénom"},
		{&req.LastName, "Nom"},
	}
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		v, err := prompt.Line(in, a.Out, f.label)
		if err != nil {
			return err
		}
		*f.value = v
	}

	if req.Role == "" {
		role, err := prompt.SelectRole()
		if errors.Is(err, prompt.ErrNotInteractive) {
			return fmt.Errorf("role is required in non-interactive mode (use --role flag)")
		}
		if err != nil {
			return err
		}
		req.Role = role
	}
	if !req.Role.Valid() {
		return fmt.Errorf("invalid role %q", req.Role)
	}

	if req.Password == "" {
		password, err := prompt.Password(a.Out, "Mot de passe")
		if errors.Is(err, prompt.ErrNotInteractive) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag)")
		}
		if err != nil {
			return err
		}
		req.Password = password
	}

	user, err := a.Client.Register(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintf(a.Out, "✓ Compte créé pour %s (%s)\n", user.FullName(), user.Email)
	if user.Status != models.AccountActif {
		fmt.Fprintln(a.Out, "  Le compte doit être activé par un administrateur avant la connexion.")
	}
	return nil
}
