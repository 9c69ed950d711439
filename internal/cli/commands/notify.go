package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
	"github.com/unigest/unigest/internal/cli/client"
)

// NewNotifyCmd creates the notify command
func NewNotifyCmd(a *app.App) *cobra.Command {
	var req client.NotificationRequest

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Envoyer une notification par email",
		Long: `Envoyer une notification par email.

Le serveur met l'envoi en file d'attente; un échec de livraison n'est pas
réessayé automatiquement.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				if err := a.Client.SendNotification(ctx, req); err != nil {
					return fmt.Errorf("failed to queue notification: %w", err)
				}

				fmt.Fprintf(a.Out, "✓ Notification pour %s mise en file d'attente\n", req.Recipient)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Recipient, "to", "", "Destinataire")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "Objet")
	cmd.Flags().StringVar(&req.Body, "body", "", "Message")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("body")

	return cmd
}
