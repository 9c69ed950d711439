package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
)

// NewExpensesCmd creates the expenses command group
func NewExpensesCmd(a *app.App) *cobra.Command {
	var studentID string

	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"frais"},
		Short:   "Consulter les frais",
	}

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "Lister les frais",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				expenses, err := a.Client.ListExpenses(ctx, studentID)
				if err != nil {
					return err
				}

				if len(expenses) == 0 {
					fmt.Fprintln(a.Out, "Aucun frais enregistré.")
					return nil
				}

				w := newTable(a.Out)
				fmt.Fprintln(w, "LIBELLÉ\tMONTANT\tPAYÉ LE\tÉTUDIANT")
				fmt.Fprintln(w, "───────\t───────\t───────\t────────")
				for _, e := range expenses {
					fmt.Fprintf(w, "%s\t%d,%02d\t%s\t%s\n", e.Label, e.AmountCents/100, e.AmountCents%100, formatDate(e.PaidAt), e.StudentID)
				}
				return w.Flush()
			})
		},
	}
	ls.Flags().StringVar(&studentID, "student", "", "Filtrer par étudiant (ID)")

	cmd.AddCommand(ls)
	return cmd
}
