package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
)

// NewFacultiesCmd creates the faculties command group
func NewFacultiesCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "faculties",
		Aliases: []string{"facultes"},
		Short:   "Consulter les facultés",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "Lister les facultés",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				faculties, err := a.Client.ListFaculties(ctx)
				if err != nil {
					return err
				}

				if len(faculties) == 0 {
					fmt.Fprintln(a.Out, "Aucune faculté enregistrée.")
					return nil
				}

				w := newTable(a.Out)
				fmt.Fprintln(w, "CODE\tNOM\tDOYEN\tID")
				fmt.Fprintln(w, "────\t───\t─────\t──")
				for _, f := range faculties {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Code, f.Name, orDash(f.Dean), f.ID)
				}
				return w.Flush()
			})
		},
	})

	return cmd
}
