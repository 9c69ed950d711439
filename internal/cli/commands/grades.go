package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
)

// NewGradesCmd creates the grades command group
func NewGradesCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "grades",
		Aliases: []string{"notes"},
		Short:   "Consulter les notes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "ls <student-id>",
		Aliases: []string{"list"},
		Short:   "Lister les notes d'un étudiant",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				grades, err := a.Client.ListGrades(ctx, args[0])
				if err != nil {
					return err
				}

				if len(grades) == 0 {
					fmt.Fprintln(a.Out, "Aucune note enregistrée.")
					return nil
				}

				var credits int
				var weighted float64
				w := newTable(a.Out)
				fmt.Fprintln(w, "ANNÉE\tSESSION\tCOURS\tCRÉDITS\tNOTE")
				fmt.Fprintln(w, "─────\t───────\t─────\t───────\t────")
				for _, g := range grades {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f/20\n", g.AcademicYear, orDash(g.Session), g.Course, g.Credits, g.Score)
					credits += g.Credits
					weighted += g.Score * float64(g.Credits)
				}
				if err := w.Flush(); err != nil {
					return err
				}

				if credits > 0 {
					fmt.Fprintf(a.Out, "\nMoyenne pondérée: %.2f/20 (%d crédits)\n", weighted/float64(credits), credits)
				}
				return nil
			})
		},
	})

	return cmd
}
