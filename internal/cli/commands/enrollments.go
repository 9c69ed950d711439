package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
	"github.com/unigest/unigest/internal/cli/client"
)

// NewEnrollmentsCmd creates the enrollments command group
func NewEnrollmentsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "enrollments",
		Aliases: []string{"inscriptions"},
		Short:   "Gérer les inscriptions",
	}

	cmd.AddCommand(newEnrollmentsListCmd(a))
	cmd.AddCommand(newEnrollmentsAddCmd(a))

	return cmd
}

func newEnrollmentsListCmd(a *app.App) *cobra.Command {
	var studentID string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "Lister les inscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				enrollments, err := a.Client.ListEnrollments(ctx, studentID)
				if err != nil {
					return err
				}

				if len(enrollments) == 0 {
					fmt.Fprintln(a.Out, "Aucune inscription trouvée.")
					return nil
				}

				w := newTable(a.Out)
				fmt.Fprintln(w, "ANNÉE\tNIVEAU\tÉTUDIANT\tFACULTÉ")
				fmt.Fprintln(w, "─────\t──────\t────────\t───────")
				for _, e := range enrollments {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.AcademicYear, e.Level, e.StudentID, e.FacultyID)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&studentID, "student", "", "Filtrer par étudiant (ID)")

	return cmd
}

func newEnrollmentsAddCmd(a *app.App) *cobra.Command {
	var req client.EnrollmentRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Inscrire un étudiant dans une faculté",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				enrollment, err := a.Client.CreateEnrollment(ctx, req)
				if err != nil {
					return fmt.Errorf("failed to create enrollment: %w", err)
				}

				fmt.Fprintf(a.Out, "✓ Inscription %s %s enregistrée (ID %s)\n", enrollment.AcademicYear, enrollment.Level, enrollment.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.StudentID, "student", "", "Étudiant (ID)")
	cmd.Flags().StringVar(&req.FacultyID, "faculty", "", "Faculté (ID)")
	cmd.Flags().StringVar(&req.AcademicYear, "year", "", "Année académique, ex. 2025-2026")
	cmd.Flags().StringVar(&req.Level, "level", "", "Niveau (L1, L2, L3, M1, M2, D)")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("faculty")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("level")

	return cmd
}
