package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
	"github.com/unigest/unigest/internal/cli/client"
	"github.com/unigest/unigest/internal/models"
)

// NewStudentsCmd creates the students command group
func NewStudentsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "students",
		Aliases: []string{"etudiants"},
		Short:   "Gérer les étudiants",
	}

	cmd.AddCommand(newStudentsListCmd(a))
	cmd.AddCommand(newStudentsAddCmd(a))
	cmd.AddCommand(newStudentsShowCmd(a))

	return cmd
}

func newStudentsListCmd(a *app.App) *cobra.Command {
	var filter client.StudentFilter

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "Lister les étudiants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				students, err := a.Client.ListStudents(ctx, filter)
				if err != nil {
					return err
				}

				if len(students) == 0 {
					fmt.Fprintln(a.Out, "Aucun étudiant trouvé.")
					return nil
				}

				w := newTable(a.Out)
				fmt.Fprintln(w, "MATRICULE\tNOM\tPRÉNOM\tSTATUT\tID")
				fmt.Fprintln(w, "─────────\t───\t──────\t──────\t──")
				for _, s := range students {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Matricule, s.LastName, s.FirstName, s.Status, s.ID)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&filter.FacultyID, "faculty", "", "Filtrer par faculté (ID)")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "Rechercher par nom ou matricule")

	return cmd
}

func newStudentsAddCmd(a *app.App) *cobra.Command {
	var input models.StudentInput
	var email, phone, address, birthDate, bloodGroup, sex, status, facultyID string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Inscrire un nouvel étudiant",
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Email = optionalFlag(email)
			input.Phone = optionalFlag(phone)
			input.Address = optionalFlag(address)
			input.BirthDate = optionalFlag(birthDate)
			input.BloodGroup = optionalFlag(bloodGroup)
			input.Sex = optionalFlag(sex)
			input.Status = optionalFlag(status)
			input.FacultyID = optionalFlag(facultyID)

			return a.Protect(cmd, func(ctx context.Context) error {
				student, err := a.Client.CreateStudent(ctx, input)
				if err != nil {
					return fmt.Errorf("failed to create student: %w", err)
				}

				fmt.Fprintf(a.Out, "✓ Étudiant %s %s créé (matricule %s)\n", student.FirstName, student.LastName, student.Matricule)
				fmt.Fprintf(a.Out, "  ID: %s\n", student.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&input.Matricule, "matricule", "", "Matricule")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "Prénom")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "Nom")
	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&phone, "phone", "", "Téléphone")
	cmd.Flags().StringVar(&address, "address", "", "Adresse")
	cmd.Flags().StringVar(&birthDate, "birth-date", "", "Date de naissance (AAAA-MM-JJ ou JJ/MM/AAAA)")
	cmd.Flags().StringVar(&bloodGroup, "blood-group", "", "Groupe sanguin (A+, O-, ...)")
	cmd.Flags().StringVar(&sex, "sex", "", "Sexe (M ou F)")
	cmd.Flags().StringVar(&status, "status", "", "Statut (Actif par défaut)")
	cmd.Flags().StringVar(&facultyID, "faculty", "", "Faculté (ID)")
	_ = cmd.MarkFlagRequired("matricule")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")

	return cmd
}

func newStudentsShowCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <student-id>",
		Short: "Afficher la fiche d'un étudiant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				s, err := a.Client.GetStudent(ctx, args[0])
				if err != nil {
					return err
				}

				var bloodGroup, sex, faculty string
				if s.BloodGroup != nil {
					bloodGroup = string(*s.BloodGroup)
				}
				if s.Sex != nil {
					sex = string(*s.Sex)
				}
				if s.FacultyID != nil {
					faculty = *s.FacultyID
				}

				w := newTable(a.Out)
				fmt.Fprintf(w, "Matricule:\t%s\n", s.Matricule)
				fmt.Fprintf(w, "Nom:\t%s %s\n", s.FirstName, s.LastName)
				fmt.Fprintf(w, "Statut:\t%s\n", s.Status)
				fmt.Fprintf(w, "Email:\t%s\n", orDash(s.Email))
				fmt.Fprintf(w, "Téléphone:\t%s\n", orDash(s.Phone))
				fmt.Fprintf(w, "Adresse:\t%s\n", orDash(s.Address))
				fmt.Fprintf(w, "Naissance:\t%s\n", formatDate(s.BirthDate))
				fmt.Fprintf(w, "Groupe sanguin:\t%s\n", orDash(bloodGroup))
				fmt.Fprintf(w, "Sexe:\t%s\n", orDash(sex))
				fmt.Fprintf(w, "Faculté:\t%s\n", orDash(faculty))
				return w.Flush()
			})
		},
	}
}
