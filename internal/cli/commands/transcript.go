package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/unigest/unigest/internal/cli/app"
)

// NewTranscriptCmd creates the transcript command
func NewTranscriptCmd(a *app.App) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:     "transcript <student-id>",
		Aliases: []string{"releve"},
		Short:   "Télécharger le relevé de notes d'un étudiant",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Protect(cmd, func(ctx context.Context) error {
				doc, err := a.Client.DownloadTranscript(ctx, args[0])
				if err != nil {
					return err
				}

				path := filepath.Join(outputDir, transcriptFilename(doc.Filename, args[0]))
				if err := os.WriteFile(path, doc.Data, 0644); err != nil {
					return fmt.Errorf("failed to write transcript: %w", err)
				}

				fmt.Fprintf(a.Out, "✓ Relevé enregistré: %s (%d octets)\n", path, len(doc.Data))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Dossier de destination")

	return cmd
}

// transcriptFilename keeps the server-suggested name inside the output
// directory, falling back to releve_<id> when nothing usable is left.
func transcriptFilename(suggested, studentID string) string {
	name := filepath.Base(suggested)
	switch name {
	case ".", "..", string(filepath.Separator):
		return "releve_" + filepath.Base(studentID)
	}
	return name
}
