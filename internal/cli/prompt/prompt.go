// Package prompt reads interactive input for CLI commands.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/unigest/unigest/internal/models"
)

// ErrNotInteractive is returned when input is needed but stdin is not a terminal
var ErrNotInteractive = errors.New("no terminal available for interactive input")

// IsInteractive reports whether stdin is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Password reads a password without echoing it
func Password(out io.Writer, label string) (string, error) {
	if !IsInteractive() {
		return "", ErrNotInteractive
	}

	fmt.Fprintf(out, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// Line reads one line from in. Share one reader between calls so buffered
// input is not lost.
func Line(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// SelectRole shows an interactive list of staff roles
func SelectRole() (models.Role, error) {
	if !IsInteractive() {
		return "", ErrNotInteractive
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "{{ . | green }}",
	}

	prompt := promptui.Select{
		Label:     "Sélectionnez votre fonction",
		Items:     models.Roles,
		Templates: templates,
		Size:      len(models.Roles),
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("role selection cancelled: %w", err)
	}

	return models.Roles[index], nil
}
