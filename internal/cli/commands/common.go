package commands

import (
	"io"
	"text/tabwriter"
	"time"
)

// newTable returns a tab-aligned writer; call Flush when done
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// orDash renders empty values as "-"
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006")
}

// optionalFlag returns nil for flags left empty
func optionalFlag(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
