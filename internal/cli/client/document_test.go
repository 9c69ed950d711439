package client

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenameFromDisposition(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"quoted", `attachment; filename="releve_MAT001.csv"`, "releve_MAT001.csv"},
		{"unquoted", `attachment; filename=releve.pdf`, "releve.pdf"},
		{"non-standard type still matched", `download; size=12; filename="notes 2025.csv"`, "notes 2025.csv"},
		{"no filename", `inline`, "fallback"},
		{"absent", ``, "fallback"},
		{"malformed", `attachment; filename="`, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilenameFromDisposition(tt.header, "fallback"))
		})
	}
}

func TestDownloadTranscript(t *testing.T) {
	t.Run("uses the server filename", func(t *testing.T) {
		f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/students/s1/transcript", r.URL.Path)
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="releve_MAT001.csv"`)
			w.Write([]byte("cours,note\n"))
		}), "abc123")

		doc, err := f.client.DownloadTranscript(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, "releve_MAT001.csv", doc.Filename)
		assert.Equal(t, "text/csv; charset=utf-8", doc.ContentType)
		assert.Equal(t, "cours,note\n", string(doc.Data))
	})

	t.Run("falls back without a hint", func(t *testing.T) {
		f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("%PDF"))
		}), "abc123")

		doc, err := f.client.DownloadTranscript(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, "releve_s1", doc.Filename)
	})

	t.Run("expired session", func(t *testing.T) {
		f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		}), "expired-token")

		_, err := f.client.DownloadTranscript(context.Background(), "s1")
		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.Equal(t, 1, f.redirects.get())
	})
}

func TestDownloadTranscriptRejectsOversizedDocuments(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "declared length",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(strings.Repeat("x", 17)))
			},
		},
		{
			name: "streamed without length",
			handler: func(w http.ResponseWriter, r *http.Request) {
				for i := 0; i < 17; i++ {
					w.Write([]byte("x"))
					w.(http.Flusher).Flush()
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.handler, "abc123")
			f.client.maxDocument = 16

			doc, err := f.client.DownloadTranscript(context.Background(), "s1")
			assert.ErrorIs(t, err, ErrDocumentTooLarge)
			assert.Nil(t, doc)
		})
	}

	t.Run("exactly at the limit", func(t *testing.T) {
		f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(strings.Repeat("x", 16)))
		}), "abc123")
		f.client.maxDocument = 16

		doc, err := f.client.DownloadTranscript(context.Background(), "s1")
		require.NoError(t, err)
		assert.Len(t, doc.Data, 16)
	})
}
