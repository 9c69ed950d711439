package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
)

// maxDocumentSize caps downloaded artifacts
const maxDocumentSize = 32 << 20

var filenamePattern = regexp.MustCompile(`filename="([^"]+)"`)

// Document is a downloaded binary artifact
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DownloadTranscript fetches the transcript of a student. The filename comes
// from Content-Disposition, or falls back to releve_<studentID>.
func (c *Client) DownloadTranscript(ctx context.Context, studentID string) (*Document, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, "/api/students/"+url.PathEscape(studentID)+"/transcript", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > c.maxDocument {
		return nil, fmt.Errorf("%w: %d bytes", ErrDocumentTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDocument+1))
	if err != nil {
		return nil, &ConnectivityError{Method: req.Method, Path: req.URL.Path, Err: err}
	}
	if int64(len(data)) > c.maxDocument {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDocumentTooLarge, c.maxDocument)
	}

	return &Document{
		Filename:    FilenameFromDisposition(resp.Header.Get("Content-Disposition"), fmt.Sprintf("releve_%s", studentID)),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// FilenameFromDisposition extracts the suggested filename of a
// Content-Disposition header, returning fallback when there is none.
func FilenameFromDisposition(header, fallback string) string {
	if header == "" {
		return fallback
	}
	if _, params, err := mime.ParseMediaType(header); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	if m := filenamePattern.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	return fallback
}
