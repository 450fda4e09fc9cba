// Package upload pushes a finished report file to a public file host
// and returns the download URL. Used as a fallback delivery path for
// results too large to return inline; failures here are non-fatal for
// the caller.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultEndpoint is the tmpfiles.org upload API.
const DefaultEndpoint = "https://tmpfiles.org/api/v1/upload"

// DefaultTimeout bounds one upload.
const DefaultTimeout = 30 * time.Second

// Uploader delivers payloads to a tmpfiles-style endpoint.
type Uploader struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates an uploader. Empty endpoint selects DefaultEndpoint.
func New(endpoint string) *Uploader {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Uploader{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log.With().Str("component", "uploader").Logger(),
	}
}

// SetHTTPClient overrides the transport (tests).
func (u *Uploader) SetHTTPClient(c *http.Client) {
	u.httpClient = c
}

// Upload posts payload as a multipart file named filename and returns
// the public download URL.
func (u *Uploader) Upload(ctx context.Context, filename string, payload []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload: unexpected status %d", resp.StatusCode)
	}

	var parsed struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Data.URL == "" {
		return "", fmt.Errorf("upload: response carries no url")
	}

	u.logger.Info().
		Str("filename", filename).
		Int("bytes", len(payload)).
		Str("url", parsed.Data.URL).
		Msg("Report uploaded")

	return parsed.Data.URL, nil
}
