// Package media downloads and validates receipt images referenced by inbound
// webhooks.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// MinImageBytes guards against a disguised HTML error page served with a
	// success status.
	MinImageBytes int64 = 1024
	// MaxImageBytes is the max accepted receipt payload size.
	MaxImageBytes int64 = 16 * 1024 * 1024

	fetchTimeout = 30 * time.Second
)

// Image is a validated downloaded receipt photo.
type Image struct {
	Bytes []byte
	Mime  string
}

// Base64 returns the text-safe encoding handed to the extractor.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Bytes)
}

// Fetcher performs authenticated media downloads from the channel provider.
type Fetcher struct {
	httpClient *http.Client
	username   string
	password   string
	logger     *slog.Logger
}

// NewFetcher creates a media fetcher using the channel account credentials.
func NewFetcher(log *slog.Logger, username, password string) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
		username:   username,
		password:   password,
		logger:     log.With(slog.String("component", "media_fetcher")),
	}
}

// Fetch downloads the media reference and validates that it is a plausible
// receipt image. There are no retries; one failure aborts the pipeline.
func (f *Fetcher) Fetch(ctx context.Context, mediaURL string) (Image, error) {
	if strings.TrimSpace(mediaURL) == "" {
		return Image{}, &FetchError{Reason: "empty media reference"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return Image{}, &FetchError{Reason: fmt.Sprintf("build request: %v", err)}
	}
	if f.username != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Image{}, &FetchError{Reason: fmt.Sprintf("download: %v", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Image{}, &FetchError{Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	mime := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, &FetchError{Reason: fmt.Sprintf("content type %q is not an image", mime)}
	}

	payload, err := ReadAllWithLimit(resp.Body, MaxImageBytes)
	if err != nil {
		return Image{}, &FetchError{Reason: err.Error()}
	}
	if int64(len(payload)) < MinImageBytes {
		return Image{}, &FetchError{Reason: fmt.Sprintf("payload of %d bytes is below the %d byte minimum", len(payload), MinImageBytes)}
	}

	f.logger.Debug("media downloaded",
		slog.String("mime", mime),
		slog.Int("bytes", len(payload)),
	)
	return Image{Bytes: payload, Mime: mime}, nil
}

// ReadAllWithLimit reads from reader and rejects payloads larger than maxBytes.
func ReadAllWithLimit(reader io.Reader, maxBytes int64) ([]byte, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be greater than 0")
	}
	limited := &io.LimitedReader{
		R: reader,
		N: maxBytes + 1,
	}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("payload too large: max %d bytes", maxBytes)
	}
	return data, nil
}
