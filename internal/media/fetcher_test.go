package media

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func imageServer(t *testing.T, status int, contentType string, payload []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAcceptsValidImage(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0xFF}, int(MinImageBytes))
	srv := imageServer(t, http.StatusOK, "image/jpeg", payload)

	fetcher := NewFetcher(nil, "sid", "token")
	img, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, payload, img.Bytes)
	require.Equal(t, "image/jpeg", img.Mime)
	require.NotEmpty(t, img.Base64())
}

func TestFetchRejectsNonImageContentType(t *testing.T) {
	t.Parallel()

	// A disguised HTML error page served with a 200.
	payload := bytes.Repeat([]byte("<html>"), 400)
	srv := imageServer(t, http.StatusOK, "text/html; charset=utf-8", payload)

	fetcher := NewFetcher(nil, "sid", "token")
	_, err := fetcher.Fetch(context.Background(), srv.URL)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Contains(t, fetchErr.Reason, "not an image")
}

func TestFetchRejectsUndersizedPayload(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, http.StatusOK, "image/png", []byte("tiny"))

	fetcher := NewFetcher(nil, "sid", "token")
	_, err := fetcher.Fetch(context.Background(), srv.URL)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Contains(t, fetchErr.Reason, "below")
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, http.StatusNotFound, "image/jpeg", nil)

	fetcher := NewFetcher(nil, "sid", "token")
	_, err := fetcher.Fetch(context.Background(), srv.URL)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Contains(t, fetchErr.Reason, "status 404")
}

func TestFetchSendsBasicAuth(t *testing.T) {
	t.Parallel()

	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(bytes.Repeat([]byte{1}, int(MinImageBytes)))
	}))
	t.Cleanup(srv.Close)

	fetcher := NewFetcher(nil, "account-sid", "auth-token")
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "account-sid", gotUser)
	require.Equal(t, "auth-token", gotPass)
}

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payload  []byte
		maxBytes int64
		wantErr  bool
	}{
		{name: "within limit", payload: []byte("hello"), maxBytes: 8},
		{name: "exact limit", payload: []byte("12345"), maxBytes: 5},
		{name: "over limit", payload: []byte("0123456789"), maxBytes: 5, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadAllWithLimit(bytes.NewReader(tt.payload), tt.maxBytes)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Fatalf("unexpected payload: %q", string(got))
			}
		})
	}
}

func TestReadAllWithLimitNilReader(t *testing.T) {
	t.Parallel()

	_, err := ReadAllWithLimit(nil, 10)
	require.Error(t, err)
	require.False(t, errors.Is(err, context.Canceled))
}
