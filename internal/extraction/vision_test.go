package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oliveiraaldo/finsplit/internal/config"
)

func visionConfig(url string) config.ExtractorConfig {
	return config.ExtractorConfig{
		BaseURL:        url,
		APIKey:         "test-key",
		Model:          "gpt-4o-mini",
		TimeoutSeconds: 5,
	}
}

func completionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVisionExtractorParsesProseWrappedJSON(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, http.StatusOK, `{
		"choices": [{"message": {"content": "Claro! Segue o resultado:\n{\"establishment\": \"Restaurante X\", \"total_amount\": 45.50, \"date\": \"2024-01-15\", \"document_kind\": \"restaurant\"}"}}]
	}`)

	extractor := NewVisionExtractor(nil, visionConfig(srv.URL))
	result, err := extractor.Extract(context.Background(), "aGVsbG8=", "")
	require.NoError(t, err)
	require.Equal(t, ProvenanceReal, result.Provenance)
	require.Equal(t, RealConfidence, result.Confidence)
	require.Equal(t, "Restaurante X", result.Receipt.Establishment)
	require.Equal(t, "45.50", result.Receipt.Amount.StringFixed(2))
	require.NotEmpty(t, result.Raw)
}

func TestVisionExtractorFailsOnQuotaError(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, http.StatusTooManyRequests, `{"error": {"message": "You exceeded your current quota", "type": "insufficient_quota"}}`)

	extractor := NewVisionExtractor(nil, visionConfig(srv.URL))
	_, err := extractor.Extract(context.Background(), "aGVsbG8=", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 429")
}

func TestVisionExtractorFailsOnEmptyResponse(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, http.StatusOK, `{"choices": [{"message": {"content": "   "}}]}`)

	extractor := NewVisionExtractor(nil, visionConfig(srv.URL))
	_, err := extractor.Extract(context.Background(), "aGVsbG8=", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty model response")
}

func TestVisionExtractorFailsWithoutAnchorFields(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, http.StatusOK, `{"choices": [{"message": {"content": "{\"payment_method\": \"cash\"}"}}]}`)

	extractor := NewVisionExtractor(nil, visionConfig(srv.URL))
	_, err := extractor.Extract(context.Background(), "aGVsbG8=", "")
	require.Error(t, err)
}
