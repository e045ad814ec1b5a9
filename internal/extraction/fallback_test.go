package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	result Result
	err    error
	calls  int
}

func (s *stubExtractor) Extract(_ context.Context, _, _ string) (Result, error) {
	s.calls++
	return s.result, s.err
}

func TestFallbackUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := &stubExtractor{result: Result{Provenance: ProvenanceReal, Confidence: RealConfidence}}
	fallback := &stubExtractor{result: Result{Provenance: ProvenanceSynthetic}}

	combined := NewFallback(nil, primary, fallback)
	result, err := combined.Extract(context.Background(), "abc", "")
	require.NoError(t, err)
	require.Equal(t, ProvenanceReal, result.Provenance)
	require.Equal(t, 0, fallback.calls)
}

func TestFallbackDegradesOnQuotaError(t *testing.T) {
	t.Parallel()

	primary := &stubExtractor{err: errors.New("vision call: status 429: rate limit exceeded")}
	combined := NewFallback(nil, primary, NewSyntheticExtractor())

	result, err := combined.Extract(context.Background(), strings.Repeat("A", 60_000), "")
	require.NoError(t, err)
	require.Equal(t, ProvenanceSynthetic, result.Provenance)
	require.Equal(t, SyntheticConfidence, result.Confidence)
	require.Equal(t, 1, primary.calls)
}

func TestFallbackPropagatesWhenBothFail(t *testing.T) {
	t.Parallel()

	primary := &stubExtractor{err: errors.New("empty model response")}
	fallback := &stubExtractor{err: errors.New("fallback broken")}

	combined := NewFallback(nil, primary, fallback)
	_, err := combined.Extract(context.Background(), "abc", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "fallback broken")
}
