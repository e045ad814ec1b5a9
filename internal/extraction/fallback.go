package extraction

import (
	"context"
	"log/slog"
)

// Fallback composes a primary extractor with a fallback. The caller never
// sees conditional branches: a primary failure of any kind (transport error,
// quota, malformed output) routes to the fallback.
type Fallback struct {
	primary  Extractor
	fallback Extractor
	logger   *slog.Logger
}

// NewFallback wires primary-then-fallback extraction.
func NewFallback(log *slog.Logger, primary, fallback Extractor) *Fallback {
	if log == nil {
		log = slog.Default()
	}
	return &Fallback{
		primary:  primary,
		fallback: fallback,
		logger:   log.With(slog.String("component", "extractor")),
	}
}

// Extract tries the primary extractor and degrades to the fallback on error.
// The result's provenance tells the two apart.
func (f *Fallback) Extract(ctx context.Context, encodedImage, hint string) (Result, error) {
	result, err := f.primary.Extract(ctx, encodedImage, hint)
	if err == nil {
		return result, nil
	}
	f.logger.Warn("primary extraction failed, using synthetic fallback",
		slog.Any("error", err),
	)
	return f.fallback.Extract(ctx, encodedImage, hint)
}
