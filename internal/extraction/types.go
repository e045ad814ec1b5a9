// Package extraction turns a receipt image into structured expense fields,
// either through the external vision model or a deterministic synthetic
// fallback.
package extraction

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Provenance marks whether extracted data came from the real vision service
// or the synthetic fallback.
type Provenance string

const (
	ProvenanceReal      Provenance = "real"
	ProvenanceSynthetic Provenance = "synthetic"
)

// Confidence values are fixed per provenance, not derived from model
// internals.
const (
	RealConfidence      = 0.95
	SyntheticConfidence = 0.8
)

// LineItem is one purchased item on the receipt.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// Receipt holds the semantic fields extracted from a receipt image. All
// fields are optional at this stage; validation happens downstream.
type Receipt struct {
	Establishment string
	Payee         string
	Amount        decimal.Decimal
	Date          time.Time
	DocumentKind  string
	PaymentMethod string
	Category      string
	LineItems     []LineItem
}

// Name returns the payee or, failing that, the establishment.
func (r Receipt) Name() string {
	if r.Payee != "" {
		return r.Payee
	}
	return r.Establishment
}

// Result is a completed extraction with its provenance tag.
type Result struct {
	Receipt    Receipt
	Confidence float64
	Provenance Provenance
	Raw        json.RawMessage
}

// Extractor converts a base64-encoded receipt image (plus an optional caption
// hint) into structured fields.
type Extractor interface {
	Extract(ctx context.Context, encodedImage, hint string) (Result, error)
}
