// Package expense holds the expense domain model, field validation, duplicate
// detection, and the pending-expense writer.
package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the expense lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
)

// ErrNotFound indicates no expense matched the lookup.
var ErrNotFound = errors.New("expense not found")

// Expense is a persisted expense record. The confirmation conversation always
// targets the most-recently-created PENDING expense for a payer; there is no
// separate conversation id.
type Expense struct {
	ID               string
	GroupID          string
	PayerID          string
	Description      string
	Amount           decimal.Decimal
	OccurredOn       time.Time
	Status           Status
	Confidence       float64
	Provenance       string
	RawPayload       json.RawMessage
	MediaURL         string
	ChannelMessageID string
	CreatedAt        time.Time
}

// ValidationError lists the semantic fields an extraction is missing. It is
// terminal but user-correctable: the sender can retake the photo or reply
// with plain-text key:value fields.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("extraction missing required fields: %s", strings.Join(e.MissingFields, ", "))
}
