// Package billing meters tenant credits and evaluates the entitlement policy.
package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// DebitUnit is the fixed credit cost of one successful extraction+write.
const DebitUnit = 1

// Meter decrements tenant credits. The debit runs on the expense writer's
// transaction so an expense is never committed without its debit or vice
// versa.
type Meter struct {
	logger *slog.Logger
}

// NewMeter creates a credit meter.
func NewMeter(log *slog.Logger) *Meter {
	if log == nil {
		log = slog.Default()
	}
	return &Meter{logger: log.With(slog.String("service", "billing"))}
}

// DebitInTx decrements the tenant balance by one unit and returns the new
// balance. The balance may fall to zero or below under the permissive
// policy; that is logged, not blocked.
func (m *Meter) DebitInTx(ctx context.Context, tx pgx.Tx, tenantID string) (int, error) {
	var balance int
	err := tx.QueryRow(ctx, `
		UPDATE tenants
		SET credits = credits - $2
		WHERE id = $1
		RETURNING credits
	`, tenantID, DebitUnit).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("debit credits: %w", err)
	}
	if balance <= 0 {
		m.logger.Warn("tenant credit balance exhausted",
			slog.String("tenant_id", tenantID),
			slog.Int("balance", balance),
		)
	}
	return balance, nil
}
