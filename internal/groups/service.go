// Package groups resolves the target group for a new pending expense.
package groups

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Service lazily resolves or creates a payer's default group.
type Service struct {
	logger *slog.Logger
}

// NewService creates a group service. Queries run on the caller's
// transaction so group creation commits atomically with the expense write.
func NewService(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{logger: log.With(slog.String("service", "groups"))}
}

// EnsureDefaultTx returns the payer's oldest group, creating
// "Despesas de <name>" with payer membership when none exists. Membership is
// inserted with ON CONFLICT DO NOTHING so a replayed webhook that races the
// first insert still converges on one membership row.
func (s *Service) EnsureDefaultTx(ctx context.Context, tx pgx.Tx, tenantID, accountID, accountName string) (string, error) {
	var groupID string
	err := tx.QueryRow(ctx, `
		SELECT g.id
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.account_id = $1
		ORDER BY g.created_at
		LIMIT 1
	`, accountID).Scan(&groupID)
	if err == nil {
		return groupID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("find group: %w", err)
	}

	groupID = uuid.NewString()
	name := "Despesas de " + accountName
	if _, err := tx.Exec(ctx, `
		INSERT INTO groups (id, tenant_id, name)
		VALUES ($1, $2, $3)
	`, groupID, tenantID, name); err != nil {
		return "", fmt.Errorf("create group: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO group_members (group_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, groupID, accountID); err != nil {
		return "", fmt.Errorf("add member: %w", err)
	}

	s.logger.Info("default group created",
		slog.String("group_id", groupID),
		slog.String("account_id", accountID),
	)
	return groupID, nil
}
