package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service looks up accounts by channel identity.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates an account service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "accounts")),
	}
}

// FindByChannelIdentity resolves the sender to an account plus tenant
// entitlement snapshot. Returns ErrUnknownSender when no account matches.
func (s *Service) FindByChannelIdentity(ctx context.Context, identity string) (Snapshot, error) {
	var snap Snapshot
	err := s.pool.QueryRow(ctx, `
		SELECT a.id, a.tenant_id, a.name, a.channel_identity, a.created_at,
		       t.id, t.name, t.credits, t.channel_enabled, t.created_at
		FROM accounts a
		JOIN tenants t ON t.id = a.tenant_id
		WHERE a.channel_identity = $1
	`, identity).Scan(
		&snap.Account.ID, &snap.Account.TenantID, &snap.Account.Name,
		&snap.Account.ChannelIdentity, &snap.Account.CreatedAt,
		&snap.Tenant.ID, &snap.Tenant.Name, &snap.Tenant.Credits,
		&snap.Tenant.ChannelEnabled, &snap.Tenant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrUnknownSender
		}
		return Snapshot{}, fmt.Errorf("find account: %w", err)
	}
	return snap, nil
}
