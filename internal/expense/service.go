package expense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/oliveiraaldo/finsplit/internal/billing"
	"github.com/oliveiraaldo/finsplit/internal/groups"
)

const uniqueViolationCode = "23505"

const expenseColumns = `id, group_id, payer_id, description, amount::text,
	occurred_on, status, confidence, provenance, raw_payload,
	COALESCE(media_url, ''), COALESCE(channel_message_id, ''), created_at`

// Service persists expenses. Pending writes, group resolution, and the credit
// debit share one transaction.
type Service struct {
	pool   *pgxpool.Pool
	groups *groups.Service
	meter  *billing.Meter
	logger *slog.Logger
}

// NewService creates the expense service.
func NewService(log *slog.Logger, pool *pgxpool.Pool, groupService *groups.Service, meter *billing.Meter) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		groups: groupService,
		meter:  meter,
		logger: log.With(slog.String("service", "expenses")),
	}
}

// CreateParams carries everything needed to write a pending expense.
type CreateParams struct {
	TenantID         string
	PayerID          string
	PayerName        string
	Description      string
	Amount           decimal.Decimal
	OccurredOn       time.Time
	Confidence       float64
	Provenance       string
	RawPayload       json.RawMessage
	MediaURL         string
	ChannelMessageID string
}

// CreateResult reports the written (or replayed) expense and the tenant
// balance after metering. BalanceKnown is false when the replay path could
// not read the balance; the reply then omits the credits line rather than
// showing a made-up number.
type CreateResult struct {
	Expense        Expense
	AlreadyExisted bool
	Balance        int
	BalanceKnown   bool
}

// CreatePending writes a PENDING expense, lazily resolving the payer's group
// and debiting one credit, all in one transaction. A webhook replay carrying
// an already-written channel message id returns the existing row and charges
// nothing.
func (s *Service) CreatePending(ctx context.Context, p CreateParams) (CreateResult, error) {
	if p.ChannelMessageID != "" {
		existing, err := s.findByChannelMessageID(ctx, p.ChannelMessageID)
		if err == nil {
			s.logger.Info("webhook replay detected, skipping write and debit",
				slog.String("expense_id", existing.ID),
				slog.String("channel_message_id", p.ChannelMessageID),
			)
			balance, known := s.balanceForReplay(ctx, p.TenantID)
			return CreateResult{Expense: existing, AlreadyExisted: true, Balance: balance, BalanceKnown: known}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return CreateResult{}, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return CreateResult{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	groupID, err := s.groups.EnsureDefaultTx(ctx, tx, p.TenantID, p.PayerID, p.PayerName)
	if err != nil {
		return CreateResult{}, err
	}

	raw := p.RawPayload
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	expense := Expense{
		ID:               uuid.NewString(),
		GroupID:          groupID,
		PayerID:          p.PayerID,
		Description:      p.Description,
		Amount:           p.Amount,
		OccurredOn:       p.OccurredOn,
		Status:           StatusPending,
		Confidence:       p.Confidence,
		Provenance:       p.Provenance,
		RawPayload:       raw,
		MediaURL:         p.MediaURL,
		ChannelMessageID: p.ChannelMessageID,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO expenses (id, group_id, payer_id, description, description_normalized,
			amount, occurred_on, status, confidence, provenance, raw_payload,
			media_url, channel_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''))
		RETURNING created_at
	`,
		expense.ID, groupID, p.PayerID, p.Description, NormalizeDescription(p.Description),
		p.Amount.StringFixed(2), p.OccurredOn, string(StatusPending), p.Confidence,
		p.Provenance, raw, p.MediaURL, p.ChannelMessageID,
	).Scan(&expense.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			existing, findErr := s.findByChannelMessageID(ctx, p.ChannelMessageID)
			if findErr == nil {
				balance, known := s.balanceForReplay(ctx, p.TenantID)
				return CreateResult{Expense: existing, AlreadyExisted: true, Balance: balance, BalanceKnown: known}, nil
			}
		}
		return CreateResult{}, fmt.Errorf("insert expense: %w", err)
	}

	balance, err := s.meter.DebitInTx(ctx, tx, p.TenantID)
	if err != nil {
		return CreateResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return CreateResult{}, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("pending expense created",
		slog.String("expense_id", expense.ID),
		slog.String("payer_id", p.PayerID),
		slog.String("amount", p.Amount.StringFixed(2)),
		slog.String("provenance", p.Provenance),
		slog.Int("balance", balance),
	)
	return CreateResult{Expense: expense, Balance: balance, BalanceKnown: true}, nil
}

// balanceForReplay reads the tenant balance outside the write transaction.
// A failed read is logged and reported as unknown; it never fails the replay.
func (s *Service) balanceForReplay(ctx context.Context, tenantID string) (int, bool) {
	balance, err := s.tenantBalance(ctx, tenantID)
	if err != nil {
		s.logger.Error("tenant balance lookup failed",
			slog.String("tenant_id", tenantID),
			slog.Any("error", err),
		)
		return 0, false
	}
	return balance, true
}

// FindDuplicate reports whether the payer already has a CONFIRMED or PENDING
// expense with the same amount, normalized description, and date.
func (s *Service) FindDuplicate(ctx context.Context, payerID string, amount decimal.Decimal, description string, date time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM expenses
			WHERE payer_id = $1
			  AND amount = $2::numeric
			  AND description_normalized = $3
			  AND occurred_on = $4
			  AND status IN ('PENDING', 'CONFIRMED')
		)
	`, payerID, amount.StringFixed(2), NormalizeDescription(description), date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("find duplicate: %w", err)
	}
	return exists, nil
}

// FindLatestPendingForPayer returns the payer's most recent PENDING expense,
// which is the implicit conversation state for text commands.
func (s *Service) FindLatestPendingForPayer(ctx context.Context, payerID string) (Expense, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE payer_id = $1 AND status = 'PENDING'
		ORDER BY created_at DESC
		LIMIT 1
	`, payerID)
	return scanExpense(row)
}

// UpdateStatus transitions an expense to CONFIRMED or REJECTED.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE expenses SET status = $2 WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.Info("expense status updated",
		slog.String("expense_id", id),
		slog.String("status", string(status)),
	)
	return nil
}

func (s *Service) findByChannelMessageID(ctx context.Context, messageID string) (Expense, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE channel_message_id = $1
	`, messageID)
	return scanExpense(row)
}

func (s *Service) tenantBalance(ctx context.Context, tenantID string) (int, error) {
	var balance int
	err := s.pool.QueryRow(ctx, `SELECT credits FROM tenants WHERE id = $1`, tenantID).Scan(&balance)
	return balance, err
}

func scanExpense(row pgx.Row) (Expense, error) {
	var (
		e         Expense
		amountStr string
		status    string
	)
	err := row.Scan(
		&e.ID, &e.GroupID, &e.PayerID, &e.Description, &amountStr,
		&e.OccurredOn, &status, &e.Confidence, &e.Provenance, &e.RawPayload,
		&e.MediaURL, &e.ChannelMessageID, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, ErrNotFound
		}
		return Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Status = Status(status)
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Expense{}, fmt.Errorf("parse amount: %w", err)
	}
	e.Amount = amount
	return e, nil
}
