// Package intake drives the receipt pipeline for one inbound webhook: resolve
// the sender, download and extract the receipt, validate, detect duplicates,
// persist, meter credits, and send exactly one reply.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oliveiraaldo/finsplit/internal/accounts"
	"github.com/oliveiraaldo/finsplit/internal/billing"
	"github.com/oliveiraaldo/finsplit/internal/channel"
	"github.com/oliveiraaldo/finsplit/internal/conversation"
	"github.com/oliveiraaldo/finsplit/internal/expense"
	"github.com/oliveiraaldo/finsplit/internal/extraction"
	"github.com/oliveiraaldo/finsplit/internal/media"
)

// AccountResolver maps a channel identity to an account + tenant snapshot.
type AccountResolver interface {
	FindByChannelIdentity(ctx context.Context, identity string) (accounts.Snapshot, error)
}

// MediaFetcher downloads and validates the attached receipt image.
type MediaFetcher interface {
	Fetch(ctx context.Context, mediaURL string) (media.Image, error)
}

// ExpenseStore is the persistence surface the pipeline writes through.
type ExpenseStore interface {
	FindDuplicate(ctx context.Context, payerID string, amount decimal.Decimal, description string, date time.Time) (bool, error)
	CreatePending(ctx context.Context, p expense.CreateParams) (expense.CreateResult, error)
}

// TextResponder handles messages without media.
type TextResponder interface {
	Reply(ctx context.Context, payerID, text string) (string, error)
}

// ReplySender delivers the single outbound reply.
type ReplySender interface {
	Send(ctx context.Context, to, body string) error
}

// Service orchestrates the intake pipeline. Each invocation is an
// independent, stateless unit of work.
type Service struct {
	resolver    AccountResolver
	fetcher     MediaFetcher
	extractor   extraction.Extractor
	store       ExpenseStore
	interpreter TextResponder
	sender      ReplySender
	policy      billing.Policy
	signupURL   string
	logger      *slog.Logger
}

// NewService wires the pipeline.
func NewService(
	log *slog.Logger,
	resolver AccountResolver,
	fetcher MediaFetcher,
	extractor extraction.Extractor,
	store ExpenseStore,
	interpreter TextResponder,
	sender ReplySender,
	policy billing.Policy,
	signupURL string,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		resolver:    resolver,
		fetcher:     fetcher,
		extractor:   extractor,
		store:       store,
		interpreter: interpreter,
		sender:      sender,
		policy:      policy,
		signupURL:   signupURL,
		logger:      log.With(slog.String("service", "intake")),
	}
}

// Handle processes one normalized inbound message. Every outcome, including
// each terminal error, produces exactly one outbound reply; the returned
// error exists for operator logs only and must not change the webhook
// acknowledgment.
func (s *Service) Handle(ctx context.Context, msg channel.InboundMessage) error {
	snap, err := s.resolver.FindByChannelIdentity(ctx, msg.Sender)
	if err != nil {
		if errors.Is(err, accounts.ErrUnknownSender) {
			s.logger.Info("unknown sender", slog.String("sender", msg.Sender))
			return s.reply(ctx, msg.Sender, conversation.SignupPrompt(s.signupURL))
		}
		s.logger.Error("identity lookup failed", slog.Any("error", err))
		return s.reply(ctx, msg.Sender, conversation.PersistenceApology())
	}

	if allowed, reason := s.policy.Check(snap.Tenant.ChannelEnabled, snap.Tenant.Credits); !allowed {
		s.logger.Info("message blocked by entitlement policy",
			slog.String("tenant_id", snap.Tenant.ID),
			slog.String("reason", reason),
		)
		if reason == billing.ReasonChannelDisabled {
			return s.reply(ctx, msg.Sender, conversation.ChannelBlocked())
		}
		return s.reply(ctx, msg.Sender, conversation.CreditsExhausted())
	}

	if msg.HasMedia() {
		return s.handleReceipt(ctx, snap, msg)
	}
	return s.handleText(ctx, snap, msg)
}

func (s *Service) handleReceipt(ctx context.Context, snap accounts.Snapshot, msg channel.InboundMessage) error {
	img, err := s.fetcher.Fetch(ctx, msg.MediaURL)
	if err != nil {
		var fetchErr *media.FetchError
		if errors.As(err, &fetchErr) {
			s.logger.Warn("media rejected",
				slog.String("reason", fetchErr.Reason),
				slog.String("sender", msg.Sender),
			)
		} else {
			s.logger.Error("media fetch failed", slog.Any("error", err))
		}
		return s.reply(ctx, msg.Sender, conversation.MediaApology())
	}

	result, err := s.extractor.Extract(ctx, img.Base64(), msg.Text)
	if err != nil {
		// Only reachable when the synthetic fallback itself failed.
		s.logger.Error("extraction failed", slog.Any("error", err))
		return s.reply(ctx, msg.Sender, conversation.ExtractionApology())
	}

	receipt, err := expense.Validate(result.Receipt)
	if err != nil {
		var validationErr *expense.ValidationError
		if errors.As(err, &validationErr) {
			s.logger.Info("extraction rejected by validator",
				slog.Any("missing", validationErr.MissingFields),
			)
			return s.reply(ctx, msg.Sender, conversation.ValidationReply(validationErr.MissingFields))
		}
		return s.reply(ctx, msg.Sender, conversation.PersistenceApology())
	}

	duplicate, err := s.store.FindDuplicate(ctx, snap.Account.ID, receipt.Amount, receipt.Name(), receipt.Date)
	if err != nil {
		s.logger.Error("duplicate lookup failed", slog.Any("error", err))
		return s.reply(ctx, msg.Sender, conversation.PersistenceApology())
	}

	created, err := s.store.CreatePending(ctx, expense.CreateParams{
		TenantID:         snap.Tenant.ID,
		PayerID:          snap.Account.ID,
		PayerName:        snap.Account.Name,
		Description:      receipt.Name(),
		Amount:           receipt.Amount,
		OccurredOn:       receipt.Date,
		Confidence:       result.Confidence,
		Provenance:       string(result.Provenance),
		RawPayload:       result.Raw,
		MediaURL:         msg.MediaURL,
		ChannelMessageID: msg.MessageID,
	})
	if err != nil {
		s.logger.Error("pending expense write failed", slog.Any("error", err))
		return s.reply(ctx, msg.Sender, conversation.PersistenceApology())
	}

	// A replayed webhook matches the row its first delivery wrote;
	// re-send the original confirmation instead of a warning.
	if duplicate && !created.AlreadyExisted {
		return s.reply(ctx, msg.Sender, conversation.DuplicateWarning(created.Expense, created.Balance, created.BalanceKnown))
	}
	return s.reply(ctx, msg.Sender, conversation.PendingCreated(created.Expense, created.Balance, created.BalanceKnown))
}

func (s *Service) handleText(ctx context.Context, snap accounts.Snapshot, msg channel.InboundMessage) error {
	body, err := s.interpreter.Reply(ctx, snap.Account.ID, msg.Text)
	if err != nil {
		s.logger.Error("command interpretation failed", slog.Any("error", err))
		return s.reply(ctx, msg.Sender, conversation.PersistenceApology())
	}
	return s.reply(ctx, msg.Sender, body)
}

func (s *Service) reply(ctx context.Context, to, body string) error {
	if err := s.sender.Send(ctx, to, body); err != nil {
		s.logger.Error("reply delivery failed",
			slog.String("to", to),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}
