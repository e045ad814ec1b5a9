package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oliveiraaldo/finsplit/internal/expense"
)

// ExpenseStore is the persistence surface the interpreter needs.
type ExpenseStore interface {
	FindLatestPendingForPayer(ctx context.Context, payerID string) (expense.Expense, error)
	UpdateStatus(ctx context.Context, id string, status expense.Status) error
}

type command int

const (
	commandOther command = iota
	commandAffirm
	commandReject
	commandHelp
	commandMenu
	commandLink
)

var commandTokens = map[string]command{
	"sim":       commandAffirm,
	"s":         commandAffirm,
	"yes":       commandAffirm,
	"ok":        commandAffirm,
	"confirmar": commandAffirm,
	"confirmo":  commandAffirm,
	"não":       commandReject,
	"nao":       commandReject,
	"n":         commandReject,
	"no":        commandReject,
	"cancelar":  commandReject,
	"descartar": commandReject,
	"ajuda":     commandHelp,
	"help":      commandHelp,
	"menu":      commandMenu,
	"link":      commandLink,
	"painel":    commandLink,
}

// Interpreter is the two-state confirmation machine. State is reconstructed
// on every message from the payer's latest PENDING expense; there is no
// in-memory session.
type Interpreter struct {
	store        ExpenseStore
	dashboardURL string
	logger       *slog.Logger
}

// NewInterpreter creates the text command interpreter.
func NewInterpreter(log *slog.Logger, store ExpenseStore, dashboardURL string) *Interpreter {
	if log == nil {
		log = slog.Default()
	}
	return &Interpreter{
		store:        store,
		dashboardURL: strings.TrimRight(dashboardURL, "/"),
		logger:       log.With(slog.String("component", "interpreter")),
	}
}

// Reply processes one text message for a payer and returns the outbound
// reply. Only affirmative and negative tokens in the AWAITING_CONFIRMATION
// state mutate anything.
func (i *Interpreter) Reply(ctx context.Context, payerID, text string) (string, error) {
	switch classify(text) {
	case commandHelp:
		return Help(), nil
	case commandMenu:
		return Menu(i.dashboardURL), nil
	case commandLink:
		return DashboardLink(i.dashboardURL), nil
	case commandAffirm:
		return i.resolvePending(ctx, payerID, expense.StatusConfirmed)
	case commandReject:
		return i.resolvePending(ctx, payerID, expense.StatusRejected)
	default:
		return Help(), nil
	}
}

func (i *Interpreter) resolvePending(ctx context.Context, payerID string, status expense.Status) (string, error) {
	pending, err := i.store.FindLatestPendingForPayer(ctx, payerID)
	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			return NothingPending(), nil
		}
		return "", fmt.Errorf("load pending expense: %w", err)
	}
	if err := i.store.UpdateStatus(ctx, pending.ID, status); err != nil {
		return "", fmt.Errorf("update expense: %w", err)
	}
	pending.Status = status

	i.logger.Info("pending expense resolved",
		slog.String("expense_id", pending.ID),
		slog.String("payer_id", payerID),
		slog.String("status", string(status)),
	)
	if status == expense.StatusConfirmed {
		return Confirmed(pending, i.expenseLink(pending.ID)), nil
	}
	return Rejected(pending), nil
}

func (i *Interpreter) expenseLink(expenseID string) string {
	return i.dashboardURL + "/expenses/" + expenseID
}

// classify maps the trimmed, lowercased message to a command. Surrounding
// punctuation and emphasis markers are stripped so "Sim!" and "*sim*" match.
func classify(text string) command {
	token := strings.ToLower(strings.TrimSpace(text))
	token = strings.Trim(token, "!?.,*_ \t")
	if cmd, ok := commandTokens[token]; ok {
		return cmd
	}
	return commandOther
}
