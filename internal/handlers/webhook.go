package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/oliveiraaldo/finsplit/internal/channel"
	"github.com/oliveiraaldo/finsplit/internal/intake"
)

// WebhookHandler receives the channel provider's inbound message webhook.
// It always acknowledges with 200: the provider retries aggressively on
// non-success responses and the human resending a message is the only retry
// mechanism this pipeline wants.
type WebhookHandler struct {
	intake *intake.Service
	logger *slog.Logger
}

func NewWebhookHandler(log *slog.Logger, intakeService *intake.Service) *WebhookHandler {
	return &WebhookHandler{
		intake: intakeService,
		logger: log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhook/whatsapp", h.Handle)
}

func (h *WebhookHandler) Handle(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		h.logger.Warn("unreadable webhook payload", slog.Any("error", err))
		return c.NoContent(http.StatusOK)
	}

	msg, ok := channel.ParseWebhook(form)
	if !ok {
		h.logger.Warn("webhook payload has no sender, acknowledging anyway")
		return c.NoContent(http.StatusOK)
	}

	if err := h.intake.Handle(c.Request().Context(), msg); err != nil {
		h.logger.Error("intake pipeline error",
			slog.String("sender", msg.Sender),
			slog.Any("error", err),
		)
	}
	return c.NoContent(http.StatusOK)
}
