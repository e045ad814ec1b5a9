package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oliveiraaldo/finsplit/internal/config"
)

const (
	formFieldFrom     = "From"
	formFieldBody     = "Body"
	formFieldMediaURL = "MediaUrl0"
	formFieldSID      = "MessageSid"

	sendTimeout = 15 * time.Second
)

// ParseWebhook normalizes a Twilio-style form-encoded webhook into an
// InboundMessage. It returns ok=false when the payload has no usable sender;
// the caller acknowledges the provider anyway since providers retry
// aggressively on non-success responses.
func ParseWebhook(form url.Values) (InboundMessage, bool) {
	sender := StripIdentityPrefix(form.Get(formFieldFrom))
	if sender == "" {
		return InboundMessage{}, false
	}
	return InboundMessage{
		Sender:    sender,
		Text:      strings.TrimSpace(form.Get(formFieldBody)),
		MediaURL:  strings.TrimSpace(form.Get(formFieldMediaURL)),
		MessageID: strings.TrimSpace(form.Get(formFieldSID)),
	}, true
}

// Client sends outbound messages through the provider's Messages API using
// the account credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
	logger     *slog.Logger
}

// NewClient creates an outbound channel client.
func NewClient(log *slog.Logger, cfg config.WhatsAppConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: sendTimeout},
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       StripIdentityPrefix(cfg.FromNumber),
		logger:     log.With(slog.String("component", "channel_client")),
	}
}

// Credentials returns the basic-auth pair shared with the media host.
func (c *Client) Credentials() (string, string) {
	return c.accountSID, c.authToken
}

// Send posts one plain-text message to the recipient. The recipient is the
// normalized identity without the channel prefix.
func (c *Client) Send(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient is required")
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	form := url.Values{}
	form.Set("From", IdentityPrefix+c.from)
	form.Set("To", IdentityPrefix+to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("send rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("detail", string(detail)),
		)
		return fmt.Errorf("send message: status %d", resp.StatusCode)
	}
	return nil
}
