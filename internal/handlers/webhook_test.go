package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oliveiraaldo/finsplit/internal/accounts"
	"github.com/oliveiraaldo/finsplit/internal/billing"
	"github.com/oliveiraaldo/finsplit/internal/expense"
	"github.com/oliveiraaldo/finsplit/internal/extraction"
	"github.com/oliveiraaldo/finsplit/internal/intake"
	"github.com/oliveiraaldo/finsplit/internal/media"
)

type webhookResolver struct{}

func (webhookResolver) FindByChannelIdentity(_ context.Context, identity string) (accounts.Snapshot, error) {
	return accounts.Snapshot{
		Account: accounts.Account{ID: "payer-1", TenantID: "tenant-1", Name: "Maria", ChannelIdentity: identity},
		Tenant:  accounts.Tenant{ID: "tenant-1", Credits: 5, ChannelEnabled: true},
	}, nil
}

type webhookFetcher struct{}

func (webhookFetcher) Fetch(_ context.Context, _ string) (media.Image, error) {
	return media.Image{}, &media.FetchError{Reason: "status 404"}
}

type webhookExtractor struct{}

func (webhookExtractor) Extract(_ context.Context, _, _ string) (extraction.Result, error) {
	return extraction.Result{}, nil
}

type webhookStore struct{}

func (webhookStore) FindDuplicate(_ context.Context, _ string, _ decimal.Decimal, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (webhookStore) CreatePending(_ context.Context, _ expense.CreateParams) (expense.CreateResult, error) {
	return expense.CreateResult{}, nil
}

type webhookResponder struct{}

func (webhookResponder) Reply(_ context.Context, _, _ string) (string, error) {
	return "ℹ️ Como usar", nil
}

type recordingSender struct {
	replies []string
}

func (r *recordingSender) Send(_ context.Context, _, body string) error {
	r.replies = append(r.replies, body)
	return nil
}

func newWebhookFixture() (*WebhookHandler, *recordingSender) {
	sender := &recordingSender{}
	svc := intake.NewService(
		slog.Default(),
		webhookResolver{}, webhookFetcher{}, webhookExtractor{}, webhookStore{},
		webhookResponder{}, sender,
		billing.NewPolicy(nil, false, false),
		"https://app.example.com/signup",
	)
	return NewWebhookHandler(slog.Default(), svc), sender
}

func postForm(t *testing.T, handler *WebhookHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.Handle(c))
	return rec
}

func TestWebhookAcknowledgesMalformedPayload(t *testing.T) {
	t.Parallel()

	handler, sender := newWebhookFixture()
	rec := postForm(t, handler, url.Values{"Body": {"sem remetente"}})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, sender.replies)
}

func TestWebhookRoutesTextMessage(t *testing.T) {
	t.Parallel()

	handler, sender := newWebhookFixture()
	rec := postForm(t, handler, url.Values{
		"From":       {"whatsapp:+5511999998888"},
		"Body":       {"ajuda"},
		"MessageSid": {"SM1"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"ℹ️ Como usar"}, sender.replies)
}

func TestWebhookAcknowledgesPipelineFailure(t *testing.T) {
	t.Parallel()

	handler, sender := newWebhookFixture()
	rec := postForm(t, handler, url.Values{
		"From":       {"whatsapp:+5511999998888"},
		"MediaUrl0":  {"https://media.example.com/broken"},
		"MessageSid": {"SM2"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sender.replies, 1)
	require.Contains(t, sender.replies[0], "baixar a imagem")
}
