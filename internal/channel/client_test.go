package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oliveiraaldo/finsplit/internal/config"
)

func TestClientSendPostsMessageForm(t *testing.T) {
	t.Parallel()

	var captured struct {
		path string
		user string
		pass string
		form map[string]string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.user, captured.pass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		captured.form = map[string]string{
			"From": r.PostForm.Get("From"),
			"To":   r.PostForm.Get("To"),
			"Body": r.PostForm.Get("Body"),
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(nil, config.WhatsAppConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "whatsapp:+14155238886",
		APIBaseURL: srv.URL,
	})

	err := client.Send(context.Background(), "+5511999998888", "olá")
	require.NoError(t, err)
	require.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", captured.path)
	require.Equal(t, "AC123", captured.user)
	require.Equal(t, "token", captured.pass)
	require.Equal(t, "whatsapp:+14155238886", captured.form["From"])
	require.Equal(t, "whatsapp:+5511999998888", captured.form["To"])
	require.Equal(t, "olá", captured.form["Body"])
}

func TestClientSendSurfacesProviderRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code": 21211}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(nil, config.WhatsAppConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+14155238886",
		APIBaseURL: srv.URL,
	})

	err := client.Send(context.Background(), "+5511999998888", "olá")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 400")
}

func TestClientSendRequiresRecipient(t *testing.T) {
	t.Parallel()

	client := NewClient(nil, config.WhatsAppConfig{APIBaseURL: "http://localhost:0"})
	err := client.Send(context.Background(), "  ", "olá")
	require.Error(t, err)
}
