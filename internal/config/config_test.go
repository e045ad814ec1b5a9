package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	require.Equal(t, DefaultPGDatabase, cfg.Postgres.Database)
	require.Equal(t, DefaultExtractorModel, cfg.Extractor.Model)
	require.False(t, cfg.Billing.EnforceCredits)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = ":9090"

[postgres]
password = "secret"

[whatsapp]
account_sid = "AC123"
auth_token = "token"
from_number = "whatsapp:+14155238886"

[billing]
enforce_credits = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "secret", cfg.Postgres.Password)
	require.Equal(t, DefaultPGHost, cfg.Postgres.Host)
	require.Equal(t, "AC123", cfg.WhatsApp.AccountSID)
	require.True(t, cfg.Billing.EnforceCredits)
	require.False(t, cfg.Billing.EnforceChannelEnabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[extractor]
timeout_seconds = 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid config")
}

func TestPostgresDSN(t *testing.T) {
	t.Parallel()

	dsn := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "finsplit",
		Password: "pw",
		Database: "finsplit",
		SSLMode:  "require",
	}.DSN()
	require.Equal(t, "postgres://finsplit:pw@db.internal:5433/finsplit?sslmode=require", dsn)
}
