package authd_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_RequiresSecret(t *testing.T) {
	path := writeConfig(t, "app:\n  name: authd\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: test-secret\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "postgres", cfg.Ledger.Backend)
	assert.Equal(t, "auth.audit", cfg.Audit.Topic)
	assert.False(t, cfg.Audit.Enable)
}

func TestLoad_RejectsUnknownLedgerBackend(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: test-secret\nledger:\n  backend: sqlite\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.backend")
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: test-secret
  access_ttl: 5m
ledger:
  backend: redis
redis:
  addr: redis:6379
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, "redis", cfg.Ledger.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}
