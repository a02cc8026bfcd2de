package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/funil/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":3000", cfg.HTTP.Addr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "funil:", cfg.Redis.Prefix)
	assert.True(t, cfg.Redis.DistributedLock)
	assert.Equal(t, 5*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, "b17ee5c5-3ae8-4add-b0b7-c887cec43bbd", cfg.Digisac.DepartmentID)
	assert.Equal(t, "https://webservice.facta.com.br", cfg.Facta.BaseURL)
	assert.Equal(t, "https://brasilapi.com.br", cfg.Newcorban.BanksURL)
}

func TestLoad_EnvFile(t *testing.T) {
	path := writeEnv(t,
		"DIGISAC_URL=https://acme.digisac.me",
		"DIGISAC_SERVICE_ID=svc",
		"REDIS_PORT=6380",
		"LOG_LEVEL=debug",
	)
	t.Cleanup(func() {
		for _, k := range []string{"DIGISAC_URL", "DIGISAC_SERVICE_ID", "REDIS_PORT", "LOG_LEVEL"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://acme.digisac.me", cfg.Digisac.URL)
	assert.Equal(t, "svc", cfg.Digisac.ServiceID)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	t.Setenv("FACTA_EMAIL", "ops@example.com")
	path := writeEnv(t, "FACTA_EMAIL=file@example.com")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", cfg.Facta.Email)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func validConfig() *config.Config {
	return &config.Config{
		Digisac:   config.DigisacConfig{URL: "u", ServiceID: "s", Token: "t"},
		Parana:    config.ParanaConfig{ClientID: "c"},
		Facta:     config.FactaConfig{Credentials: "user:pass"},
		Newcorban: config.NewcorbanConfig{Username: "n", Password: "p"},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Digisac.Token = ""
	cfg.Facta.Credentials = "nocolon"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DIGISAC_TOKEN is required")
	assert.Contains(t, err.Error(), "FACTA_CREDENTIALS must be user:password")
}

func TestValidate_EncryptionKey(t *testing.T) {
	cfg := validConfig()
	cfg.Session.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
	assert.ErrorContains(t, cfg.Validate(), "32 bytes")

	cfg.Session.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))
	cfg.Session.FallbackKeys = []string{base64.StdEncoding.EncodeToString(make([]byte, 32))}
	require.NoError(t, cfg.Validate())

	active, fallback, err := cfg.Session.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Len(t, fallback, 1)
}
