package cli_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/funil/internal/cli"
	"github.com/aretw0/funil/internal/config"
	"github.com/aretw0/funil/internal/logging"
	"github.com/aretw0/funil/internal/metrics"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisConfig(mr *miniredis.Miniredis) *config.Config {
	return &config.Config{
		LogLevel: "info",
		Redis: config.RedisConfig{
			URL:             "redis://" + mr.Addr(),
			Prefix:          "t:",
			DistributedLock: true,
			LockTTL:         time.Second,
		},
	}
}

func nameSession(ctx context.Context, s *domain.Session) error {
	s.DisplayName = "Ana Souza"
	s.NameResolved = true
	return nil
}

func TestOpenSessions_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	sessions, err := cli.OpenSessions(redisConfig(mr), logging.NewNop(), nil)
	require.NoError(t, err)
	defer sessions.Close()
	ctx := context.Background()

	require.NoError(t, sessions.Manager.Cycle(ctx, "c-1", nameSession))

	raw, err := mr.Get("t:session:c-1")
	require.NoError(t, err)
	assert.Contains(t, raw, "Ana Souza")
	assert.False(t, mr.Exists("t:lock:c-1"), "lock released after the cycle")
	require.NoError(t, sessions.Redis.Ping(ctx))
}

func TestOpenLocalSessions(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{LogLevel: "info"}
	ctx := context.Background()

	m, err := cli.OpenLocalSessions(cfg, logging.NewNop(), dir)
	require.NoError(t, err)
	require.NoError(t, m.Cycle(ctx, "local", nameSession))

	reopened, err := cli.OpenLocalSessions(cfg, logging.NewNop(), dir)
	require.NoError(t, err)
	s, err := reopened.Get(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", s.DisplayName)

	inMemory, err := cli.OpenLocalSessions(cfg, logging.NewNop(), "")
	require.NoError(t, err)
	_, err = inMemory.Get(ctx, "local")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestOpenSessions_Encrypted(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig(mr)
	cfg.Session.EncryptionKey = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	sessions, err := cli.OpenSessions(cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	defer sessions.Close()
	ctx := context.Background()

	require.NoError(t, sessions.Manager.Cycle(ctx, "c-1", nameSession))

	raw, err := mr.Get("t:session:c-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "Ana Souza")

	s, err := sessions.Manager.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", s.DisplayName)
}

func TestOpenSessions_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	m := metrics.New()
	sessions, err := cli.OpenSessions(redisConfig(mr), logging.NewNop(), m)
	require.NoError(t, err)
	defer sessions.Close()
	mr.Close()
	ctx := context.Background()

	require.NoError(t, sessions.Manager.Cycle(ctx, "c-1", nameSession))

	s, err := sessions.Manager.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", s.DisplayName)
	assert.Positive(t, testutil.CollectAndCount(m.Registry(), "funil_session_store_fallbacks_total"))
}

func TestOpenSessions_BadKey(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig(mr)
	cfg.Session.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))

	_, err := cli.OpenSessions(cfg, logging.NewNop(), nil)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := cli.NewLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	assert.NoError(t, err)

	_, err = cli.NewLogger(&config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestDialogueOptions(t *testing.T) {
	cfg := &config.Config{}
	opts, err := cli.DialogueOptions(cfg, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	cfg.Digisac.AuthorizeImage = "auth.jpg"
	opts, err = cli.DialogueOptions(cfg, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	cfg.Digisac.Copy = "/does/not/exist.yaml"
	_, err = cli.DialogueOptions(cfg, logging.NewNop(), domain.LifecycleHooks{})
	assert.ErrorContains(t, err, "failed to load message copy")
}
