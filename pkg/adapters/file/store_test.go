package file_test

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/funil/pkg/adapters/file"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/persistence/codec"
	"github.com/aretw0/funil/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_OverwriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "c1", &domain.Session{State: domain.StateInitial}))
	require.NoError(t, store.Set(ctx, "c1", &domain.Session{State: domain.StateClarifyDoubts}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c1.session", entries[0].Name())

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateClarifyDoubts, got.State)
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		assert.Error(t, store.Set(ctx, id, &domain.Session{}), id)
		_, err := store.Get(ctx, id)
		assert.Error(t, err, id)
	}
}

func TestFileStore_Encrypted(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	c, err := codec.NewEncrypted(codec.JSON{}, codec.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)

	dir := t.TempDir()
	store := file.New(dir, file.WithCodec(c))
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "c1", &domain.Session{CPF: "52998224725"}))

	raw, err := os.ReadFile(filepath.Join(dir, "c1.session"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "52998224725")

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "52998224725", got.CPF)
}
