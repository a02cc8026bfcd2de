package codec_test

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/persistence/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncrypted_Roundtrip(t *testing.T) {
	c, err := codec.NewEncrypted(codec.JSON{}, codec.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	session := &domain.Session{State: domain.StateFGTSAnticipation, CPF: "52998224725"}

	data, err := c.Marshal(session)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "52998224725")
	assert.Contains(t, string(data), "__encrypted__")

	loaded, err := c.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, session, loaded)
}

func TestEncrypted_KeyRotation(t *testing.T) {
	oldKey := generateKey(t)
	newKey := generateKey(t)

	oldCodec, err := codec.NewEncrypted(codec.JSON{}, codec.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	data, err := oldCodec.Marshal(&domain.Session{DisplayName: "Ana"})
	require.NoError(t, err)

	rotated, err := codec.NewEncrypted(codec.JSON{}, codec.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})
	require.NoError(t, err)
	loaded, err := rotated.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "Ana", loaded.DisplayName)

	strict, err := codec.NewEncrypted(codec.JSON{}, codec.EncryptionConfig{ActiveKey: newKey})
	require.NoError(t, err)
	_, err = strict.Unmarshal(data)
	assert.Error(t, err)
}

func TestEncrypted_RejectsPlainSessions(t *testing.T) {
	c, err := codec.NewEncrypted(codec.JSON{}, codec.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	plain, err := codec.JSON{}.Marshal(&domain.Session{DisplayName: "Ana"})
	require.NoError(t, err)

	_, err = c.Unmarshal(plain)
	assert.Error(t, err)
}

func TestNewEncrypted_KeySize(t *testing.T) {
	_, err := codec.NewEncrypted(codec.JSON{}, codec.EncryptionConfig{ActiveKey: []byte("short")})
	assert.ErrorIs(t, err, codec.ErrKeySize)
}
