package cryptoutil_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/cryptoutil"
	"github.com/pennywise/ledger/domain"
)

func TestGenerateTokenShapeAndPrefix(t *testing.T) {
	raw, err := cryptoutil.GenerateToken()
	require.NoError(t, err)
	assert.Len(t, raw, len(domain.TokenPrefix)+domain.TokenBodyLength)
	assert.Equal(t, domain.TokenPrefix, raw[:len(domain.TokenPrefix)])
}

func TestHashTokenIsDeterministicAndConstantTimeEqual(t *testing.T) {
	raw, err := cryptoutil.GenerateToken()
	require.NoError(t, err)

	h1 := cryptoutil.HashToken(raw)
	h2 := cryptoutil.HashToken(raw)
	assert.Equal(t, h1, h2)
	assert.True(t, cryptoutil.ConstantTimeEqual(h1, h2))

	other, err := cryptoutil.GenerateToken()
	require.NoError(t, err)
	assert.False(t, cryptoutil.ConstantTimeEqual(h1, cryptoutil.HashToken(other)))
}

func TestDisplayPrefixNeverLeaksFullSecret(t *testing.T) {
	raw, err := cryptoutil.GenerateToken()
	require.NoError(t, err)
	prefix := cryptoutil.DisplayPrefix(raw)
	assert.Less(t, len(prefix), len(raw))
	assert.Equal(t, domain.TokenPrefix+raw[len(domain.TokenPrefix):len(domain.TokenPrefix)+8], prefix)
}

func newTestEnvelope(t *testing.T) *cryptoutil.Envelope {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	env, err := cryptoutil.NewEnvelope(key)
	require.NoError(t, err)
	return env
}

func TestEnvelopeSealOpenRoundTrip(t *testing.T) {
	env := newTestEnvelope(t)
	plaintext := []byte("1//0gAbCdEf-refresh-token")

	sealed, err := env.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := env.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEnvelopeSealIsNonDeterministic(t *testing.T) {
	env := newTestEnvelope(t)
	plaintext := []byte("same secret")

	sealed1, err := env.Seal(plaintext)
	require.NoError(t, err)
	sealed2, err := env.Seal(plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, sealed1, sealed2, "each Seal call must use a fresh random nonce")
}

func TestEnvelopeOpenRejectsTamperedCiphertext(t *testing.T) {
	env := newTestEnvelope(t)
	sealed, err := env.Seal([]byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = env.Open(sealed)
	assert.Error(t, err)
}

func TestNewEnvelopeRejectsWrongKeySize(t *testing.T) {
	_, err := cryptoutil.NewEnvelope([]byte("too-short"))
	assert.Error(t, err)
}
