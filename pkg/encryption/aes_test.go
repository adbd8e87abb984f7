package encryption

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randyrahmani/CareLogG8/pkg/types"
)

func newKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cs, err := NewCryptoStore(newKey(t))
	require.NoError(t, err)

	plaintext := []byte(`{"hospitals":{}}`)
	ciphertext, err := cs.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := cs.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	cs, err := NewCryptoStore(newKey(t))
	require.NoError(t, err)

	a, err := cs.Encrypt([]byte("same input"))
	require.NoError(t, err)
	b, err := cs.Encrypt([]byte("same input"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptWithWrongKeyIsIntegrityError(t *testing.T) {
	cs1, err := NewCryptoStore(newKey(t))
	require.NoError(t, err)
	cs2, err := NewCryptoStore(newKey(t))
	require.NoError(t, err)

	ciphertext, err := cs1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = cs2.Decrypt(ciphertext)
	require.Error(t, err)
	assert.True(t, types.IsIntegrityError(err))
}

func TestDecryptTruncatedCiphertextIsIntegrityError(t *testing.T) {
	cs, err := NewCryptoStore(newKey(t))
	require.NoError(t, err)

	_, err = cs.Decrypt([]byte{0x01, 0x02})
	require.Error(t, err)
	assert.True(t, types.IsIntegrityError(err))
}

func TestNewCryptoStoreRejectsShortKey(t *testing.T) {
	_, err := NewCryptoStore([]byte("too short"))
	assert.Error(t, err)
}
