package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/common"
)

type testRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestEncryptDecryptRecord_RoundTrip(t *testing.T) {
	key := common.GenerateRandByteArray(32)
	in := testRecord{Name: "alice", Count: 7}

	ciphertext, nonce, err := EncryptRecord(in, key)
	require.NoError(t, err)
	require.Len(t, nonce, NonceSize)
	require.NotEmpty(t, ciphertext)

	var out testRecord
	require.NoError(t, DecryptRecord(ciphertext, nonce, key, &out))
	assert.Equal(t, in, out)
}

func TestDecryptRecord_WrongKeyFails(t *testing.T) {
	key := common.GenerateRandByteArray(32)
	other := common.GenerateRandByteArray(32)

	ciphertext, nonce, err := EncryptRecord(testRecord{Name: "secret"}, key)
	require.NoError(t, err)

	var out testRecord
	err = DecryptRecord(ciphertext, nonce, other, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCryptoFailure)
	assert.Empty(t, out.Name, "plaintext must never leak on auth failure")
}

func TestDecryptRecord_TamperedCiphertextFails(t *testing.T) {
	key := common.GenerateRandByteArray(32)

	ciphertext, nonce, err := EncryptRecord(testRecord{Name: "x"}, key)
	require.NoError(t, err)

	ciphertext[0] ^= 0xff
	var out testRecord
	assert.ErrorIs(t, DecryptRecord(ciphertext, nonce, key, &out), common.ErrCryptoFailure)
}

func TestEncryptRecord_FreshNoncePerCall(t *testing.T) {
	key := common.GenerateRandByteArray(32)

	_, n1, err := EncryptRecord(testRecord{}, key)
	require.NoError(t, err)
	_, n2, err := EncryptRecord(testRecord{}, key)
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
}
