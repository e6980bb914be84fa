package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/common"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// testIdentityKey returns a shared 2048-bit key. The wrappers under test do
// not depend on the modulus size, and 4096-bit generation is too slow to
// repeat per test.
func testIdentityKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func TestExportImportPublicKey_RoundTrip(t *testing.T) {
	key := testIdentityKey(t)

	der, err := ExportPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pub, err := ImportPublicKey(der)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, pub.N)
	assert.Equal(t, key.PublicKey.E, pub.E)
}

func TestImportPublicKey_Garbage(t *testing.T) {
	_, err := ImportPublicKey([]byte("not a key"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestModulusFingerprint_ShortAndStable(t *testing.T) {
	key := testIdentityKey(t)

	fp := ModulusFingerprint(&key.PublicKey)
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, ModulusFingerprint(&key.PublicKey))
}

func TestSignVerify(t *testing.T) {
	key := testIdentityKey(t)
	data := []byte("dh public value and salt")

	sig, err := Sign(key, data)
	require.NoError(t, err)
	require.NoError(t, Verify(&key.PublicKey, data, sig))

	assert.ErrorIs(t, Verify(&key.PublicKey, []byte("tampered"), sig), common.ErrValidation)
}
