package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/common"
)

func TestDeriveAccountKey_Deterministic(t *testing.T) {
	a := DeriveAccountKey([]byte("hunter2"))
	b := DeriveAccountKey([]byte("hunter2"))
	require.Len(t, a, KeySize)
	assert.Equal(t, a, b)
}

func TestDeriveAccountKey_PasswordSensitive(t *testing.T) {
	assert.NotEqual(t, DeriveAccountKey([]byte("hunter2")), DeriveAccountKey([]byte("hunter3")))
}

func TestDeriveContactKey_SaltSeparatesAccounts(t *testing.T) {
	password := []byte("same password")
	saltA := common.GenerateRandByteArray(common.PrivateSaltSize)
	saltB := common.GenerateRandByteArray(common.PrivateSaltSize)

	keyA := DeriveContactKey(password, saltA)
	keyB := DeriveContactKey(password, saltB)

	require.Len(t, keyA, KeySize)
	assert.NotEqual(t, keyA, keyB, "same password must yield distinct keys under distinct salts")

	// Deterministic given the same stored salt.
	assert.Equal(t, keyA, DeriveContactKey(password, saltA))
}

func TestHierarchy_LevelsAreIndependent(t *testing.T) {
	password := []byte("p")
	salt := common.GenerateRandByteArray(common.PrivateSaltSize)

	account := DeriveAccountKey(password)
	contact := DeriveContactKey(password, salt)
	chat := DeriveChatKey(password, salt)

	assert.NotEqual(t, account, contact)
	// Contact and chat levels share the argon2 construction; they differ by
	// the salt actually stored at each level, not by the function.
	assert.Equal(t, contact, chat)
}

func TestMakeVerifier_StableAndKeyBound(t *testing.T) {
	key := DeriveAccountKey([]byte("pw"))
	v1 := MakeVerifier(key)
	v2 := MakeVerifier(key)
	assert.Equal(t, v1, v2)
	assert.NotEqual(t, v1, MakeVerifier(DeriveAccountKey([]byte("other"))))
}
