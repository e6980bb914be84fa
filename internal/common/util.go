package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter specifies the number of random bytes to generate before
// encoding, so the final string length is twice the size.
//
// It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns size bytes from the system CSPRNG. It panics
// if the generator fails, which on supported platforms cannot happen.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeDetachableID returns a fresh random grouping identifier, hex-encoded.
// Detachable ids carry no relation to any human-chosen name; they are the
// only plaintext linkage between an encrypted record and its parent.
func MakeDetachableID() string {
	return hex.EncodeToString(GenerateRandByteArray(DetachableIDSize))
}

// WipeByteArray overwrites the contents of the provided byte slice with
// zeros. Useful for removing passwords and derived keys from memory after
// use. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
