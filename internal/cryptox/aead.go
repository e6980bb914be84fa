// Package cryptox wraps the cryptographic primitives Parley relies on:
// AES-256-GCM record encryption, the argon2id key-derivation hierarchy,
// RSA identity keys, and finite-field Diffie-Hellman key agreement.
//
// Nothing here invents a primitive; every operation delegates to the
// standard library or golang.org/x/crypto and is treated as a black box
// with its documented security properties.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/dmarkov/parley/internal/common"
)

// NonceSize is the AES-GCM nonce length used for every encrypted record.
const NonceSize = 12

// EncryptRecord serializes v to JSON and encrypts it with AES-256-GCM under
// key. A fresh random nonce is generated per call; ciphertext and nonce are
// returned separately so the store can enforce nonce uniqueness per table.
//
// The key must be 32 bytes (AES-256).
func EncryptRecord(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal record: %w", err)
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// DecryptRecord decrypts ciphertext with the given key and nonce and
// unmarshals the resulting JSON into v. An authentication failure is
// reported as common.ErrCryptoFailure so callers can distinguish
// wrong-password from structural errors.
func DecryptRecord(ciphertext, nonce, key []byte, v any) error {
	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}

	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
