// Package models defines the client-side record types persisted by the
// encrypted store: the plaintext payloads that live inside ciphertext, and
// the row shapes the repositories read and write.
package models

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/dmarkov/parley/internal/common"
)

// Account is the root entity, exclusively owned by the local device and
// never transmitted. The whole struct is serialized to JSON and stored as
// one AES-GCM blob; AccountName doubles as the plaintext index key of the
// accounts table.
type Account struct {
	// AccountID is a random 256-bit identifier, hex.
	AccountID string `json:"accountId"`

	// AccountName is the local label under which the blob is filed.
	AccountName string `json:"accountName"`

	// PersonalName is shown to confirmed contacts.
	PersonalName string `json:"personalName"`

	// PublicName is the discoverable handle, empty if undiscoverable.
	PublicName string `json:"publicName,omitempty"`

	// IdentityKey is the RSA private key, PKCS#1 DER.
	IdentityKey []byte `json:"identityKey"`

	// ModulusHash is the short public fingerprint of the RSA modulus.
	ModulusHash string `json:"modulusHash"`

	// ContactDetachableID groups this account's contact records. Random,
	// never derived from AccountName.
	ContactDetachableID string `json:"contactDetachableId"`

	// PrivateContactIDSalt feeds the contact-level key derivation.
	PrivateContactIDSalt []byte `json:"privateContactIdSalt"`

	// PrivateChatIDSalt feeds the chat-level key derivation.
	PrivateChatIDSalt []byte `json:"privateChatIdSalt"`

	// Verifier is a hash of the derived account key, used to tell a wrong
	// password apart from storage corruption on explicit unlock.
	Verifier []byte `json:"verifier"`
}

// PrivateKey parses the stored identity key.
func (a *Account) PrivateKey() (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS1PrivateKey(a.IdentityKey)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt identity key", common.ErrCryptoFailure)
	}
	return key, nil
}

// SetPrivateKey serializes the identity key into the account.
func (a *Account) SetPrivateKey(key *rsa.PrivateKey) {
	a.IdentityKey = x509.MarshalPKCS1PrivateKey(key)
}
