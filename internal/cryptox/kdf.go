package cryptox

import (
	"crypto/sha256"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, shared by every level of the hierarchy.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	KeySize    = 32

	// SaltSize is the length of the random salts each side contributes
	// during the key exchange.
	SaltSize = 32
)

// kdfScopeSalt separates the account level from the salted levels below it.
// An account key has no per-account salt (the password is the only input a
// fresh unlock has), so a fixed domain label stands in.
var kdfScopeSalt = []byte("parley/account/v1")

// DeriveAccountKey derives the root symmetric key from the account
// password. A passwordless account passes common.AnonymousPassword here;
// that is a deliberate, documented weakening equivalent to "no password".
func DeriveAccountKey(password []byte) []byte {
	return argon2.IDKey(password, kdfScopeSalt, kdfTime, kdfMemory, kdfThreads, KeySize)
}

// DeriveContactKey derives the key protecting contact records, bound to
// both the password and the account's random private contact salt. Knowing
// a contact key helps derive neither the account key nor any other
// account's contact key.
func DeriveContactKey(password, contactSalt []byte) []byte {
	return argon2.IDKey(password, contactSalt, kdfTime, kdfMemory, kdfThreads, KeySize)
}

// DeriveChatKey derives the key protecting chat and message records one
// level down, salted by the contact's private chat salt.
func DeriveChatKey(password, chatSalt []byte) []byte {
	return argon2.IDKey(password, chatSalt, kdfTime, kdfMemory, kdfThreads, KeySize)
}

// MakeVerifier returns a hash of a derived key, stored inside the account
// blob so an explicit unlock can tell a wrong password apart from
// storage corruption.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}
