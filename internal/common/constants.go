// Package common contains shared constants and sentinel errors used across
// Parley components.
package common

const (
	// WireVersion tags every relay payload so incompatible peers can be
	// rejected at the validation boundary instead of mid-handshake.
	WireVersion = 1

	// OldestAllowedTime is the minimum accepted handshake timestamp in
	// Unix milliseconds (2020-01-01T00:00:00Z). Invitations stamped below
	// this floor are treated as replays or clock tampering.
	OldestAllowedTime int64 = 1_577_836_800_000

	// GreetingMaxLen bounds the free-form greeting carried in invitations.
	GreetingMaxLen = 256

	// AnonymousPassword is the well-known constant substituted for the
	// account password when the passwordless flag is set. This is a
	// deliberate, documented weakening: a passwordless account is exactly
	// as protected as this string, i.e. not at all.
	AnonymousPassword = "parley-anonymous-account"

	// DetachableIDSize is the byte length of random grouping identifiers
	// (256 bits).
	DetachableIDSize = 32

	// PrivateSaltSize is the byte length of the per-account and per-contact
	// private id salts (768 bits).
	PrivateSaltSize = 96
)
