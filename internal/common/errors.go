package common

import "errors"

// Callers match these with errors.Is.
var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrNonceReuse is returned when an insert would store a nonce that
	// already exists in the same table. Reusing a GCM nonce under one key
	// is catastrophic, so the store rejects it outright.
	ErrNonceReuse = errors.New("nonce already used in this store")

	// Handshake errors.
	ErrValidation      = errors.New("malformed wire message")
	ErrPolicyViolation = errors.New("protocol policy violation")
	ErrTimingViolation = errors.New("timestamp below accepted floor")

	// ErrCryptoFailure covers AEAD authentication failures. During a bulk
	// unlock scan it means "wrong password"; after the password has been
	// proven it means storage corruption.
	ErrCryptoFailure = errors.New("decryption failed")

	// Transport errors.
	ErrTimeout      = errors.New("relay round-trip timed out")
	ErrDisconnected = errors.New("transport disconnected")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
)
