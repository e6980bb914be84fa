package models

// AccountRow is the persisted shape of an account: the plaintext local
// name plus one AEAD blob. Nonce is globally unique within the accounts
// table.
type AccountRow struct {
	Name       string
	Ciphertext []byte
	Nonce      []byte
}

// Row is the persisted shape of every non-root record. OwnerID is the
// parent's detachable id, the only plaintext field, and never correlates
// with any human-chosen name. Nonce is globally unique within its table.
type Row struct {
	OwnerID    string
	Ciphertext []byte
	Nonce      []byte
}

// MessageRow extends Row with the auto-incrementing ordering key.
type MessageRow struct {
	Seq int64
	Row
}
