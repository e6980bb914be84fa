package models

// Contact is created when a handshake reaches final acceptance and is
// immutable afterwards. It is stored encrypted under the contact-level key,
// grouped by the owning account's ContactDetachableID, the only plaintext
// linkage, which never derives from the account name.
type Contact struct {
	// InternalContactID is a random 256-bit identifier, hex.
	InternalContactID string `json:"internalContactId"`

	// InitialName is the greeting name the peer chose at add-time.
	InitialName string `json:"initialName"`

	// PubKey is the peer's RSA public key, PKIX DER.
	PubKey []byte `json:"pubKey"`

	// ChatDetachableID groups this contact's chat records.
	ChatDetachableID string `json:"chatDetachableId"`

	// PrivateChatIDSalt feeds the chat-level key derivation for this
	// contact's chats.
	PrivateChatIDSalt []byte `json:"privateChatIdSalt"`

	// InitialSharedSecret is the raw DH output, retained for potential
	// re-derivation.
	InitialSharedSecret []byte `json:"initialSharedSecret"`

	// SharedSalt is the SHA-256 transcript digest both peers computed
	// independently; the verification PIN derives from it.
	SharedSalt []byte `json:"sharedSalt"`
}

// Chat belongs to one contact; the first one is auto-created on contact
// acceptance. Grouped by the contact's ChatDetachableID.
type Chat struct {
	// InternalChatID is a random 256-bit identifier, hex.
	InternalChatID string `json:"internalChatId"`

	// Name is the chat label; empty falls back to the contact name.
	Name string `json:"name,omitempty"`

	// MessageDetachableID groups this chat's message records.
	MessageDetachableID string `json:"messageDetachableId"`
}
