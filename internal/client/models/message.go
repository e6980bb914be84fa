package models

// Message is the leaf of the id hierarchy, grouped by the chat's
// MessageDetachableID. Ordering comes from the store's auto-incrementing
// sequence, not from the (peer-supplied) timestamp.
type Message struct {
	// Body is the free-form message text.
	Body string `json:"body"`

	// Time is the send/receive timestamp in Unix milliseconds.
	Time int64 `json:"time"`

	// IsLocal marks messages authored on this device.
	IsLocal bool `json:"isLocal"`
}

// StoredMessage pairs a decrypted message with its store-assigned order.
type StoredMessage struct {
	Seq int64
	Message
}
