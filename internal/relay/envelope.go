// Package relay implements the dumb rendezvous server. It upgrades
// websocket connections, hands each one a random socket id, lets a client
// additionally register under its public name, and routes envelopes
// between connections verbatim. It never inspects payloads and never
// persists anything: everything that matters is end-to-end encrypted or
// signed by the clients themselves.
package relay

import "encoding/json"

// Reserved envelope events handled by the relay itself. Every other event
// is routed through untouched.
const (
	// EventWelcome is sent by the relay right after the upgrade and
	// carries the connection's socket id.
	EventWelcome = "welcome"

	// EventRegister is sent by a client to additionally receive
	// envelopes addressed to a public name.
	EventRegister = "register"
)

// Envelope is the only framing the relay understands. Exactly one of
// Target (a socket id) or Room (a registered public name) selects the
// destination; Payload is opaque.
type Envelope struct {
	Event   string          `json:"event"`
	Target  string          `json:"target,omitempty"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Welcome is the payload of an EventWelcome envelope.
type Welcome struct {
	ID string `json:"id"`
}
