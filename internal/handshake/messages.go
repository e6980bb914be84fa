package handshake

import (
	"fmt"

	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/cryptox"
)

// Wire messages. Each carries the schema version and validates itself at
// the transport boundary, so the state machine only ever consumes typed,
// already-checked values.

// Event names on the relay.
const (
	EventInvitation      = "sendInvitation"
	EventInvitationReply = "invitationResponse"
	EventDHExchange      = "sendDhPubKey"
)

// RSVP answers carried on the wire. Reject and block never appear in a
// reply; no reply is sent for them at all.
const (
	AnswerPostpone = "postpone"
	AnswerAccept   = "accept"

	// answerVerification is the local relabeling of an accepted
	// invitation: "accept" from the far side and "about to verify" on the
	// near side are the same moment viewed from two sides.
	answerVerification = "verification"
)

// minModulusSize is the smallest RSA modulus accepted from a peer, bytes.
const minModulusSize = 256

// Invitation introduces the initiator to the receiver.
type Invitation struct {
	V            int    `json:"v"`
	Source       string `json:"source"`       // initiator's reply address (ephemeral socket id)
	Target       string `json:"target"`       // receiver's public name
	Greeting     string `json:"greeting"`     // free-form greeting message
	GreetingName string `json:"greetingName"` // name the initiator introduces itself by
	PubKey       []byte `json:"pubKey"`       // initiator RSA public key, PKIX DER
	Time         int64  `json:"time"`         // initiation timestamp, Unix ms
}

// Validate checks structural shape only. The timestamp floor is a protocol
// rule, not a shape rule, and lives in the state machine: an absurd time
// is a timing violation, not a malformed message.
func (m *Invitation) Validate() error {
	if m.V != common.WireVersion {
		return fmt.Errorf("%w: unsupported version %d", common.ErrValidation, m.V)
	}
	if m.Source == "" || m.Target == "" {
		return fmt.Errorf("%w: missing address", common.ErrValidation)
	}
	if len(m.Greeting) > common.GreetingMaxLen {
		return fmt.Errorf("%w: greeting too long", common.ErrValidation)
	}
	return validatePubKey(m.PubKey)
}

// Reply answers an invitation, addressed back to the initiator's reply
// address. PubKey is present only for accept.
type Reply struct {
	V               int    `json:"v"`
	Answer          string `json:"answer"`
	OwnName         string `json:"ownName"`      // receiver's reply address
	GreetingName    string `json:"greetingName"` // name the receiver chose for itself
	GreetingMessage string `json:"greetingMessage"`
	PubKey          []byte `json:"pubKey,omitempty"`
}

func (m *Reply) Validate() error {
	if m.V != common.WireVersion {
		return fmt.Errorf("%w: unsupported version %d", common.ErrValidation, m.V)
	}
	switch m.Answer {
	case AnswerPostpone:
		if len(m.PubKey) != 0 {
			return fmt.Errorf("%w: postpone must not carry key material", common.ErrValidation)
		}
		return nil
	case AnswerAccept:
		if m.OwnName == "" {
			return fmt.Errorf("%w: missing reply address", common.ErrValidation)
		}
		if len(m.GreetingMessage) > common.GreetingMaxLen {
			return fmt.Errorf("%w: greeting too long", common.ErrValidation)
		}
		return validatePubKey(m.PubKey)
	default:
		return fmt.Errorf("%w: unknown answer %q", common.ErrValidation, m.Answer)
	}
}

// DHExchange carries one side's ephemeral Diffie-Hellman material. The
// signature binds the ephemeral key to the sender's long-lived RSA
// identity: Sig is RSA-PSS over DHPubKey followed by Salt.
type DHExchange struct {
	V        int    `json:"v"`
	TargetID string `json:"targetId"` // peer's reply address
	DHPubKey []byte `json:"dhPubKey"`
	Group    int    `json:"group"`
	Salt     []byte `json:"salt"`
	Sig      []byte `json:"sig"`
}

func (m *DHExchange) Validate() error {
	if m.V != common.WireVersion {
		return fmt.Errorf("%w: unsupported version %d", common.ErrValidation, m.V)
	}
	if !cryptox.ValidGroup(cryptox.Group(m.Group)) {
		return fmt.Errorf("%w: unknown DH group %d", common.ErrValidation, m.Group)
	}
	if len(m.DHPubKey) == 0 || len(m.DHPubKey) > m.Group/8 {
		return fmt.Errorf("%w: DH public value has wrong size", common.ErrValidation)
	}
	if len(m.Salt) == 0 {
		return fmt.Errorf("%w: missing salt", common.ErrValidation)
	}
	if len(m.Sig) == 0 {
		return fmt.Errorf("%w: missing signature", common.ErrValidation)
	}
	return nil
}

func validatePubKey(der []byte) error {
	pub, err := cryptox.ImportPublicKey(der)
	if err != nil {
		return err
	}
	if pub.Size() < minModulusSize {
		return fmt.Errorf("%w: RSA modulus below %d bytes", common.ErrValidation, minModulusSize)
	}
	return nil
}
