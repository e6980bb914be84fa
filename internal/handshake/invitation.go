// Package handshake implements the invitation protocol that turns two
// strangers on the relay into verified contacts: invitation, RSVP,
// authenticated Diffie-Hellman exchange, shared secret. One Handshake
// instance tracks one peer; instances are independent and a caller runs
// any number of them concurrently, but calls on a single instance must be
// serialized.
package handshake

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/cryptox"
	"github.com/dmarkov/parley/internal/logging"
)

// Choice is the human's answer to an incoming invitation.
type Choice int

const (
	// Reject declines silently. No reply is sent, so the rejected party
	// cannot tell a rejection from an offline peer.
	Reject Choice = iota + 1

	// Block is Reject plus a hint to the caller to drop future
	// invitations from this name without prompting. On the wire it is
	// indistinguishable from Reject.
	Block

	// Postpone sends a minimal keyless reply: "ask me later".
	Postpone

	// Accept proceeds to key exchange.
	Accept
)

// Answer is a dialog's verdict. Name and Greeting are only read for
// Accept; Name defaults to the local public name when empty.
type Answer struct {
	Choice   Choice
	Name     string
	Greeting string
}

// Dialog presents an incoming invitation to the human and waits for the
// verdict. It is a suspension point: it may block for minutes. The
// handshake does not care how the prompt is rendered.
type Dialog func(ctx context.Context, inv *Invitation) (Answer, error)

// Progress is a UI-facing checkpoint emitted during slow stages.
type Progress struct {
	Percentage int
	Message    string
}

// ProgressFunc receives progress checkpoints. May be nil.
type ProgressFunc func(Progress)

// Identity is the local side of a handshake: the account's public name
// and its long-lived RSA key.
type Identity struct {
	PublicName string
	Key        *rsa.PrivateKey

	// GreetingLimit caps greetings composed on this side. Zero means the
	// wire maximum; a configured value above the wire maximum is clamped
	// so the peer never drops what we send.
	GreetingLimit int
}

// Display states, for the caller's UI only. Wire behavior never branches
// on these.
const (
	StateInit         = "init"
	StateAwaitingRsvp = "awaitingRsvp"
	StatePostponed    = "postponed"
	StateVerification = "verification"
	StateComputed     = "secretComputed"
)

// Handshake is one invitation state machine. Every mutable field is a
// write-once cell; the first error is sticky and turns every later stage
// into a no-op, so the caller's only recovery is a fresh instance.
type Handshake struct {
	log      logging.Logger
	identity Identity
	localDER []byte // identity public key, PKIX DER
	dialog   Dialog
	progress ProgressFunc

	err   error
	state string

	isOutbound   cell[bool]
	invTime      cell[int64]
	localName    cell[string]
	localGreet   cell[string]
	peerAddress  cell[string]
	peerName     cell[string]
	peerGreet    cell[string]
	peerKey      cell[*rsa.PublicKey]
	peerDER      cell[[]byte]
	rsvp         cell[string]
	localKeyPair cell[*cryptox.DHKeyPair]
	localSalt    cell[[]byte]
	peerDHPub    cell[*big.Int]
	peerSalt     cell[[]byte]
	peerGroup    cell[cryptox.Group]
	secret       cell[[]byte]
}

// New creates a handshake for one peer. dialog is required for inbound
// invitations and ignored for outbound ones; progress may be nil.
func New(id Identity, dialog Dialog, progress ProgressFunc, log logging.Logger) (*Handshake, error) {
	if id.Key == nil || id.PublicName == "" {
		return nil, fmt.Errorf("%w: no local account for handshake", common.ErrValidation)
	}
	der, err := cryptox.ExportPublicKey(&id.Key.PublicKey)
	if err != nil {
		return nil, err
	}
	if id.GreetingLimit <= 0 || id.GreetingLimit > common.GreetingMaxLen {
		id.GreetingLimit = common.GreetingMaxLen
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Handshake{
		log:      log.With("component", "handshake", "name", id.PublicName),
		identity: id,
		localDER: der,
		dialog:   dialog,
		progress: progress,
		state:    StateInit,
	}, nil
}

// Err returns the sticky error, nil while the handshake is healthy.
func (h *Handshake) Err() error { return h.err }

// State returns the current display state.
func (h *Handshake) State() string { return h.state }

func (h *Handshake) failed() bool { return h.err != nil }

// fail records the first error; later errors lose. Once set, every stage
// returns immediately.
func (h *Handshake) fail(err error) error {
	if h.err == nil {
		h.err = err
		h.log.Warn(context.Background(), "handshake poisoned", "error", err)
	}
	return h.err
}

func (h *Handshake) report(pct int, msg string) {
	if h.progress != nil {
		h.progress(Progress{Percentage: pct, Message: msg})
	}
}

// PrepareInvitation starts an outbound handshake toward the peer known on
// the relay as target. selfAddr is the local socket address replies come
// back to. The returned message is ready to send.
func (h *Handshake) PrepareInvitation(selfAddr, target, greeting string) (*Invitation, error) {
	if h.failed() {
		return nil, h.err
	}
	if selfAddr == "" || target == "" {
		return nil, h.fail(fmt.Errorf("%w: missing address for invitation", common.ErrValidation))
	}
	if len(greeting) > h.identity.GreetingLimit {
		return nil, h.fail(fmt.Errorf("%w: greeting too long", common.ErrValidation))
	}
	if !setField(h, &h.isOutbound, "isOutbound", true) {
		return nil, h.err
	}
	setField(h, &h.localName, "localName", h.identity.PublicName)
	setField(h, &h.localGreet, "localGreeting", greeting)
	setField(h, &h.invTime, "time", time.Now().UnixMilli())
	if h.failed() {
		return nil, h.err
	}

	h.state = StateAwaitingRsvp
	return &Invitation{
		V:            common.WireVersion,
		Source:       selfAddr,
		Target:       target,
		Greeting:     greeting,
		GreetingName: h.identity.PublicName,
		PubKey:       h.localDER,
		Time:         h.invTime.value(),
	}, nil
}

// HandleInvitation processes an inbound invitation on a fresh instance:
// validate, enforce the timestamp floor, then show the dialog and act on
// the verdict. Reject and Block return a nil reply; a non-nil reply is
// ready to send to inv.Source.
//
// Malformed messages are dropped without touching state, so a garbage
// envelope cannot poison an instance that a well-formed one might still
// reach. The timestamp floor is different: an absurd time on an otherwise
// well-formed invitation is a replay signal and poisons the instance
// before any dialog is shown.
func (h *Handshake) HandleInvitation(ctx context.Context, selfAddr string, inv *Invitation) (*Reply, Choice, error) {
	if h.failed() {
		return nil, 0, h.err
	}
	if err := inv.Validate(); err != nil {
		h.log.Warn(ctx, "dropping malformed invitation", "error", err)
		return nil, 0, err
	}
	if inv.Time < common.OldestAllowedTime {
		return nil, 0, h.fail(fmt.Errorf("%w: invitation time %d below floor", common.ErrTimingViolation, inv.Time))
	}
	if h.dialog == nil {
		return nil, 0, h.fail(fmt.Errorf("%w: inbound handshake without a dialog", common.ErrValidation))
	}

	peerKey, err := cryptox.ImportPublicKey(inv.PubKey)
	if err != nil {
		return nil, 0, h.fail(err)
	}
	if !setField(h, &h.isOutbound, "isOutbound", false) {
		return nil, 0, h.err
	}
	setField(h, &h.invTime, "time", inv.Time)
	setField(h, &h.peerAddress, "peerAddress", inv.Source)
	setField(h, &h.peerName, "peerName", inv.GreetingName)
	setField(h, &h.peerGreet, "peerGreeting", inv.Greeting)
	setField(h, &h.peerKey, "peerKey", peerKey)
	setField(h, &h.peerDER, "peerKeyDER", inv.PubKey)
	if h.failed() {
		return nil, 0, h.err
	}

	answer, err := h.dialog(ctx, inv)
	if err != nil {
		return nil, 0, h.fail(err)
	}

	switch answer.Choice {
	case Reject, Block:
		// Silence. Answering would confirm this name is alive.
		h.state = StateInit
		return nil, answer.Choice, nil

	case Postpone:
		setField(h, &h.rsvp, "rsvp", AnswerPostpone)
		h.state = StatePostponed
		return &Reply{V: common.WireVersion, Answer: AnswerPostpone}, Postpone, nil

	case Accept:
		name := answer.Name
		if name == "" {
			name = h.identity.PublicName
		}
		if len(answer.Greeting) > h.identity.GreetingLimit {
			return nil, 0, h.fail(fmt.Errorf("%w: greeting too long", common.ErrValidation))
		}
		setField(h, &h.rsvp, "rsvp", AnswerAccept)
		setField(h, &h.localName, "localName", name)
		setField(h, &h.localGreet, "localGreeting", answer.Greeting)
		if h.failed() {
			return nil, 0, h.err
		}
		h.state = StateVerification
		return &Reply{
			V:               common.WireVersion,
			Answer:          AnswerAccept,
			OwnName:         selfAddr,
			GreetingName:    name,
			GreetingMessage: answer.Greeting,
			PubKey:          h.localDER,
		}, Accept, nil

	default:
		return nil, 0, h.fail(fmt.Errorf("%w: dialog returned unknown choice %d", common.ErrValidation, answer.Choice))
	}
}

// HandleReply processes the peer's RSVP on the outbound side.
func (h *Handshake) HandleReply(ctx context.Context, reply *Reply) error {
	if h.failed() {
		return h.err
	}
	if out, ok := h.isOutbound.Get(); !ok || !out {
		return h.fail(fmt.Errorf("%w: reply received on an inbound handshake", common.ErrPolicyViolation))
	}
	if _, ok := h.rsvp.Get(); ok {
		return h.fail(fmt.Errorf("%w: duplicate reply", common.ErrPolicyViolation))
	}
	if t, ok := h.invTime.Get(); !ok || t < common.OldestAllowedTime {
		return h.fail(fmt.Errorf("%w: invitation time %d below floor", common.ErrTimingViolation, t))
	}
	if err := reply.Validate(); err != nil {
		h.log.Warn(ctx, "dropping malformed reply", "error", err)
		return err
	}

	switch reply.Answer {
	case AnswerPostpone:
		setField(h, &h.rsvp, "rsvp", AnswerPostpone)
		h.state = StatePostponed
		return h.err

	case AnswerAccept:
		peerKey, err := cryptox.ImportPublicKey(reply.PubKey)
		if err != nil {
			return h.fail(err)
		}
		setField(h, &h.rsvp, "rsvp", answerVerification)
		setField(h, &h.peerAddress, "peerAddress", reply.OwnName)
		setField(h, &h.peerName, "peerName", reply.GreetingName)
		setField(h, &h.peerGreet, "peerGreeting", reply.GreetingMessage)
		setField(h, &h.peerKey, "peerKey", peerKey)
		setField(h, &h.peerDER, "peerKeyDER", reply.PubKey)
		if h.failed() {
			return h.err
		}
		h.state = StateVerification
		return nil

	default:
		return h.fail(fmt.Errorf("%w: unexpected answer %q", common.ErrValidation, reply.Answer))
	}
}

// PrepareDHExchange generates the local ephemeral keypair and salt, signs
// them with the identity key and returns the exchange message addressed to
// the peer. It may run before or after ReceiveDHExchange; if the peer's
// group is already known it wins over the requested one, so both sides
// always end up in the same field.
func (h *Handshake) PrepareDHExchange(group cryptox.Group) (*DHExchange, error) {
	if h.failed() {
		return nil, h.err
	}
	if h.state != StateVerification {
		return nil, h.fail(fmt.Errorf("%w: key exchange before accepted invitation", common.ErrPolicyViolation))
	}
	if _, ok := h.localKeyPair.Get(); ok {
		return nil, h.fail(fmt.Errorf("%w: duplicate key exchange", common.ErrPolicyViolation))
	}

	h.report(5, "choosing group strength")
	if pg, ok := h.peerGroup.Get(); ok && pg != group {
		h.log.Debug(context.Background(), "adopting peer DH group", "requested", int(group), "peer", int(pg))
		group = pg
	}
	if !cryptox.ValidGroup(group) {
		return nil, h.fail(fmt.Errorf("%w: unknown DH group %d", common.ErrValidation, group))
	}

	h.report(25, "generating ephemeral key")
	kp, err := cryptox.GenerateDHKeyPair(group)
	if err != nil {
		return nil, h.fail(err)
	}
	salt := common.GenerateRandByteArray(cryptox.SaltSize)

	h.report(70, "signing key material")
	pub := kp.Public.Bytes()
	sig, err := cryptox.Sign(h.identity.Key, append(append([]byte{}, pub...), salt...))
	if err != nil {
		return nil, h.fail(err)
	}

	setField(h, &h.localKeyPair, "localKeyPair", kp)
	setField(h, &h.localSalt, "localSalt", salt)
	if h.failed() {
		return nil, h.err
	}

	h.report(100, "key material ready")
	return &DHExchange{
		V:        common.WireVersion,
		TargetID: h.peerAddress.value(),
		DHPubKey: pub,
		Group:    int(group),
		Salt:     salt,
		Sig:      sig,
	}, nil
}

// ReceiveDHExchange stores the peer's ephemeral key material after
// checking the RSA-PSS signature against the peer's already-exchanged
// identity key. A bad signature poisons the handshake: someone on the
// relay path is substituting key material.
func (h *Handshake) ReceiveDHExchange(ctx context.Context, msg *DHExchange) error {
	if h.failed() {
		return h.err
	}
	if err := msg.Validate(); err != nil {
		h.log.Warn(ctx, "dropping malformed DH exchange", "error", err)
		return err
	}
	peerKey, ok := h.peerKey.Get()
	if !ok {
		return h.fail(fmt.Errorf("%w: DH exchange before identity exchange", common.ErrPolicyViolation))
	}
	signed := append(append([]byte{}, msg.DHPubKey...), msg.Salt...)
	if err := cryptox.Verify(peerKey, signed, msg.Sig); err != nil {
		return h.fail(fmt.Errorf("peer DH material: %w", err))
	}
	if kp, ok := h.localKeyPair.Get(); ok && kp.Group != cryptox.Group(msg.Group) {
		return h.fail(fmt.Errorf("%w: DH group mismatch", common.ErrValidation))
	}

	setField(h, &h.peerDHPub, "peerDHPub", new(big.Int).SetBytes(msg.DHPubKey))
	setField(h, &h.peerSalt, "peerSalt", msg.Salt)
	setField(h, &h.peerGroup, "peerGroup", cryptox.Group(msg.Group))
	return h.err
}

// ComputeSharedSecret derives the DH shared secret once both halves are
// present. Calling it again after success is a no-op; calling it early
// returns an error without poisoning the instance, since the missing half
// may simply still be in flight.
func (h *Handshake) ComputeSharedSecret() error {
	if h.failed() {
		return h.err
	}
	if _, ok := h.secret.Get(); ok {
		return nil
	}
	kp, haveLocal := h.localKeyPair.Get()
	peerPub, havePeer := h.peerDHPub.Get()
	if !haveLocal || !havePeer {
		return fmt.Errorf("%w: key exchange incomplete", common.ErrValidation)
	}
	secret, err := cryptox.SharedSecret(kp, peerPub)
	if err != nil {
		return h.fail(err)
	}
	setField(h, &h.secret, "sharedSecret", secret)
	if h.failed() {
		return h.err
	}
	h.state = StateComputed
	return nil
}

// Result is everything the vault needs to persist the new contact.
type Result struct {
	PeerName     string
	PeerGreeting string
	PeerPubKey   []byte // PKIX DER
	SharedSecret []byte
	SharedSalt   []byte
}

// Result packages the finished handshake. The shared salt is a digest of
// the handshake transcript: both sides hash the same fields in the same
// initiator-first order, so the salt (and the verification PIN derived
// from it) comes out byte-identical on both ends. Ephemeral socket
// addresses are deliberately not part of the transcript; they rotate on
// reconnect and would make independently computed PINs diverge.
func (h *Handshake) Result() (*Result, error) {
	if h.failed() {
		return nil, h.err
	}
	secret, ok := h.secret.Get()
	if !ok {
		return nil, fmt.Errorf("%w: shared secret not computed", common.ErrValidation)
	}
	return &Result{
		PeerName:     h.peerName.value(),
		PeerGreeting: h.peerGreet.value(),
		PeerPubKey:   h.peerDER.value(),
		SharedSecret: secret,
		SharedSalt:   h.transcriptDigest(),
	}, nil
}

const transcriptTag = "parley/transcript/v1"

func (h *Handshake) transcriptDigest() []byte {
	initName, recvName := h.localName.value(), h.peerName.value()
	initSalt, recvSalt := h.localSalt.value(), h.peerSalt.value()
	initKey, recvKey := h.localDER, h.peerDER.value()
	if !h.isOutbound.value() {
		initName, recvName = recvName, initName
		initSalt, recvSalt = recvSalt, initSalt
		initKey, recvKey = recvKey, initKey
	}

	sum := sha256.New()
	sum.Write([]byte(transcriptTag))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(h.invTime.value()))
	for _, field := range [][]byte{
		ts[:],
		[]byte(initName), []byte(recvName),
		initSalt, recvSalt,
		initKey, recvKey,
	} {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(field)))
		sum.Write(n[:])
		sum.Write(field)
	}
	return sum.Sum(nil)
}
