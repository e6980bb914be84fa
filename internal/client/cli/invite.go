package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmarkov/parley/internal/client/vault"
	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/handshake"
	"github.com/dmarkov/parley/internal/pin"
)

// installHandlers subscribes the protocol events. Handlers run off the
// REPL goroutine and only queue or forward; all protocol decisions happen
// on the REPL flow.
func (a *App) installHandlers() {
	a.transport.OnMessage(handshake.EventInvitation, func(ctx context.Context, payload json.RawMessage) {
		var inv handshake.Invitation
		if err := json.Unmarshal(payload, &inv); err != nil {
			a.log.Warn(ctx, "dropping unparseable invitation", "error", err)
			return
		}
		a.mu.Lock()
		a.pendingInvites = append(a.pendingInvites, &inv)
		n := len(a.pendingInvites)
		a.mu.Unlock()
		printlnFn(fmt.Sprintf("\nInvitation received from %q (%d pending, type 'respond')", inv.GreetingName, n))
	})

	a.transport.OnMessage(handshake.EventInvitationReply, func(ctx context.Context, payload json.RawMessage) {
		var reply handshake.Reply
		if err := json.Unmarshal(payload, &reply); err != nil {
			a.log.Warn(ctx, "dropping unparseable reply", "error", err)
			return
		}
		select {
		case a.replyIn <- &reply:
		default:
			a.log.Warn(ctx, "discarding reply, no exchange in progress")
		}
	})

	a.transport.OnMessage(handshake.EventDHExchange, func(ctx context.Context, payload json.RawMessage) {
		var msg handshake.DHExchange
		if err := json.Unmarshal(payload, &msg); err != nil {
			a.log.Warn(ctx, "dropping unparseable DH exchange", "error", err)
			return
		}
		select {
		case a.dhIn <- &msg:
		default:
			a.log.Warn(ctx, "discarding DH exchange, no exchange in progress")
		}
	})
}

// Invite starts an outbound handshake toward a public name:
// "invite bob#2 [greeting...]".
func (a *App) Invite(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: invite <publicName> [greeting]")
		return nil
	}
	target := args[0]
	greeting := strings.Join(args[1:], " ")

	id, err := a.identity()
	if err != nil {
		return err
	}
	h, err := handshake.New(id, nil, a.showProgress, a.log)
	if err != nil {
		return err
	}

	inv, err := h.PrepareInvitation(a.transport.SelfAddress(), target, greeting)
	if err != nil {
		return err
	}
	if err := a.transport.SendToRoom(ctx, target, handshake.EventInvitation, inv); err != nil {
		printlnFn("Sending failed:", err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("Invitation sent to %q, waiting for the answer...", target))

	reply, err := a.awaitReply(ctx)
	if err != nil {
		printlnFn("No answer:", err.Error())
		return err
	}
	if err := h.HandleReply(ctx, reply); err != nil {
		printlnFn("Answer rejected:", err.Error())
		return err
	}
	if reply.Answer == handshake.AnswerPostpone {
		printlnFn(fmt.Sprintf("%q asked to be invited later.", target))
		return nil
	}

	printlnFn(fmt.Sprintf("%q accepted. Exchanging keys...", reply.GreetingName))
	return a.runKeyExchange(ctx, h)
}

// Respond handles the oldest pending inbound invitation interactively.
func (a *App) Respond(ctx context.Context) error {
	a.mu.Lock()
	var inv *handshake.Invitation
	if len(a.pendingInvites) > 0 {
		inv = a.pendingInvites[0]
		a.pendingInvites = a.pendingInvites[1:]
	}
	a.mu.Unlock()
	if inv == nil {
		printlnFn("No pending invitations.")
		return nil
	}

	id, err := a.identity()
	if err != nil {
		return err
	}
	h, err := handshake.New(id, a.promptDialog, a.showProgress, a.log)
	if err != nil {
		return err
	}

	dialogCtx, cancel := context.WithTimeout(ctx, a.config.DialogTimeout)
	reply, choice, err := h.HandleInvitation(dialogCtx, a.transport.SelfAddress(), inv)
	cancel()
	if err != nil {
		printlnFn("Invitation dropped:", err.Error())
		return err
	}

	switch choice {
	case handshake.Reject, handshake.Block:
		// No reply leaves the inviter unable to tell a rejection from an
		// offline peer.
		printlnFn("Invitation declined silently.")
		return nil
	case handshake.Postpone:
		if err := a.transport.Send(ctx, inv.Source, handshake.EventInvitationReply, reply); err != nil {
			return err
		}
		printlnFn("Asked to be invited later.")
		return nil
	}

	if err := a.transport.Send(ctx, inv.Source, handshake.EventInvitationReply, reply); err != nil {
		printlnFn("Sending failed:", err.Error())
		return err
	}
	printlnFn("Accepted. Exchanging keys...")
	return a.runKeyExchange(ctx, h)
}

// runKeyExchange drives the order-free DH stage to completion, stores the
// new contact and shows the verification pin.
func (a *App) runKeyExchange(ctx context.Context, h *handshake.Handshake) error {
	msg, err := h.PrepareDHExchange(a.config.DHGroup())
	if err != nil {
		return err
	}
	if err := a.transport.Send(ctx, msg.TargetID, handshake.EventDHExchange, msg); err != nil {
		return err
	}

	peerMsg, err := a.awaitDH(ctx)
	if err != nil {
		printlnFn("Peer key material never arrived:", err.Error())
		return err
	}
	if err := h.ReceiveDHExchange(ctx, peerMsg); err != nil {
		return err
	}
	if err := h.ComputeSharedSecret(); err != nil {
		return err
	}

	res, err := h.Result()
	if err != nil {
		return err
	}

	contact, _, err := a.vault.AddContact(ctx, a.currentSession(), vault.AddContactParams{
		InitialName:  res.PeerName,
		PubKey:       res.PeerPubKey,
		SharedSecret: res.SharedSecret,
		SharedSalt:   res.SharedSalt,
	})
	if err != nil {
		printlnFn("Saving contact failed:", err.Error())
		return err
	}

	p, err := pin.Derive(res.SharedSecret, res.SharedSalt)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Contact %q saved.", contact.InitialName))
	a.showPin(p)
	return nil
}

// Pin re-displays the verification pin for a stored contact:
// "pin <contactName>".
func (a *App) Pin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: pin <contactName>")
		return nil
	}
	contact, err := a.contactByName(ctx, args[0])
	if err != nil {
		return err
	}
	if contact == nil {
		printlnFn("No such contact.")
		return nil
	}
	p, err := pin.Derive(contact.InitialSharedSecret, contact.SharedSalt)
	if err != nil {
		return err
	}
	a.showPin(p)
	return nil
}

func (a *App) showPin(p *pin.Pin) {
	printlnFn(fmt.Sprintf("Verification pin: %s (%s)", p.Code, p.Color))
	printlnFn("Compare it with your contact out loud. Equal pins mean nobody sat between you.")
}

// promptDialog is the handshake's human suspension point: show the
// invitation, read the verdict.
func (a *App) promptDialog(ctx context.Context, inv *handshake.Invitation) (handshake.Answer, error) {
	printlnFn(fmt.Sprintf("Invitation from %q: %s", inv.GreetingName, inv.Greeting))

	answer, err := GetSimpleText(a.reader, "Answer: (a)ccept, (p)ostpone, (r)eject, (b)lock", os.Stdout)
	if err != nil {
		return handshake.Answer{}, err
	}
	if ctx.Err() != nil {
		return handshake.Answer{}, fmt.Errorf("%w: dialog timed out", common.ErrTimeout)
	}

	switch strings.ToLower(answer) {
	case "a", "accept":
		greeting, err := GetSimpleText(a.reader, "Greeting to send back", os.Stdout)
		if err != nil {
			return handshake.Answer{}, err
		}
		return handshake.Answer{Choice: handshake.Accept, Greeting: greeting}, nil
	case "p", "postpone":
		return handshake.Answer{Choice: handshake.Postpone}, nil
	case "b", "block":
		return handshake.Answer{Choice: handshake.Block}, nil
	default:
		return handshake.Answer{Choice: handshake.Reject}, nil
	}
}

func (a *App) showProgress(p handshake.Progress) {
	printlnFn(fmt.Sprintf("  [%3d%%] %s", p.Percentage, p.Message))
}

func (a *App) awaitReply(ctx context.Context) (*handshake.Reply, error) {
	timer := time.NewTimer(a.config.DialogTimeout)
	defer timer.Stop()
	select {
	case reply := <-a.replyIn:
		return reply, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: no reply within %s", common.ErrTimeout, a.config.DialogTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *App) awaitDH(ctx context.Context) (*handshake.DHExchange, error) {
	timer := time.NewTimer(a.config.DialogTimeout)
	defer timer.Stop()
	select {
	case msg := <-a.dhIn:
		return msg, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: no key material within %s", common.ErrTimeout, a.config.DialogTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
