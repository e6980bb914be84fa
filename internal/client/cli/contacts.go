package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmarkov/parley/internal/client/models"
)

// historyPageSize is how many messages one "history" call shows.
const historyPageSize = 20

// Contacts lists the stored contacts of the unlocked account.
func (a *App) Contacts(ctx context.Context) error {
	list, err := a.vault.Contacts(ctx, a.currentSession())
	if err != nil {
		printlnFn("Listing failed:", err.Error())
		return err
	}
	if len(list) == 0 {
		printlnFn("No contacts yet. Use 'invite <publicName>' to add one.")
		return nil
	}
	for i := range list {
		printlnFn(fmt.Sprintf("  %s", list[i].InitialName))
	}
	return nil
}

// Chats lists the chats of a contact: "chats <contactName>".
func (a *App) Chats(ctx context.Context, args []string) error {
	contact, err := a.requireContact(ctx, args, "chats")
	if err != nil || contact == nil {
		return err
	}
	list, err := a.vault.Chats(ctx, a.currentSession(), contact)
	if err != nil {
		printlnFn("Listing failed:", err.Error())
		return err
	}
	for i := range list {
		name := list[i].Name
		if name == "" {
			name = contact.InitialName
		}
		printlnFn(fmt.Sprintf("  %s", name))
	}
	return nil
}

// History shows the newest messages of a contact's first chat, newest
// first: "history <contactName>".
func (a *App) History(ctx context.Context, args []string) error {
	contact, chat, err := a.firstChat(ctx, args, "history")
	if err != nil || chat == nil {
		return err
	}

	msgs, err := a.vault.Messages(ctx, a.currentSession(), contact, chat, 0, historyPageSize)
	if err != nil {
		printlnFn("Loading failed:", err.Error())
		return err
	}
	if len(msgs) == 0 {
		printlnFn("No messages.")
		return nil
	}
	for _, m := range msgs {
		author := contact.InitialName
		if m.IsLocal {
			author = "me"
		}
		stamp := time.UnixMilli(m.Time).Format("2006-01-02 15:04")
		printlnFn(fmt.Sprintf("  [%s] %s: %s", stamp, author, m.Body))
	}
	return nil
}

// Note stores a local message in a contact's first chat:
// "note <contactName>".
func (a *App) Note(ctx context.Context, args []string) error {
	contact, chat, err := a.firstChat(ctx, args, "note")
	if err != nil || chat == nil {
		return err
	}

	body, err := GetMultiline(a.reader, "Message", os.Stdout)
	if err != nil || strings.TrimSpace(body) == "" {
		return err
	}

	msg := models.Message{Body: body, Time: time.Now().UnixMilli(), IsLocal: true}
	if _, err := a.vault.CreateMessage(ctx, a.currentSession(), contact, chat, msg); err != nil {
		printlnFn("Saving failed:", err.Error())
		return err
	}
	printlnFn("Saved.")
	return nil
}

func (a *App) requireContact(ctx context.Context, args []string, cmd string) (*models.Contact, error) {
	if len(args) == 0 {
		printlnFn(fmt.Sprintf("Usage: %s <contactName>", cmd))
		return nil, nil
	}
	contact, err := a.contactByName(ctx, args[0])
	if err != nil {
		return nil, err
	}
	if contact == nil {
		printlnFn("No such contact.")
	}
	return contact, nil
}

func (a *App) firstChat(ctx context.Context, args []string, cmd string) (*models.Contact, *models.Chat, error) {
	contact, err := a.requireContact(ctx, args, cmd)
	if err != nil || contact == nil {
		return nil, nil, err
	}
	chats, err := a.vault.Chats(ctx, a.currentSession(), contact)
	if err != nil {
		return nil, nil, err
	}
	if len(chats) == 0 {
		printlnFn("Contact has no chat.")
		return contact, nil, nil
	}
	return contact, &chats[0], nil
}
