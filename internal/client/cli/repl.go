package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Contacts(ctx context.Context) error
	Chats(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Note(ctx context.Context, args []string) error
	Invite(ctx context.Context, args []string) error
	Respond(ctx context.Context) error
	Pin(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the Parley client.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Locked:
//	  - help              — show available commands
//	  - register          — create an account
//	  - login             — unlock an account
//	  - exit | quit       — leave the program
//
//	Unlocked:
//	  - help              — show available commands
//	  - contacts          — list contacts
//	  - chats <name>      — list a contact's chats
//	  - history <name>    — show recent messages, newest first
//	  - note <name>       — store a local message
//	  - invite <name>     — invite a public name as a contact
//	  - respond           — answer the oldest pending invitation
//	  - pin <name>        — re-show a contact's verification pin
//	  - logout            — lock the vault
//	  - exit | quit       — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("parley (%s) > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		if !a.isUnlocked() {
			switch cmd {
			case "help":
				printlnFn("Available commands: register, login, exit")
			case "register":
				_ = a.Register(ctx)
			case "login":
				_ = a.Login(ctx)
			case "exit", "quit":
				printlnFn("Bye!")
				return
			default:
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "help":
			printlnFn("Available commands: contacts, chats, history, note, invite, respond, pin, logout, exit")

		case "contacts":
			_ = a.Contacts(ctx)

		case "chats":
			_ = a.Chats(ctx, args)

		case "history":
			_ = a.History(ctx, args)

		case "note":
			_ = a.Note(ctx, args)

		case "invite":
			_ = a.Invite(ctx, args)

		case "respond":
			_ = a.Respond(ctx)

		case "pin":
			_ = a.Pin(ctx, args)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
