// Package cli provides the interactive Parley command-line client.
//
// It wires configuration, the encrypted vault, the relay transport, and an
// interactive REPL. Typical flow: unlock (or create) an account, register
// the public name on the relay, and drive invitations and contacts through
// user commands.
//
// Key features:
//   - Register / Login / Logout against the local encrypted vault
//   - Invite a public name and respond to inbound invitations
//   - Verification pin display for man-in-the-middle checks
//   - List contacts and chats, store and page through messages
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
