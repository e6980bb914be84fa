package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmarkov/parley/internal/client/vault"
	"github.com/dmarkov/parley/internal/common"
)

// Register interactively creates a new account. With the passwordless flag
// the account is encrypted under the well-known anonymous password and
// opens without prompting.
func (a *App) Register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Account name (local label)", os.Stdout)
	if err != nil {
		return err
	}
	personal, err := GetSimpleText(a.reader, "Personal name (shown to confirmed contacts)", os.Stdout)
	if err != nil {
		return err
	}
	public, err := GetSimpleText(a.reader, "Public name (discoverable handle, e.g. alice#1)", os.Stdout)
	if err != nil {
		return err
	}

	params := vault.CreateAccountParams{
		AccountName:  name,
		PersonalName: personal,
		PublicName:   public,
		Passwordless: a.config.Passwordless,
	}
	if !params.Passwordless {
		pw, err := GetPassword(os.Stdout)
		if err != nil {
			return err
		}
		params.Password = pw
	}

	printlnFn("Generating identity key, this can take a moment...")
	session, err := a.vault.CreateAccount(ctx, params)
	if err != nil {
		printlnFn("Account creation failed:", err.Error())
		return err
	}

	a.adoptSession(ctx, session)
	printlnFn("Account created. Fingerprint:", session.Account.ModulusHash)
	return nil
}

// Login unlocks an existing account by name and password.
func (a *App) Login(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Account name", os.Stdout)
	if err != nil {
		return err
	}

	var password []byte
	if !a.config.Passwordless {
		if password, err = GetPassword(os.Stdout); err != nil {
			return err
		}
	} else {
		password = []byte(common.AnonymousPassword)
	}

	session, err := a.vault.Unlock(ctx, name, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrCryptoFailure):
			printlnFn("Wrong password.")
		case errors.Is(err, common.ErrNotFound):
			printlnFn("No such account.")
		default:
			printlnFn("Unlock failed:", err.Error())
		}
		return err
	}

	a.adoptSession(ctx, session)
	printlnFn(fmt.Sprintf("Unlocked %q.", session.Account.AccountName))
	return nil
}

// autoUnlock scans the store for passwordless accounts and adopts the
// first one. Decrypt failures on other accounts are expected and silent.
func (a *App) autoUnlock(ctx context.Context) error {
	sessions, err := a.vault.UnlockAll(ctx)
	if err != nil || len(sessions) == 0 {
		return err
	}
	for _, s := range sessions[1:] {
		s.Close()
	}
	a.adoptSession(ctx, sessions[0])
	printlnFn(fmt.Sprintf("Unlocked passwordless account %q.", sessions[0].Account.AccountName))
	return nil
}

// Logout wipes the session.
func (a *App) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}
	printlnFn("Locked.")
	return nil
}

// adoptSession installs the session and registers the account's public
// name on the relay so invitations can find it.
func (a *App) adoptSession(ctx context.Context, s *vault.Session) {
	a.mu.Lock()
	old := a.session
	a.session = s
	a.mu.Unlock()
	if old != nil {
		old.Close()
	}

	if name := s.Account.PublicName; name != "" {
		if err := a.transport.Register(ctx, name); err != nil {
			a.log.Warn(ctx, "public name registration failed", "name", name, "error", err)
		}
	}
}
