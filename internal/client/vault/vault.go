// Package vault is the layered encrypted store. Accounts, contacts, chats
// and messages are independently encrypted JSON blobs filed under random
// detachable ids; compromising the database without the account password
// reveals nothing, and even with one key level compromised, sibling data
// stays unlinkable.
package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmarkov/parley/internal/client/models"
	"github.com/dmarkov/parley/internal/client/repositories/accounts"
	"github.com/dmarkov/parley/internal/client/repositories/chats"
	"github.com/dmarkov/parley/internal/client/repositories/contacts"
	"github.com/dmarkov/parley/internal/client/repositories/messages"
	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/cryptox"
	"github.com/dmarkov/parley/internal/dbx"
	"github.com/dmarkov/parley/internal/logging"
	"github.com/dmarkov/parley/internal/workerpool"
)

// Vault owns the four record stores, the crypto worker pool, and the key
// derivation hierarchy. Symmetric work is offloaded to the pool; key
// derivation and RSA stay on the calling flow.
type Vault struct {
	db       *sql.DB
	accounts accounts.Repository
	contacts contacts.Repository
	chats    chats.Repository
	messages messages.Repository
	pool     *workerpool.Pool
	logger   logging.Logger
}

// New wires a Vault over an initialized database. The pool is borrowed,
// not owned; the caller closes it.
func New(db *sql.DB, pool *workerpool.Pool, logger logging.Logger) *Vault {
	return &Vault{
		db:       db,
		accounts: accounts.NewSQLiteRepository(db),
		contacts: contacts.NewSQLiteRepository(db),
		chats:    chats.NewSQLiteRepository(db),
		messages: messages.NewSQLiteRepository(db),
		pool:     pool,
		logger:   logger.With("module", "vault"),
	}
}

// Session is an unlocked account: the decrypted account record plus the
// password needed to derive the lower key levels on demand. Close wipes
// the secret material.
type Session struct {
	Account  models.Account
	password []byte
}

// Close wipes the session's secret material. The session must not be used
// afterwards.
func (s *Session) Close() {
	common.WipeByteArray(s.password)
	common.WipeByteArray(s.Account.IdentityKey)
}

func (s *Session) contactKey() []byte {
	return cryptox.DeriveContactKey(s.password, s.Account.PrivateContactIDSalt)
}

func (s *Session) chatKey(contact *models.Contact) []byte {
	return cryptox.DeriveChatKey(s.password, contact.PrivateChatIDSalt)
}

// CreateAccountParams collects account setup input. A passwordless account
// passes Passwordless=true and an empty password.
type CreateAccountParams struct {
	AccountName  string
	PersonalName string
	PublicName   string
	Password     []byte
	Passwordless bool
}

// CreateAccount generates the identity keypair, ids and salts, encrypts
// the account blob under the derived account key, and persists it. The
// returned session is already unlocked.
func (v *Vault) CreateAccount(ctx context.Context, p CreateAccountParams) (*Session, error) {
	if p.AccountName == "" {
		return nil, fmt.Errorf("%w: empty account name", common.ErrValidation)
	}

	password := p.Password
	if p.Passwordless {
		password = []byte(common.AnonymousPassword)
	}

	identity, err := cryptox.GenerateIdentityKey()
	if err != nil {
		return nil, fmt.Errorf("identity key generation: %w", err)
	}

	accountID, err := common.MakeRandHexString(common.DetachableIDSize)
	if err != nil {
		return nil, err
	}

	account := models.Account{
		AccountID:            accountID,
		AccountName:          p.AccountName,
		PersonalName:         p.PersonalName,
		PublicName:           p.PublicName,
		ModulusHash:          cryptox.ModulusFingerprint(&identity.PublicKey),
		ContactDetachableID:  common.MakeDetachableID(),
		PrivateContactIDSalt: common.GenerateRandByteArray(common.PrivateSaltSize),
		PrivateChatIDSalt:    common.GenerateRandByteArray(common.PrivateSaltSize),
	}
	account.SetPrivateKey(identity)

	key := cryptox.DeriveAccountKey(password)
	account.Verifier = cryptox.MakeVerifier(key)

	ciphertext, nonce, err := v.pool.Encrypt(account, key)
	if err != nil {
		return nil, fmt.Errorf("encryption error: %w", err)
	}

	row := &models.AccountRow{Name: p.AccountName, Ciphertext: ciphertext, Nonce: nonce}
	if err := v.accounts.Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}

	v.logger.Info(ctx, "account created", "name", p.AccountName, "fingerprint", account.ModulusHash)
	return &Session{Account: account, password: append([]byte(nil), password...)}, nil
}

// Unlock decrypts one account by name with the supplied password. This is
// the explicit, user-initiated path: failures are loud. A decryption
// failure means wrong password; a verifier mismatch after successful
// decryption means storage corruption.
func (v *Vault) Unlock(ctx context.Context, name string, password []byte) (*Session, error) {
	row, err := v.accounts.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	key := cryptox.DeriveAccountKey(password)
	session, err := v.unlockRow(row, key, password)
	if err != nil {
		v.logger.Error(ctx, "account unlock failed", "name", name, "error", err)
		return nil, err
	}
	return session, nil
}

// UnlockAll scans every stored account with the anonymous constant
// password, auto-unlocking passwordless accounts. Per-record decryption
// failures (usually just password-protected accounts) are swallowed, so
// one corrupt or locked record never blocks the scan.
func (v *Vault) UnlockAll(ctx context.Context) ([]*Session, error) {
	rows, err := v.accounts.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	password := []byte(common.AnonymousPassword)
	key := cryptox.DeriveAccountKey(password)

	var sessions []*Session
	for _, row := range rows {
		session, err := v.unlockRow(&row, key, password)
		if err != nil {
			v.logger.Debug(ctx, "account skipped during bulk unlock", "name", row.Name)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (v *Vault) unlockRow(row *models.AccountRow, key, password []byte) (*Session, error) {
	var account models.Account
	if err := v.pool.Decrypt(row.Ciphertext, row.Nonce, key, &account); err != nil {
		if errors.Is(err, common.ErrCryptoFailure) {
			return nil, common.ErrCryptoFailure
		}
		return nil, err
	}

	// The blob decrypted, so the key is right; a stored verifier that
	// disagrees can only mean the record was corrupted before encryption
	// or tampered with in a way GCM cannot see.
	if string(account.Verifier) != string(cryptox.MakeVerifier(key)) {
		return nil, fmt.Errorf("%w: verifier mismatch after decrypt", common.ErrInternal)
	}

	return &Session{Account: account, password: append([]byte(nil), password...)}, nil
}

// AddContactParams is the yield of a finished invitation handshake.
type AddContactParams struct {
	InitialName  string
	PubKey       []byte
	SharedSecret []byte
	SharedSalt   []byte
}

// AddContact persists a contact produced by a completed handshake and
// auto-creates its first chat. Both rows land in one transaction: a
// contact without its first chat must never survive a failure. The
// contact blob is keyed one level below the account key; its grouping id
// never derives from the account name.
func (v *Vault) AddContact(ctx context.Context, s *Session, p AddContactParams) (*models.Contact, *models.Chat, error) {
	contactID, err := common.MakeRandHexString(common.DetachableIDSize)
	if err != nil {
		return nil, nil, err
	}

	contact := models.Contact{
		InternalContactID:   contactID,
		InitialName:         p.InitialName,
		PubKey:              p.PubKey,
		ChatDetachableID:    common.MakeDetachableID(),
		PrivateChatIDSalt:   common.GenerateRandByteArray(common.PrivateSaltSize),
		InitialSharedSecret: p.SharedSecret,
		SharedSalt:          p.SharedSalt,
	}

	ciphertext, nonce, err := v.pool.Encrypt(contact, s.contactKey())
	if err != nil {
		return nil, nil, fmt.Errorf("encryption error: %w", err)
	}
	contactRow := &models.Row{OwnerID: s.Account.ContactDetachableID, Ciphertext: ciphertext, Nonce: nonce}

	chat, chatRow, err := v.encryptChat(s, &contact, "")
	if err != nil {
		return nil, nil, err
	}

	err = dbx.WithTx(ctx, v.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := contacts.NewSQLiteRepository(tx).Insert(ctx, contactRow); err != nil {
			return fmt.Errorf("saving error: %w", err)
		}
		if err := chats.NewSQLiteRepository(tx).Insert(ctx, chatRow); err != nil {
			return fmt.Errorf("saving error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	v.logger.Info(ctx, "contact added", "account", s.Account.AccountName, "contact", contact.InternalContactID)
	return &contact, chat, nil
}

// encryptChat builds and encrypts a chat record without persisting it.
func (v *Vault) encryptChat(s *Session, contact *models.Contact, name string) (*models.Chat, *models.Row, error) {
	chatID, err := common.MakeRandHexString(common.DetachableIDSize)
	if err != nil {
		return nil, nil, err
	}

	chat := models.Chat{
		InternalChatID:      chatID,
		Name:                name,
		MessageDetachableID: common.MakeDetachableID(),
	}

	ciphertext, nonce, err := v.pool.Encrypt(chat, s.chatKey(contact))
	if err != nil {
		return nil, nil, fmt.Errorf("encryption error: %w", err)
	}
	return &chat, &models.Row{OwnerID: contact.ChatDetachableID, Ciphertext: ciphertext, Nonce: nonce}, nil
}

// CreateChat adds a chat for the contact. An empty name falls back to the
// contact name at display time.
func (v *Vault) CreateChat(ctx context.Context, s *Session, contact *models.Contact, name string) (*models.Chat, error) {
	chat, row, err := v.encryptChat(s, contact, name)
	if err != nil {
		return nil, err
	}
	if err := v.chats.Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	return chat, nil
}

// CreateMessage encrypts and appends a message to the chat, returning the
// store-assigned ordering key.
func (v *Vault) CreateMessage(ctx context.Context, s *Session, contact *models.Contact, chat *models.Chat, msg models.Message) (int64, error) {
	ciphertext, nonce, err := v.pool.Encrypt(msg, s.chatKey(contact))
	if err != nil {
		return 0, fmt.Errorf("encryption error: %w", err)
	}

	row := &models.Row{OwnerID: chat.MessageDetachableID, Ciphertext: ciphertext, Nonce: nonce}
	seq, err := v.messages.Insert(ctx, row)
	if err != nil {
		return 0, fmt.Errorf("saving error: %w", err)
	}
	return seq, nil
}

// Contacts bulk-fetches and decrypts the session's contacts. A record that
// fails to decrypt is logged and skipped so one corrupt contact does not
// block the rest.
func (v *Vault) Contacts(ctx context.Context, s *Session) ([]models.Contact, error) {
	rows, err := v.contacts.GetByOwner(ctx, s.Account.ContactDetachableID)
	if err != nil {
		return nil, err
	}

	key := s.contactKey()
	result := make([]models.Contact, 0, len(rows))
	for _, row := range rows {
		var c models.Contact
		if err := v.pool.Decrypt(row.Ciphertext, row.Nonce, key, &c); err != nil {
			v.logger.Warn(ctx, "skipping undecryptable contact record", "error", err)
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

// Chats bulk-fetches and decrypts the contact's chats.
func (v *Vault) Chats(ctx context.Context, s *Session, contact *models.Contact) ([]models.Chat, error) {
	rows, err := v.chats.GetByOwner(ctx, contact.ChatDetachableID)
	if err != nil {
		return nil, err
	}

	key := s.chatKey(contact)
	result := make([]models.Chat, 0, len(rows))
	for _, row := range rows {
		var c models.Chat
		if err := v.pool.Decrypt(row.Ciphertext, row.Nonce, key, &c); err != nil {
			v.logger.Warn(ctx, "skipping undecryptable chat record", "error", err)
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

// Messages returns a reverse-chronological page of decrypted messages,
// skipping offset newest entries.
func (v *Vault) Messages(ctx context.Context, s *Session, contact *models.Contact, chat *models.Chat, offset, count int) ([]models.StoredMessage, error) {
	rows, err := v.messages.GetOrderedPage(ctx, chat.MessageDetachableID, offset, count)
	if err != nil {
		return nil, err
	}

	key := s.chatKey(contact)
	result := make([]models.StoredMessage, 0, len(rows))
	for _, row := range rows {
		var m models.Message
		if err := v.pool.Decrypt(row.Ciphertext, row.Nonce, key, &m); err != nil {
			v.logger.Warn(ctx, "skipping undecryptable message record", "seq", row.Seq, "error", err)
			continue
		}
		result = append(result, models.StoredMessage{Seq: row.Seq, Message: m})
	}
	return result, nil
}

// DeleteAccount removes the account blob on explicit deletion. Child
// records keyed by its detachable ids become permanently unreachable.
func (v *Vault) DeleteAccount(ctx context.Context, s *Session) error {
	return v.accounts.DeleteByName(ctx, s.Account.AccountName)
}
