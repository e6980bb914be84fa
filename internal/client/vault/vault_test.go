package vault

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/client/models"
	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/logging"
	"github.com/dmarkov/parley/internal/workerpool"

	_ "modernc.org/sqlite"
)

// One shared fixture for the package: account creation generates a 4096-bit
// identity key, which is too slow to repeat per test. Tests scope their
// assertions to records they created themselves.
var (
	fxOnce    sync.Once
	fxDB      *sql.DB
	fxPool    *workerpool.Pool
	fxVault   *Vault
	fxSession *Session
)

const fxPassword = "correct horse"

func fixture(t *testing.T) (*Vault, *Session) {
	t.Helper()
	fxOnce.Do(func() {
		ctx := context.Background()

		db, err := InitDatabase(ctx, "file:vault_tests?mode=memory&cache=shared")
		if err != nil {
			panic(err)
		}
		db.SetMaxOpenConns(1)
		fxDB = db

		fxPool = workerpool.New(2, workerpool.LIFO)
		fxVault = New(db, fxPool, logging.NewNopLogger())

		s, err := fxVault.CreateAccount(ctx, CreateAccountParams{
			AccountName:  "alice",
			PersonalName: "Alice",
			PublicName:   "alice#1",
			Password:     []byte(fxPassword),
		})
		if err != nil {
			panic(err)
		}
		fxSession = s
	})
	return fxVault, fxSession
}

func TestCreateAccount_PopulatesIdentity(t *testing.T) {
	_, s := fixture(t)

	a := s.Account
	assert.Equal(t, "alice", a.AccountName)
	assert.Equal(t, "alice#1", a.PublicName)
	assert.Len(t, a.AccountID, common.DetachableIDSize*2)
	assert.Len(t, a.ContactDetachableID, common.DetachableIDSize*2)
	assert.Len(t, a.PrivateContactIDSalt, common.PrivateSaltSize)
	assert.Len(t, a.PrivateChatIDSalt, common.PrivateSaltSize)
	assert.NotEmpty(t, a.ModulusHash)
	assert.NotEqual(t, a.AccountName, a.ContactDetachableID)

	key, err := a.PrivateKey()
	require.NoError(t, err)
	assert.NotNil(t, key.PublicKey.N)
}

func TestCreateAccount_DuplicateNameRejected(t *testing.T) {
	v, _ := fixture(t)

	_, err := v.CreateAccount(context.Background(), CreateAccountParams{
		AccountName: "alice",
		Password:    []byte("x"),
	})
	assert.ErrorIs(t, err, common.ErrPolicyViolation)
}

func TestUnlock_CorrectAndWrongPassword(t *testing.T) {
	v, s := fixture(t)
	ctx := context.Background()

	unlocked, err := v.Unlock(ctx, "alice", []byte(fxPassword))
	require.NoError(t, err)
	defer unlocked.Close()
	assert.Equal(t, s.Account.AccountID, unlocked.Account.AccountID)

	_, err = v.Unlock(ctx, "alice", []byte("wrong"))
	assert.ErrorIs(t, err, common.ErrCryptoFailure)

	_, err = v.Unlock(ctx, "nobody", []byte("x"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUnlockAll_OnlyPasswordlessAccounts(t *testing.T) {
	v, _ := fixture(t)
	ctx := context.Background()

	anon, err := v.CreateAccount(ctx, CreateAccountParams{
		AccountName:  "anon",
		Passwordless: true,
	})
	require.NoError(t, err)
	defer anon.Close()

	sessions, err := v.UnlockAll(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(sessions))
	for _, s := range sessions {
		names = append(names, s.Account.AccountName)
		s.Close()
	}
	assert.Contains(t, names, "anon")
	assert.NotContains(t, names, "alice", "password-protected accounts must not auto-unlock")
}

func addTestContact(t *testing.T, v *Vault, s *Session, name string) (*models.Contact, *models.Chat) {
	t.Helper()
	contact, chat, err := v.AddContact(context.Background(), s, AddContactParams{
		InitialName:  name,
		PubKey:       []byte("peer-pubkey-der"),
		SharedSecret: common.GenerateRandByteArray(64),
		SharedSalt:   common.GenerateRandByteArray(32),
	})
	require.NoError(t, err)
	return contact, chat
}

func TestAddContact_CreatesFirstChat(t *testing.T) {
	v, s := fixture(t)
	ctx := context.Background()

	contact, chat := addTestContact(t, v, s, "bob")
	assert.NotEmpty(t, contact.InternalContactID)
	assert.NotEmpty(t, contact.ChatDetachableID)
	assert.NotEmpty(t, chat.MessageDetachableID)
	assert.Empty(t, chat.Name, "first chat name falls back to the contact name")

	chatList, err := v.Chats(ctx, s, contact)
	require.NoError(t, err)
	require.Len(t, chatList, 1)
	assert.Equal(t, chat.InternalChatID, chatList[0].InternalChatID)

	contactsList, err := v.Contacts(ctx, s)
	require.NoError(t, err)
	found := false
	for _, c := range contactsList {
		if c.InternalContactID == contact.InternalContactID {
			found = true
			assert.Equal(t, "bob", c.InitialName)
		}
	}
	assert.True(t, found)
}

func TestMessages_ReverseChronologicalPaging(t *testing.T) {
	v, s := fixture(t)
	ctx := context.Background()

	contact, chat := addTestContact(t, v, s, "carol")

	for i, body := range []string{"first", "second", "third"} {
		_, err := v.CreateMessage(ctx, s, contact, chat, models.Message{
			Body:    body,
			Time:    1_725_000_000_000 + int64(i),
			IsLocal: i%2 == 0,
		})
		require.NoError(t, err)
	}

	page, err := v.Messages(ctx, s, contact, chat, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "third", page[0].Body)
	assert.Equal(t, "second", page[1].Body)

	page, err = v.Messages(ctx, s, contact, chat, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "first", page[0].Body)
}

func TestContactRecords_UnreadableUnderAccountKey(t *testing.T) {
	v, s := fixture(t)
	ctx := context.Background()

	addTestContact(t, v, s, "dave")

	// Reading the raw rows with the account-level key must fail: the
	// contact level is salted separately and one level never derives
	// another.
	rows, err := v.contacts.GetByOwner(ctx, s.Account.ContactDetachableID)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	accountKey := make([]byte, 32)
	copy(accountKey, s.Account.Verifier) // any wrong 32 bytes
	var c models.Contact
	assert.ErrorIs(t, v.pool.Decrypt(rows[0].Ciphertext, rows[0].Nonce, accountKey, &c), common.ErrCryptoFailure)
}

func TestAddContact_FailedChatInsertLeavesNoContactRow(t *testing.T) {
	_, s := fixture(t)
	ctx := context.Background()

	// A private database so breaking the schema cannot leak into the
	// shared fixture.
	db, err := InitDatabase(ctx, "file:vault_atomic_test?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	v := New(db, fxPool, logging.NewNopLogger())

	_, err = db.ExecContext(ctx, `DROP TABLE chats`)
	require.NoError(t, err)

	_, _, err = v.AddContact(ctx, s, AddContactParams{
		InitialName:  "mallory#9",
		PubKey:       []byte("der"),
		SharedSecret: []byte("secret"),
		SharedSalt:   []byte("salt"),
	})
	require.Error(t, err)

	// The whole acceptance rolls back: no contact without its first chat.
	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n))
	assert.Zero(t, n)
}
