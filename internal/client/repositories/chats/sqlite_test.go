package chats

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/client/models"
	"github.com/dmarkov/parley/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE chats (
  owner_id TEXT NOT NULL,
  ciphertext BLOB NOT NULL,
  nonce BLOB NOT NULL UNIQUE
);
`)
	require.NoError(t, err)
	return db
}

func TestInsertAndGetByOwner(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, &models.Row{OwnerID: "contact-1", Ciphertext: []byte("c"), Nonce: []byte("n1")}))

	got, err := r.GetByOwner(ctx, "contact-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("c"), got[0].Ciphertext)
}

func TestInsert_DuplicateNonceRejected(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, &models.Row{OwnerID: "a", Ciphertext: []byte("x"), Nonce: []byte("dup")}))
	assert.ErrorIs(t, r.Insert(ctx, &models.Row{OwnerID: "a", Ciphertext: []byte("y"), Nonce: []byte("dup")}), common.ErrNonceReuse)
}
