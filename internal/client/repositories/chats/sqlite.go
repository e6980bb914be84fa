package chats

import (
	"context"
	"fmt"

	"github.com/dmarkov/parley/internal/client/models"
	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, row *models.Row) error {
	query := `INSERT INTO chats (owner_id, ciphertext, nonce) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, row.OwnerID, row.Ciphertext, row.Nonce)
	if err != nil {
		if dbx.IsUniqueViolation(err, "chats.nonce") {
			return common.ErrNonceReuse
		}
		return fmt.Errorf("failed to insert chat: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByOwner(ctx context.Context, ownerID string) ([]models.Row, error) {
	query := `SELECT owner_id, ciphertext, nonce FROM chats WHERE owner_id = ?`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select chats: %w", err)
	}
	defer rows.Close()

	var result []models.Row
	for rows.Next() {
		var item models.Row
		if err := rows.Scan(&item.OwnerID, &item.Ciphertext, &item.Nonce); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
