package messages

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

func (r *SQLiteRepository) Insert(ctx context.Context, row *models.Row) (int64, error) {
	query := `INSERT INTO messages (owner_id, ciphertext, nonce) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, row.OwnerID, row.Ciphertext, row.Nonce)
	if err != nil {
		if dbx.IsUniqueViolation(err, "messages.nonce") {
			return 0, common.ErrNonceReuse
		}
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get assigned sequence: %w", err)
	}
	return seq, nil
}

func (r *SQLiteRepository) GetOrderedPage(ctx context.Context, ownerID string, offset, count int) ([]models.MessageRow, error) {
	query := `SELECT seq, owner_id, ciphertext, nonce FROM messages
		WHERE owner_id = ? ORDER BY seq DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, ownerID, count, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []models.MessageRow
	for rows.Next() {
		var item models.MessageRow
		if err := rows.Scan(&item.Seq, &item.OwnerID, &item.Ciphertext, &item.Nonce); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}
