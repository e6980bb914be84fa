package contacts

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
	query := `INSERT INTO contacts (owner_id, ciphertext, nonce) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, row.OwnerID, row.Ciphertext, row.Nonce)
	if err != nil {
		if dbx.IsUniqueViolation(err, "contacts.nonce") {
			return common.ErrNonceReuse
		}
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByOwner(ctx context.Context, ownerID string) ([]models.Row, error) {
	query := `SELECT owner_id, ciphertext, nonce FROM contacts WHERE owner_id = ?`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select contacts: %w", err)
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

func (r *SQLiteRepository) DeleteByNonce(ctx context.Context, nonce []byte) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE nonce = ?`, nonce)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}
