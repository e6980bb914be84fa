package accounts

import (
	"context"
	"database/sql"
	"errors"
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

func (r *SQLiteRepository) Insert(ctx context.Context, row *models.AccountRow) error {
	query := `INSERT INTO accounts (name, ciphertext, nonce) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, row.Name, row.Ciphertext, row.Nonce)
	if err != nil {
		if dbx.IsUniqueViolation(err, "accounts.nonce") {
			return common.ErrNonceReuse
		}
		if dbx.IsUniqueViolation(err, "accounts.name") {
			return fmt.Errorf("%w: account %q already exists", common.ErrPolicyViolation, row.Name)
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, row *models.AccountRow) error {
	query := `UPDATE accounts SET ciphertext = ?, nonce = ? WHERE name = ?`
	res, err := r.db.ExecContext(ctx, query, row.Ciphertext, row.Nonce, row.Name)
	if err != nil {
		if dbx.IsUniqueViolation(err, "accounts.nonce") {
			return common.ErrNonceReuse
		}
		return fmt.Errorf("failed to update account: %w", err)
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

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.AccountRow, error) {
	query := `SELECT name, ciphertext, nonce FROM accounts`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []models.AccountRow
	for rows.Next() {
		var item models.AccountRow
		if err := rows.Scan(&item.Name, &item.Ciphertext, &item.Nonce); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*models.AccountRow, error) {
	query := `SELECT name, ciphertext, nonce FROM accounts WHERE name = ?`
	row := r.db.QueryRowContext(ctx, query, name)

	a := &models.AccountRow{}
	if err := row.Scan(&a.Name, &a.Ciphertext, &a.Nonce); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) DeleteByName(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
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
