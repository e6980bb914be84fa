// Package accounts persists encrypted account blobs, filed under the local
// plaintext account name.
package accounts

import (
	"context"

	"github.com/dmarkov/parley/internal/client/models"
)

// Repository describes storage operations for account rows. The store
// layer never sees plaintext account contents; callers decrypt.
type Repository interface {
	// Insert stores a new account blob. A reused nonce is rejected with
	// common.ErrNonceReuse; a duplicate name with common.ErrPolicyViolation.
	Insert(ctx context.Context, row *models.AccountRow) error

	// Update rewrites the blob for an existing name (account-level changes
	// only). The fresh nonce must again be unique.
	Update(ctx context.Context, row *models.AccountRow) error

	// GetAll returns every stored account blob, for bulk unlock scans.
	GetAll(ctx context.Context) ([]models.AccountRow, error)

	// GetByName returns one account blob or common.ErrNotFound.
	GetByName(ctx context.Context, name string) (*models.AccountRow, error)

	// DeleteByName removes an account on explicit deletion.
	DeleteByName(ctx context.Context, name string) error
}
