// Package contacts persists encrypted contact blobs, grouped by the owning
// account's contact detachable id.
package contacts

import (
	"context"

	"github.com/dmarkov/parley/internal/client/models"
)

// Repository describes storage operations for contact rows. The store can
// enumerate "all contacts for detachable id X" without knowing which
// account X belongs to; that linkage lives inside the ciphertext.
type Repository interface {
	// Insert stores a new contact blob. A reused nonce is rejected with
	// common.ErrNonceReuse.
	Insert(ctx context.Context, row *models.Row) error

	// GetByOwner bulk-fetches every blob grouped under the detachable id;
	// the caller decrypts.
	GetByOwner(ctx context.Context, ownerID string) ([]models.Row, error)

	// DeleteByNonce removes a single contact on explicit removal; the
	// nonce is the row's only unique plaintext handle.
	DeleteByNonce(ctx context.Context, nonce []byte) error
}
