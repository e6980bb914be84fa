// Package chats persists encrypted chat blobs, grouped by the owning
// contact's chat detachable id.
package chats

import (
	"context"

	"github.com/dmarkov/parley/internal/client/models"
)

// Repository describes storage operations for chat rows.
type Repository interface {
	// Insert stores a new chat blob. A reused nonce is rejected with
	// common.ErrNonceReuse.
	Insert(ctx context.Context, row *models.Row) error

	// GetByOwner bulk-fetches every chat blob grouped under the detachable
	// id; the caller decrypts.
	GetByOwner(ctx context.Context, ownerID string) ([]models.Row, error)
}
