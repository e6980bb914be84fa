// Package messages persists encrypted message blobs, grouped by the owning
// chat's message detachable id and ordered by a store-assigned sequence.
package messages

import (
	"context"

	"github.com/dmarkov/parley/internal/client/models"
)

// Repository describes storage operations for message rows.
type Repository interface {
	// Insert stores a new message blob and returns the assigned sequence
	// number. A reused nonce is rejected with common.ErrNonceReuse.
	Insert(ctx context.Context, row *models.Row) (int64, error)

	// GetOrderedPage returns up to count blobs for the detachable id in
	// reverse-chronological order, skipping offset newest rows. Paging
	// keeps unlock of a long chat from loading its whole history.
	GetOrderedPage(ctx context.Context, ownerID string, offset, count int) ([]models.MessageRow, error)

	// CountByOwner returns the number of messages stored for a chat.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}
