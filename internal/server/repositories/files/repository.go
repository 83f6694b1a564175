package files

import (
	"context"

	"github.com/dkorolev/slateboard/internal/server/models"
)

// Repository persists attachment rows. Exactly one of PostID/CommentID must
// be set on every file; the schema enforces the exclusivity.
type Repository interface {
	Create(ctx context.Context, file *models.File) (int64, error)

	// GetByID returns the full file row, including the storage path needed
	// to stream the blob. Missing ids yield common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.File, error)

	SelectByPostIDs(ctx context.Context, postIDs []int64) ([]*models.File, error)
	SelectByCommentIDs(ctx context.Context, commentIDs []int64) ([]*models.File, error)
}
