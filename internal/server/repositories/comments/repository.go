package comments

import (
	"context"

	"github.com/dkorolev/slateboard/internal/server/models"
)

// Repository persists comments and serves the comment side of the feed.
type Repository interface {
	Create(ctx context.Context, comment *models.Comment) (int64, error)

	// SelectByPostIDs returns every comment under the given posts joined to
	// its author, ordered oldest-first (ties broken by id). Files on the
	// returned values are left empty for the caller to fill.
	SelectByPostIDs(ctx context.Context, postIDs []int64) ([]models.FeedComment, error)
}
