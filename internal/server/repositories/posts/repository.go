package posts

import (
	"context"

	"github.com/dkorolev/slateboard/internal/server/models"
)

// Repository persists posts and their single-topic links, and serves the
// paged side of the feed.
type Repository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)

	// AttachTopic links postID to the topic named name, creating the topic
	// on first use. It returns common.ErrConflict when the post already
	// carries a topic. Callers that need the lazy-create and the link to be
	// atomic run this through a repository bound to a transaction.
	AttachTopic(ctx context.Context, postID int64, name string) error

	Exists(ctx context.Context, id int64) (bool, error)

	// Count returns the number of posts, restricted to an exact topic name
	// when topic is non-empty.
	Count(ctx context.Context, topic string) (int, error)

	// SelectPage returns one feed page ordered newest-first (ties broken by
	// id), each post joined to its author and to at most one topic name.
	// Files and Comments on the returned values are left empty for the
	// caller to fill.
	SelectPage(ctx context.Context, limit, offset int, topic string) ([]models.FeedPost, error)
}
