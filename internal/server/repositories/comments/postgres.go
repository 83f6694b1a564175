package comments

import (
	"context"
	"fmt"
	"strings"

	"github.com/dkorolev/slateboard/internal/dbx"
	"github.com/dkorolev/slateboard/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, comment *models.Comment) (int64, error) {
	query := `INSERT INTO comments (post_id, user_id, content, timestamp)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		comment.PostID, comment.UserID, comment.Content, comment.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) SelectByPostIDs(ctx context.Context, postIDs []int64) ([]models.FeedComment, error) {
	if len(postIDs) == 0 {
		return []models.FeedComment{}, nil
	}

	query := fmt.Sprintf(
		`SELECT c.id, c.post_id, c.content, c.timestamp, u.moniker, u.public_key
		 FROM comments c
		 JOIN users u ON c.user_id = u.id
		 WHERE c.post_id IN (%s)
		 ORDER BY c.timestamp ASC, c.id ASC`,
		pgPlaceholders(len(postIDs)))

	rows, err := r.db.QueryContext(ctx, query, int64sToArgs(postIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to select comments: %w", err)
	}
	defer rows.Close()

	return scanFeedComments(rows)
}

// pgPlaceholders returns "$1, $2, ..., $n".
func pgPlaceholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}
