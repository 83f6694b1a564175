package comments

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dkorolev/slateboard/internal/dbx"
	"github.com/dkorolev/slateboard/internal/server/models"
)

// SQLiteRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, comment *models.Comment) (int64, error) {
	query := `INSERT INTO comments (post_id, user_id, content, timestamp)
	          VALUES (?, ?, ?, ?)
	          RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		comment.PostID, comment.UserID, comment.Content, comment.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) SelectByPostIDs(ctx context.Context, postIDs []int64) ([]models.FeedComment, error) {
	if len(postIDs) == 0 {
		return []models.FeedComment{}, nil
	}

	query := fmt.Sprintf(
		`SELECT c.id, c.post_id, c.content, c.timestamp, u.moniker, u.public_key
		 FROM comments c
		 JOIN users u ON c.user_id = u.id
		 WHERE c.post_id IN (%s)
		 ORDER BY c.timestamp ASC, c.id ASC`,
		placeholders(len(postIDs)))

	rows, err := r.db.QueryContext(ctx, query, int64sToArgs(postIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to select comments: %w", err)
	}
	defer rows.Close()

	return scanFeedComments(rows)
}

// placeholders returns "?, ?, ..., ?" with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func scanFeedComments(rows *sql.Rows) ([]models.FeedComment, error) {
	result := []models.FeedComment{}
	for rows.Next() {
		var item models.FeedComment
		if err := rows.Scan(&item.ID, &item.PostID, &item.Content, &item.Timestamp,
			&item.Moniker, &item.PublicKey); err != nil {
			return nil, err
		}
		item.Files = []models.FeedFile{}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
