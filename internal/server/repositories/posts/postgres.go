package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkorolev/slateboard/internal/common"
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

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := `INSERT INTO posts (user_id, content, timestamp)
	          VALUES ($1, $2, $3)
	          RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, post.UserID, post.Content, post.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) AttachTopic(ctx context.Context, postID int64, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO topics (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("failed to upsert topic: %w", err)
	}

	var topicID int64
	err = r.db.QueryRowContext(ctx, `SELECT id FROM topics WHERE name = $1`, name).Scan(&topicID)
	if err != nil {
		return fmt.Errorf("failed to resolve topic: %w", err)
	}

	var existing int64
	err = r.db.QueryRowContext(ctx,
		`SELECT topic_id FROM post_topics WHERE post_id = $1`, postID).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("post already has a topic: %w", common.ErrConflict)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check post topic: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO post_topics (post_id, topic_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		postID, topicID)
	if err != nil {
		return fmt.Errorf("failed to link topic: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) Count(ctx context.Context, topic string) (int, error) {
	var (
		total int
		err   error
	)
	if topic == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT p.id)
			 FROM posts p
			 JOIN post_topics pt ON p.id = pt.post_id
			 JOIN topics t ON pt.topic_id = t.id
			 WHERE t.name = $1`, topic).Scan(&total)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return total, nil
}

func (r *PostgresRepository) SelectPage(ctx context.Context, limit, offset int, topic string) ([]models.FeedPost, error) {
	query := `SELECT p.id, p.content, p.timestamp, u.moniker, u.public_key, t.name
	          FROM posts p
	          JOIN users u ON p.user_id = u.id
	          LEFT JOIN post_topics pt ON p.id = pt.post_id
	          LEFT JOIN topics t ON pt.topic_id = t.id`
	args := []any{}
	if topic != "" {
		query += ` WHERE t.name = $1
		           ORDER BY p.timestamp DESC, p.id DESC LIMIT $2 OFFSET $3`
		args = append(args, topic, limit, offset)
	} else {
		query += ` ORDER BY p.timestamp DESC, p.id DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	return scanFeedPosts(rows)
}
