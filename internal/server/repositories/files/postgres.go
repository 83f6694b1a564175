package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (int64, error) {
	query := `INSERT INTO files (post_id, comment_id, file_name, file_path, mime_type)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		nullableID(file.PostID), nullableID(file.CommentID),
		file.FileName, file.StoragePath, file.MimeType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query := `SELECT id, file_name, file_path, mime_type FROM files WHERE id = $1`

	item := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.FileName, &item.StoragePath, &item.MimeType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) SelectByPostIDs(ctx context.Context, postIDs []int64) ([]*models.File, error) {
	return r.selectByOwner(ctx, "post_id", postIDs)
}

func (r *PostgresRepository) SelectByCommentIDs(ctx context.Context, commentIDs []int64) ([]*models.File, error) {
	return r.selectByOwner(ctx, "comment_id", commentIDs)
}

func (r *PostgresRepository) selectByOwner(ctx context.Context, column string, ids []int64) ([]*models.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT id, COALESCE(post_id, 0), COALESCE(comment_id, 0), file_name, file_path, mime_type
		 FROM files
		 WHERE %s IN (%s)
		 ORDER BY id ASC`,
		column, pgPlaceholders(len(ids)))

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	return scanFiles(rows)
}

// pgPlaceholders returns "$1, $2, ..., $n".
func pgPlaceholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}
