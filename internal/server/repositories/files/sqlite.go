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

// SQLiteRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, file *models.File) (int64, error) {
	query := `INSERT INTO files (post_id, comment_id, file_name, file_path, mime_type)
	          VALUES (?, ?, ?, ?, ?)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query := `SELECT id, file_name, file_path, mime_type FROM files WHERE id = ?`

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

func (r *SQLiteRepository) SelectByPostIDs(ctx context.Context, postIDs []int64) ([]*models.File, error) {
	return r.selectByOwner(ctx, "post_id", postIDs)
}

func (r *SQLiteRepository) SelectByCommentIDs(ctx context.Context, commentIDs []int64) ([]*models.File, error) {
	return r.selectByOwner(ctx, "comment_id", commentIDs)
}

func (r *SQLiteRepository) selectByOwner(ctx context.Context, column string, ids []int64) ([]*models.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT id, COALESCE(post_id, 0), COALESCE(comment_id, 0), file_name, file_path, mime_type
		 FROM files
		 WHERE %s IN (%s)
		 ORDER BY id ASC`,
		column, placeholders(len(ids)))

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

// placeholders returns "?, ?, ..., ?" with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// nullableID maps a zero id to NULL so the files CHECK constraint sees
// exactly one owner column set.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func scanFiles(rows *sql.Rows) ([]*models.File, error) {
	var result []*models.File
	for rows.Next() {
		var item models.File
		if err := rows.Scan(&item.ID, &item.PostID, &item.CommentID,
			&item.FileName, &item.StoragePath, &item.MimeType); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
