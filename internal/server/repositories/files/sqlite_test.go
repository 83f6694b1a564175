package files

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dkorolev/slateboard/internal/common"
	"github.com/dkorolev/slateboard/internal/server/migrations"
	"github.com/dkorolev/slateboard/internal/server/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, migrations.DirSQLite))
	return db
}

// seedThread inserts a user, one post and one comment under it, returning the
// post and comment ids.
func seedThread(t *testing.T, db *sql.DB) (int64, int64) {
	t.Helper()
	var userID int64
	err := db.QueryRow(
		`INSERT INTO users (moniker, public_key, private_key_hash) VALUES ('ghost', 'AAA-BBB-CCC', 'h') RETURNING id`,
	).Scan(&userID)
	require.NoError(t, err)

	var postID int64
	err = db.QueryRow(
		`INSERT INTO posts (user_id, content, timestamp) VALUES (?, 'post', ?) RETURNING id`,
		userID, time.Now().UTC(),
	).Scan(&postID)
	require.NoError(t, err)

	var commentID int64
	err = db.QueryRow(
		`INSERT INTO comments (post_id, user_id, content, timestamp) VALUES (?, ?, 'comment', ?) RETURNING id`,
		postID, userID, time.Now().UTC(),
	).Scan(&commentID)
	require.NoError(t, err)

	return postID, commentID
}

func TestCreate_PostOwned(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	postID, _ := seedThread(t, db)

	id, err := repo.Create(context.Background(), &models.File{
		PostID:      postID,
		FileName:    "pic.png",
		StoragePath: "100-aa.png",
		MimeType:    "image/png",
	})
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestCreate_CommentOwned(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	_, commentID := seedThread(t, db)

	id, err := repo.Create(context.Background(), &models.File{
		CommentID:   commentID,
		FileName:    "doc.pdf",
		StoragePath: "101-bb.pdf",
		MimeType:    "application/pdf",
	})
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestCreate_RequiresExactlyOneOwner(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	postID, commentID := seedThread(t, db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.File{
		FileName: "orphan.bin", StoragePath: "x", MimeType: "application/octet-stream",
	})
	assert.Error(t, err, "no owner must violate the schema check")

	_, err = repo.Create(ctx, &models.File{
		PostID: postID, CommentID: commentID,
		FileName: "both.bin", StoragePath: "y", MimeType: "application/octet-stream",
	})
	assert.Error(t, err, "two owners must violate the schema check")
}

func TestGetByID(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	postID, _ := seedThread(t, db)
	ctx := context.Background()

	id, err := repo.Create(ctx, &models.File{
		PostID: postID, FileName: "pic.png", StoragePath: "100-aa.png", MimeType: "image/png",
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pic.png", got.FileName)
	assert.Equal(t, "100-aa.png", got.StoragePath)
	assert.Equal(t, "image/png", got.MimeType)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSelectByOwner(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	postID, commentID := seedThread(t, db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.File{
		PostID: postID, FileName: "pic.png", StoragePath: "100-aa.png", MimeType: "image/png",
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.File{
		CommentID: commentID, FileName: "doc.pdf", StoragePath: "101-bb.pdf", MimeType: "application/pdf",
	})
	require.NoError(t, err)

	byPost, err := repo.SelectByPostIDs(ctx, []int64{postID})
	require.NoError(t, err)
	require.Len(t, byPost, 1)
	assert.Equal(t, "pic.png", byPost[0].FileName)
	assert.Equal(t, postID, byPost[0].PostID)
	assert.Zero(t, byPost[0].CommentID)

	byComment, err := repo.SelectByCommentIDs(ctx, []int64{commentID})
	require.NoError(t, err)
	require.Len(t, byComment, 1)
	assert.Equal(t, "doc.pdf", byComment[0].FileName)
	assert.Equal(t, commentID, byComment[0].CommentID)
	assert.Zero(t, byComment[0].PostID)

	none, err := repo.SelectByPostIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
