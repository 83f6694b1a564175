package models

import "time"

// FileOwner names which side of the post/comment split a file hangs off.
type FileOwner string

const (
	OwnerPost    FileOwner = "post"
	OwnerComment FileOwner = "comment"
)

// File is an attachment row. Exactly one of PostID/CommentID is set.
// FileName is the original user-supplied name (kept for display and
// download disposition); StoragePath is the generated blob key.
type File struct {
	ID        int64
	PostID    int64
	CommentID int64
	FileName  string
	MimeType  string

	StoragePath string
	CreatedAt   time.Time
}
