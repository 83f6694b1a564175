package models

import "time"

// Comment always belongs to exactly one post.
type Comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Content   string
	Timestamp time.Time
}
