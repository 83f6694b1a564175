package models

import "time"

// Post is a top-level board entry. Its optional single topic is linked
// through post_topics, not stored on the row.
type Post struct {
	ID        int64
	UserID    int64
	Content   string
	Timestamp time.Time
}
