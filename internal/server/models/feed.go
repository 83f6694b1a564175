package models

import "time"

// Feed view types: the nested JSON document returned by GET /api/posts.
// Key casing follows the wire contract of the board clients (snake_case for
// author fields, camelCase nowhere, arrays always present).

type FeedFile struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

type FeedComment struct {
	ID        int64      `json:"id"`
	PostID    int64      `json:"post_id"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Moniker   string     `json:"moniker"`
	PublicKey string     `json:"public_key"`
	Files     []FeedFile `json:"files"`
}

type FeedPost struct {
	ID        int64         `json:"id"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Moniker   string        `json:"moniker"`
	PublicKey string        `json:"public_key"`
	Topics    []string      `json:"topics"`
	Files     []FeedFile    `json:"files"`
	Comments  []FeedComment `json:"comments"`
}

// Feed is one page of posts plus pagination totals.
type Feed struct {
	Posts      []FeedPost `json:"posts"`
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
}
