package models

import "time"

// Topic is a free-text tag, globally unique by exact (case-sensitive) name.
type Topic struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
