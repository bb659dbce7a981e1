package model

import "time"

// Node is one row of the persisted document tree: the full slash-separated
// path and the JSON document stored at it. Collection nodes (e.g. a user's
// messages container) have no row of their own; they exist through their
// children's paths.
type Node struct {
	Path      string `gorm:"primaryKey;size:512"`
	Doc       string `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}
