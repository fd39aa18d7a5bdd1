package models

import "time"

// ConsentTemplate is a consent document offered for signature. Updates replace
// the body in place; deactivation keeps the row.
type ConsentTemplate struct {
	ID          int64
	Title       string
	Description string
	Content     string
	IsActive    bool
	CreatedBy   int64
	// CreatedByEmail is resolved from the users table on read.
	CreatedByEmail string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
