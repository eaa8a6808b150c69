// Package shortlink owns the short link records: ownership-scoped CRUD,
// the public slug redirect, and the admin listing.
package shortlink

import "github.com/google/uuid"

// ShortLink is a named redirect owned by one account. The slug is the
// public handle; the id never leaves the owner's API.
type ShortLink struct {
	ID        uuid.UUID `db:"id"`
	AccountID uuid.UUID `db:"account_id"`
	Name      string    `db:"name"`
	Link      string    `db:"link"`
	Slug      string    `db:"slug"`
}
