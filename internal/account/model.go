// Package account owns registered accounts: self-service registration,
// the identity lookup behind /api/me, and the startup admin seed.
package account

import "github.com/google/uuid"

// Account is a registered user. Passwords live on the credential record,
// never here.
type Account struct {
	ID       uuid.UUID `db:"id"`
	Username string    `db:"username"`
}
