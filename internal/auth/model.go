package auth

import (
	"github.com/google/uuid"
)

// Credential is the stored login identity for an account. The password is
// kept only as a bcrypt hash.
type Credential struct {
	ID           uuid.UUID `db:"id"`
	AccountID    uuid.UUID `db:"account_id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
}

// AccessTokenPayload is the identity minted into an access token and
// recovered from it on every authenticated request.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Username  string
	IsAdmin   bool
}

// TokenPair bundles a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
