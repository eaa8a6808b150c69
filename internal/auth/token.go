package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	// DefaultAccessTokenTTL is the access token lifetime when none is configured.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL is the refresh token lifetime when none is configured.
	DefaultRefreshTokenTTL = 168 * time.Hour
)

var (
	// ErrTokenExpired reports a token past its expiry.
	ErrTokenExpired = errors.New("token is expired")
	// ErrTokenInvalid reports a token that failed signature, shape, or type checks.
	ErrTokenInvalid = errors.New("token is invalid")
)

// accessClaims is the wire shape of an access token.
type accessClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
	TokenType string `json:"token_type"`
}

// refreshClaims is the wire shape of a refresh token. It carries the
// credential id rather than the account identity so a refresh can notice
// the credential has been deleted since issuance.
type refreshClaims struct {
	jwt.RegisteredClaims
	CredentialID string `json:"credential_id"`
	TokenType    string `json:"token_type"`
}

// TokenCodec signs and verifies the access/refresh token pair. It is
// immutable after construction and safe for concurrent use.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenCodecConfig holds configuration for the codec.
type TokenCodecConfig struct {
	Secret     string
	AccessTTL  time.Duration // default: DefaultAccessTokenTTL
	RefreshTTL time.Duration // default: DefaultRefreshTokenTTL
	Now        func() time.Time
}

// NewTokenCodec creates a new TokenCodec instance.
func NewTokenCodec(cfg TokenCodecConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret cannot be empty")
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenCodec{
		secret:     []byte(cfg.Secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssuePair signs a fresh access and refresh token for the credential.
func (c *TokenCodec) IssuePair(credential Credential) (TokenPair, error) {
	access, err := c.IssueAccess(AccessTokenPayload{
		AccountID: credential.AccountID,
		Username:  credential.Username,
		IsAdmin:   credential.IsAdmin,
	})
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := c.IssueRefresh(credential.ID)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess signs an access token carrying the payload.
func (c *TokenCodec) IssueAccess(payload AccessTokenPayload) (string, error) {
	now := c.now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		AccountID: payload.AccountID.String(),
		Username:  payload.Username,
		IsAdmin:   payload.IsAdmin,
		TokenType: tokenTypeAccess,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// IssueRefresh signs a refresh token for the credential id.
func (c *TokenCodec) IssueRefresh(credentialID uuid.UUID) (string, error) {
	now := c.now()
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		CredentialID: credentialID.String(),
		TokenType:    tokenTypeRefresh,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// DecodeAccess verifies an access token and returns its payload.
// It fails with ErrTokenExpired or ErrTokenInvalid; a refresh token
// presented here fails the token_type check.
func (c *TokenCodec) DecodeAccess(token string) (AccessTokenPayload, error) {
	var claims accessClaims
	if _, err := c.parse(token, &claims); err != nil {
		return AccessTokenPayload{}, mapJWTError(err)
	}
	if claims.TokenType != tokenTypeAccess {
		return AccessTokenPayload{}, ErrTokenInvalid
	}

	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return AccessTokenPayload{}, ErrTokenInvalid
	}

	return AccessTokenPayload{
		AccountID: accountID,
		Username:  claims.Username,
		IsAdmin:   claims.IsAdmin,
	}, nil
}

// DecodeRefresh verifies a refresh token and returns the credential id it
// was issued for. An access token presented here fails the token_type check.
func (c *TokenCodec) DecodeRefresh(token string) (uuid.UUID, error) {
	var claims refreshClaims
	if _, err := c.parse(token, &claims); err != nil {
		return uuid.Nil, mapJWTError(err)
	}
	if claims.TokenType != tokenTypeRefresh {
		return uuid.Nil, ErrTokenInvalid
	}

	credentialID, err := uuid.Parse(claims.CredentialID)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}

	return credentialID, nil
}

func (c *TokenCodec) parse(token string, claims jwt.Claims) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
}

// mapJWTError translates jwt library errors to the codec's own.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}
