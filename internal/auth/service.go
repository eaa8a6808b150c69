package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/idgen"
)

// Service defines the authentication operations: credential management,
// login, and the dual-token lifecycle.
type Service interface {
	CreateCredential(ctx context.Context, accountID uuid.UUID, username, password string) (Credential, error)
	CreateAdminCredential(ctx context.Context, accountID uuid.UUID, username, password string) (Credential, error)
	Login(ctx context.Context, username, password string) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	IssuePair(credential Credential) (TokenPair, error)
	DecodeAccess(token string) (AccessTokenPayload, error)
}

// service implements the Service interface.
type service struct {
	repo   Repository
	tokens *TokenCodec
	ids    idgen.Source
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	IDs idgen.Source // id source for new credentials (default: idgen.Sequential())
}

// NewService creates a new service instance.
func NewService(repo Repository, tokens *TokenCodec, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	ids := config.IDs
	if ids == nil {
		ids = idgen.Sequential()
	}

	return &service{
		repo:   repo,
		tokens: tokens,
		ids:    ids,
	}
}

// CreateCredential hashes the password and persists a credential for the
// account. A taken username surfaces as AlreadyExists.
func (s *service) CreateCredential(ctx context.Context, accountID uuid.UUID, username, password string) (Credential, error) {
	const op = "auth.service.CreateCredential"
	return s.createCredential(ctx, op, accountID, username, password, false)
}

// CreateAdminCredential is the admin variant used for the startup seed.
func (s *service) CreateAdminCredential(ctx context.Context, accountID uuid.UUID, username, password string) (Credential, error) {
	const op = "auth.service.CreateAdminCredential"
	return s.createCredential(ctx, op, accountID, username, password, true)
}

func (s *service) createCredential(ctx context.Context, op string, accountID uuid.UUID, username, password string, isAdmin bool) (Credential, error) {
	if username == "" {
		return Credential{}, errx.E(op, errx.Invalid, errors.New("username cannot be empty"))
	}
	if password == "" {
		return Credential{}, errx.E(op, errx.Invalid, errors.New("password cannot be empty"))
	}

	hash, err := hashPassword(password)
	if err != nil {
		return Credential{}, errx.E(op, errx.Internal, err)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return Credential{}, errx.E(op, errx.Unavailable, err)
	}

	created, err := s.repo.Create(ctx, Credential{
		ID:           id,
		AccountID:    accountID,
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	})
	if err != nil {
		return Credential{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, nil
}

// Login verifies the username and password and issues a fresh token pair.
// An unknown username and a wrong password fail with the identical
// InvalidCredential error, so responses never reveal which usernames exist.
func (s *service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	const op = "auth.service.Login"

	if username == "" || password == "" {
		return TokenPair{}, errx.E(op, errx.Invalid, errors.New("username and password are required"))
	}

	credential, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return TokenPair{}, errx.E(op, errx.InvalidCredential, err)
		}
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	if !checkPassword(password, credential.PasswordHash) {
		return TokenPair{}, errx.E(op, errx.InvalidCredential, errors.New("password verification failed"))
	}

	pair, err := s.IssuePair(credential)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}
	return pair, nil
}

// Refresh exchanges a valid refresh token for a brand-new pair. The
// presented token keeps working until its own expiry; rotation does not
// invalidate it.
func (s *service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	const op = "auth.service.Refresh"

	if refreshToken == "" {
		return TokenPair{}, errx.E(op, errx.RefreshRequired, errors.New("refresh token is required"))
	}

	credentialID, err := s.tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.Unauthorized, err)
	}

	// A deleted credential must stop refreshing even though the token
	// signature is still valid.
	credential, err := s.repo.GetByID(ctx, credentialID)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	pair, err := s.IssuePair(credential)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}
	return pair, nil
}

// IssuePair signs a fresh access and refresh token for the credential.
func (s *service) IssuePair(credential Credential) (TokenPair, error) {
	const op = "auth.service.IssuePair"

	pair, err := s.tokens.IssuePair(credential)
	if err != nil {
		return TokenPair{}, errx.E(op, errx.Internal, err)
	}
	return pair, nil
}

// DecodeAccess verifies an access token and returns the identity it
// carries. Every failure, expiry included, is Unauthorized.
func (s *service) DecodeAccess(token string) (AccessTokenPayload, error) {
	const op = "auth.service.DecodeAccess"

	payload, err := s.tokens.DecodeAccess(token)
	if err != nil {
		return AccessTokenPayload{}, errx.E(op, errx.Unauthorized, err)
	}
	return payload, nil
}
