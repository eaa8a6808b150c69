package account

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/nnamdiokafor/linkqr/internal/auth"
	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/idgen"
)

// Service defines the account operations.
type Service interface {
	Register(ctx context.Context, username, password string) (Account, auth.TokenPair, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	EnsureAdmin(ctx context.Context, username, password string) error
}

// service implements the Service interface.
type service struct {
	repo        Repository
	credentials auth.Repository
	auth        auth.Service
	ids         idgen.Source
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	IDs idgen.Source // id source for new accounts (default: idgen.Sequential())
}

// NewService creates a new service instance.
func NewService(repo Repository, credentials auth.Repository, authService auth.Service, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	ids := config.IDs
	if ids == nil {
		ids = idgen.Sequential()
	}

	return &service{
		repo:        repo,
		credentials: credentials,
		auth:        authService,
		ids:         ids,
	}
}

// Register creates an account with its credential and signs the new user
// in, all inside the caller's transaction. A taken username surfaces as
// AlreadyExists from whichever unique constraint fires first.
func (s *service) Register(ctx context.Context, username, password string) (Account, auth.TokenPair, error) {
	const op = "account.service.Register"

	if username == "" {
		return Account{}, auth.TokenPair{}, errx.E(op, errx.Invalid, errors.New("username cannot be empty"))
	}
	if password == "" {
		return Account{}, auth.TokenPair{}, errx.E(op, errx.Invalid, errors.New("password cannot be empty"))
	}

	id, err := s.ids.NewID()
	if err != nil {
		return Account{}, auth.TokenPair{}, errx.E(op, errx.Unavailable, err)
	}

	created, err := s.repo.Create(ctx, Account{ID: id, Username: username})
	if err != nil {
		return Account{}, auth.TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	credential, err := s.auth.CreateCredential(ctx, created.ID, username, password)
	if err != nil {
		return Account{}, auth.TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}

	pair, err := s.auth.IssuePair(credential)
	if err != nil {
		return Account{}, auth.TokenPair{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, pair, nil
}

// GetByID fetches a single account.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	const op = "account.service.GetByID"

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Account{}, errx.E(op, errx.KindOf(err), err)
	}
	return account, nil
}

// EnsureAdmin seeds the admin account at startup. An existing credential
// under the username makes it a clean no-op. Losing a create race to a
// concurrent seed surfaces as AlreadyExists; with the transaction already
// aborted by the constraint, the caller rolls back and treats that kind as
// seeded.
func (s *service) EnsureAdmin(ctx context.Context, username, password string) error {
	const op = "account.service.EnsureAdmin"

	if username == "" || password == "" {
		return errx.E(op, errx.Invalid, errors.New("admin username and password are required"))
	}

	_, err := s.credentials.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if errx.KindOf(err) != errx.NotFound {
		return errx.E(op, errx.KindOf(err), err)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}

	created, err := s.repo.Create(ctx, Account{ID: id, Username: username})
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	if _, err := s.auth.CreateAdminCredential(ctx, created.ID, username, password); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}
