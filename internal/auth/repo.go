package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/storex"
)

const (
	credentialsTable = "credentials"
	credentialEntity = "credential"
)

// Repository defines the persistence operations for Credential entities.
type Repository interface {
	Create(ctx context.Context, credential Credential) (Credential, error)
	GetByID(ctx context.Context, id uuid.UUID) (Credential, error)
	GetByUsername(ctx context.Context, username string) (Credential, error)
}

// repo implements Repository over the generic entity store.
type repo struct {
	records *storex.Repository[uuid.UUID, Credential]
}

// NewRepository creates a new Repository implementation.
func NewRepository(records *storex.Repository[uuid.UUID, Credential]) Repository {
	return &repo{records: records}
}

func (r *repo) Create(ctx context.Context, credential Credential) (Credential, error) {
	const op = "auth.repo.Create"

	created, err := r.records.CreateAndGet(ctx, credential)
	if err != nil {
		return Credential{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, nil
}

func (r *repo) GetByID(ctx context.Context, id uuid.UUID) (Credential, error) {
	const op = "auth.repo.GetByID"

	credential, err := r.records.GetByID(ctx, id)
	if err != nil {
		return Credential{}, errx.E(op, errx.KindOf(err), err)
	}
	return credential, nil
}

func (r *repo) GetByUsername(ctx context.Context, username string) (Credential, error) {
	const op = "auth.repo.GetByUsername"

	credential, err := r.records.GetBy(ctx, "username", username)
	if err != nil {
		return Credential{}, errx.E(op, errx.KindOf(err), err)
	}
	return credential, nil
}

// RepoFactory builds request-scoped credential repositories. Constructing
// it validates the Credential record layout once, at startup.
type RepoFactory struct {
	records *storex.RepoFactory[uuid.UUID, Credential]
}

// NewRepoFactory creates a new RepoFactory.
func NewRepoFactory() (*RepoFactory, error) {
	records, err := storex.NewRepoFactory[uuid.UUID, Credential](credentialsTable, credentialEntity)
	if err != nil {
		return nil, err
	}
	return &RepoFactory{records: records}, nil
}

// Bind returns a Repository bound to the given database handle, typically
// the transaction owned by the current request.
func (f *RepoFactory) Bind(db storex.Querier) Repository {
	return NewRepository(f.records.Bind(db))
}
