package account

import (
	"context"

	"github.com/google/uuid"

	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/storex"
)

const (
	accountsTable = "accounts"
	accountEntity = "account"
)

// Repository defines the persistence operations for Account entities.
type Repository interface {
	Create(ctx context.Context, account Account) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
}

// repo implements Repository over the generic entity store.
type repo struct {
	records *storex.Repository[uuid.UUID, Account]
}

// NewRepository creates a new Repository implementation.
func NewRepository(records *storex.Repository[uuid.UUID, Account]) Repository {
	return &repo{records: records}
}

func (r *repo) Create(ctx context.Context, account Account) (Account, error) {
	const op = "account.repo.Create"

	created, err := r.records.CreateAndGet(ctx, account)
	if err != nil {
		return Account{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, nil
}

func (r *repo) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	const op = "account.repo.GetByID"

	account, err := r.records.GetByID(ctx, id)
	if err != nil {
		return Account{}, errx.E(op, errx.KindOf(err), err)
	}
	return account, nil
}

// RepoFactory builds request-scoped account repositories. Constructing it
// validates the Account record layout once, at startup.
type RepoFactory struct {
	records *storex.RepoFactory[uuid.UUID, Account]
}

// NewRepoFactory creates a new RepoFactory.
func NewRepoFactory() (*RepoFactory, error) {
	records, err := storex.NewRepoFactory[uuid.UUID, Account](accountsTable, accountEntity)
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
