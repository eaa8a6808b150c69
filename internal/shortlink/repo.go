package shortlink

import (
	"context"

	"github.com/google/uuid"

	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/storex"
)

const (
	shortLinksTable = "short_links"
	shortLinkEntity = "short link"
)

// Repository defines the persistence operations for ShortLink entities.
type Repository interface {
	Create(ctx context.Context, link ShortLink) (ShortLink, error)
	GetByID(ctx context.Context, id uuid.UUID) (ShortLink, error)
	GetBySlug(ctx context.Context, slug string) (ShortLink, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]ShortLink, error)
	GetAll(ctx context.Context) ([]ShortLink, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, link ShortLink) (ShortLink, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// repo implements Repository over the generic entity store.
type repo struct {
	records *storex.Repository[uuid.UUID, ShortLink]
}

// NewRepository creates a new Repository implementation.
func NewRepository(records *storex.Repository[uuid.UUID, ShortLink]) Repository {
	return &repo{records: records}
}

func (r *repo) Create(ctx context.Context, link ShortLink) (ShortLink, error) {
	const op = "shortlink.repo.Create"

	created, err := r.records.CreateAndGet(ctx, link)
	if err != nil {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, nil
}

func (r *repo) GetByID(ctx context.Context, id uuid.UUID) (ShortLink, error) {
	const op = "shortlink.repo.GetByID"

	link, err := r.records.GetByID(ctx, id)
	if err != nil {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

func (r *repo) GetBySlug(ctx context.Context, slug string) (ShortLink, error) {
	const op = "shortlink.repo.GetBySlug"

	link, err := r.records.GetBy(ctx, "slug", slug)
	if err != nil {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

func (r *repo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]ShortLink, error) {
	const op = "shortlink.repo.ListByAccount"

	links, err := r.records.ListBy(ctx, "account_id", accountID)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (r *repo) GetAll(ctx context.Context) ([]ShortLink, error) {
	const op = "shortlink.repo.GetAll"

	links, err := r.records.GetAll(ctx)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	const op = "shortlink.repo.Count"

	count, err := r.records.Count(ctx)
	if err != nil {
		return 0, errx.E(op, errx.KindOf(err), err)
	}
	return count, nil
}

func (r *repo) Update(ctx context.Context, link ShortLink) (ShortLink, error) {
	const op = "shortlink.repo.Update"

	updated, err := r.records.UpdateAndGet(ctx, link)
	if err != nil {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return updated, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "shortlink.repo.Delete"

	if err := r.records.Delete(ctx, id); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

// RepoFactory builds request-scoped short link repositories. Constructing
// it validates the ShortLink record layout once, at startup.
type RepoFactory struct {
	records *storex.RepoFactory[uuid.UUID, ShortLink]
}

// NewRepoFactory creates a new RepoFactory.
func NewRepoFactory() (*RepoFactory, error) {
	records, err := storex.NewRepoFactory[uuid.UUID, ShortLink](shortLinksTable, shortLinkEntity)
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
