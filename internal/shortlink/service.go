package shortlink

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"

	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/idgen"
	"github.com/nnamdiokafor/linkqr/sluggen"
)

const (
	DefaultSlugLength     = 7
	MaxSlugLength         = 64
	MinSlugLength         = 3
	MaxURLLength          = 2048
	MaxNameLength         = 120
	DefaultSlugMaxRetries = 3
)

// Service defines the business logic operations for short links. Every
// mutation is scoped to the owning account; an ownership mismatch is
// reported as NotFound so the API never confirms a foreign record exists.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, link string) (ShortLink, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ShortLink, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (ShortLink, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, name, link string) (ShortLink, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Resolve(ctx context.Context, slug string) (string, error)
	ListAll(ctx context.Context) ([]ShortLink, error)
	CountAll(ctx context.Context) (int64, error)
}

// service implements the Service interface.
type service struct {
	repo           Repository
	slugGenerator  sluggen.Generator
	slugLength     int
	slugMaxRetries int
	ids            idgen.Source
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	SlugGenerator  sluggen.Generator
	SlugLength     int
	SlugMaxRetries int // attempts when generating a unique slug (default: 3)
	IDs            idgen.Source
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	slugGen := config.SlugGenerator
	if slugGen == nil {
		slugGen = sluggen.NewBase62()
	}

	slugLength := config.SlugLength
	if slugLength < MinSlugLength || slugLength > MaxSlugLength {
		slugLength = DefaultSlugLength
	}

	retries := config.SlugMaxRetries
	if retries <= 0 {
		retries = DefaultSlugMaxRetries
	}

	ids := config.IDs
	if ids == nil {
		ids = idgen.Sequential()
	}

	return &service{
		repo:           repo,
		slugGenerator:  slugGen,
		slugLength:     slugLength,
		slugMaxRetries: retries,
		ids:            ids,
	}
}

// Create validates the name and target URL, generates a slug, and persists
// the record for the owner.
func (s *service) Create(ctx context.Context, ownerID uuid.UUID, name, link string) (ShortLink, error) {
	const op = "shortlink.service.Create"

	if err := validateName(name); err != nil {
		return ShortLink{}, errx.E(op, errx.Invalid, err)
	}
	if err := validateURL(link); err != nil {
		return ShortLink{}, errx.E(op, errx.Invalid, err)
	}

	for range s.slugMaxRetries {
		slug, err := s.slugGenerator.Generate(s.slugLength)
		if err != nil {
			return ShortLink{}, errx.E(op, errx.Unavailable, err)
		}

		// A unique violation aborts the surrounding transaction, so slug
		// availability is probed before the insert. The constraint still
		// backstops a race.
		if _, err := s.repo.GetBySlug(ctx, slug); err == nil {
			continue
		} else if errx.KindOf(err) != errx.NotFound {
			return ShortLink{}, errx.E(op, errx.KindOf(err), err)
		}

		id, err := s.ids.NewID()
		if err != nil {
			return ShortLink{}, errx.E(op, errx.Unavailable, err)
		}

		created, err := s.repo.Create(ctx, ShortLink{
			ID:        id,
			AccountID: ownerID,
			Name:      name,
			Link:      link,
			Slug:      slug,
		})
		if err != nil {
			return ShortLink{}, errx.E(op, errx.KindOf(err), err)
		}
		return created, nil
	}

	return ShortLink{}, errx.E(op, errx.Unavailable,
		errors.New("could not generate unique slug after retries"))
}

// ListByOwner returns every link the account owns.
func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ShortLink, error) {
	const op = "shortlink.service.ListByOwner"

	links, err := s.repo.ListByAccount(ctx, ownerID)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

// Get fetches a single owned link.
func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (ShortLink, error) {
	const op = "shortlink.service.Get"
	return s.getOwned(ctx, op, ownerID, id)
}

// Update replaces the name and target of an owned link.
func (s *service) Update(ctx context.Context, ownerID, id uuid.UUID, name, link string) (ShortLink, error) {
	const op = "shortlink.service.Update"

	if err := validateName(name); err != nil {
		return ShortLink{}, errx.E(op, errx.Invalid, err)
	}
	if err := validateURL(link); err != nil {
		return ShortLink{}, errx.E(op, errx.Invalid, err)
	}

	current, err := s.getOwned(ctx, op, ownerID, id)
	if err != nil {
		return ShortLink{}, err
	}

	current.Name = name
	current.Link = link

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return updated, nil
}

// Delete removes an owned link.
func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	const op = "shortlink.service.Delete"

	current, err := s.getOwned(ctx, op, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, current.ID); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

// Resolve returns the redirect target for a public slug.
func (s *service) Resolve(ctx context.Context, slug string) (string, error) {
	const op = "shortlink.service.Resolve"

	if slug == "" {
		return "", errx.E(op, errx.Invalid, errors.New("slug cannot be empty"))
	}

	link, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return "", errx.E(op, errx.KindOf(err), err)
	}
	return link.Link, nil
}

// ListAll returns every link in the system. Admin only; the HTTP layer
// enforces the gate.
func (s *service) ListAll(ctx context.Context) ([]ShortLink, error) {
	const op = "shortlink.service.ListAll"

	links, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

// CountAll returns the total number of links in the system.
func (s *service) CountAll(ctx context.Context) (int64, error) {
	const op = "shortlink.service.CountAll"

	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, errx.E(op, errx.KindOf(err), err)
	}
	return count, nil
}

// getOwned fetches a link and hides it behind NotFound when the caller is
// not the owner.
func (s *service) getOwned(ctx context.Context, op string, ownerID, id uuid.UUID) (ShortLink, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}

	if link.AccountID != ownerID {
		return ShortLink{}, errx.Tag(op, errx.NotFound, shortLinkEntity,
			errors.New("record is owned by another account"))
	}
	return link, nil
}

func validateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return errors.New("name too long (max 120 characters)")
	}
	return nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must include scheme (http or https)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}
