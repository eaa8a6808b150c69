package storex

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nnamdiokafor/linkqr/internal/errx"
)

// Postgres error code for unique constraint violations.
const uniqueViolationCode = "23505"

// Translate classifies a storage failure for entity: absent rows become a
// tagged NotFound, unique-constraint violations become a tagged AlreadyExists,
// everything else is returned unchanged. Errors that already carry a kind pass
// through untouched so earlier classifications survive.
func Translate(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errx.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errx.Tag(op, errx.NotFound, entity, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return errx.Tag(op, errx.AlreadyExists, entity, err)
	}
	return err
}

// Guard runs one storage access and classifies its failure through Translate.
// Every repository method is composed through Guard or GuardErr, so a method
// cannot return an untranslated storage error; entity repositories that add
// hand-written queries route them through Guard the same way.
func Guard[T any](op, entity string, access func() (T, error)) (T, error) {
	v, err := access()
	if err != nil {
		var zero T
		return zero, Translate(op, entity, err)
	}
	return v, nil
}

// GuardErr is Guard for storage accesses that return only an error.
func GuardErr(op, entity string, access func() error) error {
	return Translate(op, entity, access())
}

// Repository pairs a Store with a Serializer to expose typed CRUD over one
// record type. It is the single place storage failures get classified;
// services above it see errx kinds or untouched driver errors, never raw
// pgx sentinels they have to recognize themselves.
type Repository[ID comparable, M any] struct {
	store  *Store[ID]
	ser    *Serializer[M]
	entity string
}

// NewRepository wires a typed repository over table for record type M. The
// entity name scopes translated failures, so a miss reads "credential not
// found" rather than a bare not-found. Construction fails when M cannot be
// laid out flat.
func NewRepository[ID comparable, M any](db Querier, table, entity string) (*Repository[ID, M], error) {
	ser, err := NewSerializer[M]()
	if err != nil {
		return nil, err
	}
	store, err := NewStore[ID](db, table, ser.Columns())
	if err != nil {
		return nil, err
	}
	return &Repository[ID, M]{store: store, ser: ser, entity: entity}, nil
}

// one guards a single-row access and deserializes its result.
func (r *Repository[ID, M]) one(op string, access func() (DTO, error)) (M, error) {
	dto, err := Guard(op, r.entity, access)
	if err != nil {
		var zero M
		return zero, err
	}
	return r.ser.Deserialize(dto)
}

// many guards a multi-row access and deserializes its results.
func (r *Repository[ID, M]) many(op string, access func() ([]DTO, error)) ([]M, error) {
	dtos, err := Guard(op, r.entity, access)
	if err != nil {
		return nil, err
	}
	return r.ser.DeserializeMany(dtos)
}

// GetByID returns the record for id.
func (r *Repository[ID, M]) GetByID(ctx context.Context, id ID) (M, error) {
	return r.one("storex.repo.GetByID", func() (DTO, error) {
		return r.store.GetByID(ctx, id)
	})
}

// GetBy returns the single record whose column equals value.
func (r *Repository[ID, M]) GetBy(ctx context.Context, column string, value any) (M, error) {
	return r.one("storex.repo.GetBy", func() (DTO, error) {
		return r.store.GetBy(ctx, column, value)
	})
}

// ListBy returns every record whose column equals value.
func (r *Repository[ID, M]) ListBy(ctx context.Context, column string, value any) ([]M, error) {
	return r.many("storex.repo.ListBy", func() ([]DTO, error) {
		return r.store.ListBy(ctx, column, value)
	})
}

// Create inserts the record and returns its identifier.
func (r *Repository[ID, M]) Create(ctx context.Context, rec M) (ID, error) {
	return Guard("storex.repo.Create", r.entity, func() (ID, error) {
		return r.store.Create(ctx, r.ser.Serialize(rec))
	})
}

// CreateAndGet inserts the record and returns it as persisted.
func (r *Repository[ID, M]) CreateAndGet(ctx context.Context, rec M) (M, error) {
	return r.one("storex.repo.CreateAndGet", func() (DTO, error) {
		return r.store.CreateAndGet(ctx, r.ser.Serialize(rec))
	})
}

// CreateMany inserts all records atomically and returns their identifiers in
// input order.
func (r *Repository[ID, M]) CreateMany(ctx context.Context, recs []M) ([]ID, error) {
	return Guard("storex.repo.CreateMany", r.entity, func() ([]ID, error) {
		return r.store.CreateMany(ctx, r.ser.SerializeMany(recs))
	})
}

// CreateAndGetMany inserts all records atomically and returns them as
// persisted, in input order.
func (r *Repository[ID, M]) CreateAndGetMany(ctx context.Context, recs []M) ([]M, error) {
	return r.many("storex.repo.CreateAndGetMany", func() ([]DTO, error) {
		return r.store.CreateAndGetMany(ctx, r.ser.SerializeMany(recs))
	})
}

// Update rewrites the record identified by its id field.
func (r *Repository[ID, M]) Update(ctx context.Context, rec M) error {
	return GuardErr("storex.repo.Update", r.entity, func() error {
		return r.store.Update(ctx, r.ser.Serialize(rec))
	})
}

// UpdateAndGet rewrites the record and returns it as persisted.
func (r *Repository[ID, M]) UpdateAndGet(ctx context.Context, rec M) (M, error) {
	return r.one("storex.repo.UpdateAndGet", func() (DTO, error) {
		return r.store.UpdateAndGet(ctx, r.ser.Serialize(rec))
	})
}

// UpdateMany applies updates one record at a time, stopping at the first
// failure.
func (r *Repository[ID, M]) UpdateMany(ctx context.Context, recs []M) error {
	return GuardErr("storex.repo.UpdateMany", r.entity, func() error {
		return r.store.UpdateMany(ctx, r.ser.SerializeMany(recs))
	})
}

// GetManyByIDs returns the records that exist for ids, omitting absent ones.
func (r *Repository[ID, M]) GetManyByIDs(ctx context.Context, ids []ID) ([]M, error) {
	return r.many("storex.repo.GetManyByIDs", func() ([]DTO, error) {
		return r.store.GetManyByIDs(ctx, ids)
	})
}

// Delete removes the record for id; absent ids are not an error.
func (r *Repository[ID, M]) Delete(ctx context.Context, id ID) error {
	return GuardErr("storex.repo.Delete", r.entity, func() error {
		return r.store.Delete(ctx, id)
	})
}

// DeleteMany removes every record in ids, absent ones included.
func (r *Repository[ID, M]) DeleteMany(ctx context.Context, ids []ID) error {
	return GuardErr("storex.repo.DeleteMany", r.entity, func() error {
		return r.store.DeleteMany(ctx, ids)
	})
}

// Count returns the number of stored records.
func (r *Repository[ID, M]) Count(ctx context.Context) (int64, error) {
	return Guard("storex.repo.Count", r.entity, func() (int64, error) {
		return r.store.Count(ctx)
	})
}

// GetAll returns every stored record.
func (r *Repository[ID, M]) GetAll(ctx context.Context) ([]M, error) {
	return r.many("storex.repo.GetAll", func() ([]DTO, error) {
		return r.store.GetAll(ctx)
	})
}
