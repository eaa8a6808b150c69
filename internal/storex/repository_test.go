package storex

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nnamdiokafor/linkqr/internal/errx"
)

/***************
 * Helpers
 ***************/

func newTestRepo(t *testing.T, q Querier) *Repository[uuid.UUID, testRecord] {
	t.Helper()
	r, err := NewRepository[uuid.UUID, testRecord](q, "accounts", "account")
	if err != nil {
		t.Fatalf("NewRepository() unexpected error: %v", err)
	}
	return r
}

var testColumns = []string{"id", "username", "is_admin", "visits", "note"}

func testRow(id uuid.UUID, username string) []any {
	return []any{id, username, false, int64(0), nil}
}

/***************
 * Translate Tests
 ***************/

func TestTranslate(t *testing.T) {
	t.Run("returns nil for nil", func(t *testing.T) {
		if got := Translate("op", "account", nil); got != nil {
			t.Errorf("Translate(nil) = %v, want nil", got)
		}
	})

	t.Run("classifies absent rows as a tagged NotFound", func(t *testing.T) {
		got := Translate("op", "account", pgx.ErrNoRows)

		if kind := errx.KindOf(got); kind != errx.NotFound {
			t.Errorf("kind = %v, want %v", kind, errx.NotFound)
		}
		if entity := errx.EntityOf(got); entity != "account" {
			t.Errorf("entity = %q, want %q", entity, "account")
		}
		if !errors.Is(got, pgx.ErrNoRows) {
			t.Error("translated error lost its cause")
		}
	})

	t.Run("classifies wrapped absent rows", func(t *testing.T) {
		wrapped := fmt.Errorf("dto 2: %w", pgx.ErrNoRows)
		got := Translate("op", "account", wrapped)

		if kind := errx.KindOf(got); kind != errx.NotFound {
			t.Errorf("kind = %v, want %v", kind, errx.NotFound)
		}
	})

	t.Run("classifies unique violations as a tagged AlreadyExists", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_unique"}
		got := Translate("op", "account", pgErr)

		if kind := errx.KindOf(got); kind != errx.AlreadyExists {
			t.Errorf("kind = %v, want %v", kind, errx.AlreadyExists)
		}
		if entity := errx.EntityOf(got); entity != "account" {
			t.Errorf("entity = %q, want %q", entity, "account")
		}
	})

	t.Run("leaves other storage failures unchanged", func(t *testing.T) {
		fkErr := &pgconn.PgError{Code: "23503"}
		if got := Translate("op", "account", fkErr); got != error(fkErr) {
			t.Errorf("Translate() = %v, want the original error", got)
		}

		if got := Translate("op", "account", ErrMissingID); got != ErrMissingID {
			t.Errorf("Translate() = %v, want the original error", got)
		}

		plain := errors.New("connection refused")
		if got := Translate("op", "account", plain); got != plain {
			t.Errorf("Translate() = %v, want the original error", got)
		}
	})

	t.Run("never reclassifies an error that carries a kind", func(t *testing.T) {
		already := errx.Tag("earlier.op", errx.AlreadyExists, "credential", errors.New("dup"))
		got := Translate("op", "account", already)

		if got != already {
			t.Errorf("Translate() = %v, want the original error", got)
		}
		if entity := errx.EntityOf(got); entity != "credential" {
			t.Errorf("entity = %q, want %q", entity, "credential")
		}
	})
}

func TestGuard(t *testing.T) {
	t.Run("passes successful values through untouched", func(t *testing.T) {
		got, err := Guard("op", "account", func() (int64, error) {
			return 42, nil
		})

		if err != nil {
			t.Fatalf("Guard() error = %v, want nil", err)
		}
		if got != 42 {
			t.Errorf("Guard() = %d, want 42", got)
		}
	})

	t.Run("classifies the access failure and zeroes the value", func(t *testing.T) {
		got, err := Guard("op", "account", func() (int64, error) {
			return 42, pgx.ErrNoRows
		})

		if kind := errx.KindOf(err); kind != errx.NotFound {
			t.Errorf("kind = %v, want %v", kind, errx.NotFound)
		}
		if entity := errx.EntityOf(err); entity != "account" {
			t.Errorf("entity = %q, want %q", entity, "account")
		}
		if got != 0 {
			t.Errorf("Guard() = %d, want the zero value on failure", got)
		}
	})
}

func TestGuardErr(t *testing.T) {
	t.Run("returns nil for a clean access", func(t *testing.T) {
		err := GuardErr("op", "account", func() error { return nil })
		if err != nil {
			t.Errorf("GuardErr() = %v, want nil", err)
		}
	})

	t.Run("classifies unique violations", func(t *testing.T) {
		err := GuardErr("op", "account", func() error {
			return &pgconn.PgError{Code: "23505"}
		})

		if kind := errx.KindOf(err); kind != errx.AlreadyExists {
			t.Errorf("kind = %v, want %v", kind, errx.AlreadyExists)
		}
	})
}

/***************
 * Constructor Tests
 ***************/

func TestNewRepository(t *testing.T) {
	t.Run("builds for a flat record type", func(t *testing.T) {
		r, err := NewRepository[uuid.UUID, testRecord](&mockQuerier{}, "accounts", "account")
		if err != nil {
			t.Fatalf("NewRepository() unexpected error: %v", err)
		}
		if r == nil {
			t.Fatal("NewRepository() returned nil")
		}
	})

	t.Run("fails for a record type that is not flat", func(t *testing.T) {
		_, err := NewRepository[uuid.UUID, sliceRecord](&mockQuerier{}, "accounts", "account")
		if !errors.Is(err, ErrNotFlat) {
			t.Errorf("NewRepository() error = %v, want %v", err, ErrNotFlat)
		}
	})
}

/***************
 * Typed Operation Tests
 ***************/

func TestRepositoryGetByID(t *testing.T) {
	t.Run("returns the typed record", func(t *testing.T) {
		id := uuid.New()
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return newFakeRows(testColumns, testRow(id, "nnamdi")), nil
			},
		}

		rec, err := newTestRepo(t, q).GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID() unexpected error: %v", err)
		}
		if rec.ID != id || rec.Username != "nnamdi" {
			t.Errorf("GetByID() = %+v, want id %v username nnamdi", rec, id)
		}
	})

	t.Run("maps a miss to an entity-scoped NotFound", func(t *testing.T) {
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return newFakeRows(testColumns), nil
			},
		}

		_, err := newTestRepo(t, q).GetByID(context.Background(), uuid.New())
		if kind := errx.KindOf(err); kind != errx.NotFound {
			t.Fatalf("kind = %v, want %v", kind, errx.NotFound)
		}
		if entity := errx.EntityOf(err); entity != "account" {
			t.Errorf("entity = %q, want %q", entity, "account")
		}
		if msg := errx.Message(err); msg != "account not found" {
			t.Errorf("message = %q, want %q", msg, "account not found")
		}
	})
}

func TestRepositoryCreate(t *testing.T) {
	t.Run("returns the new id", func(t *testing.T) {
		id := uuid.New()
		q := &mockQuerier{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return &fakeRow{values: []any{id}}
			},
		}

		got, err := newTestRepo(t, q).Create(context.Background(), testRecord{ID: id, Username: "nnamdi"})
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		if got != id {
			t.Errorf("Create() = %v, want %v", got, id)
		}
	})

	t.Run("maps a unique violation to an entity-scoped AlreadyExists", func(t *testing.T) {
		q := &mockQuerier{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return &fakeRow{err: &pgconn.PgError{Code: "23505"}}
			},
		}

		_, err := newTestRepo(t, q).Create(context.Background(), testRecord{ID: uuid.New(), Username: "dup"})
		if kind := errx.KindOf(err); kind != errx.AlreadyExists {
			t.Fatalf("kind = %v, want %v", kind, errx.AlreadyExists)
		}
		if msg := errx.Message(err); msg != "account already exists" {
			t.Errorf("message = %q, want %q", msg, "account already exists")
		}
	})
}

func TestRepositoryCreateAndGet(t *testing.T) {
	t.Run("round-trips the persisted record", func(t *testing.T) {
		id := uuid.New()
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return newFakeRows(testColumns, testRow(id, "nnamdi")), nil
			},
		}

		rec, err := newTestRepo(t, q).CreateAndGet(context.Background(), testRecord{ID: id, Username: "nnamdi"})
		if err != nil {
			t.Fatalf("CreateAndGet() unexpected error: %v", err)
		}
		if rec.ID != id {
			t.Errorf("ID = %v, want %v", rec.ID, id)
		}
		if rec.Note != nil {
			t.Errorf("Note = %v, want nil", rec.Note)
		}
	})
}

func TestRepositoryCreateMany(t *testing.T) {
	t.Run("returns ids in input order", func(t *testing.T) {
		first, second := uuid.New(), uuid.New()
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return newFakeRows([]string{"id"}, []any{first}, []any{second}), nil
			},
		}

		ids, err := newTestRepo(t, q).CreateMany(context.Background(), []testRecord{
			{ID: first, Username: "a"},
			{ID: second, Username: "b"},
		})
		if err != nil {
			t.Fatalf("CreateMany() unexpected error: %v", err)
		}
		if len(ids) != 2 || ids[0] != first || ids[1] != second {
			t.Errorf("ids = %v, want [%v %v]", ids, first, second)
		}
	})

	t.Run("returns empty for empty input without querying", func(t *testing.T) {
		var calls int
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				calls++
				return newFakeRows(nil), nil
			},
		}

		ids, err := newTestRepo(t, q).CreateMany(context.Background(), nil)
		if err != nil {
			t.Fatalf("CreateMany() unexpected error: %v", err)
		}
		if len(ids) != 0 || calls != 0 {
			t.Errorf("CreateMany() = %v with %d queries, want empty with 0", ids, calls)
		}
	})
}

func TestRepositoryUpdate(t *testing.T) {
	t.Run("maps a missed update to an entity-scoped NotFound", func(t *testing.T) {
		q := &mockQuerier{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return &fakeRow{err: pgx.ErrNoRows}
			},
		}

		err := newTestRepo(t, q).Update(context.Background(), testRecord{ID: uuid.New(), Username: "x"})
		if kind := errx.KindOf(err); kind != errx.NotFound {
			t.Errorf("kind = %v, want %v", kind, errx.NotFound)
		}
	})
}

func TestRepositoryGetBy(t *testing.T) {
	t.Run("returns the typed record for a column match", func(t *testing.T) {
		id := uuid.New()
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return newFakeRows(testColumns, testRow(id, "nnamdi")), nil
			},
		}

		rec, err := newTestRepo(t, q).GetBy(context.Background(), "username", "nnamdi")
		if err != nil {
			t.Fatalf("GetBy() unexpected error: %v", err)
		}
		if rec.Username != "nnamdi" {
			t.Errorf("Username = %q, want %q", rec.Username, "nnamdi")
		}
	})

	t.Run("maps a miss to NotFound", func(t *testing.T) {
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return newFakeRows(testColumns), nil
			},
		}

		_, err := newTestRepo(t, q).GetBy(context.Background(), "username", "ghost")
		if kind := errx.KindOf(err); kind != errx.NotFound {
			t.Errorf("kind = %v, want %v", kind, errx.NotFound)
		}
	})
}

func TestRepositoryListBy(t *testing.T) {
	t.Run("returns every matching record", func(t *testing.T) {
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return newFakeRows(testColumns,
					testRow(uuid.New(), "a"),
					testRow(uuid.New(), "b"),
				), nil
			},
		}

		recs, err := newTestRepo(t, q).ListBy(context.Background(), "is_admin", false)
		if err != nil {
			t.Fatalf("ListBy() unexpected error: %v", err)
		}
		if len(recs) != 2 {
			t.Errorf("ListBy() returned %d records, want 2", len(recs))
		}
	})

	t.Run("returns empty for no matches", func(t *testing.T) {
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				return newFakeRows(testColumns), nil
			},
		}

		recs, err := newTestRepo(t, q).ListBy(context.Background(), "is_admin", true)
		if err != nil {
			t.Fatalf("ListBy() unexpected error: %v", err)
		}
		if len(recs) != 0 {
			t.Errorf("ListBy() returned %d records, want 0", len(recs))
		}
	})
}

func TestRepositoryDelete(t *testing.T) {
	t.Run("deleting an absent id is not an error", func(t *testing.T) {
		q := &mockQuerier{
			execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("DELETE 0"), nil
			},
		}

		if err := newTestRepo(t, q).Delete(context.Background(), uuid.New()); err != nil {
			t.Errorf("Delete() unexpected error: %v", err)
		}
	})
}

/***************
 * Factory Tests
 ***************/

func TestRepoFactory(t *testing.T) {
	t.Run("validates the record layout at construction", func(t *testing.T) {
		_, err := NewRepoFactory[uuid.UUID, sliceRecord]("accounts", "account")
		if !errors.Is(err, ErrNotFlat) {
			t.Errorf("NewRepoFactory() error = %v, want %v", err, ErrNotFlat)
		}
	})

	t.Run("binds repositories to the given session", func(t *testing.T) {
		factory, err := NewRepoFactory[uuid.UUID, testRecord]("accounts", "account")
		if err != nil {
			t.Fatalf("NewRepoFactory() unexpected error: %v", err)
		}

		var calls int
		q := &mockQuerier{
			queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				calls++
				return newFakeRows(testColumns, testRow(uuid.New(), "bound")), nil
			},
		}

		rec, err := factory.Bind(q).GetByID(context.Background(), uuid.New())
		if err != nil {
			t.Fatalf("GetByID() unexpected error: %v", err)
		}
		if rec.Username != "bound" {
			t.Errorf("Username = %q, want %q", rec.Username, "bound")
		}
		if calls != 1 {
			t.Errorf("bound querier saw %d calls, want 1", calls)
		}
	})

	t.Run("each bind is independent", func(t *testing.T) {
		factory, err := NewRepoFactory[uuid.UUID, testRecord]("accounts", "account")
		if err != nil {
			t.Fatalf("NewRepoFactory() unexpected error: %v", err)
		}

		var firstCalls, secondCalls int
		first := &mockQuerier{
			execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				firstCalls++
				return pgconn.CommandTag{}, nil
			},
		}
		second := &mockQuerier{
			execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				secondCalls++
				return pgconn.CommandTag{}, nil
			},
		}

		repoA := factory.Bind(first)
		repoB := factory.Bind(second)

		if err := repoA.Delete(context.Background(), uuid.New()); err != nil {
			t.Fatalf("Delete() unexpected error: %v", err)
		}
		if err := repoB.Delete(context.Background(), uuid.New()); err != nil {
			t.Fatalf("Delete() unexpected error: %v", err)
		}

		if firstCalls != 1 || secondCalls != 1 {
			t.Errorf("calls = %d and %d, want 1 and 1", firstCalls, secondCalls)
		}
	})
}
