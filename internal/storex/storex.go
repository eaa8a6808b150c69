// Package storex implements the generic persistence stack shared by every
// entity: a Serializer mapping flat record structs to column-keyed DTOs, a
// Store running generic CRUD against one table, and a Repository composing
// the two while translating storage failures into entity-tagged domain
// failures. Stores speak raw storage errors only; everything above a
// Repository sees errx kinds.
package storex

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DTO is the untyped, column-keyed row representation exchanged between
// Repository and Store. Keys match storage column names exactly.
type DTO map[string]any

// Querier is the subset of pgx operations a Store needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same store code runs against the pool or
// inside a request-scoped transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner starts the transaction a request binds its repositories to.
// *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
