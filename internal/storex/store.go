package storex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// IDColumn is the identifier column every store-managed table carries.
const IDColumn = "id"

// ErrMissingID reports an update DTO that does not carry an id value.
var ErrMissingID = errors.New("dto does not carry an id value")

// Store runs generic CRUD for one logical table, parameterized by the
// identifier type. It speaks DTOs only and surfaces storage-native failures
// (pgx.ErrNoRows, unique-violation PgErrors) untranslated; classification is
// the Repository's job.
type Store[ID comparable] struct {
	db      Querier
	table   string
	columns []string

	colList      string
	qSelectByID  string
	qSelectByAny string
	qSelectAll   string
	qUpdateID    string
	qUpdateRow   string
	qDeleteByID  string
	qDeleteByAny string
	qCount       string
}

// NewStore builds a Store over table with the given column set, which must
// include the id column. db may be a pool or an open transaction; binding a
// store to a transaction scopes every operation to that session.
func NewStore[ID comparable](db Querier, table string, columns []string) (*Store[ID], error) {
	if table == "" {
		return nil, errors.New("storex: table name cannot be empty")
	}
	hasID := false
	for _, col := range columns {
		if col == IDColumn {
			hasID = true
			break
		}
	}
	if !hasID {
		return nil, fmt.Errorf("storex: columns for table %s must include %q", table, IDColumn)
	}

	s := &Store[ID]{
		db:      db,
		table:   table,
		columns: columns,
		colList: strings.Join(columns, ", "),
	}
	s.qSelectByID = fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.colList, table)
	s.qSelectByAny = fmt.Sprintf("SELECT %s FROM %s WHERE id = ANY($1)", s.colList, table)
	s.qSelectAll = fmt.Sprintf("SELECT %s FROM %s", s.colList, table)
	s.qUpdateID = s.updateSQL(IDColumn)
	s.qUpdateRow = s.updateSQL(s.colList)
	s.qDeleteByID = fmt.Sprintf("DELETE FROM %s WHERE id = $1", table)
	s.qDeleteByAny = fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", table)
	s.qCount = fmt.Sprintf("SELECT count(*) FROM %s", table)
	return s, nil
}

// GetByID returns the row for id, or pgx.ErrNoRows when absent.
func (s *Store[ID]) GetByID(ctx context.Context, id ID) (DTO, error) {
	rows, err := s.db.Query(ctx, s.qSelectByID, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, rowToDTO)
}

// Create inserts one row and returns its identifier.
func (s *Store[ID]) Create(ctx context.Context, dto DTO) (ID, error) {
	var id ID
	sql, args := s.insertSQL([]DTO{dto}, IDColumn)
	err := s.db.QueryRow(ctx, sql, args...).Scan(&id)
	return id, err
}

// CreateAndGet inserts one row and returns it exactly as persisted, column
// defaults included, in a single round trip.
func (s *Store[ID]) CreateAndGet(ctx context.Context, dto DTO) (DTO, error) {
	sql, args := s.insertSQL([]DTO{dto}, s.colList)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, rowToDTO)
}

// CreateMany inserts all rows in one statement, all-or-nothing, and returns
// their identifiers in input order. Empty input returns an empty result
// without touching storage.
func (s *Store[ID]) CreateMany(ctx context.Context, dtos []DTO) ([]ID, error) {
	if len(dtos) == 0 {
		return []ID{}, nil
	}
	sql, args := s.insertSQL(dtos, IDColumn)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[ID])
}

// CreateAndGetMany is CreateMany returning the persisted rows instead of
// identifiers, in input order.
func (s *Store[ID]) CreateAndGetMany(ctx context.Context, dtos []DTO) ([]DTO, error) {
	if len(dtos) == 0 {
		return []DTO{}, nil
	}
	sql, args := s.insertSQL(dtos, s.colList)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, rowToDTO)
}

// Update rewrites the row identified by the DTO's id. It fails ErrMissingID
// when the DTO carries no id, and pgx.ErrNoRows when no row matches.
func (s *Store[ID]) Update(ctx context.Context, dto DTO) error {
	args, err := s.updateArgs(dto)
	if err != nil {
		return err
	}
	var id ID
	return s.db.QueryRow(ctx, s.qUpdateID, args...).Scan(&id)
}

// UpdateAndGet is Update returning the row exactly as persisted.
func (s *Store[ID]) UpdateAndGet(ctx context.Context, dto DTO) (DTO, error) {
	args, err := s.updateArgs(dto)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, s.qUpdateRow, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, rowToDTO)
}

// UpdateMany applies updates one at a time, in order. It is not atomic
// across the batch; the first failure aborts the remainder.
func (s *Store[ID]) UpdateMany(ctx context.Context, dtos []DTO) error {
	for i, dto := range dtos {
		if err := s.Update(ctx, dto); err != nil {
			return fmt.Errorf("dto %d: %w", i, err)
		}
	}
	return nil
}

// GetBy returns the single row whose column equals value, or pgx.ErrNoRows
// when absent. The column name must come from code, never from input.
func (s *Store[ID]) GetBy(ctx context.Context, column string, value any) (DTO, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", s.colList, s.table, column)
	rows, err := s.db.Query(ctx, sql, value)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, rowToDTO)
}

// ListBy returns every row whose column equals value.
func (s *Store[ID]) ListBy(ctx context.Context, column string, value any) ([]DTO, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", s.colList, s.table, column)
	rows, err := s.db.Query(ctx, sql, value)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, rowToDTO)
}

// GetManyByIDs returns the rows that exist for ids; absent ids are silently
// omitted, never reported.
func (s *Store[ID]) GetManyByIDs(ctx context.Context, ids []ID) ([]DTO, error) {
	rows, err := s.db.Query(ctx, s.qSelectByAny, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, rowToDTO)
}

// Delete removes the row for id. Deleting an absent id is not an error.
func (s *Store[ID]) Delete(ctx context.Context, id ID) error {
	_, err := s.db.Exec(ctx, s.qDeleteByID, id)
	return err
}

// DeleteMany removes every row in ids, absent ones included.
func (s *Store[ID]) DeleteMany(ctx context.Context, ids []ID) error {
	_, err := s.db.Exec(ctx, s.qDeleteByAny, ids)
	return err
}

// Count returns the number of rows in the table.
func (s *Store[ID]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, s.qCount).Scan(&n)
	return n, err
}

// GetAll returns every row in the table.
func (s *Store[ID]) GetAll(ctx context.Context) ([]DTO, error) {
	rows, err := s.db.Query(ctx, s.qSelectAll)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, rowToDTO)
}

func rowToDTO(row pgx.CollectableRow) (DTO, error) {
	m, err := pgx.RowToMap(row)
	if err != nil {
		return nil, err
	}
	return DTO(m), nil
}

// insertSQL builds a multi-row INSERT with a RETURNING clause. Postgres
// returns RETURNING rows in VALUES order, which is what keeps batch results
// aligned with batch input.
func (s *Store[ID]) insertSQL(dtos []DTO, returning string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", s.table, s.colList)
	args := make([]any, 0, len(dtos)*len(s.columns))
	for i, dto := range dtos {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, col := range s.columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", len(args)+1)
			args = append(args, dto[col])
		}
		b.WriteByte(')')
	}
	fmt.Fprintf(&b, " RETURNING %s", returning)
	return b.String(), args
}

// updateSQL builds the UPDATE statement: id is $1, remaining columns follow
// in declaration order.
func (s *Store[ID]) updateSQL(returning string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET ", s.table)
	n := 2
	for _, col := range s.columns {
		if col == IDColumn {
			continue
		}
		if n > 2 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = $%d", col, n)
		n++
	}
	fmt.Fprintf(&b, " WHERE id = $1 RETURNING %s", returning)
	return b.String()
}

func (s *Store[ID]) updateArgs(dto DTO) ([]any, error) {
	idVal, ok := dto[IDColumn]
	if !ok || idVal == nil {
		return nil, ErrMissingID
	}
	args := make([]any, 0, len(s.columns))
	args = append(args, idVal)
	for _, col := range s.columns {
		if col == IDColumn {
			continue
		}
		args = append(args, dto[col])
	}
	return args, nil
}
