package storex

// RepoFactory validates a record type's layout once, at startup, and binds
// per-request repositories to whichever session the caller runs on. Handlers
// open a transaction, Bind to it, and every repository operation in that
// request shares the transaction's fate.
type RepoFactory[ID comparable, M any] struct {
	ser    *Serializer[M]
	proto  Store[ID]
	entity string
}

// NewRepoFactory builds a factory for table and record type M. Layout
// validation runs here, so a record type that cannot be laid out flat fails
// the process at startup instead of on the first request.
func NewRepoFactory[ID comparable, M any](table, entity string) (*RepoFactory[ID, M], error) {
	ser, err := NewSerializer[M]()
	if err != nil {
		return nil, err
	}
	store, err := NewStore[ID](nil, table, ser.Columns())
	if err != nil {
		return nil, err
	}
	return &RepoFactory[ID, M]{ser: ser, proto: *store, entity: entity}, nil
}

// Bind returns a repository scoped to db, typically an open transaction.
// Bind cannot fail; all validation happened at construction.
func (f *RepoFactory[ID, M]) Bind(db Querier) *Repository[ID, M] {
	st := f.proto
	st.db = db
	return &Repository[ID, M]{store: &st, ser: f.ser, entity: f.entity}
}
