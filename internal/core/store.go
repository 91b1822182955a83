package core

import "context"

// RecordInserter stores a single record. A violation of the variant's
// uniqueness key must be reported as an error wrapping ErrDuplicate, and the
// check must be atomic with the insert.
type RecordInserter interface {
	Insert(ctx context.Context, r *Record) (int64, error)
}

// RecordLister returns every stored record, newest first (creation time
// descending, ties broken by descending ID).
type RecordLister interface {
	QueryAll(ctx context.Context) ([]Record, error)
}

// Store is the full persistence boundary used by the Service.
type Store interface {
	RecordInserter
	RecordLister

	// Query returns records matching every predicate of the filter, newest first.
	Query(ctx context.Context, f Filter) ([]Record, error)

	// Update replaces every attribute of the record with the given ID and
	// returns the number of rows affected.
	Update(ctx context.Context, id int64, r *Record) (int64, error)

	// Delete removes the record with the given ID and returns the number of
	// rows affected.
	Delete(ctx context.Context, id int64) (int64, error)

	Close() error
}
