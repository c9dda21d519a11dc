package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nicolagi/rolodex/person"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Table represents a collection of person records keyed by last and first
// name, such as a DynamoDB table.
type Table interface {
	// Ensure creates the table if it does not exist yet. It must be
	// idempotent.
	Ensure(ctx context.Context) error

	// Upsert stores r, replacing any record with the same last and first name.
	// The stored record keeps the id of the record it replaces, unless r
	// carries its own; newID is used when neither has one. It returns the id
	// of the stored record.
	Upsert(ctx context.Context, r person.Record, newID string) (id string, err error)

	// Query returns the records matching f. When f is not empty, returned
	// records are only required to carry their id.
	Query(ctx context.Context, f Filter) ([]person.Record, error)

	// Delete removes the record with the given key. Deleting a missing record
	// is not an error.
	Delete(ctx context.Context, lastName, firstName string) error
}

// Filter selects records by last and first name. Empty fields match
// everything.
type Filter struct {
	LastName  string
	FirstName string
}

func (f Filter) IsZero() bool {
	return f.LastName == "" && f.FirstName == ""
}

func (f Filter) Match(r person.Record) bool {
	if f.LastName != "" && r.LastName() != f.LastName {
		return false
	}
	if f.FirstName != "" && r.FirstName() != f.FirstName {
		return false
	}
	return true
}

// ErrMalformed indicates a record lacking its last or first name.
var ErrMalformed = errors.New("record needs a string last_name and first_name")

func validate(r person.Record) error {
	if r.LastName() == "" || r.FirstName() == "" {
		return ErrMalformed
	}
	return nil
}

// QueryResult is what Documents.Query returns: either IDs (filtered queries)
// or Records (the unfiltered query). Both encode to a JSON array.
type QueryResult interface {
	Len() int
	isQueryResult()
}

// IDs holds the ids of the records matching a filtered query.
type IDs []string

// Records holds full records, as returned by an unfiltered query.
type Records []person.Record

func (ids IDs) Len() int { return len(ids) }
func (IDs) isQueryResult() {}

func (rs Records) Len() int { return len(rs) }
func (Records) isQueryResult() {}

// UpsertResult reports the outcome of one record of an UpsertAll batch.
type UpsertResult struct {
	Index int
	ID    string
	Err   error
}

// Documents adapts a Table to the operations the HTTP layer needs. Like
// Blobs, it creates the table on demand once per process.
type Documents struct {
	table    Table
	observer Observer

	mu      sync.Mutex
	ensured bool
}

// NewDocuments wraps t. A nil observer discards metrics.
func NewDocuments(t Table, o Observer) *Documents {
	if o == nil {
		o = nopObserver{}
	}
	return &Documents{table: t, observer: o}
}

func (d *Documents) ensure(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ensured {
		return nil
	}
	if err := d.table.Ensure(ctx); err != nil {
		return err
	}
	d.ensured = true
	return nil
}

func (d *Documents) observe(operation string, start time.Time, err error) {
	d.observer.Observe("document", operation, time.Since(start), err)
}

// UpsertAll upserts records one at a time and reports each outcome. A failed
// record does not stop the batch. The error is only non-nil when the table
// could not be reached at all, in which case no record was attempted.
func (d *Documents) UpsertAll(ctx context.Context, records []person.Record) (results []UpsertResult, err error) {
	defer func(start time.Time) { d.observe("upsert_all", start, err) }(time.Now())
	if err = d.ensure(ctx); err != nil {
		return nil, err
	}
	results = make([]UpsertResult, len(records))
	for i, r := range records {
		results[i].Index = i
		if results[i].Err = validate(r); results[i].Err != nil {
			continue
		}
		results[i].ID, results[i].Err = d.table.Upsert(ctx, r, uuid.New().String())
	}
	return results, nil
}

// Query runs one of four query shapes depending on which names are given.
// Any name given yields the IDs of the matching records; no name yields
// every record in full.
func (d *Documents) Query(ctx context.Context, lastName, firstName string) (result QueryResult, err error) {
	defer func(start time.Time) { d.observe("query", start, err) }(time.Now())
	if err = d.ensure(ctx); err != nil {
		return nil, err
	}
	f := Filter{LastName: lastName, FirstName: firstName}
	records, err := d.table.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	if f.IsZero() {
		if records == nil {
			records = []person.Record{}
		}
		return Records(records), nil
	}
	ids := make(IDs, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID())
	}
	return ids, nil
}

// DeleteAll deletes every record and returns how many were deleted. All
// deletes have completed (or failed) by the time it returns.
func (d *Documents) DeleteAll(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { d.observe("delete_all", start, err) }(time.Now())
	if err = d.ensure(ctx); err != nil {
		return 0, err
	}
	records, err := d.table.Query(ctx, Filter{})
	if err != nil {
		return 0, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for _, r := range records {
		lastName, firstName := r.LastName(), r.FirstName()
		g.Go(func() error {
			if err := d.table.Delete(gctx, lastName, firstName); err != nil {
				return fmt.Errorf("could not delete %q %q: %w", lastName, firstName, err)
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return 0, err
	}
	log.WithField("count", len(records)).Debug("Deleted all records")
	return len(records), nil
}
