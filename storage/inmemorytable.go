package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/nicolagi/rolodex/person"
)

type tableKey struct {
	lastName  string
	firstName string
}

// InMemoryTable is a Table implementation powered by a map, to be used for
// testing or development.
type InMemoryTable struct {
	sync.Mutex
	m map[tableKey]person.Record
}

func NewInMemoryTable() *InMemoryTable {
	return &InMemoryTable{
		m: make(map[tableKey]person.Record),
	}
}

func (t *InMemoryTable) Ensure(context.Context) error {
	return nil
}

func (t *InMemoryTable) Upsert(_ context.Context, r person.Record, newID string) (string, error) {
	if err := validate(r); err != nil {
		return "", err
	}
	k := tableKey{lastName: r.LastName(), firstName: r.FirstName()}
	stored := r.Clone()
	t.Lock()
	defer t.Unlock()
	id := r.ID()
	if id == "" {
		id = t.m[k].ID()
	}
	if id == "" {
		id = newID
	}
	stored[person.KeyID] = id
	t.m[k] = stored
	return id, nil
}

// Query returns copies of the matching records, ordered by key.
func (t *InMemoryTable) Query(_ context.Context, f Filter) ([]person.Record, error) {
	t.Lock()
	var records []person.Record
	for _, r := range t.m {
		if f.Match(r) {
			records = append(records, r.Clone())
		}
	}
	t.Unlock()
	sort.Slice(records, func(i, j int) bool {
		if records[i].LastName() != records[j].LastName() {
			return records[i].LastName() < records[j].LastName()
		}
		return records[i].FirstName() < records[j].FirstName()
	})
	return records, nil
}

func (t *InMemoryTable) Delete(_ context.Context, lastName, firstName string) error {
	t.Lock()
	delete(t.m, tableKey{lastName: lastName, firstName: firstName})
	t.Unlock()
	return nil
}
