package page

import (
	"fmt"
	"io"

	"github.com/nicolagi/rolodex/person"
)

type item struct {
	record person.Record
	hidden bool
}

// View is the list of rendered records, in the order they were first shown.
// Items are never removed except by Reset; filtering only hides them.
type View struct {
	items []*item
	byID  map[string]*item
}

func NewView() *View {
	return &View{byID: make(map[string]*item)}
}

// Show makes records visible. Records already in the view are unhidden and
// keep their position; records without an id are skipped.
func (v *View) Show(records []person.Record) {
	for _, r := range records {
		id := r.ID()
		if id == "" {
			continue
		}
		if it, ok := v.byID[id]; ok {
			it.hidden = false
			continue
		}
		it := &item{record: r}
		v.items = append(v.items, it)
		v.byID[id] = it
	}
}

// Filter hides every item whose id is not in ids.
func (v *View) Filter(ids []string) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	for _, it := range v.items {
		it.hidden = !keep[it.record.ID()]
	}
}

func (v *View) Reset() {
	v.items = nil
	v.byID = make(map[string]*item)
}

// Visible returns the records currently shown.
func (v *View) Visible() []person.Record {
	var rs []person.Record
	for _, it := range v.items {
		if !it.hidden {
			rs = append(rs, it.record)
		}
	}
	return rs
}

// Render writes one "key: value" line per displayable attribute of each
// visible record, with a blank line between records.
func (v *View) Render(w io.Writer) error {
	for i, r := range v.Visible() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		for _, k := range person.Attributes(r) {
			if _, err := fmt.Fprintf(w, "%s: %v\n", k, r[k]); err != nil {
				return err
			}
		}
	}
	return nil
}
