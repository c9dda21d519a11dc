// Package page drives a rolodex server the way the landing page does: load
// the remote people file into both backends, narrow the displayed records by
// name, and clear everything.
package page

import (
	"context"
	"fmt"
	"sync"

	"github.com/nicolagi/rolodex/person"
	log "github.com/sirupsen/logrus"
)

// Backend is the subset of client.Client the controller uses.
type Backend interface {
	FetchText(ctx context.Context, url string) (name string, text string, err error)
	UploadBlob(ctx context.Context, name string, data []byte) error
	BlobText(ctx context.Context, name string) (string, error)
	UpsertRecords(ctx context.Context, records []person.Record) error
	AllRecords(ctx context.Context) ([]person.Record, error)
	QueryIDs(ctx context.Context, lastName, firstName string) ([]string, error)
	DeleteAllBlobs(ctx context.Context) error
	DeleteAllRecords(ctx context.Context) error
}

// Controller serializes page actions so that, e.g., two loads cannot
// interleave their uploads and upserts.
type Controller struct {
	backend Backend
	source  string

	mu   sync.Mutex
	view *View
}

// NewController returns a controller that loads people from source.
func NewController(b Backend, source string) *Controller {
	return &Controller{
		backend: b,
		source:  source,
		view:    NewView(),
	}
}

// View returns the controller's view. Callers must not use it concurrently
// with an action.
func (c *Controller) View() *View {
	return c.view
}

// Load fetches the source file, stores it as a blob, parses the stored text
// into records, upserts them (if any) and shows every stored record.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, text, err := c.backend.FetchText(ctx, c.source)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	text = person.NormalizeSpaces(text)
	if err := c.backend.UploadBlob(ctx, name, []byte(text)); err != nil {
		return fmt.Errorf("upload %q: %w", name, err)
	}
	stored, err := c.backend.BlobText(ctx, name)
	if err != nil {
		return fmt.Errorf("read %q: %w", name, err)
	}
	records := person.Parse(stored)
	log.WithFields(log.Fields{
		"name":    name,
		"records": len(records),
	}).Debug("Parsed people file")
	// An empty file still shows what is already stored.
	if len(records) > 0 {
		if err := c.backend.UpsertRecords(ctx, records); err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
	}
	all, err := c.backend.AllRecords(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	c.view.Show(all)
	return nil
}

// Filter shows only the records matching the given names. With both names
// empty it does nothing.
func (c *Controller) Filter(ctx context.Context, lastName, firstName string) error {
	if lastName == "" && firstName == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, err := c.backend.QueryIDs(ctx, lastName, firstName)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	c.view.Filter(ids)
	return nil
}

// Clear empties the view, then deletes all blobs and all records.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Reset()
	if err := c.backend.DeleteAllBlobs(ctx); err != nil {
		return fmt.Errorf("delete blobs: %w", err)
	}
	if err := c.backend.DeleteAllRecords(ctx); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}
