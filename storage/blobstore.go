package storage

import (
	"context"
	"io"
	"io/ioutil"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Number of deletes in flight during DeleteAll.
const deleteConcurrency = 8

// Blob is a named blob together with its text content, as returned by List.
type Blob struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Blobs adapts a Container to the operations the HTTP layer needs. The
// container is created on demand, once per process (a failed attempt is
// retried by the next operation).
type Blobs struct {
	container Container
	observer  Observer

	mu      sync.Mutex
	ensured bool
}

// NewBlobs wraps c. A nil observer discards metrics.
func NewBlobs(c Container, o Observer) *Blobs {
	if o == nil {
		o = nopObserver{}
	}
	return &Blobs{container: c, observer: o}
}

func (b *Blobs) ensure(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ensured {
		return nil
	}
	if err := b.container.Ensure(ctx); err != nil {
		return err
	}
	b.ensured = true
	return nil
}

func (b *Blobs) observe(operation string, start time.Time, err error) {
	b.observer.Observe("blob", operation, time.Since(start), err)
}

// Upload stores data under name, overwriting any existing blob.
func (b *Blobs) Upload(ctx context.Context, name string, data []byte) (err error) {
	defer func(start time.Time) { b.observe("upload", start, err) }(time.Now())
	if err = b.ensure(ctx); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"name":   name,
		"length": len(data),
	}).Debug("Uploading blob")
	return b.container.Put(ctx, name, data)
}

func (b *Blobs) Delete(ctx context.Context, name string) (err error) {
	defer func(start time.Time) { b.observe("delete", start, err) }(time.Now())
	if err = b.ensure(ctx); err != nil {
		return err
	}
	return b.container.Delete(ctx, name)
}

// Download returns a reader over the blob's bytes. The caller closes it.
func (b *Blobs) Download(ctx context.Context, name string) (rc io.ReadCloser, err error) {
	defer func(start time.Time) { b.observe("download", start, err) }(time.Now())
	if err = b.ensure(ctx); err != nil {
		return nil, err
	}
	return b.container.Get(ctx, name)
}

// ReadText reads the whole blob and decodes it as UTF-8, replacing invalid
// sequences with U+FFFD.
func (b *Blobs) ReadText(ctx context.Context, name string) (text string, err error) {
	defer func(start time.Time) { b.observe("read_text", start, err) }(time.Now())
	if err = b.ensure(ctx); err != nil {
		return "", err
	}
	return b.readText(ctx, name)
}

func (b *Blobs) readText(ctx context.Context, name string) (string, error) {
	rc, err := b.container.Get(ctx, name)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.WithFields(log.Fields{
				"name": name,
				"err":  err,
			}).Warn("Could not close blob reader")
		}
	}()
	data, err := ioutil.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// List returns every blob with its full text content. It reads each blob in
// turn, so its cost grows with the total size of the container.
func (b *Blobs) List(ctx context.Context) (blobs []Blob, err error) {
	defer func(start time.Time) { b.observe("list", start, err) }(time.Now())
	if err = b.ensure(ctx); err != nil {
		return nil, err
	}
	names, err := b.names(ctx)
	if err != nil {
		return nil, err
	}
	blobs = make([]Blob, 0, len(names))
	for _, name := range names {
		content, err := b.readText(ctx, name)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, Blob{Name: name, Content: content})
	}
	return blobs, nil
}

// DeleteAll deletes every blob and returns how many were deleted. All
// deletes have completed (or failed) by the time it returns.
func (b *Blobs) DeleteAll(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { b.observe("delete_all", start, err) }(time.Now())
	if err = b.ensure(ctx); err != nil {
		return 0, err
	}
	names, err := b.names(ctx)
	if err != nil {
		return 0, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return b.container.Delete(gctx, name)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(names), nil
}

// The listing completes before callers act on it, so they may mutate the
// container while going through the names.
func (b *Blobs) names(ctx context.Context) ([]string, error) {
	var names []string
	err := b.container.Walk(ctx, func(name string) error {
		names = append(names, name)
		return nil
	})
	return names, err
}
