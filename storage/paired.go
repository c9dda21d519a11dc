package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/ioutil"

	log "github.com/sirupsen/logrus"
)

// Paired implements Container wrapping a pair of containers, one fast, one
// slow. The slow one is authoritative: puts and deletes reach it first, and
// names are listed from it. Gets are served from the fast container if
// possible, otherwise from the slow one, propagating the data to the fast
// container for next time.
type Paired struct {
	fast Container
	slow Container
}

func NewPaired(fast, slow Container) *Paired {
	return &Paired{fast: fast, slow: slow}
}

func (s *Paired) Ensure(ctx context.Context) error {
	if err := s.fast.Ensure(ctx); err != nil {
		return err
	}
	return s.slow.Ensure(ctx)
}

func (s *Paired) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.fast.Get(ctx, name)
	if err == nil {
		return rc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	rc, err = s.slow.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	value, err := ioutil.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, err
	}
	logger := log.WithField("name", name)
	if ferr := s.fast.Put(ctx, name, value); ferr != nil {
		logger.WithField("err", ferr).Warn("Could not propagate from slow to fast")
	} else {
		logger.Debug("Propagated from slow to fast")
	}
	return ioutil.NopCloser(bytes.NewReader(value)), nil
}

// Put writes through: a value the slow container rejected is never cached.
func (s *Paired) Put(ctx context.Context, name string, value []byte) error {
	if err := s.slow.Put(ctx, name, value); err != nil {
		return err
	}
	if err := s.fast.Put(ctx, name, value); err != nil {
		// The next Get would serve a stale value, so drop it.
		log.WithFields(log.Fields{
			"name": name,
			"err":  err,
		}).Warn("Could not cache blob, evicting")
		return s.fast.Delete(ctx, name)
	}
	return nil
}

func (s *Paired) Delete(ctx context.Context, name string) error {
	if err := s.slow.Delete(ctx, name); err != nil {
		return err
	}
	return s.fast.Delete(ctx, name)
}

func (s *Paired) Walk(ctx context.Context, fn func(name string) error) error {
	return s.slow.Walk(ctx, fn)
}
