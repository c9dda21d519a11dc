package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"sync"
)

// InMemoryContainer is a Container implementation powered by a map, to be
// used for testing or development.
type InMemoryContainer struct {
	sync.Mutex
	m map[string][]byte
}

func NewInMemoryContainer() *InMemoryContainer {
	return &InMemoryContainer{
		m: make(map[string][]byte),
	}
}

func (s *InMemoryContainer) Ensure(context.Context) error {
	return nil
}

func (s *InMemoryContainer) Put(_ context.Context, name string, value []byte) error {
	s.Lock()
	s.m[name] = dup(value)
	s.Unlock()
	return nil
}

func (s *InMemoryContainer) Get(_ context.Context, name string) (io.ReadCloser, error) {
	s.Lock()
	value, ok := s.m[name]
	s.Unlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return ioutil.NopCloser(bytes.NewReader(value)), nil
}

func (s *InMemoryContainer) Delete(_ context.Context, name string) error {
	s.Lock()
	delete(s.m, name)
	s.Unlock()
	return nil
}

// Walk visits names in lexical order, like S3 listings do.
func (s *InMemoryContainer) Walk(ctx context.Context, fn func(name string) error) error {
	s.Lock()
	names := make([]string, 0, len(s.m))
	for name := range s.m {
		names = append(names, name)
	}
	s.Unlock()
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(name); err != nil {
			return err
		}
	}
	return nil
}
