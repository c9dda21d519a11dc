package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/boltdb/bolt"
)

// BoltContainer is an implementation of Container whose backend is a bucket
// in a Bolt database. Several containers can share one database.
type BoltContainer struct {
	db     *bolt.DB
	bucket []byte
}

func NewBoltContainer(db *bolt.DB, bucket string) *BoltContainer {
	return &BoltContainer{db: db, bucket: []byte(bucket)}
}

func (s *BoltContainer) Ensure(context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return fmt.Errorf("could not ensure bucket %q exists: %w", s.bucket, err)
		}
		return nil
	})
}

func (s *BoltContainer) Put(_ context.Context, name string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return fmt.Errorf("could not ensure bucket %q exists: %w", s.bucket, err)
		}
		// Bolt stores nil values as nil; keep empty blobs distinguishable.
		if value == nil {
			value = []byte{}
		}
		if err := b.Put([]byte(name), value); err != nil {
			return fmt.Errorf("could not put %q: %w", name, err)
		}
		return nil
	})
}

func (s *BoltContainer) Get(_ context.Context, name string) (io.ReadCloser, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		v := b.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		// Only valid for the life of the transaction.
		value = dup(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ioutil.NopCloser(bytes.NewReader(value)), nil
}

func (s *BoltContainer) Delete(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		if err := b.Delete([]byte(name)); err != nil {
			return fmt.Errorf("could not delete %q: %w", name, err)
		}
		return nil
	})
}

func (s *BoltContainer) Walk(ctx context.Context, fn func(name string) error) error {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return err
	}
	// Calling fn outside the transaction lets it use the container.
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
