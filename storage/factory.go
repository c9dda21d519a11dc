package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	log "github.com/sirupsen/logrus"
)

// BlobOptions configures the container behind the blob adapter.
type BlobOptions struct {
	// One of "s3", "bolt", "disk" or "memory".
	Type string
	AWSOptions

	// S3 bucket, or bucket within the Bolt database.
	Bucket string

	// Bolt database file, or directory for the "disk" type.
	Path string

	// Optional Bolt database file caching blobs in front of the container.
	CachePath string
}

// DocumentOptions configures the table behind the document adapter.
type DocumentOptions struct {
	// One of "dynamodb" or "memory".
	Type string
	AWSOptions

	Table string
}

// NewContainer returns the container described by o and a function releasing
// its resources.
func NewContainer(o BlobOptions) (Container, func() error, error) {
	c, closeContainer, err := newContainer(o)
	if err != nil || o.CachePath == "" {
		return c, closeContainer, err
	}
	db, err := openBolt(o.CachePath)
	if err != nil {
		_ = closeContainer()
		return nil, nil, err
	}
	log.WithField("path", o.CachePath).Info("Caching blobs in a Bolt database")
	closeBoth := func() error {
		err := db.Close()
		if cerr := closeContainer(); err == nil {
			err = cerr
		}
		return err
	}
	return NewPaired(NewBoltContainer(db, "cache"), c), closeBoth, nil
}

func openBolt(path string) (*bolt.DB, error) {
	path = os.ExpandEnv(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("could not ensure directory for %q exists: %w", path, err)
	}
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open database %q: %w", path, err)
	}
	return db, nil
}

func newContainer(o BlobOptions) (Container, func() error, error) {
	noop := func() error { return nil }
	switch o.Type {
	case "s3":
		if o.Bucket == "" {
			return nil, nil, fmt.Errorf("s3 requires a non-empty bucket name")
		}
		log.WithFields(log.Fields{
			"bucket":   o.Bucket,
			"region":   o.Region,
			"endpoint": o.Endpoint,
		}).Info("Using S3 blob backend")
		return NewS3Container(o.AWSOptions, o.Bucket), noop, nil
	case "bolt":
		db, err := openBolt(o.Path)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(log.Fields{
			"path":   o.Path,
			"bucket": o.Bucket,
		}).Info("Using Bolt blob backend")
		return NewBoltContainer(db, o.Bucket), db.Close, nil
	case "disk":
		dir := os.ExpandEnv(o.Path)
		log.WithField("dir", dir).Info("Using disk blob backend")
		return NewDiskContainer(dir), noop, nil
	case "memory", "":
		log.Warn("Using in-memory blob backend (development only)")
		return NewInMemoryContainer(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown blob backend type %q", o.Type)
	}
}

// NewTable returns the table described by o.
func NewTable(o DocumentOptions) (Table, error) {
	switch o.Type {
	case "dynamodb":
		if o.Table == "" {
			return nil, fmt.Errorf("dynamodb requires a non-empty table name")
		}
		log.WithFields(log.Fields{
			"table":    o.Table,
			"region":   o.Region,
			"endpoint": o.Endpoint,
		}).Info("Using DynamoDB document backend")
		return NewDynamoDBTable(o.AWSOptions, o.Table), nil
	case "memory", "":
		log.Warn("Using in-memory document backend (development only)")
		return NewInMemoryTable(), nil
	default:
		return nil, fmt.Errorf("unknown document backend type %q", o.Type)
	}
}
