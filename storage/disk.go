package storage

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// Names longer than this are stored under their hash, with the name kept in a
// sidecar file so that Walk can report it.
const maxPlainName = sha512.Size

const (
	hashedPrefix = "h-"
	nameSuffix   = ".name"
)

var errEmptyName = errors.New("empty blob name")

// DiskContainer implements Container with one file per blob under a host
// directory. File names are the hex encoding of blob names, so any blob name
// is safe to use. Long names are hashed to prevent ENAMETOOLONG.
type DiskContainer struct {
	dir string
}

func NewDiskContainer(dir string) *DiskContainer {
	return &DiskContainer{dir: dir}
}

func (s *DiskContainer) Ensure(context.Context) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("could not make dir %q: %w", s.dir, err)
	}
	return nil
}

func (s *DiskContainer) Put(_ context.Context, name string, value []byte) error {
	valpath, err := s.pathFor(name)
	if err != nil {
		return err
	}
	if err := writeFile(valpath, value); err != nil {
		return err
	}
	if hashed(valpath) {
		return writeFile(valpath+nameSuffix, []byte(name))
	}
	return nil
}

func writeFile(valpath string, value []byte) (err error) {
	err = ioutil.WriteFile(valpath, value, 0600)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("could not write %q: %w", valpath, err)
	}
	if err = os.MkdirAll(filepath.Dir(valpath), 0700); err != nil {
		return fmt.Errorf("could not make dir for %q: %w", valpath, err)
	}
	return ioutil.WriteFile(valpath, value, 0600)
}

func (s *DiskContainer) Get(_ context.Context, name string) (io.ReadCloser, error) {
	valpath, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(valpath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *DiskContainer) Delete(_ context.Context, name string) error {
	valpath, err := s.pathFor(name)
	if err != nil {
		return err
	}
	if err := os.Remove(valpath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove %q: %w", valpath, err)
	}
	if hashed(valpath) {
		if err := os.Remove(valpath + nameSuffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("could not remove %q: %w", valpath+nameSuffix, err)
		}
	}
	return nil
}

func (s *DiskContainer) Walk(ctx context.Context, fn func(name string) error) error {
	var names []string
	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.dir {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, hashedPrefix) {
			if !strings.HasSuffix(base, nameSuffix) {
				return nil
			}
			name, err := ioutil.ReadFile(path)
			if err != nil {
				return err
			}
			names = append(names, string(name))
			return nil
		}
		name, err := hex.DecodeString(base)
		if err != nil {
			// Not ours.
			return nil
		}
		names = append(names, string(name))
		return nil
	})
	if err != nil {
		return err
	}
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

func (s *DiskContainer) pathFor(name string) (string, error) {
	if name == "" {
		return "", errEmptyName
	}
	if len(name) > maxPlainName {
		hash := sha512.Sum512([]byte(name))
		h := hex.EncodeToString(hash[:])
		return filepath.Join(s.dir, h[:2], hashedPrefix+h), nil
	}
	h := hex.EncodeToString([]byte(name))
	return filepath.Join(s.dir, h[:2], h), nil
}

func hashed(valpath string) bool {
	return strings.HasPrefix(filepath.Base(valpath), hashedPrefix)
}
