package imagestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Staging collects a complete output set in a hidden sibling directory and
// swaps it in for the target only on Commit.
type Staging struct {
	target string
	dir    string
	store  *Store
	closed bool
}

func NewStaging(target string) (*Staging, error) {
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create parent of %s: %w", target, err)
	}

	dir, err := os.MkdirTemp(parent, "."+filepath.Base(target)+".staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging for %s: %w", target, err)
	}

	return &Staging{
		target: target,
		dir:    dir,
		store:  &Store{dir: dir},
	}, nil
}

func (s *Staging) Store() *Store {
	return s.store
}

// Sub returns a store for a subdirectory of the staging area.
func (s *Staging) Sub(name string) (*Store, error) {
	return Open(filepath.Join(s.dir, name))
}

// Commit replaces the target directory with the staged content.
func (s *Staging) Commit() error {
	if s.closed {
		return errors.New("staging already closed")
	}

	backup := s.dir + ".previous"
	hadTarget := true
	if err := os.Rename(s.target, backup); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("move aside %s: %w", s.target, err)
		}
		hadTarget = false
	}

	if err := os.Rename(s.dir, s.target); err != nil {
		if hadTarget {
			_ = os.Rename(backup, s.target)
		}
		return fmt.Errorf("publish %s: %w", s.target, err)
	}
	s.closed = true

	if hadTarget {
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("remove previous %s: %w", s.target, err)
		}
	}
	return nil
}

// Abort discards the staged content. It is safe to call after Commit.
func (s *Staging) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return os.RemoveAll(s.dir)
}
