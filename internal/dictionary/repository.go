package dictionary

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

type Repository interface {
	Load() ([]Entry, error)
	// Update loads, applies fn and saves when fn reports a change, with no
	// other writer in between.
	Update(fn func(entries []Entry) ([]Entry, bool)) error
}

type document struct {
	Entries []Entry `yaml:"entries"`
}

const (
	lockTimeout = 5 * time.Second
	lockRetry   = 20 * time.Millisecond
)

// FileRepository keeps entries in a YAML file, replaced atomically on save.
// Writers hold <path>.lock so the daemon and the CLI do not lose each other's edits.
type FileRepository struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
	mu          sync.Mutex
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path, lock: flock.New(path + ".lock"), lockTimeout: lockTimeout}
}

func (r *FileRepository) Path() string {
	return r.path
}

// Load returns no entries when the file does not exist yet. Saves replace the
// file atomically, so readers need no lock.
func (r *FileRepository) Load() ([]Entry, error) {
	return r.load()
}

func (r *FileRepository) load() ([]Entry, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", r.path, err)
	}
	for i := range doc.Entries {
		if doc.Entries[i].Status == "" {
			doc.Entries[i].Status = StatusActive
		}
	}
	return doc.Entries, nil
}

func (r *FileRepository) save(entries []Entry) error {
	data, err := yaml.Marshal(document{Entries: entries})
	if err != nil {
		return err
	}
	return atomic.WriteFile(r.path, bytes.NewReader(data))
}

func (r *FileRepository) Update(fn func(entries []Entry) ([]Entry, bool)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.lockTimeout)
	defer cancel()
	locked, err := r.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock dictionary %s: %w", r.path, err)
	}
	if !locked {
		return fmt.Errorf("lock dictionary %s: held by another process", r.path)
	}
	defer r.lock.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	entries, changed := fn(entries)
	if !changed {
		return nil
	}
	return r.save(entries)
}

// Upsert adds entry or replaces the one with the same surface.
func (r *FileRepository) Upsert(entry Entry) error {
	entry.Surface = strings.TrimSpace(entry.Surface)
	if entry.Surface == "" {
		return fmt.Errorf("surface must not be empty")
	}
	if entry.Status == "" {
		entry.Status = StatusActive
	}

	return r.Update(func(entries []Entry) ([]Entry, bool) {
		for i := range entries {
			if entries[i].Surface == entry.Surface {
				entries[i] = entry
				return entries, true
			}
		}
		return append(entries, entry), true
	})
}

// Delete reports whether an entry was removed.
func (r *FileRepository) Delete(surface string) (bool, error) {
	deleted := false
	err := r.Update(func(entries []Entry) ([]Entry, bool) {
		kept := entries[:0]
		for _, e := range entries {
			if e.Surface != surface {
				kept = append(kept, e)
			}
		}
		deleted = len(kept) != len(entries)
		return kept, deleted
	})
	return deleted, err
}
