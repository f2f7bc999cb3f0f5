// Package stack holds numbered transcripts saved while stack mode is on.
//
// A Store is not safe for concurrent use. It is owned by the router loop and
// every access happens on that goroutine.
package stack

import (
	"time"
	"unicode/utf8"

	"github.com/harunnryd/voxd/internal/config"
	"github.com/harunnryd/voxd/internal/errors"
)

// Entry is a saved transcript. Entries are never modified after Save.
type Entry struct {
	ID        uint32    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Info is the listing view of an entry.
type Info struct {
	ID         uint32    `json:"id" yaml:"id"`
	Preview    string    `json:"preview" yaml:"preview"`
	Characters int       `json:"characters" yaml:"characters"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

type Options struct {
	Capacity      int
	MaxEntrySize  int
	PreviewLength int
	Now           func() time.Time
}

type Store struct {
	enabled       bool
	entries       []Entry
	nextID        uint32
	capacity      int
	maxEntrySize  int
	previewLength int
	now           func() time.Time
}

func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	capacity := config.IntOrDefault(opts.Capacity, config.DefaultStackCapacity)
	return &Store{
		entries:       make([]Entry, 0, capacity),
		nextID:        1,
		capacity:      capacity,
		maxEntrySize:  config.IntOrDefault(opts.MaxEntrySize, config.DefaultStackMaxEntrySize),
		previewLength: config.IntOrDefault(opts.PreviewLength, config.DefaultStackPreviewLength),
		now:           now,
	}
}

func (s *Store) Enabled() bool {
	return s.enabled
}

// Enable turns stack mode on. It reports false when it was already on.
func (s *Store) Enable() bool {
	if s.enabled {
		return false
	}
	s.enabled = true
	return true
}

// Disable turns stack mode off, drops every entry and restarts numbering at 1.
// It returns the number of entries dropped.
func (s *Store) Disable() int {
	dropped := len(s.entries)
	s.enabled = false
	s.entries = s.entries[:0]
	s.nextID = 1
	return dropped
}

// Save stores text under the next id, evicting the oldest entry when full.
func (s *Store) Save(text string) (Entry, error) {
	if !s.enabled {
		return Entry{}, errors.StackModeDisabled("cannot save stack")
	}
	size := utf8.RuneCountInString(text)
	if size > s.maxEntrySize {
		return Entry{}, &errors.TextTooLargeError{Size: size, Max: s.maxEntrySize}
	}

	if len(s.entries) >= s.capacity {
		// entries are kept in id order, so the head is the lowest surviving id
		evict := len(s.entries) - s.capacity + 1
		s.entries = append(s.entries[:0], s.entries[evict:]...)
	}

	entry := Entry{
		ID:        s.nextID,
		Text:      text,
		CreatedAt: s.now(),
	}
	s.nextID++
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *Store) Get(id uint32) (Entry, error) {
	if !s.enabled {
		return Entry{}, errors.StackModeDisabled("cannot read stack")
	}
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, &errors.StackNotFoundError{ID: id, Available: s.Available()}
}

// List returns entries in ascending id order.
func (s *Store) List() []Info {
	out := make([]Info, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Info{
			ID:         e.ID,
			Preview:    Preview(e.Text, s.previewLength),
			Characters: utf8.RuneCountInString(e.Text),
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

// Clear removes all entries and returns how many were removed. Numbering continues.
func (s *Store) Clear() int {
	n := len(s.entries)
	s.entries = s.entries[:0]
	return n
}

func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) Available() []uint32 {
	ids := make([]uint32, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.ID
	}
	return ids
}

// Preview truncates text to n runes, appending "..." when shortened.
func Preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
