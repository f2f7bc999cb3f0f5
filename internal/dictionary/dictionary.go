// Package dictionary rewrites transcripts with user-defined word replacements.
package dictionary

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

type Status string

const (
	StatusActive Status = "active"
	StatusDraft  Status = "draft"
)

func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case "", StatusActive:
		return StatusActive, nil
	case StatusDraft:
		return StatusDraft, nil
	default:
		return "", fmt.Errorf("unknown status %q (want active or draft)", value)
	}
}

// Entry replaces Surface with Replacement. Hit counts how often Surface has
// appeared in transcripts.
type Entry struct {
	Surface     string `yaml:"surface" json:"surface"`
	Replacement string `yaml:"replacement" json:"replacement"`
	Hit         uint32 `yaml:"hit" json:"hit"`
	Status      Status `yaml:"status,omitempty" json:"status"`
}

// Active treats a missing status as active.
func (e Entry) Active() bool {
	return e.Status == "" || e.Status == StatusActive
}

// Substituter rewrites a transcript. It must not fail.
type Substituter interface {
	Substitute(text string) string
}

// Apply scans text left to right. At each position the first active entry
// whose surface matches is replaced and scanning resumes after it.
func Apply(text string, entries []Entry) string {
	active := make([][]rune, 0, len(entries))
	replacements := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Active() || e.Surface == "" {
			continue
		}
		active = append(active, []rune(e.Surface))
		replacements = append(replacements, e.Replacement)
	}
	if len(active) == 0 {
		return text
	}

	chars := []rune(text)
	var out strings.Builder
	out.Grow(len(text))

	for i := 0; i < len(chars); {
		replaced := false
		for j, surface := range active {
			if hasPrefixAt(chars, i, surface) {
				out.WriteString(replacements[j])
				i += len(surface)
				replaced = true
				break
			}
		}
		if !replaced {
			out.WriteRune(chars[i])
			i++
		}
	}
	return out.String()
}

func hasPrefixAt(chars []rune, i int, surface []rune) bool {
	if i+len(surface) > len(chars) {
		return false
	}
	for k, r := range surface {
		if chars[i+k] != r {
			return false
		}
	}
	return true
}

// countHits adds the non-overlapping occurrences of each active surface.
// It reports whether any count changed.
func countHits(text string, entries []Entry) bool {
	changed := false
	for i := range entries {
		if !entries[i].Active() || entries[i].Surface == "" {
			continue
		}
		if n := strings.Count(text, entries[i].Surface); n > 0 {
			entries[i].Hit += uint32(n)
			changed = true
		}
	}
	return changed
}

// Dictionary reads the repository on every call so edits made by the CLI
// apply to the next transcript.
type Dictionary struct {
	repo Repository
	mu   sync.Mutex
}

func New(repo Repository) *Dictionary {
	return &Dictionary{repo: repo}
}

func (d *Dictionary) Substitute(text string) string {
	if d == nil || d.repo == nil || text == "" {
		return text
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := d.repo.Load()
	if err != nil {
		slog.Warn("Dictionary unavailable, using raw transcript", "error", err)
		return text
	}

	result := Apply(text, entries)
	if !countHits(text, entries) {
		return result
	}

	// count against a fresh read so concurrent CLI edits survive
	err = d.repo.Update(func(current []Entry) ([]Entry, bool) {
		return current, countHits(text, current)
	})
	if err != nil {
		slog.Warn("Failed to record dictionary hits", "error", err)
	}
	return result
}

// Nop leaves text unchanged.
type Nop struct{}

func (Nop) Substitute(text string) string { return text }
