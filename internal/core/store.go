package core

// store.go holds the serving process's current batch.
//
// Every read and every mutation goes through one RWMutex. Replace builds the
// annotated batch before taking the lock, so readers see either the old
// batch or the new one and never a half-cleared store. Reads hand out
// clones, so callers can encode them without holding the lock.

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// suffixPattern matches identifiers of the form "<base>-<digits>".
var suffixPattern = regexp.MustCompile(`^(.*)-(\d+)$`)

// PatchResult reports the mutation applied by SetField.
type PatchResult struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Store is the in-memory row store. The zero value is not usable; use NewStore.
type Store struct {
	mu   sync.RWMutex
	rows []*Row
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// AttachIDs returns copies of rows with __id set from ExtractID, falling back
// to "row-<index>". Identifiers must be unique across the batch.
func AttachIDs(rows []*Row) ([]*Row, error) {
	out := make([]*Row, len(rows))
	seen := make(map[string]int, len(rows))
	for i, r := range rows {
		if r == nil {
			return nil, &ValidationError{Message: fmt.Sprintf("each item must be an object (item %d)", i)}
		}
		id := ExtractID(r)
		if id == "" {
			id = fallbackID(i)
		}
		if first, dup := seen[id]; dup {
			return nil, &ValidationError{Message: fmt.Sprintf("duplicate identifier %q at items %d and %d", id, first, i)}
		}
		seen[id] = i

		c := r.Clone()
		c.Set(IDField, id)
		out[i] = c
	}
	return out, nil
}

// Replace swaps the whole batch for rows. On error the store is unchanged.
func (s *Store) Replace(rows []*Row) (int, error) {
	annotated, err := AttachIDs(rows)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.rows = annotated
	s.mu.Unlock()

	return len(annotated), nil
}

// Snapshot returns a copy of the current batch in stored order.
func (s *Store) Snapshot() []*Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.Clone()
	}
	return out
}

// IDs returns the identifier of every stored row in order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idsLocked()
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Get resolves id and returns a copy of the row.
func (s *Store) Get(id string) (*Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.resolveLocked(id)
	if row == nil {
		return nil, newNotFound(NormalizeID(id), s.idsLocked())
	}
	return row.Clone(), nil
}

// SetField resolves id and sets field to value on the stored row, creating
// the field if absent. The identifier field itself cannot be patched.
func (s *Store) SetField(id, field string, value any) (PatchResult, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return PatchResult{}, &ValidationError{Message: "missing 'field'"}
	}
	if field == IDField {
		return PatchResult{}, &ValidationError{Message: fmt.Sprintf("field '%s' is a reserved field", IDField)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.resolveLocked(id)
	if row == nil {
		return PatchResult{}, newNotFound(NormalizeID(id), s.idsLocked())
	}
	row.Set(field, value)

	return PatchResult{ID: ExtractID(row), Field: field, Value: value}, nil
}

// RebuildIDs reassigns __id on every row from ExtractID, falling back to
// "row-<index>". No hashing or de-duplication happens here.
func (s *Store) RebuildIDs() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, row := range s.rows {
		id := ExtractID(row)
		if id == "" {
			id = fallbackID(i)
		}
		row.Set(IDField, id)
	}
	return len(s.rows)
}

// resolveLocked finds a row by exact identifier, then by the identifier with
// a trailing "-<digits>" removed. Caller must hold s.mu.
func (s *Store) resolveLocked(id string) *Row {
	id = NormalizeID(id)
	if row := s.findLocked(id); row != nil {
		return row
	}
	if base, ok := StripNumericSuffix(id); ok {
		return s.findLocked(base)
	}
	return nil
}

func (s *Store) findLocked(id string) *Row {
	for _, row := range s.rows {
		if ExtractID(row) == id {
			return row
		}
	}
	return nil
}

func (s *Store) idsLocked() []string {
	ids := make([]string, len(s.rows))
	for i, row := range s.rows {
		ids[i] = ExtractID(row)
	}
	return ids
}

// StripNumericSuffix returns the trimmed base of an identifier ending in
// "-<digits>". ok is false when there is no such suffix or the base is empty.
func StripNumericSuffix(id string) (string, bool) {
	m := suffixPattern.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return "", false
	}
	base := strings.TrimSpace(m[1])
	return base, base != ""
}

func fallbackID(index int) string {
	return fmt.Sprintf("row-%d", index)
}
