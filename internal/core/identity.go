package core

// identity.go prepares a freshly loaded sheet for ingest.
//
// Two passes run before any row leaves the sync job:
//  1. ReconcileCategory makes sure a Category column exists whenever Scope
//     does, filling gaps from Scope.
//  2. AssignIdentifiers gives every row an __id: an existing identifier
//     column is adopted verbatim, otherwise a composite of application,
//     version and category plus a content fingerprint. Duplicates are then
//     suffixed with their occurrence index so the batch is collision-free.

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// CategoryColumn is the column name inserted when only Scope exists.
const CategoryColumn = "Category"

// FingerprintLength is the number of hex characters kept from the digest.
const FingerprintLength = 10

// compositeSeparator joins the fields fed to the fingerprint.
const compositeSeparator = "|"

// identifierColumns are adopted verbatim when present (case-insensitive),
// in priority order.
var identifierColumns = []string{"__id", "externalid", "id", "jira key", "key"}

// Table is an ordered set of rows plus the ordered column names they share.
type Table struct {
	Columns []string
	Rows    []*Row
}

// Fingerprint digests a composite key into a short hex string.
type Fingerprint func(s string) string

// SHA1Fingerprint is the default fingerprint. It keeps identifiers
// compatible with batches produced by earlier syncs.
func SHA1Fingerprint(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}

// BLAKE3Fingerprint digests with BLAKE3.
func BLAKE3Fingerprint(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}

// FingerprintByName maps a configuration value to a Fingerprint.
func FingerprintByName(name string) (Fingerprint, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha1":
		return SHA1Fingerprint, nil
	case "blake3":
		return BLAKE3Fingerprint, nil
	default:
		return nil, fmt.Errorf("unknown fingerprint %q (supported: sha1, blake3)", name)
	}
}

// AssignOptions tunes identifier assignment.
type AssignOptions struct {
	// Fingerprint digests composite keys. Nil means SHA1Fingerprint.
	Fingerprint Fingerprint

	// SuffixFirst also suffixes the first member of a duplicate group
	// ("-0"). By default the first occurrence keeps the bare identifier so a
	// client that drops the suffix still lands on it.
	SuffixFirst bool
}

// PrepareTable runs column reconciliation then identifier assignment.
func PrepareTable(t *Table, opts AssignOptions) {
	ReconcileCategory(t)
	AssignIdentifiers(t, opts)
}

// ReconcileCategory aligns the Category column with Scope:
//   - both exist: empty or missing Category values are copied from Scope
//   - only Scope exists: Category is inserted right after Scope as a copy
//   - otherwise nothing changes
func ReconcileCategory(t *Table) {
	idx := MakeHeaderIndex(t.Columns)
	scopePos, hasScope := idx["scope"]
	catPos, hasCategory := idx["category"]

	switch {
	case hasScope && hasCategory:
		scopeCol, catCol := t.Columns[scopePos], t.Columns[catPos]
		for _, row := range t.Rows {
			if v, ok := row.Get(catCol); ok && !isEmptyCell(v) {
				continue
			}
			scope, _ := row.Get(scopeCol)
			row.Set(catCol, scope)
		}

	case hasScope:
		scopeCol := t.Columns[scopePos]
		cols := make([]string, 0, len(t.Columns)+1)
		cols = append(cols, t.Columns[:scopePos+1]...)
		cols = append(cols, CategoryColumn)
		cols = append(cols, t.Columns[scopePos+1:]...)
		t.Columns = cols

		for _, row := range t.Rows {
			scope, _ := row.Get(scopeCol)
			row.InsertAfter(scopeCol, CategoryColumn, scope)
		}
	}
}

// AssignIdentifiers sets __id on every row and makes the values unique.
func AssignIdentifiers(t *Table, opts AssignOptions) {
	idx := MakeHeaderIndex(t.Columns)

	if src, ok := lookupColumn(t.Columns, idx, identifierColumns...); ok {
		for _, row := range t.Rows {
			v, _ := row.Get(src)
			row.Set(IDField, Stringify(v))
		}
	} else {
		fp := opts.Fingerprint
		if fp == nil {
			fp = SHA1Fingerprint
		}
		appCol, _ := lookupColumn(t.Columns, idx, "application")
		verCol, _ := lookupColumn(t.Columns, idx, "version")
		catCol, _ := lookupColumn(t.Columns, idx, "category", "scope")

		for _, row := range t.Rows {
			row.Set(IDField, CompositeID(
				cellText(row, appCol),
				cellText(row, verCol),
				cellText(row, catCol),
				fp,
			))
		}
	}

	if indexOf(t.Columns, IDField) < 0 {
		t.Columns = append(t.Columns, IDField)
	}

	dedupeIdentifiers(t.Rows, opts.SuffixFirst)
}

// CompositeID builds "<application|x>-<version|na>-<fingerprint>" from
// trimmed field values.
func CompositeID(application, version, category string, fp Fingerprint) string {
	application = strings.TrimSpace(application)
	version = strings.TrimSpace(version)
	category = strings.TrimSpace(category)

	digest := fp(strings.Join([]string{application, version, category}, compositeSeparator))

	if application == "" {
		application = "x"
	}
	if version == "" {
		version = "na"
	}
	return application + "-" + version + "-" + digest
}

// dedupeIdentifiers appends "-<n>" to members of duplicate groups, n being
// the zero-based occurrence index in row order. A suffixed value that is
// already taken moves on to the next free index. Empty identifiers are left
// for the server's positional fallback.
func dedupeIdentifiers(rows []*Row, suffixFirst bool) {
	counts := make(map[string]int, len(rows))
	taken := make(map[string]bool, len(rows))
	for _, row := range rows {
		id := row.ID()
		counts[id]++
		taken[id] = true
	}

	next := make(map[string]int)
	for _, row := range rows {
		id := row.ID()
		if id == "" || counts[id] < 2 {
			continue
		}

		n := next[id]
		if n == 0 && !suffixFirst {
			next[id] = 1
			continue
		}
		candidate := fmt.Sprintf("%s-%d", id, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s-%d", id, n)
		}
		next[id] = n + 1
		taken[candidate] = true
		row.Set(IDField, candidate)
	}
}

// lookupColumn returns the original column name for the first of names
// present in idx.
func lookupColumn(columns []string, idx HeaderIndex, names ...string) (string, bool) {
	for _, name := range names {
		if pos, ok := idx[name]; ok {
			return columns[pos], true
		}
	}
	return "", false
}

func cellText(row *Row, col string) string {
	if col == "" {
		return ""
	}
	v, _ := row.Get(col)
	return Stringify(v)
}
