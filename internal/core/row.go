package core

// row.go defines the ordered row document shared by the sync job and the
// serving process.
//
// Spreadsheet rows are schema-flexible: the column set is whatever the sheet
// carries. Column order matters to the people reading the HTML view and the
// dashboard gadget, so a Row remembers insertion order through JSON decode and
// encode. Nested objects inside a cell decode to plain maps and lose their order.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// IDField is the reserved identifier column carried by every stored row.
const IDField = "__id"

// IDProbeFields lists the fields consulted, in priority order, when reading
// an identifier from a row that was not produced by the identity assigner.
// Ingest and RebuildIDs both go through ExtractID so they agree on this order.
var IDProbeFields = []string{IDField, "ExternalID", "ID", "id"}

// Row is an ordered mapping from column name to value.
// The zero value is an empty row ready to use.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow creates a row from alternating key/value pairs.
// Used mostly by tests and fixtures: NewRow("Application", "A", "Version", "1").
func NewRow(kv ...any) *Row {
	r := &Row{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		r.Set(key, kv[i+1])
	}
	return r
}

// Get returns the value stored under key.
func (r *Row) Get(key string) (any, bool) {
	if r.values == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Set stores value under key. Existing keys keep their position; new keys
// are appended.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// InsertAfter stores value under key positioned immediately after anchor.
// If anchor is absent the key is appended. If key already exists its value
// is replaced and it is moved behind anchor.
func (r *Row) InsertAfter(anchor, key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; exists {
		r.keys = removeKey(r.keys, key)
	}
	r.values[key] = value

	pos := indexOf(r.keys, anchor)
	if pos < 0 {
		r.keys = append(r.keys, key)
		return
	}
	r.keys = append(r.keys, "")
	copy(r.keys[pos+2:], r.keys[pos+1:])
	r.keys[pos+1] = key
}

// Keys returns the column names in order. The slice is a copy.
func (r *Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns in the row.
func (r *Row) Len() int {
	return len(r.keys)
}

// Clone returns a copy of the row. Cell values are shared; they are
// immutable scalars in practice.
func (r *Row) Clone() *Row {
	c := &Row{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// ID returns the normalized __id value, or "" when unset.
func (r *Row) ID() string {
	v, ok := r.Get(IDField)
	if !ok {
		return ""
	}
	return NormalizeID(Stringify(v))
}

// MarshalJSON encodes the row as a JSON object preserving key order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the row, keeping key order.
// Numbers are kept as json.Number so they round-trip verbatim.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errNotObject
	}

	r.keys = nil
	r.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("invalid json: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid json: unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("invalid json: %w", err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// DecodeBatch reads an ingest payload: a JSON array whose every element is
// an object. Anything else is a *ValidationError.
func DecodeBatch(r io.Reader) ([]*Row, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	if !json.Valid(body) {
		return nil, &ValidationError{Message: "invalid json body"}
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ValidationError{Message: "expected a list of releases"}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, &ValidationError{Message: "invalid json body", Err: err}
	}

	rows := make([]*Row, 0, len(items))
	for i, item := range items {
		row := &Row{}
		if err := row.UnmarshalJSON(item); err != nil {
			if errors.Is(err, errNotObject) {
				return nil, &ValidationError{Message: fmt.Sprintf("each item must be an object (item %d)", i)}
			}
			return nil, &ValidationError{Message: "invalid json body", Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeID trims surrounding whitespace from an identifier.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// ExtractID reads a row's identifier from the first of IDProbeFields holding
// a non-blank value (empty, null, false and zero are blank). The value is
// trimmed; a whitespace-only value yields "" without probing further.
func ExtractID(r *Row) string {
	for _, field := range IDProbeFields {
		v, ok := r.Get(field)
		if !ok || isBlankValue(v) {
			continue
		}
		return NormalizeID(Stringify(v))
	}
	return ""
}

// Stringify renders a cell value as text. Null renders as "".
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

// isBlankValue reports whether v should be treated as "no identifier".
func isBlankValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case float64:
		return val == 0
	case int:
		return val == 0
	case int64:
		return val == 0
	default:
		return false
	}
}

// isEmptyCell reports whether a cell counts as empty for column reconciliation.
func isEmptyCell(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

func removeKey(keys []string, key string) []string {
	i := indexOf(keys, key)
	if i < 0 {
		return keys
	}
	return append(keys[:i], keys[i+1:]...)
}
