// Package sheet reads spreadsheet exports into core tables.
//
// The first row is the header. Header names are kept verbatim except that
// blank names become "Unnamed: <n>" and repeated names are disambiguated as
// "Name", "Name.1", "Name.2". Cells are typed the way a JSON consumer wants
// them: numbers stay numbers, booleans stay booleans, date-formatted cells
// become "2006-01-02 15:04:05" strings and empty cells become "".
package sheet

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/releaseboard/internal/core"
)

// Format identifies a spreadsheet file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatFromPath picks the format from a file name or object key.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported spreadsheet %q (expected .xlsx or .csv)", path)
	}
}

// Read parses r in the given format. sheet selects the worksheet of an
// xlsx workbook and is ignored for csv.
func Read(r io.Reader, format Format, sheet string) (*core.Table, error) {
	switch format {
	case FormatXLSX:
		return ReadXLSX(r, sheet)
	case FormatCSV:
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// headerNames applies blank-name and duplicate-name rules to a header row.
func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	taken := make(map[string]bool, len(raw))
	for _, h := range raw {
		taken[h] = true
	}

	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		if n, dup := seen[h]; dup {
			for {
				n++
				name = h + "." + strconv.Itoa(n)
				if !taken[name] {
					break
				}
			}
			seen[h] = n
			taken[name] = true
		} else {
			seen[h] = 0
		}
		names[i] = name
	}
	return names
}

// buildTable turns typed cell records into a table. Completely empty
// records are skipped; short records are padded with "".
func buildTable(header []string, records [][]any) *core.Table {
	columns := headerNames(header)
	t := &core.Table{Columns: columns, Rows: make([]*core.Row, 0, len(records))}

	for _, rec := range records {
		if isEmptyRecord(rec) {
			continue
		}
		row := &core.Row{}
		for i, col := range columns {
			var v any = ""
			if i < len(rec) && rec[i] != nil {
				v = rec[i]
			}
			row.Set(col, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func isEmptyRecord(rec []any) bool {
	for _, v := range rec {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if v != nil {
			return false
		}
	}
	return true
}
