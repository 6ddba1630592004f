package core

import (
	"reflect"
	"strings"
	"testing"
)

func columnValues(rows []*Row, col string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i], _ = r.Get(col)
	}
	return out
}

func rowIDs(rows []*Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID()
	}
	return out
}

func TestReconcileCategory_InsertsAfterScope(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Scope", "Status"},
		Rows: []*Row{
			NewRow("Scope", "A", "Status", "Open"),
			NewRow("Scope", "B", "Status", "Done"),
		},
	}

	ReconcileCategory(tbl)

	if want := []string{"Scope", "Category", "Status"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns = %v, want %v", tbl.Columns, want)
	}
	if got, want := columnValues(tbl.Rows, "Category"), columnValues(tbl.Rows, "Scope"); !reflect.DeepEqual(got, want) {
		t.Errorf("Category = %v, want %v", got, want)
	}
	if got, want := tbl.Rows[0].Keys(), []string{"Scope", "Category", "Status"}; !reflect.DeepEqual(got, want) {
		t.Errorf("row keys = %v, want %v", got, want)
	}
}

func TestReconcileCategory_FillsEmptyFromScope(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Category", "Scope"},
		Rows: []*Row{
			NewRow("Category", "", "Scope", "A"),
			NewRow("Category", "X", "Scope", "B"),
			NewRow("Category", nil, "Scope", "C"),
			NewRow("Scope", "D"),
		},
	}

	ReconcileCategory(tbl)

	want := []any{"A", "X", "C", "D"}
	if got := columnValues(tbl.Rows, "Category"); !reflect.DeepEqual(got, want) {
		t.Errorf("Category = %v, want %v", got, want)
	}
	if want := []string{"Category", "Scope"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns = %v, want %v", tbl.Columns, want)
	}
}

func TestReconcileCategory_CaseInsensitive(t *testing.T) {
	tbl := &Table{
		Columns: []string{"SCOPE", "category"},
		Rows:    []*Row{NewRow("SCOPE", "A", "category", "")},
	}

	ReconcileCategory(tbl)

	if v, _ := tbl.Rows[0].Get("category"); v != "A" {
		t.Errorf("category = %v, want A", v)
	}
}

func TestReconcileCategory_NoScope(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Status"},
		Rows:    []*Row{NewRow("Status", "Open")},
	}

	ReconcileCategory(tbl)

	if want := []string{"Status"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns = %v, want %v", tbl.Columns, want)
	}
}

func TestAssignIdentifiers_AdoptsIdentifierColumn(t *testing.T) {
	tests := []struct {
		name   string
		column string
	}{
		{name: "ExternalID", column: "ExternalID"},
		{name: "ID", column: "ID"},
		{name: "lowercase id", column: "id"},
		{name: "Jira Key", column: "Jira Key"},
		{name: "Key", column: "Key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := &Table{
				Columns: []string{"Application", tt.column},
				Rows: []*Row{
					NewRow("Application", "A", tt.column, "K-1"),
					NewRow("Application", "B", tt.column, "K-2"),
				},
			}

			AssignIdentifiers(tbl, AssignOptions{})

			if got, want := rowIDs(tbl.Rows), []string{"K-1", "K-2"}; !reflect.DeepEqual(got, want) {
				t.Errorf("ids = %v, want %v", got, want)
			}
			if last := tbl.Columns[len(tbl.Columns)-1]; last != IDField {
				t.Errorf("last column = %q, want %q", last, IDField)
			}
		})
	}
}

func TestAssignIdentifiers_PriorityOrder(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Key", "ExternalID"},
		Rows:    []*Row{NewRow("Key", "from-key", "ExternalID", "from-ext")},
	}

	AssignIdentifiers(tbl, AssignOptions{})

	if got := tbl.Rows[0].ID(); got != "from-ext" {
		t.Errorf("id = %q, want from-ext", got)
	}
}

func TestAssignIdentifiers_CompositeIsDeterministic(t *testing.T) {
	build := func() *Table {
		return &Table{
			Columns: []string{"Application", "Version", "Category"},
			Rows: []*Row{
				NewRow("Application", "App", "Version", "1.0", "Category", "Core"),
				NewRow("Application", "App", "Version", "2.0", "Category", "Core"),
				NewRow("Application", "", "Version", "", "Category", ""),
			},
		}
	}

	a, b := build(), build()
	AssignIdentifiers(a, AssignOptions{})
	AssignIdentifiers(b, AssignOptions{})

	if !reflect.DeepEqual(rowIDs(a.Rows), rowIDs(b.Rows)) {
		t.Errorf("ids differ between runs: %v vs %v", rowIDs(a.Rows), rowIDs(b.Rows))
	}

	want := []string{
		"App-1.0-" + SHA1Fingerprint("App|1.0|Core"),
		"App-2.0-" + SHA1Fingerprint("App|2.0|Core"),
		"x-na-" + SHA1Fingerprint("||"),
	}
	if got := rowIDs(a.Rows); !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestAssignIdentifiers_CompositeUsesScopeWithoutCategory(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Application", "Version", "Scope"},
		Rows:    []*Row{NewRow("Application", "A", "Version", "1", "Scope", "S")},
	}

	AssignIdentifiers(tbl, AssignOptions{})

	if got, want := tbl.Rows[0].ID(), "A-1-"+SHA1Fingerprint("A|1|S"); got != want {
		t.Errorf("id = %q, want %q", got, want)
	}
}

func TestAssignIdentifiers_DuplicateComposite(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Application", "Version"},
		Rows: []*Row{
			NewRow("Application", "A", "Version", "1"),
			NewRow("Application", "A", "Version", "1"),
		},
	}

	AssignIdentifiers(tbl, AssignOptions{})

	base := CompositeID("A", "1", "", SHA1Fingerprint)
	want := []string{base, base + "-1"}
	if got := rowIDs(tbl.Rows); !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestAssignIdentifiers_SuffixFirst(t *testing.T) {
	tbl := &Table{
		Columns: []string{"ID"},
		Rows: []*Row{
			NewRow("ID", "D"),
			NewRow("ID", "D"),
			NewRow("ID", "D"),
		},
	}

	AssignIdentifiers(tbl, AssignOptions{SuffixFirst: true})

	if got, want := rowIDs(tbl.Rows), []string{"D-0", "D-1", "D-2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestAssignIdentifiers_SuffixAvoidsExistingIDs(t *testing.T) {
	tbl := &Table{
		Columns: []string{"ID"},
		Rows: []*Row{
			NewRow("ID", "D"),
			NewRow("ID", "D-1"),
			NewRow("ID", "D"),
		},
	}

	AssignIdentifiers(tbl, AssignOptions{})

	if got, want := rowIDs(tbl.Rows), []string{"D", "D-1", "D-2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestAssignIdentifiers_UniqueAfterDedup(t *testing.T) {
	rows := make([]*Row, 0, 30)
	for i := 0; i < 30; i++ {
		rows = append(rows, NewRow("Application", "A", "Version", string(rune('1'+i%3))))
	}
	tbl := &Table{Columns: []string{"Application", "Version"}, Rows: rows}

	AssignIdentifiers(tbl, AssignOptions{})

	seen := make(map[string]bool)
	for _, id := range rowIDs(tbl.Rows) {
		if seen[id] {
			t.Fatalf("duplicate id %q after dedup", id)
		}
		seen[id] = true
	}
}

func TestAssignIdentifiers_FirstOccurrenceResolvesFromSuffix(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Application", "Version"},
		Rows: []*Row{
			NewRow("Application", "A", "Version", "1", "n", 0),
			NewRow("Application", "A", "Version", "1", "n", 1),
		},
	}
	AssignIdentifiers(tbl, AssignOptions{})

	s := NewStore()
	if _, err := s.Replace(tbl.Rows); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	base := CompositeID("A", "1", "", SHA1Fingerprint)
	row, err := s.Get(base + "-0")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v, _ := row.Get("n"); v != 0 {
		t.Errorf("resolved row n = %v, want 0", v)
	}
}

func TestAssignIdentifiers_KeepsExistingIDColumnPosition(t *testing.T) {
	tbl := &Table{
		Columns: []string{IDField, "Application"},
		Rows:    []*Row{NewRow(IDField, "a", "Application", "A")},
	}

	AssignIdentifiers(tbl, AssignOptions{})

	if want := []string{IDField, "Application"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns = %v, want %v", tbl.Columns, want)
	}
}

func TestPrepareTable(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Application", "Version", "Scope"},
		Rows:    []*Row{NewRow("Application", "A", "Version", "1", "Scope", "S")},
	}

	PrepareTable(tbl, AssignOptions{})

	if want := []string{"Application", "Version", "Scope", "Category", IDField}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns = %v, want %v", tbl.Columns, want)
	}
	if got, want := tbl.Rows[0].ID(), CompositeID("A", "1", "S", SHA1Fingerprint); got != want {
		t.Errorf("id = %q, want %q", got, want)
	}
}

func TestCompositeID_TrimsParts(t *testing.T) {
	a := CompositeID(" A ", "1 ", " Core", SHA1Fingerprint)
	b := CompositeID("A", "1", "Core", SHA1Fingerprint)
	if a != b {
		t.Errorf("CompositeID not trimmed: %q vs %q", a, b)
	}
}

func TestFingerprints(t *testing.T) {
	for _, name := range []string{"", "sha1", "SHA1", "blake3"} {
		fp, err := FingerprintByName(name)
		if err != nil {
			t.Fatalf("FingerprintByName(%q): %v", name, err)
		}
		got := fp("A|1|Core")
		if len(got) != FingerprintLength {
			t.Errorf("%q fingerprint length = %d, want %d", name, len(got), FingerprintLength)
		}
		if strings.Trim(got, "0123456789abcdef") != "" {
			t.Errorf("%q fingerprint %q is not lowercase hex", name, got)
		}
	}

	if SHA1Fingerprint("x") == BLAKE3Fingerprint("x") {
		t.Error("sha1 and blake3 fingerprints should differ")
	}
	if _, err := FingerprintByName("md5"); err == nil {
		t.Error("FingerprintByName(md5) succeeded, want error")
	}
}
