package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/releaseboard/internal/core"
)

func render(t *testing.T, rows []*core.Row) string {
	t.Helper()
	var b strings.Builder
	if err := ReleasesPage(rows).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return b.String()
}

func TestReleasesPage_Empty(t *testing.T) {
	html := render(t, nil)
	if !strings.Contains(html, "No data available.") {
		t.Errorf("empty page missing notice:\n%s", html)
	}
	if strings.Contains(html, "<table") {
		t.Error("empty page should not render a table")
	}
}

func TestReleasesPage_IDColumnFirst(t *testing.T) {
	rows := []*core.Row{
		core.NewRow("Application", "Billing", "Version", "1.2", core.IDField, "billing-1.2-abc"),
	}
	html := render(t, rows)

	id := strings.Index(html, "<th>__id</th>")
	app := strings.Index(html, "<th>Application</th>")
	ver := strings.Index(html, "<th>Version</th>")
	if id < 0 || app < 0 || ver < 0 {
		t.Fatalf("missing headers:\n%s", html)
	}
	if !(id < app && app < ver) {
		t.Errorf("header order = __id@%d Application@%d Version@%d", id, app, ver)
	}
	if !strings.Contains(html, "<td>billing-1.2-abc</td>") {
		t.Error("identifier cell missing")
	}
}

func TestReleasesPage_EscapesCells(t *testing.T) {
	rows := []*core.Row{
		core.NewRow(core.IDField, "r1", "Notes", "<script>alert(1)</script>"),
	}
	html := render(t, rows)
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("cell value was not escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Errorf("escaped value missing:\n%s", html)
	}
}

func TestReleasesPage_MissingCellsRenderEmpty(t *testing.T) {
	rows := []*core.Row{
		core.NewRow(core.IDField, "r1", "A", "x", "B", "y"),
		core.NewRow(core.IDField, "r2", "A", "z"),
	}
	html := render(t, rows)
	if !strings.Contains(html, "<tr><td>r2</td><td>z</td><td></td></tr>") {
		t.Errorf("short row not padded:\n%s", html)
	}
}

func TestColumns(t *testing.T) {
	tests := []struct {
		name string
		row  *core.Row
		want []string
	}{
		{"id already first", core.NewRow(core.IDField, "x", "A", 1), []string{"__id", "A"}},
		{"id last", core.NewRow("A", 1, "B", 2, core.IDField, "x"), []string{"__id", "A", "B"}},
		{"no id", core.NewRow("A", 1), []string{"__id", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Columns(tt.row)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Columns() = %v, want %v", got, tt.want)
			}
		})
	}
}
