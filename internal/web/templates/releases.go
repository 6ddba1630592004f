// Package templates renders the HTML views served by the web package.
//
// Components are written in .templ files; run `templ generate` after
// editing them.
package templates

import "github.com/JonMunkholm/releaseboard/internal/core"

// Columns returns the column order for the table view: the identifier
// column, then the remaining keys of row in their stored order.
func Columns(row *core.Row) []string {
	keys := row.Keys()
	cols := make([]string, 0, len(keys)+1)
	cols = append(cols, core.IDField)
	for _, k := range keys {
		if k != core.IDField {
			cols = append(cols, k)
		}
	}
	return cols
}

// cellText renders one cell; missing cells render empty.
func cellText(row *core.Row, col string) string {
	v, _ := row.Get(col)
	return core.Stringify(v)
}
