package catalog

import (
	"strings"

	"github.com/samber/lo"
)

// UnknownRowCount marks a table whose size the server could not estimate.
const UnknownRowCount int64 = -1

// Table is a table that can be exported.
type Table struct {
	Schema   string
	Name     string
	RowCount int64
	Selected bool
}

func NewTable(schema, name string, rowCount int64) Table {
	return Table{Schema: schema, Name: name, RowCount: rowCount}
}

// String returns schema.table.
func (t Table) String() string {
	return t.Schema + "." + t.Name
}

// Selected returns the selected tables in their original order.
func Selected(tables []Table) []Table {
	return lo.Filter(tables, func(t Table, _ int) bool {
		return t.Selected
	})
}

// Select marks the tables named in names (schema.table, case-insensitive) as
// selected and everything else as not selected. An empty names list selects all.
func Select(tables []Table, names []string) []Table {
	wanted := lo.Associate(names, func(n string) (string, struct{}) {
		return strings.ToLower(n), struct{}{}
	})

	return lo.Map(tables, func(t Table, _ int) Table {
		_, ok := wanted[strings.ToLower(t.String())]
		t.Selected = len(names) == 0 || ok

		return t
	})
}
