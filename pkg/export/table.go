package export

import "fmt"

// Column binds a row field to the heading rendered for it.
type Column struct {
	Field string
	Title string
}

// Table is an ordered column layout plus the rows to render. Rows are keyed
// by Column.Field; a missing field renders as an empty cell.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

func (t Table) validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table needs at least one column")
	}
	return nil
}

func (t Table) headings() []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.Title
	}
	return out
}

func (t Table) record(row map[string]string) []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = row[col.Field]
	}
	return out
}
