package models

import (
	"fmt"
	"strings"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// SchemaDescription is the dataset layout handed to the SQL generator and
// used to check generated statements.
type SchemaDescription struct {
	Tables []Table `json:"tables"`
}

// Render prints one line per table, "Table t: col (TYPE), ...".
func (s SchemaDescription) Render() string {
	var b strings.Builder
	for _, t := range s.Tables {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, fmt.Sprintf("%s (%s)", c.Name, c.Type))
		}
		fmt.Fprintf(&b, "Table %s: %s\n", t.Name, strings.Join(cols, ", "))
	}
	return b.String()
}

// LookupTable finds a table by case-insensitive name.
func (s SchemaDescription) LookupTable(name string) (Table, bool) {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Table{}, false
}

// HasColumn reports whether any table has the column.
func (s SchemaDescription) HasColumn(name string) bool {
	for _, t := range s.Tables {
		if t.HasColumn(name) {
			return true
		}
	}
	return false
}

func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
