// Package assemble folds per-page decoded answers into the per-student
// answer table.
//
// The table is the only structure shared across pages, and it is filled in
// a single-writer merge phase after the parallel per-page decode, in a
// fixed page order. The merge policy is explicit: a replacement page
// overwrites unconditionally; a non-replacement duplicate with a different
// value is a conflict — the cell is cleared and both values are reported
// rather than either silently winning.
package assemble

import (
	"sort"

	"omr-grader/internal/decode"
)

// Conflict records two non-replacement pages claiming the same cell with
// different values.
type Conflict struct {
	StudentID string
	Column    string
	Existing  string
	Incoming  string
	Page      int
}

// cell is one answer-table entry.
type cell struct {
	value      string
	page       int
	conflicted bool
}

// Table is the wide per-student answer table, keyed by student and
// "{question}.{subquestion}" column.
type Table struct {
	cells   map[string]map[string]*cell
	columns map[string]bool
}

// NewTable creates an empty answer table.
func NewTable() *Table {
	return &Table{
		cells:   make(map[string]map[string]*cell),
		columns: make(map[string]bool),
	}
}

// Merge folds one page's answers into the table and returns any conflicts
// it produced. Empty and ambiguous answers occupy no cell. Replacement
// pages overwrite existing values (and clear a prior conflict for the
// cell); equal duplicate values are idempotent.
func (t *Table) Merge(studentID string, page int, answers []decode.Answer, replacement bool) []Conflict {
	var conflicts []Conflict
	for _, a := range answers {
		if a.Value == "" {
			continue
		}
		column := a.ColumnKey()
		t.columns[column] = true

		row := t.cells[studentID]
		if row == nil {
			row = make(map[string]*cell)
			t.cells[studentID] = row
		}

		existing := row[column]
		switch {
		case existing == nil:
			row[column] = &cell{value: a.Value, page: page}
		case replacement:
			row[column] = &cell{value: a.Value, page: page}
		case existing.conflicted:
			// Cell already voided by an earlier conflict; report the extra
			// claim but keep the cell void.
			conflicts = append(conflicts, Conflict{
				StudentID: studentID,
				Column:    column,
				Existing:  existing.value,
				Incoming:  a.Value,
				Page:      page,
			})
		case existing.value == a.Value:
			// Identical duplicate, nothing to resolve.
		default:
			conflicts = append(conflicts, Conflict{
				StudentID: studentID,
				Column:    column,
				Existing:  existing.value,
				Incoming:  a.Value,
				Page:      page,
			})
			existing.conflicted = true
			existing.value = ""
		}
	}
	return conflicts
}

// Value returns the stored value for a cell, if any. Conflicted cells
// report no value.
func (t *Table) Value(studentID, column string) (string, bool) {
	c := t.cells[studentID][column]
	if c == nil || c.conflicted {
		return "", false
	}
	return c.value, true
}

// Students returns the sorted student IDs present in the table.
func (t *Table) Students() []string {
	ids := make([]string, 0, len(t.cells))
	for id := range t.cells {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Columns returns every column any page contributed to, unsorted.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(t.columns))
	for c := range t.columns {
		cols = append(cols, c)
	}
	return cols
}
