// Package report emits the two run outputs: the consolidated per-student
// answer table and the batch failure report, both as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"omr-grader/internal/assemble"
)

// Reason classifies a per-page failure.
type Reason string

const (
	ReasonAlignmentFailed Reason = "alignment-failed"
	ReasonAmbiguousBubble Reason = "ambiguous-bubble"
	ReasonDuplicate       Reason = "duplicate-non-replacement"
	ReasonMissingLayout   Reason = "missing-layout-entry"
	ReasonUnreadableImage Reason = "unreadable-image"
)

// Failure is one reportable per-page problem. Failures never abort the
// batch; they accumulate here.
type Failure struct {
	StudentID string
	Page      int
	Reason    Reason
	Detail    string
}

// SortFailures orders failures for stable output: by student, page, reason,
// then detail.
func SortFailures(failures []Failure) {
	sort.Slice(failures, func(i, j int) bool {
		a, b := failures[i], failures[j]
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		return a.Detail < b.Detail
	})
}

// WriteAnswers writes the consolidated answer table: one row per student,
// one column per "{question}.{subquestion}" sorted numerically by question
// then by subquestion, empty cells for undecided answers.
func WriteAnswers(w io.Writer, table *assemble.Table) error {
	columns := table.Columns()
	SortColumns(columns)

	cw := csv.NewWriter(w)
	header := append([]string{"student_id"}, columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, id := range table.Students() {
		row := make([]string, 0, len(header))
		row = append(row, id)
		for _, col := range columns {
			v, _ := table.Value(id, col)
			row = append(row, v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFailures writes the batch failure report as
// student_id,page,reason,detail rows.
func WriteFailures(w io.Writer, failures []Failure) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"student_id", "page", "reason", "detail"}); err != nil {
		return err
	}
	for _, f := range failures {
		row := []string{f.StudentID, strconv.Itoa(f.Page), string(f.Reason), f.Detail}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveAnswers writes the answer table to a file.
func SaveAnswers(path string, table *assemble.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create answer table: %w", err)
	}
	defer f.Close()
	return WriteAnswers(f, table)
}

// SaveFailures writes the failure report to a file.
func SaveFailures(path string, failures []Failure) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create failure report: %w", err)
	}
	defer f.Close()
	return WriteFailures(f, failures)
}

// SortColumns orders answer columns by numeric question, then by
// subquestion. Non-numeric question labels sort after numeric ones, by
// string order.
func SortColumns(columns []string) {
	sort.Slice(columns, func(i, j int) bool {
		qi, si := splitColumn(columns[i])
		qj, sj := splitColumn(columns[j])
		ni, errI := strconv.Atoi(qi)
		nj, errJ := strconv.Atoi(qj)
		iOK, jOK := errI == nil, errJ == nil
		switch {
		case iOK && jOK && ni != nj:
			return ni < nj
		case iOK && !jOK:
			return true
		case !iOK && jOK:
			return false
		case !iOK && !jOK && qi != qj:
			return qi < qj
		}
		return si < sj
	})
}

func splitColumn(col string) (question, subquestion string) {
	if i := strings.Index(col, "."); i >= 0 {
		return col[:i], col[i+1:]
	}
	return col, ""
}
