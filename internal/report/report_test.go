package report

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"omr-grader/internal/assemble"
	"omr-grader/internal/decode"
)

func TestSortColumnsNumericOrder(t *testing.T) {
	cols := []string{"10.a", "2.b", "2.a", "1.i", "10.b", "1.ii"}
	SortColumns(cols)
	want := []string{"1.i", "1.ii", "2.a", "2.b", "10.a", "10.b"}
	if !reflect.DeepEqual(cols, want) {
		t.Errorf("SortColumns = %v, want %v", cols, want)
	}
}

func TestSortColumnsNonNumericLast(t *testing.T) {
	cols := []string{"bonus.a", "3.a", "1.a"}
	SortColumns(cols)
	want := []string{"1.a", "3.a", "bonus.a"}
	if !reflect.DeepEqual(cols, want) {
		t.Errorf("SortColumns = %v, want %v", cols, want)
	}
}

func TestWriteAnswers(t *testing.T) {
	table := assemble.NewTable()
	table.Merge("s2", 1, []decode.Answer{
		{Question: "1", Subquestion: "a", Value: "b"},
	}, false)
	table.Merge("s1", 1, []decode.Answer{
		{Question: "1", Subquestion: "a", Value: "c"},
		{Question: "10", Subquestion: "a", Value: "3.5"},
	}, false)

	var buf bytes.Buffer
	if err := WriteAnswers(&buf, table); err != nil {
		t.Fatalf("WriteAnswers: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"student_id,1.a,10.a",
		"s1,c,3.5",
		"s2,b,",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("answer table:\n%v\nwant:\n%v", lines, want)
	}
}

func TestWriteAnswersConflictedCellEmpty(t *testing.T) {
	table := assemble.NewTable()
	table.Merge("s1", 1, []decode.Answer{{Question: "1", Subquestion: "a", Value: "b"}}, false)
	table.Merge("s1", 1, []decode.Answer{{Question: "1", Subquestion: "a", Value: "c"}}, false)

	var buf bytes.Buffer
	if err := WriteAnswers(&buf, table); err != nil {
		t.Fatalf("WriteAnswers: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if got := lines[1]; got != "s1," {
		t.Errorf("conflicted cell row = %q, want %q", got, "s1,")
	}
}

func TestWriteFailures(t *testing.T) {
	failures := []Failure{
		{StudentID: "s2", Page: 3, Reason: ReasonAlignmentFailed, Detail: "found 2 of 4 corner markers"},
		{StudentID: "s1", Page: 1, Reason: ReasonAmbiguousBubble, Detail: "1.a"},
		{StudentID: "s1", Page: 1, Reason: ReasonAmbiguousBubble, Detail: "1.b"},
	}
	SortFailures(failures)

	var buf bytes.Buffer
	if err := WriteFailures(&buf, failures); err != nil {
		t.Fatalf("WriteFailures: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"student_id,page,reason,detail",
		"s1,1,ambiguous-bubble,1.a",
		"s1,1,ambiguous-bubble,1.b",
		"s2,3,alignment-failed,found 2 of 4 corner markers",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("failure report:\n%v\nwant:\n%v", lines, want)
	}
}
