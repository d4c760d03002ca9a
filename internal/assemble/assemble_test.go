package assemble

import (
	"testing"

	"omr-grader/internal/decode"
)

func answer(q, sub, value string) decode.Answer {
	return decode.Answer{Question: q, Subquestion: sub, Value: value}
}

func TestFirstValueWins(t *testing.T) {
	table := NewTable()
	table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "a")}, false)

	if v, ok := table.Value("abc123", "1.i"); !ok || v != "a" {
		t.Errorf("Value = %q/%v, want a/true", v, ok)
	}
}

func TestEmptyAndAmbiguousOccupyNoCell(t *testing.T) {
	table := NewTable()
	table.Merge("abc123", 1, []decode.Answer{
		{Question: "1", Subquestion: "i"},
		{Question: "1", Subquestion: "ii", Ambiguous: true},
	}, false)

	if _, ok := table.Value("abc123", "1.i"); ok {
		t.Error("empty answer must not occupy a cell")
	}
	if _, ok := table.Value("abc123", "1.ii"); ok {
		t.Error("ambiguous answer must not occupy a cell")
	}
}

func TestConflictClearsCellAndReportsBoth(t *testing.T) {
	table := NewTable()
	table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "a")}, false)
	conflicts := table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "b")}, false)

	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	c := conflicts[0]
	if c.Existing != "a" || c.Incoming != "b" || c.StudentID != "abc123" || c.Column != "1.i" {
		t.Errorf("unexpected conflict %+v", c)
	}
	if _, ok := table.Value("abc123", "1.i"); ok {
		t.Error("neither conflicting value may be written")
	}
}

func TestIdenticalDuplicateIsIdempotent(t *testing.T) {
	table := NewTable()
	table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "a")}, false)
	conflicts := table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "a")}, false)

	if len(conflicts) != 0 {
		t.Errorf("identical duplicate produced %d conflicts", len(conflicts))
	}
	if v, _ := table.Value("abc123", "1.i"); v != "a" {
		t.Errorf("Value = %q, want a", v)
	}
}

func TestReplacementOverwritesUnconditionally(t *testing.T) {
	table := NewTable()
	table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "a")}, false)
	conflicts := table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "b")}, true)

	if len(conflicts) != 0 {
		t.Errorf("replacement produced %d conflicts", len(conflicts))
	}
	if v, _ := table.Value("abc123", "1.i"); v != "b" {
		t.Errorf("Value = %q, want replacement value b", v)
	}
}

func TestReplacementRepairsConflictedCell(t *testing.T) {
	table := NewTable()
	table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "a")}, false)
	table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "b")}, false)
	table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "c")}, true)

	if v, ok := table.Value("abc123", "1.i"); !ok || v != "c" {
		t.Errorf("Value = %q/%v, want c/true after replacement", v, ok)
	}
}

func TestThirdNonReplacementClaimStillReported(t *testing.T) {
	table := NewTable()
	table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "a")}, false)
	table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "b")}, false)
	conflicts := table.Merge("abc123", 1, []decode.Answer{answer("1", "i", "c")}, false)

	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	if _, ok := table.Value("abc123", "1.i"); ok {
		t.Error("conflicted cell must stay void")
	}
}

func TestStudentsAndColumns(t *testing.T) {
	table := NewTable()
	table.Merge("zz", 1, []decode.Answer{answer("2", "i", "b")}, false)
	table.Merge("aa", 1, []decode.Answer{answer("1", "i", "a")}, false)

	students := table.Students()
	if len(students) != 2 || students[0] != "aa" || students[1] != "zz" {
		t.Errorf("Students() = %v, want [aa zz]", students)
	}
	if cols := table.Columns(); len(cols) != 2 {
		t.Errorf("Columns() = %v, want 2 entries", cols)
	}
}
