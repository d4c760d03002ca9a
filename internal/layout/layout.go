// Package layout loads and validates the bubble position table.
//
// The table is authored alongside the printed answer sheet and gives, for
// every bubble on every page, its identity (page, question, subquestion,
// choice) and its center position in design points with the origin at the
// bottom-left of the page. It is loaded once per run and read-only after.
//
// Single-choice bubbles carry a plain question number ("3") and a letter or
// "Other" choice. Multi-digit answer blocks encode each bubble's slot in the
// question column as "question-slot-digit" (for example "3-1-7" is the digit
// 7 bubble of slot 1 of question 3); the choice column of those rows names
// the single-choice label the block is attached to, normally "Other".
package layout

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"omr-grader/pkg/geometry"
)

// Choice labels with special meaning inside digit slots.
const (
	ChoiceDecimal = "D" // decodes to a literal "."
	ChoiceSlash   = "S" // decodes to a literal "/"
	ChoiceOther   = "Other"
)

// Bubble is one printed bubble definition. Immutable after load.
type Bubble struct {
	Page        int
	Question    string // base question number, e.g. "3"
	Subquestion string // e.g. "i"
	Choice      string // letter or "Other" for single-choice; digit, "D" or "S" for slots
	Slot        int    // digit slot index within the question; -1 for single-choice
	// Linked is the single-choice label a digit block is attached to
	// (empty for single-choice bubbles).
	Linked string
	Pos    geometry.Point2D // design points, origin bottom-left
}

// Numeric reports whether the bubble belongs to a digit slot.
func (b Bubble) Numeric() bool { return b.Slot >= 0 }

// Literal reports whether the bubble is a printed decimal point or fraction
// bar rather than a fillable target.
func (b Bubble) Literal() bool {
	return b.Numeric() && (b.Choice == ChoiceDecimal || b.Choice == ChoiceSlash)
}

// ColumnKey returns the output column this bubble contributes to,
// "{question}.{subquestion}".
func (b Bubble) ColumnKey() string {
	return b.Question + "." + b.Subquestion
}

// GroupKey identifies one mutually-exclusive decision group: the choice set
// of a subquestion (Slot == -1) or a single digit slot.
type GroupKey struct {
	Page        int
	Question    string
	Subquestion string
	Slot        int
}

// Group returns the decision group this bubble belongs to.
func (b Bubble) Group() GroupKey {
	return GroupKey{Page: b.Page, Question: b.Question, Subquestion: b.Subquestion, Slot: b.Slot}
}

// Table is the validated, immutable bubble table for a run.
type Table struct {
	bubbles []Bubble
	byPage  map[int][]Bubble
	// linked[question.subquestion] is the set of single-choice labels that
	// have a digit block attached (the catch-all "Other" choices).
	linked map[string]map[string]bool
}

// Load reads and validates a bubble table CSV from disk.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bubble table: %w", err)
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("bubble table %s: %w", path, err)
	}
	return t, nil
}

// Parse reads a bubble table CSV with the header
// page,question,subquestion,choice,Xpos,Ypos.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	t := &Table{
		byPage: make(map[int][]Bubble),
		linked: make(map[string]map[string]bool),
	}
	seen := make(map[string]int)

	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++

		b, err := parseRow(record, col)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		id := fmt.Sprintf("%d/%s/%s/%d/%s", b.Page, b.Question, b.Subquestion, b.Slot, b.Choice)
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("row %d: duplicate bubble definition (first at row %d)", line, prev)
		}
		seen[id] = line

		t.bubbles = append(t.bubbles, b)
		t.byPage[b.Page] = append(t.byPage[b.Page], b)
		if b.Numeric() && b.Linked != "" {
			key := b.ColumnKey()
			if t.linked[key] == nil {
				t.linked[key] = make(map[string]bool)
			}
			t.linked[key][b.Linked] = true
		}
	}

	if len(t.bubbles) == 0 {
		return nil, fmt.Errorf("table contains no bubbles")
	}
	return t, nil
}

// Page returns all bubbles defined for a page number, or nil.
func (t *Table) Page(n int) []Bubble {
	return t.byPage[n]
}

// HasPage reports whether any bubbles are defined for the page.
func (t *Table) HasPage(n int) bool {
	return len(t.byPage[n]) > 0
}

// Pages returns the sorted page numbers present in the table.
func (t *Table) Pages() []int {
	pages := make([]int, 0, len(t.byPage))
	for p := range t.byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Len returns the number of bubbles in the table.
func (t *Table) Len() int { return len(t.bubbles) }

// NumericLinked reports whether the given single-choice label of
// question.subquestion has a digit block attached to it.
func (t *Table) NumericLinked(columnKey, choice string) bool {
	return t.linked[columnKey][choice]
}

// GroupByDecision partitions bubbles into their mutually-exclusive decision
// groups, preserving definition order within each group.
func GroupByDecision(bubbles []Bubble) map[GroupKey][]Bubble {
	groups := make(map[GroupKey][]Bubble)
	for _, b := range bubbles {
		k := b.Group()
		groups[k] = append(groups[k], b)
	}
	return groups
}

func headerIndex(header []string) (map[string]int, error) {
	want := []string{"page", "question", "subquestion", "choice", "Xpos", "Ypos"}
	col := make(map[string]int, len(want))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range want {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return col, nil
}

func parseRow(record []string, col map[string]int) (Bubble, error) {
	field := func(name string) string {
		i := col[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	page, err := strconv.Atoi(field("page"))
	if err != nil || page < 1 {
		return Bubble{}, fmt.Errorf("invalid page %q", field("page"))
	}
	x, err := strconv.ParseFloat(field("Xpos"), 64)
	if err != nil || x < 0 {
		return Bubble{}, fmt.Errorf("invalid Xpos %q", field("Xpos"))
	}
	y, err := strconv.ParseFloat(field("Ypos"), 64)
	if err != nil || y < 0 {
		return Bubble{}, fmt.Errorf("invalid Ypos %q", field("Ypos"))
	}

	question := field("question")
	sub := field("subquestion")
	choice := field("choice")
	if question == "" || sub == "" || choice == "" {
		return Bubble{}, fmt.Errorf("question, subquestion and choice must be set")
	}

	b := Bubble{
		Page:        page,
		Question:    question,
		Subquestion: sub,
		Choice:      choice,
		Slot:        -1,
		Pos:         geometry.Point2D{X: x, Y: y},
	}

	// Digit slots arrive encoded in the question column as q-slot-digit.
	if parts := strings.Split(question, "-"); len(parts) == 3 {
		slot, err := strconv.Atoi(parts[1])
		if err != nil || slot < 0 {
			return Bubble{}, fmt.Errorf("invalid slot index in question %q", question)
		}
		digit := parts[2]
		if !validSlotChoice(digit) {
			return Bubble{}, fmt.Errorf("invalid slot choice %q in question %q", digit, question)
		}
		b.Question = parts[0]
		b.Slot = slot
		b.Linked = choice
		b.Choice = digit
	}

	return b, nil
}

func validSlotChoice(s string) bool {
	if s == ChoiceDecimal || s == ChoiceSlash {
		return true
	}
	if len(s) != 1 {
		return false
	}
	return s[0] >= '0' && s[0] <= '9'
}
