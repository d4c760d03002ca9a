// Package decode turns per-bubble intensity readings into semantic answers.
//
// Each mutually-exclusive decision group (a subquestion's choice set, or a
// single digit slot) gets its own adaptive cutoff. Single-choice groups
// decode to exactly one label, to nothing, or to an ambiguous flag when
// more than one bubble passed the cutoff. Digit slots concatenate in
// positional order into a numeric string, with printed decimal points and
// fraction bars contributing their literal characters once at least one
// real digit is present. A non-empty numeric answer supersedes the
// catch-all choice its digit block is attached to.
package decode

import (
	"sort"
	"strings"

	"omr-grader/internal/layout"
	"omr-grader/internal/sample"
	"omr-grader/internal/threshold"
)

// Answer is the decoded value of one (question, subquestion) on one page.
// Value is empty when no bubble passed the cutoff; Ambiguous is set when a
// single-choice decision had more than one filled bubble (Value is then
// empty as well — the decoder never guesses).
type Answer struct {
	Question    string
	Subquestion string
	Value       string
	Ambiguous   bool
}

// ColumnKey returns the answer-table column, "{question}.{subquestion}".
func (a Answer) ColumnKey() string {
	return a.Question + "." + a.Subquestion
}

// Mark records the fill decision for one sampled bubble, for overlay
// rendering and audit.
type Mark struct {
	Reading sample.Reading
	Filled  bool
	Cutoff  float64
}

// Params are the thresholding knobs used during decoding.
type Params struct {
	MinJump float64
	Clamp   float64
}

// Page decodes one aligned page's readings. Answers come back sorted by
// column key; marks preserve the reading order.
func Page(readings []sample.Reading, table *layout.Table, p Params) ([]Answer, []Mark) {
	marks := decideFills(readings, p)

	// Partition decisions by subquestion column.
	type column struct {
		question, subquestion string
		choices               []string         // filled single-choice labels
		slots                 map[int][]string // slot -> filled digit labels
		literals              map[int]string   // slot -> literal character
		ambiguous             bool
	}
	columns := make(map[string]*column)
	colFor := func(b layout.Bubble) *column {
		key := b.ColumnKey()
		c := columns[key]
		if c == nil {
			c = &column{
				question:    b.Question,
				subquestion: b.Subquestion,
				slots:       make(map[int][]string),
				literals:    make(map[int]string),
			}
			columns[key] = c
		}
		return c
	}

	for _, m := range marks {
		b := m.Reading.Bubble
		c := colFor(b)
		switch {
		case b.Literal():
			c.literals[b.Slot] = literalChar(b.Choice)
		case b.Numeric():
			if m.Filled {
				c.slots[b.Slot] = append(c.slots[b.Slot], b.Choice)
			}
		default:
			if m.Filled {
				c.choices = append(c.choices, b.Choice)
			}
		}
	}

	answers := make([]Answer, 0, len(columns))
	for key, c := range columns {
		answers = append(answers, decodeColumn(key, c.question, c.subquestion, c.choices, c.slots, c.literals, table))
	}
	sort.Slice(answers, func(i, j int) bool {
		return answers[i].ColumnKey() < answers[j].ColumnKey()
	})
	return answers, marks
}

// decideFills estimates one cutoff per decision group and classifies every
// fillable bubble against its group's cutoff.
func decideFills(readings []sample.Reading, p Params) []Mark {
	intensities := make(map[layout.GroupKey][]float64)
	for _, r := range readings {
		if r.Bubble.Literal() {
			continue
		}
		k := r.Bubble.Group()
		intensities[k] = append(intensities[k], r.Intensity)
	}
	cutoffs := make(map[layout.GroupKey]float64, len(intensities))
	for k, vals := range intensities {
		cutoffs[k] = threshold.Estimate(vals, p.MinJump, p.Clamp)
	}

	marks := make([]Mark, 0, len(readings))
	for _, r := range readings {
		m := Mark{Reading: r}
		if !r.Bubble.Literal() {
			m.Cutoff = cutoffs[r.Bubble.Group()]
			m.Filled = threshold.Filled(r.Intensity, m.Cutoff)
		}
		marks = append(marks, m)
	}
	return marks
}

func decodeColumn(key, question, subquestion string, choices []string, slots map[int][]string, literals map[int]string, table *layout.Table) Answer {
	answer := Answer{Question: question, Subquestion: subquestion}

	// Any slot with more than one filled digit makes the whole subquestion
	// ambiguous; a digit decision is single-choice like any other.
	for _, digits := range slots {
		if len(digits) > 1 {
			answer.Ambiguous = true
			return answer
		}
	}

	numeric := assembleNumeric(slots, literals)

	// A successfully assembled numeric answer supersedes the catch-all
	// choice its digit block hangs off.
	if numeric != "" {
		kept := choices[:0]
		for _, choice := range choices {
			if !table.NumericLinked(key, choice) {
				kept = append(kept, choice)
			}
		}
		choices = kept
	}

	if len(choices) > 1 {
		answer.Ambiguous = true
		return answer
	}

	switch {
	case numeric != "" && len(choices) == 1:
		answer.Value = numeric + "," + choices[0]
	case numeric != "":
		answer.Value = numeric
	case len(choices) == 1:
		answer.Value = choices[0]
	}
	return answer
}

// assembleNumeric concatenates decoded digit slots in positional order.
// Literal slots contribute their character only when at least one real
// digit was filled; a row of bare separators is no answer.
func assembleNumeric(slots map[int][]string, literals map[int]string) string {
	if len(slots) == 0 && len(literals) == 0 {
		return ""
	}

	positions := make([]int, 0, len(slots)+len(literals))
	for pos := range slots {
		positions = append(positions, pos)
	}
	for pos := range literals {
		if _, dup := slots[pos]; !dup {
			positions = append(positions, pos)
		}
	}
	sort.Ints(positions)

	var sb strings.Builder
	hasDigit := false
	for _, pos := range positions {
		if lit, ok := literals[pos]; ok {
			sb.WriteString(lit)
			continue
		}
		if digits := slots[pos]; len(digits) == 1 {
			sb.WriteString(digits[0])
			hasDigit = true
		}
	}
	if !hasDigit {
		return ""
	}
	return sb.String()
}

func literalChar(choice string) string {
	switch choice {
	case layout.ChoiceDecimal:
		return "."
	case layout.ChoiceSlash:
		return "/"
	}
	return ""
}
