package multitask

import (
	"fmt"
	"io"
	"strings"
)

// Base fields every logbook carries; extended numeric fields are declared
// lazily before the first append.
const (
	fieldGen  = "gen"
	fieldEval = "eval"
)

const (
	evalColumnWidth  = 8
	statsColumnWidth = 13
	missingValue     = "-"
)

// Logbook is the append-only structured log of one task: an ordered field
// set with one value series per field, sampled every LogTras generations.
// The gen and eval series are always present; named numeric series are
// declared once, before the first append. All series have equal length
// except transiently mid-append.
type Logbook struct {
	fields []string
	gens   []int
	evals  []int
	series map[string][]float64
}

// NewLogbook creates an empty logbook carrying only the base gen and eval
// fields.
func NewLogbook() *Logbook {
	return &Logbook{
		fields: []string{fieldGen, fieldEval},
		series: make(map[string][]float64),
	}
}

// DeclareFields registers extended numeric fields, preserving order.
// Declaring an already-known field is a no-op.
func (l *Logbook) DeclareFields(names ...string) {
	for _, name := range names {
		if _, ok := l.series[name]; ok || name == fieldGen || name == fieldEval {
			continue
		}
		l.fields = append(l.fields, name)
		l.series[name] = nil
	}
}

// Append records one entry. Every declared extended field must be present
// in values; unknown keys are rejected. After a successful append all
// series have equal length again.
func (l *Logbook) Append(gen, eval int, values map[string]float64) error {
	for name := range values {
		if _, ok := l.series[name]; !ok {
			return fmt.Errorf("logbook: append of undeclared field %q", name)
		}
	}
	for name := range l.series {
		if _, ok := values[name]; !ok {
			return fmt.Errorf("logbook: append missing declared field %q", name)
		}
	}
	l.gens = append(l.gens, gen)
	l.evals = append(l.evals, eval)
	for name, v := range values {
		l.series[name] = append(l.series[name], v)
	}
	return nil
}

// Len returns the number of entries.
func (l *Logbook) Len() int {
	return len(l.gens)
}

// LastGen returns the generation of the most recent entry, and false when
// the logbook is empty.
func (l *Logbook) LastGen() (int, bool) {
	if len(l.gens) == 0 {
		return 0, false
	}
	return l.gens[len(l.gens)-1], true
}

// Fields returns the ordered field names.
func (l *Logbook) Fields() []string {
	return append([]string(nil), l.fields...)
}

// Series returns a copy of the named extended series.
func (l *Logbook) Series(name string) []float64 {
	return append([]float64(nil), l.series[name]...)
}

// Gens returns a copy of the generation series.
func (l *Logbook) Gens() []int {
	return append([]int(nil), l.gens...)
}

// Evals returns a copy of the evaluation-count series.
func (l *Logbook) Evals() []int {
	return append([]int(nil), l.evals...)
}

// RenderLast writes the most recent entry as one fixed-width table row.
// The header block is emitted only when the logbook holds exactly one
// entry, so it appears once, above the first row. An empty logbook renders
// nothing. genWidth sizes the gen column so the largest possible
// generation number fits.
func (l *Logbook) RenderLast(w io.Writer, genWidth int) {
	if genWidth < len(fieldGen) {
		genWidth = len(fieldGen)
	}

	headers := make([]string, 0, len(l.fields))
	values := make([]string, 0, len(l.fields))
	for _, name := range l.fields {
		width := statsColumnWidth
		switch name {
		case fieldGen:
			width = genWidth
		case fieldEval:
			width = evalColumnWidth
		}
		headers = append(headers, center(name, width))
		values = append(values, center(l.lastValue(name), width))
	}

	if l.Len() == 1 {
		header := strings.Join(headers, "|")
		fmt.Fprintln(w, strings.Repeat("=", len(header)))
		fmt.Fprintln(w, header)
		fmt.Fprintln(w, strings.Repeat("-", len(header)))
	}
	if l.Len() != 0 {
		fmt.Fprintln(w, strings.Join(values, "|"))
	}
}

// lastValue formats the latest value of a field, or a dash when the field
// has no entries yet.
func (l *Logbook) lastValue(name string) string {
	switch name {
	case fieldGen:
		if len(l.gens) == 0 {
			return missingValue
		}
		return fmt.Sprintf("%d", l.gens[len(l.gens)-1])
	case fieldEval:
		if len(l.evals) == 0 {
			return missingValue
		}
		return fmt.Sprintf("%d", l.evals[len(l.evals)-1])
	default:
		s := l.series[name]
		if len(s) == 0 {
			return missingValue
		}
		return fmt.Sprintf("%.5E", s[len(s)-1])
	}
}

// center pads s with spaces on both sides to the given width, left-biased
// when the padding is odd.
func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
