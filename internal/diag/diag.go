package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/elilang/eli/internal/source"
)

// Severity is the level of a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Category classifies a diagnostic by the pipeline stage that produced it.
// The driver maps categories to distinct process exit codes.
type Category int

const (
	Lex Category = iota
	Syntax
	Resolve
	Type
	Runtime
)

func (c Category) String() string {
	switch c {
	case Lex:
		return "lex"
	case Syntax:
		return "syntax"
	case Resolve:
		return "resolve"
	case Type:
		return "type"
	case Runtime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Diagnostic is a structured, non-fatal report of a problem found during
// compilation. Diagnostics are collected, never thrown as control flow.
type Diagnostic struct {
	Severity Severity
	Category Category
	Pos      source.Pos
	Msg      string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Msg)
}

// Bag accumulates diagnostics for one compilation unit.
type Bag struct {
	list []Diagnostic
}

func (b *Bag) Add(d Diagnostic) { b.list = append(b.list, d) }

func (b *Bag) Errorf(cat Category, pos source.Pos, format string, args ...interface{}) {
	b.Add(Diagnostic{Severity: Error, Category: cat, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (b *Bag) Warnf(cat Category, pos source.Pos, format string, args ...interface{}) {
	b.Add(Diagnostic{Severity: Warning, Category: cat, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any error-severity diagnostic was added.
func (b *Bag) HasErrors() bool {
	for _, d := range b.list {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int { return len(b.list) }

// Diagnostics returns the accumulated diagnostics sorted by position.
func (b *Bag) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(b.list))
	copy(out, b.list)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos.Before(out[j].Pos) })
	return out
}

// Warnings returns only the warning-severity diagnostics, sorted by position.
func (b *Bag) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range b.Diagnostics() {
		if d.Severity == Warning {
			out = append(out, d)
		}
	}
	return out
}

// Fprint writes one line per diagnostic to w.
func Fprint(w io.Writer, ds []Diagnostic) {
	for _, d := range ds {
		fmt.Fprintln(w, d)
	}
}

// Sprint renders diagnostics as a newline-separated string.
func Sprint(ds []Diagnostic) string {
	var sb strings.Builder
	for i, d := range ds {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.String())
	}
	return sb.String()
}

// WorstCategory returns the category of the first error-severity diagnostic,
// preferring the earliest pipeline stage. The driver uses this to pick an
// exit code when a unit fails.
func WorstCategory(ds []Diagnostic) (Category, bool) {
	best := Category(-1)
	for _, d := range ds {
		if d.Severity != Error {
			continue
		}
		if best < 0 || d.Category < best {
			best = d.Category
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}
