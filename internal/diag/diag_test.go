package diag

import (
	"testing"

	"github.com/elilang/eli/internal/source"
)

func at(line, col int) source.Pos { return source.Pos{Line: line, Col: col} }

func TestFormat(t *testing.T) {
	d := Diagnostic{Severity: Error, Category: Type, Pos: at(3, 14), Msg: "mismatched types"}
	if got := d.String(); got != "3:14: error: mismatched types" {
		t.Fatalf("got %q", got)
	}
	w := Diagnostic{Severity: Warning, Category: Lex, Pos: at(1, 1), Msg: "odd spacing"}
	if got := w.String(); got != "1:1: warning: odd spacing" {
		t.Fatalf("got %q", got)
	}
}

func TestBagSortsByPosition(t *testing.T) {
	var b Bag
	b.Errorf(Type, at(2, 5), "second")
	b.Errorf(Syntax, at(1, 3), "first")
	b.Warnf(Type, at(3, 1), "third")
	ds := b.Diagnostics()
	if ds[0].Msg != "first" || ds[1].Msg != "second" || ds[2].Msg != "third" {
		t.Fatalf("order: %s", Sprint(ds))
	}
	if !b.HasErrors() || b.Len() != 3 {
		t.Fatalf("HasErrors=%v Len=%d", b.HasErrors(), b.Len())
	}
	if ws := b.Warnings(); len(ws) != 1 || ws[0].Msg != "third" {
		t.Fatalf("warnings: %v", ws)
	}
}

func TestWorstCategoryPrefersEarlierStage(t *testing.T) {
	var b Bag
	b.Errorf(Type, at(1, 1), "type problem")
	b.Errorf(Syntax, at(9, 9), "syntax problem")
	b.Warnf(Lex, at(1, 1), "only a warning")
	cat, ok := WorstCategory(b.Diagnostics())
	if !ok || cat != Syntax {
		t.Fatalf("got %v %v", cat, ok)
	}
	if _, ok := WorstCategory(nil); ok {
		t.Fatal("empty set reported a category")
	}
	var warnOnly Bag
	warnOnly.Warnf(Type, at(1, 1), "w")
	if _, ok := WorstCategory(warnOnly.Diagnostics()); ok {
		t.Fatal("warnings alone reported a category")
	}
}
