package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/elilang/eli/internal/session"
)

func TestNeedsMore(t *testing.T) {
	incomplete := []string{
		"fn f() {",
		"fn f() { let x = 1;",
		"(1 + 2",
		"if x {",
		"1 +",
		"let x =",
		"a &&",
		"fn f(x: Int,",
		`"unterminated`,
		`let s = "a\n`,
	}
	for _, src := range incomplete {
		if !needsMore(src) {
			t.Errorf("%q reported complete", src)
		}
	}
	complete := []string{
		"",
		"1",
		"fn f() { }",
		"fn f() { let x = 1; x }",
		"(1 + 2)",
		`"done"`,
		"let x = 1",
		"1 + 2",
		"value",  // lex error, but complete: let the parser report it
		"1.2.3",  // same
		"}",      // stray closer is not a continuation
	}
	for _, src := range complete {
		if needsMore(src) {
			t.Errorf("%q reported incomplete", src)
		}
	}
}

func newTest(t *testing.T) (*REPL, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return New(session.Options{}, &buf), &buf
}

func TestSubmitPrintsValue(t *testing.T) {
	r, buf := newTest(t)
	r.submit("1 + 41\n")
	if got := buf.String(); got != "42\n" {
		t.Fatalf("output %q", got)
	}
}

func TestSubmitSuppressesUnit(t *testing.T) {
	r, buf := newTest(t)
	r.submit("let x = 1\n")
	if got := buf.String(); got != "" {
		t.Fatalf("output %q, want none", got)
	}
}

func TestSubmitPrintsDiagnostics(t *testing.T) {
	r, buf := newTest(t)
	r.submit("missing + 1\n")
	if got := buf.String(); !strings.Contains(got, "error: undefined: missing") {
		t.Fatalf("output %q", got)
	}
}

func TestSubmitPrintsRuntimeError(t *testing.T) {
	r, buf := newTest(t)
	r.submit("let zero = 0\n")
	r.submit("1 / zero\n")
	if got := buf.String(); !strings.Contains(got, "runtime error: division by zero") {
		t.Fatalf("output %q", got)
	}
}

func TestStatePersistsAcrossSubmissions(t *testing.T) {
	r, buf := newTest(t)
	r.submit("fn doubLe(x: Int) -> Int { x * 2 }\n")
	r.submit("doubLe(21)\n")
	if got := buf.String(); got != "42\n" {
		t.Fatalf("output %q", got)
	}
}

func TestMetaQuit(t *testing.T) {
	r, _ := newTest(t)
	if !r.meta(":quit") || !r.meta(":q") {
		t.Fatal(":quit did not request exit")
	}
	if r.meta(":help") {
		t.Fatal(":help requested exit")
	}
}

func TestMetaIR(t *testing.T) {
	r, buf := newTest(t)
	r.submit("fn f() -> Int { 1 }\n")
	r.meta(":ir")
	if got := buf.String(); !strings.Contains(got, "define i64 @f()") {
		t.Fatalf("output %q", got)
	}
}

func TestMetaType(t *testing.T) {
	r, buf := newTest(t)
	r.submit("fn add(x: Int, y: Int) -> Int { x + y }\n")
	r.meta(":type add")
	if got := buf.String(); !strings.Contains(got, "add: fn(Int, Int) -> Int") {
		t.Fatalf("output %q", got)
	}
	buf.Reset()
	r.meta(":type nope")
	if got := buf.String(); !strings.Contains(got, "undefined name nope") {
		t.Fatalf("output %q", got)
	}
}

func TestMetaReset(t *testing.T) {
	r, buf := newTest(t)
	r.submit("let x = 1\n")
	r.meta(":reset")
	buf.Reset()
	r.submit("x\n")
	if got := buf.String(); !strings.Contains(got, "undefined: x") {
		t.Fatalf("definitions survived reset: %q", got)
	}
}

func TestMetaUnknown(t *testing.T) {
	r, buf := newTest(t)
	if r.meta(":bogus") {
		t.Fatal("unknown command requested exit")
	}
	if got := buf.String(); !strings.Contains(got, "unknown command :bogus") {
		t.Fatalf("output %q", got)
	}
}

func TestCompletion(t *testing.T) {
	r, _ := newTest(t)
	r.submit("fn addOne(x: Int) -> Int { x + 1 }\n")
	got := r.complete("add")
	found := false
	for _, name := range got {
		if name == "addOne" {
			found = true
		}
	}
	if !found {
		t.Fatalf("addOne not completed: %v", got)
	}
	if kws := r.complete("fu"); len(kws) == 0 || kws[0] != "function" {
		t.Fatalf("keyword completion: %v", kws)
	}
}
