package codegen

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"

	"github.com/elilang/eli/internal/diag"
	"github.com/elilang/eli/internal/parser"
	"github.com/elilang/eli/internal/sema"
)

// lower feeds each source through parse/check/generate as one submission
// chain sharing a module, the way a session does.
func lower(t *testing.T, cfg Config, srcs ...string) *Generator {
	t.Helper()
	g := New(ir.NewModule(), cfg)
	scope := sema.NewScope(sema.Universe())
	for i, src := range srcs {
		var bag diag.Bag
		u := parser.ParseUnit(fmt.Sprintf("u%d", i), src, &bag)
		if bag.HasErrors() {
			t.Fatalf("parse failed:\n%s", diag.Sprint(bag.Diagnostics()))
		}
		frame := sema.NewScope(scope)
		info := sema.Check(u, frame, &bag)
		if bag.HasErrors() {
			t.Fatalf("check failed:\n%s", diag.Sprint(bag.Diagnostics()))
		}
		if err := g.Unit(u, info); err != nil {
			t.Fatalf("lowering failed: %v", err)
		}
		scope = frame
	}
	return g
}

func TestFunctionLowering(t *testing.T) {
	g := lower(t, Config{}, "fn add(x: Int, y: Int) -> Int { x + y }")
	out := g.Module().String()
	if !strings.Contains(out, "define i64 @add(i64 %x, i64 %y)") {
		t.Fatalf("missing definition:\n%s", out)
	}
	if !strings.Contains(out, "add i64") {
		t.Fatalf("missing add instruction:\n%s", out)
	}
}

func TestEveryBlockTerminated(t *testing.T) {
	g := lower(t, Config{}, `
fn cLassify(x: Int) -> Int {
	if x < 0 { return -1 }
	if x == 0 { 0 } else if x < 10 { 1 } else { 2 }
}
fn both(a: BooL, b: BooL) -> BooL { a && b || !a }
`)
	for _, f := range g.Module().Funcs {
		for _, b := range f.Blocks {
			if b.Term == nil {
				t.Errorf("function %s: block %q unterminated", f.Name(), b.Name())
			}
		}
	}
}

func TestVoidFunctionGetsImplicitReturn(t *testing.T) {
	g := lower(t, Config{}, "fn noop() { }")
	out := g.Module().String()
	if !strings.Contains(out, "define void @noop()") || !strings.Contains(out, "ret void") {
		t.Fatalf("bad void lowering:\n%s", out)
	}
}

func TestIfExpressionUsesPhi(t *testing.T) {
	g := lower(t, Config{}, "fn pick(c: BooL) -> Int { if c { 1 } else { 2 } }")
	if out := g.Module().String(); !strings.Contains(out, "phi i64") {
		t.Fatalf("no phi for if expression:\n%s", out)
	}
}

func TestShortCircuitUsesControlFlow(t *testing.T) {
	g := lower(t, Config{}, "fn and(x: BooL, y: BooL) -> BooL { x && y }")
	out := g.Module().String()
	if !strings.Contains(out, "phi i1") {
		t.Fatalf("no phi for &&:\n%s", out)
	}
	if !strings.Contains(out, "br i1") {
		t.Fatalf("no conditional branch for &&:\n%s", out)
	}
}

func TestWrapModeUsesPlainArithmetic(t *testing.T) {
	g := lower(t, Config{Overflow: Wrap}, "fn f(x: Int) -> Int { x * 3 - 1 }")
	out := g.Module().String()
	if strings.Contains(out, "with.overflow") || strings.Contains(out, "llvm.trap") {
		t.Fatalf("wrap mode emitted checked arithmetic:\n%s", out)
	}
}

func TestTrapModeUsesCheckedArithmetic(t *testing.T) {
	g := lower(t, Config{Overflow: Trap}, "fn f(x: Int) -> Int { x * 3 - 1 }")
	out := g.Module().String()
	for _, want := range []string{
		"llvm.smul.with.overflow.i64",
		"llvm.ssub.with.overflow.i64",
		"llvm.trap",
		"extractvalue",
		"unreachable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("trap mode missing %q:\n%s", want, out)
		}
	}
	// division stays plain; only +, -, * are checked
	if strings.Contains(out, "sdiv.with.overflow") {
		t.Error("division should not be overflow-checked")
	}
}

func TestTopLevelBindingsBecomeGlobals(t *testing.T) {
	g := lower(t, Config{}, "let x = 41\nx + 1")
	out := g.Module().String()
	if !strings.Contains(out, "@x = global i64") {
		t.Fatalf("no global for x:\n%s", out)
	}
	if !strings.Contains(out, "define i64 @eli.unit.0()") {
		t.Fatalf("no unit thunk:\n%s", out)
	}
	if !strings.Contains(out, "store i64 41, i64* @x") {
		t.Fatalf("thunk does not initialize x:\n%s", out)
	}
}

func TestRedefinitionMangling(t *testing.T) {
	g := lower(t, Config{},
		"fn f() -> Int { 1 }\nfn g() -> Int { f() }",
		"fn f() -> Int { 2 }",
		"fn h() -> Int { f() }",
	)
	out := g.Module().String()
	if !strings.Contains(out, "define i64 @f()") || !strings.Contains(out, "define i64 @f.1()") {
		t.Fatalf("redefinition not mangled:\n%s", out)
	}
	// g was compiled against the first f and must keep calling it
	if !strings.Contains(out, "call i64 @f()") {
		t.Fatalf("g no longer calls original f:\n%s", out)
	}
	if !strings.Contains(out, "call i64 @f.1()") {
		t.Fatalf("h does not call the redefinition:\n%s", out)
	}
}

func TestStringLiteralsInterned(t *testing.T) {
	g := lower(t, Config{}, `let a = "hi"`+"\n"+`let b = "hi"`+"\n"+`let c = "other"`)
	var strGlobals int
	for _, gv := range g.Module().Globals {
		if strings.HasPrefix(gv.Name(), ".str.") {
			strGlobals++
		}
	}
	if strGlobals != 2 {
		t.Fatalf("got %d string globals, want 2:\n%s", strGlobals, g.Module().String())
	}
}

func TestStringEqualityCallsStrcmp(t *testing.T) {
	g := lower(t, Config{}, `fn same(a: String, b: String) -> BooL { a == b }`)
	out := g.Module().String()
	if !strings.Contains(out, "declare i32 @strcmp(") {
		t.Fatalf("strcmp not declared:\n%s", out)
	}
	if !strings.Contains(out, "call i32 @strcmp(") {
		t.Fatalf("strcmp not called:\n%s", out)
	}
}

func TestSnapshotRollback(t *testing.T) {
	g := lower(t, Config{}, "fn keep() -> Int { 1 }")
	before := g.Module().String()
	snap := g.Snapshot()

	var bag diag.Bag
	u := parser.ParseUnit("u", `fn drop() -> Int { 2 }`+"\n"+`let s = "text"`, &bag)
	info := sema.Check(u, sema.NewScope(sema.NewScope(sema.Universe())), &bag)
	if bag.HasErrors() {
		t.Fatalf("check failed:\n%s", diag.Sprint(bag.Diagnostics()))
	}
	if err := g.Unit(u, info); err != nil {
		t.Fatal(err)
	}
	g.Rollback(snap)

	if after := g.Module().String(); after != before {
		t.Fatalf("rollback did not restore the module:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestInternalErrorWrapping(t *testing.T) {
	err := internalf("block %q has no terminator", "entry")
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("internal error does not match sentinel: %v", err)
	}
	if !strings.Contains(err.Error(), `"entry"`) {
		t.Fatalf("context lost: %v", err)
	}
}
