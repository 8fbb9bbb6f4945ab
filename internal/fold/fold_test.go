package fold

import (
	"testing"

	"github.com/elilang/eli/internal/ast"
	"github.com/elilang/eli/internal/diag"
	"github.com/elilang/eli/internal/parser"
	"github.com/elilang/eli/internal/sema"
	"github.com/elilang/eli/internal/types"
)

func folded(t *testing.T, src string) (*ast.Unit, *sema.Info) {
	t.Helper()
	var bag diag.Bag
	u := parser.ParseUnit("test", src, &bag)
	if bag.HasErrors() {
		t.Fatalf("parse failed:\n%s", diag.Sprint(bag.Diagnostics()))
	}
	info := sema.Check(u, sema.NewScope(sema.Universe()), &bag)
	if bag.HasErrors() {
		t.Fatalf("check failed:\n%s", diag.Sprint(bag.Diagnostics()))
	}
	Unit(u, info)
	return u, info
}

func foldsTo(t *testing.T, src, want string) {
	t.Helper()
	u, _ := folded(t, src)
	if got := ast.Sprint(u); got != want {
		t.Fatalf("%q folded to %q, want %q", src, got, want)
	}
}

func TestConstantArithmetic(t *testing.T) {
	foldsTo(t, "1 + 2 * 3", "7")
	foldsTo(t, "(2 + 3) * 4", "20")
	foldsTo(t, "let x = 10 / 4", "let x = 2")
	foldsTo(t, "1.5 * 2.0", "3.0")
	foldsTo(t, "- 5", "-5")
	foldsTo(t, "!true", "false")
	foldsTo(t, "1 < 2", "true")
	foldsTo(t, "1.5 >= 2.5", "false")
	foldsTo(t, `"a" == "a"`, "true")
	foldsTo(t, "true && false", "false")
	foldsTo(t, "let x = 1\nx + 2 * 3", "let x = 1\nx + 6")
}

func TestFaultingOperationsNotFolded(t *testing.T) {
	foldsTo(t, "1 / 0", "1 / 0")
	foldsTo(t, "1 % 0", "1 % 0")
	foldsTo(t, "9223372036854775807 + 1", "9223372036854775807 + 1")
	foldsTo(t, "-9223372036854775808 - 1", "-9223372036854775808 - 1")
	foldsTo(t, "4611686018427387904 * 2", "4611686018427387904 * 2")
	foldsTo(t, "1.0 / 0.0", "1.0 / 0.0")
}

func TestFoldedLiteralsCarryTypes(t *testing.T) {
	u, info := folded(t, "2 + 3")
	es := u.Items[0].(*ast.ExprStmt)
	lit, ok := es.X.(*ast.BasicLit)
	if !ok {
		t.Fatalf("not folded: %T", es.X)
	}
	if lit.Int != 5 {
		t.Fatalf("value %d", lit.Int)
	}
	if !types.Equal(info.TypeOf(lit), types.IntT()) {
		t.Fatalf("folded literal typed %s", info.TypeOf(lit))
	}
}

func TestBranchPruning(t *testing.T) {
	u, _ := folded(t, "let v = if 1 < 2 { 10 } else { 20 }")
	ls := u.Items[0].(*ast.LetStmt)
	blk, ok := ls.Init.(*ast.BlockExpr)
	if !ok {
		t.Fatalf("condition not pruned: %T", ls.Init)
	}
	es, ok := blk.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("surviving branch malformed")
	}
	if lit := es.X.(*ast.BasicLit); lit.Int != 10 {
		t.Fatalf("wrong branch survived: %d", lit.Int)
	}
}

func TestElselessFalsePrunesToEmptyBlock(t *testing.T) {
	u, info := folded(t, "let x = 1\nif false { x = 2 }")
	es := u.Items[1].(*ast.ExprStmt)
	blk, ok := es.X.(*ast.BlockExpr)
	if !ok || len(blk.Stmts) != 0 {
		t.Fatalf("got %T", es.X)
	}
	if !info.TypeOf(blk).IsUnit() {
		t.Fatalf("empty block typed %s", info.TypeOf(blk))
	}
}

func TestElselessTrueKeptUnitTyped(t *testing.T) {
	// Substituting the branch block would retype the Unit expression, so the
	// else-less true form stays as written.
	src := "let x = 1\nif true { x = 2 }"
	u, info := folded(t, src)
	es := u.Items[1].(*ast.ExprStmt)
	ife, ok := es.X.(*ast.IfExpr)
	if !ok {
		t.Fatalf("got %T", es.X)
	}
	if !info.TypeOf(ife).IsUnit() {
		t.Fatalf("typed %s", info.TypeOf(ife))
	}
}

func TestNonConstantLeftAlone(t *testing.T) {
	foldsTo(t, "let x = 1\nx + 2", "let x = 1\nx + 2")
	foldsTo(t, "fn f(x: Int) -> Int { x * 2 }", "fn f(x: Int) -> Int {\n\tx * 2\n}")
}

func TestFoldsInsideFunctions(t *testing.T) {
	foldsTo(t, "fn f() -> Int { return 2 + 3 }", "fn f() -> Int {\n\treturn 5\n}")
}
