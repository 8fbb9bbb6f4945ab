// Package fold rewrites constant subexpressions in a checked unit before
// lowering. Folding is strictly behavior-preserving: operations that would
// fault or overflow at runtime are left for the runtime to handle, so the
// pass is valid under both overflow modes.
package fold

import (
	"math"
	"strconv"
	"strings"

	"github.com/elilang/eli/internal/ast"
	"github.com/elilang/eli/internal/sema"
	"github.com/elilang/eli/internal/source"
	"github.com/elilang/eli/internal/types"
)

// Unit folds u in place, keeping info's type records consistent.
func Unit(u *ast.Unit, info *sema.Info) {
	f := &folder{info: info}
	for _, item := range u.Items {
		switch n := item.(type) {
		case *ast.FuncDecl:
			f.block(n.Body)
		case *ast.LetStmt:
			n.Init = f.expr(n.Init)
		case *ast.ExprStmt:
			n.X = f.expr(n.X)
		}
	}
}

type folder struct {
	info *sema.Info
}

func (f *folder) block(b *ast.BlockExpr) {
	for _, s := range b.Stmts {
		switch s := s.(type) {
		case *ast.LetStmt:
			s.Init = f.expr(s.Init)
		case *ast.ReturnStmt:
			if s.Result != nil {
				s.Result = f.expr(s.Result)
			}
		case *ast.ExprStmt:
			s.X = f.expr(s.X)
		}
	}
}

func (f *folder) expr(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.ParenExpr:
		e.X = f.expr(e.X)
		if lit, ok := e.X.(*ast.BasicLit); ok {
			return lit
		}
		return e

	case *ast.UnaryExpr:
		e.X = f.expr(e.X)
		return f.unary(e)

	case *ast.BinaryExpr:
		e.X = f.expr(e.X)
		e.Y = f.expr(e.Y)
		return f.binary(e)

	case *ast.AssignExpr:
		e.Value = f.expr(e.Value)
		return e

	case *ast.CallExpr:
		e.Fun = f.expr(e.Fun)
		for i := range e.Args {
			e.Args[i] = f.expr(e.Args[i])
		}
		return e

	case *ast.IfExpr:
		e.Cond = f.expr(e.Cond)
		f.block(e.Then)
		switch alt := e.Else.(type) {
		case *ast.BlockExpr:
			f.block(alt)
		case *ast.IfExpr:
			e.Else = f.expr(alt)
		}
		return f.ifExpr(e)

	case *ast.BlockExpr:
		f.block(e)
		return e

	default:
		return e
	}
}

func (f *folder) unary(e *ast.UnaryExpr) ast.Expr {
	lit, ok := e.X.(*ast.BasicLit)
	if !ok {
		return e
	}
	switch e.Op {
	case ast.OpNeg:
		switch lit.Kind {
		case ast.IntLit:
			if lit.Int == math.MinInt64 {
				return e
			}
			return f.intLit(e.OpPos, -lit.Int)
		case ast.FloatLit:
			return f.floatLit(e.OpPos, -lit.Float)
		}
	case ast.OpNot:
		if lit.Kind == ast.BoolLit {
			return f.boolLit(e.OpPos, !lit.Bool)
		}
	}
	return e
}

func (f *folder) binary(e *ast.BinaryExpr) ast.Expr {
	x, okx := e.X.(*ast.BasicLit)
	y, oky := e.Y.(*ast.BasicLit)
	if !okx || !oky || x.Kind != y.Kind {
		return e
	}
	pos := e.X.Pos()
	switch x.Kind {
	case ast.IntLit:
		return f.foldInt(e, pos, x.Int, y.Int)
	case ast.FloatLit:
		return f.foldFloat(e, pos, x.Float, y.Float)
	case ast.BoolLit:
		switch e.Op {
		case ast.OpLAnd:
			return f.boolLit(pos, x.Bool && y.Bool)
		case ast.OpLOr:
			return f.boolLit(pos, x.Bool || y.Bool)
		case ast.OpEq:
			return f.boolLit(pos, x.Bool == y.Bool)
		case ast.OpNe:
			return f.boolLit(pos, x.Bool != y.Bool)
		}
	case ast.StringLit:
		switch e.Op {
		case ast.OpEq:
			return f.boolLit(pos, x.Str == y.Str)
		case ast.OpNe:
			return f.boolLit(pos, x.Str != y.Str)
		}
	}
	return e
}

func (f *folder) foldInt(e *ast.BinaryExpr, pos source.Pos, x, y int64) ast.Expr {
	switch e.Op {
	case ast.OpAdd:
		r := x + y
		if ((x^r)&(y^r)) < 0 {
			return e
		}
		return f.intLit(pos, r)
	case ast.OpSub:
		r := x - y
		if ((x^y)&(x^r)) < 0 {
			return e
		}
		return f.intLit(pos, r)
	case ast.OpMul:
		r := x * y
		if x != 0 && (r/x != y || (x == -1 && y == math.MinInt64)) {
			return e
		}
		return f.intLit(pos, r)
	case ast.OpDiv:
		if y == 0 || (x == math.MinInt64 && y == -1) {
			return e
		}
		return f.intLit(pos, x/y)
	case ast.OpMod:
		if y == 0 || (x == math.MinInt64 && y == -1) {
			return e
		}
		return f.intLit(pos, x%y)
	case ast.OpEq:
		return f.boolLit(pos, x == y)
	case ast.OpNe:
		return f.boolLit(pos, x != y)
	case ast.OpLt:
		return f.boolLit(pos, x < y)
	case ast.OpLe:
		return f.boolLit(pos, x <= y)
	case ast.OpGt:
		return f.boolLit(pos, x > y)
	case ast.OpGe:
		return f.boolLit(pos, x >= y)
	}
	return e
}

func (f *folder) foldFloat(e *ast.BinaryExpr, pos source.Pos, x, y float64) ast.Expr {
	switch e.Op {
	case ast.OpAdd:
		return f.floatLit(pos, x+y)
	case ast.OpSub:
		return f.floatLit(pos, x-y)
	case ast.OpMul:
		return f.floatLit(pos, x*y)
	case ast.OpDiv:
		if y == 0 {
			return e
		}
		return f.floatLit(pos, x/y)
	case ast.OpEq:
		return f.boolLit(pos, x == y)
	case ast.OpNe:
		return f.boolLit(pos, x != y)
	case ast.OpLt:
		return f.boolLit(pos, x < y)
	case ast.OpLe:
		return f.boolLit(pos, x <= y)
	case ast.OpGt:
		return f.boolLit(pos, x > y)
	case ast.OpGe:
		return f.boolLit(pos, x >= y)
	}
	return e
}

// ifExpr prunes branches with a constant condition. The surviving branch is
// already checked and carries its own type record.
func (f *folder) ifExpr(e *ast.IfExpr) ast.Expr {
	lit, ok := e.Cond.(*ast.BasicLit)
	if !ok || lit.Kind != ast.BoolLit {
		return e
	}
	if lit.Bool {
		// An else-less if is Unit-typed; substituting its branch block would
		// retype the expression, so only the two-armed form is pruned.
		if e.Else == nil {
			return e
		}
		return e.Then
	}
	if e.Else != nil {
		return e.Else
	}
	empty := &ast.BlockExpr{Lbrace: e.If, Rbrace: e.If}
	f.info.Types[empty] = types.UnitT()
	return empty
}

func (f *folder) intLit(pos source.Pos, v int64) *ast.BasicLit {
	lit := &ast.BasicLit{LitPos: pos, Kind: ast.IntLit, Lex: strconv.FormatInt(v, 10), Int: v}
	f.info.Types[lit] = types.IntT()
	return lit
}

func (f *folder) floatLit(pos source.Pos, v float64) *ast.BasicLit {
	lex := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(lex, ".eE") {
		lex += ".0" // keep the lexeme re-lexable as a float
	}
	lit := &ast.BasicLit{LitPos: pos, Kind: ast.FloatLit, Lex: lex, Float: v}
	f.info.Types[lit] = types.FloatT()
	return lit
}

func (f *folder) boolLit(pos source.Pos, v bool) *ast.BasicLit {
	lit := &ast.BasicLit{LitPos: pos, Kind: ast.BoolLit, Lex: strconv.FormatBool(v), Bool: v}
	f.info.Types[lit] = types.BoolT()
	return lit
}
