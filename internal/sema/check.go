package sema

import (
	"github.com/elilang/eli/internal/ast"
	"github.com/elilang/eli/internal/diag"
	"github.com/elilang/eli/internal/types"
)

// Info holds the results of checking one unit: the type of every expression
// and the symbol bound to every defining and referring identifier.
type Info struct {
	Types map[ast.Expr]types.Type
	Defs  map[ast.Node]*Symbol
	Uses  map[*ast.Ident]*Symbol
}

func NewInfo() *Info {
	return &Info{
		Types: make(map[ast.Expr]types.Type),
		Defs:  make(map[ast.Node]*Symbol),
		Uses:  make(map[*ast.Ident]*Symbol),
	}
}

// TypeOf returns the recorded type of e, or the error sentinel if none was
// recorded.
func (i *Info) TypeOf(e ast.Expr) types.Type {
	if t, ok := i.Types[e]; ok {
		return t
	}
	return types.ErrorT()
}

type funcCtx struct {
	ret types.Type
}

type checker struct {
	scope *Scope
	info  *Info
	bag   *diag.Bag
	fn    *funcCtx
}

// Check resolves identifiers and infers/validates types for one unit. Top
// is the scope frame new top-level declarations go into; its parent chain
// holds earlier REPL submissions and the universe. Type aliases are
// registered first, then function signatures (so forward references to
// functions work), then bodies and bindings in source order.
//
// Checking continues past errors: a failed subexpression gets the error
// sentinel type, which downstream checks treat as "already reported".
func Check(u *ast.Unit, top *Scope, bag *diag.Bag) *Info {
	c := &checker{scope: top, info: NewInfo(), bag: bag}

	for _, item := range u.Items {
		if td, ok := item.(*ast.TypeDecl); ok {
			c.typeDecl(td)
		}
	}
	for _, item := range u.Items {
		if fd, ok := item.(*ast.FuncDecl); ok {
			c.funcSig(fd)
		}
	}
	for _, item := range u.Items {
		switch n := item.(type) {
		case *ast.TypeDecl, *ast.BadDecl:
		case *ast.FuncDecl:
			c.funcBody(n)
		case *ast.LetStmt:
			c.let(n)
		case *ast.ExprStmt:
			c.expr(n.X)
		case *ast.ReturnStmt:
			c.bag.Errorf(diag.Resolve, n.Pos(), "return outside function")
		case *ast.BadStmt:
		}
	}
	return c.info
}

func (c *checker) typeDecl(d *ast.TypeDecl) {
	under := c.typeRef(d.Aliased)
	sym := &Symbol{Name: d.Name.Name, Kind: SymType, Type: types.NamedT(d.Name.Name, under), Pos: d.Name.NamePos}
	if under.IsInvalid() {
		sym.Type = types.ErrorT()
	}
	c.declare(d, sym)
}

func (c *checker) funcSig(d *ast.FuncDecl) {
	params := make([]types.Type, len(d.Params))
	for i, p := range d.Params {
		params[i] = c.typeRef(p.Type)
	}
	ret := types.UnitT()
	if d.Result != nil {
		ret = c.typeRef(d.Result)
	}
	sym := &Symbol{Name: d.Name.Name, Kind: SymFunc, Type: types.FuncT(params, ret), Pos: d.Name.NamePos}
	c.declare(d, sym)
}

func (c *checker) funcBody(d *ast.FuncDecl) {
	sym := c.info.Defs[d]
	if sym == nil {
		return
	}
	outer, outerFn := c.scope, c.fn
	c.scope = NewScope(outer)
	c.fn = &funcCtx{ret: *sym.Type.Ret}
	defer func() { c.scope, c.fn = outer, outerFn }()

	for i, p := range d.Params {
		psym := &Symbol{Name: p.Name.Name, Kind: SymParam, Type: sym.Type.Params[i], Pos: p.Name.NamePos}
		c.declare(p, psym)
	}

	bodyType := c.blockIn(d.Body, c.scope)
	if c.fn.ret.IsInvalid() || c.fn.ret.IsUnit() || bodyType.IsInvalid() {
		return
	}
	if endsInReturn(d.Body) {
		return
	}
	if !types.Equal(bodyType, c.fn.ret) {
		pos := d.Body.Rbrace
		if last := lastExprStmt(d.Body); last != nil {
			pos = last.X.Pos()
		}
		if bodyType.IsUnit() {
			c.bag.Errorf(diag.Type, pos, "missing return value: function result is %s", c.fn.ret)
		} else {
			c.bag.Errorf(diag.Type, pos, "function result is %s but body yields %s", c.fn.ret, bodyType)
		}
	}
}

func (c *checker) let(s *ast.LetStmt) {
	got := c.expr(s.Init)
	declared := got
	if s.Type != nil {
		want := c.typeRef(s.Type)
		if !want.IsInvalid() && !got.IsInvalid() && !types.Equal(got, want) {
			c.bag.Errorf(diag.Type, s.Init.Pos(), "cannot use value of type %s as %s in binding of %s", got, want, s.Name.Name)
		}
		declared = want
	} else if got.IsUnit() {
		c.bag.Errorf(diag.Type, s.Init.Pos(), "cannot bind a value of type Unit")
		declared = types.ErrorT()
	}
	c.declare(s, &Symbol{Name: s.Name.Name, Kind: SymVar, Type: declared, Pos: s.Name.NamePos})
}

func (c *checker) declare(n ast.Node, sym *Symbol) {
	if err := c.scope.Declare(sym); err != nil {
		c.bag.Errorf(diag.Resolve, sym.Pos, "%s", err)
		return
	}
	c.info.Defs[n] = sym
}

func (c *checker) typeRef(ref *ast.TypeRef) types.Type {
	sym := c.scope.Lookup(ref.Name)
	if sym == nil {
		c.bag.Errorf(diag.Resolve, ref.NamePos, "undefined type: %s", ref.Name)
		return types.ErrorT()
	}
	if sym.Kind != SymType {
		c.bag.Errorf(diag.Resolve, ref.NamePos, "%s is a %s, not a type", ref.Name, sym.Kind)
		return types.ErrorT()
	}
	return sym.Type
}

// blockIn checks a block's statements inside the given scope and returns the
// block's type: the type of the final expression statement, or Unit.
func (c *checker) blockIn(b *ast.BlockExpr, scope *Scope) types.Type {
	outer := c.scope
	c.scope = scope
	defer func() { c.scope = outer }()

	for _, s := range b.Stmts {
		switch s := s.(type) {
		case *ast.LetStmt:
			c.let(s)
		case *ast.ReturnStmt:
			c.ret(s)
		case *ast.ExprStmt:
			c.expr(s.X)
		case *ast.BadStmt:
		case *ast.FuncDecl, *ast.TypeDecl, *ast.BadDecl:
			// rejected by the parser already
		}
	}
	t := types.UnitT()
	if last := lastExprStmt(b); last != nil && lastIsExpr(b) {
		t = c.info.TypeOf(last.X)
	}
	c.info.Types[b] = t
	return t
}

func (c *checker) ret(s *ast.ReturnStmt) {
	if c.fn == nil {
		c.bag.Errorf(diag.Resolve, s.Pos(), "return outside function")
		if s.Result != nil {
			c.expr(s.Result)
		}
		return
	}
	got := types.UnitT()
	pos := s.Pos()
	if s.Result != nil {
		got = c.expr(s.Result)
		pos = s.Result.Pos()
	}
	if !got.IsInvalid() && !types.Equal(got, c.fn.ret) {
		c.bag.Errorf(diag.Type, pos, "cannot return %s from function with result %s", got, c.fn.ret)
	}
}

func (c *checker) expr(e ast.Expr) types.Type {
	t := c.exprInner(e)
	c.info.Types[e] = t
	return t
}

func (c *checker) exprInner(e ast.Expr) types.Type {
	switch e := e.(type) {
	case *ast.BasicLit:
		switch e.Kind {
		case ast.IntLit:
			return types.IntT()
		case ast.FloatLit:
			return types.FloatT()
		case ast.StringLit:
			return types.StringT()
		case ast.BoolLit:
			return types.BoolT()
		}
		return types.ErrorT()

	case *ast.Ident:
		sym := c.scope.Lookup(e.Name)
		if sym == nil {
			c.bag.Errorf(diag.Resolve, e.NamePos, "undefined: %s", e.Name)
			return types.ErrorT()
		}
		if sym.Kind == SymType {
			c.bag.Errorf(diag.Resolve, e.NamePos, "type %s is not an expression", e.Name)
			return types.ErrorT()
		}
		c.info.Uses[e] = sym
		return sym.Type

	case *ast.ParenExpr:
		return c.expr(e.X)

	case *ast.UnaryExpr:
		x := c.expr(e.X)
		if x.IsInvalid() {
			return x
		}
		switch e.Op {
		case ast.OpNeg:
			if !x.IsNumeric() {
				c.bag.Errorf(diag.Type, e.X.Pos(), "operator - not defined for %s", x)
				return types.ErrorT()
			}
			return x
		case ast.OpNot:
			if !types.Equal(x, types.BoolT()) {
				c.bag.Errorf(diag.Type, e.X.Pos(), "operator ! not defined for %s", x)
				return types.ErrorT()
			}
			return x
		}
		return types.ErrorT()

	case *ast.BinaryExpr:
		return c.binary(e)

	case *ast.AssignExpr:
		return c.assign(e)

	case *ast.CallExpr:
		return c.call(e)

	case *ast.IfExpr:
		cond := c.expr(e.Cond)
		if !cond.IsInvalid() && !types.Equal(cond, types.BoolT()) {
			c.bag.Errorf(diag.Type, e.Cond.Pos(), "if condition must be BooL, got %s", cond)
		}
		thenT := c.blockIn(e.Then, NewScope(c.scope))
		if e.Else == nil {
			return types.UnitT()
		}
		var elseT types.Type
		if blk, ok := e.Else.(*ast.BlockExpr); ok {
			elseT = c.blockIn(blk, NewScope(c.scope))
		} else {
			elseT = c.expr(e.Else)
		}
		if thenT.IsInvalid() || elseT.IsInvalid() {
			return types.ErrorT()
		}
		if !types.Equal(thenT, elseT) {
			c.bag.Errorf(diag.Type, e.If, "if and else branches have mismatched types %s and %s", thenT, elseT)
			return types.ErrorT()
		}
		return thenT

	case *ast.BlockExpr:
		return c.blockIn(e, NewScope(c.scope))

	case *ast.BadExpr:
		return types.ErrorT()
	}
	return types.ErrorT()
}

func (c *checker) binary(e *ast.BinaryExpr) types.Type {
	x := c.expr(e.X)
	y := c.expr(e.Y)
	if x.IsInvalid() || y.IsInvalid() {
		return types.ErrorT()
	}
	switch e.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		if !types.Equal(x, y) {
			c.bag.Errorf(diag.Type, e.OpPos, "invalid operation: mismatched types %s and %s", x, y)
			return types.ErrorT()
		}
		if !x.IsNumeric() {
			c.bag.Errorf(diag.Type, e.OpPos, "operator %s not defined for %s", e.Op, x)
			return types.ErrorT()
		}
		return x
	case ast.OpMod:
		if !types.Equal(x, types.IntT()) || !types.Equal(y, types.IntT()) {
			c.bag.Errorf(diag.Type, e.OpPos, "operator %% requires Int operands, got %s and %s", x, y)
			return types.ErrorT()
		}
		return types.IntT()
	case ast.OpEq, ast.OpNe:
		if !types.Equal(x, y) {
			c.bag.Errorf(diag.Type, e.OpPos, "invalid comparison: mismatched types %s and %s", x, y)
			return types.ErrorT()
		}
		if k := x.Underlying().K; k == types.Func || k == types.Unit {
			c.bag.Errorf(diag.Type, e.OpPos, "values of type %s are not comparable", x)
			return types.ErrorT()
		}
		return types.BoolT()
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if !types.Equal(x, y) {
			c.bag.Errorf(diag.Type, e.OpPos, "invalid comparison: mismatched types %s and %s", x, y)
			return types.ErrorT()
		}
		if !x.IsNumeric() {
			c.bag.Errorf(diag.Type, e.OpPos, "operator %s requires numeric operands, got %s", e.Op, x)
			return types.ErrorT()
		}
		return types.BoolT()
	case ast.OpLAnd, ast.OpLOr:
		ok := true
		if !types.Equal(x, types.BoolT()) {
			c.bag.Errorf(diag.Type, e.X.Pos(), "operator %s requires BooL operands, got %s", e.Op, x)
			ok = false
		}
		if !types.Equal(y, types.BoolT()) {
			c.bag.Errorf(diag.Type, e.Y.Pos(), "operator %s requires BooL operands, got %s", e.Op, y)
			ok = false
		}
		if !ok {
			return types.ErrorT()
		}
		return types.BoolT()
	}
	return types.ErrorT()
}

func (c *checker) assign(e *ast.AssignExpr) types.Type {
	val := c.expr(e.Value)
	target, ok := e.Target.(*ast.Ident)
	if !ok {
		c.bag.Errorf(diag.Type, e.Target.Pos(), "cannot assign to this expression")
		return types.UnitT()
	}
	sym := c.scope.Lookup(target.Name)
	if sym == nil {
		c.bag.Errorf(diag.Resolve, target.NamePos, "undefined: %s", target.Name)
		return types.UnitT()
	}
	c.info.Uses[target] = sym
	c.info.Types[target] = sym.Type
	if sym.Kind != SymVar {
		c.bag.Errorf(diag.Type, target.NamePos, "cannot assign to %s %s", sym.Kind, target.Name)
		return types.UnitT()
	}
	if !val.IsInvalid() && !sym.Type.IsInvalid() && !types.Equal(val, sym.Type) {
		c.bag.Errorf(diag.Type, e.Value.Pos(), "cannot assign value of type %s to %s of type %s", val, target.Name, sym.Type)
	}
	return types.UnitT()
}

func (c *checker) call(e *ast.CallExpr) types.Type {
	ft := c.expr(e.Fun)
	args := make([]types.Type, len(e.Args))
	for i, a := range e.Args {
		args[i] = c.expr(a)
	}
	if ft.IsInvalid() {
		return types.ErrorT()
	}
	under := ft.Underlying()
	if under.K != types.Func {
		c.bag.Errorf(diag.Type, e.Fun.Pos(), "cannot call value of type %s", ft)
		return types.ErrorT()
	}
	if len(args) != len(under.Params) {
		c.bag.Errorf(diag.Type, e.Lparen, "wrong number of arguments: have %d, want %d", len(args), len(under.Params))
		return *under.Ret
	}
	for i, at := range args {
		if !at.IsInvalid() && !types.Equal(at, under.Params[i]) {
			c.bag.Errorf(diag.Type, e.Args[i].Pos(), "cannot use value of type %s as %s in argument %d", at, under.Params[i], i+1)
		}
	}
	return *under.Ret
}

func lastExprStmt(b *ast.BlockExpr) *ast.ExprStmt {
	for i := len(b.Stmts) - 1; i >= 0; i-- {
		if es, ok := b.Stmts[i].(*ast.ExprStmt); ok {
			return es
		}
		return nil
	}
	return nil
}

// lastIsExpr reports whether the final statement of b is an expression
// statement (the one that gives the block its value).
func lastIsExpr(b *ast.BlockExpr) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	_, ok := b.Stmts[len(b.Stmts)-1].(*ast.ExprStmt)
	return ok
}

func endsInReturn(b *ast.BlockExpr) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	_, ok := b.Stmts[len(b.Stmts)-1].(*ast.ReturnStmt)
	return ok
}
