// Package eval executes checked units directly on the AST. The REPL uses it
// to produce values while the code generator produces the IR artifact; both
// follow the same arithmetic semantics, selected by the session's overflow
// mode.
package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/elilang/eli/internal/ast"
	"github.com/elilang/eli/internal/sema"
	"github.com/elilang/eli/internal/source"
)

// Tag discriminates runtime values.
type Tag int

const (
	UnitV Tag = iota
	IntV
	FloatV
	BoolV
	StringV
	FuncV
)

// Value is a runtime value. The active field is selected by Tag.
type Value struct {
	Tag Tag
	I   int64
	F   float64
	B   bool
	S   string
	Fn  *Closure
}

func Unit() Value            { return Value{Tag: UnitV} }
func Int(i int64) Value      { return Value{Tag: IntV, I: i} }
func Float(f float64) Value  { return Value{Tag: FloatV, F: f} }
func Bool(b bool) Value      { return Value{Tag: BoolV, B: b} }
func Str(s string) Value     { return Value{Tag: StringV, S: s} }
func Fn(c *Closure) Value    { return Value{Tag: FuncV, Fn: c} }
func (v Value) IsUnit() bool { return v.Tag == UnitV }

func (v Value) String() string {
	switch v.Tag {
	case UnitV:
		return "()"
	case IntV:
		return strconv.FormatInt(v.I, 10)
	case FloatV:
		s := strconv.FormatFloat(v.F, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") && !math.IsInf(v.F, 0) && !math.IsNaN(v.F) {
			s += ".0"
		}
		return s
	case BoolV:
		return strconv.FormatBool(v.B)
	case StringV:
		return strconv.Quote(v.S)
	case FuncV:
		return fmt.Sprintf("<fn %s>", v.Fn.Name)
	default:
		return "<invalid>"
	}
}

// Closure pairs a function body with the environment frame that was current
// when the definition was evaluated. Later redefinitions push new frames, so
// the capture never observes them.
type Closure struct {
	Name string
	Decl *ast.FuncDecl
	Env  *Env
	Info *sema.Info
}

// Env is one frame of the persistent environment chain. Slots are keyed by
// resolved symbol, so shadowed names never collide.
type Env struct {
	parent *Env
	slots  map[*sema.Symbol]*Value
}

func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, slots: make(map[*sema.Symbol]*Value)}
}

func (e *Env) Parent() *Env { return e.parent }

func (e *Env) Define(sym *sema.Symbol, v Value) {
	e.slots[sym] = &v
}

func (e *Env) lookup(sym *sema.Symbol) *Value {
	for f := e; f != nil; f = f.parent {
		if slot, ok := f.slots[sym]; ok {
			return slot
		}
	}
	return nil
}

// Error is a runtime fault with the source position of the operation that
// faulted.
type Error struct {
	Pos source.Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: runtime error: %s", e.Pos, e.Msg) }

func errf(pos source.Pos, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// returnSignal unwinds a function body. The checker rejects top-level
// returns, so it never escapes a call.
type returnSignal struct {
	val Value
}

func (returnSignal) Error() string { return "return outside function" }

// Interp executes units. TrapOverflow selects checked integer arithmetic,
// mirroring the code generator's trap mode; otherwise integers wrap.
type Interp struct {
	TrapOverflow bool

	info *sema.Info
}

func New(trapOverflow bool) *Interp {
	return &Interp{TrapOverflow: trapOverflow}
}

// ExecUnit runs a checked unit's items in order inside env. Function
// declarations bind closures first so bodies may refer to one another; the
// returned value is that of the last top-level expression statement, with
// ok=false when the unit produced no value.
func (it *Interp) ExecUnit(u *ast.Unit, info *sema.Info, env *Env) (val Value, ok bool, err error) {
	prev := it.info
	it.info = info
	defer func() { it.info = prev }()

	for _, item := range u.Items {
		if fd, isFn := item.(*ast.FuncDecl); isFn {
			sym := info.Defs[fd]
			env.Define(sym, Fn(&Closure{Name: fd.Name.Name, Decl: fd, Env: env, Info: info}))
		}
	}

	val, ok = Unit(), false
	for _, item := range u.Items {
		switch n := item.(type) {
		case *ast.LetStmt:
			v, err := it.expr(n.Init, env)
			if err != nil {
				return Unit(), false, err
			}
			env.Define(info.Defs[n], v)
		case *ast.ExprStmt:
			v, err := it.expr(n.X, env)
			if err != nil {
				return Unit(), false, err
			}
			val, ok = v, !v.IsUnit()
		}
	}
	return val, ok, nil
}

// block evaluates statements in a fresh child frame and yields the value of
// the final expression statement, Unit otherwise.
func (it *Interp) block(b *ast.BlockExpr, env *Env) (Value, error) {
	frame := NewEnv(env)
	last := Unit()
	for i, s := range b.Stmts {
		switch s := s.(type) {
		case *ast.LetStmt:
			v, err := it.expr(s.Init, frame)
			if err != nil {
				return Unit(), err
			}
			frame.Define(it.info.Defs[s], v)
		case *ast.ReturnStmt:
			v := Unit()
			if s.Result != nil {
				rv, err := it.expr(s.Result, frame)
				if err != nil {
					return Unit(), err
				}
				v = rv
			}
			return Unit(), returnSignal{val: v}
		case *ast.ExprStmt:
			v, err := it.expr(s.X, frame)
			if err != nil {
				return Unit(), err
			}
			if i == len(b.Stmts)-1 {
				last = v
			}
		}
	}
	return last, nil
}

func (it *Interp) expr(e ast.Expr, env *Env) (Value, error) {
	switch e := e.(type) {
	case *ast.BasicLit:
		switch e.Kind {
		case ast.IntLit:
			return Int(e.Int), nil
		case ast.FloatLit:
			return Float(e.Float), nil
		case ast.BoolLit:
			return Bool(e.Bool), nil
		case ast.StringLit:
			return Str(e.Str), nil
		}

	case *ast.Ident:
		sym := it.info.Uses[e]
		if sym == nil {
			return Unit(), errf(e.NamePos, "unresolved name %s", e.Name)
		}
		slot := env.lookup(sym)
		if slot == nil {
			return Unit(), errf(e.NamePos, "name %s has no value", e.Name)
		}
		return *slot, nil

	case *ast.ParenExpr:
		return it.expr(e.X, env)

	case *ast.UnaryExpr:
		x, err := it.expr(e.X, env)
		if err != nil {
			return Unit(), err
		}
		switch e.Op {
		case ast.OpNeg:
			if x.Tag == FloatV {
				return Float(-x.F), nil
			}
			if it.TrapOverflow && x.I == math.MinInt64 {
				return Unit(), errf(e.OpPos, "integer overflow")
			}
			return Int(-x.I), nil
		case ast.OpNot:
			return Bool(!x.B), nil
		}

	case *ast.BinaryExpr:
		return it.binary(e, env)

	case *ast.AssignExpr:
		target := e.Target.(*ast.Ident)
		sym := it.info.Uses[target]
		slot := env.lookup(sym)
		if slot == nil {
			return Unit(), errf(target.NamePos, "name %s has no value", target.Name)
		}
		v, err := it.expr(e.Value, env)
		if err != nil {
			return Unit(), err
		}
		*slot = v
		return Unit(), nil

	case *ast.CallExpr:
		return it.call(e, env)

	case *ast.IfExpr:
		cond, err := it.expr(e.Cond, env)
		if err != nil {
			return Unit(), err
		}
		if cond.B {
			v, err := it.block(e.Then, env)
			if err != nil {
				return Unit(), err
			}
			// An else-less if has type Unit whatever its branch yields.
			if e.Else == nil {
				return Unit(), nil
			}
			return v, nil
		}
		switch alt := e.Else.(type) {
		case nil:
			return Unit(), nil
		case *ast.BlockExpr:
			return it.block(alt, env)
		default:
			return it.expr(e.Else, env)
		}

	case *ast.BlockExpr:
		return it.block(e, env)
	}
	return Unit(), errf(e.Pos(), "cannot evaluate %T", e)
}

func (it *Interp) call(e *ast.CallExpr, env *Env) (Value, error) {
	callee, err := it.expr(e.Fun, env)
	if err != nil {
		return Unit(), err
	}
	if callee.Tag != FuncV {
		return Unit(), errf(e.Lparen, "call of non-function value")
	}
	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		v, err := it.expr(a, env)
		if err != nil {
			return Unit(), err
		}
		args[i] = v
	}

	cl := callee.Fn
	frame := NewEnv(cl.Env)
	for i, p := range cl.Decl.Params {
		frame.Define(cl.Info.Defs[p], args[i])
	}

	// The closure's unit may differ from the calling unit; swap resolution
	// tables for the duration of the body.
	prev := it.info
	it.info = cl.Info
	v, err := it.block(cl.Decl.Body, frame)
	it.info = prev

	if ret, isRet := err.(returnSignal); isRet {
		return ret.val, nil
	}
	if err != nil {
		return Unit(), err
	}
	return v, nil
}

func (it *Interp) binary(e *ast.BinaryExpr, env *Env) (Value, error) {
	// Short-circuit operators evaluate the right operand conditionally.
	if e.Op == ast.OpLAnd || e.Op == ast.OpLOr {
		x, err := it.expr(e.X, env)
		if err != nil {
			return Unit(), err
		}
		if (e.Op == ast.OpLAnd && !x.B) || (e.Op == ast.OpLOr && x.B) {
			return x, nil
		}
		return it.expr(e.Y, env)
	}

	x, err := it.expr(e.X, env)
	if err != nil {
		return Unit(), err
	}
	y, err := it.expr(e.Y, env)
	if err != nil {
		return Unit(), err
	}

	switch e.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if x.Tag == FloatV {
			switch e.Op {
			case ast.OpAdd:
				return Float(x.F + y.F), nil
			case ast.OpSub:
				return Float(x.F - y.F), nil
			case ast.OpMul:
				return Float(x.F * y.F), nil
			case ast.OpDiv:
				return Float(x.F / y.F), nil
			}
		}
		return it.intArith(e.Op, x.I, y.I, e.OpPos)

	case ast.OpEq, ast.OpNe:
		eq, err := equal(x, y)
		if err != nil {
			return Unit(), errf(e.OpPos, "%s", err)
		}
		if e.Op == ast.OpNe {
			eq = !eq
		}
		return Bool(eq), nil

	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		var lt, eq bool
		if x.Tag == FloatV {
			lt, eq = x.F < y.F, x.F == y.F
		} else {
			lt, eq = x.I < y.I, x.I == y.I
		}
		switch e.Op {
		case ast.OpLt:
			return Bool(lt), nil
		case ast.OpLe:
			return Bool(lt || eq), nil
		case ast.OpGt:
			return Bool(!lt && !eq), nil
		default:
			return Bool(!lt), nil
		}
	}
	return Unit(), errf(e.OpPos, "cannot evaluate operator %s", e.Op)
}

func equal(x, y Value) (bool, error) {
	switch x.Tag {
	case IntV:
		return x.I == y.I, nil
	case FloatV:
		return x.F == y.F, nil
	case BoolV:
		return x.B == y.B, nil
	case StringV:
		return x.S == y.S, nil
	default:
		return false, fmt.Errorf("values of this type cannot be compared")
	}
}

// intArith applies integer arithmetic under the configured overflow mode.
// Wrap mode uses two's-complement wraparound; trap mode reports overflow as
// a runtime error, matching the generated code's trap path.
func (it *Interp) intArith(op ast.BinOp, x, y int64, pos source.Pos) (Value, error) {
	switch op {
	case ast.OpAdd:
		r := x + y
		if it.TrapOverflow && ((x^r)&(y^r)) < 0 {
			return Unit(), errf(pos, "integer overflow")
		}
		return Int(r), nil
	case ast.OpSub:
		r := x - y
		if it.TrapOverflow && ((x^y)&(x^r)) < 0 {
			return Unit(), errf(pos, "integer overflow")
		}
		return Int(r), nil
	case ast.OpMul:
		r := x * y
		if it.TrapOverflow && x != 0 && (r/x != y || (x == -1 && y == math.MinInt64)) {
			return Unit(), errf(pos, "integer overflow")
		}
		return Int(r), nil
	case ast.OpDiv:
		if y == 0 {
			return Unit(), errf(pos, "division by zero")
		}
		if x == math.MinInt64 && y == -1 {
			if it.TrapOverflow {
				return Unit(), errf(pos, "integer overflow")
			}
			return Int(math.MinInt64), nil
		}
		return Int(x / y), nil
	default: // OpMod
		if y == 0 {
			return Unit(), errf(pos, "modulo by zero")
		}
		if x == math.MinInt64 && y == -1 {
			return Int(0), nil
		}
		return Int(x % y), nil
	}
}
