// Package codegen lowers type-checked units into an LLVM IR module. The
// module persists for the life of a session: REPL submissions append to it,
// batch compilation fills it once and serializes it.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"github.com/elilang/eli/internal/ast"
	"github.com/elilang/eli/internal/sema"
	"github.com/elilang/eli/internal/types"
)

// OverflowMode selects the integer arithmetic semantics of generated code.
type OverflowMode int

const (
	// Wrap emits plain two's-complement instructions.
	Wrap OverflowMode = iota
	// Trap emits overflow-checked intrinsics that branch to llvm.trap.
	Trap
)

type Config struct {
	Overflow OverflowMode
}

// ErrInternal marks a violated code generator invariant. This is a defect in
// the toolchain, never a user-facing diagnostic; the session aborts the unit
// and rolls the module back.
var ErrInternal = errors.New("internal code generator error")

func internalf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInternal, format, args...)
}

var i8ptr = lltypes.NewPointer(lltypes.I8)

// Generator lowers checked ASTs into one accumulating module. It keeps a
// symbol-to-IR-value map so later units resolve references to earlier
// definitions, and mangles redefined top-level names so already-emitted call
// sites keep pointing at the definition they were compiled against.
type Generator struct {
	mod *ir.Module
	cfg Config

	vals    map[*sema.Symbol]value.Value
	strs    map[string]strEntry
	extern  map[string]*ir.Func
	defined map[string]int // base name -> definition count, for mangling
	nUnit   int
	nStr    int

	// per-function lowering state
	info *sema.Info
	fn   *ir.Func
	cur  *ir.Block
	trap *ir.Block
	nBlk int
}

func New(mod *ir.Module, cfg Config) *Generator {
	return &Generator{
		mod:     mod,
		cfg:     cfg,
		vals:    make(map[*sema.Symbol]value.Value),
		strs:    make(map[string]strEntry),
		extern:  make(map[string]*ir.Func),
		defined: make(map[string]int),
	}
}

func (g *Generator) Module() *ir.Module { return g.mod }

// Snapshot captures the module's current extent. Rollback restores it,
// discarding every function and global emitted since the snapshot.
type Snapshot struct {
	funcs, globals int
}

func (g *Generator) Snapshot() Snapshot {
	return Snapshot{funcs: len(g.mod.Funcs), globals: len(g.mod.Globals)}
}

func (g *Generator) Rollback(s Snapshot) {
	g.mod.Funcs = g.mod.Funcs[:s.funcs]
	g.mod.Globals = g.mod.Globals[:s.globals]
	g.uncache()
}

// Unit lowers one unit (zero error diagnostics required) into the module.
// Functions become IR functions, top-level bindings become globals, and the
// unit's statements are gathered into a thunk "eli.unit.N" that initializes
// the globals and evaluates top-level expressions in source order, returning
// the value of the last one. On error the module is restored to its state
// before the call.
func (g *Generator) Unit(u *ast.Unit, info *sema.Info) (err error) {
	g.info = info
	snap, id := g.Snapshot(), g.nUnit
	g.nUnit++
	defer func() {
		if err != nil {
			g.Rollback(snap)
		}
	}()

	// Declare functions first so forward and mutual references resolve.
	for _, item := range u.Items {
		fd, ok := item.(*ast.FuncDecl)
		if !ok {
			continue
		}
		sym := info.Defs[fd]
		if sym == nil {
			return internalf("function %s has no symbol", fd.Name.Name)
		}
		sig := sym.Type
		params := make([]*ir.Param, len(sig.Params))
		for i, pt := range sig.Params {
			params[i] = ir.NewParam(fd.Params[i].Name.Name, llType(pt))
		}
		sym.IRName = g.mangle(sym.Name)
		f := g.mod.NewFunc(sym.IRName, llType(*sig.Ret), params...)
		g.vals[sym] = f
	}

	// Globals for top-level bindings, zero-initialized; the unit thunk
	// stores their computed values.
	for _, item := range u.Items {
		ls, ok := item.(*ast.LetStmt)
		if !ok {
			continue
		}
		sym := info.Defs[ls]
		if sym == nil {
			return internalf("binding %s has no symbol", ls.Name.Name)
		}
		sym.IRName = g.mangle(sym.Name)
		gv := g.mod.NewGlobalDef(sym.IRName, constant.NewZeroInitializer(llType(sym.Type)))
		g.vals[sym] = gv
	}

	for _, item := range u.Items {
		if fd, ok := item.(*ast.FuncDecl); ok {
			if err := g.funcBody(fd); err != nil {
				return err
			}
		}
	}

	return g.unitThunk(u, id)
}

// unitThunk lowers the unit's top-level statements. No thunk is emitted for
// a unit of declarations only.
func (g *Generator) unitThunk(u *ast.Unit, id int) error {
	var lastExpr ast.Expr
	run := false
	for _, item := range u.Items {
		switch n := item.(type) {
		case *ast.LetStmt:
			run = true
		case *ast.ExprStmt:
			run = true
			lastExpr = n.X
		}
	}
	if !run {
		return nil
	}

	ret := types.UnitT()
	if lastExpr != nil {
		ret = g.info.TypeOf(lastExpr)
	}
	f := g.mod.NewFunc(fmt.Sprintf("eli.unit.%d", id), llType(ret))
	g.beginFunc(f)

	var lastVal value.Value
	for _, item := range u.Items {
		switch n := item.(type) {
		case *ast.LetStmt:
			v, err := g.expr(n.Init)
			if err != nil {
				return err
			}
			g.cur.NewStore(v, g.vals[g.info.Defs[n]])
		case *ast.ExprStmt:
			v, err := g.expr(n.X)
			if err != nil {
				return err
			}
			if n.X == lastExpr {
				lastVal = v
			}
		}
	}
	if g.cur.Term == nil {
		if ret.IsUnit() || lastVal == nil {
			g.cur.NewRet(nil)
		} else {
			g.cur.NewRet(lastVal)
		}
	}
	return g.verify(f)
}

func (g *Generator) funcBody(fd *ast.FuncDecl) error {
	sym := g.info.Defs[fd]
	f, ok := g.vals[sym].(*ir.Func)
	if !ok {
		return internalf("function %s was not declared", fd.Name.Name)
	}
	g.beginFunc(f)
	for i, p := range fd.Params {
		psym := g.info.Defs[p]
		if psym == nil {
			return internalf("parameter %s has no symbol", p.Name.Name)
		}
		g.vals[psym] = f.Params[i]
	}

	val, err := g.blockBody(fd.Body)
	if err != nil {
		return err
	}
	if g.cur.Term == nil {
		ret := *sym.Type.Ret
		switch {
		case ret.IsUnit():
			g.cur.NewRet(nil)
		case val == nil:
			return internalf("function %s: missing result value for non-Unit body", fd.Name.Name)
		default:
			g.cur.NewRet(val)
		}
	}
	return g.verify(f)
}

func (g *Generator) beginFunc(f *ir.Func) {
	g.fn = f
	g.trap = nil
	g.nBlk = 0
	g.cur = f.NewBlock("entry")
}

// verify enforces the control-flow invariant: every basic block ends in
// exactly one terminator. A well-typed AST can never produce a violation, so
// a failure here is a compiler bug surfaced as ErrInternal.
func (g *Generator) verify(f *ir.Func) error {
	for _, b := range f.Blocks {
		if b.Term == nil {
			return internalf("function %s: basic block %q has no terminator", f.Name(), b.Name())
		}
	}
	return nil
}

// blockBody lowers the statements of b into the current block, returning the
// block's value (nil for Unit). Lowering stops after a return statement.
func (g *Generator) blockBody(b *ast.BlockExpr) (value.Value, error) {
	var last value.Value
	for i, s := range b.Stmts {
		switch s := s.(type) {
		case *ast.LetStmt:
			sym := g.info.Defs[s]
			if sym == nil {
				return nil, internalf("binding %s has no symbol", s.Name.Name)
			}
			v, err := g.expr(s.Init)
			if err != nil {
				return nil, err
			}
			slot := g.cur.NewAlloca(llType(sym.Type))
			slot.SetName(s.Name.Name)
			g.cur.NewStore(v, slot)
			g.vals[sym] = slot
		case *ast.ReturnStmt:
			var v value.Value
			if s.Result != nil {
				rv, err := g.expr(s.Result)
				if err != nil {
					return nil, err
				}
				v = rv
			}
			g.cur.NewRet(v)
			return nil, nil
		case *ast.ExprStmt:
			v, err := g.expr(s.X)
			if err != nil {
				return nil, err
			}
			if i == len(b.Stmts)-1 {
				last = v
			}
		}
	}
	return last, nil
}

func (g *Generator) expr(e ast.Expr) (value.Value, error) {
	switch e := e.(type) {
	case *ast.BasicLit:
		switch e.Kind {
		case ast.IntLit:
			return constant.NewInt(lltypes.I64, e.Int), nil
		case ast.FloatLit:
			return constant.NewFloat(lltypes.Double, e.Float), nil
		case ast.BoolLit:
			return constant.NewBool(e.Bool), nil
		case ast.StringLit:
			return g.stringPtr(e.Str), nil
		}
		return nil, internalf("unknown literal kind %d", e.Kind)

	case *ast.Ident:
		sym := g.info.Uses[e]
		if sym == nil {
			return nil, internalf("unresolved identifier %s survived checking", e.Name)
		}
		v, ok := g.vals[sym]
		if !ok {
			return nil, internalf("no IR value for %s %s", sym.Kind, sym.Name)
		}
		if sym.Kind == sema.SymVar {
			return g.cur.NewLoad(llType(sym.Type), v), nil
		}
		return v, nil

	case *ast.ParenExpr:
		return g.expr(e.X)

	case *ast.UnaryExpr:
		return g.unary(e)

	case *ast.BinaryExpr:
		return g.binary(e)

	case *ast.AssignExpr:
		return g.assignExpr(e)

	case *ast.CallExpr:
		return g.call(e)

	case *ast.IfExpr:
		return g.ifExpr(e)

	case *ast.BlockExpr:
		return g.blockBody(e)

	case *ast.BadExpr:
		return nil, internalf("error node survived checking")
	}
	return nil, internalf("unknown expression %T", e)
}

func (g *Generator) unary(e *ast.UnaryExpr) (value.Value, error) {
	x, err := g.expr(e.X)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNeg:
		if isFloat(g.info.TypeOf(e.X)) {
			return g.cur.NewFNeg(x), nil
		}
		return g.cur.NewSub(constant.NewInt(lltypes.I64, 0), x), nil
	case ast.OpNot:
		return g.cur.NewXor(x, constant.True), nil
	}
	return nil, internalf("unknown unary operator %d", e.Op)
}

func (g *Generator) binary(e *ast.BinaryExpr) (value.Value, error) {
	if e.Op == ast.OpLAnd || e.Op == ast.OpLOr {
		return g.shortCircuit(e)
	}
	x, err := g.expr(e.X)
	if err != nil {
		return nil, err
	}
	y, err := g.expr(e.Y)
	if err != nil {
		return nil, err
	}
	t := g.info.TypeOf(e.X)
	switch e.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul:
		if isFloat(t) {
			switch e.Op {
			case ast.OpAdd:
				return g.cur.NewFAdd(x, y), nil
			case ast.OpSub:
				return g.cur.NewFSub(x, y), nil
			default:
				return g.cur.NewFMul(x, y), nil
			}
		}
		if g.cfg.Overflow == Trap {
			return g.checkedArith(e.Op, x, y), nil
		}
		switch e.Op {
		case ast.OpAdd:
			return g.cur.NewAdd(x, y), nil
		case ast.OpSub:
			return g.cur.NewSub(x, y), nil
		default:
			return g.cur.NewMul(x, y), nil
		}
	case ast.OpDiv:
		if isFloat(t) {
			return g.cur.NewFDiv(x, y), nil
		}
		return g.cur.NewSDiv(x, y), nil
	case ast.OpMod:
		return g.cur.NewSRem(x, y), nil
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return g.compare(e.Op, t, x, y)
	}
	return nil, internalf("unknown binary operator %d", e.Op)
}

func (g *Generator) compare(op ast.BinOp, t types.Type, x, y value.Value) (value.Value, error) {
	switch t.Underlying().K {
	case types.Float:
		var pred enum.FPred
		switch op {
		case ast.OpEq:
			pred = enum.FPredOEQ
		case ast.OpNe:
			pred = enum.FPredONE
		case ast.OpLt:
			pred = enum.FPredOLT
		case ast.OpLe:
			pred = enum.FPredOLE
		case ast.OpGt:
			pred = enum.FPredOGT
		case ast.OpGe:
			pred = enum.FPredOGE
		}
		return g.cur.NewFCmp(pred, x, y), nil
	case types.String:
		// Only ==/!= pass the checker for strings.
		cmp := g.cur.NewCall(g.strcmp(), x, y)
		pred := enum.IPredEQ
		if op == ast.OpNe {
			pred = enum.IPredNE
		}
		return g.cur.NewICmp(pred, cmp, constant.NewInt(lltypes.I32, 0)), nil
	default:
		var pred enum.IPred
		switch op {
		case ast.OpEq:
			pred = enum.IPredEQ
		case ast.OpNe:
			pred = enum.IPredNE
		case ast.OpLt:
			pred = enum.IPredSLT
		case ast.OpLe:
			pred = enum.IPredSLE
		case ast.OpGt:
			pred = enum.IPredSGT
		case ast.OpGe:
			pred = enum.IPredSGE
		}
		return g.cur.NewICmp(pred, x, y), nil
	}
}

// shortCircuit lowers && and || into control flow so the right operand is
// only evaluated when it can affect the result.
func (g *Generator) shortCircuit(e *ast.BinaryExpr) (value.Value, error) {
	x, err := g.expr(e.X)
	if err != nil {
		return nil, err
	}
	left := g.cur
	rhs := g.newBlock("sc.rhs")
	end := g.newBlock("sc.end")
	var short constant.Constant
	if e.Op == ast.OpLAnd {
		left.NewCondBr(x, rhs, end)
		short = constant.False
	} else {
		left.NewCondBr(x, end, rhs)
		short = constant.True
	}
	g.cur = rhs
	y, err := g.expr(e.Y)
	if err != nil {
		return nil, err
	}
	rhsEnd := g.cur
	rhsEnd.NewBr(end)
	g.cur = end
	return end.NewPhi(ir.NewIncoming(short, left), ir.NewIncoming(y, rhsEnd)), nil
}

func (g *Generator) assignExpr(e *ast.AssignExpr) (value.Value, error) {
	target, ok := e.Target.(*ast.Ident)
	if !ok {
		return nil, internalf("invalid assignment target survived checking")
	}
	sym := g.info.Uses[target]
	if sym == nil {
		return nil, internalf("unresolved assignment target %s", target.Name)
	}
	slot, ok := g.vals[sym]
	if !ok {
		return nil, internalf("no IR slot for %s", sym.Name)
	}
	v, err := g.expr(e.Value)
	if err != nil {
		return nil, err
	}
	g.cur.NewStore(v, slot)
	return nil, nil
}

func (g *Generator) call(e *ast.CallExpr) (value.Value, error) {
	callee, err := g.expr(e.Fun)
	if err != nil {
		return nil, err
	}
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := g.expr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	res := g.cur.NewCall(callee, args...)
	if g.info.TypeOf(e).IsUnit() {
		return nil, nil
	}
	return res, nil
}

func (g *Generator) ifExpr(e *ast.IfExpr) (value.Value, error) {
	cond, err := g.expr(e.Cond)
	if err != nil {
		return nil, err
	}
	thenB := g.newBlock("if.then")
	end := g.newBlock("if.end")
	elseB := end
	if e.Else != nil {
		elseB = g.newBlock("if.else")
	}
	g.cur.NewCondBr(cond, thenB, elseB)

	t := g.info.TypeOf(e)
	withValue := !t.IsUnit() && !t.IsInvalid()
	var incoming []*ir.Incoming

	g.cur = thenB
	tv, err := g.blockBody(e.Then)
	if err != nil {
		return nil, err
	}
	if g.cur.Term == nil {
		if withValue {
			incoming = append(incoming, ir.NewIncoming(tv, g.cur))
		}
		g.cur.NewBr(end)
	}

	if e.Else != nil {
		g.cur = elseB
		var ev value.Value
		if blk, ok := e.Else.(*ast.BlockExpr); ok {
			ev, err = g.blockBody(blk)
		} else {
			ev, err = g.expr(e.Else)
		}
		if err != nil {
			return nil, err
		}
		if g.cur.Term == nil {
			if withValue {
				incoming = append(incoming, ir.NewIncoming(ev, g.cur))
			}
			g.cur.NewBr(end)
		}
	}

	// Lowering continues in the join block. When both arms returned it has
	// no predecessors; the trailing terminator emitted at function end keeps
	// it well formed and the code is simply unreachable.
	g.cur = end
	if withValue && len(incoming) > 0 {
		return end.NewPhi(incoming...), nil
	}
	return nil, nil
}

// checkedArith emits an overflow-checked integer operation that branches to
// a per-function trap block when the result wraps.
func (g *Generator) checkedArith(op ast.BinOp, x, y value.Value) value.Value {
	var name string
	switch op {
	case ast.OpAdd:
		name = "llvm.sadd.with.overflow.i64"
	case ast.OpSub:
		name = "llvm.ssub.with.overflow.i64"
	default:
		name = "llvm.smul.with.overflow.i64"
	}
	intrin, ok := g.extern[name]
	if !ok {
		st := lltypes.NewStruct(lltypes.I64, lltypes.I1)
		intrin = g.mod.NewFunc(name, st, ir.NewParam("", lltypes.I64), ir.NewParam("", lltypes.I64))
		g.extern[name] = intrin
	}
	res := g.cur.NewCall(intrin, x, y)
	val := g.cur.NewExtractValue(res, 0)
	ov := g.cur.NewExtractValue(res, 1)
	cont := g.newBlock("arith.cont")
	g.cur.NewCondBr(ov, g.trapBlock(), cont)
	g.cur = cont
	return val
}

func (g *Generator) trapBlock() *ir.Block {
	if g.trap == nil {
		trapFn, ok := g.extern["llvm.trap"]
		if !ok {
			trapFn = g.mod.NewFunc("llvm.trap", lltypes.Void)
			g.extern["llvm.trap"] = trapFn
		}
		g.trap = g.fn.NewBlock(fmt.Sprintf("trap.%d", g.nBlk))
		g.nBlk++
		g.trap.NewCall(trapFn)
		g.trap.NewUnreachable()
	}
	return g.trap
}

func (g *Generator) strcmp() *ir.Func {
	f, ok := g.extern["strcmp"]
	if !ok {
		f = g.mod.NewFunc("strcmp", lltypes.I32, ir.NewParam("", i8ptr), ir.NewParam("", i8ptr))
		g.extern["strcmp"] = f
	}
	return f
}

// strEntry is an interned string literal: the i8* constant handed to users
// of the literal and the backing global, remembered so a rollback can
// invalidate the cache entry.
type strEntry struct {
	ptr constant.Constant
	gv  *ir.Global
}

// stringPtr interns a string literal as a NUL-terminated global char array
// and returns an i8* to its first byte.
func (g *Generator) stringPtr(s string) constant.Constant {
	if e, ok := g.strs[s]; ok {
		return e.ptr
	}
	arr := constant.NewCharArrayFromString(s + "\x00")
	gv := g.mod.NewGlobalDef(fmt.Sprintf(".str.%d", g.nStr), arr)
	g.nStr++
	gv.Immutable = true
	zero := constant.NewInt(lltypes.I64, 0)
	ptr := constant.NewGetElementPtr(arr.Typ, gv, zero, zero)
	g.strs[s] = strEntry{ptr: ptr, gv: gv}
	return ptr
}

func (g *Generator) newBlock(prefix string) *ir.Block {
	b := g.fn.NewBlock(fmt.Sprintf("%s.%d", prefix, g.nBlk))
	g.nBlk++
	return b
}

// mangle returns the IR name for a fresh top-level definition of name. The
// first definition keeps its own name; redefinitions get ".1", ".2", ... so
// the module's namespace never holds two definitions of one exported name
// and earlier call sites keep their emission-time binding.
func (g *Generator) mangle(name string) string {
	n := g.defined[name]
	g.defined[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s.%d", name, n)
}

// uncache drops interned strings and external declarations whose backing
// definitions were rolled back out of the module.
func (g *Generator) uncache() {
	liveF := make(map[*ir.Func]bool, len(g.mod.Funcs))
	for _, f := range g.mod.Funcs {
		liveF[f] = true
	}
	for name, f := range g.extern {
		if !liveF[f] {
			delete(g.extern, name)
		}
	}
	liveG := make(map[*ir.Global]bool, len(g.mod.Globals))
	for _, gv := range g.mod.Globals {
		liveG[gv] = true
	}
	for s, e := range g.strs {
		if !liveG[e.gv] {
			delete(g.strs, s)
		}
	}
}

func llType(t types.Type) lltypes.Type {
	u := t.Underlying()
	switch u.K {
	case types.Int:
		return lltypes.I64
	case types.Float:
		return lltypes.Double
	case types.Bool:
		return lltypes.I1
	case types.String:
		return i8ptr
	case types.Unit:
		return lltypes.Void
	case types.Func:
		params := make([]lltypes.Type, len(u.Params))
		for i, p := range u.Params {
			params[i] = llType(p)
		}
		return lltypes.NewPointer(lltypes.NewFunc(llType(*u.Ret), params...))
	default:
		return lltypes.Void
	}
}

func isFloat(t types.Type) bool { return t.Underlying().K == types.Float }
