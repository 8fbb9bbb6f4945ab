package ast

import "github.com/elilang/eli/internal/source"

// Node is implemented by every syntax node. Nodes own their children
// exclusively; the tree is acyclic by construction.
type Node interface {
	Pos() source.Pos
}

type Expr interface {
	Node
	exprNode()
}

type Stmt interface {
	Node
	stmtNode()
}

// Unit is one compilation unit: a whole file in batch mode or one submission
// in the REPL. Items are FuncDecl, TypeDecl, LetStmt, ExprStmt or BadDecl.
type Unit struct {
	Name  string
	Items []Node
}

func (u *Unit) Pos() source.Pos {
	if len(u.Items) > 0 {
		return u.Items[0].Pos()
	}
	return source.Pos{}
}

// FuncDecl is a function declaration: fn name(p: T, ...) -> T { ... }.
// Result is nil when the function returns Unit.
type FuncDecl struct {
	Fn     source.Pos
	Name   *Ident
	Params []*Param
	Result *TypeRef
	Body   *BlockExpr
}

func (d *FuncDecl) Pos() source.Pos { return d.Fn }
func (d *FuncDecl) stmtNode()       {}

type Param struct {
	Name *Ident
	Type *TypeRef
}

func (p *Param) Pos() source.Pos { return p.Name.NamePos }

// TypeDecl is a type alias: type Name = T.
type TypeDecl struct {
	TypePos source.Pos
	Name    *Ident
	Aliased *TypeRef
}

func (d *TypeDecl) Pos() source.Pos { return d.TypePos }
func (d *TypeDecl) stmtNode()       {}

// BadDecl stands in for an unrecoverable top-level region so downstream
// passes can skip it without crashing.
type BadDecl struct {
	From source.Pos
}

func (d *BadDecl) Pos() source.Pos { return d.From }
func (d *BadDecl) stmtNode()       {}

// LetStmt is a binding: let name = expr | let name: T = expr.
type LetStmt struct {
	Let  source.Pos
	Name *Ident
	Type *TypeRef // nil when the type is inferred
	Init Expr
}

func (s *LetStmt) Pos() source.Pos { return s.Let }
func (s *LetStmt) stmtNode()       {}

type ReturnStmt struct {
	Return source.Pos
	Result Expr // nil for a bare return
}

func (s *ReturnStmt) Pos() source.Pos { return s.Return }
func (s *ReturnStmt) stmtNode()       {}

type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) Pos() source.Pos { return s.X.Pos() }
func (s *ExprStmt) stmtNode()       {}

type BadStmt struct {
	From source.Pos
}

func (s *BadStmt) Pos() source.Pos { return s.From }
func (s *BadStmt) stmtNode()       {}

type Ident struct {
	NamePos source.Pos
	Name    string
}

func (e *Ident) Pos() source.Pos { return e.NamePos }
func (e *Ident) exprNode()       {}

// TypeRef is a reference to a type by name in an annotation position.
type TypeRef struct {
	NamePos source.Pos
	Name    string
}

func (e *TypeRef) Pos() source.Pos { return e.NamePos }

type LitKind int

const (
	IntLit LitKind = iota
	FloatLit
	StringLit
	BoolLit
)

// BasicLit is a literal with its decoded value.
type BasicLit struct {
	LitPos source.Pos
	Kind   LitKind
	Lex    string // raw source spelling
	Int    int64
	Float  float64
	Str    string
	Bool   bool
}

func (e *BasicLit) Pos() source.Pos { return e.LitPos }
func (e *BasicLit) exprNode()       {}

type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLAnd
	OpLOr
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLAnd:
		return "&&"
	case OpLOr:
		return "||"
	default:
		return "?"
	}
}

// Precedence returns the binding power of op. Higher binds tighter. The
// table is fixed: unary > multiplicative > additive > comparison > && > ||
// > assignment.
func (op BinOp) Precedence() int {
	switch op {
	case OpLOr:
		return 2
	case OpLAnd:
		return 3
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return 4
	case OpAdd, OpSub:
		return 5
	case OpMul, OpDiv, OpMod:
		return 6
	default:
		return 0
	}
}

// PrecAssign is the precedence of assignment, the loosest binary form.
const PrecAssign = 1

// PrecUnary is the precedence of prefix operators.
const PrecUnary = 7

type BinaryExpr struct {
	Op    BinOp
	OpPos source.Pos
	X, Y  Expr
}

func (e *BinaryExpr) Pos() source.Pos { return e.X.Pos() }
func (e *BinaryExpr) exprNode()       {}

type UnOp int

const (
	OpNeg UnOp = iota // -
	OpNot             // !
)

func (op UnOp) String() string {
	if op == OpNeg {
		return "-"
	}
	return "!"
}

type UnaryExpr struct {
	Op    UnOp
	OpPos source.Pos
	X     Expr
}

func (e *UnaryExpr) Pos() source.Pos { return e.OpPos }
func (e *UnaryExpr) exprNode()       {}

// AssignExpr is "target = value". It has type Unit. The checker requires
// the target to be an identifier bound to a variable.
type AssignExpr struct {
	Target Expr
	OpPos  source.Pos
	Value  Expr
}

func (e *AssignExpr) Pos() source.Pos { return e.Target.Pos() }
func (e *AssignExpr) exprNode()       {}

type CallExpr struct {
	Fun    Expr
	Lparen source.Pos
	Args   []Expr
	Rparen source.Pos
}

func (e *CallExpr) Pos() source.Pos { return e.Fun.Pos() }
func (e *CallExpr) exprNode()       {}

type ParenExpr struct {
	Lparen source.Pos
	X      Expr
}

func (e *ParenExpr) Pos() source.Pos { return e.Lparen }
func (e *ParenExpr) exprNode()       {}

// IfExpr is a conditional expression. Else is nil, a *BlockExpr, or another
// *IfExpr (an "else if" chain). Without an else the expression has type Unit.
type IfExpr struct {
	If   source.Pos
	Cond Expr
	Then *BlockExpr
	Else Expr
}

func (e *IfExpr) Pos() source.Pos { return e.If }
func (e *IfExpr) exprNode()       {}

// BlockExpr is { stmts }. Its value is the value of the final expression
// statement, or Unit when the block is empty or ends in another statement.
type BlockExpr struct {
	Lbrace source.Pos
	Stmts  []Stmt
	Rbrace source.Pos
}

func (e *BlockExpr) Pos() source.Pos { return e.Lbrace }
func (e *BlockExpr) exprNode()       {}

type BadExpr struct {
	From source.Pos
}

func (e *BadExpr) Pos() source.Pos { return e.From }
func (e *BadExpr) exprNode()       {}
