package ast

import (
	"io"
	"strings"
)

// Sprint renders a node in canonical form. Re-parsing the output of a
// well-formed tree yields a structurally identical tree; Bad* nodes have no
// canonical form and are rendered as a placeholder.
func Sprint(n Node) string {
	p := &printer{}
	p.node(n)
	return p.sb.String()
}

// Fprint writes the canonical form of n to w.
func Fprint(w io.Writer, n Node) error {
	_, err := io.WriteString(w, Sprint(n))
	return err
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) str(s string) { p.sb.WriteString(s) }

func (p *printer) line() {
	p.sb.WriteByte('\n')
	for i := 0; i < p.indent; i++ {
		p.sb.WriteByte('\t')
	}
}

func (p *printer) node(n Node) {
	switch n := n.(type) {
	case *Unit:
		for i, item := range n.Items {
			if i > 0 {
				p.line()
			}
			p.node(item)
		}
	case Stmt:
		p.stmt(n)
	case Expr:
		p.expr(n, 0)
	case *Param:
		p.str(n.Name.Name)
		p.str(": ")
		p.str(n.Type.Name)
	case *TypeRef:
		p.str(n.Name)
	}
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *FuncDecl:
		p.str("fn ")
		p.str(s.Name.Name)
		p.str("(")
		for i, param := range s.Params {
			if i > 0 {
				p.str(", ")
			}
			p.node(param)
		}
		p.str(")")
		if s.Result != nil {
			p.str(" -> ")
			p.str(s.Result.Name)
		}
		p.str(" ")
		p.block(s.Body)
	case *TypeDecl:
		p.str("type ")
		p.str(s.Name.Name)
		p.str(" = ")
		p.str(s.Aliased.Name)
	case *LetStmt:
		p.str("let ")
		p.str(s.Name.Name)
		if s.Type != nil {
			p.str(": ")
			p.str(s.Type.Name)
		}
		p.str(" = ")
		p.expr(s.Init, 0)
	case *ReturnStmt:
		p.str("return")
		if s.Result != nil {
			p.str(" ")
			p.expr(s.Result, 0)
		}
	case *ExprStmt:
		p.expr(s.X, 0)
	case *BadDecl, *BadStmt:
		p.str("«bad»")
	}
}

func (p *printer) block(b *BlockExpr) {
	if len(b.Stmts) == 0 {
		p.str("{ }")
		return
	}
	p.str("{")
	p.indent++
	for _, s := range b.Stmts {
		p.line()
		p.stmt(s)
	}
	p.indent--
	p.line()
	p.str("}")
}

// expr prints e, parenthesising when its precedence is below the context
// precedence so that the output re-parses with the same shape.
func (p *printer) expr(e Expr, ctx int) {
	switch e := e.(type) {
	case *Ident:
		p.str(e.Name)
	case *BasicLit:
		p.str(e.Lex)
	case *BinaryExpr:
		prec := e.Op.Precedence()
		if prec < ctx {
			p.str("(")
		}
		p.expr(e.X, prec)
		p.str(" ")
		p.str(e.Op.String())
		p.str(" ")
		p.expr(e.Y, prec+1)
		if prec < ctx {
			p.str(")")
		}
	case *AssignExpr:
		if PrecAssign < ctx {
			p.str("(")
		}
		p.expr(e.Target, PrecAssign+1)
		p.str(" = ")
		p.expr(e.Value, PrecAssign)
		if PrecAssign < ctx {
			p.str(")")
		}
	case *UnaryExpr:
		p.str(e.Op.String())
		if e.Op == OpNeg {
			// "-5" would re-lex as a single negative literal; keep the
			// operator its own token.
			if lit, ok := e.X.(*BasicLit); ok && (lit.Kind == IntLit || lit.Kind == FloatLit) && !strings.HasPrefix(lit.Lex, "-") {
				p.str(" ")
			}
		}
		p.expr(e.X, PrecUnary)
	case *CallExpr:
		p.expr(e.Fun, PrecUnary+1)
		p.str("(")
		for i, a := range e.Args {
			if i > 0 {
				p.str(", ")
			}
			p.expr(a, 0)
		}
		p.str(")")
	case *ParenExpr:
		p.str("(")
		p.expr(e.X, 0)
		p.str(")")
	case *IfExpr:
		p.str("if ")
		p.expr(e.Cond, 0)
		p.str(" ")
		p.block(e.Then)
		if e.Else != nil {
			p.str(" else ")
			if blk, ok := e.Else.(*BlockExpr); ok {
				p.block(blk)
			} else {
				p.expr(e.Else, 0)
			}
		}
	case *BlockExpr:
		p.block(e)
	case *BadExpr:
		p.str("«bad»")
	}
}
