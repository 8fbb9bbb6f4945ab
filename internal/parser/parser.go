package parser

import (
	"github.com/elilang/eli/internal/ast"
	"github.com/elilang/eli/internal/diag"
	"github.com/elilang/eli/internal/lexer"
)

// Parser consumes the token stream and produces one *ast.Unit per call to
// ParseUnit. Syntax errors are recorded in the diagnostic bag and the parser
// recovers at the next statement boundary, so a single error does not abort
// the rest of the unit.
type Parser struct {
	lx  *lexer.Lexer
	tok lexer.Token
	bag *diag.Bag
}

// ParseUnit parses one compilation unit: a whole file or one REPL input.
// It always returns a well-formed tree; unrecoverable regions appear as
// Bad* placeholder nodes.
func ParseUnit(name, src string, bag *diag.Bag) *ast.Unit {
	p := &Parser{lx: lexer.New(src), bag: bag}
	p.next()
	u := &ast.Unit{Name: name}
	for p.tok.Type != lexer.EOF {
		if p.tok.Type == lexer.SEMI {
			p.next()
			continue
		}
		off := p.tok.Pos.Off
		if item := p.parseItem(); item != nil {
			u.Items = append(u.Items, item)
		}
		// A stray closer is left in place by recovery; skip it here so the
		// loop always makes progress.
		if p.tok.Type != lexer.EOF && p.tok.Pos.Off == off {
			p.next()
		}
	}
	return u
}

// next advances to the following token. Error tokens from the lexer are
// reported here, once each, and skipped.
func (p *Parser) next() {
	for {
		p.tok = p.lx.Next()
		if p.tok.Type != lexer.ILLEGAL {
			return
		}
		p.bag.Errorf(diag.Lex, p.tok.Pos, "%s", p.tok.Msg)
	}
}

func (p *Parser) errorf(pos lexer.Token, format string, args ...interface{}) {
	p.bag.Errorf(diag.Syntax, pos.Pos, format, args...)
}

// sync skips tokens until a statement boundary: past the next semicolon, or
// up to a token that can begin or end a statement.
func (p *Parser) sync() {
	for {
		switch p.tok.Type {
		case lexer.EOF, lexer.RBRACE, lexer.KW_FN, lexer.KW_LET, lexer.KW_TYPE, lexer.KW_RETURN:
			return
		case lexer.SEMI:
			p.next()
			return
		}
		p.next()
	}
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, bool) {
	if p.tok.Type != tt {
		p.errorf(p.tok, "expected %s, found %s", tt, p.describe())
		return p.tok, false
	}
	t := p.tok
	p.next()
	return t, true
}

func (p *Parser) describe() string {
	switch p.tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.IDENT, lexer.INT, lexer.FLOAT:
		return "'" + p.tok.Lex + "'"
	default:
		return p.tok.Type.String()
	}
}

func (p *Parser) expectIdent() (*ast.Ident, bool) {
	t, ok := p.expect(lexer.IDENT)
	if !ok {
		return nil, false
	}
	return &ast.Ident{NamePos: t.Pos, Name: t.Lex}, true
}

// semi consumes an optional statement terminator.
func (p *Parser) semi() {
	if p.tok.Type == lexer.SEMI {
		p.next()
	}
}

func (p *Parser) parseItem() ast.Node {
	switch p.tok.Type {
	case lexer.KW_FN:
		return p.parseFunc()
	case lexer.KW_TYPE:
		return p.parseTypeDecl()
	case lexer.KW_LET:
		return p.parseLet()
	case lexer.KW_RETURN:
		// Parsed here so the resolver can report it with a proper position.
		return p.parseReturn()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseFunc() ast.Node {
	fnPos := p.tok.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		p.sync()
		return &ast.BadDecl{From: fnPos}
	}
	if _, ok := p.expect(lexer.LPAREN); !ok {
		p.sync()
		return &ast.BadDecl{From: fnPos}
	}
	params, ok := p.parseParams()
	if !ok {
		p.sync()
		return &ast.BadDecl{From: fnPos}
	}
	var result *ast.TypeRef
	if p.tok.Type == lexer.ARROW {
		p.next()
		result, ok = p.parseTypeRef()
		if !ok {
			p.sync()
			return &ast.BadDecl{From: fnPos}
		}
	}
	if p.tok.Type != lexer.LBRACE {
		p.errorf(p.tok, "expected function body, found %s", p.describe())
		p.sync()
		return &ast.BadDecl{From: fnPos}
	}
	body := p.parseBlock()
	return &ast.FuncDecl{Fn: fnPos, Name: name, Params: params, Result: result, Body: body}
}

func (p *Parser) parseParams() ([]*ast.Param, bool) {
	var params []*ast.Param
	if p.tok.Type == lexer.RPAREN {
		p.next()
		return params, true
	}
	for {
		name, ok := p.expectIdent()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(lexer.COLON); !ok {
			return nil, false
		}
		typ, ok := p.parseTypeRef()
		if !ok {
			return nil, false
		}
		params = append(params, &ast.Param{Name: name, Type: typ})
		if p.tok.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	if _, ok := p.expect(lexer.RPAREN); !ok {
		return nil, false
	}
	return params, true
}

func (p *Parser) parseTypeRef() (*ast.TypeRef, bool) {
	t, ok := p.expect(lexer.IDENT)
	if !ok {
		return nil, false
	}
	return &ast.TypeRef{NamePos: t.Pos, Name: t.Lex}, true
}

func (p *Parser) parseTypeDecl() ast.Node {
	typePos := p.tok.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		p.sync()
		return &ast.BadDecl{From: typePos}
	}
	if _, ok := p.expect(lexer.ASSIGN); !ok {
		p.sync()
		return &ast.BadDecl{From: typePos}
	}
	aliased, ok := p.parseTypeRef()
	if !ok {
		p.sync()
		return &ast.BadDecl{From: typePos}
	}
	p.semi()
	return &ast.TypeDecl{TypePos: typePos, Name: name, Aliased: aliased}
}

func (p *Parser) parseLet() ast.Stmt {
	letPos := p.tok.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		p.sync()
		return &ast.BadStmt{From: letPos}
	}
	var typ *ast.TypeRef
	if p.tok.Type == lexer.COLON {
		p.next()
		typ, ok = p.parseTypeRef()
		if !ok {
			p.sync()
			return &ast.BadStmt{From: letPos}
		}
	}
	if _, ok := p.expect(lexer.ASSIGN); !ok {
		p.sync()
		return &ast.BadStmt{From: letPos}
	}
	init := p.parseExpr(1)
	if _, bad := init.(*ast.BadExpr); bad {
		p.sync()
		return &ast.BadStmt{From: letPos}
	}
	p.semi()
	return &ast.LetStmt{Let: letPos, Name: name, Type: typ, Init: init}
}

func (p *Parser) parseReturn() ast.Stmt {
	retPos := p.tok.Pos
	p.next()
	var result ast.Expr
	switch p.tok.Type {
	case lexer.SEMI, lexer.RBRACE, lexer.EOF:
	default:
		result = p.parseExpr(1)
		if _, bad := result.(*ast.BadExpr); bad {
			p.sync()
			return &ast.BadStmt{From: retPos}
		}
	}
	p.semi()
	return &ast.ReturnStmt{Return: retPos, Result: result}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	from := p.tok.Pos
	e := p.parseExpr(1)
	if _, bad := e.(*ast.BadExpr); bad {
		p.sync()
		return &ast.BadStmt{From: from}
	}
	p.semi()
	return &ast.ExprStmt{X: e}
}

func (p *Parser) parseBlock() *ast.BlockExpr {
	lbrace, _ := p.expect(lexer.LBRACE)
	blk := &ast.BlockExpr{Lbrace: lbrace.Pos}
	for p.tok.Type != lexer.RBRACE && p.tok.Type != lexer.EOF {
		if p.tok.Type == lexer.SEMI {
			p.next()
			continue
		}
		blk.Stmts = append(blk.Stmts, p.parseStmt())
	}
	rbrace, _ := p.expect(lexer.RBRACE)
	blk.Rbrace = rbrace.Pos
	return blk
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.tok.Type {
	case lexer.KW_LET:
		return p.parseLet()
	case lexer.KW_RETURN:
		return p.parseReturn()
	case lexer.KW_FN:
		p.errorf(p.tok, "functions may only be declared at the top level")
		p.next()
		p.sync()
		return &ast.BadStmt{From: p.tok.Pos}
	case lexer.KW_TYPE:
		p.errorf(p.tok, "type aliases may only be declared at the top level")
		p.next()
		p.sync()
		return &ast.BadStmt{From: p.tok.Pos}
	default:
		return p.parseExprStmt()
	}
}

// parseExpr implements precedence climbing over the fixed operator table:
// unary > multiplicative > additive > comparison > && > || > assignment.
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()
	if _, bad := left.(*ast.BadExpr); bad {
		return left
	}
	for {
		if p.tok.Type == lexer.ASSIGN && minPrec <= ast.PrecAssign {
			opPos := p.tok.Pos
			p.next()
			value := p.parseExpr(ast.PrecAssign) // right-associative
			left = &ast.AssignExpr{Target: left, OpPos: opPos, Value: value}
			continue
		}
		op, ok := binOpFor(p.tok.Type)
		if !ok || op.Precedence() < minPrec {
			return left
		}
		opPos := p.tok.Pos
		p.next()
		right := p.parseExpr(op.Precedence() + 1)
		left = &ast.BinaryExpr{Op: op, OpPos: opPos, X: left, Y: right}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.tok.Type {
	case lexer.MINUS:
		opPos := p.tok.Pos
		p.next()
		return &ast.UnaryExpr{Op: ast.OpNeg, OpPos: opPos, X: p.parseUnary()}
	case lexer.BANG:
		opPos := p.tok.Pos
		p.next()
		return &ast.UnaryExpr{Op: ast.OpNot, OpPos: opPos, X: p.parseUnary()}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for p.tok.Type == lexer.LPAREN {
		lparen := p.tok.Pos
		p.next()
		var args []ast.Expr
		if p.tok.Type != lexer.RPAREN {
			for {
				args = append(args, p.parseExpr(1))
				if p.tok.Type == lexer.COMMA {
					p.next()
					continue
				}
				break
			}
		}
		rparen, _ := p.expect(lexer.RPAREN)
		e = &ast.CallExpr{Fun: e, Lparen: lparen, Args: args, Rparen: rparen.Pos}
	}
	return e
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.tok
	switch tok.Type {
	case lexer.IDENT:
		p.next()
		return &ast.Ident{NamePos: tok.Pos, Name: tok.Lex}
	case lexer.INT:
		p.next()
		return &ast.BasicLit{LitPos: tok.Pos, Kind: ast.IntLit, Lex: tok.Lex, Int: tok.IntVal}
	case lexer.FLOAT:
		p.next()
		return &ast.BasicLit{LitPos: tok.Pos, Kind: ast.FloatLit, Lex: tok.Lex, Float: tok.FloatVal}
	case lexer.STRING:
		p.next()
		return &ast.BasicLit{LitPos: tok.Pos, Kind: ast.StringLit, Lex: tok.Lex, Str: tok.StrVal}
	case lexer.KW_TRUE:
		p.next()
		return &ast.BasicLit{LitPos: tok.Pos, Kind: ast.BoolLit, Lex: "true", Bool: true}
	case lexer.KW_FALSE:
		p.next()
		return &ast.BasicLit{LitPos: tok.Pos, Kind: ast.BoolLit, Lex: "false", Bool: false}
	case lexer.LPAREN:
		p.next()
		inner := p.parseExpr(1)
		p.expect(lexer.RPAREN)
		return &ast.ParenExpr{Lparen: tok.Pos, X: inner}
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.KW_IF:
		return p.parseIf()
	default:
		p.errorf(tok, "expected expression, found %s", p.describe())
		// Leave boundary tokens for the caller so recovery can stop there.
		switch tok.Type {
		case lexer.EOF, lexer.SEMI, lexer.RBRACE, lexer.RPAREN:
		default:
			p.next()
		}
		return &ast.BadExpr{From: tok.Pos}
	}
}

func (p *Parser) parseIf() ast.Expr {
	ifPos := p.tok.Pos
	p.next()
	cond := p.parseExpr(1)
	if p.tok.Type != lexer.LBRACE {
		p.errorf(p.tok, "expected block after if condition, found %s", p.describe())
		return &ast.BadExpr{From: ifPos}
	}
	then := p.parseBlock()
	var els ast.Expr
	if p.tok.Type == lexer.KW_ELSE {
		p.next()
		switch p.tok.Type {
		case lexer.KW_IF:
			els = p.parseIf()
		case lexer.LBRACE:
			els = p.parseBlock()
		default:
			p.errorf(p.tok, "expected block or if after else, found %s", p.describe())
			return &ast.BadExpr{From: ifPos}
		}
	}
	return &ast.IfExpr{If: ifPos, Cond: cond, Then: then, Else: els}
}

func binOpFor(t lexer.TokenType) (ast.BinOp, bool) {
	switch t {
	case lexer.PLUS:
		return ast.OpAdd, true
	case lexer.MINUS:
		return ast.OpSub, true
	case lexer.STAR:
		return ast.OpMul, true
	case lexer.SLASH:
		return ast.OpDiv, true
	case lexer.PERCENT:
		return ast.OpMod, true
	case lexer.EQEQ:
		return ast.OpEq, true
	case lexer.NEQ:
		return ast.OpNe, true
	case lexer.LT:
		return ast.OpLt, true
	case lexer.LE:
		return ast.OpLe, true
	case lexer.GT:
		return ast.OpGt, true
	case lexer.GE:
		return ast.OpGe, true
	case lexer.ANDAND:
		return ast.OpLAnd, true
	case lexer.OROR:
		return ast.OpLOr, true
	default:
		return 0, false
	}
}
