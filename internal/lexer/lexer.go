package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/elilang/eli/internal/source"
)

// Lexer turns a source text into a stream of tokens, one per Next call.
// It never fails: unrecognized input is reported as an ILLEGAL token so the
// parser can recover at a statement boundary.
type Lexer struct {
	src   string
	off   int  // byte offset of ch
	width int  // byte width of ch
	ch    rune // current character, 0 at end of input
	line  int
	col   int
	prev  Token // last token produced, for negative-literal disambiguation
}

func New(src string) *Lexer {
	l := &Lexer{src: src, line: 1, col: 1}
	if len(src) > 0 {
		l.ch, l.width = utf8.DecodeRuneInString(src)
	}
	return l
}

// Scan runs a fresh lexer over src and returns every token up to and
// including EOF.
func Scan(src string) []Token {
	l := New(src)
	var toks []Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Type == EOF {
			return toks
		}
	}
}

func (l *Lexer) read() {
	if l.ch == 0 {
		return
	}
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.off += l.width
	if l.off >= len(l.src) {
		l.ch, l.width = 0, 0
		return
	}
	l.ch, l.width = utf8.DecodeRuneInString(l.src[l.off:])
}

func (l *Lexer) peek() rune {
	if l.off+l.width >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.off+l.width:])
	return r
}

func (l *Lexer) pos() source.Pos {
	return source.Pos{Line: l.line, Col: l.col, Off: l.off}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (l *Lexer) Next() Token {
	t := l.scan()
	l.prev = t
	return t
}

func (l *Lexer) scan() Token {
	// skip spaces and comments
	for {
		for l.ch != 0 && unicode.IsSpace(l.ch) {
			l.read()
		}
		if l.ch == '/' && l.peek() == '/' {
			for l.ch != 0 && l.ch != '\n' {
				l.read()
			}
			continue
		}
		break
	}

	tok := Token{Pos: l.pos()}
	switch ch := l.ch; {
	case ch == 0:
		tok.Type = EOF
	case ch == '(':
		tok.Type = LPAREN
		l.take(&tok)
	case ch == ')':
		tok.Type = RPAREN
		l.take(&tok)
	case ch == '{':
		tok.Type = LBRACE
		l.take(&tok)
	case ch == '}':
		tok.Type = RBRACE
		l.take(&tok)
	case ch == ',':
		tok.Type = COMMA
		l.take(&tok)
	case ch == ':':
		tok.Type = COLON
		l.take(&tok)
	case ch == ';':
		tok.Type = SEMI
		l.take(&tok)
	case ch == '+':
		tok.Type = PLUS
		l.take(&tok)
	case ch == '*':
		tok.Type = STAR
		l.take(&tok)
	case ch == '/':
		tok.Type = SLASH
		l.take(&tok)
	case ch == '%':
		tok.Type = PERCENT
		l.take(&tok)
	case ch == '-':
		if l.peek() == '>' {
			tok.Type = ARROW
			l.read()
			l.take(&tok)
			break
		}
		// A '-' glued to a digit is a negative literal unless the previous
		// token can end an expression ("1-5" subtracts, "(-5)" negates).
		if isDigit(l.peek()) && !l.prev.endsOperand() {
			l.read()
			return l.scanNumber(tok.Pos)
		}
		tok.Type = MINUS
		l.take(&tok)
	case ch == '=':
		if l.peek() == '=' {
			tok.Type = EQEQ
			l.read()
		} else {
			tok.Type = ASSIGN
		}
		l.take(&tok)
	case ch == '!':
		if l.peek() == '=' {
			tok.Type = NEQ
			l.read()
		} else {
			tok.Type = BANG
		}
		l.take(&tok)
	case ch == '<':
		if l.peek() == '=' {
			tok.Type = LE
			l.read()
		} else {
			tok.Type = LT
		}
		l.take(&tok)
	case ch == '>':
		if l.peek() == '=' {
			tok.Type = GE
			l.read()
		} else {
			tok.Type = GT
		}
		l.take(&tok)
	case ch == '&':
		if l.peek() == '&' {
			tok.Type = ANDAND
			l.read()
			l.take(&tok)
		} else {
			l.illegal(&tok, "unexpected character '&'")
		}
	case ch == '|':
		if l.peek() == '|' {
			tok.Type = OROR
			l.read()
			l.take(&tok)
		} else {
			l.illegal(&tok, "unexpected character '|'")
		}
	case ch == '"':
		return l.scanString(tok.Pos)
	case isDigit(ch):
		return l.scanNumber(tok.Pos)
	case unicode.IsLetter(ch) || ch == '_':
		return l.scanIdent(tok.Pos)
	default:
		l.illegal(&tok, "unexpected character %q", string(ch))
	}
	return tok
}

// take consumes the current character and sets the token's lexeme from the
// source slice between its start and the lexer's position.
func (l *Lexer) take(tok *Token) {
	l.read()
	tok.Lex = l.src[tok.Pos.Off:l.off]
}

func (l *Lexer) illegal(tok *Token, format string, args ...interface{}) {
	tok.Type = ILLEGAL
	tok.Msg = fmt.Sprintf(format, args...)
	l.read()
	tok.Lex = l.src[tok.Pos.Off:l.off]
}

func (l *Lexer) scanIdent(start source.Pos) Token {
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		l.read()
	}
	lex := l.src[start.Off:l.off]
	tok := Token{Pos: start, Lex: lex}
	if kw, ok := keywords[lex]; ok {
		tok.Type = kw
		return tok
	}
	if strings.ContainsRune(lex, 'l') {
		tok.Type = ILLEGAL
		tok.Msg = "'l' faiLs the ELi Linter"
		return tok
	}
	tok.Type = IDENT
	return tok
}

// scanNumber consumes a maximal run of digits and dots starting at start
// (the '-' of a negative literal may already be consumed). A literal with
// more than one dot, or with letters glued directly onto the digit run, is
// an ILLEGAL token rather than a silently truncated number.
func (l *Lexer) scanNumber(start source.Pos) Token {
	dots := 0
	for isDigit(l.ch) || l.ch == '.' {
		if l.ch == '.' {
			dots++
		}
		l.read()
	}
	glued := false
	for unicode.IsLetter(l.ch) || l.ch == '_' {
		glued = true
		l.read()
	}
	lex := l.src[start.Off:l.off]
	tok := Token{Pos: start, Lex: lex}
	if glued || dots > 1 {
		tok.Type = ILLEGAL
		tok.Msg = fmt.Sprintf("malformed numeric literal %q", lex)
		return tok
	}
	if dots == 1 {
		f, err := strconv.ParseFloat(lex, 64)
		if err != nil {
			tok.Type = ILLEGAL
			tok.Msg = fmt.Sprintf("malformed numeric literal %q", lex)
			return tok
		}
		tok.Type = FLOAT
		tok.FloatVal = f
		return tok
	}
	n, err := strconv.ParseInt(lex, 10, 64)
	if err != nil {
		tok.Type = ILLEGAL
		tok.Msg = fmt.Sprintf("integer literal %q out of range", lex)
		return tok
	}
	tok.Type = INT
	tok.IntVal = n
	return tok
}

func (l *Lexer) scanString(start source.Pos) Token {
	l.read() // opening quote
	var sb strings.Builder
	var badEscape string
	for {
		switch {
		case l.ch == 0:
			return Token{
				Type: ILLEGAL,
				Pos:  start,
				Lex:  l.src[start.Off:l.off],
				Msg:  "unterminated string literal",
			}
		case l.ch == '"':
			l.read()
			tok := Token{Type: STRING, Pos: start, Lex: l.src[start.Off:l.off], StrVal: sb.String()}
			if badEscape != "" {
				tok.Type = ILLEGAL
				tok.Msg = fmt.Sprintf("unknown escape sequence '\\%s'", badEscape)
			}
			return tok
		case l.ch == '\\':
			l.read()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '0':
				sb.WriteByte(0)
			case 0:
				continue // unterminated, caught above
			default:
				if badEscape == "" {
					badEscape = string(l.ch)
				}
			}
			l.read()
		default:
			sb.WriteRune(l.ch)
			l.read()
		}
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
