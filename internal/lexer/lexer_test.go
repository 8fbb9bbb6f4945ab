package lexer

import (
	"reflect"
	"strings"
	"testing"
)

func kinds(toks []Token) []TokenType {
	var out []TokenType
	for _, t := range toks {
		if t.Type == EOF {
			break
		}
		out = append(out, t.Type)
	}
	return out
}

func wantKinds(t *testing.T, src string, want []TokenType) []Token {
	t.Helper()
	got := Scan(src)
	if !reflect.DeepEqual(kinds(got), want) {
		t.Fatalf("source %q:\nwant %v\ngot  %v", src, want, kinds(got))
	}
	return got
}

func TestScanFunctionDecl(t *testing.T) {
	src := "fn add(x: Int, y: Int) -> Int { x + y }"
	wantKinds(t, src, []TokenType{
		KW_FN, IDENT, LPAREN, IDENT, COLON, IDENT, COMMA, IDENT, COLON, IDENT,
		RPAREN, ARROW, IDENT, LBRACE, IDENT, PLUS, IDENT, RBRACE,
	})
}

func TestFunctionKeywordAlias(t *testing.T) {
	toks := wantKinds(t, "function f() { 1 }", []TokenType{
		KW_FN, IDENT, LPAREN, RPAREN, LBRACE, INT, RBRACE,
	})
	if toks[0].Lex != "function" {
		t.Fatalf("alias lexeme = %q, want %q", toks[0].Lex, "function")
	}
}

func TestPositions(t *testing.T) {
	src := "let x = 1\nx + 2"
	toks := Scan(src)
	want := []struct{ line, col int }{
		{1, 1}, {1, 5}, {1, 7}, {1, 9},
		{2, 1}, {2, 3}, {2, 5},
	}
	for i, w := range want {
		if toks[i].Pos.Line != w.line || toks[i].Pos.Col != w.col {
			t.Errorf("token %d (%s): at %s, want %d:%d", i, toks[i].Lex, toks[i].Pos, w.line, w.col)
		}
	}
}

func TestLowercaseLRejected(t *testing.T) {
	for _, name := range []string{"value", "log", "l", "helper_l"} {
		toks := Scan(name)
		if toks[0].Type != ILLEGAL {
			t.Errorf("%q: got %v, want ILLEGAL", name, toks[0].Type)
			continue
		}
		if toks[0].Msg != "'l' faiLs the ELi Linter" {
			t.Errorf("%q: msg = %q", name, toks[0].Msg)
		}
	}
}

func TestLowercaseLAllowedInKeywordsAndCapitals(t *testing.T) {
	for src, want := range map[string]TokenType{
		"let":   KW_LET,
		"else":  KW_ELSE,
		"false": KW_FALSE,
		"FLoat": IDENT,
		"BooL":  IDENT,
		"vaLue": IDENT,
	} {
		if got := Scan(src)[0].Type; got != want {
			t.Errorf("%q: got %v, want %v", src, got, want)
		}
	}
}

func TestNegativeLiteralDisambiguation(t *testing.T) {
	tests := []struct {
		src  string
		want []TokenType
	}{
		{"1-5", []TokenType{INT, MINUS, INT}},
		{"x-5", []TokenType{IDENT, MINUS, INT}},
		{"(-5)", []TokenType{LPAREN, INT, RPAREN}},
		{"= -5", []TokenType{ASSIGN, INT}},
		{"f(-5)", []TokenType{IDENT, LPAREN, INT, RPAREN}},
		{"(1)-5", []TokenType{LPAREN, INT, RPAREN, MINUS, INT}},
		{"- 5", []TokenType{MINUS, INT}},
		{"-5.5", []TokenType{FLOAT}},
	}
	for _, tt := range tests {
		toks := wantKinds(t, tt.src, tt.want)
		for _, tok := range toks {
			if tok.Type == INT && strings.HasPrefix(tok.Lex, "-") && tok.IntVal >= 0 {
				t.Errorf("%q: negative literal decoded as %d", tt.src, tok.IntVal)
			}
		}
	}
}

func TestNegativeLiteralValue(t *testing.T) {
	toks := Scan("let x = -42")
	if toks[3].Type != INT || toks[3].IntVal != -42 {
		t.Fatalf("got %v %d, want INT -42", toks[3].Type, toks[3].IntVal)
	}
}

func TestArrowVersusMinus(t *testing.T) {
	wantKinds(t, "-> - >", []TokenType{ARROW, MINUS, GT})
}

func TestMalformedNumbers(t *testing.T) {
	for _, src := range []string{"1.2.3", "12abc", "3x", "1._"} {
		toks := Scan(src)
		if toks[0].Type != ILLEGAL {
			t.Errorf("%q: got %v, want ILLEGAL", src, toks[0].Type)
			continue
		}
		if !strings.HasPrefix(toks[0].Msg, "malformed numeric literal") {
			t.Errorf("%q: msg = %q", src, toks[0].Msg)
		}
		if toks[1].Type != EOF {
			t.Errorf("%q: malformed literal not consumed as one token", src)
		}
	}
}

func TestIntegerOutOfRange(t *testing.T) {
	toks := Scan("9223372036854775808")
	if toks[0].Type != ILLEGAL || !strings.Contains(toks[0].Msg, "out of range") {
		t.Fatalf("got %v %q", toks[0].Type, toks[0].Msg)
	}
	toks = Scan("9223372036854775807")
	if toks[0].Type != INT || toks[0].IntVal != 9223372036854775807 {
		t.Fatalf("max int: got %v %d", toks[0].Type, toks[0].IntVal)
	}
}

func TestStringEscapes(t *testing.T) {
	toks := Scan(`"a\n\t\"b\\"`)
	if toks[0].Type != STRING {
		t.Fatalf("got %v (%s)", toks[0].Type, toks[0].Msg)
	}
	if want := "a\n\t\"b\\"; toks[0].StrVal != want {
		t.Fatalf("decoded %q, want %q", toks[0].StrVal, want)
	}
}

func TestUnterminatedString(t *testing.T) {
	toks := Scan("\"abc")
	if toks[0].Type != ILLEGAL || toks[0].Msg != "unterminated string literal" {
		t.Fatalf("got %v %q", toks[0].Type, toks[0].Msg)
	}
}

func TestUnknownEscape(t *testing.T) {
	toks := Scan(`"a\qb" 1`)
	if toks[0].Type != ILLEGAL || !strings.Contains(toks[0].Msg, `\q`) {
		t.Fatalf("got %v %q", toks[0].Type, toks[0].Msg)
	}
	// scanning resumes after the closing quote
	if toks[1].Type != INT {
		t.Fatalf("token after bad string: %v", toks[1].Type)
	}
}

func TestCommentsSkipped(t *testing.T) {
	wantKinds(t, "1 // comment with l and \"quotes\"\n2", []TokenType{INT, INT})
	wantKinds(t, "// only a comment", nil)
}

func TestNextAfterEOF(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		if tok := l.Next(); tok.Type != EOF {
			t.Fatalf("call %d: got %v", i, tok.Type)
		}
	}
}
