package lexer

import "github.com/elilang/eli/internal/source"

type TokenType int

const (
	// Special
	EOF TokenType = iota
	ILLEGAL

	// Identifiers + literals
	IDENT
	INT
	FLOAT
	STRING

	// Keywords
	KW_FN
	KW_LET
	KW_TYPE
	KW_RETURN
	KW_IF
	KW_ELSE
	KW_TRUE
	KW_FALSE

	// Delimiters
	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }
	COMMA  // ,
	COLON  // :
	SEMI   // ;
	ARROW  // ->

	// Operators
	ASSIGN  // =
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	BANG    // !

	// Comparison
	EQEQ // ==
	NEQ  // !=
	LT   // <
	LE   // <=
	GT   // >
	GE   // >=

	// Logical
	ANDAND // &&
	OROR   // ||
)

var tokenNames = map[TokenType]string{
	EOF:       "end of input",
	ILLEGAL:   "illegal token",
	IDENT:     "identifier",
	INT:       "integer literal",
	FLOAT:     "float literal",
	STRING:    "string literal",
	KW_FN:     "'fn'",
	KW_LET:    "'let'",
	KW_TYPE:   "'type'",
	KW_RETURN: "'return'",
	KW_IF:     "'if'",
	KW_ELSE:   "'else'",
	KW_TRUE:   "'true'",
	KW_FALSE:  "'false'",
	LPAREN:    "'('",
	RPAREN:    "')'",
	LBRACE:    "'{'",
	RBRACE:    "'}'",
	COMMA:     "','",
	COLON:     "':'",
	SEMI:      "';'",
	ARROW:     "'->'",
	ASSIGN:    "'='",
	PLUS:      "'+'",
	MINUS:     "'-'",
	STAR:      "'*'",
	SLASH:     "'/'",
	PERCENT:   "'%'",
	BANG:      "'!'",
	EQEQ:      "'=='",
	NEQ:       "'!='",
	LT:        "'<'",
	LE:        "'<='",
	GT:        "'>'",
	GE:        "'>='",
	ANDAND:    "'&&'",
	OROR:      "'||'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "unknown token"
}

// keywords maps identifier spellings to keyword token types. "function" is an
// accepted alias for "fn".
var keywords = map[string]TokenType{
	"fn":       KW_FN,
	"function": KW_FN,
	"let":      KW_LET,
	"type":     KW_TYPE,
	"return":   KW_RETURN,
	"if":       KW_IF,
	"else":     KW_ELSE,
	"true":     KW_TRUE,
	"false":    KW_FALSE,
}

// Token is one lexical element. Lex holds the raw source spelling; literal
// tokens additionally carry their decoded value. ILLEGAL tokens carry a
// description of the problem in Msg. Tokens are immutable once produced.
type Token struct {
	Type TokenType
	Lex  string
	Pos  source.Pos

	IntVal   int64   // decoded value when Type == INT
	FloatVal float64 // decoded value when Type == FLOAT
	StrVal   string  // decoded value when Type == STRING

	Msg string // problem description when Type == ILLEGAL
}

func (t Token) Is(tt TokenType) bool { return t.Type == tt }

// endsOperand reports whether the token can be the final token of an
// expression. The lexer uses this to decide whether a following '-' starts a
// negative numeric literal or is the binary minus operator.
func (t Token) endsOperand() bool {
	switch t.Type {
	case IDENT, INT, FLOAT, STRING, KW_TRUE, KW_FALSE, RPAREN, RBRACE:
		return true
	}
	return false
}
