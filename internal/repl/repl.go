// Package repl implements the interactive driver. Each submission is fed to
// a session; multi-line input is gathered until the source lexes as a
// complete unit.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/elilang/eli/internal/lexer"
	"github.com/elilang/eli/internal/session"
)

const historyFile = ".elilang_history"

type REPL struct {
	sess *session.Session
	opts session.Options
	out  io.Writer
	n    int
}

func New(opts session.Options, out io.Writer) *REPL {
	opts.Execute = true
	return &REPL{sess: session.New(opts), opts: opts, out: out}
}

// Run reads submissions until EOF or :quit. Ctrl-C discards the line being
// edited without leaving the loop.
func (r *REPL) Run() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(r.complete)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(r.out, "ELiLang %s (type :help for help)\n", session.Version)
	var buf strings.Builder
	for {
		prompt := "eli> "
		if buf.Len() > 0 {
			prompt = " ..> "
		}
		input, err := line.Prompt(prompt)
		switch err {
		case nil:
		case liner.ErrPromptAborted:
			buf.Reset()
			continue
		case io.EOF:
			fmt.Fprintln(r.out)
			return nil
		default:
			return errors.Wrap(err, "read input")
		}

		if buf.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ":") {
			line.AppendHistory(input)
			if quit := r.meta(strings.TrimSpace(input)); quit {
				return nil
			}
			continue
		}

		buf.WriteString(input)
		buf.WriteByte('\n')
		if needsMore(buf.String()) {
			continue
		}
		src := buf.String()
		buf.Reset()
		if strings.TrimSpace(src) == "" {
			continue
		}
		line.AppendHistory(strings.TrimRight(src, "\n"))
		r.submit(src)
	}
}

func (r *REPL) submit(src string) {
	name := fmt.Sprintf("repl[%d]", r.n)
	r.n++
	res, diags, err := r.sess.Submit(name, src)
	for _, d := range diags {
		fmt.Fprintln(r.out, d)
	}
	if err != nil {
		if errors.Is(err, session.ErrInternal) {
			fmt.Fprintf(r.out, "internal error: %v\n", err)
		} else {
			fmt.Fprintln(r.out, err)
		}
		return
	}
	if res != nil && res.HasValue {
		fmt.Fprintln(r.out, res.Value)
	}
}

// meta handles colon commands; it reports whether the REPL should exit.
func (r *REPL) meta(cmd string) bool {
	name, arg := cmd, ""
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		name, arg = cmd[:i], strings.TrimSpace(cmd[i+1:])
	}
	switch name {
	case ":quit", ":q":
		return true
	case ":help", ":h":
		fmt.Fprint(r.out, `:help          show this help
:ir            dump the accumulated LLVM module
:type <name>   show the type of a visible name
:reset         discard all definitions
:quit          exit
`)
	case ":ir":
		fmt.Fprint(r.out, r.sess.IR())
	case ":type":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: :type <name>")
			break
		}
		if t, ok := r.sess.LookupType(arg); ok {
			fmt.Fprintf(r.out, "%s: %s\n", arg, t)
		} else {
			fmt.Fprintf(r.out, "undefined name %s\n", arg)
		}
	case ":reset":
		r.sess = session.New(r.opts)
		fmt.Fprintln(r.out, "session reset")
	default:
		fmt.Fprintf(r.out, "unknown command %s (try :help)\n", name)
	}
	return false
}

func (r *REPL) complete(prefix string) []string {
	var out []string
	for _, name := range r.sess.Visible() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	for _, kw := range [...]string{"fn", "function", "let", "type", "return", "if", "else", "true", "false"} {
		if prefix != "" && strings.HasPrefix(kw, prefix) {
			out = append(out, kw)
		}
	}
	sort.Strings(out)
	return out
}

// needsMore reports whether src is an incomplete submission: unbalanced
// parens or braces, an unterminated string, or a trailing binary operator.
// Lex errors other than an unterminated string count as complete so they
// reach the parser and get reported.
func needsMore(src string) bool {
	toks := lexer.Scan(src)
	depth := 0
	var last lexer.Token
	for _, t := range toks {
		switch t.Type {
		case lexer.EOF:
			continue
		case lexer.LPAREN, lexer.LBRACE:
			depth++
		case lexer.RPAREN, lexer.RBRACE:
			depth--
		case lexer.ILLEGAL:
			if strings.HasPrefix(t.Msg, "unterminated string") {
				return true
			}
		}
		last = t
	}
	if depth > 0 {
		return true
	}
	switch last.Type {
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT,
		lexer.ANDAND, lexer.OROR, lexer.EQEQ, lexer.NEQ, lexer.LT, lexer.LE,
		lexer.GT, lexer.GE, lexer.ASSIGN, lexer.ARROW, lexer.COMMA, lexer.COLON:
		return true
	}
	return false
}
