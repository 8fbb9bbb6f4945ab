// Package session drives the compilation pipeline and owns the state that
// persists across submissions: the scope chain, the evaluation environment,
// and the accumulating IR module. The REPL and the batch compiler are both
// thin shells around a Session.
package session

import (
	"github.com/llir/llvm/ir"

	"github.com/elilang/eli/internal/codegen"
	"github.com/elilang/eli/internal/diag"
	"github.com/elilang/eli/internal/eval"
	"github.com/elilang/eli/internal/fold"
	"github.com/elilang/eli/internal/parser"
	"github.com/elilang/eli/internal/sema"
)

const Version = "0.3.0"

type Options struct {
	Overflow codegen.OverflowMode

	// Execute runs accepted units through the evaluator. Batch compilation
	// leaves it off; the REPL turns it on.
	Execute bool
}

// Result is a committed submission's outcome.
type Result struct {
	// Value is the value of the unit's last top-level expression statement.
	// HasValue is false for declaration-only or Unit-valued submissions, and
	// always false when Execute is off.
	Value    eval.Value
	HasValue bool
	Warnings []diag.Diagnostic
}

// Session holds one pipeline instance. Each accepted submission pushes a new
// scope frame and environment frame; rejected submissions leave no trace.
type Session struct {
	opts   Options
	gen    *codegen.Generator
	interp *eval.Interp
	scope  *sema.Scope
	env    *eval.Env
}

func New(opts Options) *Session {
	return &Session{
		opts:   opts,
		gen:    codegen.New(ir.NewModule(), codegen.Config{Overflow: opts.Overflow}),
		interp: eval.New(opts.Overflow == codegen.Trap),
		scope:  sema.Universe(),
		env:    eval.NewEnv(nil),
	}
}

// Submit compiles one unit of source. Source problems come back in diags;
// res is non-nil only when the unit was accepted and committed. A non-nil
// err is not a source diagnostic: it is either an internal code generator
// fault (errors.Is(err, codegen.ErrInternal)) or a runtime fault from
// executing the unit (*eval.Error). Either way the session state is as if
// the submission never happened, except that assignments a partially
// executed unit made to previously committed variables are not undone.
func (s *Session) Submit(name, src string) (res *Result, diags []diag.Diagnostic, err error) {
	var bag diag.Bag

	u := parser.ParseUnit(name, src, &bag)
	if bag.HasErrors() {
		return nil, bag.Diagnostics(), nil
	}

	frame := sema.NewScope(s.scope)
	info := sema.Check(u, frame, &bag)
	if bag.HasErrors() {
		return nil, bag.Diagnostics(), nil
	}
	fold.Unit(u, info)

	snap := s.gen.Snapshot()
	if err := s.gen.Unit(u, info); err != nil {
		return nil, bag.Diagnostics(), err
	}

	res = &Result{Warnings: bag.Warnings()}
	envFrame := eval.NewEnv(s.env)
	if s.opts.Execute {
		val, ok, err := s.interp.ExecUnit(u, info, envFrame)
		if err != nil {
			s.gen.Rollback(snap)
			return nil, bag.Diagnostics(), err
		}
		res.Value, res.HasValue = val, ok
	}

	s.scope, s.env = frame, envFrame
	return res, bag.Diagnostics(), nil
}

// IR renders the accumulated module as LLVM assembly.
func (s *Session) IR() string {
	return s.gen.Module().String()
}

// Visible returns the names bound in the session's scope chain, for
// completion. Predeclared type names are included.
func (s *Session) Visible() []string {
	syms := s.scope.Visible()
	names := make([]string, 0, len(syms))
	for name := range syms {
		names = append(names, name)
	}
	return names
}

// LookupType reports the type of a visible name, for inspection commands.
func (s *Session) LookupType(name string) (string, bool) {
	sym := s.scope.Lookup(name)
	if sym == nil {
		return "", false
	}
	return sym.Type.String(), true
}

// ErrInternal aids callers that only import session.
var ErrInternal = codegen.ErrInternal
