package sema

import (
	"fmt"

	"github.com/elilang/eli/internal/source"
	"github.com/elilang/eli/internal/types"
)

// SymKind categorizes symbols.
type SymKind int

const (
	SymVar SymKind = iota
	SymParam
	SymFunc
	SymType
)

func (k SymKind) String() string {
	switch k {
	case SymVar:
		return "variable"
	case SymParam:
		return "parameter"
	case SymFunc:
		return "function"
	case SymType:
		return "type"
	default:
		return "symbol"
	}
}

// Symbol is a declaration's identity. Symbols are owned by the scope that
// declares them and are never shared mutably across scopes.
type Symbol struct {
	Name  string
	Kind  SymKind
	Type  types.Type
	Pos   source.Pos
	Depth int

	// IRName is the mangled name of this symbol's definition in the IR
	// module, filled in by the code generator for top-level symbols.
	IRName string
}

// Scope maps names to symbols. Child scopes hold a back-reference to their
// parent, never an owning edge, so the chain stays acyclic. The REPL keeps a
// persistent chain of top-level frames; block and function scopes are
// discarded after checking.
type Scope struct {
	parent *Scope
	depth  int
	names  []string // declaration order
	syms   map[string]*Symbol
}

func NewScope(parent *Scope) *Scope {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	return &Scope{parent: parent, depth: depth, syms: make(map[string]*Symbol)}
}

func (s *Scope) Parent() *Scope { return s.parent }
func (s *Scope) Depth() int     { return s.depth }

// Declare binds sym in this scope. Redeclaring a name already bound in this
// same scope is an error; shadowing an outer scope is not.
func (s *Scope) Declare(sym *Symbol) error {
	if prev, ok := s.syms[sym.Name]; ok {
		return fmt.Errorf("%s %s redeclared in this scope (previous declaration at %s)", prev.Kind, sym.Name, prev.Pos)
	}
	sym.Depth = s.depth
	s.syms[sym.Name] = sym
	s.names = append(s.names, sym.Name)
	return nil
}

// Lookup resolves name through the innermost enclosing scope chain.
func (s *Scope) Lookup(name string) *Symbol {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.syms[name]; ok {
			return sym
		}
	}
	return nil
}

// LookupLocal resolves name in this scope only.
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.syms[name]
}

// Names returns the names declared in this scope, in declaration order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Visible flattens the scope chain into the set of symbols reachable from s,
// innermost declaration winning. Used to observe the REPL's visible symbol
// set.
func (s *Scope) Visible() map[string]*Symbol {
	out := make(map[string]*Symbol)
	var walk func(sc *Scope)
	walk = func(sc *Scope) {
		if sc == nil {
			return
		}
		walk(sc.parent)
		for name, sym := range sc.syms {
			out[name] = sym
		}
	}
	walk(s)
	return out
}

// Universe returns a fresh scope holding the predeclared types. Note the
// capital-L spellings: the surface language rejects identifiers containing a
// lowercase 'l'.
func Universe() *Scope {
	u := &Scope{depth: 0, syms: make(map[string]*Symbol)}
	for _, t := range []types.Type{types.IntT(), types.FloatT(), types.BoolT(), types.StringT(), types.UnitT()} {
		u.Declare(&Symbol{Name: t.String(), Kind: SymType, Type: t})
	}
	return u
}
