package types

import "strings"

// Kind discriminates the type variants of the language.
type Kind int

const (
	Invalid Kind = iota // error sentinel, suppresses cascading diagnostics
	Int                 // 64-bit signed integer
	Float               // IEEE754 binary64, spelled "FLoat" in source
	Bool                // spelled "BooL" in source
	String
	Unit
	Func
	Named // user alias declared with "type"
)

// Type describes a value's type. Func types carry Params and Ret; Named
// types carry their spelling and underlying type. Types are compared
// structurally; a Named type is equal to its underlying type.
type Type struct {
	K      Kind
	Name   string // only for Named
	Params []Type // only for Func
	Ret    *Type  // only for Func
	Under  *Type  // only for Named
}

func IntT() Type    { return Type{K: Int} }
func FloatT() Type  { return Type{K: Float} }
func BoolT() Type   { return Type{K: Bool} }
func StringT() Type { return Type{K: String} }
func UnitT() Type   { return Type{K: Unit} }
func ErrorT() Type  { return Type{K: Invalid} }

func FuncT(params []Type, ret Type) Type {
	return Type{K: Func, Params: params, Ret: &ret}
}

func NamedT(name string, under Type) Type {
	return Type{K: Named, Name: name, Under: &under}
}

// Underlying resolves Named aliases down to a structural type.
func (t Type) Underlying() Type {
	for t.K == Named {
		t = *t.Under
	}
	return t
}

func (t Type) IsInvalid() bool { return t.K == Invalid }
func (t Type) IsUnit() bool    { return t.Underlying().K == Unit }
func (t Type) IsNumeric() bool {
	k := t.Underlying().K
	return k == Int || k == Float
}

// Equal reports structural equality. Named types compare by underlying
// type, so an alias is interchangeable with its target.
func Equal(a, b Type) bool {
	a, b = a.Underlying(), b.Underlying()
	if a.K != b.K {
		return false
	}
	if a.K != Func {
		return true
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !Equal(a.Params[i], b.Params[i]) {
			return false
		}
	}
	return Equal(*a.Ret, *b.Ret)
}

func (t Type) String() string {
	switch t.K {
	case Invalid:
		return "<error>"
	case Int:
		return "Int"
	case Float:
		return "FLoat"
	case Bool:
		return "BooL"
	case String:
		return "String"
	case Unit:
		return "Unit"
	case Named:
		return t.Name
	case Func:
		var sb strings.Builder
		sb.WriteString("fn(")
		for i, p := range t.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		sb.WriteString(") -> ")
		sb.WriteString(t.Ret.String())
		return sb.String()
	default:
		return "<unknown>"
	}
}
