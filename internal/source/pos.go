package source

import "fmt"

// Pos is a location in a source text. Line and Col are 1-based, Off is the
// byte offset from the start of the text.
type Pos struct {
	Line int
	Col  int
	Off  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Before reports whether p appears strictly before q in the source. Byte
// offsets decide when they differ; positions built without offsets fall back
// to line/column order.
func (p Pos) Before(q Pos) bool {
	if p.Off != q.Off {
		return p.Off < q.Off
	}
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Col < q.Col
}

// IsValid reports whether p refers to an actual location.
func (p Pos) IsValid() bool { return p.Line > 0 }
