package constraint

import (
	"fmt"
	"strconv"
	"strings"
)

// Slice is a hyperslab of one array dimension (start:stride:stop, stop inclusive)
type Slice struct {
	Start  int
	Stride int
	Stop   int
}

// Component is one name of a dotted projection path with optional hyperslabs
type Component struct {
	Name   string
	Slices []Slice
}

// Projection selects one variable, e.g. "station.temp" or "sst[0:2][1]"
type Projection struct {
	Path []Component
}

// Operator of a selection clause
type Operator string

const (
	OpEqual     Operator = "="
	OpNotEqual  Operator = "!="
	OpLess      Operator = "<"
	OpLessEq    Operator = "<="
	OpGreater   Operator = ">"
	OpGreaterEq Operator = ">="
	OpMatch     Operator = "=~"
)

// Operand is the right hand side of a clause: a literal or a variable path
type Operand struct {
	// Path is set when the operand references a variable
	Path string
	// Text is the literal as written (unquoted for strings)
	Text string
	// Number is the numeric value of an unquoted literal
	Number float64
	// IsNumber is set for numeric literals
	IsNumber bool
}

// Clause is a selection "path op operand"
type Clause struct {
	Left  string
	Op    Operator
	Right Operand
}

// Expression is a parsed projection and selection constraint. An expression
// without projections selects every variable.
type Expression struct {
	Projections []Projection
	Clauses     []Clause
}

// IsEmpty reports whether the expression neither projects nor selects
func (e *Expression) IsEmpty() bool {
	return len(e.Projections) == 0 && len(e.Clauses) == 0
}

// --------------------------------------------------------------------------
// String representations
// --------------------------------------------------------------------------

func (s Slice) String() string {
	switch {
	case s.Start == s.Stop && s.Stride == 1:
		return fmt.Sprintf("[%d]", s.Start)
	case s.Stride == 1:
		return fmt.Sprintf("[%d:%d]", s.Start, s.Stop)
	default:
		return fmt.Sprintf("[%d:%d:%d]", s.Start, s.Stride, s.Stop)
	}
}

// PathString returns the dotted path without hyperslabs
func (p Projection) PathString() string {
	names := make([]string, len(p.Path))
	for i, c := range p.Path {
		names[i] = c.Name
	}
	return strings.Join(names, ".")
}

func (p Projection) String() string {
	var b strings.Builder
	for i, c := range p.Path {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(c.Name)
		for _, s := range c.Slices {
			b.WriteString(s.String())
		}
	}
	return b.String()
}

func (o Operand) String() string {
	switch {
	case o.Path != "":
		return o.Path
	case o.IsNumber:
		return o.Text
	default:
		return strconv.Quote(o.Text)
	}
}

func (c Clause) String() string {
	return c.Left + string(c.Op) + c.Right.String()
}

func (e *Expression) String() string {
	parts := make([]string, len(e.Projections))
	for i, p := range e.Projections {
		parts[i] = p.String()
	}
	s := strings.Join(parts, ",")
	for _, c := range e.Clauses {
		s += "&" + c.String()
	}
	return s
}
