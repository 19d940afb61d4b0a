package constraint

import (
	"strconv"
	"strings"

	"github.com/ValentinKolb/dDAP/lib/errors"
)

// Parse parses the projection and selection part of a constraint expression:
//
//	proj[,proj...][&clause...]
//
// A projection is a dotted path whose names may carry hyperslabs [i],
// [start:stop] or [start:stride:stop]. A clause is "path op value" where op
// is one of = != < <= > >= =~ and value is a number, a quoted string or a
// variable path.
func Parse(text string) (*Expression, error) {
	expr := &Expression{}
	text = strings.TrimSpace(text)
	if text == "" {
		return expr, nil
	}

	parts, err := splitTopLevel(text, '&')
	if err != nil {
		return nil, err
	}

	if proj := strings.TrimSpace(parts[0]); proj != "" {
		items, err := splitTopLevel(proj, ',')
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			p, err := parseProjection(strings.TrimSpace(item))
			if err != nil {
				return nil, err
			}
			expr.Projections = append(expr.Projections, p)
		}
	}

	for _, part := range parts[1:] {
		c, err := parseClause(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		expr.Clauses = append(expr.Clauses, c)
	}
	return expr, nil
}

// splitTopLevel splits s at sep where sep is not inside quotes, brackets or
// parentheses
func splitTopLevel(s string, sep byte) ([]string, error) {
	var (
		parts    []string
		brackets int
		parens   int
		quoted   bool
		start    int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quoted {
			switch c {
			case '\\':
				i++
			case '"':
				quoted = false
			}
			continue
		}
		switch c {
		case '"':
			quoted = true
		case '[':
			brackets++
		case ']':
			brackets--
		case '(':
			parens++
		case ')':
			parens--
		case sep:
			if brackets == 0 && parens == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
		if brackets < 0 || parens < 0 {
			return nil, errors.Newf(errors.MalformedExpr, "unbalanced %q at offset %d in %q", c, i, s)
		}
	}
	if quoted {
		return nil, errors.Newf(errors.MalformedExpr, "unterminated string in %q", s)
	}
	if brackets != 0 || parens != 0 {
		return nil, errors.Newf(errors.MalformedExpr, "unbalanced brackets in %q", s)
	}
	return append(parts, s[start:]), nil
}

// validName reports whether s can be a variable name
func validName(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, " \t\"'()[]{},&=!<>.")
}

func parseProjection(text string) (Projection, error) {
	var p Projection
	if text == "" {
		return p, errors.New(errors.MalformedExpr, "empty projection")
	}
	if strings.ContainsAny(text, "()") {
		name, _, _ := strings.Cut(text, "(")
		return p, errors.Newf(errors.MalformedExpr, "unknown function %q", name)
	}

	for _, raw := range strings.Split(text, ".") {
		name, slabs, _ := strings.Cut(raw, "[")
		if !validName(name) {
			return p, errors.Newf(errors.MalformedExpr, "invalid name %q in projection %q", name, text)
		}
		c := Component{Name: name}
		if slabs != "" {
			slices, err := parseSlices("[" + slabs)
			if err != nil {
				return p, err
			}
			c.Slices = slices
		}
		p.Path = append(p.Path, c)
	}
	return p, nil
}

// parseSlices parses a run of hyperslabs like "[0:2][1][0:2:10]"
func parseSlices(text string) ([]Slice, error) {
	var out []Slice
	for text != "" {
		if text[0] != '[' {
			return nil, errors.Newf(errors.MalformedExpr, "unexpected %q in hyperslab", text)
		}
		end := strings.IndexByte(text, ']')
		if end < 0 {
			return nil, errors.Newf(errors.MalformedExpr, "unterminated hyperslab %q", text)
		}
		fields := strings.Split(text[1:end], ":")
		nums := make([]int, len(fields))
		for i, f := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil || n < 0 {
				return nil, errors.Newf(errors.MalformedExpr, "invalid index %q in hyperslab", f)
			}
			nums[i] = n
		}

		var s Slice
		switch len(nums) {
		case 1:
			s = Slice{Start: nums[0], Stride: 1, Stop: nums[0]}
		case 2:
			s = Slice{Start: nums[0], Stride: 1, Stop: nums[1]}
		case 3:
			s = Slice{Start: nums[0], Stride: nums[1], Stop: nums[2]}
		default:
			return nil, errors.Newf(errors.MalformedExpr, "invalid hyperslab %q", text[:end+1])
		}
		if s.Stride < 1 || s.Stop < s.Start {
			return nil, errors.Newf(errors.MalformedExpr, "invalid hyperslab %q", text[:end+1])
		}
		out = append(out, s)
		text = text[end+1:]
	}
	return out, nil
}

// findOperator returns the position and operator of the first relational
// operator outside of quotes
func findOperator(text string) (int, Operator, bool) {
	quoted := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quoted {
			if c == '\\' {
				i++
			} else if c == '"' {
				quoted = false
			}
			continue
		}
		var next byte
		if i+1 < len(text) {
			next = text[i+1]
		}
		switch c {
		case '"':
			quoted = true
		case '=':
			if next == '~' {
				return i, OpMatch, true
			}
			return i, OpEqual, true
		case '!':
			if next == '=' {
				return i, OpNotEqual, true
			}
			return 0, "", false
		case '<':
			if next == '=' {
				return i, OpLessEq, true
			}
			return i, OpLess, true
		case '>':
			if next == '=' {
				return i, OpGreaterEq, true
			}
			return i, OpGreater, true
		}
	}
	return 0, "", false
}

func parseClause(text string) (Clause, error) {
	var c Clause
	if text == "" {
		return c, errors.New(errors.MalformedExpr, "empty selection clause")
	}
	pos, op, ok := findOperator(text)
	if !ok {
		return c, errors.Newf(errors.MalformedExpr, "no valid operator in selection %q", text)
	}
	left := strings.TrimSpace(text[:pos])
	right := strings.TrimSpace(text[pos+len(op):])
	if !validPath(left) {
		return c, errors.Newf(errors.MalformedExpr, "invalid variable %q in selection %q", left, text)
	}
	operand, err := parseOperand(right)
	if err != nil {
		return c, err
	}
	return Clause{Left: left, Op: op, Right: operand}, nil
}

func validPath(path string) bool {
	for _, name := range strings.Split(path, ".") {
		if !validName(name) {
			return false
		}
	}
	return true
}

// parseOperand parses a quoted string, a number or a variable path
func parseOperand(text string) (Operand, error) {
	if text == "" {
		return Operand{}, errors.New(errors.MalformedExpr, "missing value in selection")
	}
	if text[0] == '"' {
		s, err := strconv.Unquote(text)
		if err != nil {
			return Operand{}, errors.Newf(errors.MalformedExpr, "invalid string %s", text)
		}
		return Operand{Text: s}, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return Operand{Text: text, Number: f, IsNumber: true}, nil
	}
	if validPath(text) {
		return Operand{Path: text}, nil
	}
	return Operand{}, errors.Newf(errors.MalformedExpr, "invalid value %q in selection", text)
}
