package constraint

import (
	"regexp"
	"strings"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("constraint")

// Apply marks the variables of ds selected by expr, applies hyperslabs,
// attaches selection clauses to their sequences and tags nested sequences.
//
// An expression without projections selects everything. Selecting a
// container selects all of its fields, selecting a field also selects its
// parents. A clause on a top level scalar is evaluated immediately; if it
// does not hold nothing is selected.
func Apply(ds *dap.Dataset, expr *Expression) error {
	if len(expr.Projections) == 0 {
		ds.MarkAll(true)
	} else {
		ds.MarkAll(false)
		for _, p := range expr.Projections {
			if err := applyProjection(ds, p); err != nil {
				return err
			}
		}
	}

	for _, c := range expr.Clauses {
		if err := applyClause(ds, c); err != nil {
			return err
		}
	}

	ds.TagSequences()
	return nil
}

// ParseAndApply parses text and applies it to ds
func ParseAndApply(ds *dap.Dataset, text string) error {
	expr, err := Parse(text)
	if err != nil {
		return err
	}
	Logger.Debugf("applying constraint %q to %s", expr.String(), ds.Name)
	return Apply(ds, expr)
}

// resolve returns the chain of variables from the top level to the one named by path
func resolve(ds *dap.Dataset, names []string) ([]dap.Variable, error) {
	chain := make([]dap.Variable, 0, len(names))
	var current dap.Variable
	for i, name := range names {
		if i == 0 {
			for _, v := range ds.Vars {
				if v.Name() == name {
					current = v
					break
				}
			}
		} else {
			c, ok := current.(dap.Container)
			if !ok {
				return nil, errors.Newf(errors.NoSuchVariable, "%s has no field %q", current.Name(), name)
			}
			current = c.Field(name)
		}
		if current == nil {
			return nil, errors.Newf(errors.NoSuchVariable, "no such variable %q", strings.Join(names[:i+1], "."))
		}
		chain = append(chain, current)
	}
	return chain, nil
}

func applyProjection(ds *dap.Dataset, p Projection) error {
	names := make([]string, len(p.Path))
	for i, c := range p.Path {
		names[i] = c.Name
	}
	chain, err := resolve(ds, names)
	if err != nil {
		return err
	}

	for i, v := range chain {
		if slices := p.Path[i].Slices; len(slices) > 0 {
			arr, ok := v.(*dap.Array)
			if !ok {
				return errors.Newf(errors.MalformedExpr, "%s is not an array and cannot be subset", v.Name())
			}
			if len(slices) > len(arr.Dims) {
				return errors.Newf(errors.MalformedExpr, "%s has %d dimensions, got %d hyperslabs", v.Name(), len(arr.Dims), len(slices))
			}
			for d, s := range slices {
				if err := arr.SetHyperslab(d, s.Start, s.Stride, s.Stop); err != nil {
					return errors.Wrap(err, errors.MalformedExpr, p.String())
				}
			}
		}
		if i < len(chain)-1 {
			v.SetSelected(true)
		} else {
			dap.SelectAll(v, true)
		}
	}
	return nil
}

func applyClause(ds *dap.Dataset, c Clause) error {
	chain, err := resolve(ds, strings.Split(c.Left, "."))
	if err != nil {
		return err
	}
	target := chain[len(chain)-1]
	if !target.Type().IsScalar() {
		return errors.Newf(errors.MalformedExpr, "%s is not a simple type and cannot be compared", c.Left)
	}

	var seq *dap.Sequence
	for _, v := range chain[:len(chain)-1] {
		if s, ok := v.(*dap.Sequence); ok {
			seq = s
		}
	}

	if seq == nil {
		scalar, ok := target.(*dap.Scalar)
		if !ok {
			return errors.Newf(errors.MalformedExpr, "%s cannot be used in a selection", c.Left)
		}
		right, err := constantOperand(ds, c.Right)
		if err != nil {
			return err
		}
		f, err := newFilter(c, target.Type(), -1, right, -1)
		if err != nil {
			return err
		}
		ok, err = f.compare(scalar.Value(), right)
		if err != nil {
			return err
		}
		if !ok {
			Logger.Debugf("selection %s is false, nothing is selected", c.String())
			ds.MarkAll(false)
		}
		return nil
	}

	if chain[len(chain)-2] != dap.Variable(seq) {
		return errors.Newf(errors.NotImplemented, "selection on %s: only direct fields of a sequence can be compared", c.Left)
	}
	field := seq.FieldIndex(target.Name())

	rightField := -1
	var right any
	if c.Right.Path != "" {
		if idx := seq.FieldIndex(c.Right.Path); idx >= 0 && seq.Fields()[idx].Type().IsScalar() {
			rightField = idx
		} else if right, err = constantOperand(ds, c.Right); err != nil {
			return err
		}
	} else {
		right = literalValue(c.Right)
	}

	f, err := newFilter(c, target.Type(), field, right, rightField)
	if err != nil {
		return err
	}
	seq.AddFilter(f)
	return nil
}

// constantOperand resolves an operand that does not depend on a sequence row
func constantOperand(ds *dap.Dataset, o Operand) (any, error) {
	if o.Path == "" {
		return literalValue(o), nil
	}
	chain, err := resolve(ds, strings.Split(o.Path, "."))
	if err != nil {
		return nil, err
	}
	scalar, ok := chain[len(chain)-1].(*dap.Scalar)
	if !ok {
		return nil, errors.Newf(errors.MalformedExpr, "%s cannot be used as a value", o.Path)
	}
	return scalar.Value(), nil
}

func literalValue(o Operand) any {
	if o.IsNumber {
		return o.Number
	}
	return o.Text
}

// --------------------------------------------------------------------------
// Row filter
// --------------------------------------------------------------------------

// clauseFilter evaluates one clause against the rows of a sequence
type clauseFilter struct {
	clause     Clause
	field      int
	right      any
	rightField int
	pattern    *regexp.Regexp
}

func newFilter(c Clause, leftType dap.DataType, field int, right any, rightField int) (*clauseFilter, error) {
	f := &clauseFilter{clause: c, field: field, right: right, rightField: rightField}
	isString := leftType == dap.TypeString || leftType == dap.TypeURL

	if c.Op == OpMatch {
		if !isString {
			return nil, errors.Newf(errors.MalformedExpr, "%s: =~ needs a string variable", c.String())
		}
		s, ok := right.(string)
		if !ok || rightField >= 0 {
			return nil, errors.Newf(errors.MalformedExpr, "%s: =~ needs a quoted pattern", c.String())
		}
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, errors.Wrapf(err, errors.MalformedExpr, "%s: invalid pattern", c.String())
		}
		f.pattern = re
		return f, nil
	}

	if !isString && rightField < 0 {
		if _, ok := dap.AsFloat64(right); !ok {
			return nil, errors.Newf(errors.MalformedExpr, "%s: %v is not a number", c.String(), right)
		}
	}
	return f, nil
}

func (f *clauseFilter) MatchRow(_ *dap.Sequence, row dap.Row) (bool, error) {
	right := f.right
	if f.rightField >= 0 {
		right = row[f.rightField]
	}
	return f.compare(row[f.field], right)
}

// compare applies the operator. Strings compare lexically, everything else numerically.
func (f *clauseFilter) compare(left, right any) (bool, error) {
	if f.pattern != nil {
		s, _ := left.(string)
		return f.pattern.MatchString(s), nil
	}

	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			rs = f.clause.Right.Text
		}
		return order(strings.Compare(ls, rs), f.clause.Op), nil
	}

	lf, ok1 := dap.AsFloat64(left)
	rf, ok2 := dap.AsFloat64(right)
	if !ok1 || !ok2 {
		return false, errors.Newf(errors.EvaluationFailure, "cannot compare %v and %v in %s", left, right, f.clause.String())
	}
	cmp := 0
	if lf < rf {
		cmp = -1
	} else if lf > rf {
		cmp = 1
	}
	return order(cmp, f.clause.Op), nil
}

func order(cmp int, op Operator) bool {
	switch op {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpLess:
		return cmp < 0
	case OpLessEq:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	default: // OpGreaterEq
		return cmp >= 0
	}
}
