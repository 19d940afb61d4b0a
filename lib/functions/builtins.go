package functions

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
)

// RegisterBuiltins registers the functions every server provides
func RegisterBuiltins(r IFunctionRegistry) error {
	defs := []Definition{
		{
			Name:        "version",
			Usage:       "version()",
			Description: "Lists the server side functions of this server",
			Fn:          versionFunction(r),
		},
		{
			Name:        "linear_scale",
			Usage:       "linear_scale(var[,m,b])",
			Description: "Returns m*var+b, m and b default to the scale_factor and add_offset attributes",
			Fn:          linearScale,
		},
		{
			Name:        "bind_name",
			Usage:       "bind_name(name,var)",
			Description: "Returns a copy of var called name",
			Fn:          bindName,
		},
		{
			Name:        "make_array",
			Usage:       "make_array(type,shape,values...)",
			Description: "Builds an array of the given type and shape, e.g. make_array(\"Int32\",\"[2][2]\",1,2,3,4)",
			Fn:          makeArray,
		},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Argument helpers
// --------------------------------------------------------------------------

func argVariable(fn string, args []any, i int) (dap.Variable, error) {
	v, ok := args[i].(dap.Variable)
	if !ok {
		return nil, errors.Newf(errors.EvaluationFailure, "%s: argument %d must be a variable", fn, i+1)
	}
	return v, nil
}

func argString(fn string, args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", errors.Newf(errors.EvaluationFailure, "%s: argument %d must be a string", fn, i+1)
	}
	return s, nil
}

func argNumber(fn string, args []any, i int) (float64, error) {
	switch args[i].(type) {
	case float64, int64:
		f, _ := dap.AsFloat64(args[i])
		return f, nil
	default:
		return 0, errors.Newf(errors.EvaluationFailure, "%s: argument %d must be a number", fn, i+1)
	}
}

// result converts a constructor result into a function result
func result[T dap.Variable](v T, err error) (dap.Variable, error) {
	if err != nil {
		return nil, errors.Wrap(err, errors.EvaluationFailure, "building result")
	}
	return v, nil
}

// attrNumber reads the first value of a numeric attribute
func attrNumber(v dap.Variable, name string) (float64, bool) {
	attr := v.Attributes().Get(name)
	if attr == nil || len(attr.Values) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(attr.Values[0]), 64)
	return f, err == nil
}

// --------------------------------------------------------------------------
// Functions
// --------------------------------------------------------------------------

func versionFunction(r IFunctionRegistry) Function {
	return func(_ context.Context, args []any) (dap.Variable, error) {
		if len(args) != 0 {
			return nil, errors.New(errors.EvaluationFailure, "version: takes no arguments")
		}
		var b strings.Builder
		b.WriteString("Server functions:\n")
		for _, def := range r.List() {
			b.WriteString("  " + def.Usage + ": " + def.Description + "\n")
		}
		return result(dap.NewScalar("version", dap.TypeString, b.String()))
	}
}

func linearScale(ctx context.Context, args []any) (dap.Variable, error) {
	const fn = "linear_scale"
	if len(args) != 1 && len(args) != 3 {
		return nil, errors.Newf(errors.EvaluationFailure, "%s: expected 1 or 3 arguments, got %d", fn, len(args))
	}
	v, err := argVariable(fn, args, 0)
	if err != nil {
		return nil, err
	}

	var m, b float64
	if len(args) == 3 {
		if m, err = argNumber(fn, args, 1); err != nil {
			return nil, err
		}
		if b, err = argNumber(fn, args, 2); err != nil {
			return nil, err
		}
	} else {
		var ok bool
		if m, ok = attrNumber(v, "scale_factor"); !ok {
			return nil, errors.Newf(errors.EvaluationFailure, "%s: %s has no scale_factor attribute", fn, v.Name())
		}
		b, _ = attrNumber(v, "add_offset")
	}

	switch t := v.(type) {
	case *dap.Scalar:
		f, ok := dap.AsFloat64(t.Value())
		if !ok || !t.Type().IsNumeric() {
			return nil, errors.Newf(errors.EvaluationFailure, "%s: %s is not numeric", fn, v.Name())
		}
		return result(dap.NewScalar(t.Name(), dap.TypeFloat64, f*m+b))
	case *dap.Array:
		if !t.ElemType.IsNumeric() {
			return nil, errors.Newf(errors.EvaluationFailure, "%s: %s is not numeric", fn, v.Name())
		}
		n := t.Length(false)
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			if i%4096 == 0 && ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), errors.Timeout, fn)
			}
			f, _ := dap.AsFloat64(dap.VectorElem(t.Values, i))
			out[i] = f*m + b
		}
		return result(dap.NewArray(t.Name(), dap.TypeFloat64, t.Dims, out))
	default:
		return nil, errors.Newf(errors.EvaluationFailure, "%s: cannot scale a %s", fn, v.Type())
	}
}

func bindName(_ context.Context, args []any) (dap.Variable, error) {
	const fn = "bind_name"
	if len(args) != 2 {
		return nil, errors.Newf(errors.EvaluationFailure, "%s: expected 2 arguments, got %d", fn, len(args))
	}
	name, err := argString(fn, args, 0)
	if err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, ".,()[]") {
		return nil, errors.Newf(errors.EvaluationFailure, "%s: invalid name %q", fn, name)
	}
	v, err := argVariable(fn, args, 1)
	if err != nil {
		return nil, err
	}
	out := v.Clone()
	out.SetName(name)
	return out, nil
}

var shapePattern = regexp.MustCompile(`\[\s*(\d+)\s*\]`)

func makeArray(_ context.Context, args []any) (dap.Variable, error) {
	const fn = "make_array"
	if len(args) < 2 {
		return nil, errors.Newf(errors.EvaluationFailure, "%s: expected a type and a shape", fn)
	}
	typeName, err := argString(fn, args, 0)
	if err != nil {
		return nil, err
	}
	typ, err := dap.ParseDataType(typeName)
	if err != nil || !typ.IsScalar() || typ == dap.TypeOpaque {
		return nil, errors.Newf(errors.EvaluationFailure, "%s: invalid element type %q", fn, typeName)
	}
	shape, err := argString(fn, args, 1)
	if err != nil {
		return nil, err
	}

	matches := shapePattern.FindAllStringSubmatch(shape, -1)
	if len(matches) == 0 || strings.TrimSpace(shapePattern.ReplaceAllString(shape, "")) != "" {
		return nil, errors.Newf(errors.EvaluationFailure, "%s: invalid shape %q", fn, shape)
	}
	dims := make([]dap.Dimension, len(matches))
	for i, m := range matches {
		size, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, errors.Newf(errors.EvaluationFailure, "%s: dimension %s of shape %q is too large", fn, m[1], shape)
		}
		dims[i] = dap.Dimension{Size: size}
	}
	total, err := dap.ShapeLength(dims)
	if err != nil {
		return nil, errors.Wrapf(err, errors.EvaluationFailure, "%s: invalid shape %q", fn, shape)
	}

	values := args[2:]
	if len(values) != total {
		return nil, errors.Newf(errors.EvaluationFailure, "%s: shape %s needs %d values, got %d", fn, shape, total, len(values))
	}
	for i, v := range values {
		if _, ok := v.(dap.Variable); ok {
			return nil, errors.Newf(errors.EvaluationFailure, "%s: argument %d must be a literal", fn, i+3)
		}
	}
	vec, err := dap.VectorOf(typ, values)
	if err != nil {
		return nil, errors.Wrap(err, errors.EvaluationFailure, fn)
	}
	return result(dap.NewArray("array", typ, dims, vec))
}
