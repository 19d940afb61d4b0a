package constraint

import (
	"context"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/lib/functions"
)

// EvaluateFunctions evaluates the comma separated function calls produced by
// Split against ds. It returns a new dataset holding one variable per call,
// marked as selected and read. Arguments may be numbers, quoted strings,
// variable paths of ds or nested calls.
func EvaluateFunctions(ctx context.Context, ds *dap.Dataset, calls string, registry functions.IFunctionRegistry) (*dap.Dataset, error) {
	items, err := splitTopLevel(calls, ',')
	if err != nil {
		return nil, err
	}

	out := dap.NewDataset(ds.Name)
	out.Attributes = ds.Attributes.Clone()
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.Timeout, "evaluating functions")
		}
		v, err := evaluateCall(ctx, ds, item, registry)
		if err != nil {
			return nil, err
		}
		dap.SelectAll(v, true)
		markRead(v)
		out.AddVar(v)
	}
	if len(out.Vars) == 0 {
		return nil, errors.Newf(errors.MalformedExpr, "no function call in %q", calls)
	}
	Logger.Debugf("evaluated %q on %s: %d result(s)", calls, ds.Name, len(out.Vars))
	return out, nil
}

func markRead(v dap.Variable) {
	v.SetRead(true)
	if c, ok := v.(dap.Container); ok {
		for _, f := range c.Fields() {
			markRead(f)
		}
	}
}

// parseCall splits "name(args)" into the name and the argument text
func parseCall(text string) (string, string, error) {
	open := strings.IndexByte(text, '(')
	if open <= 0 || !strings.HasSuffix(text, ")") {
		return "", "", errors.Newf(errors.MalformedExpr, "%q is not a function call", text)
	}
	return strings.TrimSpace(text[:open]), text[open+1 : len(text)-1], nil
}

func evaluateCall(ctx context.Context, ds *dap.Dataset, text string, registry functions.IFunctionRegistry) (dap.Variable, error) {
	name, argText, err := parseCall(text)
	if err != nil {
		return nil, err
	}
	def, ok := registry.Lookup(name)
	if !ok {
		return nil, errors.Newf(errors.MalformedExpr, "unknown function %q", name)
	}

	var args []any
	if strings.TrimSpace(argText) != "" {
		raw, err := splitTopLevel(argText, ',')
		if err != nil {
			return nil, err
		}
		for _, r := range raw {
			arg, err := evaluateArg(ctx, ds, strings.TrimSpace(r), registry)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}

	v, err := def.Fn(ctx, args)
	if err != nil {
		return nil, errors.Wrapf(err, errors.EvaluationFailure, "%s()", name)
	}
	if v == nil {
		return nil, errors.Newf(errors.EvaluationFailure, "%s() returned no value", name)
	}
	return v, nil
}

// evaluateArg turns one argument into a string, an int64, a float64 or a
// copy of a variable
func evaluateArg(ctx context.Context, ds *dap.Dataset, text string, registry functions.IFunctionRegistry) (any, error) {
	switch {
	case text == "":
		return nil, errors.New(errors.MalformedExpr, "empty function argument")
	case text[0] == '"':
		s, err := strconv.Unquote(text)
		if err != nil {
			return nil, errors.Newf(errors.MalformedExpr, "invalid string argument %s", text)
		}
		return s, nil
	case strings.HasSuffix(text, ")"):
		return evaluateCall(ctx, ds, text, registry)
	}

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, nil
	}
	if !validPath(text) {
		return nil, errors.Newf(errors.MalformedExpr, "invalid function argument %q", text)
	}
	v := ds.Var(text)
	if v == nil {
		return nil, errors.Newf(errors.NoSuchVariable, "no such variable %q", text)
	}
	return v.Clone(), nil
}
