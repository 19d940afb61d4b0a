package functions

import (
	"context"

	"github.com/ValentinKolb/dDAP/lib/dap"
)

// Function computes a new variable from its arguments. Arguments are either
// float64 or int64 numbers, strings or dap.Variable values (copies of the
// referenced dataset variables).
type Function func(ctx context.Context, args []any) (dap.Variable, error)

// Definition describes a registered server side function
type Definition struct {
	// Name is the name used to call the function in a constraint expression
	Name string
	// Usage is a short call signature, e.g. "linear_scale(var[,m,b])"
	Usage string
	// Description is a one line description shown by "ddap functions"
	Description string
	// Fn is the implementation
	Fn Function
}

// IFunctionRegistry is the set of functions that can be called from a
// constraint expression
type IFunctionRegistry interface {
	// Register adds a function. It fails if the name is empty or already taken.
	Register(def Definition) error
	// IsFunction reports whether name is registered (exact match)
	IsFunction(name string) bool
	// Lookup returns the definition registered under name
	Lookup(name string) (Definition, bool)
	// List returns all definitions sorted by name
	List() []Definition
}
