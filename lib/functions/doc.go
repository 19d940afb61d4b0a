// Package functions holds the registry of server side functions that can be
// called from a constraint expression, together with the built-in functions.
//
// A function receives its evaluated arguments (numbers, strings or copies of
// dataset variables) and returns a new variable. The constraint package
// evaluates the function part of an expression against this registry, and
// the result cache stores what the functions returned.
//
// Built-in functions:
//
//   - version(): Lists the registered functions
//   - linear_scale(var[,m,b]): Computes m*var+b as Float64
//   - bind_name(name,var): Renames a variable
//   - make_array(type,shape,values...): Builds an array from literals
package functions
