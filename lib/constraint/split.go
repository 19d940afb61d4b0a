package constraint

import "strings"

// FunctionSet is the part of the function registry the splitter needs
type FunctionSet interface {
	IsFunction(name string) bool
}

// Split separates the calls of registered functions from a constraint
// expression. It returns the remaining projection text and the function
// calls joined by commas.
//
// The scan looks for the next "(" and the next ")" from the current
// position. The text between the current position and the "(" is the
// candidate name. Calls of
// registered functions are cut out together with a following comma; anything
// else is left in the projection untouched and the scan continues behind the
// ")". Nested parentheses are not matched.
//
//	Split("grid(noise),x,y,z", {grid}) == ("x,y,z", "grid(noise)")
func Split(expression string, registry FunctionSet) (projection, functions string) {
	ce := expression
	pos := 0
	var calls []string

	for pos < len(ce) {
		open := strings.IndexByte(ce[pos:], '(')
		if open < 0 {
			break
		}
		open += pos
		closing := strings.IndexByte(ce[pos:], ')')
		if closing < 0 {
			break
		}
		closing += pos

		name := ce[pos:open]
		if registry != nil && registry.IsFunction(name) {
			calls = append(calls, ce[pos:closing+1])
			rest := strings.TrimPrefix(ce[closing+1:], ",")
			ce = ce[:pos] + rest
			continue
		}

		pos = closing + 1
		if pos < len(ce) && ce[pos] == ',' {
			pos++
		}
	}

	if len(calls) > 0 {
		ce = strings.TrimSuffix(ce, ",")
	}
	return ce, strings.Join(calls, ",")
}
