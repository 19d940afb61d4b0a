// Package constraint implements the constraint expression (CE) handling of
// the server.
//
// A CE arriving with a request is first split (Split) into the calls of
// registered server side functions and the remaining projection and
// selection text. The function part is evaluated by EvaluateFunctions into a
// new dataset, which is the value the function result cache stores. The
// remaining text is parsed (Parse) and applied (Apply) to the dataset that
// is finally sent:
//
//	sst[0:1:9][2],station.temp&station.depth>=10&station.name=~"^A"
//
// Projections mark variables for output and restrict arrays to hyperslabs.
// Selection clauses become row filters of the sequences they refer to.
//
// Errors carry the codes of lib/errors: MalformedExpr for syntax errors and
// invalid hyperslabs, NoSuchVariable for unknown names and
// EvaluationFailure for failing functions.
package constraint
