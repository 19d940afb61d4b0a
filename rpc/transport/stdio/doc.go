// Package stdio implements the one-shot transport: a single request given on
// the command line is answered on stdout, after which the process ends.
//
// Key Components:
//
//   - stdioServerTransport: Implements the IServerTransport interface. Listen
//     calls the handler once with stdout as the sink. The abort function
//     exits the process, which is how a timeout ends a response that is
//     already partly written.
package stdio
