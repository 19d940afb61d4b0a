// Package errors wraps pkg/errors and adds error codes. Every failure that
// leaves a component of the response pipeline carries one of the codes below,
// so the server can turn it into exactly one user facing error response.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code classifies an error. See Is and CodeOf.
type Code string

const (
	Uncoded           Code = "Uncoded"
	MalformedExpr     Code = "MalformedExpr"
	NoSuchVariable    Code = "NoSuchVariable"
	NoSuchDataset     Code = "NoSuchDataset"
	TooLarge          Code = "TooLarge"
	CacheFailure      Code = "CacheFailure"
	EvaluationFailure Code = "EvaluationFailure"
	SinkFailure       Code = "SinkFailure"
	Timeout           Code = "Timeout"
	Internal          Code = "Internal"
	NotImplemented    Code = "NotImplemented"
)

// DAP error numbers as sent inside an error response body
const (
	dapUnknownError   = 1001
	dapInternalError  = 1002
	dapNoSuchFile     = 1003
	dapNoSuchVariable = 1004
	dapMalformedExpr  = 1005
	dapNotImplemented = 1008
)

// codedError is the fundamental type used by this package.
type codedError struct {
	Code    Code
	Message string
}

func (ce codedError) Error() string {
	return ce.Message
}

func (ce codedError) Is(err error) bool {
	if e, ok := err.(codedError); ok && ce.Code == e.Code {
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

func New(code Code, message string) error {
	return errors.WithStack(codedError{Code: code, Message: message})
}

func Newf(code Code, format string, args ...interface{}) error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to an existing error. Errors that already carry a code
// keep their original code and only gain the message.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	if CodeOf(err) != Uncoded {
		return errors.WithMessage(err, message)
	}
	return errors.WithStack(codedError{Code: code, Message: message + ": " + err.Error()})
}

func Wrapf(err error, code Code, format string, args ...interface{}) error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

func Cause(err error) error {
	return errors.Cause(err)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// Is reports whether err (or any error it wraps) carries the given code.
func Is(err error, target Code) bool {
	return errors.Is(err, codedError{Code: target})
}

// CodeOf returns the code of the outermost coded error in the chain.
func CodeOf(err error) Code {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return Uncoded
}

// DAPCode maps an error to the number sent in a DAP error response.
func DAPCode(err error) int {
	switch CodeOf(err) {
	case MalformedExpr, TooLarge:
		return dapMalformedExpr
	case NoSuchVariable:
		return dapNoSuchVariable
	case NoSuchDataset:
		return dapNoSuchFile
	case CacheFailure, Internal, SinkFailure:
		return dapInternalError
	case NotImplemented:
		return dapNotImplemented
	default:
		return dapUnknownError
	}
}

// HTTPStatus maps an error to the status line of an error envelope.
func HTTPStatus(err error) (int, string) {
	switch CodeOf(err) {
	case MalformedExpr, NoSuchVariable, TooLarge:
		return 400, "Bad Request"
	case NoSuchDataset:
		return 404, "Not Found"
	case NotImplemented:
		return 501, "Not Implemented"
	case Timeout:
		return 504, "Gateway Timeout"
	default:
		return 500, "Internal Server Error"
	}
}
