package errcode

import (
	"errors"
	"fmt"
)

// Kind classifies failures so that callers can decide how to surface them:
// - Configuration: missing/malformed backend credentials, blocks further action
// - Validation: missing required input, recovered locally, no network call made
// - DataAccess: every schema-fallback candidate failed
// - Upload: a named attachment could not be stored
// - Function: the mail-dispatch function reported a failure
type Kind int

const (
	OK Kind = iota
	Configuration
	Validation
	DataAccess
	Upload
	Function
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case Configuration:
		return "configuration"
	case Validation:
		return "validation"
	case DataAccess:
		return "data_access"
	case Upload:
		return "upload"
	case Function:
		return "function"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error carries a user-facing message plus the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the text meant for the end user, without the wrapped cause.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

// KindOf returns the Kind of the first *Error in err's chain, or OK when err is
// nil and -1 when err carries no classification.
func KindOf(err error) Kind {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return -1
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf extracts the user-facing message from err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func newError(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

func ConfigurationError(op, msg string) *Error { return newError(Configuration, op, msg, nil) }
func ValidationError(op, msg string) *Error    { return newError(Validation, op, msg, nil) }

// DataAccessError wraps the last underlying error of a failed fallback chain.
func DataAccessError(op string, last error) *Error {
	if last == nil {
		return newError(DataAccess, op, "DB-Operation fehlgeschlagen.", nil)
	}
	return newError(DataAccess, op, "", last)
}

// UploadError names the file whose upload failed.
func UploadError(op, filename string, cause error) *Error {
	return newError(Upload, op, fmt.Sprintf("Upload fehlgeschlagen (%s)", filename), cause)
}

func FunctionError(op, msg string, cause error) *Error { return newError(Function, op, msg, cause) }
