package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeRootNotFound    ErrorCode = "ROOT_NOT_FOUND"
	CodeParseError      ErrorCode = "PARSE_ERROR"
	CodeAmbiguous       ErrorCode = "NAMESPACE_AMBIGUITY"
	CodeInvalidRelative ErrorCode = "INVALID_RELATIVE_IMPORT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath   = "path"
	CtxRoot   = "root"
	CtxModule = "module"
	CtxSymbol = "symbol"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// FileError is a non-fatal finding attached to a source location. Analysis
// collects these and reports them alongside the graph instead of aborting.
type FileError struct {
	Path    string
	Line    int
	Code    ErrorCode
	Message string
}

func (e FileError) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: [%s] %s", e.Path, e.Line, e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: [%s] %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
