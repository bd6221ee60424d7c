package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeInvalidConfig        ErrorCode = "INVALID_CONFIG"
	CodeInvalidInput         ErrorCode = "INVALID_INPUT"
	CodeMissingPrimaryFile   ErrorCode = "MISSING_PRIMARY_FILE"
	CodeMissingReferenceFile ErrorCode = "MISSING_REFERENCE_FILE"
	CodeReportWrite          ErrorCode = "REPORT_WRITE_FAILED"
)

type AppError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now().UTC(),
	}
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

func InvalidConfig(err error) *AppError {
	return Wrap(err, CodeInvalidConfig, "configuration could not be loaded")
}

func InvalidInput(path, details string) *AppError {
	e := New(CodeInvalidInput, fmt.Sprintf("input %s is malformed", path))
	e.Details = details
	return e
}

// MissingPrimaryFile reports that the transaction export could not be read.
// The pipeline cannot produce output without it.
func MissingPrimaryFile(path string, err error) *AppError {
	e := Wrap(err, CodeMissingPrimaryFile, fmt.Sprintf("cannot read transaction export %s", path))
	e.Details = path
	return e
}

// MissingReferenceFile reports an auxiliary table that could not be read.
// Callers substitute an empty table and continue.
func MissingReferenceFile(table, path string, err error) *AppError {
	e := Wrap(err, CodeMissingReferenceFile, fmt.Sprintf("cannot read %s table %s", table, path))
	e.Details = path
	return e
}

func ReportWrite(path string, err error) *AppError {
	e := Wrap(err, CodeReportWrite, fmt.Sprintf("cannot write report output %s", path))
	e.Details = path
	return e
}

// HasCode reports whether any error in err's chain is an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// ExitCode maps a fatal pipeline error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case HasCode(err, CodeInvalidConfig):
		return 2
	case HasCode(err, CodeMissingPrimaryFile), HasCode(err, CodeInvalidInput):
		return 3
	case HasCode(err, CodeReportWrite):
		return 4
	default:
		return 1
	}
}
