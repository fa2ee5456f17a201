// Package errors provides standardized error types for the SQL gateway.
package errors

import (
	"errors"
	"fmt"
)

// Error codes surfaced through the tool envelope.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodePolicyRejected     = "POLICY_REJECTED"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeConnectionFailed   = "CONNECTION_FAILED"
	CodeQueryFailed        = "QUERY_FAILED"
	CodeTransactionAborted = "TRANSACTION_ABORTED"
	CodeDeadlineExceeded   = "DEADLINE_EXCEEDED"
	CodeCanceled           = "CANCELED"
	CodeUnavailable        = "UNAVAILABLE"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Policy rejection reasons carried in error details under "reason".
const (
	ReasonEmptyStatement      = "EMPTY_STATEMENT"
	ReasonTooLong             = "QUERY_TOO_LONG"
	ReasonForbiddenKeyword    = "FORBIDDEN_KEYWORD"
	ReasonOperationNotAllowed = "OPERATION_NOT_ALLOWED"
	ReasonSuspiciousPattern   = "SUSPICIOUS_PATTERN"
	ReasonReadonlyViolation   = "READONLY_MODE_VIOLATION"
)

// GatewayError represents a gateway error with code, message, and optional details.
type GatewayError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code.
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*GatewayError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *GatewayError) WithDetail(key string, value interface{}) *GatewayError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrConnectionNotFound = &GatewayError{Code: CodeNotFound, Message: "connection not found"}
	ErrConnectionExists   = &GatewayError{Code: CodeAlreadyExists, Message: "connection already exists"}
	ErrConnectFailed      = &GatewayError{Code: CodeConnectionFailed, Message: "database connection failed"}
	ErrQueryTimeout       = &GatewayError{Code: CodeDeadlineExceeded, Message: "query execution timeout"}
	ErrInvalidQuery       = &GatewayError{Code: CodeInvalidRequest, Message: "invalid query"}
	ErrTableNotFound      = &GatewayError{Code: CodeNotFound, Message: "table not found"}
)

// New creates a new GatewayError with the given code and message.
func New(code, message string) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new GatewayError with a formatted message.
func Newf(code, format string, args ...interface{}) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a GatewayError.
func Wrap(err error, code, message string) *GatewayError {
	if err == nil {
		return nil
	}
	return &GatewayError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *GatewayError {
	if err == nil {
		return nil
	}
	return &GatewayError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// GetCode extracts the code from an error, or CodeInternal for foreign errors.
func GetCode(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return CodeInternal
}

// GetDetails extracts the details map from an error, or nil.
func GetDetails(err error) map[string]interface{} {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Details
	}
	return nil
}

// IsNotFound returns true if the error carries a NOT_FOUND code.
func IsNotFound(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Code == CodeNotFound
	}
	return false
}

// IsPolicyRejected returns true if the error carries a POLICY_REJECTED code.
func IsPolicyRejected(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Code == CodePolicyRejected
	}
	return false
}

// IsTimeout returns true if the error carries a DEADLINE_EXCEEDED code.
func IsTimeout(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Code == CodeDeadlineExceeded
	}
	return false
}
