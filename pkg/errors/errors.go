package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeDirectoryError = "DIRECTORY_ERROR"
	CodeTransport      = "TRANSPORT_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthorization  = "AUTHORIZATION_ERROR"
	CodeNotConfigured  = "NOT_CONFIGURED"
)

type DirectoryError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *DirectoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DirectoryError) Unwrap() error {
	return e.Cause
}

func NewDirectoryError(message, code string, statusCode int, context map[string]any) *DirectoryError {
	return &DirectoryError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *DirectoryError) WithCause(cause error) *DirectoryError {
	e.Cause = cause
	return e
}

func (e *DirectoryError) HTTPStatus() int {
	return e.StatusCode
}

func (e *DirectoryError) ErrorCode() string {
	return e.Code
}

// TransportError covers network failures, timeouts and unexpected statuses from the remote store.
type TransportError struct {
	*DirectoryError
	Path string
}

func NewTransportError(message, path string, statusCode int, cause error) *TransportError {
	return &TransportError{
		DirectoryError: &DirectoryError{
			Message:    message,
			Code:       CodeTransport,
			StatusCode: 502,
			Context: map[string]any{
				"path":          path,
				"remote_status": statusCode,
			},
			Cause: cause,
		},
		Path: path,
	}
}

type NotFoundError struct {
	*DirectoryError
	Resource string
}

func NewNotFoundError(message, resource string) *NotFoundError {
	return &NotFoundError{
		DirectoryError: &DirectoryError{
			Message:    message,
			Code:       CodeNotFound,
			StatusCode: 404,
			Context: map[string]any{
				"resource": resource,
			},
		},
		Resource: resource,
	}
}

// ConflictError means the version token presented on write no longer matches the stored
// resource, or a create-only write found the resource already present.
type ConflictError struct {
	*DirectoryError
	Path  string
	Token string
}

func NewConflictError(message, path, token string) *ConflictError {
	return &ConflictError{
		DirectoryError: &DirectoryError{
			Message:    message,
			Code:       CodeConflict,
			StatusCode: 409,
			Context: map[string]any{
				"path":  path,
				"token": token,
			},
		},
		Path:  path,
		Token: token,
	}
}

type ValidationError struct {
	*DirectoryError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		DirectoryError: &DirectoryError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type AuthorizationError struct {
	*DirectoryError
	Operation string
}

func NewAuthorizationError(message, operation string) *AuthorizationError {
	return &AuthorizationError{
		DirectoryError: &DirectoryError{
			Message:    message,
			Code:       CodeAuthorization,
			StatusCode: 401,
			Context: map[string]any{
				"operation": operation,
			},
		},
		Operation: operation,
	}
}

// NotConfiguredError reports a missing setting (e.g. the store write credential).
// It is distinct from AuthorizationError: nobody is refused, the system is not set up.
type NotConfiguredError struct {
	*DirectoryError
	Setting string
}

func NewNotConfiguredError(message, setting string) *NotConfiguredError {
	return &NotConfiguredError{
		DirectoryError: &DirectoryError{
			Message:    message,
			Code:       CodeNotConfigured,
			StatusCode: 503,
			Context: map[string]any{
				"setting": setting,
			},
		},
		Setting: setting,
	}
}

func IsTransport(err error) bool {
	var target *TransportError
	return stderrors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return stderrors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return stderrors.As(err, &target)
}

func IsNotConfigured(err error) bool {
	var target *NotConfiguredError
	return stderrors.As(err, &target)
}

// StatusCode returns the HTTP status carried by a typed error, 500 for anything else.
func StatusCode(err error) int {
	var target interface{ HTTPStatus() int }
	if stderrors.As(err, &target) && target.HTTPStatus() != 0 {
		return target.HTTPStatus()
	}
	return 500
}

// UserMessage renders err as text fit for showing to an admin or visitor.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConflict(err):
		return "The directory was changed by someone else. Reload and try again."
	case IsValidation(err):
		var v *ValidationError
		stderrors.As(err, &v)
		return fmt.Sprintf("Please fill in the required field: %s", v.Field)
	case IsAuthorization(err):
		return "You must be logged in as an administrator to do that."
	case IsNotConfigured(err):
		var nc *NotConfiguredError
		stderrors.As(err, &nc)
		return fmt.Sprintf("The directory is not configured for changes (%s is missing).", nc.Setting)
	case IsNotFound(err):
		return "The requested record no longer exists. Reload and try again."
	case IsTransport(err):
		return "Unable to reach the directory store. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}
