package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeExternal   ErrorType = "external_api"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// User-facing texts for errors that do not carry a server message
const (
	MsgSessionExpired = "Tu sesión expiró, por favor iniciá sesión nuevamente."
	MsgNotSignedIn    = "Primero iniciá sesión con /login <token>."
	MsgNetwork        = "No se pudo conectar, revisá tu conexión."
	MsgUnexpected     = "Ocurrió un error inesperado. Intentá de nuevo."
)

// AppError represents an application error with additional context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Status   int
	Internal error
	Context  map[string]interface{}
	Source   string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the internal error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches another AppError by type and code
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return errors.Is(e.Internal, target)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithStatus records the HTTP status that produced the error
func (e *AppError) WithStatus(status int) *AppError {
	e.Status = status
	return e
}

// LogFields returns structured logging fields
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{
		"error_type", e.Type,
		"error_code", e.Code,
		"error_message", e.Message,
		"source", e.Source,
	}
	if e.Status != 0 {
		fields = append(fields, "status", e.Status)
	}
	if e.Internal != nil {
		fields = append(fields, "internal_error", e.Internal.Error())
	}
	for k, v := range e.Context {
		fields = append(fields, k, v)
	}
	return fields
}

// New creates a new AppError
func New(errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Source:  caller(2),
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error into AppError
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Internal: err,
		Source:   caller(2),
		Context:  make(map[string]interface{}),
	}
}

func caller(skip int) string {
	_, file, line, _ := runtime.Caller(skip)
	return fmt.Sprintf("%s:%d", file, line)
}

// TypeOf returns the AppError type of err, or "" for foreign errors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// UserMessage returns the text shown inline to the user for err.
// Server and validation messages are passed through verbatim.
func UserMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return MsgUnexpected
	}
	switch appErr.Type {
	case ErrorTypeAuth:
		if appErr.Code == codeNotSignedIn {
			return MsgNotSignedIn
		}
		return MsgSessionExpired
	case ErrorTypeNetwork, ErrorTypeTimeout:
		return MsgNetwork
	case ErrorTypeValidation, ErrorTypeNotFound, ErrorTypeServer:
		if appErr.Message != "" {
			return appErr.Message
		}
		return MsgUnexpected
	default:
		return MsgUnexpected
	}
}

// Handler provides error handling strategies
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a new error handler
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle logs an error at a level matching its type
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		h.handleAppError(ctx, appErr)
	} else {
		h.logger.ErrorContext(ctx, "Unhandled error", "error", err.Error())
	}
}

func (h *Handler) handleAppError(ctx context.Context, err *AppError) {
	switch err.Type {
	case ErrorTypeValidation, ErrorTypeAuth, ErrorTypeNotFound:
		h.logger.WarnContext(ctx, "Request rejected", err.LogFields()...)
	case ErrorTypeNetwork, ErrorTypeTimeout:
		h.logger.WarnContext(ctx, "Backend unreachable", err.LogFields()...)
	case ErrorTypeServer, ErrorTypeDatabase, ErrorTypeExternal, ErrorTypeInternal:
		h.logger.ErrorContext(ctx, "Critical error", err.LogFields()...)
	default:
		h.logger.ErrorContext(ctx, "Unknown error type", err.LogFields()...)
	}
}

// LogAndReturn logs an error and returns it
func (h *Handler) LogAndReturn(ctx context.Context, err error) error {
	h.Handle(ctx, err)
	return err
}

const (
	codeValidation   = "VALIDATION"
	codeUnauthorized = "UNAUTHORIZED"
	codeNotSignedIn  = "NOT_SIGNED_IN"
	codeNetwork      = "NETWORK"
	codeNotFound     = "NOT_FOUND"
	codeServer       = "SERVER"
)

// Predefined errors, matched with errors.Is by type and code
var (
	ErrInvalidInput   = New(ErrorTypeValidation, codeValidation, "Invalid input provided")
	ErrUnauthorized   = New(ErrorTypeAuth, codeUnauthorized, "Unauthorized access")
	ErrNotSignedIn    = New(ErrorTypeAuth, codeNotSignedIn, "No active session")
	ErrNetwork        = New(ErrorTypeNetwork, codeNetwork, "Backend unreachable")
	ErrNotFound       = New(ErrorTypeNotFound, codeNotFound, "Resource not found")
	ErrServer         = New(ErrorTypeServer, codeServer, "Backend error")
	ErrDatabaseError  = New(ErrorTypeDatabase, "DB_ERROR", "Database operation failed")
	ErrExternalAPI    = New(ErrorTypeExternal, "EXTERNAL_API", "External API error")
	ErrTimeout        = New(ErrorTypeTimeout, "TIMEOUT", "Operation timed out")
	ErrInternalServer = New(ErrorTypeInternal, "INTERNAL", "Internal server error")
)

func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Code: codeValidation, Message: message, Source: caller(2)}
}

func NewAuthError(message string) *AppError {
	return &AppError{Type: ErrorTypeAuth, Code: codeUnauthorized, Message: message, Source: caller(2)}
}

func NewNotSignedInError() *AppError {
	return &AppError{Type: ErrorTypeAuth, Code: codeNotSignedIn, Message: "No active session", Source: caller(2)}
}

func NewNetworkError(err error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Code: codeNetwork, Message: "Backend unreachable", Internal: err, Source: caller(2)}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Code: codeNotFound, Message: message, Source: caller(2)}
}

func NewServerError(message string) *AppError {
	return &AppError{Type: ErrorTypeServer, Code: codeServer, Message: message, Source: caller(2)}
}

func NewDatabaseError(err error) *AppError {
	return &AppError{Type: ErrorTypeDatabase, Code: "DB_ERROR", Message: "Database operation failed", Internal: err, Source: caller(2)}
}

func NewExternalAPIError(err error, api string) *AppError {
	return (&AppError{Type: ErrorTypeExternal, Code: "EXTERNAL_API", Message: fmt.Sprintf("%s API error", api), Internal: err, Source: caller(2)}).
		WithContext("api", api)
}

func NewTimeoutError(operation string) *AppError {
	return (&AppError{Type: ErrorTypeTimeout, Code: "TIMEOUT", Message: fmt.Sprintf("%s operation timed out", operation), Source: caller(2)}).
		WithContext("operation", operation)
}

func NewInternalError(err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Code: "INTERNAL", Message: "Internal server error", Internal: err, Source: caller(2)}
}
