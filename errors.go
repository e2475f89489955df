package docgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/broady/docgate/schema"
	"github.com/go-playground/validator/v10"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeUnauthenticated   ErrorCode = "unauthenticated"
	CodePermissionDenied  ErrorCode = "permission_denied"
	CodeNotFound          ErrorCode = "not_found"
	CodeMethodNotAllowed  ErrorCode = "method_not_allowed"
	CodeRequestTooLarge   ErrorCode = "request_too_large"
	CodeResourceExhausted ErrorCode = "resource_exhausted"
	CodeCanceled          ErrorCode = "canceled"
	CodeInternal          ErrorCode = "internal"
	CodeNotImplemented    ErrorCode = "not_implemented"
	CodeUnavailable       ErrorCode = "unavailable"
	CodeDeadlineExceeded  ErrorCode = "deadline_exceeded"
)

// Error is the standard JSON error envelope.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new gateway error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new gateway error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	return e.WithDetails(map[string]any{key: value})
}

// WithDetails returns a new Error with the provided map merged into details.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: merged,
	}
}

// HandlerError is returned by the dispatcher when the backend reports an
// error status. Description is passed to the client verbatim.
type HandlerError struct {
	Endpoint    string
	RequestID   string
	Description string
}

func (e *HandlerError) Error() string {
	return e.Description
}

// ContentTypeError reports a request body that is neither JSON nor CSV.
type ContentTypeError struct {
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("invalid content-type: %q, use either application/json or text/csv", e.ContentType)
}

// ErrorTransformer is a function that maps an application error to a gateway error.
// If it returns nil, the default transformer logic should be applied.
type ErrorTransformer func(error) *Error

// DefaultErrorTransformer maps decode, dispatch and standard Go errors to
// gateway errors. Every decode failure is a client error.
func DefaultErrorTransformer(err error) *Error {
	if err == nil {
		return nil
	}

	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) {
		return NewError(CodeInternal, handlerErr.Description)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, "request timeout")
	}

	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, "context canceled")
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return Errorf(CodeRequestTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
	}

	var ctErr *ContentTypeError
	if errors.As(err, &ctErr) {
		return NewError(CodeInvalidArgument, ctErr.Error()).WithDetail("content_type", ctErr.ContentType)
	}

	var shapeErr *schema.ShapeMismatchError
	if errors.As(err, &shapeErr) {
		return NewError(CodeInvalidArgument, shapeErr.Error()).WithDetails(map[string]any{
			"row":    shapeErr.Row,
			"fields": shapeErr.Fields,
		})
	}

	var csvErr *schema.CSVSyntaxError
	if errors.As(err, &csvErr) {
		return NewError(CodeInvalidArgument, csvErr.Error()).WithDetail("line", csvErr.Line)
	}

	var fieldErr *schema.FieldError
	if errors.As(err, &fieldErr) {
		return NewError(CodeInvalidArgument, fieldErr.Error()).WithDetails(map[string]any{
			"field": fieldErr.Field,
			"value": fieldErr.Value,
		})
	}

	var schemaErr *schema.ValidationError
	if errors.As(err, &schemaErr) {
		details := make(map[string]any, len(schemaErr.Problems))
		for _, p := range schemaErr.Problems {
			details[p.Field] = p.Message
		}
		return &Error{
			Code:    CodeInvalidArgument,
			Message: schemaErr.Error(),
			Details: details,
		}
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any)
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Field()] = msg
			messages = append(messages, ve.Field()+": "+msg)
		}
		return &Error{
			Code:    CodeInvalidArgument,
			Message: strings.Join(messages, "; "),
			Details: details,
		}
	}

	return NewError(CodeInternal, err.Error())
}

// HTTPStatus maps an ErrorCode to an HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx standard)
	case CodeInternal:
		return http.StatusInternalServerError
	case CodeNotImplemented:
		return http.StatusNotImplemented
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

// toError runs the configured transformer, then the default one, and masks
// internal messages when asked to. Handler-reported descriptions are never
// masked.
func toError(err error, transform ErrorTransformer, mask bool) *Error {
	var gwErr *Error
	if transform != nil {
		gwErr = transform(err)
	}
	if gwErr == nil {
		gwErr = DefaultErrorTransformer(err)
	}
	var handlerErr *HandlerError
	if mask && gwErr.Code == CodeInternal && !errors.As(err, &handlerErr) {
		gwErr = NewError(CodeInternal, "internal server error")
	}
	return gwErr
}

func writeError(w http.ResponseWriter, gwErr *Error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(gwErr.Code.HTTPStatus())
	if err := encodeErrorResponse(w, gwErr); err != nil {
		// Headers already sent, nothing we can do. Log for debugging.
		logger.Error("failed to encode error response",
			slog.String("code", string(gwErr.Code)),
			slog.String("message", gwErr.Message),
			slog.Any("error", err))
	}
}
