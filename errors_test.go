package docgate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/broady/docgate/schema"
	"github.com/google/go-cmp/cmp"
)

func TestNewError(t *testing.T) {
	err := NewError(CodeNotFound, "resource not found")
	if err.Code != CodeNotFound {
		t.Errorf("expected code %s, got %s", CodeNotFound, err.Code)
	}
	if err.Message != "resource not found" {
		t.Errorf("expected message 'resource not found', got %s", err.Message)
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(CodeInvalidArgument, "invalid field: %s", "id")
	if err.Code != CodeInvalidArgument {
		t.Errorf("expected code %s, got %s", CodeInvalidArgument, err.Code)
	}
	if err.Message != "invalid field: id" {
		t.Errorf("expected formatted message, got %s", err.Message)
	}
}

func TestErrorError(t *testing.T) {
	err := NewError(CodeInternal, "something went wrong")
	expected := "internal: something went wrong"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestError_WithDetails(t *testing.T) {
	base := NewError(CodeInvalidArgument, "bad").WithDetail("a", 1)
	merged := base.WithDetails(map[string]any{"b": 2})

	if diff := cmp.Diff(map[string]any{"a": 1}, base.Details); diff != "" {
		t.Errorf("original details modified (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"a": 1, "b": 2}, merged.Details); diff != "" {
		t.Errorf("merged details mismatch (-want +got):\n%s", diff)
	}
	if same := base.WithDetails(nil); same != base {
		t.Error("expected WithDetails(nil) to return the receiver")
	}
}

func TestDefaultErrorTransformer(t *testing.T) {
	tests := []struct {
		name        string
		input       error
		wantCode    ErrorCode
		wantMsg     string
		wantDetails map[string]any
	}{
		{
			name:     "nil error",
			input:    nil,
			wantCode: "",
		},
		{
			name:     "gateway error passthrough",
			input:    NewError(CodeNotFound, "not found"),
			wantCode: CodeNotFound,
			wantMsg:  "not found",
		},
		{
			name:     "handler error",
			input:    &HandlerError{Endpoint: "classify", RequestID: "r1", Description: "bad input"},
			wantCode: CodeInternal,
			wantMsg:  "bad input",
		},
		{
			name:     "context deadline exceeded",
			input:    fmt.Errorf("call: %w", context.DeadlineExceeded),
			wantCode: CodeDeadlineExceeded,
			wantMsg:  "request timeout",
		},
		{
			name:     "context canceled",
			input:    context.Canceled,
			wantCode: CodeCanceled,
			wantMsg:  "context canceled",
		},
		{
			name:     "body too large",
			input:    &http.MaxBytesError{Limit: 10},
			wantCode: CodeRequestTooLarge,
			wantMsg:  "request body exceeds 10 bytes",
		},
		{
			name:        "content type",
			input:       &ContentTypeError{ContentType: "text/plain"},
			wantCode:    CodeInvalidArgument,
			wantMsg:     `invalid content-type: "text/plain", use either application/json or text/csv`,
			wantDetails: map[string]any{"content_type": "text/plain"},
		},
		{
			name:     "shape mismatch",
			input:    &schema.ShapeMismatchError{Row: []string{"a"}, Fields: []string{"id", "score"}},
			wantCode: CodeInvalidArgument,
			wantMsg:  `invalid CSV format: line ["a"] doesn't match the expected field order ["id" "score"] (expected 2 fields, got 1)`,
			wantDetails: map[string]any{
				"row":    []string{"a"},
				"fields": []string{"id", "score"},
			},
		},
		{
			name:        "csv syntax",
			input:       &schema.CSVSyntaxError{Line: 3, Msg: "dangling escape"},
			wantCode:    CodeInvalidArgument,
			wantMsg:     "invalid CSV input: line 3: dangling escape",
			wantDetails: map[string]any{"line": 3},
		},
		{
			name:        "field error",
			input:       &schema.FieldError{Field: "k", Value: "x", Err: errors.New("not an int")},
			wantCode:    CodeInvalidArgument,
			wantMsg:     `error parsing value "x" for field "k": not an int`,
			wantDetails: map[string]any{"field": "k", "value": "x"},
		},
		{
			name: "json schema",
			input: &schema.ValidationError{
				Schema:   "RankInput",
				Problems: []schema.Problem{{Field: "data", Message: "data is required"}},
			},
			wantCode:    CodeInvalidArgument,
			wantMsg:     "invalid RankInput: data: data is required",
			wantDetails: map[string]any{"data": "data is required"},
		},
		{
			name:     "generic error",
			input:    errors.New("something failed"),
			wantCode: CodeInternal,
			wantMsg:  "something failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DefaultErrorTransformer(tt.input)
			if tt.input == nil {
				if result != nil {
					t.Errorf("expected nil for nil input, got %v", result)
				}
				return
			}
			if result.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, result.Code)
			}
			if result.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, result.Message)
			}
			if tt.wantDetails != nil {
				if diff := cmp.Diff(tt.wantDetails, result.Details); diff != "" {
					t.Errorf("details mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestDefaultErrorTransformer_ValidationErrors(t *testing.T) {
	err := schema.ValidateStruct(Doc{Score: "medium"})

	result := DefaultErrorTransformer(err)
	if result.Code != CodeInvalidArgument {
		t.Errorf("expected code %s, got %s", CodeInvalidArgument, result.Code)
	}
	want := map[string]any{
		"id":    "required",
		"score": "must be one of: low high",
	}
	if diff := cmp.Diff(want, result.Details); diff != "" {
		t.Errorf("details mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(result.Message, "id: required") {
		t.Errorf("expected message to name the field, got %q", result.Message)
	}
}

func TestToError_Masking(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		mask    bool
		wantMsg string
	}{
		{"unmasked internal", errors.New("db password wrong"), false, "db password wrong"},
		{"masked internal", errors.New("db password wrong"), true, "internal server error"},
		{"masked handler error", &HandlerError{Description: "bad input"}, true, "bad input"},
		{"masked client error", NewError(CodeInvalidArgument, "bad id"), true, "bad id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toError(tt.err, nil, tt.mask)
			if got.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, got.Message)
			}
		})
	}
}

func TestToError_CustomTransformer(t *testing.T) {
	sentinel := errors.New("not yours")
	transform := func(err error) *Error {
		if errors.Is(err, sentinel) {
			return NewError(CodePermissionDenied, "forbidden")
		}
		return nil
	}

	if got := toError(sentinel, transform, false); got.Code != CodePermissionDenied {
		t.Errorf("expected %s, got %s", CodePermissionDenied, got.Code)
	}
	// nil from the transformer falls back to the default mapping.
	if got := toError(context.Canceled, transform, false); got.Code != CodeCanceled {
		t.Errorf("expected %s, got %s", CodeCanceled, got.Code)
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodePermissionDenied, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{CodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeDeadlineExceeded, http.StatusGatewayTimeout},
		{CodeCanceled, 499},
		{CodeInternal, http.StatusInternalServerError},
		{ErrorCode("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if status := tt.code.HTTPStatus(); status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	writeError(w, NewError(CodeNotFound, "resource not found"), nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", w.Header().Get("Content-Type"))
	}

	var body errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error == nil || body.Error.Message != "resource not found" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

type failingWriter struct {
	headerWritten bool
}

func (fw *failingWriter) Header() http.Header {
	return http.Header{}
}

func (fw *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func (fw *failingWriter) WriteHeader(statusCode int) {
	fw.headerWritten = true
}

func TestWriteError_EncodingFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	w := &failingWriter{}

	writeError(w, NewError(CodeInternal, "test error"), logger)

	if !w.headerWritten {
		t.Error("expected WriteHeader to be called")
	}
	if !strings.Contains(logs.String(), "failed to encode error response") {
		t.Errorf("expected encode failure to be logged, got %q", logs.String())
	}
}
