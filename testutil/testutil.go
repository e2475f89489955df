// Package testutil provides testing helpers for gateway HTTP handlers.
// It does not import the docgate package and can be used from any package.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/broady/docgate/schema"
	"github.com/google/go-cmp/cmp"
)

// RequestBuilder helps construct test HTTP requests with fluent API.
type RequestBuilder struct {
	method      string
	path        string
	body        []byte
	headers     map[string]string
	queryParams url.Values
}

// NewRequest creates a new request builder. The default is GET /.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		method:      http.MethodGet,
		path:        "/",
		headers:     make(map[string]string),
		queryParams: make(url.Values),
	}
}

// GET sets the HTTP method to GET.
func (b *RequestBuilder) GET(path string) *RequestBuilder {
	b.method = http.MethodGet
	b.path = path
	return b
}

// POST sets the HTTP method to POST.
func (b *RequestBuilder) POST(path string) *RequestBuilder {
	b.method = http.MethodPost
	b.path = path
	return b
}

// Method sets an arbitrary HTTP method.
func (b *RequestBuilder) Method(method, path string) *RequestBuilder {
	b.method = method
	b.path = path
	return b
}

// WithJSON sets the request body as JSON.
func (b *RequestBuilder) WithJSON(v any) *RequestBuilder {
	data, _ := json.Marshal(v)
	b.body = data
	b.headers["Content-Type"] = "application/json"
	return b
}

// WithCSV sets the request body to rows in the gateway CSV dialect.
func (b *RequestBuilder) WithCSV(rows ...[]string) *RequestBuilder {
	var buf bytes.Buffer
	_ = schema.WriteRows(&buf, rows)
	b.body = buf.Bytes()
	b.headers["Content-Type"] = "text/csv"
	return b
}

// WithBody sets the raw request body.
func (b *RequestBuilder) WithBody(body string) *RequestBuilder {
	b.body = []byte(body)
	return b
}

// WithHeader adds a header to the request.
func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// WithQuery adds a query parameter.
func (b *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	b.queryParams.Add(key, value)
	return b
}

// Build creates the HTTP request and ResponseRecorder.
func (b *RequestBuilder) Build() (*http.Request, *httptest.ResponseRecorder) {
	path := b.path
	if len(b.queryParams) > 0 {
		path += "?" + b.queryParams.Encode()
	}

	var req *http.Request
	if len(b.body) > 0 {
		req = httptest.NewRequest(b.method, path, bytes.NewReader(b.body))
	} else {
		req = httptest.NewRequest(b.method, path, nil)
	}

	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	return req, httptest.NewRecorder()
}

// Serve builds the request and serves it to h.
func (b *RequestBuilder) Serve(h http.Handler) *httptest.ResponseRecorder {
	req, w := b.Build()
	h.ServeHTTP(w, req)
	return w
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if w.Code != expectedStatus {
		t.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, w.Code, w.Body.String())
	}
}

// AssertJSONResponse decodes the response body and compares it with the
// JSON form of expected.
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expected any) {
	t.Helper()

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected value: %v", err)
	}

	// Compare as generic JSON to ignore formatting and key order.
	var expectedData, actualData any
	if err := json.Unmarshal(expectedJSON, &expectedData); err != nil {
		t.Fatalf("failed to decode expected value: %v", err)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &actualData); err != nil {
		t.Fatalf("failed to decode response: %v\nBody: %s", err, w.Body.String())
	}

	if diff := cmp.Diff(expectedData, actualData); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

// ErrorResponse is the body of an error envelope {"error": {...}}.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// AssertJSONError checks that the response carries an error envelope with
// the expected code and returns the decoded error.
func AssertJSONError(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) *ErrorResponse {
	t.Helper()

	var envelope struct {
		Error *ErrorResponse `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode error response: %v\nBody: %s", err, w.Body.String())
	}
	if envelope.Error == nil {
		t.Fatalf("expected error envelope, got: %s", w.Body.String())
	}

	if envelope.Error.Code != expectedCode {
		t.Errorf("expected error code %s, got %s (message: %s)", expectedCode, envelope.Error.Code, envelope.Error.Message)
	}

	return envelope.Error
}

// AssertHeader checks that a response header has the expected value.
func AssertHeader(t *testing.T, w *httptest.ResponseRecorder, key, expectedValue string) {
	t.Helper()
	actual := w.Header().Get(key)
	if actual != expectedValue {
		t.Errorf("expected header %s=%s, got %s", key, expectedValue, actual)
	}
}

// DecodeJSON decodes the response body into the provided value.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response: %v\nBody: %s", err, w.Body.String())
	}
}
