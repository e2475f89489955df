package docgate

import (
	"context"
	"encoding/json"
)

// Params is the generic parameters type. An endpoint declared with Params
// accepts any JSON object as parameters and never requires them.
type Params = map[string]any

// Header carries optional request metadata. Both "request_id" and
// "requestId" are accepted on input.
type Header struct {
	RequestID string `json:"request_id,omitempty"`
}

// UnmarshalJSON accepts the field name and its camel-case alias.
func (h *Header) UnmarshalJSON(b []byte) error {
	var raw struct {
		RequestID      *string `json:"request_id"`
		RequestIDCamel *string `json:"requestId"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.RequestID != nil:
		h.RequestID = *raw.RequestID
	case raw.RequestIDCamel != nil:
		h.RequestID = *raw.RequestIDCamel
	}
	return nil
}

// StatusCode is the outcome reported by a backend.
type StatusCode int

const (
	StatusSuccess StatusCode = iota
	StatusError
)

func (c StatusCode) String() string {
	switch c {
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Status is the backend outcome with an optional description.
type Status struct {
	Code        StatusCode `json:"code"`
	Description string     `json:"description,omitempty"`
}

// Request is the canonical envelope handed to a Caller. Its id and endpoint
// are fixed at construction.
type Request struct {
	id       string
	endpoint string

	// Parameters is either Params or the endpoint's typed parameters value.
	// It is nil when no parameters were supplied and none are required.
	Parameters any

	// Docs holds the decoded input documents in request order.
	Docs []any
}

// NewRequest creates a request envelope.
func NewRequest(id, endpoint string, params any, docs []any) *Request {
	return &Request{
		id:         id,
		endpoint:   endpoint,
		Parameters: params,
		Docs:       docs,
	}
}

// ID returns the request id.
func (r *Request) ID() string { return r.id }

// Endpoint returns the target endpoint name.
func (r *Request) Endpoint() string { return r.endpoint }

// Response is the canonical envelope returned by a Caller. Docs may hold
// values of the endpoint's output type or anything that marshals to it.
type Response struct {
	Status     Status
	Docs       []any
	Parameters map[string]any
}

// Success returns a successful response.
func Success(docs []any, params map[string]any) *Response {
	return &Response{
		Status:     Status{Code: StatusSuccess},
		Docs:       docs,
		Parameters: params,
	}
}

// Failure returns a response reporting an error with the given description.
func Failure(description string) *Response {
	return &Response{Status: Status{Code: StatusError, Description: description}}
}

// OK reports whether the response carries a success status.
func (r *Response) OK() bool { return r.Status.Code == StatusSuccess }

// Caller executes a request against the backend. It is the only blocking
// step of a request; implementations should honor ctx.
type Caller interface {
	Call(ctx context.Context, req *Request) (*Response, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, req *Request) (*Response, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Identifier is implemented by documents that carry their own id. The
// first document's id becomes the request id when no header supplies one.
type Identifier interface {
	DocumentID() string
}

// Input is the decoded input record of an endpoint: the documents, the
// parameters and the optional header.
// Parameters is nil when the request carried none.
type Input[In, P any] struct {
	Data       []In    `json:"data"`
	Parameters *P      `json:"parameters,omitempty"`
	Header     *Header `json:"header,omitempty"`
}

// Output is the output record of an endpoint.
type Output[Out any] struct {
	Data       []Out          `json:"data"`
	Parameters map[string]any `json:"parameters"`
}
