package docgate

import (
	"context"
	"net/http"
)

// Context is passed to interceptors. It carries the endpoint being served
// and the underlying HTTP exchange.
type Context interface {
	context.Context

	// Endpoint returns the endpoint name, such as "classify".
	Endpoint() string

	// HTTPRequest returns the incoming request.
	HTTPRequest() *http.Request

	// HTTPWriter returns the response writer. Headers set on it are sent
	// with the response.
	HTTPWriter() http.ResponseWriter
}

type contextKey struct {
	name string
}

var gatewayContextKey = &contextKey{"docgate"}

type rpcContext struct {
	context.Context
	endpoint string
	request  *http.Request
	writer   http.ResponseWriter
}

func (c *rpcContext) Endpoint() string                { return c.endpoint }
func (c *rpcContext) HTTPRequest() *http.Request      { return c.request }
func (c *rpcContext) HTTPWriter() http.ResponseWriter { return c.writer }

// NewContext creates a Context for endpoint. It is used by the App for every
// request and is exported so interceptors can be tested in isolation.
func NewContext(parent context.Context, w http.ResponseWriter, r *http.Request, endpoint string) Context {
	c := &rpcContext{endpoint: endpoint, request: r, writer: w}
	c.Context = context.WithValue(parent, gatewayContextKey, c)
	return c
}

// FromContext extracts the Context from a context.Context, for code that
// only receives the plain context (a Caller, for example).
func FromContext(ctx context.Context) (Context, bool) {
	if c, ok := ctx.(Context); ok {
		return c, true
	}
	if c, ok := ctx.Value(gatewayContextKey).(*rpcContext); ok {
		return c, true
	}
	return nil, false
}

// SetHeader sets an HTTP response header. It has no effect outside a request
// served by an App.
func SetHeader(ctx context.Context, key, value string) {
	if c, ok := FromContext(ctx); ok && c.HTTPWriter() != nil {
		c.HTTPWriter().Header().Set(key, value)
	}
}
