package docgate

import (
	"context"
	"sync"
)

// Doc is the input document used across tests.
type Doc struct {
	ID    string `json:"id" validate:"required"`
	Score string `json:"score,omitempty" validate:"omitempty,oneof=low high"`
}

func (d Doc) DocumentID() string { return d.ID }

// Result is the output document used across tests.
type Result struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// TopK has a required field, so parameters of this type are mandatory.
type TopK struct {
	K       int  `json:"k" validate:"required,gt=0"`
	Verbose bool `json:"verbose"`
}

// Opts can be built from its zero value, so parameters are optional.
type Opts struct {
	Limit int `json:"limit"`
}

// anonDoc has no identity of its own.
type anonDoc struct {
	Text string `json:"text"`
}

// recordingCaller records every request and answers with respond, or with
// one Result per Doc when respond is nil.
type recordingCaller struct {
	mu       sync.Mutex
	requests []*Request
	respond  func(ctx context.Context, req *Request) (*Response, error)
}

func (c *recordingCaller) Call(ctx context.Context, req *Request) (*Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.respond != nil {
		return c.respond(ctx, req)
	}
	docs := make([]any, 0, len(req.Docs))
	for _, d := range req.Docs {
		if doc, ok := d.(Doc); ok {
			docs = append(docs, Result{ID: doc.ID, Label: doc.Score})
		}
	}
	return Success(docs, map[string]any{"endpoint": req.Endpoint()}), nil
}

func (c *recordingCaller) last() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	return c.requests[len(c.requests)-1]
}

func (c *recordingCaller) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// testApp returns an App with the standard test endpoints:
// "classify" (generic params), "rank" (required TopK) and "limit" (optional Opts).
func testApp(caller Caller) *App {
	return NewApp(caller).Register(
		NewEndpoint[Doc, Result, Params]("classify"),
		NewEndpoint[Doc, Result, TopK]("rank"),
		NewEndpoint[Doc, Result, Opts]("limit"),
	)
}
