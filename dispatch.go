package docgate

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Dispatch wraps a decoded input in a request envelope, runs call and maps
// the response back to the output record. The endpoint name is taken from
// ctx. A backend error status fails the request with a *HandlerError.
//
// call runs on its own goroutine; Dispatch returns ctx.Err() as soon as ctx
// is done, even if call has not returned.
func Dispatch[In, Out, P any](ctx Context, in *Input[In, P], call CallFunc) (*Output[Out], error) {
	docs := make([]any, len(in.Data))
	for i, d := range in.Data {
		docs[i] = d
	}

	var params any
	if in.Parameters != nil {
		params = *in.Parameters
	}

	req := NewRequest(requestID(in), ctx.Endpoint(), params, docs)

	res, err := runCall(ctx, call, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("docgate: backend returned no response for %s", req.ID())
	}
	if !res.OK() {
		return nil, &HandlerError{
			Endpoint:    req.Endpoint(),
			RequestID:   req.ID(),
			Description: res.Status.Description,
		}
	}

	out := &Output[Out]{
		Data:       make([]Out, 0, len(res.Docs)),
		Parameters: res.Parameters,
	}
	if out.Parameters == nil {
		out.Parameters = map[string]any{}
	}
	for i, d := range res.Docs {
		doc, err := convertDoc[Out](d)
		if err != nil {
			return nil, fmt.Errorf("docgate: response document %d: %w", i, err)
		}
		out.Data = append(out.Data, doc)
	}
	return out, nil
}

// requestID picks the header's id, then the first document's id, then a
// fresh UUID.
func requestID[In, P any](in *Input[In, P]) string {
	if in.Header != nil && in.Header.RequestID != "" {
		return in.Header.RequestID
	}
	if len(in.Data) > 0 {
		var first any = in.Data[0]
		if id, ok := first.(Identifier); ok && id.DocumentID() != "" {
			return id.DocumentID()
		}
		if id, ok := any(&in.Data[0]).(Identifier); ok && id.DocumentID() != "" {
			return id.DocumentID()
		}
	}
	return uuid.NewString()
}

type callResult struct {
	res *Response
	err error
}

func runCall(ctx Context, call CallFunc, req *Request) (*Response, error) {
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- callResult{err: fmt.Errorf("docgate: backend call panicked: %v", rec)}
			}
		}()
		res, err := call(ctx, req)
		done <- callResult{res: res, err: err}
	}()

	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// convertDoc returns d as an Out. Values of another type are converted
// through JSON, so a backend may answer with maps or wire structs.
func convertDoc[Out any](d any) (Out, error) {
	switch v := d.(type) {
	case Out:
		return v, nil
	case *Out:
		if v != nil {
			return *v, nil
		}
	}
	var out Out
	b, err := json.Marshal(d)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}
