package backend

import (
	"encoding/json"
	"fmt"

	"github.com/broady/docgate"
)

// Wire status codes.
const (
	WireSuccess = "SUCCESS"
	WireError   = "ERROR"
)

// WireRequest is the request envelope as sent to a remote backend.
type WireRequest struct {
	RequestID  string `json:"request_id"`
	Endpoint   string `json:"endpoint"`
	Parameters any    `json:"parameters,omitempty"`
	Docs       []any  `json:"docs"`
}

// WireStatus is the outcome reported by a remote backend.
type WireStatus struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// WireResponse is the response envelope returned by a remote backend.
type WireResponse struct {
	Status     WireStatus     `json:"status"`
	Docs       []any          `json:"docs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// NewWireRequest converts a request envelope to its wire form.
func NewWireRequest(req *docgate.Request) *WireRequest {
	docs := req.Docs
	if docs == nil {
		docs = []any{}
	}
	return &WireRequest{
		RequestID:  req.ID(),
		Endpoint:   req.Endpoint(),
		Parameters: req.Parameters,
		Docs:       docs,
	}
}

// Request converts the wire form back to a request envelope. Documents and
// parameters stay in their generic decoded form.
func (w *WireRequest) Request() *docgate.Request {
	return docgate.NewRequest(w.RequestID, w.Endpoint, w.Parameters, w.Docs)
}

// NewWireResponse converts a response envelope to its wire form.
func NewWireResponse(res *docgate.Response) *WireResponse {
	code := WireSuccess
	if !res.OK() {
		code = WireError
	}
	return &WireResponse{
		Status:     WireStatus{Code: code, Description: res.Status.Description},
		Docs:       res.Docs,
		Parameters: res.Parameters,
	}
}

// Response converts the wire form to a response envelope.
func (w *WireResponse) Response() (*docgate.Response, error) {
	switch w.Status.Code {
	case WireSuccess:
		return docgate.Success(w.Docs, w.Parameters), nil
	case WireError:
		return docgate.Failure(w.Status.Description), nil
	default:
		return nil, fmt.Errorf("backend: unknown status code %q", w.Status.Code)
	}
}

// paramsMap returns parameters as a generic map, converting typed
// parameters through JSON.
func paramsMap(p any) (map[string]any, error) {
	switch v := p.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
