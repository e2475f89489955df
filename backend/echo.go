package backend

import (
	"context"

	"github.com/broady/docgate"
)

// Echo answers every request with its own documents and parameters. It is
// the default backend of the docgate binary and is handy in tests.
type Echo struct{}

// Call implements docgate.Caller.
func (Echo) Call(ctx context.Context, req *docgate.Request) (*docgate.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := paramsMap(req.Parameters)
	if err != nil {
		return nil, err
	}
	return docgate.Success(req.Docs, params), nil
}
