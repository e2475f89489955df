package docgate

// CallFunc represents the next step in an interceptor chain. The last step
// invokes the backend Caller.
type CallFunc func(ctx Context, req *Request) (*Response, error)

// UnaryInterceptor is a hook that wraps the backend call of every request.
//
//	func timing(ctx docgate.Context, req *docgate.Request, next docgate.CallFunc) (*docgate.Response, error) {
//	    start := time.Now()
//	    res, err := next(ctx, req)
//	    log.Printf("%s %s took %v", ctx.Endpoint(), req.ID(), time.Since(start))
//	    return res, err
//	}
//
// Interceptors run after the request has been decoded, so they only ever see
// well-formed envelopes. They can:
//   - Inspect or replace the request before calling next
//   - Inspect or replace the response after calling next
//   - Short-circuit by returning an error without calling next
type UnaryInterceptor func(ctx Context, req *Request, next CallFunc) (*Response, error)

// chainInterceptors combines interceptors around final.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []UnaryInterceptor, final CallFunc) CallFunc {
	chain := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		current := interceptors[i]
		next := chain
		chain = func(ctx Context, req *Request) (*Response, error) {
			return current(ctx, req, next)
		}
	}
	return chain
}
