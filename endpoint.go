package docgate

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"

	"github.com/broady/docgate/schema"
)

// Route is a registered endpoint. It is sealed: create routes with
// NewEndpoint.
type Route interface {
	// Name returns the endpoint name, which is also its path without the
	// leading slash.
	Name() string

	// Descriptor returns the compiled endpoint shape.
	Descriptor() *EndpointDescriptor

	serve(ctx *rpcContext, cfg routeConfig)
	openAPIStructures() (input, output any)
}

// routeConfig is the App-level configuration handed to a route per request.
type routeConfig struct {
	caller             Caller
	interceptors       []UnaryInterceptor
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	logger             *slog.Logger
	maxRequestBodySize uint64
}

// Endpoint is a route that accepts documents of type In, answers with
// documents of type Out and takes parameters of type P. Use Params for P
// when the endpoint has no typed parameters.
type Endpoint[In, Out, P any] struct {
	desc                 *EndpointDescriptor
	interceptors         []UnaryInterceptor
	maxRequestBodySize   uint64
	maxRequestBodySizeOK bool // distinguishes zero (no limit) from unset (use App default)
}

// NewEndpoint compiles the endpoint descriptor for name. It panics if In,
// Out or P cannot be described, since that is a programming error.
func NewEndpoint[In, Out, P any](name string) *Endpoint[In, Out, P] {
	desc, err := BuildDescriptor(name,
		reflect.TypeFor[In](),
		reflect.TypeFor[Out](),
		reflect.TypeFor[P](),
	)
	if err != nil {
		panic(err)
	}
	return &Endpoint[In, Out, P]{desc: desc}
}

// WithUnaryInterceptor adds an interceptor to this endpoint. Endpoint
// interceptors run after the App's global interceptors.
func (e *Endpoint[In, Out, P]) WithUnaryInterceptor(i UnaryInterceptor) *Endpoint[In, Out, P] {
	e.interceptors = append(e.interceptors, i)
	return e
}

// WithMaxRequestBodySize overrides the App's body size limit for this
// endpoint. A value of 0 means no limit.
func (e *Endpoint[In, Out, P]) WithMaxRequestBodySize(size uint64) *Endpoint[In, Out, P] {
	e.maxRequestBodySize = size
	e.maxRequestBodySizeOK = true
	return e
}

// Name implements Route.
func (e *Endpoint[In, Out, P]) Name() string { return e.desc.Name }

// Descriptor implements Route.
func (e *Endpoint[In, Out, P]) Descriptor() *EndpointDescriptor { return e.desc }

func (e *Endpoint[In, Out, P]) openAPIStructures() (any, any) {
	return Input[In, P]{}, Output[Out]{}
}

func (e *Endpoint[In, Out, P]) serve(ctx *rpcContext, cfg routeConfig) {
	w, r := ctx.writer, ctx.request

	limit := cfg.maxRequestBodySize
	if e.maxRequestBodySizeOK {
		limit = e.maxRequestBodySize
	}
	if limit > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, int64(limit))
	}

	interceptors := make([]UnaryInterceptor, 0, len(cfg.interceptors)+len(e.interceptors))
	interceptors = append(interceptors, cfg.interceptors...)
	interceptors = append(interceptors, e.interceptors...)
	call := chainInterceptors(interceptors, func(c Context, req *Request) (*Response, error) {
		return cfg.caller.Call(c, req)
	})

	result, err := e.handle(ctx, call)
	if err != nil {
		writeError(w, toError(err, cfg.errorTransformer, cfg.maskInternalErrors), cfg.logger)
		return
	}
	writeJSON(w, result, cfg.logger)
}

// handle decodes the body according to its content type and dispatches it.
// A JSON array of input objects is dispatched element by element and
// answered with an array of output records.
func (e *Endpoint[In, Out, P]) handle(ctx Context, call CallFunc) (any, error) {
	r := ctx.HTTPRequest()
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, &ContentTypeError{ContentType: contentType}
	}

	var body io.Reader = http.NoBody
	if r.Body != nil {
		body = r.Body
	}

	switch mediaType {
	case "application/json":
		inputs, batch, err := e.DecodeJSON(body)
		if err != nil {
			return nil, err
		}
		outputs := make([]*Output[Out], 0, len(inputs))
		for _, in := range inputs {
			out, err := Dispatch[In, Out, P](ctx, in, call)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, out)
		}
		if batch {
			return outputs, nil
		}
		return outputs[0], nil

	case "text/csv", "application/csv":
		in, err := e.DecodeCSV(body)
		if err != nil {
			return nil, err
		}
		return Dispatch[In, Out, P](ctx, in, call)

	default:
		return nil, &ContentTypeError{ContentType: contentType}
	}
}

// DecodeJSON decodes a JSON body holding one input object or an array of
// them. batch reports whether the body was an array. Each object is checked
// against the input JSON Schema before it is decoded; camel-case aliases of
// the wrapper fields are accepted.
func (e *Endpoint[In, Out, P]) DecodeJSON(body io.Reader) (inputs []*Input[In, P], batch bool, err error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, false, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, false, NewError(CodeInvalidArgument, "empty request body")
	}

	if b[0] != '[' {
		in, err := e.decodeJSONInput(b)
		if err != nil {
			return nil, false, err
		}
		return []*Input[In, P]{in}, false, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, true, Errorf(CodeInvalidArgument, "failed to decode body: %v", err)
	}
	if len(items) == 0 {
		return nil, true, NewError(CodeInvalidArgument, "empty input array")
	}
	inputs = make([]*Input[In, P], 0, len(items))
	for _, item := range items {
		in, err := e.decodeJSONInput(item)
		if err != nil {
			return nil, true, err
		}
		inputs = append(inputs, in)
	}
	return inputs, true, nil
}

func (e *Endpoint[In, Out, P]) decodeJSONInput(raw []byte) (*Input[In, P], error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, Errorf(CodeInvalidArgument, "failed to decode body: %v", err)
	}
	obj = e.desc.Input.CanonicalKeys(obj)
	if err := e.desc.Input.ValidateJSON(obj); err != nil {
		return nil, err
	}

	in := &Input[In, P]{}
	data := bytes.TrimSpace(obj["data"])
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &in.Data); err != nil {
			return nil, Errorf(CodeInvalidArgument, "failed to decode data: %v", err)
		}
	} else {
		var doc In
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, Errorf(CodeInvalidArgument, "failed to decode data: %v", err)
		}
		in.Data = []In{doc}
	}

	if raw, ok := obj["parameters"]; ok && !isNull(raw) {
		var p P
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, Errorf(CodeInvalidArgument, "failed to decode parameters: %v", err)
		}
		in.Parameters = &p
	}
	if raw, ok := obj["header"]; ok && !isNull(raw) {
		in.Header = &Header{}
		if err := json.Unmarshal(raw, in.Header); err != nil {
			return nil, Errorf(CodeInvalidArgument, "failed to decode header: %v", err)
		}
	}

	if err := e.validateInput(in); err != nil {
		return nil, err
	}
	return in, nil
}

// DecodeCSV decodes a headerless CSV body. The first row is the parameters
// row when its second cell is ParamsRowMarker; every other row is one
// document whose cells follow the document's field order.
func (e *Endpoint[In, Out, P]) DecodeCSV(body io.Reader) (*Input[In, P], error) {
	rows, err := schema.ReadRows(body)
	if err != nil {
		return nil, err
	}
	paramsRow, dataRows, hasParams := splitCSV(rows)

	in := &Input[In, P]{Data: make([]In, 0, len(dataRows))}

	if hasParams {
		if e.desc.Parameters == nil {
			return nil, Errorf(CodeInvalidArgument,
				"endpoint %s takes untyped parameters, which cannot be read from a %s row", e.desc.Name, ParamsRowMarker)
		}
		rec, err := schema.Decode(e.desc.Parameters, paramsRow)
		if err != nil {
			return nil, err
		}
		var p P
		if err := rec.Into(&p); err != nil {
			return nil, Errorf(CodeInvalidArgument, "failed to decode parameters: %v", err)
		}
		in.Parameters = &p
	}

	for _, row := range dataRows {
		rec, err := schema.Decode(e.desc.Document, row)
		if err != nil {
			return nil, err
		}
		var doc In
		if err := rec.Into(&doc); err != nil {
			return nil, Errorf(CodeInvalidArgument, "failed to decode document: %v", err)
		}
		in.Data = append(in.Data, doc)
	}

	if err := e.validateInput(in); err != nil {
		return nil, err
	}
	return in, nil
}

// validateInput enforces required parameters and struct validation of every
// document and of the parameters.
func (e *Endpoint[In, Out, P]) validateInput(in *Input[In, P]) error {
	if in.Parameters == nil && e.desc.ParametersRequired {
		return Errorf(CodeInvalidArgument, "parameters are required for endpoint %s", e.desc.Name)
	}
	for _, doc := range in.Data {
		if err := schema.ValidateStruct(doc); err != nil {
			return err
		}
	}
	if in.Parameters != nil {
		if err := schema.ValidateStruct(*in.Parameters); err != nil {
			return err
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
