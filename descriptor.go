package docgate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/broady/docgate/schema"
)

// EndpointDescriptor is the compiled shape of one endpoint. It is built once
// at registration and never modified.
type EndpointDescriptor struct {
	Name string
	Path string

	// Document and Result are the input and output document schemas. CSV
	// data rows are decoded against Document.
	Document *schema.RecordSchema
	Result   *schema.RecordSchema

	// Parameters is the typed parameters schema, or nil when the endpoint
	// takes generic Params.
	Parameters *schema.RecordSchema

	// Input is {data, parameters, header}; Output is {data, parameters}.
	Input  *schema.RecordSchema
	Output *schema.RecordSchema

	// ParametersRequired is set when the parameters type cannot be
	// constructed from its zero value.
	ParametersRequired bool
}

var (
	paramsType = reflect.TypeFor[Params]()
	headerType = reflect.TypeFor[Header]()
)

// BuildDescriptor derives the descriptor of an endpoint from its document
// and parameters types. Rebuilding from the same types yields the same shape.
func BuildDescriptor(name string, in, out, params reflect.Type) (*EndpointDescriptor, error) {
	name = strings.Trim(name, "/")
	if name == "" {
		return nil, fmt.Errorf("docgate: endpoint name must not be empty")
	}

	doc, err := schema.FromType(in)
	if err != nil {
		return nil, fmt.Errorf("docgate: %s input document: %w", name, err)
	}
	res, err := schema.FromType(out)
	if err != nil {
		return nil, fmt.Errorf("docgate: %s output document: %w", name, err)
	}

	d := &EndpointDescriptor{
		Name:     name,
		Path:     "/" + name,
		Document: doc,
		Result:   res,
	}

	paramsDesc := schema.Map()
	if pt := derefType(params); pt != paramsType && pt.Kind() == reflect.Struct {
		d.Parameters, err = schema.FromType(pt)
		if err != nil {
			return nil, fmt.Errorf("docgate: %s parameters: %w", name, err)
		}
		d.ParametersRequired = !constructible(pt)
		paramsDesc = schema.Scalar(pt)
	}

	d.Input = schema.NewRecordSchema(pascal(name)+"Input",
		schema.Field{
			Name:       "data",
			Descriptor: schema.Union(schema.Records(doc), schema.Scalar(derefType(in))),
			Required:   true,
		},
		schema.Field{
			Name:       "parameters",
			Descriptor: paramsDesc,
			Required:   d.ParametersRequired,
			Optional:   !d.ParametersRequired,
		},
		schema.Field{
			Name:       "header",
			Descriptor: schema.Scalar(headerType),
			Optional:   true,
		},
	)
	d.Output = schema.NewRecordSchema(pascal(name)+"Output",
		schema.Field{
			Name:       "data",
			Descriptor: schema.Union(schema.Records(res), schema.Scalar(derefType(out))),
			Required:   true,
		},
		schema.Field{
			Name:       "parameters",
			Descriptor: schema.Map(),
			Optional:   true,
		},
	)
	return d, nil
}

// constructible reports whether the zero value of t passes validation, the
// Go equivalent of constructing the type with no arguments.
func constructible(t reflect.Type) bool {
	return schema.ValidateStruct(reflect.New(t).Interface()) == nil
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// pascal turns an endpoint name like "text/classify-batch" into
// "TextClassifyBatch".
func pascal(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '/' || r == '-' || r == '_' || r == '.' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
