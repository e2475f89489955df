package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/broady/docgate"
	"github.com/broady/docgate/backend"
)

type SchemaCmd struct {
	Endpoint string `arg:"" optional:"" help:"Only print this endpoint."`
	OpenAPI  bool   `help:"Print the OpenAPI document instead." name:"openapi"`
}

// endpointSchema is the printed description of one endpoint.
type endpointSchema struct {
	Name               string         `json:"name"`
	Path               string         `json:"path"`
	CSVColumns         []string       `json:"csv_columns"`
	ParamsColumns      []string       `json:"params_columns,omitempty"`
	ParametersRequired bool           `json:"parameters_required"`
	Input              map[string]any `json:"input"`
	Output             map[string]any `json:"output"`
}

func (c *SchemaCmd) Run() error {
	return c.write(os.Stdout)
}

func (c *SchemaCmd) write(w io.Writer) error {
	app := docgate.NewApp(backend.Echo{}).
		WithInfo("docgate", Version()).
		Register(endpoints()...)

	if c.OpenAPI {
		doc, err := app.OpenAPI()
		if err != nil {
			return err
		}
		_, err = w.Write(append(doc, '\n'))
		return err
	}

	var out []endpointSchema
	for _, d := range app.Endpoints() {
		if c.Endpoint != "" && c.Endpoint != d.Name {
			continue
		}
		s := endpointSchema{
			Name:               d.Name,
			Path:               d.Path,
			CSVColumns:         d.Document.FieldNames(),
			ParametersRequired: d.ParametersRequired,
			Input:              d.Input.JSONSchema(),
			Output:             d.Output.JSONSchema(),
		}
		if d.Parameters != nil {
			s.ParamsColumns = d.Parameters.FieldNames()
		}
		out = append(out, s)
	}
	if c.Endpoint != "" && len(out) == 0 {
		return fmt.Errorf("unknown endpoint %q", c.Endpoint)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
