package docgate

import (
	"log/slog"
	"net/http"

	"github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi31"
)

// OpenAPI returns the OpenAPI 3.1 document describing the JSON body of
// every registered endpoint.
func (a *App) OpenAPI() ([]byte, error) {
	a.mu.RLock()
	routes := make([]Route, 0, len(a.order))
	for _, name := range a.order {
		routes = append(routes, a.routes[name])
	}
	a.mu.RUnlock()

	r := openapi31.NewReflector()
	r.Spec.Info.WithTitle(a.title)
	r.Spec.Info.Version = a.version

	for _, route := range routes {
		in, out := route.openAPIStructures()
		op, err := r.NewOperationContext(http.MethodPost, route.Descriptor().Path)
		if err != nil {
			return nil, err
		}
		op.AddReqStructure(in, openapi.WithContentType("application/json"))
		op.AddRespStructure(out, openapi.WithHTTPStatus(http.StatusOK))
		op.AddRespStructure(errorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
		op.AddRespStructure(errorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
		if err := r.AddOperation(op); err != nil {
			return nil, err
		}
	}
	return r.Spec.MarshalJSON()
}

// serveOpenAPI writes the document, built once after the table is sealed.
func (a *App) serveOpenAPI(w http.ResponseWriter) {
	a.openapiOnce.Do(func() {
		a.openapiDoc, a.openapiErr = a.OpenAPI()
	})
	if a.openapiErr != nil {
		a.log().Error("failed to build OpenAPI document", slog.Any("error", a.openapiErr))
		writeError(w, NewError(CodeInternal, "failed to build OpenAPI document"), a.logger)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.openapiDoc)
}
