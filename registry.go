package docgate

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
)

// Reserved paths served by every App.
const (
	PingPath    = "/ping"
	OpenAPIPath = "/openapi.json"
)

// App is the route table of the gateway. Endpoints are registered once at
// startup; the first call to Handler seals the table and later
// registrations panic.
type App struct {
	mu                 sync.RWMutex
	routes             map[string]Route
	order              []string
	sealed             bool
	caller             Caller
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	interceptors       []UnaryInterceptor
	middlewares        []func(http.Handler) http.Handler
	logger             *slog.Logger
	maxRequestBodySize uint64
	title              string
	version            string

	openapiOnce sync.Once
	openapiDoc  []byte
	openapiErr  error
}

// NewApp creates an App that forwards every decoded request to caller.
func NewApp(caller Caller) *App {
	if caller == nil {
		panic("docgate: NewApp requires a non-nil Caller")
	}
	return &App{
		routes:             make(map[string]Route),
		caller:             caller,
		maxRequestBodySize: 1 << 20, // 1MB default
		title:              "docgate",
		version:            "0.0.0",
	}
}

// WithErrorTransformer adds a custom error transformer.
// It returns the app for chaining.
func (a *App) WithErrorTransformer(fn ErrorTransformer) *App {
	a.errorTransformer = fn
	return a
}

// WithMaskInternalErrors replaces internal error messages with a generic
// one. Descriptions reported by the backend are still passed through.
func (a *App) WithMaskInternalErrors() *App {
	a.maskInternalErrors = true
	return a
}

// WithUnaryInterceptor adds a global interceptor.
//
// Interceptor execution order:
//  1. Global interceptors (added via App.WithUnaryInterceptor)
//  2. Endpoint interceptors (added via Endpoint.WithUnaryInterceptor)
//  3. The backend Caller
//
// Within each level, interceptors execute in the order they were added.
func (a *App) WithUnaryInterceptor(i UnaryInterceptor) *App {
	a.interceptors = append(a.interceptors, i)
	return a
}

// WithMiddleware adds an HTTP middleware to wrap the app.
// Middleware is applied in the order added (first added is outermost).
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithLogger sets a custom logger for the app.
// If not set, slog.Default() will be used.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithMaxRequestBodySize sets the default maximum request body size for all endpoints.
// Individual endpoints can override this with Endpoint.WithMaxRequestBodySize.
// A value of 0 means no limit. Default is 1MB (1 << 20).
func (a *App) WithMaxRequestBodySize(size uint64) *App {
	a.maxRequestBodySize = size
	return a
}

// WithInfo sets the title and version reported by the OpenAPI document.
func (a *App) WithInfo(title, version string) *App {
	a.title = title
	a.version = version
	return a
}

func (a *App) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// Register adds routes to the app. Registering a name twice replaces the
// earlier route and logs a warning. Register panics after Handler has been
// called or when a route uses a reserved path.
func (a *App) Register(routes ...Route) *App {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range routes {
		if a.sealed {
			panic(fmt.Sprintf("docgate: Register(%q) after Handler()", r.Name()))
		}
		path := r.Descriptor().Path
		if path == PingPath || path == OpenAPIPath {
			panic(fmt.Sprintf("docgate: endpoint path %s is reserved", path))
		}

		if _, exists := a.routes[r.Name()]; exists {
			a.log().Warn("duplicate endpoint registration",
				slog.String("endpoint", r.Name()))
		} else {
			a.order = append(a.order, r.Name())
		}
		a.routes[r.Name()] = r
	}
	return a
}

// Endpoints returns the descriptors of all registered endpoints in
// registration order.
func (a *App) Endpoints() []*EndpointDescriptor {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*EndpointDescriptor, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.routes[name].Descriptor())
	}
	return out
}

// Descriptor returns the descriptor of the named endpoint.
func (a *App) Descriptor(name string) (*EndpointDescriptor, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.routes[strings.Trim(name, "/")]
	if !ok {
		return nil, false
	}
	return r.Descriptor(), true
}

// Handler seals the route table and returns an http.Handler serving every
// endpoint plus the reserved ping and OpenAPI routes. The returned handler
// includes all configured middleware.
//
// Example:
//
//	app := docgate.NewApp(caller).Register(classify)
//	http.ListenAndServe(":8080", app.Handler())
func (a *App) Handler() http.Handler {
	a.mu.Lock()
	a.sealed = true
	a.mu.Unlock()

	var h http.Handler = http.HandlerFunc(a.serveHTTP)
	// Apply middleware in reverse order so first added is outermost
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

// serveHTTP handles incoming requests (internal, called via Handler()).
func (a *App) serveHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log().Error("PANIC recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			writeError(w, NewError(CodeInternal, fmt.Sprintf("internal server error (panic): %v", rec)), a.logger)
		}
	}()

	switch req.URL.Path {
	case PingPath:
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			writeError(w, Errorf(CodeMethodNotAllowed, "method %s not allowed, expected GET", req.Method), a.logger)
			return
		}
		writeJSON(w, struct{}{}, a.logger)
		return
	case OpenAPIPath:
		if req.Method != http.MethodGet {
			writeError(w, Errorf(CodeMethodNotAllowed, "method %s not allowed, expected GET", req.Method), a.logger)
			return
		}
		a.serveOpenAPI(w)
		return
	}

	name := strings.Trim(req.URL.Path, "/")

	a.mu.RLock()
	route, ok := a.routes[name]
	a.mu.RUnlock()

	if !ok {
		writeError(w, NewError(CodeNotFound, "route not found"), a.logger)
		return
	}

	if req.Method != http.MethodPost {
		writeError(w, Errorf(CodeMethodNotAllowed, "method %s not allowed, expected POST", req.Method), a.logger)
		return
	}

	ctx := NewContext(req.Context(), w, req, name).(*rpcContext)
	route.serve(ctx, routeConfig{
		caller:             a.caller,
		interceptors:       a.interceptors,
		errorTransformer:   a.errorTransformer,
		maskInternalErrors: a.maskInternalErrors,
		logger:             a.logger,
		maxRequestBodySize: a.maxRequestBodySize,
	})
}
