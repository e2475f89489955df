package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig holds the configuration for CORS middleware. It can be read
// directly from the gateway's YAML config file.
type CORSConfig struct {
	// AllowOrigins is a list of origins a cross-domain request can be executed from.
	// If the list contains "*", all origins are allowed.
	// Default: ["*"]
	AllowOrigins []string `yaml:"allow_origins"`

	// AllowHeaders is a list of headers the client is allowed to send.
	// Default: ["Content-Type", "Authorization"]
	AllowHeaders []string `yaml:"allow_headers"`

	// ExposeHeaders indicates which response headers are safe to expose.
	ExposeHeaders []string `yaml:"expose_headers"`

	// AllowCredentials indicates whether the request can include credentials.
	AllowCredentials bool `yaml:"allow_credentials"`

	// MaxAge indicates how long (in seconds) the results of a preflight request can be cached.
	MaxAge int `yaml:"max_age"`
}

// corsMethods are the only methods the gateway serves: GET for the ping and
// OpenAPI routes, POST for endpoints.
const corsMethods = "GET, POST, OPTIONS"

// CORS returns an HTTP middleware that answers preflight requests and sets
// CORS headers. A nil cfg allows every origin.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = &CORSConfig{}
	}

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	wildcard := slices.Contains(origins, "*")

	headers := cfg.AllowHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "Authorization"}
	}
	allowHeaders := strings.Join(headers, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			switch {
			case wildcard && (origin == "" || !cfg.AllowCredentials):
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && (wildcard || slices.Contains(origins, origin)):
				// Credentials forbid "*", so the matched origin is echoed.
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			default:
				origin = ""
			}
			if origin != "" && cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposeHeaders != "" {
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
