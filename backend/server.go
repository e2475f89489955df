package backend

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/broady/docgate"
)

// Handler serves the wire protocol spoken by HTTPCaller on top of a local
// docgate.Caller. The codec is chosen from the request's Content-Type.
func Handler(caller docgate.Caller, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		codec, err := codecFor(r.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}

		var wire WireRequest
		if err := codec.Decode(r.Body, &wire); err != nil {
			http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
			return
		}

		res, err := caller.Call(r.Context(), wire.Request())
		if err != nil {
			logger.ErrorContext(r.Context(), "backend call failed",
				slog.String("endpoint", wire.Endpoint),
				slog.String("request_id", wire.RequestID),
				slog.Any("error", err))
			res = docgate.Failure(err.Error())
		} else if res == nil {
			res = docgate.Failure("backend returned no response")
		}

		w.Header().Set("Content-Type", codec.ContentType())
		if err := codec.Encode(w, NewWireResponse(res)); err != nil {
			logger.Error("failed to encode backend response", slog.Any("error", err))
		}
	})
}

func codecFor(contentType string) (Codec, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("invalid content type %q", contentType)
	}
	for _, c := range []Codec{JSON, Msgpack} {
		if c.ContentType() == mediaType {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unsupported content type %q", mediaType)
}
