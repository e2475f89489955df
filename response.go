package docgate

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorResponse is the internal envelope type for error responses.
// This wraps the error in an {"error": {...}} structure.
type errorResponse struct {
	Error *Error `json:"error"`
}

// encodeErrorResponse writes an error response to the ResponseWriter.
func encodeErrorResponse(w jsonWriter, err *Error) error {
	return json.NewEncoder(w).Encode(errorResponse{Error: err})
}

// jsonWriter is satisfied by http.ResponseWriter and allows testing.
type jsonWriter interface {
	Write([]byte) (int, error)
}

// writeJSON writes a 200 response with v as the body. Output records are
// written bare, without a result envelope. v is encoded before the status is
// sent, so a value JSON cannot represent becomes a 500.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("failed to encode response", slog.Any("error", err))
		writeError(w, Errorf(CodeInternal, "failed to encode response: %v", err), logger)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil && logger != nil {
		logger.Debug("failed to write response", slog.Any("error", err))
	}
}
