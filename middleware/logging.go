package middleware

import (
	"log/slog"
	"time"

	"github.com/broady/docgate"
)

// LoggingInterceptor creates an interceptor that logs backend calls using slog.
// It logs the start and end of each call, including duration and error status.
func LoggingInterceptor(logger *slog.Logger) docgate.UnaryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx docgate.Context, req *docgate.Request, next docgate.CallFunc) (*docgate.Response, error) {
		start := time.Now()
		attrs := []any{
			slog.String("endpoint", ctx.Endpoint()),
			slog.String("request_id", req.ID()),
			slog.Int("docs", len(req.Docs)),
		}

		logger.InfoContext(ctx, "request started", attrs...)

		res, err := next(ctx, req)
		attrs = append(attrs, slog.Duration("duration", time.Since(start)))

		switch {
		case err != nil:
			logger.ErrorContext(ctx, "request failed", append(attrs, slog.Any("error", err))...)
		case res != nil && !res.OK():
			logger.WarnContext(ctx, "request failed",
				append(attrs, slog.String("status", res.Status.Code.String()), slog.String("description", res.Status.Description))...)
		default:
			logger.InfoContext(ctx, "request completed", attrs...)
		}

		return res, err
	}
}
