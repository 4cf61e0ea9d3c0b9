package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/broady/restwire"
)

// LoggingInterceptor creates an interceptor that logs outbound calls using slog.
// It logs the start and end of each call, including duration, status and error.
func LoggingInterceptor(logger *slog.Logger) restwire.UnaryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(call *restwire.Call, req *http.Request, next restwire.Invoker) (*http.Response, error) {
		ctx := req.Context()
		endpoint := string(call.Endpoint) + "." + call.Method
		start := time.Now()

		logger.InfoContext(ctx, "request started",
			slog.String("endpoint", endpoint),
			slog.String("method", req.Method),
			slog.String("url", req.URL.Redacted()),
		)

		resp, err := next(req)
		duration := time.Since(start)

		switch {
		case err != nil:
			logger.ErrorContext(ctx, "request failed",
				slog.String("endpoint", endpoint),
				slog.Duration("duration", duration),
				slog.Any("error", err),
			)
		case resp == nil:
			logger.WarnContext(ctx, "request completed without a response",
				slog.String("endpoint", endpoint),
				slog.Duration("duration", duration),
			)
		case resp.StatusCode >= 400:
			logger.WarnContext(ctx, "request completed with error status",
				slog.String("endpoint", endpoint),
				slog.Duration("duration", duration),
				slog.Int("status", resp.StatusCode),
			)
		default:
			logger.InfoContext(ctx, "request completed",
				slog.String("endpoint", endpoint),
				slog.Duration("duration", duration),
				slog.Int("status", resp.StatusCode),
			)
		}

		return resp, err
	}
}
