package debug

import "context"

type contextKey int

const (
	loggerKey contextKey = iota
	fetchKey
)

// WithLogger adds the debug logger to ctx
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the debug logger in ctx, or nil
func LoggerFromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return nil
}

// WithFetch adds the current fetch log to ctx
func WithFetch(ctx context.Context, fetch *FetchLog) context.Context {
	return context.WithValue(ctx, fetchKey, fetch)
}

// FetchFromContext returns the fetch log in ctx, or nil
func FetchFromContext(ctx context.Context) *FetchLog {
	if fetch, ok := ctx.Value(fetchKey).(*FetchLog); ok {
		return fetch
	}
	return nil
}

// HeadersToMap flattens http.Header for logging
func HeadersToMap(headers map[string][]string) map[string]string {
	if headers == nil {
		return nil
	}
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
