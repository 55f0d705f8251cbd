package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport logs every outbound request through base. When the request
// carries an X-Request-ID it is attached as req_id, and the contextual logger
// is made available to inner transports.
func Transport(base *slog.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{base: base, next: next}
}

type loggingTransport struct {
	base *slog.Logger
	next http.RoundTripper
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	ctx := WithContext(r.Context(), t.base.With(
		"method", r.Method,
		"path", r.URL.Path,
	))
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		ctx = WithRequestID(ctx, reqID)
	}
	logger := FromContext(ctx)
	r = r.WithContext(ctx)

	resp, err := t.next.RoundTrip(r)

	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	logger.Debug("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
