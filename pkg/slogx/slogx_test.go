package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/rolechat/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "rolechat",
		Version: "test",
		Env:     "test",
		Level:   "warn",
		Format:  "json",
		Output:  &buf,
	})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.DiscardHandler)) })

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "shown", entry["msg"])
	require.Equal(t, "rolechat", entry["service"])
	require.Equal(t, "v", entry["k"])
}

func TestFromContext(t *testing.T) {
	require.Equal(t, slog.Default(), slogx.FromContext(context.Background()))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := slogx.WithRequestID(slogx.WithContext(context.Background(), logger), "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV")

	slogx.FromContext(ctx).Info("hello")
	require.Contains(t, buf.String(), "req_id=01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV")
}

func TestTransport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var inner *slog.Logger
	rt := slogx.Transport(logger, roundTripFunc(func(r *http.Request) (*http.Response, error) {
		inner = slogx.FromContext(r.Context())
		if r.URL.Path == "/fail" {
			return nil, errors.New("connection refused")
		}
		return &http.Response{StatusCode: http.StatusTeapot, Body: http.NoBody}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "http://api.test/chat/topics", nil)
	req.Header.Set("X-Request-ID", "req-1")
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
	require.NotNil(t, inner)

	out := buf.String()
	require.Contains(t, out, "msg=http_request")
	require.Contains(t, out, "path=/chat/topics")
	require.Contains(t, out, "req_id=req-1")
	require.Contains(t, out, "status=418")

	buf.Reset()
	inner.Info("from inner transport")
	require.Contains(t, buf.String(), "req_id=req-1")

	buf.Reset()
	_, err = rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://api.test/fail", nil))
	require.Error(t, err)
	require.Contains(t, buf.String(), "msg=http_request_failed")
}
