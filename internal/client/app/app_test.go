package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/rolechat/pkg/chatsdk"
	"github.com/aussiebroadwan/rolechat/pkg/httpx"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a minimal rolechat API. Access tokens are valid until
// expire is called; refresh tokens can be revoked.
type fakeBackend struct {
	mu           sync.Mutex
	access       string
	refresh      string
	revoked      bool
	refreshCalls int
	requestIDs   []string
}

func (b *fakeBackend) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = "expired-" + b.access
}

func (b *fakeBackend) revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked = true
	b.access = "gone"
}

func (b *fakeBackend) handler() http.Handler {
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			ok := r.Header.Get("Authorization") == "Bearer "+b.access
			b.requestIDs = append(b.requestIDs, r.Header.Get(httpx.HeaderRequestID))
			b.mu.Unlock()
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.access, b.refresh, b.revoked = "at1", "rt1", false
		writeJSON(w, http.StatusOK, map[string]string{"access_token": b.access, "refresh_token": b.refresh})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		defer b.mu.Unlock()
		b.refreshCalls++
		if b.revoked || req.RefreshToken != b.refresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "refresh token revoked"})
			return
		}
		b.access, b.refresh = "at2", "rt2"
		writeJSON(w, http.StatusOK, map[string]string{"access_token": b.access, "refresh_token": b.refresh})
	})
	mux.HandleFunc("GET /me", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]uint64{"user_id": 7})
	}))
	mux.HandleFunc("GET /chat/topics", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"topics": []map[string]any{
			{"id": 1, "title": "Pirates", "updated_at": time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		}})
	}))
	mux.HandleFunc("POST /chat/message", authed(func(w http.ResponseWriter, r *http.Request) {
		var req chatsdk.SendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, chatsdk.SendMessageResponse{
			NewTopic: req.TopicID == 0,
			Topic:    chatsdk.Topic{ID: 9, Title: "New tale"},
			Message:  chatsdk.Message{ID: 1, Role: req.Role, Content: req.Content},
		})
	}))
	return mux
}

type harness struct {
	backend *fakeBackend
	cfg     Config
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	return &harness{
		backend: backend,
		cfg: Config{
			APIBase:        srv.URL,
			Store:          StoreSQLite,
			DatabaseFile:   filepath.Join(t.TempDir(), "rolechat.db"),
			RefreshTimeout: 5 * time.Second,
			HTTPTimeout:    5 * time.Second,
			LoginPath:      "/login",
			Env:            "test",
			LogLevel:       "error",
			LogFormat:      "text",
			RateLimit:      httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Second, Burst: 100},
		},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
}

// run starts a fresh Application, like a new CLI invocation, and runs args.
func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()

	h.stdout.Reset()
	h.stderr.Reset()

	app, err := New(context.Background(), h.cfg, h.stdout, h.stderr)
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Close()) }()

	return app.Run(context.Background(), args)
}

func TestApp_LoginPersistsAcrossRuns(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "login", "-email", "alice@example.com", "-password", "secret"))
	require.Contains(t, h.stdout.String(), "Signed in as alice@example.com")

	require.NoError(t, h.run(t, "topics"))
	require.Contains(t, h.stdout.String(), "Pirates")

	require.NoError(t, h.run(t, "whoami"))
	require.Contains(t, h.stdout.String(), "alice@example.com")
	require.Contains(t, h.stdout.String(), "7")
	require.Regexp(t, `refresh token\s+stored`, h.stdout.String())

	// Every authenticated call carried a request id.
	h.backend.mu.Lock()
	for _, id := range h.backend.requestIDs {
		require.NotEmpty(t, id)
	}
	h.backend.mu.Unlock()

	require.NoError(t, h.run(t, "logout"))
	require.NoError(t, h.run(t, "whoami"))
	require.Contains(t, h.stdout.String(), "Not signed in")
}

func TestApp_RefreshesExpiredToken(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "login", "-email", "alice@example.com", "-password", "secret"))
	h.backend.expire()

	require.NoError(t, h.run(t, "send", "Once", "upon", "a", "time"))
	require.Contains(t, h.stdout.String(), "Started topic 9")
	require.Contains(t, h.stdout.String(), "Once upon a time")

	h.backend.mu.Lock()
	require.Equal(t, 1, h.backend.refreshCalls)
	h.backend.mu.Unlock()

	// The rotated credential was persisted for the next run.
	require.NoError(t, h.run(t, "topics"))
	h.backend.mu.Lock()
	require.Equal(t, 1, h.backend.refreshCalls)
	h.backend.mu.Unlock()
}

func TestApp_SessionExpired(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "login", "-email", "alice@example.com", "-password", "secret"))
	h.backend.revoke()

	err := h.run(t, "topics")
	require.Error(t, err)
	require.True(t, chatsdk.IsSessionError(err))
	require.Equal(t, "refresh token revoked", err.Error())
	require.Contains(t, h.stderr.String(), chatsdk.DefaultExpiryMessage)
	require.Contains(t, h.stderr.String(), "rolechat login")

	require.NoError(t, h.run(t, "whoami"))
	require.Contains(t, h.stdout.String(), "Not signed in")
}

func TestApp_SealedStore(t *testing.T) {
	h := newHarness(t)
	h.cfg.StorePassphrase = "hunter2"

	require.NoError(t, h.run(t, "login", "-email", "alice@example.com", "-password", "secret"))
	require.NoError(t, h.run(t, "topics"))

	// A different passphrase cannot read the credential.
	h.cfg.StorePassphrase = "wrong"
	_, err := New(context.Background(), h.cfg, h.stdout, h.stderr)
	require.Error(t, err)
}

func TestApp_Usage(t *testing.T) {
	h := newHarness(t)
	h.cfg.Store = StoreMemory

	require.ErrorIs(t, h.run(t), ErrUsage)
	require.Contains(t, h.stderr.String(), "Usage: rolechat")

	require.ErrorIs(t, h.run(t, "dance"), ErrUsage)
	require.Contains(t, h.stderr.String(), `unknown command "dance"`)

	require.ErrorIs(t, h.run(t, "login", "-email", "a@b.c"), ErrUsage)
	require.Contains(t, h.stderr.String(), "-password is required")

	require.ErrorIs(t, h.run(t, "messages"), ErrUsage)
	require.ErrorIs(t, h.run(t, "send"), ErrUsage)

	require.NoError(t, h.run(t, "help"))
	require.NoError(t, h.run(t, "health"))
	require.Equal(t, "ok\n", h.stdout.String())
}

func TestNew_InvalidConfig(t *testing.T) {
	h := newHarness(t)
	h.cfg.Store = "etcd"

	_, err := New(context.Background(), h.cfg, h.stdout, h.stderr)
	require.ErrorContains(t, err, "ROLECHAT_STORE")
}
