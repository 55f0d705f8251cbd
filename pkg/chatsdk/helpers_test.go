package chatsdk

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/aussiebroadwan/rolechat/internal/client/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.DiscardHandler)

// newTestSession returns a session over a fresh memory store seeded with the
// given tokens. Empty tokens are left unset.
func newTestSession(t *testing.T, access, refresh string) (*Session, *memory.Store) {
	t.Helper()
	ctx := context.Background()

	kv := memory.New()
	if access != "" {
		require.NoError(t, kv.Set(ctx, KeyAccessToken, access))
		require.NoError(t, kv.Set(ctx, KeyUser, `{"username":"alice@example.com","email":"alice@example.com"}`))
	}
	if refresh != "" {
		require.NoError(t, kv.Set(ctx, KeyRefreshToken, refresh))
	}

	session, err := NewSession(ctx, kv)
	require.NoError(t, err)
	return session, kv
}

// requireCredentialRemoved fails unless no credential key is left in kv.
func requireCredentialRemoved(t *testing.T, kv Storage) {
	t.Helper()
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		_, ok, err := kv.Get(context.Background(), key)
		require.NoError(t, err)
		require.False(t, ok, key)
	}
}

// recorder collects navigation pushes and notifications.
type recorder struct {
	mu      sync.Mutex
	pushes  []string
	notices []string
}

func (r *recorder) Push(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, path)
}

func (r *recorder) Notify(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, message)
}

func (r *recorder) Pushes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.pushes...)
}

func (r *recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

// newTestGateway wires a gateway with a recorder acting as both navigator and
// notifier.
func newTestGateway(baseURL string, session *Session, opts ...GatewayOption) (*Gateway, *recorder) {
	rec := &recorder{}
	notice := NewExpiryNotice(memory.New(), rec, discardLogger)

	all := append([]GatewayOption{
		WithLogger(discardLogger),
		WithNavigator(rec),
		WithExpiryNotice(notice),
	}, opts...)
	return NewGateway(baseURL, session, all...), rec
}
