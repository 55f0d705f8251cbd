package chatsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Storage keys shared with every persisted store driver.
const (
	KeyAccessToken         = "accessToken"
	KeyRefreshToken        = "refreshToken"
	KeyUser                = "user"
	KeySessionExpiredShown = "sessionExpiredShown"
)

// Storage is a string key/value store. Get reports ok=false for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Session owns the credential of the signed in user. It is hydrated from
// Storage and writes every change back to it. Subscribers are told about each
// change after it has been applied.
type Session struct {
	storage Storage

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *UserProfile

	subMu   sync.Mutex
	subs    map[int]func(Credential)
	nextSub int
}

// NewSession loads the stored credential. A user entry that is not valid JSON
// is ignored.
func NewSession(ctx context.Context, storage Storage) (*Session, error) {
	s := &Session{
		storage: storage,
		subs:    make(map[int]func(Credential)),
	}

	access, _, err := storage.Get(ctx, KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("load access token: %w", err)
	}
	refresh, _, err := storage.Get(ctx, KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	rawUser, ok, err := storage.Get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	s.accessToken = access
	s.refreshToken = refresh
	if ok {
		var user UserProfile
		if json.Unmarshal([]byte(rawUser), &user) == nil {
			s.user = &user
		}
	}

	return s, nil
}

// AccessToken returns the held access token, empty when signed out.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// IsLoggedIn reports whether an access token is held.
func (s *Session) IsLoggedIn() bool {
	return s.AccessToken() != ""
}

// User returns a copy of the held profile or nil.
func (s *Session) User() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// RefreshToken reads the refresh token from Storage, which is the source of
// truth since another process sharing the store may have rotated it.
func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	token, _, err := s.storage.Get(ctx, KeyRefreshToken)
	if err != nil {
		return "", fmt.Errorf("load refresh token: %w", err)
	}

	s.mu.Lock()
	s.refreshToken = token
	s.mu.Unlock()

	return token, nil
}

// Credential returns a snapshot of the held state.
func (s *Session) Credential() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// SetAuth stores a new access token. The profile is only replaced when user
// is non-nil, so a refresh keeps the current one.
func (s *Session) SetAuth(ctx context.Context, token string, user *UserProfile) error {
	var rawUser []byte
	if user != nil {
		var err error
		if rawUser, err = json.Marshal(user); err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
	}

	s.mu.Lock()
	s.accessToken = token
	if user != nil {
		u := *user
		s.user = &u
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.storage.Set(ctx, KeyAccessToken, token); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if user != nil {
		if err := s.storage.Set(ctx, KeyUser, string(rawUser)); err != nil {
			return fmt.Errorf("store user: %w", err)
		}
	}

	s.notify(snapshot)
	return nil
}

// SetRefreshToken replaces the stored refresh token.
func (s *Session) SetRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.refreshToken = token
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.storage.Set(ctx, KeyRefreshToken, token); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}

	s.notify(snapshot)
	return nil
}

// Clear drops the whole credential, in memory and in Storage. Every key is
// attempted even if one fails; the first error is returned.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	var firstErr error
	for _, key := range []string{KeyAccessToken, KeyUser, KeyRefreshToken} {
		if err := s.storage.Remove(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", key, err)
		}
	}

	s.notify(snapshot)
	return firstErr
}

// Subscribe registers fn for credential changes and returns a function that
// removes it. fn runs on the goroutine that made the change.
func (s *Session) Subscribe(fn func(Credential)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Session) notify(c Credential) {
	s.subMu.Lock()
	fns := make([]func(Credential), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (s *Session) snapshotLocked() Credential {
	c := Credential{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
	}
	if s.user != nil {
		u := *s.user
		c.User = &u
	}
	return c
}
