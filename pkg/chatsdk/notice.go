package chatsdk

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultExpiryMessage is shown once the session can no longer be refreshed.
const DefaultExpiryMessage = "Your session has expired, please log in again."

// Navigator sends the user to another destination, e.g. the login screen.
type Navigator interface {
	Push(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Push calls f(path).
func (f NavigatorFunc) Push(path string) { f(path) }

// Notifier shows a message to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify calls f(message).
func (f NotifierFunc) Notify(message string) { f(message) }

// ExpiryNotice tells the user their session expired, at most once for the
// lifetime of the marker in its session scoped storage.
type ExpiryNotice struct {
	storage  Storage
	notifier Notifier
	message  string
	logger   *slog.Logger

	mu sync.Mutex
}

// NewExpiryNotice builds a notice over a session scoped store. The marker is
// kept under KeySessionExpiredShown.
func NewExpiryNotice(storage Storage, notifier Notifier, logger *slog.Logger) *ExpiryNotice {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpiryNotice{
		storage:  storage,
		notifier: notifier,
		message:  DefaultExpiryMessage,
		logger:   logger,
	}
}

// WithMessage overrides the text shown to the user.
func (n *ExpiryNotice) WithMessage(message string) *ExpiryNotice {
	n.message = message
	return n
}

// Fire notifies the user unless the marker is already set and reports
// whether it did.
func (n *ExpiryNotice) Fire(ctx context.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, shown, err := n.storage.Get(ctx, KeySessionExpiredShown)
	if err != nil {
		n.logger.Warn("read session expiry marker", "error", err)
	}
	if shown {
		return false
	}

	n.notifier.Notify(n.message)

	if err := n.storage.Set(ctx, KeySessionExpiredShown, "1"); err != nil {
		n.logger.Warn("store session expiry marker", "error", err)
	}
	return true
}
