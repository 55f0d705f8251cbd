package chatsdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultLoginPath is where the user is sent once the session is gone.
	DefaultLoginPath = "/login"

	// DefaultRefreshPath is the refresh endpoint relative to the base URL.
	DefaultRefreshPath = "/auth/refresh"

	// DefaultRefreshTimeout bounds a single refresh call.
	DefaultRefreshTimeout = 15 * time.Second

	drainLimit = 64 << 10
)

// Gateway issues authenticated requests against the rolechat API. When a
// request comes back 401 it refreshes the access token once for all
// concurrent callers and replays each caller's request with the new token.
type Gateway struct {
	baseURL        string
	httpClient     *http.Client
	session        *Session
	notice         *ExpiryNotice
	navigator      Navigator
	loginPath      string
	refreshPath    string
	refreshTimeout time.Duration
	logger         *slog.Logger

	mu     sync.Mutex
	flight *refreshFlight // nil while idle
}

// refreshFlight is an outstanding refresh. Waiters are released in the order
// they joined, the leader first.
type refreshFlight struct {
	waiters []chan refreshOutcome
}

type refreshOutcome struct {
	token string
	err   error
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithHTTPClient sets the client used for API and refresh calls.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) { g.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// WithNavigator sets where the user is redirected when the session ends.
func WithNavigator(n Navigator) GatewayOption {
	return func(g *Gateway) { g.navigator = n }
}

// WithExpiryNotice sets the one-shot session expired notice.
func WithExpiryNotice(n *ExpiryNotice) GatewayOption {
	return func(g *Gateway) { g.notice = n }
}

// WithLoginPath overrides DefaultLoginPath.
func WithLoginPath(path string) GatewayOption {
	return func(g *Gateway) { g.loginPath = path }
}

// WithRefreshTimeout overrides DefaultRefreshTimeout.
func WithRefreshTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.refreshTimeout = d }
}

// NewGateway creates a gateway for the API rooted at baseURL.
func NewGateway(baseURL string, session *Session, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		session:        session,
		navigator:      NavigatorFunc(func(string) {}),
		loginPath:      DefaultLoginPath,
		refreshPath:    DefaultRefreshPath,
		refreshTimeout: DefaultRefreshTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Session returns the credential the gateway authenticates with.
func (g *Gateway) Session() *Session { return g.session }

// Request issues a request to path, which is either absolute or relative to
// the base URL. Responses other than 401 are returned untouched and the
// caller owns their body.
func (g *Gateway) Request(ctx context.Context, path string, opts RequestOptions) (*http.Response, error) {
	target := g.resolve(path)

	token := g.session.AccessToken()
	resp, err := g.send(ctx, target, opts, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	newToken, err := g.refresh(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = g.send(ctx, target, opts, newToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		g.logger.Warn("request unauthorized after refresh", "path", path)
		g.expire(ctx)
		return nil, ErrSessionExpired
	}

	return resp, nil
}

// refresh returns a token to retry with after a request carrying used was
// rejected. Callers arriving while a refresh is outstanding wait for it
// instead of starting another one.
func (g *Gateway) refresh(ctx context.Context, used string) (string, error) {
	g.mu.Lock()
	if g.flight == nil {
		// A refresh finished between sending the request and seeing the 401.
		if current := g.session.AccessToken(); current != "" && current != used {
			g.mu.Unlock()
			return current, nil
		}
	}

	wait := make(chan refreshOutcome, 1)
	leader := g.flight == nil
	if leader {
		g.flight = &refreshFlight{}
	}
	g.flight.waiters = append(g.flight.waiters, wait)
	g.mu.Unlock()

	if leader {
		g.logger.Debug("access token rejected, refreshing")
		go g.runRefresh(ctx)
	} else {
		g.logger.Debug("access token rejected, waiting for refresh")
	}

	select {
	case out := <-wait:
		return out.token, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runRefresh performs the refresh for the current flight. It is detached from
// the leader's context so one cancelled caller cannot fail everyone else.
func (g *Gateway) runRefresh(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), g.refreshTimeout)
	defer cancel()

	out := refreshOutcome{err: errRefreshAborted}
	defer func() { g.release(out) }()
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("refresh panicked", "panic", r)
			out = refreshOutcome{err: fmt.Errorf("%w: %v", errRefreshAborted, r)}
			g.expire(ctx)
		}
	}()

	token, err := g.exchangeRefreshToken(ctx)
	if err != nil {
		g.logger.Warn("token refresh failed", "error", err)
		g.expire(ctx)
		out = refreshOutcome{err: err}
		return
	}

	g.logger.Info("access token refreshed")
	out = refreshOutcome{token: token}
}

// release ends the flight and hands the outcome to every waiter.
func (g *Gateway) release(out refreshOutcome) {
	g.mu.Lock()
	flight := g.flight
	g.flight = nil
	g.mu.Unlock()

	if flight == nil {
		return
	}
	for _, w := range flight.waiters {
		w <- out
	}
}

// expire ends the session: credential cleared, user told once and sent to
// the login destination.
func (g *Gateway) expire(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if err := g.session.Clear(ctx); err != nil {
		g.logger.Warn("clear credential", "error", err)
	}
	if g.notice != nil {
		g.notice.Fire(ctx)
	}
	g.navigator.Push(g.loginPath)
}

func (g *Gateway) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return g.baseURL + path
}

func (g *Gateway) send(ctx context.Context, target string, opts RequestOptions, token string) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if opts.Header != nil {
		req.Header = opts.Header.Clone()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// drain discards what is left of a response body so the connection can be
// reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}
