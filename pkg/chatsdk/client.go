package chatsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the unauthenticated part of the rolechat API and signs
// users in, writing their credential into Session.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    *Session
}

// NewSDKClient creates a client for the API rooted at baseURL.
func NewSDKClient(baseURL string, session *Session) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Session: session,
	}
}

// Login exchanges email and password for a token pair and stores it.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/login", loginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, "failed to log in"); err != nil {
		return nil, err
	}

	user := &UserProfile{Username: email, Email: email}
	if err := c.storeTokens(ctx, tokens.AccessToken, tokens.RefreshToken, user); err != nil {
		return nil, err
	}

	return &tokens, nil
}

// Register creates an account. The backend signs the new user in, so the
// returned tokens are stored as well.
func (c *SDKClient) Register(ctx context.Context, email, password, nickname string) (*RegisterResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/register", registerRequest{
		Email:    email,
		Password: password,
		Nickname: nickname,
	})
	if err != nil {
		return nil, err
	}

	var reg RegisterResponse
	if err := decodeJSON(resp, &reg, "failed to register"); err != nil {
		return nil, err
	}

	user := &UserProfile{Username: email, Email: email, Nickname: nickname}
	if err := c.storeTokens(ctx, reg.AccessToken, reg.RefreshToken, user); err != nil {
		return nil, err
	}

	return &reg, nil
}

// Logout forgets the stored credential. The backend keeps no session state
// to revoke.
func (c *SDKClient) Logout(ctx context.Context) error {
	return c.Session.Clear(ctx)
}

// Health checks that the API is up.
func (c *SDKClient) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, "health check failed"); err != nil {
		return nil, err
	}

	return &health, nil
}

func (c *SDKClient) storeTokens(ctx context.Context, access, refresh string, user *UserProfile) error {
	if refresh != "" {
		if err := c.Session.SetRefreshToken(ctx, refresh); err != nil {
			return err
		}
	}
	return c.Session.SetAuth(ctx, access, user)
}
