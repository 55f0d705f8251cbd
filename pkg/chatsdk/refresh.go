package chatsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// exchangeRefreshToken trades the stored refresh token for a new access
// token and records the result in the session.
func (g *Gateway) exchangeRefreshToken(ctx context.Context) (string, error) {
	refreshToken, err := g.session.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.resolve(g.refreshPath),
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send refresh request: %w", err)
	}
	defer resp.Body.Close()

	data := readLooseJSON(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RefreshRejectedError{
			StatusCode: resp.StatusCode,
			Message:    firstString(data, defaultRefreshFailure, "detail", "message"),
		}
	}

	accessToken := firstString(data, "", "access_token", "token")
	if accessToken == "" {
		return "", ErrRefreshMalformed
	}

	if newRefresh := firstString(data, "", "refresh_token"); newRefresh != "" {
		// Losing the rotated token only costs a login later.
		if err := g.session.SetRefreshToken(ctx, newRefresh); err != nil {
			g.logger.Warn("store rotated refresh token", "error", err)
		}
	}

	if err := g.session.SetAuth(ctx, accessToken, nil); err != nil {
		return "", err
	}

	return accessToken, nil
}

// readLooseJSON decodes a JSON object, treating an empty or non-JSON body as
// an empty object.
func readLooseJSON(r io.Reader) map[string]any {
	body, err := io.ReadAll(r)
	if err != nil {
		return map[string]any{}
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil || data == nil {
		return map[string]any{}
	}
	return data
}

// firstString returns the first non-empty string value found under keys.
func firstString(data map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
