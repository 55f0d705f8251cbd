package chatsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doRequest performs an unauthenticated JSON request. Used for login and
// registration, where a 401 means bad credentials and must not trigger a
// refresh.
func (c *SDKClient) doRequest(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// doJSON sends in (if any) through the gateway and decodes a 2xx answer into
// out. fallback names the failure when the body carries no message.
func (c *ChatClient) doJSON(ctx context.Context, method, path string, in, out any, fallback string) error {
	opts := RequestOptions{Method: method}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		opts.Body = payload
	}

	resp, err := c.gateway.Request(ctx, path, opts)
	if err != nil {
		return err
	}

	return decodeJSON(resp, out, fallback)
}

// decodeJSON decodes a JSON response into target. Any non-2xx status becomes
// an *APIError.
func decodeJSON(resp *http.Response, target any, fallback string) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, bodyBytes, fallback)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
