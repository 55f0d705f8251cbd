package chatsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ChatClient wraps the authenticated chat endpoints. Every call goes through
// the Gateway, so expired access tokens are refreshed transparently.
type ChatClient struct {
	gateway *Gateway
}

// NewChatClient creates a chat client on top of gateway.
func NewChatClient(gateway *Gateway) *ChatClient {
	return &ChatClient{gateway: gateway}
}

// Me returns the identity the backend associates with the access token.
func (c *ChatClient) Me(ctx context.Context) (*MeResponse, error) {
	var me MeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/me", nil, &me, "failed to fetch profile"); err != nil {
		return nil, err
	}
	return &me, nil
}

// Topics lists the user's topics, most recent first.
func (c *ChatClient) Topics(ctx context.Context) ([]Topic, error) {
	var res topicsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/topics", nil, &res, "failed to fetch topics"); err != nil {
		return nil, err
	}
	return res.Topics, nil
}

// TopicsWithLimit lists at most n topics.
func (c *ChatClient) TopicsWithLimit(ctx context.Context, n int) ([]Topic, error) {
	if n <= 0 {
		return nil, fmt.Errorf("topic limit must be positive, got %d", n)
	}

	path := "/chat/topics/limit?" + url.Values{"n": {strconv.Itoa(n)}}.Encode()

	var res topicsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res, "failed to fetch topics"); err != nil {
		return nil, err
	}
	return res.Topics, nil
}

// Messages lists the messages of a topic.
func (c *ChatClient) Messages(ctx context.Context, topicID uint64) ([]Message, error) {
	path := "/chat/topics/" + strconv.FormatUint(topicID, 10) + "/messages"

	var res messagesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res, "failed to fetch messages"); err != nil {
		return nil, err
	}
	return res.Messages, nil
}

// SendMessage appends a message, starting a new topic when TopicID is zero.
func (c *ChatClient) SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error) {
	var res SendMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/message", req, &res, "failed to send message"); err != nil {
		return nil, err
	}
	return &res, nil
}

// RoleReply sends the user's message and returns the persona's answer.
func (c *ChatClient) RoleReply(ctx context.Context, req RoleReplyRequest) (*RoleReplyResponse, error) {
	var res RoleReplyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/role-reply", req, &res, "failed to get reply"); err != nil {
		return nil, err
	}
	return &res, nil
}
