package chatsdk

import (
	"net/http"
	"time"
)

// ============================================================================
// Credential Types
// ============================================================================

// UserProfile is the signed in user as the client knows it. It is passed
// through untouched.
type UserProfile struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// Credential is a snapshot of the session state handed to subscribers.
type Credential struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
}

// ============================================================================
// Request Types
// ============================================================================

// RequestOptions describes a request issued through the Gateway. Body is kept
// as bytes so the request can be replayed after a refresh.
type RequestOptions struct {
	// Method defaults to GET
	Method string

	// Header is copied, never mutated
	Header http.Header

	Body []byte
}

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the error body used by the rolechat backend.
type ErrorResponse struct {
	Error string `json:"error"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
}

// ============================================================================
// Auth Types
// ============================================================================

// TokenResponse is returned from POST /auth/login.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterResponse is returned from POST /auth/register. The backend signs
// the new user in straight away.
type RegisterResponse struct {
	UserID          uint64 `json:"user_id"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	AccessExpiresAt int64  `json:"access_expires_at"` // epoch seconds
}

// MeResponse is returned from GET /me.
type MeResponse struct {
	UserID uint64 `json:"user_id"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ============================================================================
// Chat Types
// ============================================================================

// Topic is a conversation owned by the signed in user.
type Topic struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single entry in a topic.
type Message struct {
	ID        uint64    `json:"id"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type topicsResponse struct {
	Topics []Topic `json:"topics"`
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// SendMessageRequest appends a message to a topic. A zero TopicID starts a
// new topic.
type SendMessageRequest struct {
	TopicID uint64 `json:"topic_id"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// SendMessageResponse is returned from POST /chat/message.
type SendMessageResponse struct {
	NewTopic bool    `json:"new_topic"`
	Topic    Topic   `json:"topic"`
	Message  Message `json:"message"`
}

// RoleReplyRequest asks a persona to answer in a topic.
type RoleReplyRequest struct {
	TopicID     uint64 `json:"topic_id"`
	PersonaName string `json:"persona_name,omitempty"`
	RoleID      string `json:"role_id,omitempty"`
	Content     string `json:"content"`
}

// RoleReplyResponse is returned from POST /chat/role-reply.
type RoleReplyResponse struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
	AudioBase64      string  `json:"audio_base64,omitempty"`
	Persona          string  `json:"persona,omitempty"`
}
