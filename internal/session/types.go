package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samsaffron/term-agent/internal/llm"
)

// Status represents the current state of a session.
type Status string

const (
	StatusActive      Status = "active"      // session is open/current
	StatusComplete    Status = "complete"    // session finished normally
	StatusError       Status = "error"       // session ended with an error
	StatusInterrupted Status = "interrupted" // session was cancelled by the user
)

// Session is one conversation stored in the database.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Summary   string    `json:"summary,omitempty"` // first user message, truncated
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	CWD       string    `json:"cwd,omitempty"` // working directory at session start
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Status    Status    `json:"status,omitempty"`

	// Metrics
	UserTurns    int `json:"user_turns,omitempty"`
	LLMTurns     int `json:"llm_turns,omitempty"`
	ToolCalls    int `json:"tool_calls,omitempty"`
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Message is one message in a session. Parts stores the full
// llm.Message.Parts as JSON so tool calls and results survive a resume
// exactly.
type Message struct {
	ID          int64      `json:"id"`
	SessionID   string     `json:"session_id"`
	Role        llm.Role   `json:"role"`
	Parts       []llm.Part `json:"parts"`
	TextContent string     `json:"text_content"`
	CreatedAt   time.Time  `json:"created_at"`
	Sequence    int        `json:"sequence"`
}

// Summary is a lightweight view of a session for listing.
type Summary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
	UserTurns    int       `json:"user_turns,omitempty"`
	LLMTurns     int       `json:"llm_turns,omitempty"`
	ToolCalls    int       `json:"tool_calls,omitempty"`
	InputTokens  int       `json:"input_tokens,omitempty"`
	OutputTokens int       `json:"output_tokens,omitempty"`
	Status       Status    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListOptions configures session listing.
type ListOptions struct {
	Status Status // filter by status
	Limit  int    // max results (0 = default)
	Offset int    // pagination offset
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ShortID returns the first uuid segment of an id for display.
func ShortID(id string) string {
	if idx := strings.Index(id, "-"); idx != -1 {
		return id[:idx]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// NewMessage creates a Message from an llm.Message. A negative sequence asks
// the store to allocate the next one.
func NewMessage(sessionID string, msg llm.Message, sequence int) *Message {
	return &Message{
		SessionID:   sessionID,
		Role:        msg.Role,
		Parts:       msg.Parts,
		TextContent: llm.TextContent(msg),
		CreatedAt:   time.Now(),
		Sequence:    sequence,
	}
}

// ToLLMMessage converts a stored message back to an llm.Message.
func (m *Message) ToLLMMessage() llm.Message {
	return llm.Message{
		Role:  m.Role,
		Parts: m.Parts,
	}
}

// PartsJSON returns the Parts field serialized for database storage.
func (m *Message) PartsJSON() (string, error) {
	data, err := json.Marshal(m.Parts)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetPartsFromJSON deserializes JSON into the Parts field.
func (m *Message) SetPartsFromJSON(data string) error {
	if data == "" {
		m.Parts = nil
		return nil
	}
	return json.Unmarshal([]byte(data), &m.Parts)
}

// TruncateSummary returns the first line of content, truncated to 100 chars.
func TruncateSummary(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "\n"); idx != -1 {
		content = content[:idx]
	}
	if runes := []rune(content); len(runes) > 100 {
		content = string(runes[:97]) + "..."
	}
	return content
}
