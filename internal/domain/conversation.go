package domain

import "time"

// Message roles, matching the backend chat API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message statuses reported by the backend while a reply is generated.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Message represents one turn in a conversation
type Message struct {
	ID            string    `json:"messageId,omitempty"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	RawContent    string    `json:"rawContent,omitempty"`
	ModelName     string    `json:"modelName,omitempty"`
	Status        string    `json:"status,omitempty"`
	IsPlaceholder bool      `json:"isPlaceholder,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

// Completed reports whether this message is a finished assistant reply.
func (m *Message) Completed() bool {
	return m.Role == RoleAssistant && m.Status == StatusCompleted
}

// Conversation is an ordered sequence of question/answer turns
// identified by one opaque backend-generated ID.
type Conversation struct {
	ID       string    `json:"conversationId"`
	ModelID  string    `json:"modelId,omitempty"`
	Messages []Message `json:"messages"`
}

// MessageAfter returns the message immediately following the message with
// the given ID, or nil if the ID is absent or has no successor. The second
// return reports whether the ID was found at all, so callers can tell a
// not-yet-arrived reply apart from a vanished user message.
func (c *Conversation) MessageAfter(messageID string) (*Message, bool) {
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			if i+1 < len(c.Messages) {
				return &c.Messages[i+1], true
			}
			return nil, true
		}
	}
	return nil, false
}

// AskRequest is the request to submit a question
type AskRequest struct {
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversationId,omitempty"`
	ModelID        string `json:"modelId,omitempty"`
}

// SubmitReceipt identifies a submitted question before its reply exists.
type SubmitReceipt struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	ModelID        string `json:"modelId,omitempty"`
}
