package chatclient

import (
	"encoding/json"
	"time"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
)

// The upstream API is inconsistent about key casing: depending on the
// endpoint (and backend version) fields arrive as snake_case or camelCase.
// This file is the only place that knows about that; everything past it
// speaks the camelCase domain types.

type submitWire struct {
	ConversationID      string `json:"conversationId"`
	ConversationIDSnake string `json:"conversation_id"`
	MessageID           string `json:"messageId"`
	MessageIDSnake      string `json:"message_id"`
	Status              string `json:"status"`
}

func (w submitWire) receipt() domain.SubmitReceipt {
	return domain.SubmitReceipt{
		ConversationID: pick(w.ConversationID, w.ConversationIDSnake),
		MessageID:      pick(w.MessageID, w.MessageIDSnake),
	}
}

type messageWire struct {
	ID             string     `json:"messageId"`
	IDSnake        string     `json:"message_id"`
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	Status         string     `json:"status"`
	ModelName      string     `json:"modelName"`
	ModelNameSnake string     `json:"model_name"`
	Timestamp      *time.Time `json:"timestamp"`
}

func (w messageWire) message() domain.Message {
	m := domain.Message{
		ID:         pick(w.ID, w.IDSnake),
		Role:       w.Role,
		Content:    w.Content,
		RawContent: w.Content,
		Status:     w.Status,
		ModelName:  pick(w.ModelName, w.ModelNameSnake),
	}
	if w.Timestamp != nil {
		m.Timestamp = *w.Timestamp
	}
	return m
}

type conversationWire struct {
	ConversationID      string        `json:"conversationId"`
	ConversationIDSnake string        `json:"conversation_id"`
	ModelID             string        `json:"modelId"`
	ModelIDSnake        string        `json:"model_id"`
	Messages            []messageWire `json:"messages"`
}

func (w conversationWire) conversation() *domain.Conversation {
	conv := &domain.Conversation{
		ID:       pick(w.ConversationID, w.ConversationIDSnake),
		ModelID:  pick(w.ModelID, w.ModelIDSnake),
		Messages: make([]domain.Message, 0, len(w.Messages)),
	}
	for _, mw := range w.Messages {
		conv.Messages = append(conv.Messages, mw.message())
	}
	return conv
}

// StatusEvent is the normalized payload of a `status` SSE event.
type StatusEvent struct {
	Status         string
	StatusCode     int
	ErrorMessage   string
	ConversationID string
}

// Terminal status values the backend may report.
const (
	StatusCompleted = "completed"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusError     = "error"
)

// Succeeded reports whether the event signals a finished reply.
func (e StatusEvent) Succeeded() bool {
	return e.Status == StatusCompleted || e.Status == StatusDone
}

// Failed reports whether the event signals a failed generation.
func (e StatusEvent) Failed() bool {
	return e.Status == StatusFailed || e.Status == StatusError
}

// ParseStatusEvent decodes a status event payload, tolerating both key
// casings and the status/state field split.
func ParseStatusEvent(data []byte) (StatusEvent, error) {
	var wire statusEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return StatusEvent{}, err
	}
	return StatusEvent{
		Status:         wire.status(),
		StatusCode:     wire.statusCode(),
		ErrorMessage:   wire.errorMessage(),
		ConversationID: wire.conversationID(),
	}, nil
}

// statusEventWire is the payload of a `status` SSE event.
type statusEventWire struct {
	Status              string `json:"status"`
	State               string `json:"state"`
	StatusCode          int    `json:"statusCode"`
	StatusCodeSnake     int    `json:"status_code"`
	Message             string `json:"message"`
	ErrorMessage        string `json:"errorMessage"`
	ErrorMessageSnake   string `json:"error_message"`
	ConversationID      string `json:"conversationId"`
	ConversationIDSnake string `json:"conversation_id"`
}

func (w statusEventWire) status() string {
	return pick(w.Status, w.State)
}

func (w statusEventWire) statusCode() int {
	if w.StatusCode != 0 {
		return w.StatusCode
	}
	return w.StatusCodeSnake
}

func (w statusEventWire) errorMessage() string {
	return pick(w.ErrorMessage, pick(w.ErrorMessageSnake, w.Message))
}

func (w statusEventWire) conversationID() string {
	return pick(w.ConversationID, w.ConversationIDSnake)
}

func pick(camel, snake string) string {
	if camel != "" {
		return camel
	}
	return snake
}
