// Package cache holds the short-lived conversation cache that bridges the
// gap between question submission and reply completion. It is advisory:
// the backend stays the source of truth, so every store failure is logged
// and swallowed rather than surfaced to callers.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
)

// Entry is the cached view of one conversation.
type Entry struct {
	ConversationID     string           `json:"conversationId"`
	Messages           []domain.Message `json:"messages"`
	ModelID            string           `json:"modelId,omitempty"`
	InitialViewPending bool             `json:"initialViewPending,omitempty"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// store is the backend behind the cache. Implementations may fail; the
// ConversationCache absorbs those failures.
type store interface {
	Put(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Fetch(ctx context.Context, key string) (*Entry, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

const keyPrefix = "conversation:"

// StoreOption adjusts a single Store call.
type StoreOption func(*Entry)

// WithInitialViewPending marks the entry as awaiting its first full render,
// used by the no-JS flow to decide whether to show a placeholder reply.
func WithInitialViewPending() StoreOption {
	return func(e *Entry) { e.InitialViewPending = true }
}

// ConversationCache is the process-wide conversation cache.
type ConversationCache struct {
	store  store
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a conversation cache over the given store.
func New(s store, ttl time.Duration, logger *zap.Logger) *ConversationCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationCache{store: s, ttl: ttl, logger: logger}
}

// Store writes (or overwrites) the entry for a conversation with a fresh
// UpdatedAt and the configured TTL. It never returns an error.
func (c *ConversationCache) Store(ctx context.Context, conversationID string, messages []domain.Message, modelID string, opts ...StoreOption) {
	if conversationID == "" {
		return
	}
	entry := &Entry{
		ConversationID: conversationID,
		Messages:       messages,
		ModelID:        modelID,
		UpdatedAt:      time.Now(),
	}
	for _, opt := range opts {
		opt(entry)
	}
	if err := c.store.Put(ctx, keyPrefix+conversationID, entry, c.ttl); err != nil {
		c.logger.Warn("conversation cache write failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}
}

// Get returns the cached entry, or nil on an empty ID, a miss, or a store
// error. Store errors are logged, never propagated.
func (c *ConversationCache) Get(ctx context.Context, conversationID string) *Entry {
	if conversationID == "" {
		return nil
	}
	entry, err := c.store.Fetch(ctx, keyPrefix+conversationID)
	if err != nil {
		c.logger.Warn("conversation cache read failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil
	}
	return entry
}

// Messages returns the cached message list, or an empty slice on any miss.
func (c *ConversationCache) Messages(ctx context.Context, conversationID string) []domain.Message {
	entry := c.Get(ctx, conversationID)
	if entry == nil {
		return []domain.Message{}
	}
	return entry.Messages
}

// Drop removes the entry for a conversation. No-ops silently on an empty
// ID or a store error.
func (c *ConversationCache) Drop(ctx context.Context, conversationID string) {
	if conversationID == "" {
		return
	}
	if err := c.store.Delete(ctx, keyPrefix+conversationID); err != nil {
		c.logger.Warn("conversation cache delete failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}
}

// Close releases the underlying store.
func (c *ConversationCache) Close() error {
	return c.store.Close()
}
