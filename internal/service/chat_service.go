package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/cache"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/chatclient"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/reconcile"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/render"
)

// ChatService orchestrates question submission, reply reconciliation, and
// the conversation cache that bridges the gap between the two.
type ChatService struct {
	client   *chatclient.Client
	cache    *cache.ConversationCache
	renderer *render.Renderer
	strategy reconcile.Strategy
	logger   *zap.Logger
}

// NewChatService creates a new chat service.
func NewChatService(
	client *chatclient.Client,
	conversationCache *cache.ConversationCache,
	renderer *render.Renderer,
	strategy reconcile.Strategy,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		client:   client,
		cache:    conversationCache,
		renderer: renderer,
		strategy: strategy,
		logger:   logger,
	}
}

// Ask submits a question to the backend and seeds the cache with a
// placeholder entry so the conversation can be rendered immediately,
// before the real reply exists.
func (s *ChatService) Ask(ctx context.Context, req *domain.AskRequest) (domain.SubmitReceipt, error) {
	receipt, err := s.client.Submit(ctx, req.Question, req.ConversationID, req.ModelID)
	if err != nil {
		return domain.SubmitReceipt{}, err
	}

	now := time.Now()
	messages := append(s.cache.Messages(ctx, receipt.ConversationID),
		domain.Message{
			ID:         receipt.MessageID,
			Role:       domain.RoleUser,
			Content:    s.renderer.Render(req.Question),
			RawContent: req.Question,
			Status:     domain.StatusCompleted,
			Timestamp:  now,
		},
		domain.Message{
			ID:            uuid.New().String(),
			Role:          domain.RoleAssistant,
			Status:        domain.StatusPending,
			IsPlaceholder: true,
			Timestamp:     now,
		},
	)
	s.cache.Store(ctx, receipt.ConversationID, messages, receipt.ModelID,
		cache.WithInitialViewPending())

	return receipt, nil
}

// AwaitReply runs the configured reconciliation strategy for a submitted
// question. On success the reply and conversation are sanitized, the
// cache is refreshed asynchronously, and the assistant message is
// returned. A reconciliation timeout returns a nil message with
// domain.ErrReconcileTimeout.
func (s *ChatService) AwaitReply(ctx context.Context, receipt domain.SubmitReceipt) (*domain.Message, error) {
	result, err := s.strategy.Await(ctx, receipt)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Reply == nil {
		return nil, domain.ErrConversationGone
	}

	s.renderer.SanitizeMessages(result.Conversation.Messages)

	// Cache refresh is best-effort and must not delay the caller.
	conv := result.Conversation
	go func() {
		persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.cache.Store(persistCtx, conv.ID, conv.Messages, receipt.ModelID)
	}()

	return result.Reply, nil
}

// AskAndWait submits a question and waits for the reconciled reply. Used
// by the no-JS flow, where the whole exchange happens within one request.
func (s *ChatService) AskAndWait(ctx context.Context, req *domain.AskRequest) (domain.SubmitReceipt, *domain.Message, error) {
	receipt, err := s.Ask(ctx, req)
	if err != nil {
		return domain.SubmitReceipt{}, nil, err
	}
	reply, err := s.AwaitReply(ctx, receipt)
	if err != nil {
		return receipt, nil, err
	}
	return receipt, reply, nil
}

// Conversation returns the reconciled conversation. The backend is the
// source of truth; the cache only answers when the backend cannot.
func (s *ChatService) Conversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id required: %w", domain.ErrInvalidRequest)
	}

	conv, err := s.client.FetchConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.logger.Warn("backend conversation fetch failed, trying cache",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		if entry := s.cache.Get(ctx, conversationID); entry != nil {
			return &domain.Conversation{
				ID:       entry.ConversationID,
				ModelID:  entry.ModelID,
				Messages: entry.Messages,
			}, nil
		}
		return nil, err
	}

	s.renderer.SanitizeMessages(conv.Messages)
	return conv, nil
}

// ClearConversation drops the cached entry for a conversation.
func (s *ChatService) ClearConversation(ctx context.Context, conversationID string) {
	s.cache.Drop(ctx, conversationID)
}
