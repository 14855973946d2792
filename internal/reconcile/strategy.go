// Package reconcile discovers, after asynchronous backend processing, the
// assistant's reply to a previously submitted question. Two strategies
// satisfy the same contract: a polling loop with exponential backoff and
// an event-stream subscription. Both bound their waiting with independent
// clocks and surface the same terminal outcomes.
package reconcile

import (
	"context"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/chatclient"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
)

// Result is a reconciled reply: the assistant message that answers the
// submitted question, plus the full conversation it arrived in.
type Result struct {
	Conversation *domain.Conversation
	Reply        *domain.Message
}

// Strategy waits for the assistant reply to the question identified by
// the receipt. It returns domain.ErrReconcileTimeout when its clocks
// expire, domain.ErrConversationGone when the submitted user message has
// vanished upstream, and a classifiable error on upstream failure.
type Strategy interface {
	Await(ctx context.Context, receipt domain.SubmitReceipt) (*Result, error)
}

// ConversationFetcher retrieves a conversation from the backend.
type ConversationFetcher interface {
	FetchConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
}

// StatusStreamOpener subscribes to the status event stream for a pending
// message.
type StatusStreamOpener interface {
	OpenStatusStream(ctx context.Context, messageID string) (*chatclient.SSEReader, func(), error)
}
