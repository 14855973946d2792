// Package chatclient is the HTTP client for the backend chat API. It owns
// the upstream wire formats (including their inconsistent key casing) and
// hands normalized domain types to the rest of the service.
package chatclient

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/classify"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
)

// Client talks to the backend chat API.
type Client struct {
	client         *resty.Client
	baseURL        string
	requestTimeout time.Duration
	logger         *zap.Logger
}

// Option adjusts client construction.
type Option func(*Client)

// WithRequestTimeout bounds the JSON request/response calls. It does not
// apply to status stream subscriptions, whose lifetime is owned by the
// reconciliation strategy.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.requestTimeout = timeout }
}

// New creates a backend chat client.
func New(client *resty.Client, baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		client:  client,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// requestCtx applies the configured request timeout, when one is set.
func (c *Client) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout > 0 {
		return context.WithTimeout(ctx, c.requestTimeout)
	}
	return ctx, func() {}
}

type submitRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
	ModelID        string `json:"model_id,omitempty"`
}

// Submit posts a question to the backend and returns the identifier pair
// for the pending reply. A non-2xx response comes back as an
// *classify.UpstreamError carrying the status and body.
func (c *Client) Submit(ctx context.Context, question, conversationID, modelID string) (domain.SubmitReceipt, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	var wire submitWire
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(submitRequest{Question: question, ConversationID: conversationID, ModelID: modelID}).
		SetResult(&wire).
		Post(c.endpoint("/chat"))
	if err != nil {
		return domain.SubmitReceipt{}, fmt.Errorf("chat submission failed: %w", err)
	}
	if resp.IsError() {
		return domain.SubmitReceipt{}, classify.NewUpstreamError(resp.StatusCode(), resp.Bytes())
	}

	receipt := wire.receipt()
	if receipt.ConversationID == "" || receipt.MessageID == "" {
		return domain.SubmitReceipt{}, fmt.Errorf("chat submission returned incomplete identifiers: %w", domain.ErrInvalidRequest)
	}
	receipt.ModelID = modelID
	return receipt, nil
}

// FetchConversation retrieves a conversation by ID.
func (c *Client) FetchConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	var wire conversationWire
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&wire).
		Get(c.endpoint("/conversations/" + conversationID))
	if err != nil {
		return nil, fmt.Errorf("conversation fetch failed: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, domain.ErrNotFound
	}
	if resp.IsError() {
		return nil, classify.NewUpstreamError(resp.StatusCode(), resp.Bytes())
	}
	return wire.conversation(), nil
}

// OpenStatusStream subscribes to the status event stream for a pending
// message. The returned close func tears down the connection and is safe
// to call more than once.
func (c *Client) OpenStatusStream(ctx context.Context, messageID string) (*SSEReader, func(), error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		SetDoNotParseResponse(true).
		Get(c.endpoint("/chat/stream/" + messageID))
	if err != nil {
		return nil, nil, fmt.Errorf("status stream request failed: %w", err)
	}
	if resp.IsError() {
		body := c.drainErrorBody(resp)
		return nil, nil, classify.NewUpstreamError(resp.StatusCode(), body)
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, nil, fmt.Errorf("status stream returned empty body")
	}

	body := resp.RawResponse.Body
	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			if err := body.Close(); err != nil {
				c.logger.Debug("unable to close status stream body", zap.Error(err))
			}
		})
	}
	return NewSSEReader(body), closeFn, nil
}

func (c *Client) drainErrorBody(resp *resty.Response) []byte {
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil
	}
	defer resp.RawResponse.Body.Close()
	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return nil
	}
	return body
}

func (c *Client) endpoint(path string) string {
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}
