package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/classify"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/service"
)

// User-facing copy is selected by error classification only; raw backend
// errors never reach the response.
const (
	retryLaterMessage = "The assistant is busy right now. Wait a moment and try your question again."
	startNewMessage   = "This conversation cannot continue. Start a new conversation and ask again."
)

// Handler handles the chat API requests
type Handler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

// NewHandler creates a new chat handler
func NewHandler(chatService *service.ChatService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatService: chatService, logger: logger}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.Ask)
	r.POST("/chat/wait", h.AskAndWait)
	r.GET("/conversations/:id", h.GetConversation)
	r.DELETE("/conversations/:id", h.ClearConversation)
}

// Ask submits a question and returns the identifier pair the client
// polls with.
func (h *Handler) Ask(c *gin.Context) {
	var req domain.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.chatService.Ask(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, receipt)
}

// AskAndWait submits a question and blocks until the reply is
// reconciled. This is the no-JS flow.
func (h *Handler) AskAndWait(c *gin.Context) {
	var req domain.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, reply, err := h.chatService.AskAndWait(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversationId": receipt.ConversationID,
		"messageId":      receipt.MessageID,
		"message":        reply,
	})
}

// GetConversation returns the reconciled conversation JSON.
func (h *Handler) GetConversation(c *gin.Context) {
	conv, err := h.chatService.Conversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// ClearConversation drops the cached conversation state.
func (h *Handler) ClearConversation(c *gin.Context) {
	h.chatService.ClearConversation(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

// renderError maps any submission or reconciliation failure to one of
// the two user messages via the classifier.
func (h *Handler) renderError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrReconcileTimeout) || errors.Is(err, domain.ErrConversationGone) {
		h.logger.Info("reconciliation did not complete", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":     retryLaterMessage,
			"retryable": true,
		})
		return
	}

	classified := classify.Classify(err)
	h.logger.Warn("chat request failed",
		zap.Int("upstream_status", classified.Status),
		zap.Bool("retryable", classified.IsRetryable),
		zap.Error(err),
	)

	message := startNewMessage
	if classified.Advice() == classify.AdviceRetryLater {
		message = retryLaterMessage
	}
	c.JSON(http.StatusBadGateway, gin.H{
		"error":     message,
		"retryable": classified.IsRetryable,
	})
}
