package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/cache"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/chatclient"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/reconcile"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/render"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/service"
)

func newTestRouter(t *testing.T, backend http.Handler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	rc := resty.New()
	t.Cleanup(func() { rc.Close() })
	client := chatclient.New(rc, srv.URL, zap.NewNop())

	conversationCache := cache.New(cache.NewMemoryStore(0), time.Minute, zap.NewNop())
	t.Cleanup(func() { conversationCache.Close() })

	strategy := reconcile.NewPollStrategy(client, reconcile.PollConfig{
		BaseInterval: time.Millisecond,
		Multiplier:   1.1,
		MaxInterval:  5 * time.Millisecond,
		MaxAttempts:  3,
		TotalTimeout: time.Second,
	}, zap.NewNop())

	svc := service.NewChatService(client, conversationCache, render.New(), strategy, zap.NewNop())

	r := gin.New()
	NewHandler(svc, zap.NewNop()).RegisterRoutes(r.Group("/api"))
	return r
}

func happyBackend() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversation_id":"c1","message_id":"m1"}`))
	})
	mux.HandleFunc("GET /conversations/c1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"conversation_id": "c1",
			"messages": [
				{"message_id":"m1","role":"user","content":"hi","status":"completed"},
				{"message_id":"m2","role":"assistant","content":"hello","status":"completed"}
			]
		}`))
	})
	mux.HandleFunc("GET /conversations/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}

func TestAskReturnsAccepted(t *testing.T) {
	router := newTestRouter(t, happyBackend())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"question":"What is UCD?","modelId":"model-a"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "c1", body["conversationId"])
	assert.Equal(t, "m1", body["messageId"])
}

func TestAskRejectsMissingQuestion(t *testing.T) {
	router := newTestRouter(t, happyBackend())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskTerminalBackendErrorIsNotRetryable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"question too long"}`))
	})
	router := newTestRouter(t, mux)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"question":"What is UCD?"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body struct {
		Error     string `json:"error"`
		Retryable bool   `json:"retryable"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Retryable)
	assert.Equal(t, startNewMessage, body.Error)
	// The raw backend message never leaks.
	assert.NotContains(t, w.Body.String(), "question too long")
}

func TestAskRetryableBackendError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message":"busy"}`))
	})
	router := newTestRouter(t, mux)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"question":"What is UCD?"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body struct {
		Error     string `json:"error"`
		Retryable bool   `json:"retryable"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Retryable)
	assert.Equal(t, retryLaterMessage, body.Error)
}

func TestAskAndWaitReturnsReply(t *testing.T) {
	router := newTestRouter(t, happyBackend())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/wait",
		strings.NewReader(`{"question":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		ConversationID string `json:"conversationId"`
		Message        struct {
			ID   string `json:"messageId"`
			Role string `json:"role"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "c1", body.ConversationID)
	assert.Equal(t, "m2", body.Message.ID)
	assert.Equal(t, "assistant", body.Message.Role)
}

func TestAskAndWaitTimeoutIsRetryable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversation_id":"c1","message_id":"m1"}`))
	})
	mux.HandleFunc("GET /conversations/c1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversation_id":"c1","messages":[{"message_id":"m1","role":"user","content":"hi"}]}`))
	})
	router := newTestRouter(t, mux)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/wait",
		strings.NewReader(`{"question":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	var body struct {
		Retryable bool `json:"retryable"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Retryable)
}

func TestGetConversation(t *testing.T) {
	router := newTestRouter(t, happyBackend())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conversations/c1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"conversationId":"c1"`)
}

func TestGetConversationNotFound(t *testing.T) {
	router := newTestRouter(t, happyBackend())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conversations/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearConversation(t *testing.T) {
	router := newTestRouter(t, happyBackend())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/conversations/c1", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}
