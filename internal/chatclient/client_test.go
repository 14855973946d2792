package chatclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resty.dev/v3"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/classify"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rc := resty.New()
	t.Cleanup(func() { rc.Close() })
	return New(rc, srv.URL, nil, WithRequestTimeout(5*time.Second))
}

func TestSubmitReturnsReceipt(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversation_id":"c1","message_id":"m1","status":"pending"}`))
	}))

	receipt, err := client.Submit(context.Background(), "What is UCD?", "", "model-a")
	require.NoError(t, err)
	assert.Equal(t, "c1", receipt.ConversationID)
	assert.Equal(t, "m1", receipt.MessageID)
	assert.Equal(t, "model-a", receipt.ModelID)
}

func TestSubmitNon2xxRaisesUpstreamError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message":"upstream busy"}`))
	}))

	_, err := client.Submit(context.Background(), "q", "", "")
	var upstream *classify.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.Status)
	assert.Equal(t, "upstream busy", upstream.Message)
}

func TestSubmitIncompleteIdentifiers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"pending"}`))
	}))

	_, err := client.Submit(context.Background(), "q", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestFetchConversation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/conversations/c1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversation_id":"c1","messages":[{"message_id":"m1","role":"user","content":"hi"}]}`))
	}))

	conv, err := client.FetchConversation(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", conv.ID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, domain.RoleUser, conv.Messages[0].Role)
}

func TestFetchConversationNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.FetchConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpenStatusStream(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/stream/m1", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: status\ndata: {\"status\":\"completed\"}\n\n"))
	}))

	reader, closeFn, err := client.OpenStatusStream(context.Background(), "m1")
	require.NoError(t, err)
	defer closeFn()

	ev, err := reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "status", ev.Name)

	// Idempotent teardown.
	closeFn()
	closeFn()
}

func TestOpenStatusStreamUpstreamError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message":"stream broker down"}`))
	}))

	_, _, err := client.OpenStatusStream(context.Background(), "m1")
	var upstream *classify.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadGateway, upstream.Status)
}
