package chatclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitWireAcceptsBothCasings(t *testing.T) {
	var snake submitWire
	require.NoError(t, json.Unmarshal([]byte(`{"conversation_id":"c1","message_id":"m1"}`), &snake))
	receipt := snake.receipt()
	assert.Equal(t, "c1", receipt.ConversationID)
	assert.Equal(t, "m1", receipt.MessageID)

	var camel submitWire
	require.NoError(t, json.Unmarshal([]byte(`{"conversationId":"c2","messageId":"m2"}`), &camel))
	receipt = camel.receipt()
	assert.Equal(t, "c2", receipt.ConversationID)
	assert.Equal(t, "m2", receipt.MessageID)
}

func TestConversationWireNormalizes(t *testing.T) {
	payload := `{
		"conversation_id": "c1",
		"model_id": "model-a",
		"messages": [
			{"message_id": "m1", "role": "user", "content": "hi", "status": "completed"},
			{"messageId": "m2", "role": "assistant", "content": "hello", "status": "completed", "model_name": "gpt"}
		]
	}`
	var wire conversationWire
	require.NoError(t, json.Unmarshal([]byte(payload), &wire))

	conv := wire.conversation()
	assert.Equal(t, "c1", conv.ID)
	assert.Equal(t, "model-a", conv.ModelID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "m1", conv.Messages[0].ID)
	assert.Equal(t, "hi", conv.Messages[0].RawContent)
	assert.Equal(t, "m2", conv.Messages[1].ID)
	assert.Equal(t, "gpt", conv.Messages[1].ModelName)
}

func TestParseStatusEvent(t *testing.T) {
	ev, err := ParseStatusEvent([]byte(`{"status":"completed","conversation_id":"c1"}`))
	require.NoError(t, err)
	assert.True(t, ev.Succeeded())
	assert.False(t, ev.Failed())
	assert.Equal(t, "c1", ev.ConversationID)

	ev, err = ParseStatusEvent([]byte(`{"state":"done"}`))
	require.NoError(t, err)
	assert.True(t, ev.Succeeded())

	ev, err = ParseStatusEvent([]byte(`{"status":"failed","error_message":"model unavailable","status_code":503}`))
	require.NoError(t, err)
	assert.True(t, ev.Failed())
	assert.Equal(t, "model unavailable", ev.ErrorMessage)
	assert.Equal(t, 503, ev.StatusCode)

	_, err = ParseStatusEvent([]byte(`{not json`))
	assert.Error(t, err)
}
