package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"transcript_final","sessionId":"s-1","data":{"text":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, MessageTranscriptFinal, env.Type)
	assert.Equal(t, "s-1", env.SessionId)

	var p struct {
		Text string `json:"text"`
	}
	require.NoError(t, env.Decode(&p))
	assert.Equal(t, "hi", p.Text)
}

func TestParseEnvelope_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"type":`,
		"unknown type": `{"type":"teleport"}`,
		"missing type": `{"sessionId":"s-1"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestMessageTypesAreClosed(t *testing.T) {
	for _, mt := range []MessageType{
		MessageSessionStart, MessageSessionEnd, MessageAudioChunk, MessageTranscriptPartial,
		MessageTranscriptFinal, MessageAvatarSpeak, MessageAvatarStop, MessageBargeIn,
		MessageTurnComplete, MessageError, MessagePing, MessagePong,
	} {
		assert.True(t, mt.Valid(), string(mt))
	}
	assert.False(t, MessageType("custom").Valid())
}
