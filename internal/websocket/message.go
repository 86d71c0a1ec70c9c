package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the closed set of realtime event types.
type MessageType string

const (
	MessageSessionStart      MessageType = "session_start"
	MessageSessionEnd        MessageType = "session_end"
	MessageAudioChunk        MessageType = "audio_chunk"
	MessageTranscriptPartial MessageType = "transcript_partial"
	MessageTranscriptFinal   MessageType = "transcript_final"
	MessageAvatarSpeak       MessageType = "avatar_speak"
	MessageAvatarStop        MessageType = "avatar_stop"
	MessageBargeIn           MessageType = "barge_in"
	MessageTurnComplete      MessageType = "turn_complete"
	MessageError             MessageType = "error"
	MessagePing              MessageType = "ping"
	MessagePong              MessageType = "pong"
)

var messageTypes = map[MessageType]struct{}{
	MessageSessionStart: {}, MessageSessionEnd: {}, MessageAudioChunk: {},
	MessageTranscriptPartial: {}, MessageTranscriptFinal: {}, MessageAvatarSpeak: {},
	MessageAvatarStop: {}, MessageBargeIn: {}, MessageTurnComplete: {},
	MessageError: {}, MessagePing: {}, MessagePong: {},
}

func (t MessageType) Valid() bool {
	_, ok := messageTypes[t]
	return ok
}

func (t *MessageType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !MessageType(s).Valid() {
		return fmt.Errorf("unknown message type %q", s)
	}
	*t = MessageType(s)
	return nil
}

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Type      MessageType     `json:"type"`
	SessionId string          `json:"sessionId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals the envelope data into v. Empty data leaves v untouched.
func (e Envelope) Decode(v interface{}) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

func NewEnvelope(t MessageType, sessionID string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		data = b
	}
	return json.Marshal(Envelope{
		Type:      t,
		SessionId: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("message type is required")
	}
	return env, nil
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
