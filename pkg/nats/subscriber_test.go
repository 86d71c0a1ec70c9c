package nats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	data := []byte(`{"sessionId":"abc","type":"session.completed","occurredAt":"2026-01-02T03:04:05.000000006Z"}`)

	event, err := decode("interview.session.completed", data)
	require.NoError(t, err)

	assert.Equal(t, "session.completed", event.EventType())
	assert.Equal(t, "abc", event.Payload()["sessionId"])
	assert.True(t, time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC).Equal(event.Timestamp()))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode("interview.session.completed", []byte("not json"))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "interview.latency.breach", Subject("latency.breach"))
}
