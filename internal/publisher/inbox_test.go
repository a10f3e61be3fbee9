package publisher

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxOnMessage(t *testing.T) {
	logger, hook := test.NewNullLogger()
	in := NewInbox(512, logger)

	in.OnMessage("XDK/XDK1", []byte(`{"cmd":"ping"}`))

	m := in.Snapshot()
	assert.Equal(t, uint32(1), m.Count)
	assert.Equal(t, "XDK/XDK1", m.Topic)
	assert.Equal(t, `{"cmd":"ping"}`, m.Payload)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "incoming message", entry.Message)
	assert.Equal(t, uint32(1), entry.Data["count"])
}

func TestInboxTruncates(t *testing.T) {
	logger, hook := test.NewNullLogger()
	in := NewInbox(16, logger)

	in.OnMessage(strings.Repeat("t", 40), []byte(strings.Repeat("p", 40)))

	m := in.Snapshot()
	assert.Len(t, m.Topic, 15)
	assert.Len(t, m.Payload, 15)
	assert.Equal(t, true, hook.LastEntry().Data["truncated"])

	in.OnMessage("short", []byte("x"))
	m = in.Snapshot()
	assert.Equal(t, uint32(2), m.Count)
	assert.Equal(t, "short", m.Topic)
	assert.Equal(t, "x", m.Payload)
}
