package nua

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventCodesMatchEngine(t *testing.T) {
	assert.Equal(t, Event(0), EventIncomingError)
	assert.Equal(t, Event(1), EventIncomingInvite)
	assert.Equal(t, Event(16), EventIncomingMessage)
	assert.Equal(t, Event(25), EventReplyShutdown)
	assert.Equal(t, Event(31), EventReplyInvite)
	assert.Equal(t, Event(41), EventReplyMessage)
	assert.Equal(t, Event(52), EventReplyAck)
	assert.Equal(t, Event(54), EventIncomingRegister)
}

func TestEventFromCode(t *testing.T) {
	ev, ok := EventFromCode(16)
	assert.True(t, ok)
	assert.Equal(t, EventIncomingMessage, ev)

	for _, code := range []int32{-1, 55, 1000} {
		_, ok := EventFromCode(code)
		assert.False(t, ok, "код %d", code)
	}
}

func TestEventNames(t *testing.T) {
	seen := make(map[string]bool)
	for code := int32(0); code < int32(eventCount); code++ {
		ev, ok := EventFromCode(code)
		if !assert.True(t, ok) {
			continue
		}
		name := ev.String()
		assert.True(t, strings.HasPrefix(name, "nua_"), name)
		assert.False(t, seen[name], "повтор %s", name)
		seen[name] = true
		assert.NotEqual(t, ev.IsIncoming(), ev.IsReply(), name)
	}

	assert.Equal(t, "nua_i_message", EventIncomingMessage.String())
	assert.Equal(t, "nua_r_shutdown", EventReplyShutdown.String())
	assert.Equal(t, "nua_event(99)", Event(99).String())
	assert.False(t, Event(99).IsIncoming())
	assert.False(t, Event(99).IsReply())
}
