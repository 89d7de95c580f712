package nua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/sofia_sip/pkg/message"
	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/native/gonua"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

func captureAbort(t *testing.T) *int {
	t.Helper()
	calls := 0
	prev := abort
	abort = func() { calls++ }
	t.Cleanup(func() { abort = prev })
	return &calls
}

type trampolineFixture struct {
	e    *gonua.Engine
	n    *Nua
	h    *Handle
	sink *sink
	call native.Callback
}

func newTrampolineFixture(t *testing.T) *trampolineFixture {
	t.Helper()
	e := gonua.New()
	r := newTestRoot(t, e)
	s := &sink{}
	n, err := CreateFull(r, s.on, tag.List{})
	require.NoError(t, err)
	t.Cleanup(n.Destroy)
	h, err := CreateHandle(n, tag.List{})
	require.NoError(t, err)
	return &trampolineFixture{e: e, n: n, h: h, sink: s, call: trampoline(e)}
}

func TestTrampolineDispatches(t *testing.T) {
	aborts := captureAbort(t)
	f := newTrampolineFixture(t)

	f.call(int32(EventReplyShutdown), 200, 0, f.n.ptr, f.n.magic, f.h.ptr, f.h.magic, 0, 0)

	assert.Zero(t, *aborts)
	require.Len(t, f.sink.events, 1)
	got := f.sink.events[0]
	assert.Equal(t, EventReplyShutdown, got.ev)
	assert.Equal(t, 200, got.status)
	assert.Equal(t, "", got.phrase)
	assert.Same(t, f.h, got.h)
	assert.False(t, got.sip.Present())
	assert.Zero(t, got.tags.Len())
	assert.True(t, f.n.ShutdownCompleted())
}

func TestTrampolineProvisionalShutdownKeepsFlag(t *testing.T) {
	captureAbort(t)
	f := newTrampolineFixture(t)

	f.call(int32(EventReplyShutdown), 100, 0, f.n.ptr, f.n.magic, 0, 0, 0, 0)
	assert.False(t, f.n.ShutdownCompleted())
	require.Len(t, f.sink.events, 1)
	assert.Nil(t, f.sink.events[0].h)
}

func TestTrampolineAbortsOnUnknownEvent(t *testing.T) {
	aborts := captureAbort(t)
	f := newTrampolineFixture(t)

	f.call(999, 200, 0, f.n.ptr, f.n.magic, 0, 0, 0, 0)

	assert.Equal(t, 1, *aborts)
	assert.Empty(t, f.sink.events)
}

func TestTrampolineAbortsOnAgentMismatch(t *testing.T) {
	aborts := captureAbort(t)
	f := newTrampolineFixture(t)

	f.call(int32(EventIncomingMessage), 200, 0, f.n.ptr+1, f.n.magic, 0, 0, 0, 0)
	assert.Equal(t, 1, *aborts)

	f.call(int32(EventIncomingMessage), 200, 0, f.n.ptr, f.n.magic+1000, 0, 0, 0, 0)
	assert.Equal(t, 2, *aborts)
	assert.Empty(t, f.sink.events)
}

func TestTrampolineAbortsOnHandleMismatch(t *testing.T) {
	aborts := captureAbort(t)
	f := newTrampolineFixture(t)

	f.call(int32(EventReplyMessage), 200, 0, f.n.ptr, f.n.magic, f.h.ptr+1, f.h.magic, 0, 0)

	assert.Equal(t, 1, *aborts)
	assert.Empty(t, f.sink.events)
}

func TestTrampolineAbortsOnPanic(t *testing.T) {
	aborts := captureAbort(t)
	f := newTrampolineFixture(t)
	f.n.Callback(func(*Nua, Event, int, string, *Handle, message.View, tag.List) {
		panic("обработчик упал")
	})

	assert.NotPanics(t, func() {
		f.call(int32(EventIncomingError), 500, 0, f.n.ptr, f.n.magic, 0, 0, 0, 0)
	})
	assert.Equal(t, 1, *aborts)
}
