package gonua

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	msgview "github.com/arzzra/sofia_sip/pkg/message"
	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

type recorded struct {
	event  int32
	status int32
	phrase string
	nh     native.Handle
	hmagic native.Magic
	msg    msgview.View
	tags   tag.List
}

type recorder struct {
	e      *Engine
	events []recorded
}

func (r *recorder) callback(event, status int32, phrase native.Ptr, nua native.Nua, magic native.Magic,
	nh native.Handle, hmagic native.Magic, sip native.Sip, tags native.Tags) {
	r.events = append(r.events, recorded{
		event:  event,
		status: status,
		phrase: r.e.GoString(phrase),
		nh:     nh,
		hmagic: hmagic,
		msg:    msgview.Decode(r.e, sip),
		tags:   tag.Decode(r.e, tags),
	})
}

func (r *recorder) count(event int32) int {
	n := 0
	for _, ev := range r.events {
		if ev.event == event {
			n++
		}
	}
	return n
}

func (r *recorder) find(event int32) (recorded, bool) {
	for _, ev := range r.events {
		if ev.event == event {
			return ev, true
		}
	}
	return recorded{}, false
}

func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func encode(t *testing.T, e *Engine, tags ...tag.Tag) *tag.Wire {
	t.Helper()
	w, err := tag.Of(tags...).Encode(e)
	require.NoError(t, err)
	t.Cleanup(w.Release)
	return w
}

func pump(e *Engine, r native.Root, timeout time.Duration, done func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if done() {
			return true
		}
		e.RootStep(r, 50)
	}
	return done()
}

func createAgent(t *testing.T, e *Engine, r native.Root, rec *recorder, url string, magic native.Magic) native.Nua {
	t.Helper()
	w := encode(t, e, tag.Must(tag.NuURL(url)))
	n, err := e.NuaCreate(r, rec.callback, magic, w.Tags())
	require.NoError(t, err)
	require.NotZero(t, n)
	t.Cleanup(func() { e.NuaDestroy(n) })
	return n
}

func TestNuaCreateAddressInUse(t *testing.T) {
	e, r := newTestRoot(t)
	url := fmt.Sprintf("sip:127.0.0.1:%d", freePort(t))
	rec := &recorder{e: e}

	createAgent(t, e, r, rec, url, 1)

	w := encode(t, e, tag.Must(tag.NuURL(url)))
	n, err := e.NuaCreate(r, rec.callback, 2, w.Tags())
	assert.Zero(t, n)
	assert.ErrorIs(t, err, unix.EADDRINUSE)
}

func TestMessageToSelf(t *testing.T) {
	e, r := newTestRoot(t)
	url := fmt.Sprintf("sip:127.0.0.1:%d", freePort(t))
	rec := &recorder{e: e}
	n := createAgent(t, e, r, rec, url, 1)

	hw := encode(t, e, tag.Must(tag.SipTo(url)))
	h, err := e.HandleCreate(n, 7, hw.Tags())
	require.NoError(t, err)

	mw := encode(t, e,
		tag.Must(tag.SipSubject("NUA")),
		tag.Must(tag.SipContentType("text/plain")),
		tag.Must(tag.SipPayloadString("Hi\n")),
	)
	e.Message(h, mw.Tags())

	require.True(t, pump(e, r, 5*time.Second, func() bool { return rec.count(evRMessage) > 0 }))

	require.Equal(t, 1, rec.count(evIMessage))
	require.Equal(t, 1, rec.count(evRMessage))

	in, _ := rec.find(evIMessage)
	assert.Zero(t, in.hmagic, "входящий запрос без контекста приложения")
	pl, ok := in.msg.Payload()
	require.True(t, ok)
	assert.Equal(t, "Hi\n", pl.UTF8Lossy())
	subject, _ := in.msg.Subject()
	assert.Equal(t, "NUA", subject)
	ct, _ := in.msg.ContentType()
	assert.Equal(t, "text/plain", ct)

	reply, _ := rec.find(evRMessage)
	assert.Equal(t, int32(200), reply.status)
	assert.Equal(t, native.Magic(7), reply.hmagic)
	assert.Equal(t, h, reply.nh)

	var iIdx, rIdx int
	for i, ev := range rec.events {
		switch ev.event {
		case evIMessage:
			iIdx = i
		case evRMessage:
			rIdx = i
		}
	}
	assert.Less(t, iIdx, rIdx)

	e.HandleDestroy(h)
	assert.Nil(t, e.handle(h))
}

func TestMessageWithoutDestination(t *testing.T) {
	e, r := newTestRoot(t)
	rec := &recorder{e: e}
	n := createAgent(t, e, r, rec, fmt.Sprintf("sip:127.0.0.1:%d", freePort(t)), 1)

	h, err := e.HandleCreate(n, 3, 0)
	require.NoError(t, err)
	e.Message(h, 0)

	require.True(t, pump(e, r, time.Second, func() bool { return rec.count(evRMessage) > 0 }))
	reply, _ := rec.find(evRMessage)
	assert.Equal(t, int32(statusInternalError), reply.status)
	assert.Equal(t, phraseNoDestination, reply.phrase)
}

func TestShutdownReplies(t *testing.T) {
	e, r := newTestRoot(t)
	rec := &recorder{e: e}
	w := encode(t, e)
	n, err := e.NuaCreate(r, rec.callback, 1, w.Tags())
	require.NoError(t, err)

	e.NuaShutdown(n)
	require.True(t, pump(e, r, time.Second, func() bool { return rec.count(evRShutdown) == 2 }))

	assert.Equal(t, int32(100), rec.events[0].status)
	assert.Equal(t, int32(200), rec.events[1].status)

	_, err = e.HandleCreate(n, 1, 0)
	assert.ErrorIs(t, err, unix.ESHUTDOWN)

	e.NuaDestroy(n)
	e.NuaDestroy(n)
	assert.Nil(t, e.agent(n))
}

func TestScratchReleased(t *testing.T) {
	e, r := newTestRoot(t)
	before := e.arena.len()

	rec := &recorder{e: e}
	w := encode(t, e)
	n, err := e.NuaCreate(r, rec.callback, 1, w.Tags())
	require.NoError(t, err)
	e.NuaShutdown(n)
	pump(e, r, time.Second, func() bool { return rec.count(evRShutdown) == 2 })
	e.NuaDestroy(n)

	assert.Equal(t, before, e.arena.len())
}
