package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/sofia_sip/pkg/native"
)

// fakeReader хранит "нативную память" в картах по указателю
type fakeReader struct {
	strings map[native.Ptr]string
	urls    map[native.URL]string

	from, to    *native.Address
	subject     native.Ptr
	contentType native.Ptr
	payload     *native.Payload

	urlCalls []int
}

func (f *fakeReader) GoString(p native.Ptr) string { return f.strings[p] }

func (f *fakeReader) GoBytes(p native.Ptr, n int) []byte {
	return []byte(f.strings[p][:n])
}

func (f *fakeReader) SipFrom(native.Sip) *native.Address   { return f.from }
func (f *fakeReader) SipTo(native.Sip) *native.Address     { return f.to }
func (f *fakeReader) SipSubject(native.Sip) native.Ptr     { return f.subject }
func (f *fakeReader) SipContentType(native.Sip) native.Ptr { return f.contentType }
func (f *fakeReader) SipPayload(native.Sip) *native.Payload {
	return f.payload
}

func (f *fakeReader) URLFormat(buf []byte, u native.URL) int {
	f.urlCalls = append(f.urlCalls, len(buf))
	s := f.urls[u]
	if len(buf) > len(s) {
		copy(buf, s)
		buf[len(s)] = 0
	}
	return len(s)
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		strings: map[native.Ptr]string{
			1: "Alice",
			2: "hello",
			3: "text/plain",
			4: "Hi\n",
		},
		urls: map[native.URL]string{
			10: "sip:alice@127.0.0.1:5080",
			11: "sip:127.0.0.1:5081",
		},
		from:        &native.Address{Display: 1, URL: 10},
		to:          &native.Address{URL: 11},
		subject:     2,
		contentType: 3,
		payload:     &native.Payload{Data: 4, Len: 3},
	}
}

func TestDecodeAbsent(t *testing.T) {
	v := Decode(newFakeReader(), 0)

	assert.False(t, v.Present())
	_, ok := v.From()
	assert.False(t, ok)
	_, ok = v.Payload()
	assert.False(t, ok)
}

func TestDecodeFull(t *testing.T) {
	r := newFakeReader()
	v := Decode(r, 0x42)
	require.True(t, v.Present())

	from, ok := v.From()
	require.True(t, ok)
	assert.Equal(t, "Alice", from.Display)
	assert.Equal(t, "sip:alice@127.0.0.1:5080", from.URL)
	assert.Equal(t, `"Alice" <sip:alice@127.0.0.1:5080>`, from.String())

	to, ok := v.To()
	require.True(t, ok)
	assert.Equal(t, "", to.Display)
	assert.Equal(t, "<sip:127.0.0.1:5081>", to.String())

	subject, ok := v.Subject()
	require.True(t, ok)
	assert.Equal(t, "hello", subject)

	ct, ok := v.ContentType()
	require.True(t, ok)
	assert.Equal(t, "text/plain", ct)

	pl, ok := v.Payload()
	require.True(t, ok)
	assert.Equal(t, 3, pl.Len())
	assert.Equal(t, []byte("Hi\n"), pl.Bytes())
	assert.Equal(t, "Hi\n", pl.UTF8Lossy())
}

func TestURLFormattedTwice(t *testing.T) {
	r := newFakeReader()
	r.to = nil
	Decode(r, 1)

	// длина, затем буфер длина+1
	require.Len(t, r.urlCalls, 2)
	assert.Equal(t, 0, r.urlCalls[0])
	assert.Equal(t, len("sip:alice@127.0.0.1:5080")+1, r.urlCalls[1])
}

func TestDecodeNullSubPointers(t *testing.T) {
	r := newFakeReader()
	r.from = nil
	r.subject = 0
	r.payload = nil
	r.to = &native.Address{}

	v := Decode(r, 1)
	require.True(t, v.Present())

	_, ok := v.From()
	assert.False(t, ok)
	_, ok = v.Subject()
	assert.False(t, ok)
	_, ok = v.Payload()
	assert.False(t, ok)

	to, ok := v.To()
	require.True(t, ok)
	assert.Equal(t, Address{}, to)

	ct, ok := v.ContentType()
	assert.True(t, ok)
	assert.Equal(t, "text/plain", ct)
}

func TestPayloadIsCopied(t *testing.T) {
	r := newFakeReader()
	v := Decode(r, 1)
	r.strings[4] = "XX\n"

	pl, _ := v.Payload()
	assert.Equal(t, "Hi\n", pl.UTF8Lossy())

	b := pl.Bytes()
	b[0] = 'Z'
	assert.Equal(t, "Hi\n", pl.UTF8Lossy())
}

func TestPayloadLossy(t *testing.T) {
	pl := Payload{data: []byte{'o', 'k', 0xff}}
	assert.Equal(t, "ok�", pl.UTF8Lossy())
}

func TestPayloadSDP(t *testing.T) {
	body := "v=0\r\n" +
		"o=- 1 1 IN IP4 127.0.0.1\r\n" +
		"s=-\r\n" +
		"c=IN IP4 127.0.0.1\r\n" +
		"t=0 0\r\n" +
		"m=audio 5008 RTP/AVP 8\r\n"
	pl := Payload{data: []byte(body)}

	desc, err := pl.SDP()
	require.NoError(t, err)
	require.Len(t, desc.MediaDescriptions, 1)
	assert.Equal(t, "audio", desc.MediaDescriptions[0].MediaName.Media)
	assert.Equal(t, 5008, desc.MediaDescriptions[0].MediaName.Port.Value)

	_, err = Payload{data: []byte("garbage")}.SDP()
	assert.Error(t, err)
}
