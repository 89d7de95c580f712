package tag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/sofiaerr"
)

// fakeCodec символ каждого вида равен 0x100 + Kind
type fakeCodec struct {
	missing Kind
}

func (c fakeCodec) Symbol(name string) native.Symbol {
	k, ok := KindByName(name)
	if !ok || k == c.missing {
		return 0
	}
	return native.Symbol(0x100 + int(k))
}

func (c fakeCodec) SymbolName(s native.Symbol) string {
	k := Kind(int(s) - 0x100)
	if !k.IsValid() {
		return ""
	}
	return k.Name()
}

func (c fakeCodec) WalkTags(t native.Tags, fn func(native.Item) bool) {
	for _, it := range native.ItemsAt(t) {
		if it.IsSentinel() || !fn(it) {
			return
		}
	}
}

func (c fakeCodec) TagValue(it native.Item) (string, bool) {
	return native.CStringAt(it.Value), true
}

func TestEncodeAlwaysTerminated(t *testing.T) {
	lists := map[string]List{
		"empty": NewBuilder().Collect(),
		"one":   Of(Must(SipSubject("x"))),
		"many": NewBuilder().
			Tag(Must(NuURL("sip:127.0.0.1:5080"))).
			Tag(Must(SipSubject("subject"))).
			Tag(Must(SipContentType("text/plain"))).
			Tag(Must(SipPayloadString("Hi\n"))).
			Collect(),
	}

	for name, l := range lists {
		t.Run(name, func(t *testing.T) {
			w, err := l.Encode(fakeCodec{})
			require.NoError(t, err)
			defer w.Release()

			items := w.Items()
			require.Len(t, items, l.Len()+1)
			assert.True(t, items[len(items)-1].IsSentinel())
			assert.Zero(t, items[len(items)-1].Value)
			assert.NotZero(t, w.Tags())
		})
	}
}

func TestEncodeKeepsOrderAndValues(t *testing.T) {
	l := NewBuilder().
		Tag(Must(SipSubject("first"))).
		Tag(Must(SipSubject("second"))).
		Tag(Must(SipTo("sip:127.0.0.1:9997"))).
		Collect()

	w, err := l.Encode(fakeCodec{})
	require.NoError(t, err)
	defer w.Release()

	var values []string
	fakeCodec{}.WalkTags(w.Tags(), func(it native.Item) bool {
		values = append(values, native.CStringAt(it.Value))
		return true
	})
	assert.Equal(t, []string{"first", "second", "sip:127.0.0.1:9997"}, values)

	v, ok := l.Lookup(KindSipSubject)
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestEncodeMissingSymbol(t *testing.T) {
	l := Of(Must(SipSubject("x")), Must(SoaUserSdpStr("m=audio 5008 RTP/AVP 8")))

	_, err := l.Encode(fakeCodec{missing: KindSoaUserSdpStr})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sofiaerr.ErrMissingTagConversion))
}

func TestReleaseTwice(t *testing.T) {
	w, err := Of(Must(SipSubject("x"))).Encode(fakeCodec{})
	require.NoError(t, err)

	w.Release()
	w.Release()
	assert.Zero(t, w.Tags())
}

func TestDecodeRoundTrip(t *testing.T) {
	l := Of(Must(SoaRemoteSdpStr("v=0")), Must(SipSubject("s")))
	w, err := l.Encode(fakeCodec{})
	require.NoError(t, err)
	defer w.Release()

	decoded := Decode(fakeCodec{}, w.Tags())
	assert.Equal(t, l.Tags(), decoded.Tags())
	assert.Equal(t, 0, Decode(fakeCodec{}, 0).Len())
}

func TestBuilderIsValueSemantic(t *testing.T) {
	base := NewBuilder().Tag(Must(SipSubject("a")))
	left := base.Tag(Must(SipSubject("left")))
	right := base.Tag(Must(SipSubject("right")))

	assert.Equal(t, 1, base.Collect().Len())
	lv, _ := left.Collect().Lookup(KindSipSubject)
	rv, _ := right.Collect().Lookup(KindSipSubject)
	assert.Equal(t, "left", lv)
	assert.Equal(t, "right", rv)
}

func TestAppend(t *testing.T) {
	a := Of(Must(SipTo("sip:a@127.0.0.1")))
	b := Of(Must(SipTo("sip:b@127.0.0.1")))

	merged := a.Append(b)
	assert.Equal(t, 2, merged.Len())
	v, _ := merged.Lookup(KindSipTo)
	assert.Equal(t, "sip:b@127.0.0.1", v)
	assert.Equal(t, 1, a.Len())
}
