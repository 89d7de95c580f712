package native

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCStringAt(t *testing.T) {
	buf := []byte("sip:127.0.0.1\x00garbage")
	var pin runtime.Pinner
	pin.Pin(&buf[0])
	defer pin.Unpin()

	assert.Equal(t, "sip:127.0.0.1", CStringAt(AddressOf(buf)))
	assert.Equal(t, "", CStringAt(0))
}

func TestBytesAtCopies(t *testing.T) {
	buf := []byte{1, 2, 0, 4}
	out := BytesAt(AddressOf(buf), 3)
	require.Equal(t, []byte{1, 2, 0}, out)

	buf[0] = 9
	assert.Equal(t, byte(1), out[0])
	assert.Nil(t, BytesAt(0, 3))
}

func TestItemsAtStopsAtSentinel(t *testing.T) {
	items := []Item{{Tag: 1, Value: 10}, {Tag: 2, Value: 20}, {}, {Tag: 3}}
	got := ItemsAt(TagsOf(items))

	require.Len(t, got, 3)
	assert.True(t, got[2].IsSentinel())
	assert.Nil(t, ItemsAt(0))
}
