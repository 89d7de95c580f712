package gonua

import (
	"testing"

	"github.com/pion/sdp/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSDPAddsSessionHeader(t *testing.T) {
	raw, err := completeSDP("m=audio 5008 RTP/AVP 8", "127.0.0.1")
	require.NoError(t, err)

	desc := &sdp.SessionDescription{}
	require.NoError(t, desc.Unmarshal(raw))
	assert.Equal(t, "127.0.0.1", desc.Origin.UnicastAddress)
	require.Len(t, desc.MediaDescriptions, 1)
	assert.Equal(t, 5008, desc.MediaDescriptions[0].MediaName.Port.Value)
	assert.Equal(t, []string{"8"}, desc.MediaDescriptions[0].MediaName.Formats)
}

func TestCompleteSDPRejectsGarbage(t *testing.T) {
	_, err := completeSDP("v=0\nthis is not sdp", "127.0.0.1")
	assert.Error(t, err)
}

func TestAnswerSDPMirrorsFirstFormat(t *testing.T) {
	offer, err := completeSDP("m=audio 5008 RTP/AVP 8 0 101", "127.0.0.1")
	require.NoError(t, err)

	raw, err := answerSDP(offer, "", "127.0.0.2")
	require.NoError(t, err)

	answer := &sdp.SessionDescription{}
	require.NoError(t, answer.Unmarshal(raw))
	require.Len(t, answer.MediaDescriptions, 1)
	md := answer.MediaDescriptions[0]
	assert.Equal(t, []string{"8"}, md.MediaName.Formats)
	_, inactive := md.Attribute("inactive")
	assert.True(t, inactive)
	assert.Equal(t, "127.0.0.2", answer.ConnectionInformation.Address.Address)
}

func TestAnswerSDPUsesOwnSDP(t *testing.T) {
	offer, err := completeSDP("m=audio 5008 RTP/AVP 8", "127.0.0.1")
	require.NoError(t, err)

	raw, err := answerSDP(offer, "m=audio 6000 RTP/AVP 0", "127.0.0.2")
	require.NoError(t, err)

	answer := &sdp.SessionDescription{}
	require.NoError(t, answer.Unmarshal(raw))
	assert.Equal(t, 6000, answer.MediaDescriptions[0].MediaName.Port.Value)
}

func TestAnswerSDPRejectsBadOffer(t *testing.T) {
	_, err := answerSDP([]byte("garbage"), "", "127.0.0.1")
	assert.Error(t, err)
}
