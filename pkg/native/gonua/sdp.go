package gonua

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pion/sdp/v3"
)

var errNoMedia = errors.New("в SDP нет медиа описаний")

// completeSDP дополняет пользовательское SDP заголовком сессии, если его
// нет (например, передана только строка "m=audio 5008 RTP/AVP 8"), и
// проверяет результат разбором
func completeSDP(user, host string) ([]byte, error) {
	var lines []string
	for _, l := range strings.Split(user, "\n") {
		if l = strings.TrimRight(l, "\r"); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "v=") {
		now := time.Now().Unix()
		header := []string{
			"v=0",
			fmt.Sprintf("o=- %d %d IN IP4 %s", now, now, host),
			"s=-",
			"c=IN IP4 " + host,
			"t=0 0",
		}
		lines = append(header, lines...)
	}

	desc := &sdp.SessionDescription{}
	if err := desc.Unmarshal([]byte(strings.Join(lines, "\r\n") + "\r\n")); err != nil {
		return nil, fmt.Errorf("некорректное SDP: %w", err)
	}
	return desc.Marshal()
}

// answerSDP строит ответ на предложение. Без собственного SDP агент
// принимает каждый поток с первым предложенным форматом в режиме
// inactive.
func answerSDP(offer []byte, user, host string) ([]byte, error) {
	remote := &sdp.SessionDescription{}
	if err := remote.Unmarshal(offer); err != nil {
		return nil, fmt.Errorf("некорректное SDP предложение: %w", err)
	}
	if len(remote.MediaDescriptions) == 0 {
		return nil, errNoMedia
	}
	if user != "" {
		return completeSDP(user, host)
	}

	now := uint64(time.Now().Unix())
	answer := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      now,
			SessionVersion: now,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: host,
		},
		SessionName: sdp.SessionName("-"),
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: host},
		},
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}
	for _, md := range remote.MediaDescriptions {
		formats := md.MediaName.Formats
		if len(formats) > 1 {
			formats = formats[:1]
		}
		answer.MediaDescriptions = append(answer.MediaDescriptions, &sdp.MediaDescription{
			MediaName: sdp.MediaName{
				Media:   md.MediaName.Media,
				Port:    sdp.RangedPort{Value: md.MediaName.Port.Value},
				Protos:  md.MediaName.Protos,
				Formats: formats,
			},
			Attributes: []sdp.Attribute{sdp.NewPropertyAttribute("inactive")},
		})
	}
	return answer.Marshal()
}
