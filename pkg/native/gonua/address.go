package gonua

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/emiago/sipgo/sip"
)

const defaultSIPPort = 5060

// bindAddress разбирает nua::url в адрес для net.ListenPacket.
// "*" вместо хоста означает все интерфейсы, порт 0 - любой свободный,
// отсутствующий порт - 5060.
func bindAddress(url string) (host string, port int, err error) {
	rest := url
	for _, scheme := range []string{"sips:", "sip:"} {
		if strings.HasPrefix(strings.ToLower(rest), scheme) {
			rest = rest[len(scheme):]
			break
		}
	}
	if i := strings.IndexAny(rest, ";?"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndexByte(rest, '@'); i >= 0 {
		rest = rest[i+1:]
	}
	if rest == "" {
		return "", 0, fmt.Errorf("пустой адрес в %q", url)
	}

	host, port = rest, defaultSIPPort
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", 0, fmt.Errorf("некорректный IPv6 адрес в %q", url)
		}
		host = rest[1:end]
		rest = rest[end+1:]
		if strings.HasPrefix(rest, ":") {
			if port, err = strconv.Atoi(rest[1:]); err != nil {
				return "", 0, fmt.Errorf("некорректный порт в %q: %w", url, err)
			}
		}
	} else if i := strings.LastIndexByte(rest, ':'); i >= 0 {
		host = rest[:i]
		if port, err = strconv.Atoi(rest[i+1:]); err != nil {
			return "", 0, fmt.Errorf("некорректный порт в %q: %w", url, err)
		}
	}
	if host == "*" {
		host = "0.0.0.0"
	}
	if port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("порт вне диапазона в %q", url)
	}
	return host, port, nil
}

// advertisedHost адрес для Contact и SDP
func advertisedHost(addr net.Addr) (string, int) {
	udp, ok := addr.(*net.UDPAddr)
	if !ok {
		return "127.0.0.1", 0
	}
	host := udp.IP.String()
	if udp.IP.IsUnspecified() {
		host = "127.0.0.1"
	}
	return host, udp.Port
}

// parseNameAddr разбирает значение вида `"Bob" <sip:bob@host>`,
// `<sip:bob@host>` или `sip:bob@host`
func parseNameAddr(s string) (display string, uri sip.Uri, err error) {
	s = strings.TrimSpace(s)
	addr := s
	if lt := strings.IndexByte(s, '<'); lt >= 0 {
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			return "", uri, fmt.Errorf("нет закрывающей '>' в %q", s)
		}
		display = strings.Trim(strings.TrimSpace(s[:lt]), `"`)
		addr = s[lt+1 : lt+gt]
	} else if i := strings.IndexByte(s, ';'); i >= 0 {
		addr = s[:i]
	}
	if err := sip.ParseUri(addr, &uri); err != nil {
		return "", uri, fmt.Errorf("некорректный адрес %q: %w", s, err)
	}
	return display, uri, nil
}
