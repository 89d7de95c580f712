package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arzzra/sofia_sip/pkg/message"
	"github.com/arzzra/sofia_sip/pkg/nua"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

func newInviteCmd(a *app) *cobra.Command {
	var (
		sdp     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "invite <sip-url>",
		Short: "Отправить INVITE с SDP предложением и вывести ответ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			var r reply
			s, err := openSession(a.cfg, awaitReply(nua.EventReplyInvite, &r))
			if err != nil {
				return err
			}
			defer s.close()

			to, err := tag.SipTo(args[0])
			if err != nil {
				return err
			}
			offer, err := tag.SoaUserSdpStr(sdp)
			if err != nil {
				return err
			}
			h, err := nua.CreateHandle(s.agent, tag.Of(to))
			if err != nil {
				return err
			}
			// Destroy установленного вызова отправляет BYE
			defer h.Destroy()

			if err := h.Invite(tag.Of(offer)); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := s.pumpUntil(ctx, func() bool { return r.received }); err != nil {
				return fmt.Errorf("ответ на INVITE не получен: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d %s\n", r.status, r.phrase)
			if body, ok := r.sip.Payload(); ok && body.Len() > 0 {
				if err := printMedia(out, body); err != nil {
					return fmt.Errorf("SDP ответа: %w", err)
				}
			}
			if r.status >= 300 {
				return fmt.Errorf("INVITE отклонен: %d %s", r.status, r.phrase)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sdp, "sdp", "m=audio 5004 RTP/AVP 0 8", "SDP предложение, заголовок сессии добавляется автоматически")
	cmd.Flags().DurationVar(&timeout, "timeout", 40*time.Second, "сколько ждать финального ответа")
	return cmd
}

// printMedia выводит строки m= и направление каждого потока из SDP ответа
func printMedia(w io.Writer, body message.Payload) error {
	desc, err := body.SDP()
	if err != nil {
		return err
	}
	for _, md := range desc.MediaDescriptions {
		name := md.MediaName
		fmt.Fprintf(w, "m=%s %d %s %s\n", name.Media, name.Port.Value,
			strings.Join(name.Protos, "/"), strings.Join(name.Formats, " "))
		for _, attr := range md.Attributes {
			switch attr.Key {
			case "sendrecv", "sendonly", "recvonly", "inactive":
				fmt.Fprintf(w, "a=%s\n", attr.Key)
			}
		}
	}
	return nil
}
