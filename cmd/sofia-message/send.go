package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/arzzra/sofia_sip/pkg/message"
	"github.com/arzzra/sofia_sip/pkg/nua"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

// reply финальный ответ на операцию handle
type reply struct {
	received bool
	status   int
	phrase   string
	sip      message.View
	tags     tag.List
}

// awaitReply обработчик, который запоминает первый финальный ответ
// события want
func awaitReply(want nua.Event, r *reply) nua.EventFunc {
	return func(n *nua.Nua, ev nua.Event, status int, phrase string, h *nua.Handle, sip message.View, tags tag.List) {
		if ev != want || status < 200 || r.received {
			return
		}
		*r = reply{received: true, status: status, phrase: phrase, sip: sip, tags: tags}
	}
}

func newSendCmd(a *app) *cobra.Command {
	var (
		subject     string
		contentType string
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send <sip-url> [text]",
		Short: "Отправить MESSAGE и дождаться ответа",
		Long:  "Отправляет MESSAGE на указанный адрес. Без text тело читается из stdin.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			var body string
			if len(args) == 2 {
				body = args[1]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("чтение stdin: %w", err)
				}
				body = string(data)
			}

			b := tag.NewBuilder()
			for _, t := range []struct {
				fn    func(string) (tag.Tag, error)
				value string
			}{
				{tag.SipSubject, subject},
				{tag.SipContentType, contentType},
				{tag.SipPayloadString, body},
			} {
				if t.value == "" {
					continue
				}
				v, err := t.fn(t.value)
				if err != nil {
					return err
				}
				b = b.Tag(v)
			}

			var r reply
			s, err := openSession(a.cfg, awaitReply(nua.EventReplyMessage, &r))
			if err != nil {
				return err
			}
			defer s.close()

			to, err := tag.SipTo(args[0])
			if err != nil {
				return err
			}
			h, err := nua.CreateHandle(s.agent, tag.Of(to))
			if err != nil {
				return err
			}
			defer h.Destroy()

			if err := h.Message(b.Collect()); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := s.pumpUntil(ctx, func() bool { return r.received }); err != nil {
				return fmt.Errorf("ответ на MESSAGE не получен: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", r.status, r.phrase)
			if r.status >= 300 {
				return fmt.Errorf("MESSAGE отклонен: %d %s", r.status, r.phrase)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "заголовок Subject")
	cmd.Flags().StringVar(&contentType, "content-type", "text/plain", "заголовок Content-Type")
	cmd.Flags().DurationVar(&timeout, "timeout", 40*time.Second, "сколько ждать ответа")
	return cmd
}
