package nua

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/arzzra/sofia_sip/pkg/message"
	"github.com/arzzra/sofia_sip/pkg/metrics"
	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

func logger() *slog.Logger {
	return slog.Default().With(slog.String("component", "nua"))
}

// abort завершает процесс после аварии в callback. Управление не должно
// вернуться в движок после такой ошибки.
var abort = abortProcess

// Причины аварии trampoline
const (
	failurePanic          = "panic"
	failureUnknownEvent   = "unknown_event"
	failureAgentMismatch  = "agent_mismatch"
	failureHandleMismatch = "handle_mismatch"
)

// trampoline callback, который регистрируется в движке для каждого
// агента. Движок передает magic агента и handle, по ним объекты
// находятся в реестре.
func trampoline(e native.Engine) native.Callback {
	return func(event, status int32, phrase native.Ptr, nn native.Nua, magic native.Magic,
		nh native.Handle, hmagic native.Magic, sip native.Sip, tags native.Tags) {
		defer func() {
			if r := recover(); r != nil {
				fatal(failurePanic,
					slog.Int("event", int(event)),
					slog.String("panic", fmt.Sprint(r)),
					slog.String("stack", string(debug.Stack())))
			}
		}()

		ev, ok := EventFromCode(event)
		if !ok {
			fatal(failureUnknownEvent, slog.Int("event", int(event)))
			return
		}

		text := e.GoString(phrase)

		n := agents.get(magic)
		if n == nil || n.ptr != nn {
			fatal(failureAgentMismatch,
				slog.String("event", ev.String()),
				slog.Uint64("magic", uint64(magic)),
				slog.Uint64("nua", uint64(nn)))
			return
		}

		var h *Handle
		if hmagic != 0 {
			h = handles.get(hmagic)
			if h == nil || h.ptr != nh || h.nua != n {
				fatal(failureHandleMismatch,
					slog.String("event", ev.String()),
					slog.Uint64("hmagic", uint64(hmagic)),
					slog.Uint64("nh", uint64(nh)))
				return
			}
		}

		view := message.Decode(e, sip)
		params := tag.Decode(e, tags)

		n.dispatch(ev, int(status), text, h, view, params)
	}
}

func fatal(reason string, attrs ...slog.Attr) {
	metrics.Default().TrampolineFailure(reason)
	attrs = append(attrs, slog.String("reason", reason))
	logger().LogAttrs(context.Background(), slog.LevelError, "авария в callback движка, процесс будет остановлен", attrs...)
	abort()
}
