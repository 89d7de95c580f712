package gonua

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

// transactionTimeout таймер B/F: 64*T1
const transactionTimeout = 32 * time.Second

var (
	errNoDestination         = errors.New("не указан адресат")
	errTransactionTerminated = errors.New("транзакция завершена без ответа")
)

// handle аналог nua_handle_t
type handle struct {
	id     native.Handle
	a      *agent
	magic  native.Magic
	params tag.List

	callID  string
	fromTag string
	cseq    uint32

	incoming  bool
	destroyed bool

	invite   *sip.Request
	remoteTo *sip.ToHeader
}

func (e *Engine) handle(p native.Handle) *handle {
	return lookup[*handle](e.arena, uintptr(p))
}

func (a *agent) newHandle(magic native.Magic, params tag.List) *handle {
	h := &handle{
		a:       a,
		magic:   magic,
		params:  params,
		callID:  uuid.NewString(),
		fromTag: newTag(),
	}
	h.id = native.Handle(a.e.arena.put(h))
	a.handles[h.id] = h
	return h
}

// serverHandle handle входящего запроса: существующий диалог по Call-ID
// или новый handle без контекста приложения
func (a *agent) serverHandle(req *sip.Request) *handle {
	id := callID(req)
	if h, ok := a.dialogs[id]; ok {
		return h
	}
	h := a.newHandle(0, tag.List{})
	h.callID = id
	h.incoming = true
	a.dialogs[id] = h
	return h
}

func (a *agent) releaseHandle(h *handle) {
	if h.destroyed {
		return
	}
	h.destroyed = true
	if a.handles != nil {
		delete(a.handles, h.id)
	}
	if h.incoming && a.dialogs != nil && a.dialogs[h.callID] == h {
		delete(a.dialogs, h.callID)
	}
	a.e.arena.free(uintptr(h.id))
}

func newTag() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// HandleCreate аналог nua_handle
func (e *Engine) HandleCreate(n native.Nua, magic native.Magic, tags native.Tags) (native.Handle, error) {
	a := e.agent(n)
	if a == nil || a.destroyed {
		return 0, unix.EINVAL
	}
	if a.closed {
		return 0, unix.ESHUTDOWN
	}
	return a.newHandle(magic, e.params(tags)).id, nil
}

// HandleDestroy аналог nua_handle_destroy. Для установленного вызова
// отправляется BYE без ожидания ответа.
func (e *Engine) HandleDestroy(p native.Handle) {
	h := e.handle(p)
	if h == nil {
		return
	}
	if h.remoteTo != nil && !h.a.closed {
		h.bye()
	}
	h.a.releaseHandle(h)
}

// Message аналог nua_message
func (e *Engine) Message(p native.Handle, tags native.Tags) {
	h := e.handle(p)
	if h == nil {
		return
	}
	params := h.params.Append(e.params(tags))
	req, err := h.request(sip.MESSAGE, params)
	if err != nil {
		h.fail(evRMessage, err)
		return
	}
	if body, ok := params.Lookup(tag.KindSipPayloadString); ok {
		req.SetBody([]byte(body))
	}
	h.a.send(h, req, evRMessage, func(res *sip.Response) {
		h.a.deliver(evRMessage, int(res.StatusCode), res.Reason, h, res, tag.List{})
	})
}

// Invite аналог nua_invite. Предложение берется из soa::user_sdp_str.
func (e *Engine) Invite(p native.Handle, tags native.Tags) {
	h := e.handle(p)
	if h == nil {
		return
	}
	params := h.params.Append(e.params(tags))
	req, err := h.request(sip.INVITE, params)
	if err != nil {
		h.fail(evRInvite, err)
		return
	}
	if user, ok := params.Lookup(tag.KindSoaUserSdpStr); ok {
		offer, err := completeSDP(user, h.a.contact.Host)
		if err != nil {
			h.fail(evRInvite, err)
			return
		}
		if _, ok := params.Lookup(tag.KindSipContentType); !ok {
			ct := sip.ContentTypeHeader("application/sdp")
			req.AppendHeader(&ct)
		}
		req.SetBody(offer)
	}
	h.invite = req

	h.a.send(h, req, evRInvite, func(res *sip.Response) {
		var remote tag.List
		if body := res.Body(); len(body) > 0 {
			if t, err := tag.SoaRemoteSdpStr(string(body)); err == nil {
				remote = tag.Of(t)
			}
		}
		status := int(res.StatusCode)
		if status >= 200 && status < 300 {
			h.remoteTo = res.To()
			h.ack()
		}
		h.a.deliver(evRInvite, status, res.Reason, h, res, remote)
		if status >= 200 && status < 300 && !h.destroyed {
			h.a.deliver(evIActive, 200, "Call active", h, nil, tag.List{})
		}
	})
}

// fail сообщает о локальной ошибке запроса на следующем шаге реактора
func (h *handle) fail(ev int32, err error) {
	phrase := "Internal error: " + err.Error()
	if errors.Is(err, errNoDestination) {
		phrase = phraseNoDestination
	}
	h.a.rt.schedule(func() {
		if !h.destroyed {
			h.a.deliver(ev, statusInternalError, phrase, h, nil, tag.List{})
		}
	})
}

// request собирает запрос из тегов handle и операции. nua::url задает
// Request-URI, sip::to_str заголовок To; если одного нет, используется
// другой.
func (h *handle) request(method sip.RequestMethod, params tag.List) (*sip.Request, error) {
	toValue, hasTo := params.Lookup(tag.KindSipTo)
	target, hasURL := params.Lookup(tag.KindNuURL)
	if !hasTo && !hasURL {
		return nil, errNoDestination
	}

	var (
		toDisplay string
		toURI     sip.Uri
		recipient sip.Uri
		err       error
	)
	if hasTo {
		if toDisplay, toURI, err = parseNameAddr(toValue); err != nil {
			return nil, err
		}
		recipient = toURI
	}
	if hasURL {
		if _, recipient, err = parseNameAddr(target); err != nil {
			return nil, err
		}
		if !hasTo {
			toURI = recipient
		}
	}

	fromDisplay, fromURI := h.a.display, h.a.contact
	if from, ok := params.Lookup(tag.KindSipFrom); ok {
		if fromDisplay, fromURI, err = parseNameAddr(from); err != nil {
			return nil, err
		}
	}

	req := sip.NewRequest(method, recipient)
	req.AppendHeader(&sip.FromHeader{
		DisplayName: fromDisplay,
		Address:     fromURI,
		Params:      sip.HeaderParams{"tag": h.fromTag},
	})
	req.AppendHeader(&sip.ToHeader{
		DisplayName: toDisplay,
		Address:     toURI,
		Params:      sip.HeaderParams{},
	})
	callID := sip.CallIDHeader(h.callID)
	req.AppendHeader(&callID)
	h.cseq++
	req.AppendHeader(&sip.CSeqHeader{SeqNo: h.cseq, MethodName: method})
	maxForwards := sip.MaxForwardsHeader(70)
	req.AppendHeader(&maxForwards)
	req.AppendHeader(&sip.ContactHeader{Address: h.a.contact})

	if subject, ok := params.Lookup(tag.KindSipSubject); ok {
		req.AppendHeader(sip.NewHeader("Subject", subject))
	}
	if v, ok := params.Lookup(tag.KindSipContentType); ok {
		ct := sip.ContentTypeHeader(v)
		req.AppendHeader(&ct)
	}
	return req, nil
}

// ack подтверждает 2xx на INVITE
func (h *handle) ack() {
	if h.a.closed {
		return
	}
	inv := h.invite
	ack := sip.NewRequest(sip.ACK, inv.Recipient)
	ack.AppendHeader(inv.From())
	ack.AppendHeader(h.remoteTo)
	ack.AppendHeader(inv.CallID())
	ack.AppendHeader(&sip.CSeqHeader{SeqNo: inv.CSeq().SeqNo, MethodName: sip.ACK})
	maxForwards := sip.MaxForwardsHeader(70)
	ack.AppendHeader(&maxForwards)

	if err := h.a.client.WriteRequest(ack, sipgo.ClientRequestAddVia); err != nil {
		h.a.log.Error("не удалось отправить ACK", slog.Any("error", err))
	}
}

// bye завершает установленный вызов. Ответ не ожидается: handle
// уничтожается сразу.
func (h *handle) bye() {
	inv := h.invite
	bye := sip.NewRequest(sip.BYE, inv.Recipient)
	bye.AppendHeader(inv.From())
	bye.AppendHeader(h.remoteTo)
	bye.AppendHeader(inv.CallID())
	h.cseq++
	bye.AppendHeader(&sip.CSeqHeader{SeqNo: h.cseq, MethodName: sip.BYE})
	maxForwards := sip.MaxForwardsHeader(70)
	bye.AppendHeader(&maxForwards)

	a := h.a
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, transactionTimeout)
		defer cancel()
		if _, err := a.transact(ctx, bye, func(*sip.Response) {}); err != nil && !a.closing.Load() {
			a.e.logger.Debug("BYE без ответа", slog.Any("error", err))
		}
	}()
}

// send запускает клиентскую транзакцию. Результат (ответ, таймаут или
// ошибка транспорта) доставляется ровно один раз на потоке реактора.
func (a *agent) send(h *handle, req *sip.Request, ev int32, final func(res *sip.Response)) {
	if a.closed {
		h.fail(ev, errors.New("agent is shut down"))
		return
	}

	finished := false
	var tm *timer
	finish := func(res *sip.Response, err error) {
		if finished || a.closed || h.destroyed {
			return
		}
		finished = true
		a.rt.cancelTimer(tm)
		delete(a.timers, tm)
		if err != nil {
			status, phrase := failureStatus(err)
			a.deliver(ev, status, phrase, h, nil, tag.List{})
			return
		}
		final(res)
	}
	tm = a.rt.addTimer(transactionTimeout, func() {
		finish(nil, context.DeadlineExceeded)
	})
	a.timers[tm] = struct{}{}

	ctx, cancel := context.WithTimeout(a.ctx, transactionTimeout)
	go func() {
		defer cancel()
		res, err := a.transact(ctx, req, func(p *sip.Response) {
			a.rt.post(func() {
				if !finished && !a.closed && !h.destroyed {
					a.deliver(ev, int(p.StatusCode), p.Reason, h, p, tag.List{})
				}
			})
		})
		a.rt.post(func() { finish(res, err) })
	}()
}

// transact ждет финальный ответ, промежуточные передает в provisional.
// Вызывается из горутины.
func (a *agent) transact(ctx context.Context, req *sip.Request, provisional func(*sip.Response)) (*sip.Response, error) {
	tx, err := a.client.TransactionRequest(ctx, req, sipgo.ClientRequestAddVia)
	if err != nil {
		return nil, err
	}
	defer tx.Terminate()

	for {
		select {
		case res, ok := <-tx.Responses():
			if !ok || res == nil {
				return nil, errTransactionTerminated
			}
			if res.StatusCode < 200 {
				provisional(res)
				continue
			}
			return res, nil
		case <-tx.Done():
			if err := tx.Err(); err != nil {
				return nil, err
			}
			return nil, errTransactionTerminated
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func failureStatus(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return 408, "Request Timeout"
	case errors.Is(err, context.Canceled):
		return statusInternalError, "Internal error: request canceled"
	default:
		return 503, "Service Unavailable"
	}
}
