package gonua

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"
	"golang.org/x/sys/unix"

	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

// agent аналог nua_t. Все поля, кроме closing, читаются и изменяются
// только на потоке реактора.
type agent struct {
	e     *Engine
	id    native.Nua
	rt    *root
	cb    native.Callback
	magic native.Magic
	log   *slog.Logger

	conn   net.PacketConn
	ua     *sipgo.UserAgent
	srv    *sipgo.Server
	client *sipgo.Client
	ctx    context.Context
	cancel context.CancelFunc

	contact sip.Uri
	display string
	userSDP string

	handles map[native.Handle]*handle
	dialogs map[string]*handle // входящие диалоги по Call-ID
	timers  map[*timer]struct{}

	closing   atomic.Bool
	closed    bool
	destroyed bool
}

func (e *Engine) agent(n native.Nua) *agent {
	return lookup[*agent](e.arena, uintptr(n))
}

// NuaCreate аналог nua_create. Ошибка привязки сокета возвращается как
// errno (EADDRINUSE для занятого адреса) вместе с нулевым указателем.
func (e *Engine) NuaCreate(rp native.Root, cb native.Callback, magic native.Magic, tags native.Tags) (native.Nua, error) {
	r := e.root(rp)
	if r == nil || cb == nil {
		return 0, unix.EINVAL
	}
	params := e.params(tags)

	host, port := "127.0.0.1", 0
	if url, ok := params.Lookup(tag.KindNuURL); ok {
		h, p, err := bindAddress(url)
		if err != nil {
			e.logger.Error("некорректный адрес агента", slog.String("url", url), slog.Any("error", err))
			return 0, unix.EINVAL
		}
		host, port = h, p
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		if errors.Is(err, unix.EADDRINUSE) {
			e.logger.Warn("адрес уже используется", slog.String("addr", addr))
			return 0, unix.EADDRINUSE
		}
		e.logger.Error("не удалось открыть UDP сокет", slog.String("addr", addr), slog.Any("error", err))
		return 0, err
	}

	a := &agent{
		e:       e,
		rt:      r,
		cb:      cb,
		magic:   magic,
		conn:    conn,
		handles: make(map[native.Handle]*handle),
		dialogs: make(map[string]*handle),
		timers:  make(map[*timer]struct{}),
	}
	if err := a.start(params); err != nil {
		conn.Close()
		e.logger.Error("не удалось запустить SIP стек", slog.Any("error", err))
		return 0, err
	}
	a.id = native.Nua(e.arena.put(a))
	a.log = e.logger.With(slog.String("agent", a.contact.String()))
	a.log.Debug("агент создан")
	return a.id, nil
}

func (a *agent) start(params tag.List) error {
	host, port := advertisedHost(a.conn.LocalAddr())

	ua, err := sipgo.NewUA(sipgo.WithUserAgent(UserAgent), sipgo.WithUserAgentHostname(host))
	if err != nil {
		return err
	}
	srv, err := sipgo.NewServer(ua)
	if err != nil {
		ua.Close()
		return err
	}
	client, err := sipgo.NewClient(ua, sipgo.WithClientHostname(host))
	if err != nil {
		srv.Close()
		ua.Close()
		return err
	}
	a.ua, a.srv, a.client = ua, srv, client
	a.ctx, a.cancel = context.WithCancel(context.Background())

	user, _ := params.Lookup(tag.KindNuMUsername)
	a.contact = sip.Uri{User: user, Host: host, Port: port}
	a.display, _ = params.Lookup(tag.KindNuMDisplay)
	a.userSDP, _ = params.Lookup(tag.KindSoaUserSdpStr)

	srv.OnMessage(a.onMessage)
	srv.OnInvite(a.onInvite)
	srv.OnAck(a.onAck)
	srv.OnBye(a.onBye)
	srv.OnCancel(a.onCancel)
	srv.OnOptions(a.onOptions)

	go func() {
		if err := srv.ServeUDP(a.conn); err != nil && !a.closing.Load() {
			a.e.logger.Error("UDP сервер остановлен", slog.Any("error", err))
		}
	}()
	return nil
}

// NuaShutdown аналог nua_shutdown: r_shutdown 100 сразу, 200 на
// следующем шаге реактора после закрытия сокетов
func (e *Engine) NuaShutdown(n native.Nua) {
	a := e.agent(n)
	if a == nil {
		return
	}
	a.rt.schedule(func() {
		if a.destroyed {
			return
		}
		a.deliver(evRShutdown, 100, "Shutdown started", nil, nil, tag.List{})
		a.close()
		a.rt.schedule(func() {
			a.deliver(evRShutdown, 200, "Shutdown successful", nil, nil, tag.List{})
		})
	})
}

// NuaDestroy аналог nua_destroy
func (e *Engine) NuaDestroy(n native.Nua) {
	a := e.agent(n)
	if a == nil {
		return
	}
	a.close()
	a.destroyed = true
	for id := range a.handles {
		e.arena.free(uintptr(id))
	}
	a.handles = nil
	a.dialogs = nil
	e.arena.free(uintptr(n))
	a.log.Debug("агент уничтожен")
}

func (a *agent) close() {
	if a.closed {
		return
	}
	a.closed = true
	a.closing.Store(true)
	a.cancel()
	for t := range a.timers {
		a.rt.cancelTimer(t)
	}
	a.timers = make(map[*timer]struct{})

	if err := a.client.Close(); err != nil {
		a.log.Debug("ошибка закрытия клиента", slog.Any("error", err))
	}
	if err := a.srv.Close(); err != nil {
		a.log.Debug("ошибка закрытия сервера", slog.Any("error", err))
	}
	if err := a.ua.Close(); err != nil {
		a.log.Debug("ошибка закрытия UA", slog.Any("error", err))
	}
	_ = a.conn.Close()
}

// deliver вызывает callback агента. Память снимка живет до возврата.
func (a *agent) deliver(ev int32, status int, phrase string, h *handle, msg message, tags tag.List) {
	if a.destroyed {
		return
	}
	sc := a.e.newScratch()
	defer sc.release()

	var nh native.Handle
	var hmagic native.Magic
	if h != nil {
		nh, hmagic = h.id, h.magic
	}
	a.cb(ev, int32(status), native.Ptr(sc.cstring(phrase)), a.id, a.magic,
		nh, hmagic, sc.snapshot(msg), sc.tags(tags))
}

// respond отправляет ответ из сетевой горутины sipgo
func (a *agent) respond(req *sip.Request, tx sip.ServerTransaction, res *sip.Response) {
	if err := tx.Respond(res); err != nil {
		a.e.logger.Error("не удалось отправить ответ",
			slog.Any("error", err),
			slog.String("method", req.Method.String()),
			slog.Int("status", int(res.StatusCode)))
	}
}

// incoming передает входящий запрос на поток реактора
func (a *agent) incoming(req *sip.Request, fn func(h *handle)) {
	a.rt.post(func() {
		if a.closed || a.destroyed {
			return
		}
		fn(a.serverHandle(req))
	})
}

func (a *agent) onMessage(req *sip.Request, tx sip.ServerTransaction) {
	a.incoming(req, func(h *handle) {
		a.deliver(evIMessage, 200, "OK", h, req, tag.List{})
		a.releaseHandle(h)
	})
	a.respond(req, tx, sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil))
}

func (a *agent) onInvite(req *sip.Request, tx sip.ServerTransaction) {
	var body []byte
	offer := req.Body()
	if len(offer) > 0 {
		answer, err := answerSDP(offer, a.userSDP, a.contact.Host)
		if err != nil {
			a.e.logger.Warn("отклонено SDP предложение", slog.Any("error", err))
			a.respond(req, tx, sip.NewResponseFromRequest(req, 488, "Not Acceptable Here", nil))
			return
		}
		body = answer
	} else if a.userSDP != "" {
		var err error
		if body, err = completeSDP(a.userSDP, a.contact.Host); err != nil {
			a.e.logger.Error("некорректное собственное SDP", slog.Any("error", err))
		}
	}

	var remote tag.List
	if len(offer) > 0 {
		if t, err := tag.SoaRemoteSdpStr(string(offer)); err == nil {
			remote = tag.Of(t)
		}
	}
	a.incoming(req, func(h *handle) {
		a.deliver(evIInvite, 100, "Trying", h, req, remote)
	})

	res := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
	if to := res.To(); to != nil {
		if to.Params == nil {
			to.Params = sip.HeaderParams{}
		}
		if _, ok := to.Params["tag"]; !ok {
			to.Params["tag"] = newTag()
		}
	}
	res.AppendHeader(&sip.ContactHeader{Address: a.contact})
	if len(body) > 0 {
		ct := sip.ContentTypeHeader("application/sdp")
		res.AppendHeader(&ct)
		res.SetBody(body)
	}
	a.respond(req, tx, res)
}

func (a *agent) onAck(req *sip.Request, tx sip.ServerTransaction) {
	a.rt.post(func() {
		if a.closed || a.destroyed {
			return
		}
		h, ok := a.dialogs[callID(req)]
		if !ok {
			return
		}
		a.deliver(evIAck, 200, "OK", h, req, tag.List{})
		a.deliver(evIActive, 200, "Call active", h, nil, tag.List{})
	})
}

func (a *agent) onBye(req *sip.Request, tx sip.ServerTransaction) {
	a.rt.post(func() {
		if a.closed || a.destroyed {
			return
		}
		h, ok := a.dialogs[callID(req)]
		if !ok {
			return
		}
		a.deliver(evIBye, 200, "OK", h, req, tag.List{})
		a.deliver(evITerminated, 200, "Terminated", h, nil, tag.List{})
		a.releaseHandle(h)
	})
	a.respond(req, tx, sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil))
}

func (a *agent) onCancel(req *sip.Request, tx sip.ServerTransaction) {
	a.rt.post(func() {
		if a.closed || a.destroyed {
			return
		}
		if h, ok := a.dialogs[callID(req)]; ok {
			a.deliver(evICancel, 200, "OK", h, req, tag.List{})
		}
	})
	a.respond(req, tx, sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil))
}

func (a *agent) onOptions(req *sip.Request, tx sip.ServerTransaction) {
	a.incoming(req, func(h *handle) {
		a.deliver(evIOptions, 200, "OK", h, req, tag.List{})
		a.releaseHandle(h)
	})
	res := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
	res.AppendHeader(sip.NewHeader("Allow", "INVITE, ACK, BYE, CANCEL, OPTIONS, MESSAGE"))
	a.respond(req, tx, res)
}

func callID(req *sip.Request) string {
	if c := req.CallID(); c != nil {
		return c.Value()
	}
	return ""
}
