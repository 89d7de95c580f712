package nua

import (
	"errors"
	"log/slog"

	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/sofiaerr"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

// ErrHandleDestroyed операция над уничтоженным handle
var ErrHandleDestroyed = errors.New("nua: handle destroyed")

// Handle контекст одной операции или диалога агента (nua_handle_t)
type Handle struct {
	nua   *Nua
	ptr   native.Handle
	magic native.Magic
}

// CreateHandle создает handle. Теги handle (nua::url, sip::to_str и
// т.д.) применяются ко всем его операциям.
func CreateHandle(n *Nua, tags tag.List) (*Handle, error) {
	if n == nil || n.ptr == 0 {
		return nil, sofiaerr.ErrCreateNuaHandle.WithField("reason", "agent is destroyed")
	}

	h := &Handle{nua: n}
	h.magic = handles.put(h)

	wire, err := tags.Encode(n.engine)
	if err != nil {
		handles.remove(h.magic)
		return nil, err
	}
	ptr, err := n.engine.HandleCreate(n.ptr, h.magic, wire.Tags())
	wire.Release()
	if ptr == 0 {
		handles.remove(h.magic)
		n.metrics.HandleCreateFailed()
		cerr := sofiaerr.ErrCreateNuaHandle.WithField("engine", n.engine.Name())
		if err != nil {
			cerr = cerr.WithCause(err)
		}
		return nil, cerr
	}

	h.ptr = ptr
	n.handles[h.magic] = h
	n.metrics.HandleCreated()
	return h, nil
}

// Nua агент handle
func (h *Handle) Nua() *Nua { return h.nua }

// Pointer нативный указатель, 0 после Destroy
func (h *Handle) Pointer() native.Handle { return h.ptr }

// Message отправляет MESSAGE. Ответ придет событием EventReplyMessage.
func (h *Handle) Message(tags tag.List) error {
	return h.call(tags, h.nua.engine.Message)
}

// Invite отправляет INVITE. Ответ придет событием EventReplyInvite.
func (h *Handle) Invite(tags tag.List) error {
	return h.call(tags, h.nua.engine.Invite)
}

func (h *Handle) call(tags tag.List, op func(native.Handle, native.Tags)) error {
	if h.ptr == 0 {
		return ErrHandleDestroyed
	}
	wire, err := tags.Encode(h.nua.engine)
	if err != nil {
		return err
	}
	defer wire.Release()
	op(h.ptr, wire.Tags())
	return nil
}

// Destroy освобождает handle в движке ровно один раз
func (h *Handle) Destroy() {
	if h.ptr == 0 {
		return
	}
	h.nua.engine.HandleDestroy(h.ptr)
	h.ptr = 0
	handles.remove(h.magic)
	delete(h.nua.handles, h.magic)
	h.nua.metrics.HandleDestroyed()
	if h.nua.log != nil {
		h.nua.log.Debug("handle уничтожен", slog.Uint64("hmagic", uint64(h.magic)))
	}
}

// Close то же, что Destroy
func (h *Handle) Close() error {
	h.Destroy()
	return nil
}
