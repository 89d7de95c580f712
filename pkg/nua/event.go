package nua

import "strconv"

// Event событие движка. Значения совпадают с кодами nua_event_e.
type Event int32

const (
	EventIncomingError Event = iota
	EventIncomingInvite
	EventIncomingCancel
	EventIncomingAck
	EventIncomingFork
	EventIncomingActive
	EventIncomingTerminated
	EventIncomingState
	EventIncomingOutbound
	EventIncomingBye
	EventIncomingOptions
	EventIncomingRefer
	EventIncomingPublish
	EventIncomingPrack
	EventIncomingInfo
	EventIncomingUpdate
	EventIncomingMessage
	EventIncomingChat
	EventIncomingSubscribe
	EventIncomingSubscription
	EventIncomingNotify
	EventIncomingMethod
	EventIncomingMediaError
	EventReplySetParams
	EventReplyGetParams
	EventReplyShutdown
	EventReplyNotifier
	EventReplyTerminate
	EventReplyAuthorize
	EventReplyRegister
	EventReplyUnregister
	EventReplyInvite
	EventReplyCancel
	EventReplyBye
	EventReplyOptions
	EventReplyRefer
	EventReplyPublish
	EventReplyUnpublish
	EventReplyInfo
	EventReplyPrack
	EventReplyUpdate
	EventReplyMessage
	EventReplyChat
	EventReplySubscribe
	EventReplyUnsubscribe
	EventReplyNotify
	EventReplyMethod
	EventReplyAuthenticate
	EventReplyRedirect
	EventReplyDestroy
	EventReplyRespond
	EventReplyNitRespond
	EventReplyAck
	EventIncomingNetworkChanged
	EventIncomingRegister

	eventCount
)

var eventNames = [eventCount]string{
	"nua_i_error",
	"nua_i_invite",
	"nua_i_cancel",
	"nua_i_ack",
	"nua_i_fork",
	"nua_i_active",
	"nua_i_terminated",
	"nua_i_state",
	"nua_i_outbound",
	"nua_i_bye",
	"nua_i_options",
	"nua_i_refer",
	"nua_i_publish",
	"nua_i_prack",
	"nua_i_info",
	"nua_i_update",
	"nua_i_message",
	"nua_i_chat",
	"nua_i_subscribe",
	"nua_i_subscription",
	"nua_i_notify",
	"nua_i_method",
	"nua_i_media_error",
	"nua_r_set_params",
	"nua_r_get_params",
	"nua_r_shutdown",
	"nua_r_notifier",
	"nua_r_terminate",
	"nua_r_authorize",
	"nua_r_register",
	"nua_r_unregister",
	"nua_r_invite",
	"nua_r_cancel",
	"nua_r_bye",
	"nua_r_options",
	"nua_r_refer",
	"nua_r_publish",
	"nua_r_unpublish",
	"nua_r_info",
	"nua_r_prack",
	"nua_r_update",
	"nua_r_message",
	"nua_r_chat",
	"nua_r_subscribe",
	"nua_r_unsubscribe",
	"nua_r_notify",
	"nua_r_method",
	"nua_r_authenticate",
	"nua_r_redirect",
	"nua_r_destroy",
	"nua_r_respond",
	"nua_r_nit_respond",
	"nua_r_ack",
	"nua_i_network_changed",
	"nua_i_register",
}

// EventFromCode декодирует код nua_event_e. false для кодов, которых
// эта версия привязки не знает.
func EventFromCode(code int32) (Event, bool) {
	if code < 0 || code >= int32(eventCount) {
		return 0, false
	}
	return Event(code), true
}

// IsValid проверяет, что значение входит в перечисление
func (e Event) IsValid() bool {
	return e >= 0 && e < eventCount
}

// String имя события как в sofia-sip
func (e Event) String() string {
	if !e.IsValid() {
		return "nua_event(" + strconv.Itoa(int(e)) + ")"
	}
	return eventNames[e]
}

// IsIncoming входящий запрос или индикация (nua_i_*)
func (e Event) IsIncoming() bool {
	return e.IsValid() && eventNames[e][4] == 'i'
}

// IsReply ответ на операцию приложения (nua_r_*)
func (e Event) IsReply() bool {
	return e.IsValid() && eventNames[e][4] == 'r'
}
