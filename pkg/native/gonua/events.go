package gonua

// Коды nua_event_e, которые порождает движок
const (
	evIError      int32 = 0
	evIInvite     int32 = 1
	evICancel     int32 = 2
	evIAck        int32 = 3
	evIActive     int32 = 5
	evITerminated int32 = 6
	evIBye        int32 = 9
	evIOptions    int32 = 10
	evIMessage    int32 = 16
	evRShutdown   int32 = 25
	evRInvite     int32 = 31
	evRMessage    int32 = 41
)

// Внутренние коды ошибок движка (900-й диапазон, как в nua)
const (
	statusInternalError = 900
	phraseNoDestination = "Internal error: no destination"
)
