package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"
	ErrProtoSchema     = "E_PROTO_SCHEMA"

	// Host attachment.
	ErrHostBusy = "E_HOST_BUSY"

	// Command execution, reported back in ACK.
	ErrOutOfRange   = "E_OUT_OF_RANGE"
	ErrUnknownBlock = "E_UNKNOWN_BLOCK"
	ErrNoPlayer     = "E_NO_PLAYER"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrProtoSchema:     {},
	ErrHostBusy:        {},
	ErrOutOfRange:      {},
	ErrUnknownBlock:    {},
	ErrNoPlayer:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
