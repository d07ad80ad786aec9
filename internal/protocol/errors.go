package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session routing/state.
	ErrSessionBusy  = "E_SESSION_BUSY"
	ErrCombatActive = "E_COMBAT_ACTIVE"
	ErrNotCombat    = "E_NOT_COMBAT"

	// Level/input layer.
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrBadLevel    = "E_BAD_LEVEL"
	ErrUnknownTool = "E_UNKNOWN_TOOL"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrSessionBusy:     {},
	ErrCombatActive:    {},
	ErrNotCombat:       {},
	ErrBadRequest:      {},
	ErrBadLevel:        {},
	ErrUnknownTool:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
