package wire

// Opcode identifies the semantic meaning of a frame. It is always the first
// integer in the frame body; the remaining elements are opcode-specific
// arguments.
type Opcode uint64

const (
	// OpPass is a client-origin explicit no-op turn.
	OpPass Opcode = 0
	// OpYouAre assigns the connection's player ID (server to client).
	OpYouAre Opcode = 1
	// OpTurn carries a turn progression notice (server to client).
	OpTurn Opcode = 2
	// OpMoveTo is a movement intent from the client (x, y) or a movement
	// broadcast from the server (playerID, x, y).
	OpMoveTo Opcode = 3
	// OpPlayerJoin announces an existing player to a newly joined client
	// (id, turn, colorHint).
	OpPlayerJoin Opcode = 4
	// OpPlayerLeave announces a departed player (id). Only emitted when
	// departure announcements are enabled.
	OpPlayerLeave Opcode = 5
	// OpLevelInfo carries the world seed sent on join.
	OpLevelInfo Opcode = 6
	// OpPlaceTile is reserved and not handled by this server.
	OpPlaceTile Opcode = 7
)

// String returns the opcode's protocol name.
func (o Opcode) String() string {
	switch o {
	case OpPass:
		return "Pass"
	case OpYouAre:
		return "YouAre"
	case OpTurn:
		return "Turn"
	case OpMoveTo:
		return "MoveTo"
	case OpPlayerJoin:
		return "PlayerJoin"
	case OpPlayerLeave:
		return "PlayerLeave"
	case OpLevelInfo:
		return "LevelInfo"
	case OpPlaceTile:
		return "PlaceTile"
	default:
		return "Unknown"
	}
}
