package combat

import (
	"github.com/reactiveburst/rbc-engine/internal/engine/calculator"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
)

// ResolveExchangeInput pairs two moves for resolution. ForcedPassiveActorID
// names the side whose move is synthetic (never answered); empty for a
// mutual exchange.
type ResolveExchangeInput struct {
	SessionID string
	ActorAID  string
	MoveA     *combat.Move
	ActorBID  string
	MoveB     *combat.Move

	ForcedPassiveActorID string
}

// ResolveExchangeOutput reports both directional results and the victory
// state after the exchange.
type ResolveExchangeOutput struct {
	// ResultAB is A attacking B; ResultBA is B attacking A.
	ResultAB *calculator.Result
	ResultBA *calculator.Result

	ADead bool
	BDead bool

	// Winner is the surviving team tag when the exchange ended the
	// session, empty otherwise.
	Winner string
}

// RegisterMoveInput is a player's declared intent.
type RegisterMoveInput struct {
	SessionID   string
	CharID      string
	TargetID    string
	AttackZones []combat.Zone
	BlockZones  []combat.Zone
	AbilityKey  string
}

// RegisterMoveOutput returns the refreshed dashboard.
type RegisterMoveOutput struct {
	Dashboard *combat.Dashboard
}

// GetDashboardInput identifies the caller's view.
type GetDashboardInput struct {
	SessionID string
	CharID    string
}

// GetDashboardOutput carries the snapshot.
type GetDashboardOutput struct {
	Dashboard *combat.Dashboard
}

// SwitchTargetInput moves a new opponent to the head of the target list.
type SwitchTargetInput struct {
	SessionID   string
	CharID      string
	NewTargetID string
}

// SwitchTargetOutput is an (ok, message) pair; OK false is a recoverable
// resource failure, not an error.
type SwitchTargetOutput struct {
	OK      bool
	Message string
}

// UseConsumableInput spends one belt item.
type UseConsumableInput struct {
	SessionID string
	CharID    string
	ItemID    string
}

// UseConsumableOutput is an (ok, message) pair.
type UseConsumableOutput struct {
	OK      bool
	Message string
}

// GetNextTargetInput asks for the next alive opponent after the current
// head.
type GetNextTargetInput struct {
	SessionID string
	CharID    string
}

// GetNextTargetOutput is nil-Target when no other opponent is alive.
type GetNextTargetOutput struct {
	Target *NextTarget
}

// NextTarget is the minimal preview of an upcoming opponent.
type NextTarget struct {
	CharID    string `json:"char_id"`
	HPCurrent int    `json:"hp_current"`
}

// GetLogsInput pages the session combat log.
type GetLogsInput struct {
	SessionID string
	Limit     int64
}

// GetLogsOutput carries raw JSON log entries, oldest first.
type GetLogsOutput struct {
	Logs []string
}
