package matchmaking

import "github.com/reactiveburst/rbc-engine/internal/entities/combat"

// JoinQueueInput enrols a character in the arena queue for a mode.
type JoinQueueInput struct {
	CharID string
	Mode   combat.Mode
}

// JoinQueueOutput reports the rating the character was queued with.
type JoinQueueOutput struct {
	GS float64
}

// CheckAndMatchInput polls for an opponent. Attempt indexes the widening
// rating band, starting at 1.
type CheckAndMatchInput struct {
	CharID  string
	Attempt int
}

// CheckAndMatchOutput reports the created battle when a match was made.
// Shadow marks a battle against an AI fallback opponent; OpponentID is
// then the dummy's generated ID.
type CheckAndMatchOutput struct {
	Matched    bool
	Shadow     bool
	SessionID  string
	OpponentID string
}

// CancelQueueInput withdraws a character from the queue.
type CancelQueueInput struct {
	CharID string
}

// CancelQueueOutput is empty.
type CancelQueueOutput struct{}

// CreateShadowBattleInput asks for an AI fallback opponent after waiting
// too long.
type CreateShadowBattleInput struct {
	CharID string
}

// CreateShadowBattleOutput reports the created solo battle. Created is
// false when the matchmaking timeout has not elapsed yet.
type CreateShadowBattleOutput struct {
	Created   bool
	SessionID string
}
