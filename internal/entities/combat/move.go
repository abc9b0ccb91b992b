package combat

// Move is a pending declaration by one actor to hit a specific target.
// Short-lived: it exists in the store only while unresolved, keyed by
// (actor, target), and carries an absolute deadline.
type Move struct {
	TargetID    string `json:"target_id"`
	AttackZones []Zone `json:"attack_zones"`
	BlockZones  []Zone `json:"block_zones"`
	AbilityKey  string `json:"ability_key,omitempty"`
	// ExecuteAt is the resolution deadline in epoch seconds. Past this the
	// supervisor resolves the pair with a forced passive for the target.
	ExecuteAt int64 `json:"execute_at"`
}

// Expired reports whether the move's deadline is in the past.
func (m *Move) Expired(nowUnix int64) bool {
	return m.ExecuteAt <= nowUnix
}

// PassiveMove builds a synthetic move for a participant who never answered:
// no attack, conservative guard.
func PassiveMove(targetID string, executeAt int64) *Move {
	return &Move{
		TargetID:    targetID,
		AttackZones: nil,
		BlockZones:  []Zone{DefaultBlockPair[0], DefaultBlockPair[1]},
		ExecuteAt:   executeAt,
	}
}
