// Package account provides the repository over the persistent player
// keyspace: account hashes, skill progress, and the player status flag.
// Combat never mutates these directly during a session; they are read at
// session start and written back on finalize.
package account

import (
	"context"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=accountmock github.com/reactiveburst/rbc-engine/internal/repositories/account Repository

// Character is the persistent account record for one playable character.
type Character struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	HPCurrent     int                `json:"hp_current"`
	EnergyCurrent int                `json:"energy_current"`
	// CombatSessionID is non-empty while the character is bound to a
	// running session.
	CombatSessionID string             `json:"combat_session_id,omitempty"`
	Stats           map[string]float64 `json:"stats"`
	Equipment       []combat.Item      `json:"equipment,omitempty"`
	Abilities       []string           `json:"abilities,omitempty"`
	Belt            []combat.BeltItem  `json:"belt,omitempty"`
}

// Repository defines storage operations for persistent character state.
type Repository interface {
	// Save writes the full account record.
	Save(ctx context.Context, c *Character) error

	// Get loads an account record. NotFound when the character does not
	// exist.
	Get(ctx context.Context, charID string) (*Character, error)

	// SaveVitals writes hp_current and energy_current back to the
	// account, the finalize write-back path.
	SaveVitals(ctx context.Context, charID string, hp, energy int) error

	// SetCombatSession binds the character to a running session.
	SetCombatSession(ctx context.Context, charID, sessionID string) error

	// ClearCombatSession unbinds the character after finalize.
	ClearCombatSession(ctx context.Context, charID string) error

	// AddSkillXP increments skill progress counters in one batch.
	AddSkillXP(ctx context.Context, charID string, xp map[string]int) error

	// GetSkills returns the character's skill progress counters.
	GetSkills(ctx context.Context, charID string) (map[string]int, error)

	// SetStatus sets the player status flag, e.g. "combat:{sessionID}"
	// or "arena:queue".
	SetStatus(ctx context.Context, charID, status string) error

	// GetStatus reads the player status flag. Empty string when unset.
	GetStatus(ctx context.Context, charID string) (string, error)

	// ClearStatus removes the player status flag.
	ClearStatus(ctx context.Context, charID string) error
}
