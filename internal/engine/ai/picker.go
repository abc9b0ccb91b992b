// Package ai decides moves for AI-driven participants: target, ability,
// attack zone, and block pair.
package ai

import (
	"github.com/reactiveburst/rbc-engine/internal/engine/abilities"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
)

// RNG is the picker's random source. *rand.Rand implements it.
type RNG interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Picker synthesizes moves for AI actors.
type Picker struct {
	rng       RNG
	abilities *abilities.Registry
}

// New creates a picker over the given random source and ability registry.
func New(rng RNG, reg *abilities.Registry) *Picker {
	return &Picker{rng: rng, abilities: reg}
}

// PickMove chooses a target, ability, attack zone, and block pair for the
// actor. Threats are enemy ids with an outstanding intent against the
// actor; one of them is preferred as the target. Returns nil when no enemy
// is alive.
func (p *Picker) PickMove(
	self *combat.Participant,
	enemies []*combat.Participant,
	threats map[string]bool,
	executeAt int64,
) *combat.Move {
	target := p.pickTarget(enemies, threats)
	if target == nil {
		return nil
	}

	move := &combat.Move{
		TargetID:  target.ID,
		ExecuteAt: executeAt,
	}

	// First usable ability from a shuffled list; plain attack when none
	// passes its precondition.
	keys := make([]string, len(self.Abilities))
	copy(keys, self.Abilities)
	p.rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	for _, key := range keys {
		if p.abilities.CanUse(key, self) {
			move.AbilityKey = key
			break
		}
	}

	move.AttackZones = []combat.Zone{combat.AllZones[p.rng.Intn(len(combat.AllZones))]}

	pair := combat.BlockPairs[p.rng.Intn(len(combat.BlockPairs))]
	move.BlockZones = []combat.Zone{pair[0], pair[1]}

	return move
}

// pickTarget prefers an alive threat; otherwise a uniform-random alive
// enemy.
func (p *Picker) pickTarget(enemies []*combat.Participant, threats map[string]bool) *combat.Participant {
	alive := make([]*combat.Participant, 0, len(enemies))
	hostile := make([]*combat.Participant, 0, len(enemies))
	for _, e := range enemies {
		if !e.Alive() {
			continue
		}
		alive = append(alive, e)
		if threats[e.ID] {
			hostile = append(hostile, e)
		}
	}

	if len(hostile) > 0 {
		return hostile[p.rng.Intn(len(hostile))]
	}
	if len(alive) > 0 {
		return alive[p.rng.Intn(len(alive))]
	}
	return nil
}
