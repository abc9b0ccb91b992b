package ai_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactiveburst/rbc-engine/internal/engine/abilities"
	"github.com/reactiveburst/rbc-engine/internal/engine/ai"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
)

func enemy(id string, hp int) *combat.Participant {
	return &combat.Participant{
		ID:    id,
		State: combat.FighterState{HPCurrent: hp, HPMax: 100},
	}
}

func newPicker(seed int64) *ai.Picker {
	return ai.New(rand.New(rand.NewSource(seed)), abilities.NewRegistry())
}

func TestPickMovePrefersThreat(t *testing.T) {
	self := enemy("mob_1", 100)
	enemies := []*combat.Participant{enemy("a", 100), enemy("b", 100), enemy("c", 100)}
	threats := map[string]bool{"b": true}

	for seed := int64(0); seed < 20; seed++ {
		move := newPicker(seed).PickMove(self, enemies, threats, 1000)
		require.NotNil(t, move)
		assert.Equal(t, "b", move.TargetID)
	}
}

func TestPickMoveSkipsDead(t *testing.T) {
	self := enemy("mob_1", 100)
	enemies := []*combat.Participant{enemy("a", 0), enemy("b", 100)}

	for seed := int64(0); seed < 20; seed++ {
		move := newPicker(seed).PickMove(self, enemies, nil, 1000)
		require.NotNil(t, move)
		assert.Equal(t, "b", move.TargetID)
	}
}

func TestPickMoveNoAliveEnemies(t *testing.T) {
	self := enemy("mob_1", 100)
	assert.Nil(t, newPicker(1).PickMove(self, []*combat.Participant{enemy("a", 0)}, nil, 1000))
}

func TestPickMoveShape(t *testing.T) {
	self := enemy("mob_1", 100)
	self.State.EnergyCurrent = 50
	self.Abilities = []string{"power_strike", "feint"}

	move := newPicker(7).PickMove(self, []*combat.Participant{enemy("a", 100)}, nil, 1234)
	require.NotNil(t, move)

	assert.Equal(t, int64(1234), move.ExecuteAt)
	require.Len(t, move.AttackZones, 1)
	assert.True(t, combat.IsValidZone(move.AttackZones[0]))
	assert.True(t, combat.IsValidBlockPair(move.BlockZones))
	assert.Contains(t, []string{"power_strike", "feint"}, move.AbilityKey)
}

func TestPickMoveNoUsableAbility(t *testing.T) {
	self := enemy("mob_1", 100)
	self.Abilities = []string{"power_strike"} // costs 10 energy, none available

	move := newPicker(3).PickMove(self, []*combat.Participant{enemy("a", 100)}, nil, 1000)
	require.NotNil(t, move)
	assert.Empty(t, move.AbilityKey)
}
