package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reactiveburst/rbc-engine/internal/engine/stats"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/rules"
)

func TestGearScoreFromPools(t *testing.T) {
	agg := stats.Aggregate(&stats.Input{
		Base: map[string]float64{rules.StatEndurance: 10},
	})

	// endurance 10 -> hp_max 100 -> 10 rating points, nothing else.
	assert.InDelta(t, 10.0, stats.GearScore(agg), 0.0001)
}

func TestGearScoreCountsWeaponDamage(t *testing.T) {
	agg := stats.Aggregate(&stats.Input{
		Base: map[string]float64{rules.StatEndurance: 10},
		Equipment: []combat.Item{{
			Name: "iron sword",
			Type: combat.ItemWeapon,
			// zero spread keeps min == max == 12
			BasePower: 12,
		}},
	})

	assert.InDelta(t, 22.0, stats.GearScore(agg), 0.0001)
}
