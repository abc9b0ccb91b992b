package abilities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactiveburst/rbc-engine/internal/engine/abilities"
	"github.com/reactiveburst/rbc-engine/internal/engine/calculator"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/rules"
)

func fighter(energy int, tokens map[combat.Token]int) *combat.Participant {
	return &combat.Participant{
		ID: "char_1",
		State: combat.FighterState{
			HPCurrent:     50,
			HPMax:         100,
			EnergyCurrent: energy,
			EnergyMax:     50,
			Tokens:        tokens,
		},
	}
}

func TestFlags(t *testing.T) {
	r := abilities.NewRegistry()

	flags := r.Flags("power_strike")
	assert.Equal(t, 1.5, flags.DamageMult)

	flags = r.Flags("fire_brand")
	assert.Equal(t, combat.DamageFire, flags.OverrideDamageType)

	assert.Equal(t, calculator.Flags{}, r.Flags("unknown"))
}

func TestCanUse(t *testing.T) {
	r := abilities.NewRegistry()

	assert.True(t, r.CanUse("power_strike", fighter(10, nil)))
	assert.False(t, r.CanUse("power_strike", fighter(9, nil)))

	assert.True(t, r.CanUse("crushing_blow", fighter(0, map[combat.Token]int{combat.TokenHit: 2})))
	assert.False(t, r.CanUse("crushing_blow", fighter(0, map[combat.Token]int{combat.TokenHit: 1})))

	dead := fighter(50, nil)
	dead.State.HPCurrent = 0
	assert.False(t, r.CanUse("power_strike", dead))

	assert.False(t, r.CanUse("unknown", fighter(50, nil)))
}

func TestConsume(t *testing.T) {
	r := abilities.NewRegistry()

	p := fighter(20, map[combat.Token]int{combat.TokenHit: 3})
	r.Consume("power_strike", p)
	assert.Equal(t, 10, p.State.EnergyCurrent)

	r.Consume("crushing_blow", p)
	assert.Equal(t, 1, p.State.Tokens[combat.TokenHit])
}

func TestPreCalcHook(t *testing.T) {
	r := abilities.NewRegistry()

	scratch := map[string]float64{
		rules.StatPhysicalDamageMin: 10,
		rules.StatPhysicalDamageMax: 15,
	}
	flags := r.Flags("adrenaline")
	r.ApplyPreCalc("adrenaline", scratch, &flags)

	assert.Equal(t, 15.0, scratch[rules.StatPhysicalDamageMin])
	assert.Equal(t, 20.0, scratch[rules.StatPhysicalDamageMax])
}

func TestHealOnLifesteal(t *testing.T) {
	r := abilities.NewRegistry()

	self := fighter(0, map[combat.Token]int{combat.TokenCrit: 1})
	opp := fighter(0, nil)
	res := &calculator.Result{Lifesteal: 10}

	r.ApplyPostCalc("vampiric_pact", res, self, opp)
	assert.Equal(t, 55, self.State.HPCurrent)
	assert.Equal(t, 5, self.State.Stats.HealingDone)
}

func TestHealClampsAtMax(t *testing.T) {
	r := abilities.NewRegistry()

	self := fighter(0, nil)
	self.State.HPCurrent = 99
	r.ApplyPostCalc("vampiric_pact", &calculator.Result{Lifesteal: 20}, self, fighter(0, nil))

	assert.Equal(t, 100, self.State.HPCurrent)
}

func TestApplyBleedOnDamage(t *testing.T) {
	r := abilities.NewRegistry()

	self := fighter(20, nil)
	opp := fighter(0, nil)

	r.ApplyPostCalc("rending_wound", &calculator.Result{DamageTotal: 12, HPDmg: 12}, self, opp)
	require.Len(t, opp.State.Effects, 1)
	assert.Equal(t, "bleed", opp.State.Effects[0].Name)

	// A fully absorbed or avoided hit applies no bleed.
	opp2 := fighter(0, nil)
	r.ApplyPostCalc("rending_wound", &calculator.Result{DamageTotal: 0}, self, opp2)
	assert.Empty(t, opp2.State.Effects)
}
