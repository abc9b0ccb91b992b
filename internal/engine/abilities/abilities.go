// Package abilities implements the declarative ability system. An ability
// is a record of calculator flags, a resource cost, and named pre/post-calc
// hooks drawn from a closed registry; no ability gets bespoke branches in
// the resolution pipeline.
package abilities

import (
	"math"

	"github.com/reactiveburst/rbc-engine/internal/engine/calculator"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/rules"
)

// Cost is the resource price of an ability, consumed only after a
// successful exchange.
type Cost struct {
	Energy int                  `json:"energy,omitempty"`
	Tokens map[combat.Token]int `json:"tokens,omitempty"`
}

// PreCalcHook mutates the attacker's scratch stat map and flags before the
// calculator runs. Hooks are pure over their inputs.
type PreCalcHook func(stats map[string]float64, flags *calculator.Flags)

// PostCalcHook applies secondary effects after the calculator: extra
// healing, debuffs on the opponent. It sees only the two containers.
type PostCalcHook func(res *calculator.Result, self, opponent *combat.Participant)

// Ability is a declarative ability record.
type Ability struct {
	Key   string
	Name  string
	Flags calculator.Flags
	Cost  Cost
	// PreCalc and PostCalc name hooks in the registry.
	PreCalc  []string
	PostCalc []string
}

// Registry is the closed set of abilities and hooks known to the engine.
type Registry struct {
	abilities map[string]*Ability
	pre       map[string]PreCalcHook
	post      map[string]PostCalcHook
}

// Get returns an ability by key.
func (r *Registry) Get(key string) (*Ability, bool) {
	a, ok := r.abilities[key]
	return a, ok
}

// Flags returns the calculator flags for an ability key; unknown or empty
// keys yield zero flags.
func (r *Registry) Flags(key string) calculator.Flags {
	if a, ok := r.abilities[key]; ok {
		return a.Flags
	}
	return calculator.Flags{}
}

// CanUse checks the ability's resource preconditions against a fighter.
func (r *Registry) CanUse(key string, p *combat.Participant) bool {
	a, ok := r.abilities[key]
	if !ok {
		return false
	}
	if !p.Alive() {
		return false
	}
	if p.State.EnergyCurrent < a.Cost.Energy {
		return false
	}
	for tok, n := range a.Cost.Tokens {
		if p.State.Tokens[tok] < n {
			return false
		}
	}
	return true
}

// ApplyPreCalc runs the ability's pre-calc hooks over the scratch stats.
func (r *Registry) ApplyPreCalc(key string, stats map[string]float64, flags *calculator.Flags) {
	a, ok := r.abilities[key]
	if !ok {
		return
	}
	for _, name := range a.PreCalc {
		if hook, ok := r.pre[name]; ok {
			hook(stats, flags)
		}
	}
}

// ApplyPostCalc runs the ability's post-calc hooks in the originating
// side's context.
func (r *Registry) ApplyPostCalc(key string, res *calculator.Result, self, opponent *combat.Participant) {
	a, ok := r.abilities[key]
	if !ok {
		return
	}
	for _, name := range a.PostCalc {
		if hook, ok := r.post[name]; ok {
			hook(res, self, opponent)
		}
	}
}

// Consume deducts the ability's cost from the fighter. Callers invoke it
// once per successfully resolved exchange.
func (r *Registry) Consume(key string, p *combat.Participant) {
	a, ok := r.abilities[key]
	if !ok {
		return
	}
	p.State.EnergyCurrent -= a.Cost.Energy
	if p.State.EnergyCurrent < 0 {
		p.State.EnergyCurrent = 0
	}
	for tok, n := range a.Cost.Tokens {
		p.State.Tokens[tok] -= n
		if p.State.Tokens[tok] < 0 {
			p.State.Tokens[tok] = 0
		}
	}
}

// NewRegistry builds the engine's ability set.
func NewRegistry() *Registry {
	r := &Registry{
		abilities: make(map[string]*Ability),
		pre:       make(map[string]PreCalcHook),
		post:      make(map[string]PostCalcHook),
	}

	r.pre["adrenaline_rush"] = func(stats map[string]float64, _ *calculator.Flags) {
		stats[rules.StatPhysicalDamageMin] += 5
		stats[rules.StatPhysicalDamageMax] += 5
	}

	r.post["heal_on_lifesteal"] = func(res *calculator.Result, self, _ *combat.Participant) {
		if res.Lifesteal <= 0 {
			return
		}
		extra := int(math.Floor(float64(res.Lifesteal) * 0.5))
		if extra <= 0 {
			return
		}
		self.State.HPCurrent += extra
		if self.State.HPCurrent > self.State.HPMax {
			self.State.HPCurrent = self.State.HPMax
		}
		self.State.Stats.HealingDone += extra
	}

	r.post["apply_bleed"] = func(res *calculator.Result, _, opponent *combat.Participant) {
		if res.HPDmg <= 0 {
			return
		}
		opponent.State.Effects = append(opponent.State.Effects, combat.Effect{
			Name:   "bleed",
			Stat:   rules.StatResistance,
			Amount: -0.05,
			Rounds: 3,
		})
	}

	r.post["apply_weakness"] = func(res *calculator.Result, _, opponent *combat.Participant) {
		if res.DamageTotal <= 0 {
			return
		}
		opponent.State.Effects = append(opponent.State.Effects, combat.Effect{
			Name:    "weakness",
			Stat:    rules.StatPhysicalDamageMax,
			Amount:  -0.15,
			Percent: true,
			Rounds:  2,
		})
	}

	for _, a := range []*Ability{
		{
			Key: "power_strike", Name: "Power Strike",
			Flags: calculator.Flags{DamageMult: 1.5},
			Cost:  Cost{Energy: 10},
		},
		{
			Key: "feint", Name: "Feint",
			Flags: calculator.Flags{IgnoreParry: true},
			Cost:  Cost{Energy: 5},
		},
		{
			Key: "crushing_blow", Name: "Crushing Blow",
			Flags: calculator.Flags{IgnoreBlock: true},
			Cost:  Cost{Tokens: map[combat.Token]int{combat.TokenHit: 2}},
		},
		{
			Key: "true_strike", Name: "True Strike",
			Flags: calculator.Flags{BonusCrit: 0.25, IgnoreDodge: true},
			Cost:  Cost{Energy: 8},
		},
		{
			Key: "fire_brand", Name: "Fire Brand",
			Flags: calculator.Flags{OverrideDamageType: combat.DamageFire, DamageMult: 1.2},
			Cost:  Cost{Energy: 12},
		},
		{
			Key: "vampiric_pact", Name: "Vampiric Pact",
			Cost:     Cost{Tokens: map[combat.Token]int{combat.TokenCrit: 1}},
			PostCalc: []string{"heal_on_lifesteal"},
		},
		{
			Key: "rending_wound", Name: "Rending Wound",
			Cost:     Cost{Energy: 6},
			PostCalc: []string{"apply_bleed"},
		},
		{
			Key: "stunning_blow", Name: "Stunning Blow",
			Cost:     Cost{Energy: 9},
			PostCalc: []string{"apply_weakness"},
		},
		{
			Key: "adrenaline", Name: "Adrenaline",
			Cost:    Cost{Tokens: map[combat.Token]int{combat.TokenHit: 1}},
			PreCalc: []string{"adrenaline_rush"},
		},
	} {
		r.abilities[a.Key] = a
	}

	return r
}
