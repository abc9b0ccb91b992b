// Package stats assembles a participant's final stat set from its layered
// sources: persisted base stats, worn equipment, trained skills, and
// transient buffs. Aggregation is pure and idempotent; the output feeds
// participant initialization and every calculator invocation.
package stats

import (
	"math"
	"strings"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/rules"
)

// Layer labels used as source keys in the aggregated output.
const (
	SourceBase    = "base"
	SourceSkills  = "skills"
	SourceDerived = "derived"
	SourceUnarmed = "unarmed"
)

// StatValue is one aggregated stat with its per-source breakdown.
type StatValue struct {
	Total   float64            `json:"total"`
	Sources map[string]float64 `json:"sources"`
}

// Aggregated is the full stat set, split into raw stats and combat
// modifiers.
type Aggregated struct {
	Stats     map[string]StatValue `json:"stats"`
	Modifiers map[string]StatValue `json:"modifiers"`
}

// Flat merges both sub-maps into a single key to total map for the
// calculator.
func (a *Aggregated) Flat() map[string]float64 {
	flat := make(map[string]float64, len(a.Stats)+len(a.Modifiers))
	for k, v := range a.Stats {
		flat[k] = v.Total
	}
	for k, v := range a.Modifiers {
		flat[k] = v.Total
	}
	return flat
}

// Get returns a total by key from either sub-map.
func (a *Aggregated) Get(key string) float64 {
	if v, ok := a.Stats[key]; ok {
		return v.Total
	}
	return a.Modifiers[key].Total
}

// Input collects the layers for one character.
type Input struct {
	Base      map[string]float64
	Equipment []combat.Item
	// Skills are flat contributions from trained abilities.
	Skills map[string]float64
	// BuffsFlat maps buff name to flat stat contributions.
	BuffsFlat map[string]map[string]float64
	// BuffsPercent maps buff name to fractional stat contributions.
	BuffsPercent map[string]map[string]float64
}

// InputFromParticipant derives an aggregation input from a live container,
// translating its active effects into buff layers.
func InputFromParticipant(p *combat.Participant) *Input {
	in := &Input{
		Base:         p.BaseStats,
		Equipment:    p.Equipment,
		BuffsFlat:    make(map[string]map[string]float64),
		BuffsPercent: make(map[string]map[string]float64),
	}
	for _, e := range p.State.Effects {
		dst := in.BuffsFlat
		if e.Percent {
			dst = in.BuffsPercent
		}
		if dst[e.Name] == nil {
			dst[e.Name] = make(map[string]float64)
		}
		dst[e.Name][e.Stat] += e.Amount
	}
	return in
}

// accumulator tracks per-source flat and percent contributions for one
// stat key.
type accumulator struct {
	flats map[string]float64
	pcts  map[string]float64
}

// Aggregate computes the final stat set from the layered input.
func Aggregate(in *Input) *Aggregated {
	acc := make(map[string]*accumulator)

	addFlat := func(stat, source string, v float64) {
		if v == 0 {
			return
		}
		a := acc[stat]
		if a == nil {
			a = &accumulator{flats: make(map[string]float64), pcts: make(map[string]float64)}
			acc[stat] = a
		}
		a.flats[source] += v
	}
	addPct := func(stat, source string, v float64) {
		if v == 0 {
			return
		}
		a := acc[stat]
		if a == nil {
			a = &accumulator{flats: make(map[string]float64), pcts: make(map[string]float64)}
			acc[stat] = a
		}
		a.pcts[source] += v
	}

	// 1. Base layer.
	for stat, v := range in.Base {
		addFlat(stat, SourceBase, v)
	}

	// 2. Equipment: declared bonuses plus type-specific intrinsics.
	hasWeapon := false
	for _, item := range in.Equipment {
		for stat, v := range item.Bonuses {
			addFlat(stat, item.Name, v)
		}
		switch item.Type {
		case combat.ItemWeapon:
			hasWeapon = true
			spread := item.DamageSpread
			addFlat(rules.StatPhysicalDamageMin, item.Name, math.Floor(item.BasePower*(1-spread)))
			addFlat(rules.StatPhysicalDamageMax, item.Name, math.Ceil(item.BasePower*(1+spread)))
		case combat.ItemArmor:
			addFlat(rules.StatDamageReductionFlat, item.Name, item.BasePower)
		}
	}

	// 3. Skills layer.
	for stat, v := range in.Skills {
		addFlat(stat, SourceSkills, v)
	}

	// Buff layers.
	for name, buff := range in.BuffsFlat {
		for stat, v := range buff {
			addFlat(stat, name, v)
		}
	}
	for name, buff := range in.BuffsPercent {
		for stat, v := range buff {
			addPct(stat, name, v)
		}
	}

	// Derived modifiers read the post-equipment flat sums of their
	// contributor stats.
	flatSum := func(stat string) float64 {
		a := acc[stat]
		if a == nil {
			return 0
		}
		var sum float64
		for _, v := range a.flats {
			sum += v
		}
		return sum
	}
	for modifier, contributors := range rules.DerivedModifiers {
		var derived float64
		for stat, coeff := range contributors {
			derived += coeff * flatSum(stat)
		}
		addFlat(modifier, SourceDerived, derived)
	}

	// Unarmed fighters swing with a wide spread on whatever physical
	// damage their stats grant.
	if !hasWeapon {
		minSum := flatSum(rules.StatPhysicalDamageMin)
		maxSum := flatSum(rules.StatPhysicalDamageMax)
		addFlat(rules.StatPhysicalDamageMin, SourceUnarmed, -minSum*rules.UnarmedSpread)
		addFlat(rules.StatPhysicalDamageMax, SourceUnarmed, maxSum*rules.UnarmedSpread)
	}

	out := &Aggregated{
		Stats:     make(map[string]StatValue),
		Modifiers: make(map[string]StatValue),
	}

	for stat, a := range acc {
		var flats float64
		for _, v := range a.flats {
			flats += v
		}

		var total float64
		switch rules.CombineRuleFor(stat) {
		case rules.CombineAdditive:
			var pctSum float64
			for _, v := range a.pcts {
				pctSum += v
			}
			total = flats * (1 + pctSum)
		case rules.CombineMultiplicative:
			total = flats
			for _, v := range a.pcts {
				total *= 1 + v
			}
		default:
			total = flats
		}

		// Capped stats never go negative and never exceed their cap.
		if cap, ok := rules.Cap(stat); ok {
			if total < 0 {
				total = 0
			}
			if total > cap {
				total = cap
			}
		}

		sources := make(map[string]float64, len(a.flats))
		for src, v := range a.flats {
			sources[src] = v
		}

		sv := StatValue{Total: total, Sources: sources}
		if isModifier(stat) {
			out.Modifiers[stat] = sv
		} else {
			out.Stats[stat] = sv
		}
	}

	return out
}

// modifierKeys are non-chance keys that still live in the modifiers
// sub-map.
var modifierKeys = map[string]bool{
	rules.StatResistance:          true,
	rules.StatPenetration:         true,
	rules.StatDamageReductionFlat: true,
	rules.StatCritPower:           true,
	rules.StatShieldBlockPower:    true,
	rules.StatVampiricTrigger:     true,
	rules.StatVampiricPower:       true,
	rules.StatThornsDamage:        true,
}

func isModifier(stat string) bool {
	return strings.HasSuffix(stat, "_chance") || modifierKeys[stat]
}
