// Package rules holds the static configuration tables of the combat
// system: stat keys, combination rules, derived-modifier coefficients,
// probability caps, and the AFK penalty ladder. Nothing here is mutable at
// runtime.
package rules

// Primary attribute keys persisted on characters.
const (
	StatStrength   = "strength"
	StatAgility    = "agility"
	StatEndurance  = "endurance"
	StatPerception = "perception"
	StatWisdom     = "wisdom"
	StatLuck       = "luck"
)

// Resource pool keys.
const (
	StatHPMax     = "hp_max"
	StatEnergyMax = "energy_max"
)

// Damage stat keys. Non-physical specific types use the same suffixes with
// their own prefix (fire_damage_power etc.) and fall back to the magical
// prefix when absent.
const (
	StatPhysicalDamageMin  = "physical_damage_min"
	StatPhysicalDamageMax  = "physical_damage_max"
	StatMagicalDamageMin   = "magical_damage_min"
	StatMagicalDamageMax   = "magical_damage_max"
	StatMagicalDamagePower = "magical_damage_power"
)

// Suffixes composed with a damage-type prefix.
const (
	SuffixDamageMin   = "_damage_min"
	SuffixDamageMax   = "_damage_max"
	SuffixDamagePower = "_damage_power"
	SuffixDamageBonus = "_damage_bonus"
	SuffixAntiCrit    = "_anti_crit_chance"
)

// Chance and mitigation modifier keys.
const (
	StatParryChance          = "parry_chance"
	StatDodgeChance          = "dodge_chance"
	StatAntiDodgeChance      = "anti_dodge_chance"
	StatCounterAttackChance  = "counter_attack_chance"
	StatShieldBlockChance    = "shield_block_chance"
	StatShieldBlockPower     = "shield_block_power"
	StatCritChance           = "crit_chance"
	StatCritPower            = "crit_power"
	StatAntiCritChance       = "anti_crit_chance"
	StatPhysicalPierceChance = "physical_pierce_chance"
	StatResistance           = "resistance"
	StatPenetration          = "penetration"
	StatDamageReductionFlat  = "damage_reduction_flat"
	StatVampiricTrigger      = "vampiric_trigger_chance"
	StatVampiricPower        = "vampiric_power"
	StatThornsDamage         = "thorns_damage"
)

// Probability and multiplier caps applied inside the calculator and, for
// capped chance stats, by the aggregator as well.
const (
	ParryCap            = 0.5
	DodgeCap            = 0.75
	CounterCap          = 0.5
	ShieldBlockCap      = 0.75
	ShieldBlockPowerCap = 1.0
	CritCap             = 0.75
	PierceCap           = 0.3
	ResistCap           = 0.85
	VampiricPowerCap    = 0.5
)

// Defaults used when the corresponding stat is absent.
const (
	DefaultCritPower        = 1.5
	DefaultShieldBlockPower = 0.5
	// UnarmedSpread is the ±fraction applied to physical damage when no
	// weapon is equipped.
	UnarmedSpread = 0.2
	// MagicalPowerSpread derives [0.9P, 1.1P] from a power stat.
	MagicalPowerSpread = 0.1
)

// CombineRule selects how flat layers and percent buffs merge into a final
// stat value.
type CombineRule int

// Combination rules
const (
	// CombineFlat sums the flat layers and ignores percent buffs.
	CombineFlat CombineRule = iota
	// CombineAdditive multiplies the flat sum by (1 + sum of percents).
	CombineAdditive
	// CombineMultiplicative multiplies the flat sum by the product of
	// (1 + percent) terms.
	CombineMultiplicative
)

// combineRules maps stat keys to their combination rule. Unlisted stats
// combine flat.
var combineRules = map[string]CombineRule{
	StatHPMax:              CombineAdditive,
	StatEnergyMax:          CombineAdditive,
	StatPhysicalDamageMin:  CombineAdditive,
	StatPhysicalDamageMax:  CombineAdditive,
	StatMagicalDamagePower: CombineAdditive,
	StatMagicalDamageMin:   CombineAdditive,
	StatMagicalDamageMax:   CombineAdditive,
	StatCritPower:          CombineMultiplicative,
	StatVampiricPower:      CombineMultiplicative,
	StatThornsDamage:       CombineAdditive,
}

// CombineRuleFor returns the combination rule for a stat key.
func CombineRuleFor(stat string) CombineRule {
	if r, ok := combineRules[stat]; ok {
		return r
	}
	return CombineFlat
}

// chanceCaps clamps aggregated chance stats so no layer stack can push a
// probability past its cap, and never below zero.
var chanceCaps = map[string]float64{
	StatParryChance:         ParryCap,
	StatDodgeChance:         DodgeCap,
	StatCounterAttackChance: CounterCap,
	StatShieldBlockChance:   ShieldBlockCap,
	StatCritChance:          CritCap,
	StatResistance:          ResistCap,
}

// Cap returns the aggregation cap for a stat and whether one is declared.
func Cap(stat string) (float64, bool) {
	c, ok := chanceCaps[stat]
	return c, ok
}

// DerivedModifiers maps a modifier key to the linear contributions of
// post-equipment stats that derive it.
var DerivedModifiers = map[string]map[string]float64{
	StatParryChance: {
		StatAgility:    0.005,
		StatPerception: 0.002,
	},
	StatDodgeChance: {
		StatAgility: 0.004,
		StatLuck:    0.002,
	},
	StatCritChance: {
		StatLuck:       0.003,
		StatPerception: 0.002,
	},
	StatCounterAttackChance: {
		StatAgility:    0.002,
		StatPerception: 0.003,
	},
	StatHPMax: {
		StatEndurance: 10,
	},
	StatEnergyMax: {
		StatWisdom: 5,
	},
	StatPhysicalDamageMax: {
		StatStrength: 0.5,
	},
	StatMagicalDamagePower: {
		StatWisdom: 0.5,
	},
}
