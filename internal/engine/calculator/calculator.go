// Package calculator implements the hit-resolution pipeline. It is pure:
// given both sides' aggregated stats and the move geometry it produces a
// Result without touching any state; the combat orchestrator applies the
// outcome. Randomness comes from an injected source so sessions can be
// seeded deterministically.
package calculator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/rules"
)

// BlockType classifies a blocked outcome.
type BlockType string

// Block types
const (
	BlockNone    BlockType = ""
	BlockPassive BlockType = "passive"
	BlockGeo     BlockType = "geo"
)

// Flags carry ability modifiers into the pipeline.
type Flags struct {
	// DamageMult scales the rolled damage; zero means the default 1.0.
	DamageMult float64
	// BonusCrit adds to the attacker's crit chance before clamping.
	BonusCrit float64

	IgnoreParry bool
	IgnoreDodge bool
	IgnoreBlock bool

	// OverrideDamageType replaces the weapon's damage type when set.
	OverrideDamageType combat.DamageType
}

// Input is one directional attack: attacker swings at defender.
type Input struct {
	Attacker map[string]float64
	Defender map[string]float64

	// DefenderShield is the defender's current energy shield, consumed
	// before HP.
	DefenderShield int

	AttackZones []combat.Zone
	BlockZones  []combat.Zone

	DamageType combat.DamageType
	Flags      Flags
}

// Result is the full outcome of one directional attack.
type Result struct {
	DamageTotal int
	ShieldDmg   int
	HPDmg       int

	IsCrit    bool
	IsBlocked bool
	BlockType BlockType
	IsDodged  bool
	IsParried bool
	IsCounter bool

	Lifesteal    int
	ThornsDamage int

	// VisualBar is a five-glyph summary of the per-zone outcome, head to
	// feet.
	VisualBar string

	TokensAtk map[combat.Token]int
	TokensDef map[combat.Token]int

	Logs []string
}

// RNG is the pipeline's random source. *rand.Rand implements it; tests may
// script it.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// Calculator resolves directional attacks with a private random source.
type Calculator struct {
	rng RNG
}

// New creates a calculator over the given random source.
func New(rng RNG) *Calculator {
	return &Calculator{rng: rng}
}

// NewSeeded creates a calculator with a deterministic source. Each session
// owns one so replays under the same seed are identical.
func NewSeeded(seed int64) *Calculator {
	return New(rand.New(rand.NewSource(seed)))
}

func stat(m map[string]float64, key string) float64 {
	return m[key]
}

func statOr(m map[string]float64, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != 0 {
		return v
	}
	return def
}

func clampChance(p, cap float64) float64 {
	if p < 0 {
		return 0
	}
	if p > cap {
		return cap
	}
	return p
}

func (c *Calculator) roll(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return c.rng.Float64() < p
}

// uniformInt returns an int in [lo, hi]; degenerate ranges collapse.
func (c *Calculator) uniformInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.rng.Intn(hi-lo+1)
}

// Resolve runs the full pipeline for one directional attack.
func (c *Calculator) Resolve(in *Input) *Result {
	res := &Result{
		TokensAtk: make(map[combat.Token]int),
		TokensDef: make(map[combat.Token]int),
	}

	dmgType := in.DamageType
	if in.Flags.OverrideDamageType != "" {
		dmgType = in.Flags.OverrideDamageType
	}
	if dmgType == "" {
		dmgType = combat.DamagePhysical
	}

	// Thorns retaliation is independent of the outcome: it applies even
	// when the attack is fully avoided.
	res.ThornsDamage = int(math.Floor(stat(in.Defender, rules.StatThornsDamage)))

	// An empty attack (forced passive) never lands and never procs
	// defensive reactions.
	if len(in.AttackZones) == 0 {
		res.ThornsDamage = 0
		res.VisualBar = c.visualBar(in, res)
		res.Logs = append(res.Logs, "no attack declared")
		return res
	}

	// 1. Parry, physical only.
	if dmgType.IsPhysical() && !in.Flags.IgnoreParry {
		if c.roll(clampChance(stat(in.Defender, rules.StatParryChance), rules.ParryCap)) {
			res.IsParried = true
			res.TokensDef[combat.TokenParry]++
			res.VisualBar = c.visualBar(in, res)
			res.Logs = append(res.Logs, "attack parried")
			return res
		}
	}

	// 2. Dodge, with an immediate counter-attack roll on success.
	if !in.Flags.IgnoreDodge {
		dodge := clampChance(
			stat(in.Defender, rules.StatDodgeChance)-stat(in.Attacker, rules.StatAntiDodgeChance),
			rules.DodgeCap,
		)
		if c.roll(dodge) {
			res.IsDodged = true
			res.Logs = append(res.Logs, "attack dodged")
			counter := clampChance(stat(in.Defender, rules.StatCounterAttackChance), rules.CounterCap)
			if c.roll(counter) {
				res.IsCounter = true
				res.TokensDef[combat.TokenCounter]++
				res.Logs = append(res.Logs, "counter-attack")
			}
			res.VisualBar = c.visualBar(in, res)
			return res
		}
	}

	// 3. Passive shield block: reduced damage, then done. Stages 6-9 do
	// not run.
	if !in.Flags.IgnoreBlock {
		if c.roll(clampChance(stat(in.Defender, rules.StatShieldBlockChance), rules.ShieldBlockCap)) {
			res.IsBlocked = true
			res.BlockType = BlockPassive

			dmg := c.rollDamage(in, dmgType, res)
			power := statOr(in.Defender, rules.StatShieldBlockPower, rules.DefaultShieldBlockPower)
			if power > rules.ShieldBlockPowerCap {
				power = rules.ShieldBlockPowerCap
			}
			dmg = int(math.Floor(float64(dmg) * (1 - power)))

			c.distribute(in, res, dmg)
			c.emitTokens(res)
			res.VisualBar = c.visualBar(in, res)
			res.Logs = append(res.Logs, fmt.Sprintf("shield block absorbed %.0f%% of the hit", power*100))
			return res
		}
	}

	// 4. Geo-block detection: flagged now, damage demoted after the crit
	// roll.
	if combat.ZonesOverlap(in.AttackZones, in.BlockZones) {
		res.IsBlocked = true
		res.BlockType = BlockGeo
	}

	// 5. Damage roll and crit.
	dmg := c.rollDamage(in, dmgType, res)

	// 6. Geo-block adjustment.
	if res.BlockType == BlockGeo {
		if res.IsCrit {
			dmg /= 2
			res.Logs = append(res.Logs, "critical hit broke through the block at half strength")
		} else {
			dmg = 0
			res.Logs = append(res.Logs, "attack blocked")
		}
	}

	if dmg > 0 {
		// 7. Piercing bypasses mitigation entirely, physical only.
		pierced := dmgType.IsPhysical() &&
			c.roll(clampChance(stat(in.Attacker, rules.StatPhysicalPierceChance), rules.PierceCap))

		if pierced {
			res.Logs = append(res.Logs, "armor pierced")
		} else {
			// 8. Mitigation: resist net of penetration, then flat
			// reduction, floored at 1.
			netResist := clampChance(
				stat(in.Defender, rules.StatResistance)-stat(in.Attacker, rules.StatPenetration),
				rules.ResistCap,
			)
			dmg = int(math.Floor(float64(dmg) * (1 - netResist)))
			dmg -= int(math.Floor(stat(in.Defender, rules.StatDamageReductionFlat)))
			if dmg < 1 {
				dmg = 1
			}
		}

		// 9. Vampirism.
		if c.roll(clampChance(stat(in.Attacker, rules.StatVampiricTrigger), 1.0)) {
			power := stat(in.Attacker, rules.StatVampiricPower)
			if power > rules.VampiricPowerCap {
				power = rules.VampiricPowerCap
			}
			if power > 0 {
				res.Lifesteal = int(math.Floor(float64(dmg) * power))
			}
		}
	}

	// 10. Distribution: energy shield first, remainder into HP.
	c.distribute(in, res, dmg)

	// 11. Token emission.
	c.emitTokens(res)

	res.VisualBar = c.visualBar(in, res)
	if res.DamageTotal > 0 {
		res.Logs = append(res.Logs, fmt.Sprintf("hit for %d damage", res.DamageTotal))
	}
	return res
}

// rollDamage runs stage 5: raw roll for the damage type, type bonuses,
// ability multiplier, and the crit roll.
func (c *Calculator) rollDamage(in *Input, dmgType combat.DamageType, res *Result) int {
	var lo, hi int

	if dmgType.IsPhysical() {
		lo = int(stat(in.Attacker, rules.StatPhysicalDamageMin))
		hi = int(stat(in.Attacker, rules.StatPhysicalDamageMax))
	} else {
		prefix := string(dmgType)
		power := stat(in.Attacker, prefix+rules.SuffixDamagePower)
		min := stat(in.Attacker, prefix+rules.SuffixDamageMin)
		max := stat(in.Attacker, prefix+rules.SuffixDamageMax)

		// Specific non-magical types fall back to the category stats when
		// the specific ones are absent.
		if power == 0 && min == 0 && max == 0 && dmgType != combat.DamageMagical {
			power = stat(in.Attacker, rules.StatMagicalDamagePower)
			min = stat(in.Attacker, rules.StatMagicalDamageMin)
			max = stat(in.Attacker, rules.StatMagicalDamageMax)
		}

		if power > 0 {
			lo = int(math.Floor(power * (1 - rules.MagicalPowerSpread)))
			hi = int(math.Ceil(power * (1 + rules.MagicalPowerSpread)))
		} else {
			lo = int(min)
			hi = int(max)
		}
	}

	dmg := float64(c.uniformInt(lo, hi))
	if dmg <= 0 {
		return 0
	}

	// Type bonus, plus the category bonus for non-core types.
	bonus := stat(in.Attacker, string(dmgType)+rules.SuffixDamageBonus)
	if cat := dmgType.Category(); cat != dmgType {
		bonus += stat(in.Attacker, string(cat)+rules.SuffixDamageBonus)
	}
	dmg *= 1 + bonus

	mult := in.Flags.DamageMult
	if mult == 0 {
		mult = 1.0
	}
	dmg *= mult

	// Crit roll.
	critChance := stat(in.Attacker, rules.StatCritChance) + in.Flags.BonusCrit
	critChance -= stat(in.Defender, rules.StatAntiCritChance)
	critChance -= stat(in.Defender, string(dmgType.Category())+rules.SuffixAntiCrit)
	if c.roll(clampChance(critChance, rules.CritCap)) {
		res.IsCrit = true
		dmg *= statOr(in.Attacker, rules.StatCritPower, rules.DefaultCritPower)
	}

	return int(math.Floor(dmg))
}

// distribute absorbs damage into the energy shield first and spills the
// remainder into HP.
func (c *Calculator) distribute(in *Input, res *Result, dmg int) {
	if dmg < 0 {
		dmg = 0
	}
	res.DamageTotal = dmg
	res.ShieldDmg = dmg
	if res.ShieldDmg > in.DefenderShield {
		res.ShieldDmg = in.DefenderShield
	}
	res.HPDmg = dmg - res.ShieldDmg
}

func (c *Calculator) emitTokens(res *Result) {
	if res.DamageTotal > 0 {
		res.TokensAtk[combat.TokenHit]++
	}
	if res.IsCrit {
		res.TokensAtk[combat.TokenCrit]++
	}
	if res.IsBlocked {
		res.TokensDef[combat.TokenBlock]++
	}
}

// visualBar renders one glyph per zone, head to feet.
func (c *Calculator) visualBar(in *Input, res *Result) string {
	glyphs := make([]byte, 0, len(combat.AllZones))
	for _, z := range combat.AllZones {
		attacked := zoneIn(in.AttackZones, z)
		blocked := zoneIn(in.BlockZones, z)
		switch {
		case res.IsParried && attacked:
			glyphs = append(glyphs, '%')
		case res.IsDodged && attacked:
			glyphs = append(glyphs, '~')
		case attacked && blocked:
			glyphs = append(glyphs, 'X')
		case attacked:
			glyphs = append(glyphs, '/')
		case blocked:
			glyphs = append(glyphs, ']')
		default:
			glyphs = append(glyphs, '-')
		}
	}
	return string(glyphs)
}

func zoneIn(zones []combat.Zone, z combat.Zone) bool {
	for _, zz := range zones {
		if zz == z {
			return true
		}
	}
	return false
}
