package combat

// Effect is a transient buff or debuff on a participant. Flat effects add
// to the named stat; percent effects multiply it.
type Effect struct {
	Name    string  `json:"name"`
	Stat    string  `json:"stat"`
	Amount  float64 `json:"amount"`
	Percent bool    `json:"percent,omitempty"`
	// Rounds remaining; 0 means until the session ends.
	Rounds int `json:"rounds,omitempty"`
}

// CombatStats tracks per-fight counters for the final report.
type CombatStats struct {
	DamageDealt   int `json:"damage_dealt"`
	DamageTaken   int `json:"damage_taken"`
	CritsLanded   int `json:"crits_landed"`
	BlocksSuccess int `json:"blocks_success"`
	DodgesSuccess int `json:"dodges_success"`
	HealingDone   int `json:"healing_done"`
}

// FighterState is the volatile state of a participant, mutated exchange by
// exchange and discarded (except HP/energy write-back) at finalize.
type FighterState struct {
	HPCurrent     int `json:"hp_current"`
	HPMax         int `json:"hp_max"`
	EnergyCurrent int `json:"energy_current"`
	EnergyMax     int `json:"energy_max"`

	// Targets is the ordered list of opposing participant ids; the head is
	// the current target.
	Targets []string `json:"targets"`

	SwitchCharges    int `json:"switch_charges"`
	MaxSwitchCharges int `json:"max_switch_charges"`

	Tokens  map[Token]int `json:"tokens"`
	Effects []Effect      `json:"effects"`

	ExchangeCount int `json:"exchange_count"`

	// XPBuffer accumulates pending skill XP, flushed to durable storage
	// only at finalize.
	XPBuffer map[string]int `json:"xp_buffer"`

	Stats CombatStats `json:"stats"`

	// AFKPenaltyLevel shortens subsequent move deadlines, 0..4.
	AFKPenaltyLevel int `json:"afk_penalty_level"`
	// PenaltyTimer is the move timeout in seconds for the next intent.
	PenaltyTimer int `json:"penalty_timer"`
}

// Alive reports whether the fighter can still act.
func (s *FighterState) Alive() bool {
	return s.HPCurrent > 0
}

// CurrentTarget returns the head of the target list, or "" when empty.
func (s *FighterState) CurrentTarget() string {
	if len(s.Targets) == 0 {
		return ""
	}
	return s.Targets[0]
}

// AddTokens merges earned tokens into the fighter's pool.
func (s *FighterState) AddTokens(earned map[Token]int) {
	if len(earned) == 0 {
		return
	}
	if s.Tokens == nil {
		s.Tokens = make(map[Token]int)
	}
	for t, n := range earned {
		s.Tokens[t] += n
	}
}

// ItemType distinguishes equipment intrinsics.
type ItemType string

// Item types
const (
	ItemWeapon ItemType = "weapon"
	ItemArmor  ItemType = "armor"
	ItemShield ItemType = "shield"
)

// Item is a piece of equipment worn for the session. Bonuses feed the stat
// aggregator; BasePower drives the type-specific intrinsic.
type Item struct {
	Name string   `json:"name"`
	Type ItemType `json:"type"`
	// Subtype labels the armour class (light, medium, heavy) and doubles
	// as the defensive skill family.
	Subtype      string             `json:"subtype,omitempty"`
	BasePower    float64            `json:"base_power"`
	DamageSpread float64            `json:"damage_spread,omitempty"`
	Bonuses      map[string]float64 `json:"bonuses,omitempty"`
}

// BeltEffectKind is what a consumable does when used.
type BeltEffectKind string

// Belt effect kinds
const (
	BeltEffectHealHP        BeltEffectKind = "heal_hp"
	BeltEffectRestoreEnergy BeltEffectKind = "restore_energy"
	BeltEffectCure          BeltEffectKind = "cure"
	BeltEffectBuff          BeltEffectKind = "buff"
)

// BeltItem is a quick-use consumable carried into the session.
type BeltItem struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Count  int            `json:"count"`
	Effect BeltEffectKind `json:"effect"`
	// Stat and Amount parameterise the effect (heal amount, buffed stat).
	Stat   string  `json:"stat,omitempty"`
	Amount float64 `json:"amount"`
}

// Participant is the in-session record for one combatant. AI shadows have
// IsAI set and no durable account behind CharID.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Team  string `json:"team"`
	IsAI  bool   `json:"is_ai"`

	// BaseStats is the persisted character stat layer; equipment, skills,
	// and buffs are layered on top by the aggregator.
	BaseStats map[string]float64 `json:"base_stats"`

	State FighterState `json:"state"`

	Abilities []string   `json:"abilities,omitempty"`
	Equipment []Item     `json:"equipment,omitempty"`
	Belt      []BeltItem `json:"belt,omitempty"`
}

// Alive reports whether the participant can still act.
func (p *Participant) Alive() bool {
	return p.State.Alive()
}

// Weapon returns the equipped weapon, or nil when fighting unarmed.
func (p *Participant) Weapon() *Item {
	for i := range p.Equipment {
		if p.Equipment[i].Type == ItemWeapon {
			return &p.Equipment[i]
		}
	}
	return nil
}

// ArmorSubtype returns the subtype of the first worn armour piece, used as
// the defensive XP family. Empty when unarmoured.
func (p *Participant) ArmorSubtype() string {
	for i := range p.Equipment {
		if p.Equipment[i].Type == ItemArmor {
			return p.Equipment[i].Subtype
		}
	}
	return ""
}
