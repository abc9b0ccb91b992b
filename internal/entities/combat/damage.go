package combat

// DamageType identifies the damage channel of an attack. Specific types
// belong to a category; stat lookups fall back from the specific type to
// the category prefix.
type DamageType string

// Damage types
const (
	DamagePhysical DamageType = "physical"
	DamageMagical  DamageType = "magical"
	DamageFire     DamageType = "fire"
	DamageFrost    DamageType = "frost"
	DamageShock    DamageType = "shock"
)

// Category returns the category a damage type mitigates under. Everything
// that is not physical rides the magical path.
func (d DamageType) Category() DamageType {
	if d == DamagePhysical {
		return DamagePhysical
	}
	return DamageMagical
}

// IsPhysical reports whether the type resolves through the physical
// pipeline (parry, piercing).
func (d DamageType) IsPhysical() bool {
	return d == DamagePhysical
}

// Token is a per-fight marker earned on specific exchange outcomes.
// Abilities consume tokens as a resource.
type Token string

// Tokens
const (
	TokenHit     Token = "hit"
	TokenCrit    Token = "crit"
	TokenBlock   Token = "block"
	TokenParry   Token = "parry"
	TokenCounter Token = "counter"
)
