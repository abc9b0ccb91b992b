package rules

// Skill families credited with XP by exchange outcomes.
const (
	SkillSword   = "sword"
	SkillShield  = "shield"
	SkillUnarmed = "unarmed"
)

// XPOutcome grades an exchange for XP purposes.
type XPOutcome string

// XP outcomes
const (
	XPSuccess XPOutcome = "success"
	XPPartial XPOutcome = "partial"
	XPMiss    XPOutcome = "miss"
	XPCrit    XPOutcome = "crit"
)

// xpAwards maps outcomes to the XP credited per exchange.
var xpAwards = map[XPOutcome]int{
	XPSuccess: 5,
	XPPartial: 3,
	XPMiss:    1,
	XPCrit:    8,
}

// XPFor returns the XP award for an outcome.
func XPFor(outcome XPOutcome) int {
	return xpAwards[outcome]
}

// Matchmaking band: range widens with each attempt up to the cap.
const (
	MatchBandStep = 0.05
	MatchBandCap  = 0.30
)

// MatchBand returns the rating band fraction for the given attempt index.
func MatchBand(attempt int) float64 {
	if attempt < 1 {
		attempt = 1
	}
	band := MatchBandStep * float64(attempt)
	if band > MatchBandCap {
		band = MatchBandCap
	}
	return band
}
