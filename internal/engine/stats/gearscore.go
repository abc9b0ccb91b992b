package stats

import "github.com/reactiveburst/rbc-engine/internal/rules"

// GearScore condenses an aggregated stat set into the single matchmaking
// rating: pool depth plus average damage output.
func GearScore(a *Aggregated) float64 {
	avgPhysical := (a.Get(rules.StatPhysicalDamageMin) + a.Get(rules.StatPhysicalDamageMax)) / 2
	return a.Get(rules.StatHPMax)/10 +
		a.Get(rules.StatEnergyMax)/10 +
		avgPhysical +
		a.Get(rules.StatMagicalDamagePower)
}
