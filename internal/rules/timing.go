package rules

import "time"

// Move deadlines by AFK penalty level. Successful participation resets the
// level to zero.
var afkTimeouts = [...]time.Duration{
	60 * time.Second,
	50 * time.Second,
	40 * time.Second,
	30 * time.Second,
	20 * time.Second,
}

// MaxAFKLevel is the deepest penalty step.
const MaxAFKLevel = len(afkTimeouts) - 1

// MoveTimeout returns the move deadline for a penalty level, clamping
// out-of-range levels to the ladder ends.
func MoveTimeout(afkLevel int) time.Duration {
	if afkLevel < 0 {
		afkLevel = 0
	}
	if afkLevel > MaxAFKLevel {
		afkLevel = MaxAFKLevel
	}
	return afkTimeouts[afkLevel]
}

// Supervisor pacing.
const (
	// SupervisorBusySleep is the pause after a cycle that resolved work.
	SupervisorBusySleep = 100 * time.Millisecond
	// SupervisorIdleSleep is the pause after an idle cycle.
	SupervisorIdleSleep = 500 * time.Millisecond
	// SupervisorErrorBackoff is the pause after an iteration failure.
	SupervisorErrorBackoff = 1 * time.Second
)

// HistoryTTL is the default retention for finished-session history keys.
const HistoryTTL = 24 * time.Hour

// MatchRequestTTL bounds how long an arena request record lives without a
// heartbeat from check_and_match.
const MatchRequestTTL = 5 * time.Minute

// Switch charge seeding: base + floor(enemies/2), capped at enemies*5.
const BaseSwitchCharges = 2

// SwitchCharges computes the initial tactical switch budget for a
// participant facing the given number of enemies.
func SwitchCharges(enemies int) int {
	charges := BaseSwitchCharges + enemies/2
	if cap := enemies * 5; charges > cap {
		charges = cap
	}
	return charges
}
