package lifecycle

import (
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
)

// CreateSessionInput opens a new session shell; participants are added
// separately before InitBattleState.
type CreateSessionInput struct {
	Mode       combat.Mode
	BattleType combat.BattleType
}

// CreateSessionOutput carries the allocated session id.
type CreateSessionOutput struct {
	SessionID string
}

// AddParticipantInput binds a persistent character to a session.
type AddParticipantInput struct {
	SessionID string
	CharID    string
	Team      string
}

// AddParticipantOutput returns the initialised container.
type AddParticipantOutput struct {
	Participant *combat.Participant
}

// AddDummyParticipantInput synthesises an AI shadow with fixed vitals and
// no backing account.
type AddDummyParticipantInput struct {
	SessionID string
	Name      string
	Team      string
	HP        int
	Energy    int
	// BaseStats seeds the shadow's stat map; may be nil.
	BaseStats map[string]float64
	Abilities []string
	Equipment []combat.Item
}

// AddDummyParticipantOutput returns the shadow's container.
type AddDummyParticipantOutput struct {
	Participant *combat.Participant
}

// InitBattleStateInput freezes the roster into target lists, switch
// charges, and exchange queues.
type InitBattleStateInput struct {
	SessionID string
}

// InitBattleStateOutput is empty; errors carry the failure.
type InitBattleStateOutput struct{}

// FinalizeInput ends a session with the given winning team.
type FinalizeInput struct {
	SessionID string
	Winner    string
}

// FinalizeOutput reports whether this call performed the finalization.
// False means another finalizer already won the race; the call was a
// no-op.
type FinalizeOutput struct {
	Finalized bool
}

// RecoverActiveSessionsInput is empty; recovery scans the whole keyspace.
type RecoverActiveSessionsInput struct{}

// RecoverActiveSessionsOutput lists the sessions whose supervisors were
// relaunched.
type RecoverActiveSessionsOutput struct {
	SessionIDs []string
}
