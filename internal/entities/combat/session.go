// Package combat defines the domain entities of the reactive burst combat
// engine: sessions, participants, moves, and the wire snapshots served to
// clients. These are data-only structs; all resolution math lives in the
// engine packages.
package combat

import "time"

// Mode identifies how a session was created.
type Mode string

// Session modes
const (
	ModePvE   Mode = "pve"
	ModeArena Mode = "arena_1v1"
)

// BattleType distinguishes roster shapes within a mode.
type BattleType string

// Battle types
const (
	BattleDuel  BattleType = "duel"
	BattleGroup BattleType = "group"
)

// ActorInfo is the roster entry kept in session metadata so the supervisor
// can evaluate victory without loading full containers.
type ActorInfo struct {
	Name string `json:"name"`
	Team string `json:"team"`
	IsAI bool   `json:"is_ai"`
}

// Meta is the session metadata hash. Active is monotonic: 1 to 0, never
// back.
type Meta struct {
	SessionID  string     `json:"session_id"`
	StartTime  int64      `json:"start_time"`
	Active     bool       `json:"active"`
	Mode       Mode       `json:"mode"`
	BattleType BattleType `json:"battle_type"`
	Winner     string     `json:"winner,omitempty"`
	EndTime    int64      `json:"end_time,omitempty"`

	// Teams maps team tag to member ids.
	Teams map[string][]string `json:"teams"`
	// ActorsInfo maps participant id to roster info.
	ActorsInfo map[string]ActorInfo `json:"actors_info"`
	// DeadActors lists participant ids at zero HP.
	DeadActors []string `json:"dead_actors"`
}

// IsDead reports whether the given participant id is in the dead set.
func (m *Meta) IsDead(id string) bool {
	for _, d := range m.DeadActors {
		if d == id {
			return true
		}
	}
	return false
}

// AliveTeams returns the team tags that still have at least one living
// member.
func (m *Meta) AliveTeams() []string {
	alive := make([]string, 0, len(m.Teams))
	for team, members := range m.Teams {
		for _, id := range members {
			if !m.IsDead(id) {
				alive = append(alive, team)
				break
			}
		}
	}
	return alive
}

// LogEntry records one resolved exchange: one narrative line per side plus
// the defenders' resulting HP/energy.
type LogEntry struct {
	Timestamp int64    `json:"ts"`
	Round     int      `json:"round"`
	ActorA    string   `json:"actor_a"`
	ActorB    string   `json:"actor_b"`
	Lines     []string `json:"lines"`
}

// Status values reported on dashboard snapshots.
const (
	StatusActive   = "active"
	StatusWaiting  = "waiting"
	StatusFinished = "finished"
)

// ActorSnapshot is the client-facing view of one participant.
type ActorSnapshot struct {
	CharID        string         `json:"char_id"`
	Name          string         `json:"name"`
	HPCurrent     int            `json:"hp_current"`
	HPMax         int            `json:"hp_max"`
	EnergyCurrent int            `json:"energy_current"`
	EnergyMax     int            `json:"energy_max"`
	Team          string         `json:"team"`
	IsDead        bool           `json:"is_dead"`
	Effects       []string       `json:"effects"`
	Tokens        map[Token]int  `json:"tokens"`
}

// Snapshot converts a participant to its wire view.
func (p *Participant) Snapshot() ActorSnapshot {
	effects := make([]string, 0, len(p.State.Effects))
	for _, e := range p.State.Effects {
		effects = append(effects, e.Name)
	}
	return ActorSnapshot{
		CharID:        p.ID,
		Name:          p.Name,
		HPCurrent:     p.State.HPCurrent,
		HPMax:         p.State.HPMax,
		EnergyCurrent: p.State.EnergyCurrent,
		EnergyMax:     p.State.EnergyMax,
		Team:          p.Team,
		IsDead:        !p.Alive(),
		Effects:       effects,
		Tokens:        p.State.Tokens,
	}
}

// Dashboard is the full snapshot returned by dashboard and move RPCs.
type Dashboard struct {
	SessionID     string          `json:"session_id"`
	Status        string          `json:"status"`
	Player        ActorSnapshot   `json:"player"`
	CurrentTarget *ActorSnapshot  `json:"current_target,omitempty"`
	Enemies       []ActorSnapshot `json:"enemies"`
	Allies        []ActorSnapshot `json:"allies"`
	QueueCount    int             `json:"queue_count"`
	SwitchCharges int             `json:"switch_charges"`
	LastLogs      []string        `json:"last_logs"`
	WinnerTeam    string          `json:"winner_team,omitempty"`
}

// MatchRequest is the short-TTL record behind a queued arena combatant.
type MatchRequest struct {
	CharID    string  `json:"char_id"`
	StartTime int64   `json:"start_time"`
	GS        float64 `json:"gs"`
	Mode      Mode    `json:"mode"`
}

// WaitDuration returns how long the request has been queued.
func (r *MatchRequest) WaitDuration(now time.Time) time.Duration {
	return now.Sub(time.Unix(r.StartTime, 0))
}
