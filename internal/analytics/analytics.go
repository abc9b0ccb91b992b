// Package analytics emits session summaries after finalization. Emission is
// fire-and-forget: a failed dispatch is logged and never blocks or fails
// the finalize path.
package analytics

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mock/mock_emitter.go -package=analyticsmock github.com/reactiveburst/rbc-engine/internal/analytics Emitter

// ParticipantSummary is per-combatant analytics for one finished session.
type ParticipantSummary struct {
	CharID        string         `json:"char_id"`
	Team          string         `json:"team"`
	IsAI          bool           `json:"is_ai"`
	Survived      bool           `json:"survived"`
	ExchangeCount int            `json:"exchange_count"`
	XPEarned      map[string]int `json:"xp_earned,omitempty"`
}

// SessionSummary is the analytics record published at finalize.
type SessionSummary struct {
	SessionID    string               `json:"session_id"`
	Mode         string               `json:"mode"`
	BattleType   string               `json:"battle_type"`
	Winner       string               `json:"winner"`
	StartTime    int64                `json:"start_time"`
	EndTime      int64                `json:"end_time"`
	Duration     time.Duration        `json:"duration_ns"`
	Participants []ParticipantSummary `json:"participants"`
}

// Emitter dispatches session summaries.
type Emitter interface {
	// Emit publishes one summary. Implementations log failures and return
	// them for observability, but callers must treat errors as
	// non-fatal.
	Emit(ctx context.Context, summary *SessionSummary) error

	// Close releases held resources.
	Close() error
}

// Noop discards every summary, used when no broker is configured.
type Noop struct{}

// Emit implements Emitter.
func (Noop) Emit(_ context.Context, _ *SessionSummary) error { return nil }

// Close implements Emitter.
func (Noop) Close() error { return nil }
