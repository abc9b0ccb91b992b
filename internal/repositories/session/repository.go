// Package session provides the repository for the combat session keyspace:
// metadata, participant containers, pending moves, exchange queues, and the
// combat log. All keys are scoped to one session id and carry a TTL only
// after finalization.
package session

import (
	"context"
	"time"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=sessionmock github.com/reactiveburst/rbc-engine/internal/repositories/session Repository

// Repository defines the storage operations for combat sessions.
type Repository interface {
	// CreateMeta writes the metadata of a new session. Fails with
	// AlreadyExists when the session id is taken.
	CreateMeta(ctx context.Context, meta *combat.Meta) error

	// GetMeta reads a session's metadata.
	GetMeta(ctx context.Context, sessionID string) (*combat.Meta, error)

	// UpdateRoster rewrites the teams, actor info, and dead set of a
	// session's metadata.
	UpdateRoster(ctx context.Context, meta *combat.Meta) error

	// MarkFinished atomically flips active from 1 to 0, recording winner
	// and end time. Returns false when the session was already finished,
	// making finalization idempotent.
	MarkFinished(ctx context.Context, sessionID, winner string, endTime int64) (bool, error)

	// SaveActor persists one participant container.
	SaveActor(ctx context.Context, sessionID string, p *combat.Participant) error

	// GetActor loads one participant container.
	GetActor(ctx context.Context, sessionID, charID string) (*combat.Participant, error)

	// ListActors loads all participant containers. Unparseable records
	// are skipped with a warning; the session must survive one corrupt
	// container.
	ListActors(ctx context.Context, sessionID string) ([]*combat.Participant, error)

	// SetMove stores an actor's intent keyed by target.
	SetMove(ctx context.Context, sessionID, actorID string, move *combat.Move) error

	// GetMoves returns an actor's outstanding intents keyed by target id.
	// Corrupt intents are skipped with a warning.
	GetMoves(ctx context.Context, sessionID, actorID string) (map[string]*combat.Move, error)

	// DeleteMove removes one intent.
	DeleteMove(ctx context.Context, sessionID, actorID, targetID string) error

	// SeedExchangeQueue replaces an actor's exchange queue with the given
	// opponent order.
	SeedExchangeQueue(ctx context.Context, sessionID, actorID string, opponents []string) error

	// RotateExchange removes one occurrence of the opponent from the
	// actor's queue and pushes it to the back.
	RotateExchange(ctx context.Context, sessionID, actorID, opponentID string) error

	// RemoveFromExchangeQueue removes every occurrence of the opponent,
	// used when the opponent dies.
	RemoveFromExchangeQueue(ctx context.Context, sessionID, actorID, opponentID string) error

	// ExchangeQueueLen returns the actor's queue depth.
	ExchangeQueueLen(ctx context.Context, sessionID, actorID string) (int64, error)

	// AppendLog appends one exchange record to the session log.
	AppendLog(ctx context.Context, sessionID string, entry *combat.LogEntry) error

	// GetLogs returns up to limit most recent raw log entries, oldest
	// first.
	GetLogs(ctx context.Context, sessionID string, limit int64) ([]string, error)

	// CountLogs returns the total number of log entries.
	CountLogs(ctx context.Context, sessionID string) (int64, error)

	// ExpireHistory puts a TTL on the history keys (meta, actors, logs)
	// and eagerly deletes per-actor move and exchange keys.
	ExpireHistory(ctx context.Context, sessionID string, actorIDs []string, ttl time.Duration) error

	// ScanActiveSessions returns the ids of all sessions whose metadata
	// still reads active=1. Used for supervisor recovery after restart.
	ScanActiveSessions(ctx context.Context) ([]string, error)
}
