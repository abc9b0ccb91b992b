// Package matchqueue provides the repository over the arena matchmaking
// keyspace: a rating-ordered set per mode plus a short-TTL request record
// per queued character. Claim semantics are atomic removals so two
// concurrent matchers cannot both take the same opponent.
package matchqueue

import (
	"context"
	"time"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=matchqueuemock github.com/reactiveburst/rbc-engine/internal/repositories/matchqueue Repository

// Candidate is one queued character found inside a rating band.
type Candidate struct {
	CharID string
	GS     float64
}

// Repository defines storage operations for the arena match queue.
type Repository interface {
	// Enqueue writes the request record with a TTL and adds the character
	// to the mode's rating set.
	Enqueue(ctx context.Context, req *combat.MatchRequest, ttl time.Duration) error

	// GetRequest loads a queued character's request record. NotFound when
	// the character is not queued or the record expired.
	GetRequest(ctx context.Context, charID string) (*combat.MatchRequest, error)

	// FindCandidates returns queued characters with rating inside
	// [minGS, maxGS], excluding excludeCharID, ordered by rating.
	FindCandidates(ctx context.Context, mode combat.Mode, minGS, maxGS float64, excludeCharID string) ([]Candidate, error)

	// Claim atomically removes the character from the mode's rating set.
	// Returns false when another matcher already claimed them.
	Claim(ctx context.Context, mode combat.Mode, charID string) (bool, error)

	// Remove takes the character out of the queue entirely: rating set
	// entry and request record.
	Remove(ctx context.Context, mode combat.Mode, charID string) error

	// QueueLen returns the number of characters queued for the mode.
	QueueLen(ctx context.Context, mode combat.Mode) (int64, error)
}
