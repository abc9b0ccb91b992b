// Package supervisor runs the per-session resolution loop: one goroutine
// per active session that synthesizes AI intents, pairs mutual intents,
// forces passives on expiry, and hands victory off to finalization. The
// registry tracks running loops and implements lifecycle.Launcher.
package supervisor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/reactiveburst/rbc-engine/internal/engine/ai"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	"github.com/reactiveburst/rbc-engine/internal/metrics"
	combatsvc "github.com/reactiveburst/rbc-engine/internal/orchestrators/combat"
	"github.com/reactiveburst/rbc-engine/internal/pkg/clock"
	"github.com/reactiveburst/rbc-engine/internal/repositories/session"
	"github.com/reactiveburst/rbc-engine/internal/rules"
)

// FinalizeFunc closes a session with the given winning team. Wired to the
// lifecycle orchestrator after both are constructed.
type FinalizeFunc func(ctx context.Context, sessionID, winner string) error

// Config holds the dependencies for the supervisor registry
type Config struct {
	SessionRepo session.Repository
	Combat      combatsvc.Service
	Picker      *ai.Picker
	Clock       clock.Clock
	Metrics     *metrics.Metrics

	// Pacing overrides; zero selects the defaults.
	BusySleep    time.Duration
	IdleSleep    time.Duration
	ErrorBackoff time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.SessionRepo == nil {
		vb.RequiredField("SessionRepo")
	}
	if c.Combat == nil {
		vb.RequiredField("Combat")
	}
	if c.Picker == nil {
		vb.RequiredField("Picker")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.Metrics == nil {
		vb.RequiredField("Metrics")
	}

	return vb.Build()
}

// Registry owns the supervisor goroutines, at most one per session.
type Registry struct {
	sessionRepo session.Repository
	combat      combatsvc.Service
	picker      *ai.Picker
	clock       clock.Clock
	metrics     *metrics.Metrics

	busySleep    time.Duration
	idleSleep    time.Duration
	errorBackoff time.Duration

	mu       sync.Mutex
	running  map[string]context.CancelFunc
	finalize FinalizeFunc
	wg       sync.WaitGroup
}

// NewRegistry creates a supervisor registry with the provided dependencies.
// SetFinalizer must be called before the first Launch.
func NewRegistry(cfg *Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	busy := cfg.BusySleep
	if busy <= 0 {
		busy = rules.SupervisorBusySleep
	}
	idle := cfg.IdleSleep
	if idle <= 0 {
		idle = rules.SupervisorIdleSleep
	}
	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = rules.SupervisorErrorBackoff
	}

	return &Registry{
		sessionRepo:  cfg.SessionRepo,
		combat:       cfg.Combat,
		picker:       cfg.Picker,
		clock:        cfg.Clock,
		metrics:      cfg.Metrics,
		busySleep:    busy,
		idleSleep:    idle,
		errorBackoff: backoff,
		running:      map[string]context.CancelFunc{},
	}, nil
}

// SetFinalizer wires the finalization hook. Separate from construction
// because the lifecycle orchestrator needs the registry as its Launcher.
func (r *Registry) SetFinalizer(fn FinalizeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalize = fn
}

// Launch starts a supervisor for the session unless one is already
// running. Implements lifecycle.Launcher.
func (r *Registry) Launch(sessionID string) {
	r.mu.Lock()
	if _, ok := r.running[sessionID]; ok {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.running[sessionID] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	r.metrics.ActiveSessions.Inc()
	slog.Info("supervisor started", "session_id", sessionID)
	go r.run(ctx, sessionID)
}

// Running reports whether the session has a live supervisor.
func (r *Registry) Running(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[sessionID]
	return ok
}

// Stop cancels one session's supervisor if it is running.
func (r *Registry) Stop(sessionID string) {
	r.mu.Lock()
	cancel, ok := r.running[sessionID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels every supervisor and waits for them to exit, bounded by
// the context.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, cancel := range r.running {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) run(ctx context.Context, sessionID string) {
	defer func() {
		r.mu.Lock()
		delete(r.running, sessionID)
		r.mu.Unlock()
		r.metrics.ActiveSessions.Dec()
		r.wg.Done()
		slog.Info("supervisor stopped", "session_id", sessionID)
	}()

	for {
		worked, finished, err := r.cycle(ctx, sessionID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "supervisor cycle failed",
				"session_id", sessionID,
				"error", err.Error())
			if !r.sleep(ctx, r.errorBackoff) {
				return
			}
		case finished:
			return
		case worked:
			if !r.sleep(ctx, r.busySleep) {
				return
			}
		default:
			if !r.sleep(ctx, r.idleSleep) {
				return
			}
		}
	}
}

// sleep pauses for d, returning false when the context was cancelled
// first.
func (r *Registry) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// cycle runs one supervisor iteration: victory check, intent pruning, AI
// synthesis, then resolution with mutual pairs preferred over expiries. At
// most one exchange per pair per cycle.
func (r *Registry) cycle(ctx context.Context, sessionID string) (worked, finished bool, err error) {
	meta, err := r.sessionRepo.GetMeta(ctx, sessionID)
	if err != nil {
		return false, false, err
	}
	if !meta.Active {
		return false, true, nil
	}

	if aliveTeams := meta.AliveTeams(); len(aliveTeams) <= 1 {
		winner := ""
		if len(aliveTeams) == 1 {
			winner = aliveTeams[0]
		}
		if err := r.finalizeSession(ctx, sessionID, winner); err != nil {
			return false, false, err
		}
		return true, true, nil
	}

	actors, err := r.sessionRepo.ListActors(ctx, sessionID)
	if err != nil {
		return false, false, err
	}
	byID := make(map[string]*combat.Participant, len(actors))
	aliveIDs := make([]string, 0, len(actors))
	for _, actor := range actors {
		byID[actor.ID] = actor
		if actor.Alive() && !meta.IsDead(actor.ID) {
			aliveIDs = append(aliveIDs, actor.ID)
		}
	}
	sort.Strings(aliveIDs)

	intents, err := r.collectIntents(ctx, sessionID, meta, byID, aliveIDs)
	if err != nil {
		return false, false, err
	}

	now := r.clock.Now().Unix()
	if err := r.synthesizeAIMoves(ctx, sessionID, byID, aliveIDs, intents, now); err != nil {
		return false, false, err
	}

	deadNow := map[string]bool{}
	handled := map[string]bool{}

	resolve := func(actorID string, move *combat.Move, targetID string, answer *combat.Move, forcedID string) (bool, error) {
		out, err := r.combat.ResolveExchange(ctx, &combatsvc.ResolveExchangeInput{
			SessionID:            sessionID,
			ActorAID:             actorID,
			MoveA:                move,
			ActorBID:             targetID,
			MoveB:                answer,
			ForcedPassiveActorID: forcedID,
		})
		if err != nil {
			return false, err
		}
		if out.ADead {
			deadNow[actorID] = true
		}
		if out.BDead {
			deadNow[targetID] = true
		}
		if out.Winner != "" {
			if err := r.finalizeSession(ctx, sessionID, out.Winner); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil
	}

	// Mutual pairs first so a reciprocated intent never resolves as an
	// expiry.
	for _, actorID := range aliveIDs {
		for _, targetID := range sortedTargets(intents[actorID]) {
			key := pairKey(actorID, targetID)
			if handled[key] || deadNow[actorID] || deadNow[targetID] {
				continue
			}
			answer := intents[targetID][actorID]
			if answer == nil {
				continue
			}
			handled[key] = true
			worked = true
			over, err := resolve(actorID, intents[actorID][targetID], targetID, answer, "")
			if err != nil {
				return worked, false, err
			}
			if over {
				return true, true, nil
			}
		}
	}

	// Expired solo intents resolve against a forced passive.
	for _, actorID := range aliveIDs {
		for _, targetID := range sortedTargets(intents[actorID]) {
			key := pairKey(actorID, targetID)
			if handled[key] || deadNow[actorID] || deadNow[targetID] {
				continue
			}
			move := intents[actorID][targetID]
			if !move.Expired(now) {
				continue
			}
			handled[key] = true
			worked = true
			over, err := resolve(actorID, move, targetID, combat.PassiveMove(actorID, now), targetID)
			if err != nil {
				return worked, false, err
			}
			if over {
				return true, true, nil
			}
		}
	}

	return worked, false, nil
}

// collectIntents loads outstanding intents for each live actor, dropping
// intents that point at dead or unknown targets.
func (r *Registry) collectIntents(
	ctx context.Context,
	sessionID string,
	meta *combat.Meta,
	byID map[string]*combat.Participant,
	aliveIDs []string,
) (map[string]map[string]*combat.Move, error) {
	intents := make(map[string]map[string]*combat.Move, len(aliveIDs))
	for _, actorID := range aliveIDs {
		moves, err := r.sessionRepo.GetMoves(ctx, sessionID, actorID)
		if err != nil {
			return nil, err
		}
		for targetID := range moves {
			target, known := byID[targetID]
			if known && target.Alive() && !meta.IsDead(targetID) {
				continue
			}
			if err := r.sessionRepo.DeleteMove(ctx, sessionID, actorID, targetID); err != nil {
				return nil, err
			}
			delete(moves, targetID)
		}
		intents[actorID] = moves
	}
	return intents, nil
}

// synthesizeAIMoves posts an intent for every idle AI actor.
func (r *Registry) synthesizeAIMoves(
	ctx context.Context,
	sessionID string,
	byID map[string]*combat.Participant,
	aliveIDs []string,
	intents map[string]map[string]*combat.Move,
	now int64,
) error {
	for _, actorID := range aliveIDs {
		self := byID[actorID]
		if !self.IsAI || len(intents[actorID]) > 0 {
			continue
		}

		enemies := make([]*combat.Participant, 0, len(aliveIDs))
		threats := map[string]bool{}
		for _, otherID := range aliveIDs {
			other := byID[otherID]
			if other.Team == self.Team {
				continue
			}
			enemies = append(enemies, other)
			if intents[otherID][actorID] != nil {
				threats[otherID] = true
			}
		}

		deadline := now + int64(rules.MoveTimeout(self.State.AFKPenaltyLevel).Seconds())
		move := r.picker.PickMove(self, enemies, threats, deadline)
		if move == nil {
			continue
		}
		if err := r.sessionRepo.SetMove(ctx, sessionID, actorID, move); err != nil {
			return err
		}
		if intents[actorID] == nil {
			intents[actorID] = map[string]*combat.Move{}
		}
		intents[actorID][move.TargetID] = move
	}
	return nil
}

func (r *Registry) finalizeSession(ctx context.Context, sessionID, winner string) error {
	r.mu.Lock()
	finalize := r.finalize
	r.mu.Unlock()
	if finalize == nil {
		return errors.Internal("no finalizer configured")
	}
	return finalize(ctx, sessionID, winner)
}

// sortedTargets returns the intent target ids in a stable order.
func sortedTargets(moves map[string]*combat.Move) []string {
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// pairKey is order-independent so A→B and B→A share one exchange slot per
// cycle.
func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}
