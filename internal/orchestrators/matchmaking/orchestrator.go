// Package matchmaking implements the 1v1 arena queue: rating-banded
// opponent search with claim-them-first semantics and an AI shadow
// fallback after a configured wait.
package matchmaking

//go:generate mockgen -destination=mock/mock_service.go -package=matchmakingmock github.com/reactiveburst/rbc-engine/internal/orchestrators/matchmaking Service

import (
	"context"
	"log/slog"
	"time"

	"github.com/reactiveburst/rbc-engine/internal/engine/stats"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	"github.com/reactiveburst/rbc-engine/internal/metrics"
	"github.com/reactiveburst/rbc-engine/internal/orchestrators/lifecycle"
	"github.com/reactiveburst/rbc-engine/internal/pkg/clock"
	"github.com/reactiveburst/rbc-engine/internal/repositories/account"
	"github.com/reactiveburst/rbc-engine/internal/repositories/matchqueue"
	"github.com/reactiveburst/rbc-engine/internal/rules"
)

// Default shadow opponent pools when the config leaves them zero.
const (
	defaultShadowHP     = 100
	defaultShadowEnergy = 50

	defaultMatchTimeout = 60 * time.Second
)

// Arena teams are fixed tags; the queuing character always lands on blue.
const (
	teamSelf     = "blue"
	teamOpponent = "red"
)

// Service defines the arena matchmaking operations.
type Service interface {
	JoinQueue(ctx context.Context, input *JoinQueueInput) (*JoinQueueOutput, error)
	CheckAndMatch(ctx context.Context, input *CheckAndMatchInput) (*CheckAndMatchOutput, error)
	CancelQueue(ctx context.Context, input *CancelQueueInput) (*CancelQueueOutput, error)
	CreateShadowBattle(ctx context.Context, input *CreateShadowBattleInput) (*CreateShadowBattleOutput, error)
}

// Config holds the dependencies for the matchmaking orchestrator
type Config struct {
	QueueRepo   matchqueue.Repository
	AccountRepo account.Repository
	Lifecycle   lifecycle.Service
	Clock       clock.Clock
	Metrics     *metrics.Metrics
	// Launcher is optional; when nil, created sessions are not supervised
	// until recovery picks them up.
	Launcher lifecycle.Launcher

	// MatchTimeout is the wait before a shadow battle is allowed; zero
	// selects the default.
	MatchTimeout time.Duration
	// RequestTTL bounds the request record's life; zero selects the
	// default.
	RequestTTL time.Duration

	// Shadow opponent pools; zero selects the defaults.
	ShadowHP     int
	ShadowEnergy int
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.QueueRepo == nil {
		vb.RequiredField("QueueRepo")
	}
	if c.AccountRepo == nil {
		vb.RequiredField("AccountRepo")
	}
	if c.Lifecycle == nil {
		vb.RequiredField("Lifecycle")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.Metrics == nil {
		vb.RequiredField("Metrics")
	}

	return vb.Build()
}

type orchestrator struct {
	queueRepo   matchqueue.Repository
	accountRepo account.Repository
	lifecycle   lifecycle.Service
	clock       clock.Clock
	metrics     *metrics.Metrics
	launcher    lifecycle.Launcher

	matchTimeout time.Duration
	requestTTL   time.Duration
	shadowHP     int
	shadowEnergy int
}

// NewOrchestrator creates a new matchmaking orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	timeout := cfg.MatchTimeout
	if timeout <= 0 {
		timeout = defaultMatchTimeout
	}
	ttl := cfg.RequestTTL
	if ttl <= 0 {
		ttl = rules.MatchRequestTTL
	}
	shadowHP := cfg.ShadowHP
	if shadowHP <= 0 {
		shadowHP = defaultShadowHP
	}
	shadowEnergy := cfg.ShadowEnergy
	if shadowEnergy < 0 {
		shadowEnergy = defaultShadowEnergy
	}

	return &orchestrator{
		queueRepo:    cfg.QueueRepo,
		accountRepo:  cfg.AccountRepo,
		lifecycle:    cfg.Lifecycle,
		clock:        cfg.Clock,
		metrics:      cfg.Metrics,
		launcher:     cfg.Launcher,
		matchTimeout: timeout,
		requestTTL:   ttl,
		shadowHP:     shadowHP,
		shadowEnergy: shadowEnergy,
	}, nil
}

func (o *orchestrator) JoinQueue(ctx context.Context, input *JoinQueueInput) (*JoinQueueOutput, error) {
	if input == nil || input.CharID == "" || input.Mode == "" {
		return nil, errors.InvalidArgument("character ID and mode are required")
	}

	character, err := o.accountRepo.Get(ctx, input.CharID)
	if err != nil {
		return nil, err
	}
	if character.CombatSessionID != "" {
		return nil, errors.FailedPreconditionf("character %s is already in session %s",
			input.CharID, character.CombatSessionID)
	}

	aggregated := stats.Aggregate(&stats.Input{
		Base:      character.Stats,
		Equipment: character.Equipment,
	})
	gs := stats.GearScore(aggregated)

	req := &combat.MatchRequest{
		CharID:    input.CharID,
		StartTime: o.clock.Now().Unix(),
		GS:        gs,
		Mode:      input.Mode,
	}
	if err := o.queueRepo.Enqueue(ctx, req, o.requestTTL); err != nil {
		return nil, err
	}
	if err := o.accountRepo.SetStatus(ctx, input.CharID, "arena:queue"); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "character queued for arena",
		"char_id", input.CharID,
		"mode", input.Mode,
		"gs", gs)
	return &JoinQueueOutput{GS: gs}, nil
}

func (o *orchestrator) CheckAndMatch(ctx context.Context, input *CheckAndMatchInput) (*CheckAndMatchOutput, error) {
	if input == nil || input.CharID == "" {
		return nil, errors.InvalidArgument("character ID cannot be empty")
	}

	req, err := o.queueRepo.GetRequest(ctx, input.CharID)
	if err != nil {
		return nil, err
	}

	band := rules.MatchBand(input.Attempt)
	candidates, err := o.queueRepo.FindCandidates(ctx, req.Mode,
		req.GS*(1-band), req.GS*(1+band), input.CharID)
	if err != nil {
		return nil, err
	}

	// Claim the opponent before touching our own queue entry; a lost
	// claim means another matcher took them, so try the next candidate.
	var opponentID string
	for _, candidate := range candidates {
		claimed, err := o.queueRepo.Claim(ctx, req.Mode, candidate.CharID)
		if err != nil {
			return nil, err
		}
		if claimed {
			opponentID = candidate.CharID
			break
		}
	}
	if opponentID == "" {
		// Nobody claimable; once the character has waited out the
		// matchmaking window, hand them a shadow opponent instead.
		if req.WaitDuration(o.clock.Now()) < o.matchTimeout {
			return &CheckAndMatchOutput{}, nil
		}
		sessionID, dummyID, err := o.createShadowSession(ctx, req, input.CharID)
		if err != nil {
			return nil, err
		}
		return &CheckAndMatchOutput{
			Matched:    true,
			Shadow:     true,
			SessionID:  sessionID,
			OpponentID: dummyID,
		}, nil
	}

	if err := o.queueRepo.Remove(ctx, req.Mode, opponentID); err != nil {
		return nil, err
	}
	if err := o.queueRepo.Remove(ctx, req.Mode, input.CharID); err != nil {
		return nil, err
	}

	sessionID, err := o.createPvPSession(ctx, req.Mode, input.CharID, opponentID)
	if err != nil {
		return nil, err
	}

	o.metrics.MatchesMade.Inc()
	slog.InfoContext(ctx, "arena match made",
		"session_id", sessionID,
		"char_id", input.CharID,
		"opponent_id", opponentID)
	return &CheckAndMatchOutput{
		Matched:    true,
		SessionID:  sessionID,
		OpponentID: opponentID,
	}, nil
}

// createPvPSession builds, initialises, and supervises a duel between two
// matched characters.
func (o *orchestrator) createPvPSession(ctx context.Context, mode combat.Mode, charID, opponentID string) (string, error) {
	created, err := o.lifecycle.CreateSession(ctx, &lifecycle.CreateSessionInput{
		Mode:       mode,
		BattleType: combat.BattleDuel,
	})
	if err != nil {
		return "", err
	}

	if _, err := o.lifecycle.AddParticipant(ctx, &lifecycle.AddParticipantInput{
		SessionID: created.SessionID,
		CharID:    charID,
		Team:      teamSelf,
	}); err != nil {
		return "", err
	}
	if _, err := o.lifecycle.AddParticipant(ctx, &lifecycle.AddParticipantInput{
		SessionID: created.SessionID,
		CharID:    opponentID,
		Team:      teamOpponent,
	}); err != nil {
		return "", err
	}
	if _, err := o.lifecycle.InitBattleState(ctx, &lifecycle.InitBattleStateInput{
		SessionID: created.SessionID,
	}); err != nil {
		return "", err
	}

	if o.launcher != nil {
		o.launcher.Launch(created.SessionID)
	}
	return created.SessionID, nil
}

func (o *orchestrator) CancelQueue(ctx context.Context, input *CancelQueueInput) (*CancelQueueOutput, error) {
	if input == nil || input.CharID == "" {
		return nil, errors.InvalidArgument("character ID cannot be empty")
	}

	req, err := o.queueRepo.GetRequest(ctx, input.CharID)
	if err != nil {
		return nil, err
	}
	if err := o.queueRepo.Remove(ctx, req.Mode, input.CharID); err != nil {
		return nil, err
	}
	if err := o.accountRepo.ClearStatus(ctx, input.CharID); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "character left arena queue", "char_id", input.CharID)
	return &CancelQueueOutput{}, nil
}

func (o *orchestrator) CreateShadowBattle(ctx context.Context, input *CreateShadowBattleInput) (*CreateShadowBattleOutput, error) {
	if input == nil || input.CharID == "" {
		return nil, errors.InvalidArgument("character ID cannot be empty")
	}

	req, err := o.queueRepo.GetRequest(ctx, input.CharID)
	if err != nil {
		return nil, err
	}
	if req.WaitDuration(o.clock.Now()) < o.matchTimeout {
		return &CreateShadowBattleOutput{}, nil
	}

	sessionID, _, err := o.createShadowSession(ctx, req, input.CharID)
	if err != nil {
		return nil, err
	}
	return &CreateShadowBattleOutput{
		Created:   true,
		SessionID: sessionID,
	}, nil
}

// createShadowSession dequeues the character and builds a supervised duel
// against an AI dummy. It returns the session and the dummy's ID.
func (o *orchestrator) createShadowSession(ctx context.Context, req *combat.MatchRequest, charID string) (string, string, error) {
	if err := o.queueRepo.Remove(ctx, req.Mode, charID); err != nil {
		return "", "", err
	}

	created, err := o.lifecycle.CreateSession(ctx, &lifecycle.CreateSessionInput{
		Mode:       req.Mode,
		BattleType: combat.BattleDuel,
	})
	if err != nil {
		return "", "", err
	}
	if _, err := o.lifecycle.AddParticipant(ctx, &lifecycle.AddParticipantInput{
		SessionID: created.SessionID,
		CharID:    charID,
		Team:      teamSelf,
	}); err != nil {
		return "", "", err
	}
	dummy, err := o.lifecycle.AddDummyParticipant(ctx, &lifecycle.AddDummyParticipantInput{
		SessionID: created.SessionID,
		Team:      teamOpponent,
		HP:        o.shadowHP,
		Energy:    o.shadowEnergy,
	})
	if err != nil {
		return "", "", err
	}
	if _, err := o.lifecycle.InitBattleState(ctx, &lifecycle.InitBattleStateInput{
		SessionID: created.SessionID,
	}); err != nil {
		return "", "", err
	}

	if o.launcher != nil {
		o.launcher.Launch(created.SessionID)
	}

	o.metrics.ShadowBattles.Inc()
	slog.InfoContext(ctx, "shadow battle created",
		"session_id", created.SessionID,
		"char_id", charID)
	return created.SessionID, dummy.Participant.ID, nil
}
