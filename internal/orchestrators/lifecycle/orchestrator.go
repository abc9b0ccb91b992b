// Package lifecycle implements session creation, roster setup, battle
// state initialisation, finalization, and supervisor recovery after a
// restart.
package lifecycle

//go:generate mockgen -destination=mock/mock_service.go -package=lifecyclemock github.com/reactiveburst/rbc-engine/internal/orchestrators/lifecycle Service,Launcher

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reactiveburst/rbc-engine/internal/analytics"
	"github.com/reactiveburst/rbc-engine/internal/engine/stats"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	"github.com/reactiveburst/rbc-engine/internal/metrics"
	"github.com/reactiveburst/rbc-engine/internal/pkg/clock"
	"github.com/reactiveburst/rbc-engine/internal/pkg/idgen"
	"github.com/reactiveburst/rbc-engine/internal/repositories/account"
	"github.com/reactiveburst/rbc-engine/internal/repositories/session"
	"github.com/reactiveburst/rbc-engine/internal/rules"
)

const recoveryConcurrency = 8

// Service defines session lifecycle operations.
type Service interface {
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)
	AddParticipant(ctx context.Context, input *AddParticipantInput) (*AddParticipantOutput, error)
	AddDummyParticipant(ctx context.Context, input *AddDummyParticipantInput) (*AddDummyParticipantOutput, error)
	InitBattleState(ctx context.Context, input *InitBattleStateInput) (*InitBattleStateOutput, error)
	Finalize(ctx context.Context, input *FinalizeInput) (*FinalizeOutput, error)
	RecoverActiveSessions(ctx context.Context, input *RecoverActiveSessionsInput) (*RecoverActiveSessionsOutput, error)
}

// Launcher starts a supervisor for a session. The supervisor registry
// implements it.
type Launcher interface {
	Launch(sessionID string)
}

// Config holds the dependencies for the lifecycle orchestrator
type Config struct {
	SessionRepo session.Repository
	AccountRepo account.Repository
	Clock       clock.Clock
	IDGenerator idgen.Generator
	Metrics     *metrics.Metrics
	Analytics   analytics.Emitter
	// Launcher is optional; when nil, recovery reports sessions without
	// relaunching supervisors.
	Launcher Launcher
	// HistoryTTL overrides the default retention for finished-session
	// history keys; zero selects the default.
	HistoryTTL time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.SessionRepo == nil {
		vb.RequiredField("SessionRepo")
	}
	if c.AccountRepo == nil {
		vb.RequiredField("AccountRepo")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Metrics == nil {
		vb.RequiredField("Metrics")
	}
	if c.Analytics == nil {
		vb.RequiredField("Analytics")
	}

	return vb.Build()
}

type orchestrator struct {
	sessionRepo session.Repository
	accountRepo account.Repository
	clock       clock.Clock
	idGen       idgen.Generator
	metrics     *metrics.Metrics
	analytics   analytics.Emitter
	launcher    Launcher
	historyTTL  time.Duration
}

// NewOrchestrator creates a new lifecycle orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	ttl := cfg.HistoryTTL
	if ttl <= 0 {
		ttl = rules.HistoryTTL
	}

	return &orchestrator{
		sessionRepo: cfg.SessionRepo,
		accountRepo: cfg.AccountRepo,
		clock:       cfg.Clock,
		idGen:       cfg.IDGenerator,
		metrics:     cfg.Metrics,
		analytics:   cfg.Analytics,
		launcher:    cfg.Launcher,
		historyTTL:  ttl,
	}, nil
}

func (o *orchestrator) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil || input.Mode == "" {
		return nil, errors.InvalidArgument("mode cannot be empty")
	}

	meta := &combat.Meta{
		SessionID:  o.idGen.Generate(),
		StartTime:  o.clock.Now().Unix(),
		Active:     true,
		Mode:       input.Mode,
		BattleType: input.BattleType,
		Teams:      map[string][]string{},
		ActorsInfo: map[string]combat.ActorInfo{},
		DeadActors: []string{},
	}
	if err := o.sessionRepo.CreateMeta(ctx, meta); err != nil {
		return nil, err
	}

	o.metrics.SessionsStarted.Inc()
	slog.InfoContext(ctx, "session created",
		"session_id", meta.SessionID,
		"mode", meta.Mode,
		"battle_type", meta.BattleType)

	return &CreateSessionOutput{SessionID: meta.SessionID}, nil
}

func (o *orchestrator) AddParticipant(ctx context.Context, input *AddParticipantInput) (*AddParticipantOutput, error) {
	if input == nil || input.SessionID == "" || input.CharID == "" || input.Team == "" {
		return nil, errors.InvalidArgument("session ID, character ID, and team are required")
	}

	character, err := o.accountRepo.Get(ctx, input.CharID)
	if err != nil {
		return nil, err
	}
	if character.CombatSessionID != "" && character.CombatSessionID != input.SessionID {
		return nil, errors.FailedPreconditionf("character %s is already in session %s",
			input.CharID, character.CombatSessionID)
	}

	participant := buildParticipant(character, input.Team)
	if err := o.registerActor(ctx, input.SessionID, participant); err != nil {
		return nil, err
	}

	if err := o.accountRepo.SetCombatSession(ctx, input.CharID, input.SessionID); err != nil {
		return nil, err
	}
	if err := o.accountRepo.SetStatus(ctx, input.CharID, "combat:"+input.SessionID); err != nil {
		return nil, err
	}

	return &AddParticipantOutput{Participant: participant}, nil
}

// buildParticipant derives the in-session container from the persistent
// account record. Pools come from the aggregated stat set and the fighter
// enters with both pools full.
func buildParticipant(character *account.Character, team string) *combat.Participant {
	p := &combat.Participant{
		ID:        character.ID,
		Name:      character.Name,
		Team:      team,
		BaseStats: character.Stats,
		Abilities: character.Abilities,
		Equipment: character.Equipment,
		Belt:      character.Belt,
	}

	aggregated := stats.Aggregate(stats.InputFromParticipant(p))
	hpMax := int(aggregated.Get(rules.StatHPMax))
	if hpMax <= 0 {
		hpMax = 1
	}
	energyMax := int(aggregated.Get(rules.StatEnergyMax))
	if energyMax < 0 {
		energyMax = 0
	}

	p.State = combat.FighterState{
		HPCurrent:     hpMax,
		HPMax:         hpMax,
		EnergyCurrent: energyMax,
		EnergyMax:     energyMax,
		Tokens:        map[combat.Token]int{},
		XPBuffer:      map[string]int{},
		PenaltyTimer:  int(rules.MoveTimeout(0).Seconds()),
	}
	return p
}

func (o *orchestrator) AddDummyParticipant(ctx context.Context, input *AddDummyParticipantInput) (*AddDummyParticipantOutput, error) {
	if input == nil || input.SessionID == "" || input.Team == "" {
		return nil, errors.InvalidArgument("session ID and team are required")
	}
	if input.HP <= 0 {
		return nil, errors.InvalidArgument("dummy HP must be positive")
	}

	name := input.Name
	if name == "" {
		name = "Shadow"
	}
	baseStats := input.BaseStats
	if baseStats == nil {
		baseStats = map[string]float64{}
	}

	participant := &combat.Participant{
		ID:        o.idGen.Generate(),
		Name:      name,
		Team:      input.Team,
		IsAI:      true,
		BaseStats: baseStats,
		Abilities: input.Abilities,
		Equipment: input.Equipment,
		State: combat.FighterState{
			HPCurrent:     input.HP,
			HPMax:         input.HP,
			EnergyCurrent: input.Energy,
			EnergyMax:     input.Energy,
			Tokens:        map[combat.Token]int{},
			XPBuffer:      map[string]int{},
			PenaltyTimer:  int(rules.MoveTimeout(0).Seconds()),
		},
	}
	if err := o.registerActor(ctx, input.SessionID, participant); err != nil {
		return nil, err
	}

	return &AddDummyParticipantOutput{Participant: participant}, nil
}

// registerActor persists the container and records it in the session
// roster.
func (o *orchestrator) registerActor(ctx context.Context, sessionID string, p *combat.Participant) error {
	meta, err := o.sessionRepo.GetMeta(ctx, sessionID)
	if err != nil {
		return err
	}
	if !meta.Active {
		return errors.FailedPreconditionf("session %s is finished", sessionID)
	}
	if _, taken := meta.ActorsInfo[p.ID]; taken {
		return errors.AlreadyExistsf("participant %s already in session %s", p.ID, sessionID)
	}

	if err := o.sessionRepo.SaveActor(ctx, sessionID, p); err != nil {
		return err
	}

	if meta.Teams == nil {
		meta.Teams = map[string][]string{}
	}
	if meta.ActorsInfo == nil {
		meta.ActorsInfo = map[string]combat.ActorInfo{}
	}
	meta.Teams[p.Team] = append(meta.Teams[p.Team], p.ID)
	meta.ActorsInfo[p.ID] = combat.ActorInfo{Name: p.Name, Team: p.Team, IsAI: p.IsAI}
	return o.sessionRepo.UpdateRoster(ctx, meta)
}

func (o *orchestrator) InitBattleState(ctx context.Context, input *InitBattleStateInput) (*InitBattleStateOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	meta, err := o.sessionRepo.GetMeta(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	actors, err := o.sessionRepo.ListActors(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if len(meta.Teams) < 2 {
		return nil, errors.FailedPrecondition("battle needs at least two teams")
	}

	for _, actor := range actors {
		enemies := opposingIDs(meta, actor.Team)
		if len(enemies) == 0 {
			return nil, errors.FailedPreconditionf("participant %s has no opponents", actor.ID)
		}

		actor.State.Targets = enemies
		charges := rules.SwitchCharges(len(enemies))
		actor.State.SwitchCharges = charges
		actor.State.MaxSwitchCharges = charges

		if err := o.sessionRepo.SaveActor(ctx, input.SessionID, actor); err != nil {
			return nil, err
		}
		if err := o.sessionRepo.SeedExchangeQueue(ctx, input.SessionID, actor.ID, enemies); err != nil {
			return nil, err
		}
	}

	slog.InfoContext(ctx, "battle state initialised",
		"session_id", input.SessionID,
		"participants", len(actors))
	return &InitBattleStateOutput{}, nil
}

// opposingIDs returns every member of every other team, sorted for a
// stable target order.
func opposingIDs(meta *combat.Meta, team string) []string {
	var ids []string
	for otherTeam, members := range meta.Teams {
		if otherTeam == team {
			continue
		}
		ids = append(ids, members...)
	}
	sort.Strings(ids)
	return ids
}

func (o *orchestrator) Finalize(ctx context.Context, input *FinalizeInput) (*FinalizeOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	// Flip active first so a crash below never resurrects the session.
	won, err := o.sessionRepo.MarkFinished(ctx, input.SessionID, input.Winner, o.clock.Now().Unix())
	if err != nil {
		return nil, err
	}
	if !won {
		return &FinalizeOutput{Finalized: false}, nil
	}

	meta, err := o.sessionRepo.GetMeta(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	actors, err := o.sessionRepo.ListActors(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	// Everything below is best effort; the session is already closed.
	actorIDs := make([]string, 0, len(actors))
	for _, actor := range actors {
		actorIDs = append(actorIDs, actor.ID)
		if actor.IsAI {
			continue
		}
		o.persistParticipant(ctx, input.SessionID, actor)
	}

	if err := o.sessionRepo.ExpireHistory(ctx, input.SessionID, actorIDs, o.historyTTL); err != nil {
		slog.WarnContext(ctx, "failed to expire session history",
			"session_id", input.SessionID,
			"error", err.Error())
	}

	go o.emitAnalytics(meta, actors)

	o.metrics.SessionsFinished.WithLabelValues(string(meta.Mode)).Inc()
	slog.InfoContext(ctx, "session finalized",
		"session_id", input.SessionID,
		"winner", input.Winner)

	return &FinalizeOutput{Finalized: true}, nil
}

// persistParticipant writes one player's session outcome back to durable
// state: buffered XP, vitals, and the session binding. Failures are
// logged, never propagated.
func (o *orchestrator) persistParticipant(ctx context.Context, sessionID string, actor *combat.Participant) {
	if len(actor.State.XPBuffer) > 0 {
		if err := o.accountRepo.AddSkillXP(ctx, actor.ID, actor.State.XPBuffer); err != nil {
			slog.WarnContext(ctx, "failed to flush skill xp",
				"session_id", sessionID,
				"char_id", actor.ID,
				"error", err.Error())
		}
	}
	if err := o.accountRepo.SaveVitals(ctx, actor.ID, actor.State.HPCurrent, actor.State.EnergyCurrent); err != nil {
		slog.WarnContext(ctx, "failed to write back vitals",
			"session_id", sessionID,
			"char_id", actor.ID,
			"error", err.Error())
	}
	if err := o.accountRepo.ClearCombatSession(ctx, actor.ID); err != nil {
		slog.WarnContext(ctx, "failed to clear combat session binding",
			"session_id", sessionID,
			"char_id", actor.ID,
			"error", err.Error())
	}
	if err := o.accountRepo.ClearStatus(ctx, actor.ID); err != nil {
		slog.WarnContext(ctx, "failed to clear player status",
			"session_id", sessionID,
			"char_id", actor.ID,
			"error", err.Error())
	}
}

// emitAnalytics builds and dispatches the session summary. Runs detached
// from the finalize call with its own timeout.
func (o *orchestrator) emitAnalytics(meta *combat.Meta, actors []*combat.Participant) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	summary := &analytics.SessionSummary{
		SessionID:  meta.SessionID,
		Mode:       string(meta.Mode),
		BattleType: string(meta.BattleType),
		Winner:     meta.Winner,
		StartTime:  meta.StartTime,
		EndTime:    meta.EndTime,
		Duration:   time.Duration(meta.EndTime-meta.StartTime) * time.Second,
	}
	for _, actor := range actors {
		summary.Participants = append(summary.Participants, analytics.ParticipantSummary{
			CharID:        actor.ID,
			Team:          actor.Team,
			IsAI:          actor.IsAI,
			Survived:      actor.Alive(),
			ExchangeCount: actor.State.ExchangeCount,
			XPEarned:      actor.State.XPBuffer,
		})
	}

	if err := o.analytics.Emit(ctx, summary); err != nil {
		slog.WarnContext(ctx, "analytics dispatch failed",
			"session_id", meta.SessionID,
			"error", err.Error())
	}
}

func (o *orchestrator) RecoverActiveSessions(ctx context.Context, _ *RecoverActiveSessionsInput) (*RecoverActiveSessionsOutput, error) {
	sessionIDs, err := o.sessionRepo.ScanActiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessionIDs) == 0 {
		return &RecoverActiveSessionsOutput{}, nil
	}
	if o.launcher == nil {
		slog.WarnContext(ctx, "no supervisor launcher configured, skipping relaunch",
			"sessions", len(sessionIDs))
		return &RecoverActiveSessionsOutput{SessionIDs: sessionIDs}, nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(recoveryConcurrency)
	for _, sessionID := range sessionIDs {
		g.Go(func() error {
			o.launcher.Launch(sessionID)
			slog.Info("supervisor relaunched", "session_id", sessionID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &RecoverActiveSessionsOutput{SessionIDs: sessionIDs}, nil
}
