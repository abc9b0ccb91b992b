// Package combat implements the exchange resolver and the player-facing
// combat operations. The supervisor feeds it paired moves; RPC handlers
// call the rest.
package combat

//go:generate mockgen -destination=mock/mock_service.go -package=combatmock github.com/reactiveburst/rbc-engine/internal/orchestrators/combat Service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reactiveburst/rbc-engine/internal/engine/abilities"
	"github.com/reactiveburst/rbc-engine/internal/engine/calculator"
	"github.com/reactiveburst/rbc-engine/internal/engine/stats"
	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	"github.com/reactiveburst/rbc-engine/internal/metrics"
	"github.com/reactiveburst/rbc-engine/internal/pkg/clock"
	"github.com/reactiveburst/rbc-engine/internal/repositories/session"
	"github.com/reactiveburst/rbc-engine/internal/rules"
)

const lastLogsCount = 5

// Service defines combat operations: exchange resolution for the
// supervisor plus the player-facing RPC surface.
type Service interface {
	ResolveExchange(ctx context.Context, input *ResolveExchangeInput) (*ResolveExchangeOutput, error)
	RegisterMove(ctx context.Context, input *RegisterMoveInput) (*RegisterMoveOutput, error)
	GetDashboard(ctx context.Context, input *GetDashboardInput) (*GetDashboardOutput, error)
	SwitchTarget(ctx context.Context, input *SwitchTargetInput) (*SwitchTargetOutput, error)
	UseConsumable(ctx context.Context, input *UseConsumableInput) (*UseConsumableOutput, error)
	GetNextTarget(ctx context.Context, input *GetNextTargetInput) (*GetNextTargetOutput, error)
	GetLogs(ctx context.Context, input *GetLogsInput) (*GetLogsOutput, error)
}

// RegenHook applies passive regeneration to both sides after an exchange.
// The default is a no-op.
type RegenHook func(a, b *combat.Participant)

// Config holds the dependencies for the combat orchestrator
type Config struct {
	SessionRepo session.Repository
	Abilities   *abilities.Registry
	Calculator  *calculator.Calculator
	Clock       clock.Clock
	Metrics     *metrics.Metrics
	// RNG drives intent auto-repair (random replacement attack zone).
	RNG calculator.RNG
	// Regen is optional; nil disables passive regeneration.
	Regen RegenHook
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.SessionRepo == nil {
		vb.RequiredField("SessionRepo")
	}
	if c.Abilities == nil {
		vb.RequiredField("Abilities")
	}
	if c.Calculator == nil {
		vb.RequiredField("Calculator")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.Metrics == nil {
		vb.RequiredField("Metrics")
	}
	if c.RNG == nil {
		vb.RequiredField("RNG")
	}

	return vb.Build()
}

type orchestrator struct {
	sessionRepo session.Repository
	abilities   *abilities.Registry
	calc        *calculator.Calculator
	clock       clock.Clock
	metrics     *metrics.Metrics
	rng         calculator.RNG
	regen       RegenHook
}

// NewOrchestrator creates a new combat orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{
		sessionRepo: cfg.SessionRepo,
		abilities:   cfg.Abilities,
		calc:        cfg.Calculator,
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
		rng:         cfg.RNG,
		regen:       cfg.Regen,
	}, nil
}

// side bundles one combatant's resolution context for an exchange.
type side struct {
	actor      *combat.Participant
	move       *combat.Move
	flat       map[string]float64
	flags      calculator.Flags
	abilityKey string
}

func (o *orchestrator) ResolveExchange(ctx context.Context, input *ResolveExchangeInput) (*ResolveExchangeOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}
	if input.MoveA == nil || input.MoveB == nil {
		return nil, errors.InvalidArgument("both moves are required")
	}

	timer := o.clock.Now()

	actorA, err := o.sessionRepo.GetActor(ctx, input.SessionID, input.ActorAID)
	if err != nil {
		return nil, err
	}
	actorB, err := o.sessionRepo.GetActor(ctx, input.SessionID, input.ActorBID)
	if err != nil {
		return nil, err
	}

	sideA := o.prepareSide(ctx, input.SessionID, actorA, input.MoveA)
	sideB := o.prepareSide(ctx, input.SessionID, actorB, input.MoveB)

	resAB := o.calc.Resolve(&calculator.Input{
		Attacker:       sideA.flat,
		Defender:       sideB.flat,
		DefenderShield: actorB.State.EnergyCurrent,
		AttackZones:    sideA.move.AttackZones,
		BlockZones:     sideB.move.BlockZones,
		DamageType:     combat.DamagePhysical,
		Flags:          sideA.flags,
	})
	resBA := o.calc.Resolve(&calculator.Input{
		Attacker:       sideB.flat,
		Defender:       sideA.flat,
		DefenderShield: actorA.State.EnergyCurrent,
		AttackZones:    sideB.move.AttackZones,
		BlockZones:     sideA.move.BlockZones,
		DamageType:     combat.DamagePhysical,
		Flags:          sideB.flags,
	})

	o.abilities.ApplyPostCalc(sideA.abilityKey, resAB, actorA, actorB)
	o.abilities.ApplyPostCalc(sideB.abilityKey, resBA, actorB, actorA)

	o.abilities.Consume(sideA.abilityKey, actorA)
	o.abilities.Consume(sideB.abilityKey, actorB)

	o.creditXP(sideA, sideB, resAB)
	o.creditXP(sideB, sideA, resBA)

	o.applyResult(actorA, actorB, resAB)
	o.applyResult(actorB, actorA, resBA)

	if o.regen != nil {
		o.regen(actorA, actorB)
		clampVitals(actorA)
		clampVitals(actorB)
	}

	o.finishRound(actorA, input.ForcedPassiveActorID == input.ActorAID)
	o.finishRound(actorB, input.ForcedPassiveActorID == input.ActorBID)

	if err := o.sessionRepo.SaveActor(ctx, input.SessionID, actorA); err != nil {
		return nil, err
	}
	if err := o.sessionRepo.SaveActor(ctx, input.SessionID, actorB); err != nil {
		return nil, err
	}

	if err := o.appendExchangeLog(ctx, input.SessionID, actorA, actorB, resAB, resBA); err != nil {
		slog.WarnContext(ctx, "failed to append combat log",
			"session_id", input.SessionID,
			"error", err.Error())
	}

	o.removeResolvedMoves(ctx, input)
	o.rotateQueues(ctx, input.SessionID, actorA, actorB)

	output := &ResolveExchangeOutput{
		ResultAB: resAB,
		ResultBA: resBA,
		ADead:    !actorA.Alive(),
		BDead:    !actorB.Alive(),
	}

	winner, err := o.updateRosterAndVictory(ctx, input.SessionID, actorA, actorB)
	if err != nil {
		return nil, err
	}
	output.Winner = winner

	outcome := "mutual"
	if input.ForcedPassiveActorID != "" {
		outcome = "forced_passive"
		o.metrics.ForcedPassives.Inc()
	}
	o.metrics.ExchangesResolved.WithLabelValues(outcome).Inc()
	o.metrics.ExchangeDuration.Observe(o.clock.Now().Sub(timer).Seconds())

	return output, nil
}

// prepareSide aggregates final stats and resolves ability flags and
// pre-calc hooks for one combatant. An ability that fails its precondition
// is dropped with a warning rather than failing the exchange.
func (o *orchestrator) prepareSide(ctx context.Context, sessionID string, actor *combat.Participant, move *combat.Move) *side {
	s := &side{actor: actor, move: move}

	aggregated := stats.Aggregate(stats.InputFromParticipant(actor))
	s.flat = aggregated.Flat()

	if move.AbilityKey != "" {
		if o.abilities.CanUse(move.AbilityKey, actor) {
			s.abilityKey = move.AbilityKey
			s.flags = o.abilities.Flags(move.AbilityKey)
			o.abilities.ApplyPreCalc(move.AbilityKey, s.flat, &s.flags)
		} else {
			slog.WarnContext(ctx, "dropping unusable ability from intent",
				"session_id", sessionID,
				"char_id", actor.ID,
				"ability", move.AbilityKey)
		}
	}
	return s
}

// creditXP accumulates skill XP into the attacker's and defender's buffers
// for one directional result.
func (o *orchestrator) creditXP(attacker, defender *side, res *calculator.Result) {
	offense := rules.SkillUnarmed
	if w := attacker.actor.Weapon(); w != nil && w.Subtype != "" {
		offense = w.Subtype
	}

	outcome := rules.XPMiss
	switch {
	case res.IsCrit:
		outcome = rules.XPCrit
	case res.IsDodged || res.IsParried:
		outcome = rules.XPMiss
	case res.IsBlocked:
		outcome = rules.XPPartial
	case res.DamageTotal > 0:
		outcome = rules.XPSuccess
	}
	addXP(attacker.actor, offense, rules.XPFor(outcome))

	if res.HPDmg > 0 {
		if armor := defender.actor.ArmorSubtype(); armor != "" {
			addXP(defender.actor, armor, rules.XPFor(rules.XPSuccess))
		}
	}
	if res.IsBlocked {
		addXP(defender.actor, rules.SkillShield, rules.XPFor(rules.XPSuccess))
	}
}

func addXP(p *combat.Participant, family string, amount int) {
	if amount <= 0 {
		return
	}
	if p.State.XPBuffer == nil {
		p.State.XPBuffer = make(map[string]int)
	}
	p.State.XPBuffer[family] += amount
}

// applyResult mutates both containers with one directional outcome:
// damage, thorns, lifesteal, tokens, and stat counters.
func (o *orchestrator) applyResult(attacker, defender *combat.Participant, res *calculator.Result) {
	defender.State.EnergyCurrent -= res.ShieldDmg
	if defender.State.EnergyCurrent < 0 {
		defender.State.EnergyCurrent = 0
	}
	defender.State.HPCurrent -= res.HPDmg
	if defender.State.HPCurrent < 0 {
		defender.State.HPCurrent = 0
	}

	if res.ThornsDamage > 0 {
		attacker.State.HPCurrent -= res.ThornsDamage
		if attacker.State.HPCurrent < 0 {
			attacker.State.HPCurrent = 0
		}
		attacker.State.Stats.DamageTaken += res.ThornsDamage
	}

	if res.Lifesteal > 0 {
		healed := res.Lifesteal
		if attacker.State.HPCurrent+healed > attacker.State.HPMax {
			healed = attacker.State.HPMax - attacker.State.HPCurrent
		}
		attacker.State.HPCurrent += healed
		attacker.State.Stats.HealingDone += healed
	}

	attacker.State.AddTokens(res.TokensAtk)
	defender.State.AddTokens(res.TokensDef)

	attacker.State.Stats.DamageDealt += res.DamageTotal
	defender.State.Stats.DamageTaken += res.DamageTotal
	if res.IsCrit {
		attacker.State.Stats.CritsLanded++
	}
	if res.IsBlocked {
		defender.State.Stats.BlocksSuccess++
	}
	if res.IsDodged {
		defender.State.Stats.DodgesSuccess++
	}
}

// finishRound advances per-exchange bookkeeping: exchange count, effect
// durations, and the AFK penalty ladder.
func (o *orchestrator) finishRound(p *combat.Participant, wasForcedPassive bool) {
	p.State.ExchangeCount++

	kept := p.State.Effects[:0]
	for _, e := range p.State.Effects {
		if e.Rounds > 0 {
			e.Rounds--
			if e.Rounds == 0 {
				continue
			}
		}
		kept = append(kept, e)
	}
	p.State.Effects = kept

	if wasForcedPassive {
		if p.State.AFKPenaltyLevel < rules.MaxAFKLevel {
			p.State.AFKPenaltyLevel++
		}
	} else {
		p.State.AFKPenaltyLevel = 0
	}
	p.State.PenaltyTimer = int(rules.MoveTimeout(p.State.AFKPenaltyLevel).Seconds())
}

func clampVitals(p *combat.Participant) {
	if p.State.HPCurrent > p.State.HPMax {
		p.State.HPCurrent = p.State.HPMax
	}
	if p.State.EnergyCurrent > p.State.EnergyMax {
		p.State.EnergyCurrent = p.State.EnergyMax
	}
}

func (o *orchestrator) appendExchangeLog(ctx context.Context, sessionID string, actorA, actorB *combat.Participant, resAB, resBA *calculator.Result) error {
	lines := make([]string, 0, len(resAB.Logs)+len(resBA.Logs)+2)
	lines = append(lines, resAB.Logs...)
	lines = append(lines, resBA.Logs...)
	lines = append(lines,
		fmt.Sprintf("%s: HP %d/%d, energy %d/%d", actorA.Name,
			actorA.State.HPCurrent, actorA.State.HPMax,
			actorA.State.EnergyCurrent, actorA.State.EnergyMax),
		fmt.Sprintf("%s: HP %d/%d, energy %d/%d", actorB.Name,
			actorB.State.HPCurrent, actorB.State.HPMax,
			actorB.State.EnergyCurrent, actorB.State.EnergyMax),
	)

	return o.sessionRepo.AppendLog(ctx, sessionID, &combat.LogEntry{
		Timestamp: o.clock.Now().Unix(),
		Round:     actorA.State.ExchangeCount,
		ActorA:    actorA.ID,
		ActorB:    actorB.ID,
		Lines:     lines,
	})
}

// removeResolvedMoves deletes the intents consumed by this exchange. A
// synthetic move was never in the store, so only real sides are deleted.
func (o *orchestrator) removeResolvedMoves(ctx context.Context, input *ResolveExchangeInput) {
	if input.ForcedPassiveActorID != input.ActorAID {
		if err := o.sessionRepo.DeleteMove(ctx, input.SessionID, input.ActorAID, input.ActorBID); err != nil {
			slog.WarnContext(ctx, "failed to delete resolved move",
				"session_id", input.SessionID,
				"actor_id", input.ActorAID,
				"error", err.Error())
		}
	}
	if input.ForcedPassiveActorID != input.ActorBID {
		if err := o.sessionRepo.DeleteMove(ctx, input.SessionID, input.ActorBID, input.ActorAID); err != nil {
			slog.WarnContext(ctx, "failed to delete resolved move",
				"session_id", input.SessionID,
				"actor_id", input.ActorBID,
				"error", err.Error())
		}
	}
}

// rotateQueues pushes each live opponent to the back of the other's
// exchange queue; dead opponents leave the queue instead.
func (o *orchestrator) rotateQueues(ctx context.Context, sessionID string, actorA, actorB *combat.Participant) {
	rotate := func(owner, opponent *combat.Participant) {
		var err error
		if opponent.Alive() {
			err = o.sessionRepo.RotateExchange(ctx, sessionID, owner.ID, opponent.ID)
		} else {
			err = o.sessionRepo.RemoveFromExchangeQueue(ctx, sessionID, owner.ID, opponent.ID)
		}
		if err != nil {
			slog.WarnContext(ctx, "failed to rotate exchange queue",
				"session_id", sessionID,
				"actor_id", owner.ID,
				"error", err.Error())
		}
	}
	rotate(actorA, actorB)
	rotate(actorB, actorA)
}

// updateRosterAndVictory records newly dead actors in metadata, scrubs
// them from every exchange queue, and reports the winning team when at
// most one survives.
func (o *orchestrator) updateRosterAndVictory(ctx context.Context, sessionID string, actors ...*combat.Participant) (string, error) {
	meta, err := o.sessionRepo.GetMeta(ctx, sessionID)
	if err != nil {
		return "", err
	}

	changed := false
	for _, actor := range actors {
		if actor.Alive() || meta.IsDead(actor.ID) {
			continue
		}
		meta.DeadActors = append(meta.DeadActors, actor.ID)
		changed = true
		for otherID := range meta.ActorsInfo {
			if otherID == actor.ID {
				continue
			}
			if err := o.sessionRepo.RemoveFromExchangeQueue(ctx, sessionID, otherID, actor.ID); err != nil {
				slog.WarnContext(ctx, "failed to scrub dead actor from queue",
					"session_id", sessionID,
					"actor_id", otherID,
					"dead_id", actor.ID,
					"error", err.Error())
			}
		}
	}
	if changed {
		if err := o.sessionRepo.UpdateRoster(ctx, meta); err != nil {
			return "", err
		}
	}

	alive := meta.AliveTeams()
	if len(alive) == 1 {
		return alive[0], nil
	}
	return "", nil
}

func (o *orchestrator) RegisterMove(ctx context.Context, input *RegisterMoveInput) (*RegisterMoveOutput, error) {
	if input == nil || input.SessionID == "" || input.CharID == "" {
		return nil, errors.InvalidArgument("session ID and character ID are required")
	}

	meta, err := o.sessionRepo.GetMeta(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if !meta.Active {
		return nil, errors.FailedPreconditionf("session %s is finished", input.SessionID)
	}

	actor, err := o.sessionRepo.GetActor(ctx, input.SessionID, input.CharID)
	if err != nil {
		return nil, err
	}
	if !actor.Alive() {
		return nil, errors.FailedPrecondition("dead participants cannot act")
	}

	if !targetKnown(actor, input.TargetID) {
		return nil, errors.InvalidArgumentf("target %s is not an opponent", input.TargetID)
	}
	if meta.IsDead(input.TargetID) {
		return nil, errors.FailedPreconditionf("target %s is already dead", input.TargetID)
	}

	move := &combat.Move{
		TargetID:    input.TargetID,
		AttackZones: input.AttackZones,
		BlockZones:  input.BlockZones,
		AbilityKey:  input.AbilityKey,
		ExecuteAt:   o.clock.Now().Add(rules.MoveTimeout(actor.State.AFKPenaltyLevel)).Unix(),
	}
	o.repairMove(ctx, input.SessionID, input.CharID, move)

	if err := o.sessionRepo.SetMove(ctx, input.SessionID, input.CharID, move); err != nil {
		return nil, err
	}

	dashboard, err := o.buildDashboard(ctx, input.SessionID, input.CharID)
	if err != nil {
		return nil, err
	}
	return &RegisterMoveOutput{Dashboard: dashboard}, nil
}

// repairMove normalises a malformed intent where safe: a random attack
// zone when none was sent, the canonical block pair when the sent pair is
// invalid, and dropped unknown zones.
func (o *orchestrator) repairMove(ctx context.Context, sessionID, charID string, move *combat.Move) {
	validAttack := move.AttackZones[:0]
	for _, z := range move.AttackZones {
		if combat.IsValidZone(z) {
			validAttack = append(validAttack, z)
		}
	}
	move.AttackZones = validAttack
	if len(move.AttackZones) == 0 {
		move.AttackZones = []combat.Zone{combat.AllZones[o.rng.Intn(len(combat.AllZones))]}
		slog.WarnContext(ctx, "repaired intent with random attack zone",
			"session_id", sessionID,
			"char_id", charID)
	}

	if !combat.IsValidBlockPair(move.BlockZones) {
		move.BlockZones = []combat.Zone{combat.DefaultBlockPair[0], combat.DefaultBlockPair[1]}
		slog.WarnContext(ctx, "repaired intent with canonical block pair",
			"session_id", sessionID,
			"char_id", charID)
	}
}

func targetKnown(actor *combat.Participant, targetID string) bool {
	for _, id := range actor.State.Targets {
		if id == targetID {
			return true
		}
	}
	return false
}

func (o *orchestrator) GetDashboard(ctx context.Context, input *GetDashboardInput) (*GetDashboardOutput, error) {
	if input == nil || input.SessionID == "" || input.CharID == "" {
		return nil, errors.InvalidArgument("session ID and character ID are required")
	}

	dashboard, err := o.buildDashboard(ctx, input.SessionID, input.CharID)
	if err != nil {
		return nil, err
	}
	return &GetDashboardOutput{Dashboard: dashboard}, nil
}

func (o *orchestrator) buildDashboard(ctx context.Context, sessionID, charID string) (*combat.Dashboard, error) {
	meta, err := o.sessionRepo.GetMeta(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	player, err := o.sessionRepo.GetActor(ctx, sessionID, charID)
	if err != nil {
		return nil, err
	}
	actors, err := o.sessionRepo.ListActors(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	dashboard := &combat.Dashboard{
		SessionID:     sessionID,
		Status:        combat.StatusActive,
		Player:        player.Snapshot(),
		Enemies:       []combat.ActorSnapshot{},
		Allies:        []combat.ActorSnapshot{},
		SwitchCharges: player.State.SwitchCharges,
		WinnerTeam:    meta.Winner,
	}

	currentTarget := player.State.CurrentTarget()
	for _, actor := range actors {
		if actor.ID == charID {
			continue
		}
		snap := actor.Snapshot()
		if actor.Team == player.Team {
			dashboard.Allies = append(dashboard.Allies, snap)
			continue
		}
		dashboard.Enemies = append(dashboard.Enemies, snap)
		if actor.ID == currentTarget {
			dashboard.CurrentTarget = &snap
		}
	}

	if n, err := o.sessionRepo.ExchangeQueueLen(ctx, sessionID, charID); err == nil {
		dashboard.QueueCount = int(n)
	}

	if logs, err := o.sessionRepo.GetLogs(ctx, sessionID, lastLogsCount); err == nil {
		dashboard.LastLogs = logs
	}

	switch {
	case !meta.Active:
		dashboard.Status = combat.StatusFinished
	default:
		moves, err := o.sessionRepo.GetMoves(ctx, sessionID, charID)
		if err == nil && len(moves) > 0 {
			dashboard.Status = combat.StatusWaiting
		}
	}

	return dashboard, nil
}

func (o *orchestrator) SwitchTarget(ctx context.Context, input *SwitchTargetInput) (*SwitchTargetOutput, error) {
	if input == nil || input.SessionID == "" || input.CharID == "" || input.NewTargetID == "" {
		return nil, errors.InvalidArgument("session ID, character ID, and target ID are required")
	}

	actor, err := o.sessionRepo.GetActor(ctx, input.SessionID, input.CharID)
	if err != nil {
		return nil, err
	}
	if !targetKnown(actor, input.NewTargetID) {
		return nil, errors.InvalidArgumentf("target %s is not an opponent", input.NewTargetID)
	}

	// Switching to the current head is free.
	if actor.State.CurrentTarget() == input.NewTargetID {
		return &SwitchTargetOutput{OK: true, Message: "already targeting"}, nil
	}

	if actor.State.SwitchCharges <= 0 {
		return &SwitchTargetOutput{OK: false, Message: "no switch charges remaining"}, nil
	}

	reordered := make([]string, 0, len(actor.State.Targets))
	reordered = append(reordered, input.NewTargetID)
	for _, id := range actor.State.Targets {
		if id != input.NewTargetID {
			reordered = append(reordered, id)
		}
	}
	actor.State.Targets = reordered
	actor.State.SwitchCharges--

	if err := o.sessionRepo.SaveActor(ctx, input.SessionID, actor); err != nil {
		return nil, err
	}
	return &SwitchTargetOutput{OK: true, Message: fmt.Sprintf("now targeting %s", input.NewTargetID)}, nil
}

func (o *orchestrator) UseConsumable(ctx context.Context, input *UseConsumableInput) (*UseConsumableOutput, error) {
	if input == nil || input.SessionID == "" || input.CharID == "" || input.ItemID == "" {
		return nil, errors.InvalidArgument("session ID, character ID, and item ID are required")
	}

	actor, err := o.sessionRepo.GetActor(ctx, input.SessionID, input.CharID)
	if err != nil {
		return nil, err
	}
	if !actor.Alive() {
		return nil, errors.FailedPrecondition("dead participants cannot act")
	}

	var item *combat.BeltItem
	for i := range actor.Belt {
		if actor.Belt[i].ID == input.ItemID {
			item = &actor.Belt[i]
			break
		}
	}
	if item == nil {
		return nil, errors.NotFoundf("belt item %s not found", input.ItemID)
	}
	if item.Count <= 0 {
		return &UseConsumableOutput{OK: false, Message: "no stock remaining"}, nil
	}

	message := ""
	switch item.Effect {
	case combat.BeltEffectHealHP:
		healed := int(item.Amount)
		if actor.State.HPCurrent+healed > actor.State.HPMax {
			healed = actor.State.HPMax - actor.State.HPCurrent
		}
		actor.State.HPCurrent += healed
		actor.State.Stats.HealingDone += healed
		message = fmt.Sprintf("restored %d HP", healed)
	case combat.BeltEffectRestoreEnergy:
		restored := int(item.Amount)
		if actor.State.EnergyCurrent+restored > actor.State.EnergyMax {
			restored = actor.State.EnergyMax - actor.State.EnergyCurrent
		}
		actor.State.EnergyCurrent += restored
		message = fmt.Sprintf("restored %d energy", restored)
	case combat.BeltEffectCure:
		kept := actor.State.Effects[:0]
		removed := 0
		for _, e := range actor.State.Effects {
			if e.Amount < 0 {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		actor.State.Effects = kept
		message = fmt.Sprintf("cured %d ailments", removed)
	case combat.BeltEffectBuff:
		actor.State.Effects = append(actor.State.Effects, combat.Effect{
			Name:   item.Name,
			Stat:   item.Stat,
			Amount: item.Amount,
		})
		message = fmt.Sprintf("%s applied", item.Name)
	default:
		return nil, errors.Internalf("unknown belt effect %q", item.Effect)
	}

	item.Count--
	if err := o.sessionRepo.SaveActor(ctx, input.SessionID, actor); err != nil {
		return nil, err
	}
	return &UseConsumableOutput{OK: true, Message: message}, nil
}

func (o *orchestrator) GetNextTarget(ctx context.Context, input *GetNextTargetInput) (*GetNextTargetOutput, error) {
	if input == nil || input.SessionID == "" || input.CharID == "" {
		return nil, errors.InvalidArgument("session ID and character ID are required")
	}

	actor, err := o.sessionRepo.GetActor(ctx, input.SessionID, input.CharID)
	if err != nil {
		return nil, err
	}

	// Walk the target list starting after the head, wrapping to the head
	// last, and return the first alive opponent.
	targets := actor.State.Targets
	for i := 1; i <= len(targets); i++ {
		id := targets[i%len(targets)]
		opponent, err := o.sessionRepo.GetActor(ctx, input.SessionID, id)
		if err != nil {
			continue
		}
		if opponent.Alive() {
			return &GetNextTargetOutput{Target: &NextTarget{
				CharID:    opponent.ID,
				HPCurrent: opponent.State.HPCurrent,
			}}, nil
		}
	}
	return &GetNextTargetOutput{}, nil
}

func (o *orchestrator) GetLogs(ctx context.Context, input *GetLogsInput) (*GetLogsOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	logs, err := o.sessionRepo.GetLogs(ctx, input.SessionID, input.Limit)
	if err != nil {
		return nil, err
	}
	return &GetLogsOutput{Logs: logs}, nil
}
