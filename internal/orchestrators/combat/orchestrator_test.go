package combat_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/reactiveburst/rbc-engine/internal/engine/abilities"
	"github.com/reactiveburst/rbc-engine/internal/engine/calculator"
	entities "github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	"github.com/reactiveburst/rbc-engine/internal/metrics"
	"github.com/reactiveburst/rbc-engine/internal/orchestrators/combat"
	"github.com/reactiveburst/rbc-engine/internal/pkg/clock"
	"github.com/reactiveburst/rbc-engine/internal/repositories/session"
	"github.com/reactiveburst/rbc-engine/internal/testutils"
)

const testSessionID = "sess_1"

type OrchestratorTestSuite struct {
	suite.Suite
	svc     combat.Service
	repo    session.Repository
	clock   *clock.Fixed
	cleanup func()
	ctx     context.Context
}

func (s *OrchestratorTestSuite) SetupTest() {
	client, _, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.ctx = context.Background()
	s.clock = &clock.Fixed{T: time.Unix(1700000000, 0)}

	repo, err := session.NewRedis(&session.RedisConfig{Client: client})
	s.Require().NoError(err)
	s.repo = repo

	svc, err := combat.NewOrchestrator(&combat.Config{
		SessionRepo: repo,
		Abilities:   abilities.NewRegistry(),
		Calculator:  calculator.NewSeeded(42),
		Clock:       s.clock,
		Metrics:     metrics.New(),
		RNG:         rand.New(rand.NewSource(7)),
	})
	s.Require().NoError(err)
	s.svc = svc
}

func (s *OrchestratorTestSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// seedDuel writes metadata and two opposing participants, A on red with no
// weapon, B on blue hitting for a flat 10.
func (s *OrchestratorTestSuite) seedDuel() (*entities.Participant, *entities.Participant) {
	meta := &entities.Meta{
		SessionID:  testSessionID,
		StartTime:  s.clock.Now().Unix(),
		Active:     true,
		Mode:       entities.ModePvE,
		BattleType: entities.BattleDuel,
		Teams: map[string][]string{
			"red":  {"actor_a"},
			"blue": {"actor_b"},
		},
		ActorsInfo: map[string]entities.ActorInfo{
			"actor_a": {Name: "Aldo", Team: "red"},
			"actor_b": {Name: "Brin", Team: "blue"},
		},
	}
	s.Require().NoError(s.repo.CreateMeta(s.ctx, meta))

	actorA := &entities.Participant{
		ID:        "actor_a",
		Name:      "Aldo",
		Team:      "red",
		BaseStats: map[string]float64{},
		State: entities.FighterState{
			HPCurrent: 100, HPMax: 100,
			EnergyCurrent: 0, EnergyMax: 50,
			Targets:       []string{"actor_b"},
			SwitchCharges: 2, MaxSwitchCharges: 2,
		},
	}
	actorB := &entities.Participant{
		ID:   "actor_b",
		Name: "Brin",
		Team: "blue",
		BaseStats: map[string]float64{
			"physical_damage_min": 10,
			"physical_damage_max": 10,
		},
		State: entities.FighterState{
			HPCurrent: 100, HPMax: 100,
			EnergyCurrent: 0, EnergyMax: 50,
			Targets:       []string{"actor_a"},
			SwitchCharges: 2, MaxSwitchCharges: 2,
		},
	}
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorB))
	s.Require().NoError(s.repo.SeedExchangeQueue(s.ctx, testSessionID, "actor_a", []string{"actor_b"}))
	s.Require().NoError(s.repo.SeedExchangeQueue(s.ctx, testSessionID, "actor_b", []string{"actor_a"}))
	return actorA, actorB
}

func (s *OrchestratorTestSuite) mutualMoves() (*entities.Move, *entities.Move) {
	deadline := s.clock.Now().Add(60 * time.Second).Unix()
	moveA := &entities.Move{
		TargetID:    "actor_b",
		AttackZones: []entities.Zone{entities.ZoneHead},
		BlockZones:  []entities.Zone{entities.ZoneChest, entities.ZoneBelly},
		ExecuteAt:   deadline,
	}
	moveB := &entities.Move{
		TargetID:    "actor_a",
		AttackZones: []entities.Zone{entities.ZoneHead},
		BlockZones:  []entities.Zone{entities.ZoneHead, entities.ZoneChest},
		ExecuteAt:   deadline,
	}
	return moveA, moveB
}

func (s *OrchestratorTestSuite) TestMutualTrivialExchange() {
	s.seedDuel()
	moveA, moveB := s.mutualMoves()
	s.Require().NoError(s.repo.SetMove(s.ctx, testSessionID, "actor_a", moveA))
	s.Require().NoError(s.repo.SetMove(s.ctx, testSessionID, "actor_b", moveB))

	out, err := s.svc.ResolveExchange(s.ctx, &combat.ResolveExchangeInput{
		SessionID: testSessionID,
		ActorAID:  "actor_a", MoveA: moveA,
		ActorBID: "actor_b", MoveB: moveB,
	})
	s.Require().NoError(err)
	s.Empty(out.Winner)

	// A is unarmed with zero stats, so B takes nothing; B's flat 10 lands
	// on A. B attacked A's head, A blocked chest/belly, no geo block.
	gotA, err := s.repo.GetActor(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	gotB, err := s.repo.GetActor(s.ctx, testSessionID, "actor_b")
	s.Require().NoError(err)

	s.Equal(90, gotA.State.HPCurrent)
	s.Equal(100, gotB.State.HPCurrent)
	s.Equal(1, gotA.State.ExchangeCount)
	s.Equal(1, gotB.State.ExchangeCount)

	// Both intents consumed.
	movesA, err := s.repo.GetMoves(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Empty(movesA)
	movesB, err := s.repo.GetMoves(s.ctx, testSessionID, "actor_b")
	s.Require().NoError(err)
	s.Empty(movesB)

	// Queues rotated, not drained.
	n, err := s.repo.ExchangeQueueLen(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	// One log entry naming both sides.
	count, err := s.repo.CountLogs(s.ctx, testSessionID)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	// Damage counters reflect the single landed hit.
	s.Equal(10, gotB.State.Stats.DamageDealt)
	s.Equal(10, gotA.State.Stats.DamageTaken)

	// Mutual participation resets the AFK ladder.
	s.Equal(0, gotA.State.AFKPenaltyLevel)
	s.Equal(60, gotA.State.PenaltyTimer)
}

func (s *OrchestratorTestSuite) TestForcedPassiveIncrementsAFK() {
	s.seedDuel()
	moveA, _ := s.mutualMoves()
	s.Require().NoError(s.repo.SetMove(s.ctx, testSessionID, "actor_a", moveA))

	synthetic := entities.PassiveMove("actor_a", moveA.ExecuteAt)

	_, err := s.svc.ResolveExchange(s.ctx, &combat.ResolveExchangeInput{
		SessionID: testSessionID,
		ActorAID:  "actor_a", MoveA: moveA,
		ActorBID: "actor_b", MoveB: synthetic,
		ForcedPassiveActorID: "actor_b",
	})
	s.Require().NoError(err)

	gotA, err := s.repo.GetActor(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	gotB, err := s.repo.GetActor(s.ctx, testSessionID, "actor_b")
	s.Require().NoError(err)

	// B never attacked, so A is untouched; B's ladder advances and the
	// next deadline tightens to 50s. A resets to the base 60s.
	s.Equal(100, gotA.State.HPCurrent)
	s.Equal(1, gotB.State.AFKPenaltyLevel)
	s.Equal(50, gotB.State.PenaltyTimer)
	s.Equal(0, gotA.State.AFKPenaltyLevel)
	s.Equal(60, gotA.State.PenaltyTimer)

	// A's real intent is consumed; B had none in the store.
	movesA, err := s.repo.GetMoves(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Empty(movesA)
}

func (s *OrchestratorTestSuite) TestExchangeKillsAndReportsWinner() {
	actorA, _ := s.seedDuel()
	actorA.State.HPCurrent = 5
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))

	moveA, moveB := s.mutualMoves()
	out, err := s.svc.ResolveExchange(s.ctx, &combat.ResolveExchangeInput{
		SessionID: testSessionID,
		ActorAID:  "actor_a", MoveA: moveA,
		ActorBID: "actor_b", MoveB: moveB,
	})
	s.Require().NoError(err)

	s.True(out.ADead)
	s.False(out.BDead)
	s.Equal("blue", out.Winner)

	meta, err := s.repo.GetMeta(s.ctx, testSessionID)
	s.Require().NoError(err)
	s.True(meta.IsDead("actor_a"))

	// The dead actor is scrubbed from the survivor's queue.
	n, err := s.repo.ExchangeQueueLen(s.ctx, testSessionID, "actor_b")
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *OrchestratorTestSuite) TestRegisterMove() {
	s.seedDuel()

	out, err := s.svc.RegisterMove(s.ctx, &combat.RegisterMoveInput{
		SessionID:   testSessionID,
		CharID:      "actor_a",
		TargetID:    "actor_b",
		AttackZones: []entities.Zone{entities.ZoneHead},
		BlockZones:  []entities.Zone{entities.ZoneChest, entities.ZoneBelly},
	})
	s.Require().NoError(err)
	s.Equal(entities.StatusWaiting, out.Dashboard.Status)

	moves, err := s.repo.GetMoves(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Require().Len(moves, 1)
	s.Equal(s.clock.Now().Add(60*time.Second).Unix(), moves["actor_b"].ExecuteAt)
}

func (s *OrchestratorTestSuite) TestRegisterMoveAutoRepair() {
	s.seedDuel()

	_, err := s.svc.RegisterMove(s.ctx, &combat.RegisterMoveInput{
		SessionID:   testSessionID,
		CharID:      "actor_a",
		TargetID:    "actor_b",
		AttackZones: nil,
		BlockZones:  []entities.Zone{entities.ZoneHead, entities.ZoneFeet},
	})
	s.Require().NoError(err)

	moves, err := s.repo.GetMoves(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	move := moves["actor_b"]
	s.Require().NotNil(move)
	s.Len(move.AttackZones, 1)
	s.True(entities.IsValidZone(move.AttackZones[0]))
	s.Equal([]entities.Zone{entities.ZoneHead, entities.ZoneChest}, move.BlockZones)
}

func (s *OrchestratorTestSuite) TestRegisterMoveRejectsUnknownTarget() {
	s.seedDuel()

	_, err := s.svc.RegisterMove(s.ctx, &combat.RegisterMoveInput{
		SessionID:   testSessionID,
		CharID:      "actor_a",
		TargetID:    "stranger",
		AttackZones: []entities.Zone{entities.ZoneHead},
	})
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))
}

func (s *OrchestratorTestSuite) TestRegisterMoveRejectsDeadTarget() {
	_, actorB := s.seedDuel()
	actorB.State.HPCurrent = 0
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorB))
	meta, err := s.repo.GetMeta(s.ctx, testSessionID)
	s.Require().NoError(err)
	meta.DeadActors = []string{"actor_b"}
	s.Require().NoError(s.repo.UpdateRoster(s.ctx, meta))

	_, err = s.svc.RegisterMove(s.ctx, &combat.RegisterMoveInput{
		SessionID:   testSessionID,
		CharID:      "actor_a",
		TargetID:    "actor_b",
		AttackZones: []entities.Zone{entities.ZoneHead},
	})
	s.Require().Error(err)
	s.Equal(errors.CodeFailedPrecondition, errors.GetCode(err))
}

func (s *OrchestratorTestSuite) TestRegisterMoveAFKDeadline() {
	actorA, _ := s.seedDuel()
	actorA.State.AFKPenaltyLevel = 2
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))

	_, err := s.svc.RegisterMove(s.ctx, &combat.RegisterMoveInput{
		SessionID:   testSessionID,
		CharID:      "actor_a",
		TargetID:    "actor_b",
		AttackZones: []entities.Zone{entities.ZoneHead},
	})
	s.Require().NoError(err)

	moves, err := s.repo.GetMoves(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Equal(s.clock.Now().Add(40*time.Second).Unix(), moves["actor_b"].ExecuteAt)
}

func (s *OrchestratorTestSuite) TestGetDashboard() {
	s.seedDuel()

	out, err := s.svc.GetDashboard(s.ctx, &combat.GetDashboardInput{
		SessionID: testSessionID,
		CharID:    "actor_a",
	})
	s.Require().NoError(err)

	d := out.Dashboard
	s.Equal(testSessionID, d.SessionID)
	s.Equal(entities.StatusActive, d.Status)
	s.Equal("actor_a", d.Player.CharID)
	s.Require().NotNil(d.CurrentTarget)
	s.Equal("actor_b", d.CurrentTarget.CharID)
	s.Len(d.Enemies, 1)
	s.Empty(d.Allies)
	s.Equal(1, d.QueueCount)
	s.Equal(2, d.SwitchCharges)
}

func (s *OrchestratorTestSuite) TestDashboardFinished() {
	s.seedDuel()
	_, err := s.repo.MarkFinished(s.ctx, testSessionID, "blue", s.clock.Now().Unix())
	s.Require().NoError(err)

	out, err := s.svc.GetDashboard(s.ctx, &combat.GetDashboardInput{
		SessionID: testSessionID,
		CharID:    "actor_a",
	})
	s.Require().NoError(err)
	s.Equal(entities.StatusFinished, out.Dashboard.Status)
	s.Equal("blue", out.Dashboard.WinnerTeam)
}

func (s *OrchestratorTestSuite) TestSwitchTarget() {
	actorA, _ := s.seedDuel()
	actorA.State.Targets = []string{"actor_b", "actor_c"}
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))

	// Same head costs nothing.
	out, err := s.svc.SwitchTarget(s.ctx, &combat.SwitchTargetInput{
		SessionID: testSessionID, CharID: "actor_a", NewTargetID: "actor_b",
	})
	s.Require().NoError(err)
	s.True(out.OK)
	got, err := s.repo.GetActor(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Equal(2, got.State.SwitchCharges)

	// Real switch spends one charge and reorders.
	out, err = s.svc.SwitchTarget(s.ctx, &combat.SwitchTargetInput{
		SessionID: testSessionID, CharID: "actor_a", NewTargetID: "actor_c",
	})
	s.Require().NoError(err)
	s.True(out.OK)
	got, err = s.repo.GetActor(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Equal([]string{"actor_c", "actor_b"}, got.State.Targets)
	s.Equal(1, got.State.SwitchCharges)
}

func (s *OrchestratorTestSuite) TestSwitchTargetNoCharges() {
	actorA, _ := s.seedDuel()
	actorA.State.Targets = []string{"actor_b", "actor_c"}
	actorA.State.SwitchCharges = 0
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))

	out, err := s.svc.SwitchTarget(s.ctx, &combat.SwitchTargetInput{
		SessionID: testSessionID, CharID: "actor_a", NewTargetID: "actor_c",
	})
	s.Require().NoError(err)
	s.False(out.OK)
	s.NotEmpty(out.Message)
}

func (s *OrchestratorTestSuite) TestUseConsumableHeal() {
	actorA, _ := s.seedDuel()
	actorA.State.HPCurrent = 60
	actorA.Belt = []entities.BeltItem{
		{ID: "potion", Name: "Healing Potion", Count: 2, Effect: entities.BeltEffectHealHP, Amount: 25},
	}
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))

	out, err := s.svc.UseConsumable(s.ctx, &combat.UseConsumableInput{
		SessionID: testSessionID, CharID: "actor_a", ItemID: "potion",
	})
	s.Require().NoError(err)
	s.True(out.OK)

	got, err := s.repo.GetActor(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Equal(85, got.State.HPCurrent)
	s.Equal(1, got.Belt[0].Count)
}

func (s *OrchestratorTestSuite) TestUseConsumableHealClampsAtMax() {
	actorA, _ := s.seedDuel()
	actorA.State.HPCurrent = 95
	actorA.Belt = []entities.BeltItem{
		{ID: "potion", Name: "Healing Potion", Count: 1, Effect: entities.BeltEffectHealHP, Amount: 25},
	}
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))

	out, err := s.svc.UseConsumable(s.ctx, &combat.UseConsumableInput{
		SessionID: testSessionID, CharID: "actor_a", ItemID: "potion",
	})
	s.Require().NoError(err)
	s.True(out.OK)

	got, err := s.repo.GetActor(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Equal(100, got.State.HPCurrent)
}

func (s *OrchestratorTestSuite) TestUseConsumableNoStock() {
	actorA, _ := s.seedDuel()
	actorA.Belt = []entities.BeltItem{
		{ID: "potion", Name: "Healing Potion", Count: 0, Effect: entities.BeltEffectHealHP, Amount: 25},
	}
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))

	out, err := s.svc.UseConsumable(s.ctx, &combat.UseConsumableInput{
		SessionID: testSessionID, CharID: "actor_a", ItemID: "potion",
	})
	s.Require().NoError(err)
	s.False(out.OK)
}

func (s *OrchestratorTestSuite) TestUseConsumableBuff() {
	actorA, _ := s.seedDuel()
	actorA.Belt = []entities.BeltItem{
		{ID: "elixir", Name: "Strength Elixir", Count: 1, Effect: entities.BeltEffectBuff, Stat: "strength", Amount: 5},
	}
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))

	out, err := s.svc.UseConsumable(s.ctx, &combat.UseConsumableInput{
		SessionID: testSessionID, CharID: "actor_a", ItemID: "elixir",
	})
	s.Require().NoError(err)
	s.True(out.OK)

	got, err := s.repo.GetActor(s.ctx, testSessionID, "actor_a")
	s.Require().NoError(err)
	s.Require().Len(got.State.Effects, 1)
	s.Equal("Strength Elixir", got.State.Effects[0].Name)
	s.InDelta(5.0, got.State.Effects[0].Amount, 0.0001)
}

func (s *OrchestratorTestSuite) TestGetNextTarget() {
	actorA, _ := s.seedDuel()
	actorC := &entities.Participant{
		ID: "actor_c", Name: "Corv", Team: "blue",
		BaseStats: map[string]float64{},
		State: entities.FighterState{
			HPCurrent: 40, HPMax: 40,
			Targets: []string{"actor_a"},
		},
	}
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorC))
	actorA.State.Targets = []string{"actor_b", "actor_c"}
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorA))

	out, err := s.svc.GetNextTarget(s.ctx, &combat.GetNextTargetInput{
		SessionID: testSessionID, CharID: "actor_a",
	})
	s.Require().NoError(err)
	s.Require().NotNil(out.Target)
	s.Equal("actor_c", out.Target.CharID)
	s.Equal(40, out.Target.HPCurrent)
}

func (s *OrchestratorTestSuite) TestGetNextTargetNoneAlive() {
	actorA, actorB := s.seedDuel()
	actorB.State.HPCurrent = 0
	s.Require().NoError(s.repo.SaveActor(s.ctx, testSessionID, actorB))
	_ = actorA

	out, err := s.svc.GetNextTarget(s.ctx, &combat.GetNextTargetInput{
		SessionID: testSessionID, CharID: "actor_a",
	})
	s.Require().NoError(err)
	s.Nil(out.Target)
}

func (s *OrchestratorTestSuite) TestGetLogs() {
	s.seedDuel()
	moveA, moveB := s.mutualMoves()
	_, err := s.svc.ResolveExchange(s.ctx, &combat.ResolveExchangeInput{
		SessionID: testSessionID,
		ActorAID:  "actor_a", MoveA: moveA,
		ActorBID: "actor_b", MoveB: moveB,
	})
	s.Require().NoError(err)

	out, err := s.svc.GetLogs(s.ctx, &combat.GetLogsInput{SessionID: testSessionID, Limit: 10})
	s.Require().NoError(err)
	s.Len(out.Logs, 1)
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func TestNewOrchestratorValidation(t *testing.T) {
	_, err := combat.NewOrchestrator(&combat.Config{})
	if err == nil {
		t.Fatal("expected config validation error")
	}
}
