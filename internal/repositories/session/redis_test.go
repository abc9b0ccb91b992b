package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	"github.com/reactiveburst/rbc-engine/internal/repositories/session"
	"github.com/reactiveburst/rbc-engine/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	repo    session.Repository
	mr      *miniredis.Miniredis
	cleanup func()
	ctx     context.Context
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, mr, cleanup := testutils.CreateTestRedisClient(s.T())
	s.mr = mr
	s.cleanup = cleanup
	s.ctx = context.Background()

	repo, err := session.NewRedis(&session.RedisConfig{Client: client})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *RedisRepositoryTestSuite) newMeta(id string) *combat.Meta {
	return &combat.Meta{
		SessionID:  id,
		StartTime:  1700000000,
		Active:     true,
		Mode:       combat.ModePvE,
		BattleType: combat.BattleGroup,
		Teams: map[string][]string{
			"players":  {"char_1"},
			"monsters": {"mob_1", "mob_2"},
		},
		ActorsInfo: map[string]combat.ActorInfo{
			"char_1": {Name: "Aldo", Team: "players"},
			"mob_1":  {Name: "Rat", Team: "monsters", IsAI: true},
			"mob_2":  {Name: "Bat", Team: "monsters", IsAI: true},
		},
		DeadActors: []string{},
	}
}

func (s *RedisRepositoryTestSuite) TestCreateAndGetMeta() {
	meta := s.newMeta("sess_1")
	s.Require().NoError(s.repo.CreateMeta(s.ctx, meta))

	got, err := s.repo.GetMeta(s.ctx, "sess_1")
	s.Require().NoError(err)
	s.Equal("sess_1", got.SessionID)
	s.True(got.Active)
	s.Equal(combat.ModePvE, got.Mode)
	s.Equal(int64(1700000000), got.StartTime)
	s.Equal(meta.Teams, got.Teams)
	s.Equal(meta.ActorsInfo, got.ActorsInfo)
	s.Empty(got.DeadActors)
}

func (s *RedisRepositoryTestSuite) TestCreateMetaDuplicate() {
	s.Require().NoError(s.repo.CreateMeta(s.ctx, s.newMeta("sess_1")))

	err := s.repo.CreateMeta(s.ctx, s.newMeta("sess_1"))
	s.Require().Error(err)
	s.True(errors.IsAlreadyExists(err))
}

func (s *RedisRepositoryTestSuite) TestGetMetaNotFound() {
	_, err := s.repo.GetMeta(s.ctx, "missing")
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestUpdateRoster() {
	meta := s.newMeta("sess_1")
	s.Require().NoError(s.repo.CreateMeta(s.ctx, meta))

	meta.DeadActors = []string{"mob_1"}
	meta.Teams["monsters"] = []string{"mob_2"}
	s.Require().NoError(s.repo.UpdateRoster(s.ctx, meta))

	got, err := s.repo.GetMeta(s.ctx, "sess_1")
	s.Require().NoError(err)
	s.Equal([]string{"mob_1"}, got.DeadActors)
	s.Equal([]string{"mob_2"}, got.Teams["monsters"])
	s.True(got.Active, "roster update must not touch the active flag")
}

func (s *RedisRepositoryTestSuite) TestMarkFinishedOnce() {
	s.Require().NoError(s.repo.CreateMeta(s.ctx, s.newMeta("sess_1")))

	won, err := s.repo.MarkFinished(s.ctx, "sess_1", "players", 1700000500)
	s.Require().NoError(err)
	s.True(won)

	got, err := s.repo.GetMeta(s.ctx, "sess_1")
	s.Require().NoError(err)
	s.False(got.Active)
	s.Equal("players", got.Winner)
	s.Equal(int64(1700000500), got.EndTime)
}

func (s *RedisRepositoryTestSuite) TestMarkFinishedIdempotent() {
	s.Require().NoError(s.repo.CreateMeta(s.ctx, s.newMeta("sess_1")))

	won, err := s.repo.MarkFinished(s.ctx, "sess_1", "players", 1700000500)
	s.Require().NoError(err)
	s.True(won)

	// Second caller loses the race and must not overwrite the result.
	won, err = s.repo.MarkFinished(s.ctx, "sess_1", "monsters", 1700000900)
	s.Require().NoError(err)
	s.False(won)

	got, err := s.repo.GetMeta(s.ctx, "sess_1")
	s.Require().NoError(err)
	s.Equal("players", got.Winner)
	s.Equal(int64(1700000500), got.EndTime)
}

func (s *RedisRepositoryTestSuite) TestSaveAndGetActor() {
	p := &combat.Participant{
		ID:   "char_1",
		Name: "Aldo",
		Team: "players",
		BaseStats: map[string]float64{
			"strength": 12,
		},
		State: combat.FighterState{
			HPCurrent: 80,
			HPMax:     100,
		},
	}
	s.Require().NoError(s.repo.SaveActor(s.ctx, "sess_1", p))

	got, err := s.repo.GetActor(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Equal("Aldo", got.Name)
	s.Equal(80, got.State.HPCurrent)
	s.InDelta(12.0, got.BaseStats["strength"], 0.0001)
}

func (s *RedisRepositoryTestSuite) TestGetActorNotFound() {
	_, err := s.repo.GetActor(s.ctx, "sess_1", "ghost")
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestListActorsSkipsCorrupt() {
	s.Require().NoError(s.repo.SaveActor(s.ctx, "sess_1", &combat.Participant{ID: "char_1", Name: "Aldo"}))
	s.Require().NoError(s.repo.SaveActor(s.ctx, "sess_1", &combat.Participant{ID: "mob_1", Name: "Rat"}))
	s.mr.HSet("combat:rbc:sess_1:actors", "broken", "{not json")

	actors, err := s.repo.ListActors(s.ctx, "sess_1")
	s.Require().NoError(err)
	s.Len(actors, 2)
}

func (s *RedisRepositoryTestSuite) TestMoveLifecycle() {
	move := &combat.Move{
		TargetID:    "mob_1",
		AttackZones: []combat.Zone{combat.ZoneHead},
		BlockZones:  []combat.Zone{combat.ZoneChest, combat.ZoneBelly},
		ExecuteAt:   1700000060,
	}
	s.Require().NoError(s.repo.SetMove(s.ctx, "sess_1", "char_1", move))

	moves, err := s.repo.GetMoves(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Require().Len(moves, 1)
	s.Equal([]combat.Zone{combat.ZoneHead}, moves["mob_1"].AttackZones)
	s.Equal(int64(1700000060), moves["mob_1"].ExecuteAt)

	// A new intent against the same target replaces the old one.
	move.AttackZones = []combat.Zone{combat.ZoneLegs}
	s.Require().NoError(s.repo.SetMove(s.ctx, "sess_1", "char_1", move))
	moves, err = s.repo.GetMoves(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Require().Len(moves, 1)
	s.Equal([]combat.Zone{combat.ZoneLegs}, moves["mob_1"].AttackZones)

	s.Require().NoError(s.repo.DeleteMove(s.ctx, "sess_1", "char_1", "mob_1"))
	moves, err = s.repo.GetMoves(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Empty(moves)
}

func (s *RedisRepositoryTestSuite) TestExchangeQueue() {
	s.Require().NoError(s.repo.SeedExchangeQueue(s.ctx, "sess_1", "char_1", []string{"mob_1", "mob_2", "mob_3"}))

	n, err := s.repo.ExchangeQueueLen(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Equal(int64(3), n)

	// Rotating the head sends it to the back.
	s.Require().NoError(s.repo.RotateExchange(s.ctx, "sess_1", "char_1", "mob_1"))
	n, err = s.repo.ExchangeQueueLen(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Equal(int64(3), n)

	// A dead opponent leaves the queue entirely.
	s.Require().NoError(s.repo.RemoveFromExchangeQueue(s.ctx, "sess_1", "char_1", "mob_2"))
	n, err = s.repo.ExchangeQueueLen(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Equal(int64(2), n)
}

func (s *RedisRepositoryTestSuite) TestSeedExchangeQueueReplaces() {
	s.Require().NoError(s.repo.SeedExchangeQueue(s.ctx, "sess_1", "char_1", []string{"mob_1", "mob_2"}))
	s.Require().NoError(s.repo.SeedExchangeQueue(s.ctx, "sess_1", "char_1", []string{"mob_3"}))

	n, err := s.repo.ExchangeQueueLen(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func (s *RedisRepositoryTestSuite) TestLogs() {
	for i := 0; i < 3; i++ {
		entry := &combat.LogEntry{
			Timestamp: int64(1700000000 + i),
			Round:     i + 1,
			ActorA:    "char_1",
			ActorB:    "mob_1",
			Lines:     []string{"hit for 10"},
		}
		s.Require().NoError(s.repo.AppendLog(s.ctx, "sess_1", entry))
	}

	count, err := s.repo.CountLogs(s.ctx, "sess_1")
	s.Require().NoError(err)
	s.Equal(int64(3), count)

	logs, err := s.repo.GetLogs(s.ctx, "sess_1", 2)
	s.Require().NoError(err)
	s.Require().Len(logs, 2)
	s.Contains(logs[0], `"round":2`)
	s.Contains(logs[1], `"round":3`)
}

func (s *RedisRepositoryTestSuite) TestExpireHistory() {
	s.Require().NoError(s.repo.CreateMeta(s.ctx, s.newMeta("sess_1")))
	s.Require().NoError(s.repo.SaveActor(s.ctx, "sess_1", &combat.Participant{ID: "char_1"}))
	s.Require().NoError(s.repo.SetMove(s.ctx, "sess_1", "char_1", &combat.Move{TargetID: "mob_1"}))
	s.Require().NoError(s.repo.SeedExchangeQueue(s.ctx, "sess_1", "char_1", []string{"mob_1"}))

	s.Require().NoError(s.repo.ExpireHistory(s.ctx, "sess_1", []string{"char_1"}, 24*time.Hour))

	// Move and exchange keys are gone immediately.
	moves, err := s.repo.GetMoves(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Empty(moves)
	n, err := s.repo.ExchangeQueueLen(s.ctx, "sess_1", "char_1")
	s.Require().NoError(err)
	s.Zero(n)

	// History keys still readable until the TTL fires.
	_, err = s.repo.GetMeta(s.ctx, "sess_1")
	s.Require().NoError(err)
}

func (s *RedisRepositoryTestSuite) TestScanActiveSessions() {
	s.Require().NoError(s.repo.CreateMeta(s.ctx, s.newMeta("sess_a")))
	s.Require().NoError(s.repo.CreateMeta(s.ctx, s.newMeta("sess_b")))
	finished := s.newMeta("sess_c")
	finished.Active = false
	s.Require().NoError(s.repo.CreateMeta(s.ctx, finished))

	active, err := s.repo.ScanActiveSessions(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"sess_a", "sess_b"}, active)
}

func (s *RedisRepositoryTestSuite) TestValidation() {
	err := s.repo.CreateMeta(s.ctx, nil)
	s.True(errors.IsInvalidArgument(err))

	_, err = s.repo.GetMeta(s.ctx, "")
	s.True(errors.IsInvalidArgument(err))

	err = s.repo.SaveActor(s.ctx, "sess_1", nil)
	s.True(errors.IsInvalidArgument(err))

	err = s.repo.SetMove(s.ctx, "sess_1", "char_1", &combat.Move{})
	s.True(errors.IsInvalidArgument(err))
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func TestNewRedisValidation(t *testing.T) {
	_, err := session.NewRedis(nil)
	if !errors.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	_, err = session.NewRedis(&session.RedisConfig{})
	if !errors.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
