package matchqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	"github.com/reactiveburst/rbc-engine/internal/repositories/matchqueue"
	"github.com/reactiveburst/rbc-engine/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	repo    matchqueue.Repository
	mr      *miniredis.Miniredis
	cleanup func()
	ctx     context.Context
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, mr, cleanup := testutils.CreateTestRedisClient(s.T())
	s.mr = mr
	s.cleanup = cleanup
	s.ctx = context.Background()

	repo, err := matchqueue.NewRedis(&matchqueue.RedisConfig{Client: client})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *RedisRepositoryTestSuite) enqueue(charID string, gs float64) {
	s.Require().NoError(s.repo.Enqueue(s.ctx, &combat.MatchRequest{
		CharID:    charID,
		StartTime: 1700000000,
		GS:        gs,
		Mode:      combat.ModeArena,
	}, 5*time.Minute))
}

func (s *RedisRepositoryTestSuite) TestEnqueueAndGetRequest() {
	s.enqueue("char_1", 120)

	req, err := s.repo.GetRequest(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Equal("char_1", req.CharID)
	s.InDelta(120.0, req.GS, 0.0001)
	s.Equal(combat.ModeArena, req.Mode)

	n, err := s.repo.QueueLen(s.ctx, combat.ModeArena)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func (s *RedisRepositoryTestSuite) TestRequestExpires() {
	s.enqueue("char_1", 120)

	s.mr.FastForward(6 * time.Minute)

	_, err := s.repo.GetRequest(s.ctx, "char_1")
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestFindCandidatesBand() {
	s.enqueue("char_low", 80)
	s.enqueue("char_mid", 100)
	s.enqueue("char_high", 130)
	s.enqueue("char_self", 101)

	// 5% band around 100.
	candidates, err := s.repo.FindCandidates(s.ctx, combat.ModeArena, 95, 105, "char_self")
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal("char_mid", candidates[0].CharID)

	// Widened band pulls in the outliers, still never self.
	candidates, err = s.repo.FindCandidates(s.ctx, combat.ModeArena, 70, 140, "char_self")
	s.Require().NoError(err)
	s.Len(candidates, 3)
	for _, c := range candidates {
		s.NotEqual("char_self", c.CharID)
	}
}

func (s *RedisRepositoryTestSuite) TestFindCandidatesOrdered() {
	s.enqueue("char_b", 110)
	s.enqueue("char_a", 90)

	candidates, err := s.repo.FindCandidates(s.ctx, combat.ModeArena, 0, 200, "")
	s.Require().NoError(err)
	s.Require().Len(candidates, 2)
	s.Equal("char_a", candidates[0].CharID)
	s.Equal("char_b", candidates[1].CharID)
}

func (s *RedisRepositoryTestSuite) TestClaimOnce() {
	s.enqueue("char_1", 100)

	ok, err := s.repo.Claim(s.ctx, combat.ModeArena, "char_1")
	s.Require().NoError(err)
	s.True(ok)

	// Second claim loses the race.
	ok, err = s.repo.Claim(s.ctx, combat.ModeArena, "char_1")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisRepositoryTestSuite) TestRemove() {
	s.enqueue("char_1", 100)

	s.Require().NoError(s.repo.Remove(s.ctx, combat.ModeArena, "char_1"))

	n, err := s.repo.QueueLen(s.ctx, combat.ModeArena)
	s.Require().NoError(err)
	s.Zero(n)

	_, err = s.repo.GetRequest(s.ctx, "char_1")
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestValidation() {
	err := s.repo.Enqueue(s.ctx, nil, time.Minute)
	s.True(errors.IsInvalidArgument(err))

	err = s.repo.Enqueue(s.ctx, &combat.MatchRequest{CharID: "char_1"}, time.Minute)
	s.True(errors.IsInvalidArgument(err))

	_, err = s.repo.Claim(s.ctx, combat.ModeArena, "")
	s.True(errors.IsInvalidArgument(err))
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}
