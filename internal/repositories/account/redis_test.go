package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	"github.com/reactiveburst/rbc-engine/internal/repositories/account"
	"github.com/reactiveburst/rbc-engine/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	repo    account.Repository
	cleanup func()
	ctx     context.Context
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, _, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.ctx = context.Background()

	repo, err := account.NewRedis(&account.RedisConfig{Client: client})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *RedisRepositoryTestSuite) seedCharacter() *account.Character {
	c := &account.Character{
		ID:            "char_1",
		Name:          "Aldo",
		HPCurrent:     90,
		EnergyCurrent: 40,
		Stats: map[string]float64{
			"strength":  12,
			"endurance": 10,
		},
		Equipment: []combat.Item{
			{Name: "Iron Sword", Type: combat.ItemWeapon, Subtype: "sword", BasePower: 20, DamageSpread: 0.1},
		},
		Abilities: []string{"power_strike"},
		Belt: []combat.BeltItem{
			{ID: "potion_minor", Name: "Minor Healing Potion", Effect: combat.BeltEffectHealHP, Amount: 25, Count: 2},
		},
	}
	s.Require().NoError(s.repo.Save(s.ctx, c))
	return c
}

func (s *RedisRepositoryTestSuite) TestSaveAndGet() {
	want := s.seedCharacter()

	got, err := s.repo.Get(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Equal(want.Name, got.Name)
	s.Equal(want.HPCurrent, got.HPCurrent)
	s.Equal(want.EnergyCurrent, got.EnergyCurrent)
	s.Equal(want.Stats, got.Stats)
	s.Equal(want.Equipment, got.Equipment)
	s.Equal(want.Abilities, got.Abilities)
	s.Equal(want.Belt, got.Belt)
	s.Empty(got.CombatSessionID)
}

func (s *RedisRepositoryTestSuite) TestGetNotFound() {
	_, err := s.repo.Get(s.ctx, "ghost")
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestSaveVitals() {
	s.seedCharacter()

	s.Require().NoError(s.repo.SaveVitals(s.ctx, "char_1", 37, 12))

	got, err := s.repo.Get(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Equal(37, got.HPCurrent)
	s.Equal(12, got.EnergyCurrent)
	s.Equal("Aldo", got.Name, "vitals write must not disturb other fields")
}

func (s *RedisRepositoryTestSuite) TestSaveVitalsNegative() {
	err := s.repo.SaveVitals(s.ctx, "char_1", -1, 10)
	s.True(errors.IsInvalidArgument(err))
}

func (s *RedisRepositoryTestSuite) TestCombatSessionBinding() {
	s.seedCharacter()

	s.Require().NoError(s.repo.SetCombatSession(s.ctx, "char_1", "sess_9"))
	got, err := s.repo.Get(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Equal("sess_9", got.CombatSessionID)

	s.Require().NoError(s.repo.ClearCombatSession(s.ctx, "char_1"))
	got, err = s.repo.Get(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Empty(got.CombatSessionID)
}

func (s *RedisRepositoryTestSuite) TestSkillXP() {
	s.Require().NoError(s.repo.AddSkillXP(s.ctx, "char_1", map[string]int{
		"sword":  25,
		"shield": 3,
	}))
	s.Require().NoError(s.repo.AddSkillXP(s.ctx, "char_1", map[string]int{
		"sword": 5,
	}))

	skills, err := s.repo.GetSkills(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Equal(30, skills["sword"])
	s.Equal(3, skills["shield"])
}

func (s *RedisRepositoryTestSuite) TestSkillXPSkipsNonPositive() {
	s.Require().NoError(s.repo.AddSkillXP(s.ctx, "char_1", map[string]int{
		"sword":   10,
		"unarmed": 0,
	}))

	skills, err := s.repo.GetSkills(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Equal(10, skills["sword"])
	s.NotContains(skills, "unarmed")
}

func (s *RedisRepositoryTestSuite) TestSkillXPEmptyBatch() {
	s.Require().NoError(s.repo.AddSkillXP(s.ctx, "char_1", nil))

	skills, err := s.repo.GetSkills(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Empty(skills)
}

func (s *RedisRepositoryTestSuite) TestStatusFlag() {
	status, err := s.repo.GetStatus(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Empty(status)

	s.Require().NoError(s.repo.SetStatus(s.ctx, "char_1", "combat:sess_9"))
	status, err = s.repo.GetStatus(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Equal("combat:sess_9", status)

	s.Require().NoError(s.repo.ClearStatus(s.ctx, "char_1"))
	status, err = s.repo.GetStatus(s.ctx, "char_1")
	s.Require().NoError(err)
	s.Empty(status)
}

func (s *RedisRepositoryTestSuite) TestValidation() {
	err := s.repo.Save(s.ctx, nil)
	s.True(errors.IsInvalidArgument(err))

	_, err = s.repo.Get(s.ctx, "")
	s.True(errors.IsInvalidArgument(err))

	err = s.repo.SetStatus(s.ctx, "char_1", "")
	s.True(errors.IsInvalidArgument(err))
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}
