package account

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"

	"github.com/reactiveburst/rbc-engine/internal/errors"
	redisclient "github.com/reactiveburst/rbc-engine/internal/redis"
)

const errCharIDEmpty = "character ID cannot be empty"

func accountKey(charID string) string {
	return fmt.Sprintf("ac:%s", charID)
}

func skillsKey(charID string) string {
	return fmt.Sprintf("skills:%s", charID)
}

func statusKey(charID string) string {
	return fmt.Sprintf("player:status:%s", charID)
}

type redisRepository struct {
	client redisclient.Client
}

// RedisConfig contains configuration for the Redis account repository.
type RedisConfig struct {
	Client redisclient.Client
}

// Validate validates the RedisConfig.
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	return nil
}

// NewRedis creates a new Redis-backed account repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &redisRepository{client: cfg.Client}, nil
}

var _ Repository = (*redisRepository)(nil)

func (r *redisRepository) Save(ctx context.Context, c *Character) error {
	if c == nil || c.ID == "" {
		return errors.InvalidArgument(errCharIDEmpty)
	}

	stats, err := json.Marshal(c.Stats)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal stats")
	}
	equipment, err := json.Marshal(c.Equipment)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal equipment")
	}
	abilities, err := json.Marshal(c.Abilities)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal abilities")
	}
	belt, err := json.Marshal(c.Belt)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal belt")
	}

	err = r.client.HSet(ctx, accountKey(c.ID), map[string]interface{}{
		"name":              c.Name,
		"hp_current":        c.HPCurrent,
		"energy_current":    c.EnergyCurrent,
		"combat_session_id": c.CombatSessionID,
		"stats":             string(stats),
		"equipment":         string(equipment),
		"abilities":         string(abilities),
		"belt":              string(belt),
	}).Err()
	if err != nil {
		return errors.Wrapf(err, "failed to save account")
	}
	return nil
}

func (r *redisRepository) Get(ctx context.Context, charID string) (*Character, error) {
	if charID == "" {
		return nil, errors.InvalidArgument(errCharIDEmpty)
	}

	values, err := r.client.HGetAll(ctx, accountKey(charID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get account")
	}
	if len(values) == 0 {
		return nil, errors.NotFoundf("character %s not found", charID).
			WithMeta("char_id", charID)
	}

	c := &Character{
		ID:              charID,
		Name:            values["name"],
		CombatSessionID: values["combat_session_id"],
	}
	if v := values["hp_current"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.DataLossf("unparseable hp_current for character %s", charID)
		}
		c.HPCurrent = n
	}
	if v := values["energy_current"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.DataLossf("unparseable energy_current for character %s", charID)
		}
		c.EnergyCurrent = n
	}
	if v := values["stats"]; v != "" {
		if err := json.Unmarshal([]byte(v), &c.Stats); err != nil {
			return nil, errors.DataLossf("unparseable stats for character %s", charID)
		}
	}
	if v := values["equipment"]; v != "" {
		if err := json.Unmarshal([]byte(v), &c.Equipment); err != nil {
			return nil, errors.DataLossf("unparseable equipment for character %s", charID)
		}
	}
	if v := values["abilities"]; v != "" {
		if err := json.Unmarshal([]byte(v), &c.Abilities); err != nil {
			return nil, errors.DataLossf("unparseable abilities for character %s", charID)
		}
	}
	if v := values["belt"]; v != "" {
		if err := json.Unmarshal([]byte(v), &c.Belt); err != nil {
			return nil, errors.DataLossf("unparseable belt for character %s", charID)
		}
	}
	return c, nil
}

func (r *redisRepository) SaveVitals(ctx context.Context, charID string, hp, energy int) error {
	if charID == "" {
		return errors.InvalidArgument(errCharIDEmpty)
	}
	if hp < 0 || energy < 0 {
		return errors.InvalidArgumentf("vitals cannot be negative: hp=%d energy=%d", hp, energy)
	}

	err := r.client.HSet(ctx, accountKey(charID),
		"hp_current", hp,
		"energy_current", energy,
	).Err()
	if err != nil {
		return errors.Wrapf(err, "failed to save vitals")
	}
	return nil
}

func (r *redisRepository) SetCombatSession(ctx context.Context, charID, sessionID string) error {
	if charID == "" {
		return errors.InvalidArgument(errCharIDEmpty)
	}
	if err := r.client.HSet(ctx, accountKey(charID), "combat_session_id", sessionID).Err(); err != nil {
		return errors.Wrapf(err, "failed to set combat session")
	}
	return nil
}

func (r *redisRepository) ClearCombatSession(ctx context.Context, charID string) error {
	return r.SetCombatSession(ctx, charID, "")
}

func (r *redisRepository) AddSkillXP(ctx context.Context, charID string, xp map[string]int) error {
	if charID == "" {
		return errors.InvalidArgument(errCharIDEmpty)
	}
	if len(xp) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for skill, amount := range xp {
		if amount <= 0 {
			continue
		}
		pipe.HIncrBy(ctx, skillsKey(charID), skill, int64(amount))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to add skill xp")
	}
	return nil
}

func (r *redisRepository) GetSkills(ctx context.Context, charID string) (map[string]int, error) {
	if charID == "" {
		return nil, errors.InvalidArgument(errCharIDEmpty)
	}

	values, err := r.client.HGetAll(ctx, skillsKey(charID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get skills")
	}

	skills := make(map[string]int, len(values))
	for skill, raw := range values {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.DataLossf("unparseable xp for skill %s of character %s", skill, charID)
		}
		skills[skill] = n
	}
	return skills, nil
}

func (r *redisRepository) SetStatus(ctx context.Context, charID, status string) error {
	if charID == "" {
		return errors.InvalidArgument(errCharIDEmpty)
	}
	if status == "" {
		return errors.InvalidArgument("status cannot be empty")
	}
	if err := r.client.Set(ctx, statusKey(charID), status, 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to set player status")
	}
	return nil
}

func (r *redisRepository) GetStatus(ctx context.Context, charID string) (string, error) {
	if charID == "" {
		return "", errors.InvalidArgument(errCharIDEmpty)
	}
	status, err := r.client.Get(ctx, statusKey(charID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", errors.Wrapf(err, "failed to get player status")
	}
	return status, nil
}

func (r *redisRepository) ClearStatus(ctx context.Context, charID string) error {
	if charID == "" {
		return errors.InvalidArgument(errCharIDEmpty)
	}
	if err := r.client.Del(ctx, statusKey(charID)).Err(); err != nil {
		return errors.Wrapf(err, "failed to clear player status")
	}
	return nil
}
