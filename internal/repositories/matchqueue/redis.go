package matchqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	redisclient "github.com/reactiveburst/rbc-engine/internal/redis"
)

const errCharIDEmpty = "character ID cannot be empty"

func queueKey(mode combat.Mode) string {
	return fmt.Sprintf("arena:queue:%s:zset", mode)
}

func requestKey(charID string) string {
	return fmt.Sprintf("arena:req:%s", charID)
}

type redisRepository struct {
	client redisclient.Client
}

// RedisConfig contains configuration for the Redis match queue repository.
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

// NewRedis creates a new Redis-backed match queue repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &redisRepository{client: cfg.Client}, nil
}

var _ Repository = (*redisRepository)(nil)

func (r *redisRepository) Enqueue(ctx context.Context, req *combat.MatchRequest, ttl time.Duration) error {
	if req == nil || req.CharID == "" {
		return errors.InvalidArgument(errCharIDEmpty)
	}
	if req.Mode == "" {
		return errors.InvalidArgument("mode cannot be empty")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal match request")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, requestKey(req.CharID), data, ttl)
	pipe.ZAdd(ctx, queueKey(req.Mode), redis.Z{Score: req.GS, Member: req.CharID})
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to enqueue match request")
	}
	return nil
}

func (r *redisRepository) GetRequest(ctx context.Context, charID string) (*combat.MatchRequest, error) {
	if charID == "" {
		return nil, errors.InvalidArgument(errCharIDEmpty)
	}

	raw, err := r.client.Get(ctx, requestKey(charID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("match request for %s not found", charID).
				WithMeta("char_id", charID)
		}
		return nil, errors.Wrapf(err, "failed to get match request")
	}

	var req combat.MatchRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, errors.DataLossf("unparseable match request for %s", charID)
	}
	return &req, nil
}

func (r *redisRepository) FindCandidates(ctx context.Context, mode combat.Mode, minGS, maxGS float64, excludeCharID string) ([]Candidate, error) {
	if mode == "" {
		return nil, errors.InvalidArgument("mode cannot be empty")
	}

	results, err := r.client.ZRangeByScoreWithScores(ctx, queueKey(mode), &redis.ZRangeBy{
		Min: strconv.FormatFloat(minGS, 'f', -1, 64),
		Max: strconv.FormatFloat(maxGS, 'f', -1, 64),
	}).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan rating band")
	}

	candidates := make([]Candidate, 0, len(results))
	for _, z := range results {
		charID, ok := z.Member.(string)
		if !ok || charID == excludeCharID {
			continue
		}
		candidates = append(candidates, Candidate{CharID: charID, GS: z.Score})
	}
	return candidates, nil
}

func (r *redisRepository) Claim(ctx context.Context, mode combat.Mode, charID string) (bool, error) {
	if charID == "" {
		return false, errors.InvalidArgument(errCharIDEmpty)
	}

	removed, err := r.client.ZRem(ctx, queueKey(mode), charID).Result()
	if err != nil {
		return false, errors.Wrapf(err, "failed to claim candidate")
	}
	return removed == 1, nil
}

func (r *redisRepository) Remove(ctx context.Context, mode combat.Mode, charID string) error {
	if charID == "" {
		return errors.InvalidArgument(errCharIDEmpty)
	}

	pipe := r.client.TxPipeline()
	pipe.ZRem(ctx, queueKey(mode), charID)
	pipe.Del(ctx, requestKey(charID))
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to remove from queue")
	}
	return nil
}

func (r *redisRepository) QueueLen(ctx context.Context, mode combat.Mode) (int64, error) {
	if mode == "" {
		return 0, errors.InvalidArgument("mode cannot be empty")
	}
	n, err := r.client.ZCard(ctx, queueKey(mode)).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read queue length")
	}
	return n, nil
}
