package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	redisclient "github.com/reactiveburst/rbc-engine/internal/redis"
)

const (
	metaKeyPattern = "combat:rbc:*:meta"

	// Error messages
	errSessionIDEmpty = "session ID cannot be empty"
	errActorIDEmpty   = "actor ID cannot be empty"
	errActorNil       = "participant cannot be nil"
	errMoveNil        = "move cannot be nil"
)

func metaKey(sessionID string) string {
	return fmt.Sprintf("combat:rbc:%s:meta", sessionID)
}

func actorsKey(sessionID string) string {
	return fmt.Sprintf("combat:rbc:%s:actors", sessionID)
}

func movesKey(sessionID, actorID string) string {
	return fmt.Sprintf("combat:rbc:%s:moves:%s", sessionID, actorID)
}

func exchangesKey(sessionID, actorID string) string {
	return fmt.Sprintf("combat:rbc:%s:exchanges:%s", sessionID, actorID)
}

func logsKey(sessionID string) string {
	return fmt.Sprintf("combat:sess:%s:logs", sessionID)
}

// markFinishedScript flips active 1 -> 0 exactly once; concurrent
// finalizers lose the race and observe 0.
var markFinishedScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'active') == '1' then
  redis.call('HSET', KEYS[1], 'active', '0', 'winner', ARGV[1], 'end_time', ARGV[2])
  return 1
end
return 0
`)

type redisRepository struct {
	client redisclient.Client
}

// RedisConfig contains configuration for the Redis session repository.
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

// NewRedis creates a new Redis-backed session repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &redisRepository{client: cfg.Client}, nil
}

var _ Repository = (*redisRepository)(nil)

func (r *redisRepository) CreateMeta(ctx context.Context, meta *combat.Meta) error {
	if meta == nil || meta.SessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}

	key := metaKey(meta.SessionID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return errors.Wrapf(err, "failed to check session existence")
	}
	if exists > 0 {
		return errors.AlreadyExistsf("session %s already exists", meta.SessionID)
	}

	fields, err := metaFields(meta)
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return errors.Wrapf(err, "failed to create session meta")
	}
	return nil
}

func (r *redisRepository) GetMeta(ctx context.Context, sessionID string) (*combat.Meta, error) {
	if sessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	values, err := r.client.HGetAll(ctx, metaKey(sessionID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get session meta")
	}
	if len(values) == 0 {
		return nil, errors.NotFoundf("session %s not found", sessionID).
			WithMeta("session_id", sessionID)
	}

	return parseMeta(sessionID, values)
}

func (r *redisRepository) UpdateRoster(ctx context.Context, meta *combat.Meta) error {
	if meta == nil || meta.SessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}

	teams, err := json.Marshal(meta.Teams)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal teams")
	}
	info, err := json.Marshal(meta.ActorsInfo)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal actors info")
	}
	dead, err := json.Marshal(meta.DeadActors)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal dead actors")
	}

	err = r.client.HSet(ctx, metaKey(meta.SessionID),
		"teams", string(teams),
		"actors_info", string(info),
		"dead_actors", string(dead),
	).Err()
	if err != nil {
		return errors.Wrapf(err, "failed to update roster")
	}
	return nil
}

func (r *redisRepository) MarkFinished(ctx context.Context, sessionID, winner string, endTime int64) (bool, error) {
	if sessionID == "" {
		return false, errors.InvalidArgument(errSessionIDEmpty)
	}

	res, err := markFinishedScript.Run(ctx, r.client,
		[]string{metaKey(sessionID)}, winner, endTime).Int()
	if err != nil {
		return false, errors.Wrapf(err, "failed to mark session finished")
	}
	return res == 1, nil
}

func (r *redisRepository) SaveActor(ctx context.Context, sessionID string, p *combat.Participant) error {
	if sessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}
	if p == nil || p.ID == "" {
		return errors.InvalidArgument(errActorNil)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal participant")
	}
	if err := r.client.HSet(ctx, actorsKey(sessionID), p.ID, data).Err(); err != nil {
		return errors.Wrapf(err, "failed to save participant")
	}
	return nil
}

func (r *redisRepository) GetActor(ctx context.Context, sessionID, charID string) (*combat.Participant, error) {
	if sessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}
	if charID == "" {
		return nil, errors.InvalidArgument(errActorIDEmpty)
	}

	raw, err := r.client.HGet(ctx, actorsKey(sessionID), charID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("actor %s not found in session %s", charID, sessionID).
				WithMeta("session_id", sessionID).
				WithMeta("char_id", charID)
		}
		return nil, errors.Wrapf(err, "failed to get participant")
	}

	var p combat.Participant
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, errors.DataLossf("unparseable participant %s in session %s", charID, sessionID)
	}
	return &p, nil
}

func (r *redisRepository) ListActors(ctx context.Context, sessionID string) ([]*combat.Participant, error) {
	if sessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	values, err := r.client.HGetAll(ctx, actorsKey(sessionID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list participants")
	}

	actors := make([]*combat.Participant, 0, len(values))
	for charID, raw := range values {
		var p combat.Participant
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			// A corrupt container must not take the session down; skip it
			// for this cycle.
			slog.WarnContext(ctx, "skipping unparseable participant",
				"session_id", sessionID,
				"char_id", charID,
				"error", err.Error())
			continue
		}
		actors = append(actors, &p)
	}
	return actors, nil
}

func (r *redisRepository) SetMove(ctx context.Context, sessionID, actorID string, move *combat.Move) error {
	if sessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}
	if actorID == "" {
		return errors.InvalidArgument(errActorIDEmpty)
	}
	if move == nil || move.TargetID == "" {
		return errors.InvalidArgument(errMoveNil)
	}

	data, err := json.Marshal(move)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal move")
	}
	if err := r.client.HSet(ctx, movesKey(sessionID, actorID), move.TargetID, data).Err(); err != nil {
		return errors.Wrapf(err, "failed to store move")
	}
	return nil
}

func (r *redisRepository) GetMoves(ctx context.Context, sessionID, actorID string) (map[string]*combat.Move, error) {
	if sessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}
	if actorID == "" {
		return nil, errors.InvalidArgument(errActorIDEmpty)
	}

	values, err := r.client.HGetAll(ctx, movesKey(sessionID, actorID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get moves")
	}

	moves := make(map[string]*combat.Move, len(values))
	for targetID, raw := range values {
		var m combat.Move
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			slog.WarnContext(ctx, "skipping unparseable move",
				"session_id", sessionID,
				"actor_id", actorID,
				"target_id", targetID,
				"error", err.Error())
			continue
		}
		moves[targetID] = &m
	}
	return moves, nil
}

func (r *redisRepository) DeleteMove(ctx context.Context, sessionID, actorID, targetID string) error {
	if sessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}
	if err := r.client.HDel(ctx, movesKey(sessionID, actorID), targetID).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete move")
	}
	return nil
}

func (r *redisRepository) SeedExchangeQueue(ctx context.Context, sessionID, actorID string, opponents []string) error {
	if sessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}

	key := exchangesKey(sessionID, actorID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(opponents) > 0 {
		args := make([]interface{}, len(opponents))
		for i, id := range opponents {
			args[i] = id
		}
		pipe.RPush(ctx, key, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to seed exchange queue")
	}
	return nil
}

func (r *redisRepository) RotateExchange(ctx context.Context, sessionID, actorID, opponentID string) error {
	if sessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}

	key := exchangesKey(sessionID, actorID)
	pipe := r.client.TxPipeline()
	pipe.LRem(ctx, key, 1, opponentID)
	pipe.RPush(ctx, key, opponentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to rotate exchange queue")
	}
	return nil
}

func (r *redisRepository) RemoveFromExchangeQueue(ctx context.Context, sessionID, actorID, opponentID string) error {
	if sessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}
	if err := r.client.LRem(ctx, exchangesKey(sessionID, actorID), 0, opponentID).Err(); err != nil {
		return errors.Wrapf(err, "failed to remove from exchange queue")
	}
	return nil
}

func (r *redisRepository) ExchangeQueueLen(ctx context.Context, sessionID, actorID string) (int64, error) {
	if sessionID == "" {
		return 0, errors.InvalidArgument(errSessionIDEmpty)
	}
	n, err := r.client.LLen(ctx, exchangesKey(sessionID, actorID)).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read exchange queue length")
	}
	return n, nil
}

func (r *redisRepository) AppendLog(ctx context.Context, sessionID string, entry *combat.LogEntry) error {
	if sessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal log entry")
	}
	if err := r.client.RPush(ctx, logsKey(sessionID), data).Err(); err != nil {
		return errors.Wrapf(err, "failed to append log")
	}
	return nil
}

func (r *redisRepository) GetLogs(ctx context.Context, sessionID string, limit int64) ([]string, error) {
	if sessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}
	if limit <= 0 {
		limit = 20
	}

	raw, err := r.client.LRange(ctx, logsKey(sessionID), -limit, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read logs")
	}
	return raw, nil
}

func (r *redisRepository) CountLogs(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, errors.InvalidArgument(errSessionIDEmpty)
	}
	n, err := r.client.LLen(ctx, logsKey(sessionID)).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count logs")
	}
	return n, nil
}

func (r *redisRepository) ExpireHistory(ctx context.Context, sessionID string, actorIDs []string, ttl time.Duration) error {
	if sessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}

	pipe := r.client.TxPipeline()
	pipe.Expire(ctx, metaKey(sessionID), ttl)
	pipe.Expire(ctx, actorsKey(sessionID), ttl)
	pipe.Expire(ctx, logsKey(sessionID), ttl)
	for _, actorID := range actorIDs {
		pipe.Del(ctx, movesKey(sessionID, actorID))
		pipe.Del(ctx, exchangesKey(sessionID, actorID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to expire session history")
	}
	return nil
}

func (r *redisRepository) ScanActiveSessions(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		active []string
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, metaKeyPattern, 100).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan session keys")
		}
		for _, key := range keys {
			flag, err := r.client.HGet(ctx, key, "active").Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				return nil, errors.Wrapf(err, "failed to read active flag for %s", key)
			}
			if flag != "1" {
				continue
			}
			sessionID := strings.TrimSuffix(strings.TrimPrefix(key, "combat:rbc:"), ":meta")
			active = append(active, sessionID)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return active, nil
}

func metaFields(meta *combat.Meta) (map[string]interface{}, error) {
	teams, err := json.Marshal(meta.Teams)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal teams")
	}
	info, err := json.Marshal(meta.ActorsInfo)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal actors info")
	}
	dead, err := json.Marshal(meta.DeadActors)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal dead actors")
	}

	active := "0"
	if meta.Active {
		active = "1"
	}

	return map[string]interface{}{
		"start_time":  meta.StartTime,
		"active":      active,
		"mode":        string(meta.Mode),
		"battle_type": string(meta.BattleType),
		"winner":      meta.Winner,
		"end_time":    meta.EndTime,
		"teams":       string(teams),
		"actors_info": string(info),
		"dead_actors": string(dead),
	}, nil
}

func parseMeta(sessionID string, values map[string]string) (*combat.Meta, error) {
	meta := &combat.Meta{
		SessionID:  sessionID,
		Active:     values["active"] == "1",
		Mode:       combat.Mode(values["mode"]),
		BattleType: combat.BattleType(values["battle_type"]),
		Winner:     values["winner"],
	}

	if v := values["start_time"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.DataLossf("unparseable start_time for session %s", sessionID)
		}
		meta.StartTime = n
	}
	if v := values["end_time"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.DataLossf("unparseable end_time for session %s", sessionID)
		}
		meta.EndTime = n
	}

	if v := values["teams"]; v != "" {
		if err := json.Unmarshal([]byte(v), &meta.Teams); err != nil {
			return nil, errors.DataLossf("unparseable teams for session %s", sessionID)
		}
	}
	if v := values["actors_info"]; v != "" {
		if err := json.Unmarshal([]byte(v), &meta.ActorsInfo); err != nil {
			return nil, errors.DataLossf("unparseable actors_info for session %s", sessionID)
		}
	}
	if v := values["dead_actors"]; v != "" {
		if err := json.Unmarshal([]byte(v), &meta.DeadActors); err != nil {
			return nil, errors.DataLossf("unparseable dead_actors for session %s", sessionID)
		}
	}
	return meta, nil
}
