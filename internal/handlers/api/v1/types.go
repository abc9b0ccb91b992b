package v1

import "github.com/reactiveburst/rbc-engine/internal/entities/combat"

// Request DTOs. Validation is declarative through validator tags; anything
// deeper (alive checks, zone repair) belongs to the orchestrators.

type startBattleParticipant struct {
	CharID string `json:"char_id" validate:"required"`
	Team   string `json:"team" validate:"required"`
}

type startBattleDummy struct {
	Name   string `json:"name"`
	Team   string `json:"team" validate:"required"`
	HP     int    `json:"hp" validate:"required,gt=0"`
	Energy int    `json:"energy" validate:"gte=0"`
}

type startBattleRequest struct {
	Mode         string                   `json:"mode" validate:"required,oneof=pve arena_1v1"`
	BattleType   string                   `json:"battle_type" validate:"omitempty,oneof=duel group"`
	Participants []startBattleParticipant `json:"participants" validate:"required,min=1,dive"`
	Dummies      []startBattleDummy       `json:"dummies" validate:"omitempty,dive"`
}

type startBattleResponse struct {
	SessionID string `json:"session_id"`
}

type registerMoveRequest struct {
	CharID      string   `json:"char_id" validate:"required"`
	TargetID    string   `json:"target_id" validate:"required"`
	AttackZones []string `json:"attack_zones"`
	BlockZones  []string `json:"block_zones"`
	AbilityKey  string   `json:"ability_key"`
}

type switchTargetRequest struct {
	CharID      string `json:"char_id" validate:"required"`
	NewTargetID string `json:"new_target_id" validate:"required"`
}

type useConsumableRequest struct {
	CharID string `json:"char_id" validate:"required"`
	ItemID string `json:"item_id" validate:"required"`
}

type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type logsResponse struct {
	Logs []string `json:"logs"`
}

type joinQueueRequest struct {
	CharID string `json:"char_id" validate:"required"`
	Mode   string `json:"mode" validate:"required,oneof=pve arena_1v1"`
}

type joinQueueResponse struct {
	GS float64 `json:"gs"`
}

type checkMatchRequest struct {
	CharID  string `json:"char_id" validate:"required"`
	Attempt int    `json:"attempt" validate:"gte=0"`
}

type checkMatchResponse struct {
	Matched    bool   `json:"matched"`
	Shadow     bool   `json:"shadow,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	OpponentID string `json:"opponent_id,omitempty"`
}

type shadowBattleRequest struct {
	CharID string `json:"char_id" validate:"required"`
}

type shadowBattleResponse struct {
	Created   bool   `json:"created"`
	SessionID string `json:"session_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func toZones(raw []string) []combat.Zone {
	if len(raw) == 0 {
		return nil
	}
	zones := make([]combat.Zone, 0, len(raw))
	for _, z := range raw {
		zones = append(zones, combat.Zone(z))
	}
	return zones
}
