// Package v1 exposes the combat and arena operations over HTTP. Handlers
// decode and validate DTOs, call the orchestrators, and map engine error
// codes to HTTP statuses.
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	entities "github.com/reactiveburst/rbc-engine/internal/entities/combat"
	"github.com/reactiveburst/rbc-engine/internal/errors"
	"github.com/reactiveburst/rbc-engine/internal/orchestrators/combat"
	"github.com/reactiveburst/rbc-engine/internal/orchestrators/lifecycle"
	"github.com/reactiveburst/rbc-engine/internal/orchestrators/matchmaking"
)

// Config holds the dependencies for the HTTP handler
type Config struct {
	Combat      combat.Service
	Lifecycle   lifecycle.Service
	Matchmaking matchmaking.Service
	// Launcher is optional; when nil, battles started over HTTP are not
	// supervised until recovery picks them up.
	Launcher lifecycle.Launcher
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Combat == nil {
		vb.RequiredField("Combat")
	}
	if c.Lifecycle == nil {
		vb.RequiredField("Lifecycle")
	}
	if c.Matchmaking == nil {
		vb.RequiredField("Matchmaking")
	}

	return vb.Build()
}

// Handler serves the /api/v1 surface.
type Handler struct {
	combat      combat.Service
	lifecycle   lifecycle.Service
	matchmaking matchmaking.Service
	launcher    lifecycle.Launcher
	validate    *validator.Validate
}

// NewHandler creates a new HTTP handler with the provided dependencies
func NewHandler(cfg *Config) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Handler{
		combat:      cfg.Combat,
		lifecycle:   cfg.Lifecycle,
		matchmaking: cfg.Matchmaking,
		launcher:    cfg.Launcher,
		validate:    validator.New(),
	}, nil
}

// Routes returns the chi router for the v1 surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/battles", h.startBattle)
	r.Route("/battles/{session_id}", func(r chi.Router) {
		r.Post("/moves", h.registerMove)
		r.Get("/dashboard", h.getDashboard)
		r.Post("/target", h.switchTarget)
		r.Post("/consumables", h.useConsumable)
		r.Get("/next-target", h.getNextTarget)
		r.Get("/logs", h.getLogs)
	})

	r.Post("/arena/queue", h.joinQueue)
	r.Post("/arena/queue/check", h.checkAndMatch)
	r.Delete("/arena/queue", h.cancelQueue)
	r.Post("/arena/shadow", h.createShadowBattle)

	return r
}

func (h *Handler) startBattle(w http.ResponseWriter, r *http.Request) {
	var req startBattleRequest
	if !h.decode(w, r, &req) {
		return
	}

	battleType := entities.BattleType(req.BattleType)
	if battleType == "" {
		battleType = entities.BattleDuel
	}

	ctx := r.Context()
	created, err := h.lifecycle.CreateSession(ctx, &lifecycle.CreateSessionInput{
		Mode:       entities.Mode(req.Mode),
		BattleType: battleType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	for _, p := range req.Participants {
		if _, err := h.lifecycle.AddParticipant(ctx, &lifecycle.AddParticipantInput{
			SessionID: created.SessionID,
			CharID:    p.CharID,
			Team:      p.Team,
		}); err != nil {
			writeError(w, r, err)
			return
		}
	}
	for _, d := range req.Dummies {
		if _, err := h.lifecycle.AddDummyParticipant(ctx, &lifecycle.AddDummyParticipantInput{
			SessionID: created.SessionID,
			Name:      d.Name,
			Team:      d.Team,
			HP:        d.HP,
			Energy:    d.Energy,
		}); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if _, err := h.lifecycle.InitBattleState(ctx, &lifecycle.InitBattleStateInput{
		SessionID: created.SessionID,
	}); err != nil {
		writeError(w, r, err)
		return
	}

	if h.launcher != nil {
		h.launcher.Launch(created.SessionID)
	}

	writeJSON(w, http.StatusCreated, startBattleResponse{SessionID: created.SessionID})
}

func (h *Handler) registerMove(w http.ResponseWriter, r *http.Request) {
	var req registerMoveRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.combat.RegisterMove(r.Context(), &combat.RegisterMoveInput{
		SessionID:   chi.URLParam(r, "session_id"),
		CharID:      req.CharID,
		TargetID:    req.TargetID,
		AttackZones: toZones(req.AttackZones),
		BlockZones:  toZones(req.BlockZones),
		AbilityKey:  req.AbilityKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out.Dashboard)
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	charID := r.URL.Query().Get("char_id")
	if charID == "" {
		writeError(w, r, errors.InvalidArgument("char_id query parameter is required"))
		return
	}

	out, err := h.combat.GetDashboard(r.Context(), &combat.GetDashboardInput{
		SessionID: chi.URLParam(r, "session_id"),
		CharID:    charID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out.Dashboard)
}

func (h *Handler) switchTarget(w http.ResponseWriter, r *http.Request) {
	var req switchTargetRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.combat.SwitchTarget(r.Context(), &combat.SwitchTargetInput{
		SessionID:   chi.URLParam(r, "session_id"),
		CharID:      req.CharID,
		NewTargetID: req.NewTargetID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: out.OK, Message: out.Message})
}

func (h *Handler) useConsumable(w http.ResponseWriter, r *http.Request) {
	var req useConsumableRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.combat.UseConsumable(r.Context(), &combat.UseConsumableInput{
		SessionID: chi.URLParam(r, "session_id"),
		CharID:    req.CharID,
		ItemID:    req.ItemID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: out.OK, Message: out.Message})
}

func (h *Handler) getNextTarget(w http.ResponseWriter, r *http.Request) {
	charID := r.URL.Query().Get("char_id")
	if charID == "" {
		writeError(w, r, errors.InvalidArgument("char_id query parameter is required"))
		return
	}

	out, err := h.combat.GetNextTarget(r.Context(), &combat.GetNextTargetInput{
		SessionID: chi.URLParam(r, "session_id"),
		CharID:    charID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getLogs(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, r, errors.InvalidArgument("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	out, err := h.combat.GetLogs(r.Context(), &combat.GetLogsInput{
		SessionID: chi.URLParam(r, "session_id"),
		Limit:     limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Logs: out.Logs})
}

func (h *Handler) joinQueue(w http.ResponseWriter, r *http.Request) {
	var req joinQueueRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.matchmaking.JoinQueue(r.Context(), &matchmaking.JoinQueueInput{
		CharID: req.CharID,
		Mode:   entities.Mode(req.Mode),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joinQueueResponse{GS: out.GS})
}

func (h *Handler) checkAndMatch(w http.ResponseWriter, r *http.Request) {
	var req checkMatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.matchmaking.CheckAndMatch(r.Context(), &matchmaking.CheckAndMatchInput{
		CharID:  req.CharID,
		Attempt: req.Attempt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkMatchResponse{
		Matched:    out.Matched,
		Shadow:     out.Shadow,
		SessionID:  out.SessionID,
		OpponentID: out.OpponentID,
	})
}

func (h *Handler) cancelQueue(w http.ResponseWriter, r *http.Request) {
	charID := r.URL.Query().Get("char_id")
	if charID == "" {
		writeError(w, r, errors.InvalidArgument("char_id query parameter is required"))
		return
	}

	if _, err := h.matchmaking.CancelQueue(r.Context(), &matchmaking.CancelQueueInput{
		CharID: charID,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createShadowBattle(w http.ResponseWriter, r *http.Request) {
	var req shadowBattleRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.matchmaking.CreateShadowBattle(r.Context(), &matchmaking.CreateShadowBattleInput{
		CharID: req.CharID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, shadowBattleResponse{Created: out.Created, SessionID: out.SessionID})
}

// decode reads and validates a JSON body, writing the error response
// itself when the payload is rejected.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, errors.InvalidArgument("malformed JSON body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, r, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err.Error())
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code.String()})
}
