package api

import (
	"errors"
	"net/http"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

type duelRequest struct {
	TargetID string `json:"target_id" binding:"required"`
}

type promptRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// ActionRequest is the wire form of an ActionChoice.
type ActionRequest struct {
	Kind     string `json:"kind" binding:"required"`
	WeaponID uint   `json:"weapon_id"`
	AmmoID   *uint  `json:"ammo_id"`
	Limb     string `json:"limb"`
	ItemID   uint   `json:"item_id"`
}

type lootRequest struct {
	ItemIDs []uint `json:"item_ids"`
}

// choice converts the request into an ActionChoice. Ownership and item
// types are only checked when the round resolves.
func (r ActionRequest) choice() (game.ActionChoice, bool) {
	switch game.ActionKind(r.Kind) {
	case game.ActionAttack:
		if r.WeaponID == 0 {
			return nil, false
		}
		a := game.Attack{Weapon: r.WeaponID, Ammo: r.AmmoID}
		if r.Limb != "" {
			limb, err := game.ParseLimb(r.Limb)
			if err != nil {
				return nil, false
			}
			a.Limb = &limb
		}
		return a, true
	case game.ActionUseMedical:
		return game.UseMedical{Item: r.ItemID}, r.ItemID != 0
	case game.ActionUseStimulant:
		return game.UseStimulant{Item: r.ItemID}, r.ItemID != 0
	case game.ActionFlee:
		return game.Flee{}, true
	}
	return nil, false
}

// RequestDuel challenges another user. Both users are locked into the duel
// until it completes.
func (h *Handler) RequestDuel(c *gin.Context) {
	var req duelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	s, err := h.duels.RequestDuel(c.Request.Context(), currentUser(c), req.TargetID)
	if err != nil {
		respondError(c, err, constants.ErrInternal)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID})
}

// GetDuel returns the live view of a duel the caller takes part in. Duels
// not running here fall back to the stored record.
func (h *Handler) GetDuel(c *gin.Context) {
	id := c.Param("sessionID")
	v, err := h.duels.Snapshot(id)
	if errors.Is(err, service.ErrSessionNotFound) && h.history != nil {
		h.duelHistory(c, id)
		return
	}
	if err != nil {
		respondError(c, err, constants.ErrInternal)
		return
	}
	user := currentUser(c)
	if v.Participants[0] != user && v.Participants[1] != user {
		c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrNotParticipant})
		return
	}
	c.JSON(http.StatusOK, v)
}

// duelHistory serves the stored record of a duel and, when events are
// published to redis, the last event sent for it.
func (h *Handler) duelHistory(c *gin.Context, id string) {
	ctx := c.Request.Context()
	rec, err := h.history.GetDuelRecord(ctx, id)
	if err != nil {
		respondError(c, err, constants.ErrInternal)
		return
	}
	user := currentUser(c)
	if rec.ParticipantA != user && rec.ParticipantB != user {
		c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrNotParticipant})
		return
	}
	body := gin.H{"record": rec}
	if h.snapshots != nil {
		latest, err := h.snapshots.Latest(ctx, id)
		if err != nil {
			logging.Warn("failed to read duel snapshot", logging.Fields{constants.LogFieldSessionID: id, "error": err.Error()})
		} else if latest != nil {
			body["latest_event"] = latest
		}
	}
	c.JSON(http.StatusOK, body)
}

// ActiveDuel returns the caller's running duel, if any.
func (h *Handler) ActiveDuel(c *gin.Context) {
	v, ok := h.duels.ActiveSession(currentUser(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrSessionNotFound})
		return
	}
	c.JSON(http.StatusOK, v)
}

// BeginChoice opens a selection sub-prompt and returns its deadline.
func (h *Handler) BeginChoice(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	deadline, err := h.duels.BeginChoice(c.Param("sessionID"), currentUser(c), game.PromptStage(req.Stage))
	if err != nil {
		respondError(c, err, constants.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": req.Stage, "deadline": deadline})
}

// SubmitAction stores the caller's action for the current round.
func (h *Handler) SubmitAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	choice, ok := req.choice()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidAction})
		return
	}
	if err := h.duels.SubmitAction(c.Param("sessionID"), currentUser(c), choice); err != nil {
		respondError(c, err, constants.ErrInternal)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{constants.JSONKeyMessage: "Action stored. Waiting for opponent."})
}

// ClaimLoot submits the winner's loot picks and returns what was moved.
func (h *Handler) ClaimLoot(c *gin.Context) {
	var req lootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	moved, err := h.duels.ClaimLoot(c.Request.Context(), c.Param("sessionID"), currentUser(c), req.ItemIDs)
	if moved == nil {
		moved = []uint{}
	}
	if errors.Is(err, service.ErrLootUnavailable) {
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrLootUnavailable, "transferred": moved})
		return
	}
	if err != nil {
		respondError(c, err, constants.ErrFailedUpdateItems)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transferred": moved})
}
