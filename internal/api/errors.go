package api

import (
	"errors"
	"net/http"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/ledger"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/service"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/storage"
	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{service.ErrSelfTarget, http.StatusBadRequest, constants.ErrSelfTarget},
	{service.ErrTargetNoAccount, http.StatusNotFound, constants.ErrTargetNoAccount},
	{service.ErrInitiatorNoAccount, http.StatusPreconditionFailed, constants.ErrInitiatorNoAccount},
	{service.ErrInitiatorBusy, http.StatusConflict, constants.ErrInitiatorBusy},
	{service.ErrTargetBusy, http.StatusConflict, constants.ErrTargetBusy},
	{service.ErrSessionNotFound, http.StatusNotFound, constants.ErrSessionNotFound},
	{service.ErrNotParticipant, http.StatusForbidden, constants.ErrNotParticipant},
	{service.ErrNotAwaiting, http.StatusConflict, constants.ErrNotAwaiting},
	{service.ErrUnknownStage, http.StatusBadRequest, constants.ErrUnknownStage},
	{service.ErrStageRepeated, http.StatusConflict, constants.ErrStageRepeated},
	{service.ErrNoLootOffer, http.StatusConflict, constants.ErrNoLootOffer},
	{service.ErrNotWinner, http.StatusForbidden, constants.ErrNotWinner},
	{service.ErrTooManyPicks, http.StatusBadRequest, constants.ErrTooManyPicks},
	{service.ErrNotInLootPool, http.StatusBadRequest, constants.ErrNotInLootPool},
	{service.ErrLootUnavailable, http.StatusConflict, constants.ErrLootUnavailable},
	{service.ErrShuttingDown, http.StatusServiceUnavailable, constants.ErrShuttingDown},

	{storage.ErrAccountNotFound, http.StatusNotFound, constants.ErrFailedFetchUser},
	{storage.ErrDuelNotFound, http.StatusNotFound, constants.ErrSessionNotFound},
	{game.ErrStateConflict, http.StatusNotFound, constants.ErrItemNotFound},
	{game.ErrUnknownDefinition, http.StatusNotFound, constants.ErrItemNotFound},
	{ledger.ErrCapacityExceeded, http.StatusConflict, constants.ErrCapacityExceeded},
	{ledger.ErrItemEquipped, http.StatusConflict, constants.ErrItemEquipped},
	{ledger.ErrNotEquippable, http.StatusBadRequest, constants.ErrNotEquippable},
	{ledger.ErrNotInBackpack, http.StatusConflict, constants.ErrNotInBackpack},
	{ledger.ErrInvalidContainer, http.StatusBadRequest, constants.ErrInvalidContainer},
	{ledger.ErrNotSellable, http.StatusBadRequest, constants.ErrNotSellable},
	{ledger.ErrNotForSale, http.StatusNotFound, constants.ErrNotForSale},
	{ledger.ErrInsufficientFunds, http.StatusConflict, constants.ErrInsufficientFunds},
}

// respondError writes the JSON error for err. Unmapped errors are logged and
// reported as fallback with a 500.
func respondError(c *gin.Context, err error, fallback string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{constants.JSONKeyError: m.message})
			return
		}
	}
	logging.Error("request failed", err, logging.Fields{
		constants.LogFieldUserID: currentUser(c),
		"path":                   c.FullPath(),
	})
	c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: fallback})
}
