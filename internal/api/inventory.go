package api

import (
	"net/http"
	"strconv"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/gin-gonic/gin"
)

type moveRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

type buyRequest struct {
	Container string `json:"container"`
}

type equipRequest struct {
	Equip *bool `json:"equip" binding:"required"`
}

func itemID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("itemID"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidItemID})
		return 0, false
	}
	return uint(id), true
}

// outOfCombat rejects inventory changes while the caller is in a duel.
func (h *Handler) outOfCombat(c *gin.Context) bool {
	acc, err := h.accounts.GetAccount(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, constants.ErrFailedFetchUser)
		return false
	}
	if acc.InCombat {
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrInCombat})
		return false
	}
	return true
}

// ListInventory returns the caller's items in one container, the backpack
// by default, together with the backpack capacity.
func (h *Handler) ListInventory(c *gin.Context) {
	container := game.Container(c.DefaultQuery("container", string(game.ContainerBackpack)))
	user := currentUser(c)
	items, err := h.inv.List(c.Request.Context(), user, container)
	if err != nil {
		respondError(c, err, constants.ErrFailedUpdateItems)
		return
	}
	capacity, err := h.inv.Capacity(c.Request.Context(), user)
	if err != nil {
		respondError(c, err, constants.ErrFailedUpdateItems)
		return
	}
	if items == nil {
		items = []game.ItemInstance{}
	}
	c.JSON(http.StatusOK, gin.H{"container": container, "items": items, "capacity": capacity})
}

// MoveItem moves an item between two of the caller's containers.
func (h *Handler) MoveItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	if !h.outOfCombat(c) {
		return
	}
	if err := h.inv.MoveItem(c.Request.Context(), currentUser(c), id, game.Container(req.From), game.Container(req.To)); err != nil {
		respondError(c, err, constants.ErrFailedUpdateItems)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_id": id, "container": req.To})
}

// EquipItem equips or unequips a backpack item.
func (h *Handler) EquipItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	var req equipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	if !h.outOfCombat(c) {
		return
	}
	if err := h.inv.SetEquipped(c.Request.Context(), currentUser(c), id, *req.Equip); err != nil {
		respondError(c, err, constants.ErrFailedUpdateItems)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_id": id, "equipped": *req.Equip})
}

// SellItem sells an item and credits the caller's balance.
func (h *Handler) SellItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	if !h.outOfCombat(c) {
		return
	}
	price, err := h.inv.Sell(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err, constants.ErrFailedUpdateItems)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_id": id, "price": price})
}

// BuyItem buys one item from the shop. Without a container it goes to the
// backpack when there is room and to the stash otherwise.
func (h *Handler) BuyItem(c *gin.Context) {
	var req buyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
			return
		}
	}
	if !h.outOfCombat(c) {
		return
	}
	it, err := h.inv.Buy(c.Request.Context(), currentUser(c), c.Param("definitionID"), game.Container(req.Container))
	if err != nil {
		respondError(c, err, constants.ErrFailedUpdateItems)
		return
	}
	c.JSON(http.StatusCreated, it)
}
