package api

import (
	"net/http"
	"strings"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/gin-gonic/gin"
)

// maxNameRunes matches the size of the accounts.name column.
const maxNameRunes = 64

type accountRequest struct {
	Name string `json:"name"`
}

// GetAccount returns the caller's account.
func (h *Handler) GetAccount(c *gin.Context) {
	acc, err := h.accounts.GetAccount(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, constants.ErrFailedFetchUser)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// EnsureAccount creates the caller's account on first use. The display
// name defaults to the token's name claim.
func (h *Handler) EnsureAccount(c *gin.Context) {
	var req accountRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
			return
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = c.GetString(constants.ContextKeyUserName)
	}
	if r := []rune(name); len(r) > maxNameRunes {
		name = string(r[:maxNameRunes])
	}
	acc, err := h.accounts.EnsureAccount(c.Request.Context(), currentUser(c), name, h.healthMax)
	if err != nil {
		respondError(c, err, constants.ErrFailedFetchUser)
		return
	}
	c.JSON(http.StatusOK, acc)
}
