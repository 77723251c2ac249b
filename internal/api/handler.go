package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/ledger"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// Duels is the duel surface of *service.Manager.
type Duels interface {
	RequestDuel(ctx context.Context, initiator, target string) (*service.Session, error)
	SubmitAction(sessionID, userID string, choice game.ActionChoice) error
	BeginChoice(sessionID, userID string, stage game.PromptStage) (time.Time, error)
	ClaimLoot(ctx context.Context, sessionID, userID string, itemIDs []uint) ([]uint, error)
	Snapshot(sessionID string) (service.View, error)
	ActiveSession(userID string) (service.View, bool)
}

// Inventory is the ledger surface used outside of combat.
type Inventory interface {
	List(ctx context.Context, owner string, container game.Container) ([]game.ItemInstance, error)
	Capacity(ctx context.Context, owner string) (ledger.Capacity, error)
	MoveItem(ctx context.Context, owner string, id uint, from, to game.Container) error
	SetEquipped(ctx context.Context, owner string, id uint, equip bool) error
	Sell(ctx context.Context, owner string, id uint) (int, error)
	Buy(ctx context.Context, owner, definitionID string, container game.Container) (*game.ItemInstance, error)
}

// Accounts is the account surface of storage.Repository.
type Accounts interface {
	GetAccount(ctx context.Context, userID string) (*game.Account, error)
	EnsureAccount(ctx context.Context, userID, name string, healthMax int) (*game.Account, error)
}

// History looks up duels this process is not driving.
type History interface {
	GetDuelRecord(ctx context.Context, id string) (*game.DuelRecord, error)
}

// Snapshots returns the last event published for a session, or nil.
type Snapshots interface {
	Latest(ctx context.Context, sessionID string) (json.RawMessage, error)
}

// Handler groups the duel, inventory and account HTTP handlers.
type Handler struct {
	duels     Duels
	inv       Inventory
	accounts  Accounts
	history   History
	snapshots Snapshots
	healthMax int
}

// NewHandler creates a Handler. healthMax is the maximum health given to
// accounts created through the API.
func NewHandler(duels Duels, inv Inventory, accounts Accounts, healthMax int) *Handler {
	return &Handler{duels: duels, inv: inv, accounts: accounts, healthMax: healthMax}
}

// WithHistory lets GetDuel answer for finished duels and duels run by
// another process. snapshots may be nil.
func (h *Handler) WithHistory(history History, snapshots Snapshots) *Handler {
	h.history, h.snapshots = history, snapshots
	return h
}

// NewRouter wires every route on a fresh gin engine. Routes under the API
// prefix require a bearer token signed with secret.
func NewRouter(h *Handler, secret []byte) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET(constants.RouteHealthz, Healthz)
	router.GET(constants.RouteVersion, Version)

	protected := router.Group(constants.RouteAPIPrefix)
	protected.Use(AuthRequired(secret))
	{
		protected.GET(constants.RouteAccount, h.GetAccount)
		protected.POST(constants.RouteAccount, h.EnsureAccount)

		protected.POST(constants.RouteDuels, h.RequestDuel)
		protected.GET(constants.RouteDuelActive, h.ActiveDuel)
		protected.GET(constants.RouteDuelByID, h.GetDuel)
		protected.POST(constants.RouteDuelPrompt, h.BeginChoice)
		protected.POST(constants.RouteDuelAction, h.SubmitAction)
		protected.POST(constants.RouteDuelLoot, h.ClaimLoot)

		protected.GET(constants.RouteInventory, h.ListInventory)
		protected.POST(constants.RouteInventoryMove, h.MoveItem)
		protected.POST(constants.RouteInventoryEquip, h.EquipItem)
		protected.POST(constants.RouteInventorySell, h.SellItem)
		protected.POST(constants.RouteShopBuy, h.BuyItem)
	}
	return router
}
