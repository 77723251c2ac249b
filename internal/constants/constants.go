package constants

// Centralized constants for headers, env keys and log fields.
const (
	// HTTP headers and content types
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"

	ContentTypeJSON = "application/json"

	CacheControlHeader  = "Cache-Control"
	CacheControlNoCache = "no-cache, no-store, must-revalidate"

	// Authorization prefix
	BearerPrefix = "Bearer "

	// gin context keys set by the auth middleware
	ContextKeyUserID   = "userID"
	ContextKeyUserName = "userName"
)

// Routes used by the backend router
const (
	RouteAPIPrefix      = "/api"
	RouteHealthz        = "/healthz"
	RouteVersion        = "/version"
	RouteAccount        = "/account"
	RouteDuels          = "/duels"
	RouteDuelActive     = "/duels/active"
	RouteDuelByID       = "/duels/:sessionID"
	RouteDuelPrompt     = "/duels/:sessionID/prompt"
	RouteDuelAction     = "/duels/:sessionID/action"
	RouteDuelLoot       = "/duels/:sessionID/loot"
	RouteInventory      = "/inventory"
	RouteInventoryMove  = "/inventory/:itemID/move"
	RouteInventoryEquip = "/inventory/:itemID/equip"
	RouteInventorySell  = "/inventory/:itemID/sell"
	RouteShopBuy        = "/shop/:definitionID/buy"
)

// Common JSON response keys
const (
	JSONKeyError   = "error"
	JSONKeyMessage = "message"
	JSONKeyStatus  = "status"
)

// Common error messages used across API handlers
const (
	ErrInvalidRequest  = "Invalid request"
	ErrInvalidItemID   = "Invalid item ID"
	ErrAuthRequired    = "Authentication required"
	ErrInvalidSession  = "Invalid session"
	ErrInternal        = "Internal error"
	ErrFailedFetchUser = "Failed to fetch account"

	ErrSelfTarget         = "You cannot duel yourself"
	ErrTargetNoAccount    = "Target has no account"
	ErrInitiatorNoAccount = "Create an account before dueling"
	ErrInitiatorBusy      = "You are already in a duel"
	ErrTargetBusy         = "Target is already in a duel"
	ErrSessionNotFound    = "Duel not found"
	ErrNotParticipant     = "You are not part of this duel"
	ErrNotAwaiting        = "This duel is not waiting for your input"
	ErrUnknownStage       = "Unknown prompt stage"
	ErrStageRepeated      = "That selection was already opened this turn"
	ErrInvalidAction      = "Invalid action"
	ErrNoLootOffer        = "No loot to claim"
	ErrNotWinner          = "Only the winner can claim loot"
	ErrTooManyPicks       = "Too many items selected"
	ErrNotInLootPool      = "Item is not part of the loot"
	ErrLootUnavailable    = "Some items were no longer available"
	ErrShuttingDown       = "Server is shutting down"

	ErrItemNotFound      = "Item not found"
	ErrCapacityExceeded  = "Not enough backpack space"
	ErrItemEquipped      = "Unequip the item first"
	ErrNotEquippable     = "Item cannot be equipped"
	ErrNotInBackpack     = "Item must be in your backpack"
	ErrInvalidContainer  = "Invalid container"
	ErrNotSellable       = "Item cannot be sold"
	ErrNotForSale        = "The shop does not sell this item"
	ErrInsufficientFunds = "Not enough money"
	ErrInCombat          = "Inventory is locked during a duel"
	ErrFailedUpdateItems = "Failed to update inventory"
)

// Logging field names
const (
	LogFieldSessionID = "session_id"
	LogFieldUserID    = "user_id"
	LogFieldInitiator = "initiator"
	LogFieldTarget    = "target"
	LogFieldTurn      = "turn"
	LogFieldOutcome   = "outcome"
	LogFieldWinner    = "winner"
	LogFieldEvent     = "event"
	LogFieldItemID    = "item_id"
	LogFieldSource    = "source"
	LogFieldKey       = "key"
	LogFieldAddr      = "addr"
)
