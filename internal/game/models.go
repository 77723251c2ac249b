package game

import (
	"time"

	"gorm.io/gorm"
)

// Account is the persisted per-user record the duel engine reads and locks.
// InCombat is the durable exclusivity flag: it is only flipped inside
// storage transactions, never kept in process memory.
type Account struct {
	gorm.Model
	UserID          string `json:"user_id" gorm:"uniqueIndex;size:64"`
	Name            string `json:"name" gorm:"size:64"`
	HealthCurrent   int    `json:"health_current"`
	HealthMax       int    `json:"health_max"`
	Balance         int    `json:"balance"`
	InCombat        bool   `json:"in_combat" gorm:"index"`
	CombatSessionID string `json:"combat_session_id" gorm:"size:36"`
}

func (Account) TableName() string { return "accounts" }

// ItemInstance is one owned copy of a catalog item. DurabilityRemaining is
// nil for definitions without durability.
type ItemInstance struct {
	gorm.Model
	DefinitionID        string    `json:"definition_id" gorm:"size:64;index"`
	OwnerID             string    `json:"owner_id" gorm:"size:64;index:idx_item_owner_container"`
	Container           Container `json:"container" gorm:"size:16;index:idx_item_owner_container"`
	DurabilityRemaining *int      `json:"durability_remaining"`
	Equipped            bool      `json:"equipped"`
}

func (ItemInstance) TableName() string { return "item_instances" }

// DuelStatus is the coarse state of a duel session.
type DuelStatus string

const (
	StatusAwaitingChoices DuelStatus = "awaiting_choices"
	StatusResolving       DuelStatus = "resolving"
	StatusCompleted       DuelStatus = "completed"
)

// DuelOutcome describes how a completed duel ended.
type DuelOutcome string

const (
	OutcomeNone      DuelOutcome = ""
	OutcomeWin       DuelOutcome = "win"
	OutcomeTie       DuelOutcome = "tie"
	OutcomeFlee      DuelOutcome = "flee"
	OutcomeCancelled DuelOutcome = "cancelled"
)

// DuelRecord is the durable trace of a duel session. The live session is
// held by service.Manager; this row lets a restarted process find duels it
// never finished and release their participants.
type DuelRecord struct {
	ID           string      `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	ParticipantA string      `json:"participant_a" gorm:"size:64"`
	ParticipantB string      `json:"participant_b" gorm:"size:64"`
	TurnNumber   int         `json:"turn_number"`
	MaxTurns     int         `json:"max_turns"`
	Status       DuelStatus  `json:"status" gorm:"size:24;index"`
	Outcome      DuelOutcome `json:"outcome" gorm:"size:16"`
	WinnerID     string      `json:"winner_id" gorm:"size:64"`
	FledID       string      `json:"fled_id" gorm:"size:64"`
	EndedAt      *time.Time  `json:"ended_at"`
}

func (DuelRecord) TableName() string { return "duel_records" }
