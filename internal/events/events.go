// Package events carries duel notifications out of the service. The core
// only produces structured records; rendering them is left to subscribers.
package events

import (
	"context"
	"time"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/engine"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
)

// Kind tags an Event payload.
type Kind string

const (
	KindRoundPrompt  Kind = "round_prompt"
	KindChoicePrompt Kind = "choice_prompt"
	KindRoundResult  Kind = "round_result"
	KindSessionEnded Kind = "session_ended"
	KindLootOffered  Kind = "loot_offered"
	KindLootResolved Kind = "loot_resolved"
)

// Event is one outbound notification for a session.
type Event struct {
	Kind      Kind        `json:"kind"`
	SessionID string      `json:"session_id"`
	At        time.Time   `json:"at"`
	Payload   interface{} `json:"payload"`
}

// RoundPrompt asks both participants for their action.
type RoundPrompt struct {
	Turn         int       `json:"turn"`
	Participants []string  `json:"participants"`
	Deadline     time.Time `json:"deadline"`
}

// ChoicePrompt is sent when a participant opens a sub-prompt and the
// deadline moves.
type ChoicePrompt struct {
	UserID   string           `json:"user_id"`
	Stage    game.PromptStage `json:"stage"`
	Deadline time.Time        `json:"deadline"`
}

// RoundResult carries a resolved round.
type RoundResult struct {
	engine.RoundResult
	Health map[string]int `json:"health"`
}

// SessionEnded is the terminal event of a session.
type SessionEnded struct {
	Outcome  game.DuelOutcome `json:"outcome"`
	WinnerID string           `json:"winner_id,omitempty"`
	FledID   string           `json:"fled_id,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Loot     *LootOffered     `json:"loot,omitempty"`
}

// LootItem describes one item in a loot pool.
type LootItem struct {
	ItemID       uint   `json:"item_id"`
	DefinitionID string `json:"definition_id"`
	Name         string `json:"name"`
}

// LootOffered lists the dropped items the winner may claim.
type LootOffered struct {
	WinnerID string     `json:"winner_id"`
	LoserID  string     `json:"loser_id"`
	Items    []LootItem `json:"items"`
	MaxPicks int        `json:"max_picks"`
	Deadline time.Time  `json:"deadline"`
}

// LootResolved reports how a loot offer was settled.
type LootResolved struct {
	WinnerID    string `json:"winner_id"`
	Transferred []uint `json:"transferred"`
	Deleted     int    `json:"deleted"`
	TimedOut    bool   `json:"timed_out"`
}

// Publisher delivers events. Implementations must be safe for concurrent
// use; publish failures are logged by callers and never stop a session.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// New stamps an event with the current time.
func New(kind Kind, sessionID string, payload interface{}) Event {
	return Event{Kind: kind, SessionID: sessionID, At: time.Now().UTC(), Payload: payload}
}
