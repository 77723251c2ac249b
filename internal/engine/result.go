package engine

import "github.com/V3RSE-RKZA/biolast-sub000/internal/game"

// EntryKind tags a round result entry.
type EntryKind string

const (
	EntryAbsent     EntryKind = "absent"
	EntrySkipped    EntryKind = "skipped"
	EntryAttack     EntryKind = "attack"
	EntryMedical    EntryKind = "medical"
	EntryStimulant  EntryKind = "stimulant"
	EntryFlee       EntryKind = "flee"
	EntryFleeFailed EntryKind = "flee_failed"
	EntryAffliction EntryKind = "affliction"
	EntryTick       EntryKind = "affliction_tick"
	EntryBroken     EntryKind = "item_broken"
	EntryDefeated   EntryKind = "defeated"
)

// AttackOutcome is one limb hit of an attack.
type AttackOutcome struct {
	Limb          game.Limb `json:"limb"`
	Accurate      bool      `json:"accurate"`
	DamageTotal   int       `json:"damage_total"`
	DamageReduced int       `json:"damage_reduced"`
	ItemsBroken   []uint    `json:"items_broken,omitempty"`
}

// Entry is one structured line of a round result. Presentation layers turn
// these into text; the engine never formats user-facing messages.
type Entry struct {
	Kind       EntryKind           `json:"kind"`
	Actor      string              `json:"actor"`
	Target     string              `json:"target,omitempty"`
	Item       string              `json:"item,omitempty"`
	Hit        *AttackOutcome      `json:"hit,omitempty"`
	Amount     int                 `json:"amount,omitempty"`
	Affliction game.AfflictionKind `json:"affliction,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

// RoundResult is the ordered outcome of one resolution. At most one of
// Fled, Winner and Tie is set.
type RoundResult struct {
	Turn    int      `json:"turn"`
	Entries []Entry  `json:"entries"`
	Order   []string `json:"order"`
	Fled    string   `json:"fled,omitempty"`
	Winner  string   `json:"winner,omitempty"`
	Loser   string   `json:"loser,omitempty"`
	Tie     bool     `json:"tie,omitempty"`
}

// Terminal reports whether the round ended the duel.
func (r *RoundResult) Terminal() bool {
	return r.Fled != "" || r.Winner != "" || r.Tie
}
