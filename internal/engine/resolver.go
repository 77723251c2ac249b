// Package engine resolves one duel round: it re-validates both submitted
// actions against the live inventory, orders them by speed and executes
// them, calling into the damage calculator and the ledger.
package engine

import (
	"context"
	"errors"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/random"
)

// Inventory is the slice of the ledger the resolver needs. Conflicts are
// reported as game.ErrStateConflict; any other error aborts the round.
type Inventory interface {
	Item(ctx context.Context, owner string, id uint) (*game.ItemInstance, *game.ItemDefinition, error)
	Loadout(ctx context.Context, owner string) (game.Loadout, error)
	ConsumeDurability(ctx context.Context, owner string, id uint, amount int) (remaining int, destroyed bool, err error)
	Consume(ctx context.Context, owner string, id uint) error
}

// Rules are the tunable chances and affliction numbers.
type Rules struct {
	FleeChance      float64
	BrokenArmChance float64
	BurningDamage   int
	BurningTurns    int
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		FleeChance:      0.10,
		BrokenArmChance: 0.20,
		BurningDamage:   4,
		BurningTurns:    3,
	}
}

// Resolver executes rounds for one duel. It is not safe for concurrent
// rounds; the coordinator resolves them one at a time.
type Resolver struct {
	inv   Inventory
	src   random.Source
	rules Rules
}

func NewResolver(inv Inventory, src random.Source, rules Rules) *Resolver {
	return &Resolver{inv: inv, src: src, rules: rules}
}

// ResolveRound resolves turn for combatants a and b. choices holds the
// submitted action per user id; a missing entry is an absent action.
// Health, afflictions and stimulants are mutated in place.
func (r *Resolver) ResolveRound(ctx context.Context, turn int, a, b *game.Combatant, choices map[string]game.ActionChoice) (*RoundResult, error) {
	rc := newRoundContext(ctx, r, turn, a, b)

	plans := make([]plannedAction, 0, 2)
	for _, c := range []*game.Combatant{a, b} {
		choice, ok := choices[c.UserID]
		if !ok || choice == nil {
			rc.add(Entry{Kind: EntryAbsent, Actor: c.UserID})
			continue
		}
		p, err := rc.plan(c, rc.opponent(c), choice)
		if err != nil {
			if skippable(err) {
				rc.add(Entry{Kind: EntrySkipped, Actor: c.UserID, Reason: err.Error()})
				continue
			}
			return nil, err
		}
		plans = append(plans, *p)
	}

	rc.order(plans)
	if err := rc.executePlans(plans); err != nil {
		return nil, err
	}
	rc.finalizeRound()
	return rc.result, nil
}

// skippable reports whether err degrades an action to skipped rather than
// failing the round.
func skippable(err error) bool {
	return errors.Is(err, game.ErrStateConflict) ||
		errors.Is(err, game.ErrUnknownDefinition) ||
		errors.Is(err, errInvalidAction)
}
