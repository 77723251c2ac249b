package engine

import (
	"context"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
)

type roundContext struct {
	ctx    context.Context
	r      *Resolver
	a, b   *game.Combatant
	result *RoundResult
}

func newRoundContext(ctx context.Context, r *Resolver, turn int, a, b *game.Combatant) *roundContext {
	return &roundContext{
		ctx:    ctx,
		r:      r,
		a:      a,
		b:      b,
		result: &RoundResult{Turn: turn, Entries: make([]Entry, 0, 8)},
	}
}

func (rc *roundContext) add(e Entry) { rc.result.Entries = append(rc.result.Entries, e) }

func (rc *roundContext) opponent(c *game.Combatant) *game.Combatant {
	if c == rc.a {
		return rc.b
	}
	return rc.a
}

// done reports whether a flee or a death already ended the round.
func (rc *roundContext) done() bool {
	return rc.result.Fled != "" || !rc.a.Alive() || !rc.b.Alive()
}
