package engine

import "github.com/V3RSE-RKZA/biolast-sub000/internal/game"

// finalizeRound ticks afflictions when the round did not already end and
// decides the round outcome.
func (rc *roundContext) finalizeRound() {
	if rc.result.Fled != "" {
		return
	}
	if rc.a.Alive() && rc.b.Alive() {
		rc.tickAfflictions(rc.a)
		rc.tickAfflictions(rc.b)
	}

	switch aDead, bDead := !rc.a.Alive(), !rc.b.Alive(); {
	case aDead && bDead:
		rc.result.Tie = true
	case aDead:
		rc.result.Winner, rc.result.Loser = rc.b.UserID, rc.a.UserID
	case bDead:
		rc.result.Winner, rc.result.Loser = rc.a.UserID, rc.b.UserID
	}
}

// tickAfflictions applies end-of-round damage and expires timed afflictions.
// Afflictions with no duration last for the rest of the duel.
func (rc *roundContext) tickAfflictions(c *game.Combatant) {
	kept := c.Afflictions[:0]
	for _, a := range c.Afflictions {
		if a.Kind == game.AfflictionBurning {
			dealt := c.Damage(rc.r.rules.BurningDamage)
			rc.add(Entry{Kind: EntryTick, Actor: c.UserID, Affliction: a.Kind, Amount: dealt})
		}
		if a.TurnsRemaining > 0 {
			a.TurnsRemaining--
			if a.TurnsRemaining == 0 {
				continue
			}
		}
		kept = append(kept, a)
	}
	c.Afflictions = kept
	if !c.Alive() {
		rc.add(Entry{Kind: EntryDefeated, Actor: c.UserID})
	}
}
