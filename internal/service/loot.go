package service

import (
	"context"
	"fmt"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/events"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
)

// lootOffer is the open claim window of a won duel.
type lootOffer struct {
	offer events.LootOffered
	pool  map[uint]bool
	claim *Await[[]uint]

	settled     chan struct{}
	transferred []uint
	err         error
}

func (o *lootOffer) ids() []uint {
	out := make([]uint, len(o.offer.Items))
	for i, it := range o.offer.Items {
		out[i] = it.ItemID
	}
	return out
}

// finish records the ending, writes health back and clears both flags, then
// settles the loot of a won duel before forgetting the session.
func (m *Manager) finish(s *Session, end ending) {
	defer close(s.done)
	defer m.forget(s)
	defer func() {
		if r := recover(); r != nil {
			logging.Error("duel cleanup panicked; releasing flags", fmt.Errorf("%v", r), logging.Fields{constants.LogFieldSessionID: s.ID})
			ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), cleanupTimeout)
			defer cancel()
			if err := m.store.ReleaseCombat(ctx, s.ID, s.participants()...); err != nil {
				logging.Error("failed to release combat flags", err, logging.Fields{constants.LogFieldSessionID: s.ID})
			}
		}
	}()

	s.end(end.outcome, end.winner, end.fled, end.reason)

	var offer *lootOffer
	if end.outcome == game.OutcomeWin {
		offer = m.dropLoot(s, end.winner, end.loser)
	}

	rec := s.record
	rec.Outcome = end.outcome
	rec.WinnerID = end.winner
	rec.FledID = end.fled
	m.persistEnd(rec, m.finalHealth(s))

	logging.Info("duel ended", logging.Fields{
		constants.LogFieldSessionID: s.ID,
		constants.LogFieldOutcome:   string(end.outcome),
		constants.LogFieldWinner:    end.winner,
		constants.LogFieldTurn:      rec.TurnNumber,
	})

	ended := events.SessionEnded{Outcome: end.outcome, WinnerID: end.winner, FledID: end.fled, Reason: end.reason}
	if offer != nil {
		ended.Loot = &offer.offer
	}
	m.publish(s.ID, events.KindSessionEnded, ended)

	if offer != nil {
		m.publish(s.ID, events.KindLootOffered, offer.offer)
		m.settleLoot(s, offer)
	}
}

// finalHealth is the health written back: anyone at zero respawns at full
// health, everyone else keeps what they have left.
func (m *Manager) finalHealth(s *Session) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, 2)
	for _, c := range []*game.Combatant{s.a, s.b} {
		if c.HealthCurrent <= 0 {
			out[c.UserID] = c.HealthMax
		} else {
			out[c.UserID] = c.HealthCurrent
		}
	}
	return out
}

// dropLoot moves the loser's backpack to the ground and opens the claim
// window. It returns nil when nothing was dropped.
func (m *Manager) dropLoot(s *Session, winner, loser string) *lootOffer {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), cleanupTimeout)
	defer cancel()
	dropped, err := m.inv.DropToGround(ctx, loser)
	if err != nil {
		logging.Error("failed to drop loser inventory", err, logging.Fields{constants.LogFieldSessionID: s.ID, constants.LogFieldUserID: loser})
		return nil
	}
	if len(dropped) == 0 {
		return nil
	}

	o := &lootOffer{
		pool:    make(map[uint]bool, len(dropped)),
		claim:   NewAwait[[]uint](m.settings.LootWindow),
		settled: make(chan struct{}),
	}
	o.offer = events.LootOffered{
		WinnerID: winner,
		LoserID:  loser,
		MaxPicks: m.settings.LootCap,
		Deadline: o.claim.Deadline(),
	}
	catalog := m.inv.Catalog()
	for _, it := range dropped {
		name := it.DefinitionID
		if def, err := catalog.Lookup(it.DefinitionID); err == nil {
			name = def.Name
		}
		o.pool[it.ID] = true
		o.offer.Items = append(o.offer.Items, events.LootItem{ItemID: it.ID, DefinitionID: it.DefinitionID, Name: name})
	}

	s.mu.Lock()
	s.loot = o
	s.mu.Unlock()
	return o
}

// settleLoot waits for the winner's picks, then transfers them and deletes
// the rest of the pool.
func (m *Manager) settleLoot(s *Session, o *lootOffer) {
	picks, ok, err := o.claim.Wait(m.ctx)
	if err != nil {
		logging.Warn("loot window interrupted; discarding pool", logging.Fields{constants.LogFieldSessionID: s.ID})
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), cleanupTimeout)
	defer cancel()
	transferred, derr := m.inv.DistributeLoot(ctx, o.offer.LoserID, o.offer.WinnerID, o.ids(), picks)
	if derr != nil {
		logging.Error("failed to distribute loot", derr, logging.Fields{constants.LogFieldSessionID: s.ID})
	}

	s.mu.Lock()
	o.transferred, o.err = transferred, derr
	s.mu.Unlock()
	close(o.settled)

	m.publish(s.ID, events.KindLootResolved, events.LootResolved{
		WinnerID:    o.offer.WinnerID,
		Transferred: transferred,
		Deleted:     len(o.pool) - len(transferred),
		TimedOut:    !ok,
	})
}

// ClaimLoot submits the winner's picks from the loot pool and returns the
// ids that reached their backpack. Picks that could not be transferred are
// reported with ErrLootUnavailable alongside the ones that were.
func (m *Manager) ClaimLoot(ctx context.Context, sessionID, userID string, itemIDs []uint) ([]uint, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	o := s.loot
	s.mu.Unlock()
	if o == nil {
		return nil, ErrNoLootOffer
	}
	if userID != o.offer.WinnerID {
		return nil, ErrNotWinner
	}

	seen := make(map[uint]bool, len(itemIDs))
	picks := make([]uint, 0, len(itemIDs))
	for _, id := range itemIDs {
		if seen[id] {
			continue
		}
		if !o.pool[id] {
			return nil, fmt.Errorf("%w: %d", ErrNotInLootPool, id)
		}
		seen[id] = true
		picks = append(picks, id)
	}
	if len(picks) > o.offer.MaxPicks {
		return nil, ErrTooManyPicks
	}
	if err := o.claim.Resolve(picks); err != nil {
		return nil, err
	}

	select {
	case <-o.settled:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	transferred, err := o.transferred, o.err
	s.mu.Unlock()
	if err != nil {
		return transferred, err
	}
	moved := make(map[uint]bool, len(transferred))
	for _, id := range transferred {
		moved[id] = true
	}
	var missing []uint
	for _, id := range picks {
		if !moved[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return transferred, fmt.Errorf("%w: %v", ErrLootUnavailable, missing)
	}
	return transferred, nil
}
