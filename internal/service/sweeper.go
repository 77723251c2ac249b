package service

import (
	"context"
	"time"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
)

// SweepOrphans cancels duel records that never reached a terminal state,
// were last touched more than grace ago and are not driven by this process,
// clearing their participants' flags. It returns how many were swept. At
// startup no session is live, so a zero grace releases everything a previous
// process left behind.
func (m *Manager) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	recs, err := m.store.FindOrphanedDuels(ctx, time.Now().Add(-grace))
	if err != nil {
		return 0, err
	}
	swept := 0
	for i := range recs {
		rec := &recs[i]
		if _, err := m.session(rec.ID); err == nil {
			continue
		}
		rec.Outcome = game.OutcomeCancelled
		if err := m.store.EndCombat(ctx, rec, nil); err != nil {
			logging.Error("failed to close orphaned duel; releasing flags", err, logging.Fields{constants.LogFieldSessionID: rec.ID})
			if err := m.store.ReleaseCombat(ctx, rec.ID, rec.ParticipantA, rec.ParticipantB); err != nil {
				return swept, err
			}
		}
		logging.Info("orphaned duel cancelled", logging.Fields{
			constants.LogFieldSessionID: rec.ID,
			constants.LogFieldInitiator: rec.ParticipantA,
			constants.LogFieldTarget:    rec.ParticipantB,
		})
		swept++
	}
	return swept, nil
}

// RunSweeper sweeps with the configured grace every interval until ctx is
// done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if n, err := m.SweepOrphans(ctx, m.settings.OrphanGrace); err != nil {
			logging.Error("orphan sweep failed", err, nil)
		} else if n > 0 {
			logging.Info("orphan sweep finished", logging.Fields{"swept": n})
		}
	}
}
