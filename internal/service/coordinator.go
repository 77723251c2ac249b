package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/engine"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/events"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
)

const (
	reasonIdle        = "both participants were absent"
	reasonTurnLimit   = "turn limit reached"
	reasonShutdown    = "server shutting down"
	reasonInternal    = "internal error"
	reasonTransaction = "inventory transaction failed"
)

// ending is how the round loop finished.
type ending struct {
	outcome game.DuelOutcome
	winner  string
	loser   string
	fled    string
	reason  string
}

// run drives s until it completes. Whatever happens inside the loop, the
// deferred finish clears both combat flags.
func (m *Manager) run(s *Session) {
	defer m.wg.Done()
	end := ending{outcome: game.OutcomeCancelled, reason: reasonInternal}
	defer func() {
		if r := recover(); r != nil {
			logging.Error("duel session panicked", fmt.Errorf("%v", r), logging.Fields{constants.LogFieldSessionID: s.ID})
			end = ending{outcome: game.OutcomeCancelled, reason: reasonInternal}
		}
		m.finish(s, end)
	}()
	end = m.drive(s)
}

func (m *Manager) drive(s *Session) ending {
	idle := 0
	for turn := 1; ; turn++ {
		if m.ctx.Err() != nil {
			return ending{outcome: game.OutcomeCancelled, reason: reasonShutdown}
		}
		choices, err := m.collect(s, turn)
		if err != nil {
			return ending{outcome: game.OutcomeCancelled, reason: reasonShutdown}
		}
		s.record.TurnNumber = turn

		if len(choices) == 0 {
			idle++
			logging.Info("no actions submitted this round", logging.Fields{constants.LogFieldSessionID: s.ID, constants.LogFieldTurn: turn})
			if idle >= m.settings.MaxIdleRounds {
				return ending{outcome: game.OutcomeCancelled, reason: reasonIdle}
			}
		} else {
			idle = 0
			res, err := s.resolve(m.ctx, turn, choices)
			if err != nil {
				logging.Error("round resolution failed", err, logging.Fields{constants.LogFieldSessionID: s.ID, constants.LogFieldTurn: turn})
				return ending{outcome: game.OutcomeCancelled, reason: reasonTransaction}
			}
			m.publish(s.ID, events.KindRoundResult, events.RoundResult{RoundResult: *res, Health: s.health()})
			switch {
			case res.Fled != "":
				return ending{outcome: game.OutcomeFlee, fled: res.Fled}
			case res.Tie:
				return ending{outcome: game.OutcomeTie}
			case res.Winner != "":
				return ending{outcome: game.OutcomeWin, winner: res.Winner, loser: res.Loser}
			}
		}

		s.record.Status = game.StatusAwaitingChoices
		if err := m.store.UpdateDuelRecord(m.ctx, s.record); err != nil {
			logging.Warn("failed to update duel record", logging.Fields{constants.LogFieldSessionID: s.ID, "error": err.Error()})
		}
		if turn >= m.settings.MaxTurns {
			return ending{outcome: game.OutcomeTie, reason: reasonTurnLimit}
		}
	}
}

// collect opens both waits for turn and blocks until each one is answered
// or expires. A timeout on one side never shortens the other's wait.
func (m *Manager) collect(s *Session, turn int) (map[string]game.ActionChoice, error) {
	waits := s.openRound(turn, m.settings.ChoiceTimeout)
	m.publish(s.ID, events.KindRoundPrompt, events.RoundPrompt{
		Turn:         turn,
		Participants: s.participants(),
		Deadline:     waits[s.a.UserID].Deadline(),
	})

	var mu sync.Mutex
	choices := make(map[string]game.ActionChoice, len(waits))
	g, ctx := errgroup.WithContext(m.ctx)
	for userID, w := range waits {
		userID, w := userID, w
		g.Go(func() error {
			v, ok, err := w.Wait(ctx)
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				choices[userID] = v
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	s.closeRound()
	return choices, err
}

// resolve runs the engine with the session locked so views never observe a
// half-applied round.
func (s *Session) resolve(ctx context.Context, turn int, choices map[string]game.ActionChoice) (*engine.RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.resolver.ResolveRound(ctx, turn, s.a, s.b, choices)
	if err != nil {
		return nil, err
	}
	s.last = res
	return res, nil
}
