package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/dedupe"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/engine"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/events"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/keys"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/storage"
)

// Store is the persistence the manager needs; storage.Repository satisfies it.
type Store interface {
	GetAccount(ctx context.Context, userID string) (*game.Account, error)
	BeginCombat(ctx context.Context, rec *game.DuelRecord) error
	EndCombat(ctx context.Context, rec *game.DuelRecord, health map[string]int) error
	ReleaseCombat(ctx context.Context, sessionID string, userIDs ...string) error
	UpdateDuelRecord(ctx context.Context, rec *game.DuelRecord) error
	FindOrphanedDuels(ctx context.Context, before time.Time) ([]game.DuelRecord, error)
}

// Inventory is the ledger surface used by running duels; *ledger.Ledger
// satisfies it.
type Inventory interface {
	engine.Inventory
	DropToGround(ctx context.Context, owner string) ([]game.ItemInstance, error)
	DistributeLoot(ctx context.Context, loser, winner string, pool, selected []uint) ([]uint, error)
	Catalog() *game.Catalog
}

const cleanupTimeout = 10 * time.Second

// Manager owns the live duel sessions of this process.
type Manager struct {
	store    Store
	inv      Inventory
	pub      events.Publisher
	settings Settings

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
	byUser   map[string]*Session
	closed   bool
}

// NewManager builds a manager whose sessions live until ctx is done or
// Close is called.
func NewManager(ctx context.Context, store Store, inv Inventory, pub events.Publisher, settings Settings) *Manager {
	if pub == nil {
		pub = events.LogPublisher{}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		store:    store,
		inv:      inv,
		pub:      pub,
		settings: settings,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
		byUser:   make(map[string]*Session),
	}
}

// RequestDuel validates the pair, flags both participants in combat and
// starts the session. Concurrent requests for the same pair share one
// result.
func (m *Manager) RequestDuel(ctx context.Context, initiator, target string) (*Session, error) {
	if initiator == target {
		return nil, ErrSelfTarget
	}
	v, err, _ := dedupe.DuelRequestGroup.Do(keys.DuelRequest(initiator, target), func() (interface{}, error) {
		return m.startDuel(ctx, initiator, target)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) startDuel(ctx context.Context, initiator, target string) (*Session, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrShuttingDown
	}

	targetAcc, err := m.store.GetAccount(ctx, target)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, ErrTargetNoAccount
	}
	if err != nil {
		return nil, err
	}
	initiatorAcc, err := m.store.GetAccount(ctx, initiator)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, ErrInitiatorNoAccount
	}
	if err != nil {
		return nil, err
	}
	if initiatorAcc.InCombat {
		return nil, ErrInitiatorBusy
	}
	if targetAcc.InCombat {
		return nil, ErrTargetBusy
	}

	rec := &game.DuelRecord{
		ID:           uuid.New().String(),
		ParticipantA: initiator,
		ParticipantB: target,
		MaxTurns:     m.settings.MaxTurns,
		Status:       game.StatusAwaitingChoices,
	}
	if err := m.store.BeginCombat(ctx, rec); err != nil {
		return nil, mapBeginError(err, initiator)
	}

	s, err := m.prepare(ctx, rec)
	if err != nil {
		logging.Error("failed to prepare duel; releasing participants", err, logging.Fields{constants.LogFieldSessionID: rec.ID})
		rec.Outcome = game.OutcomeCancelled
		m.persistEnd(rec, nil)
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		rec.Outcome = game.OutcomeCancelled
		m.persistEnd(rec, nil)
		return nil, ErrShuttingDown
	}
	m.sessions[s.ID] = s
	m.byUser[initiator] = s
	m.byUser[target] = s
	m.wg.Add(1)
	m.mu.Unlock()

	logging.Info("duel started", logging.Fields{
		constants.LogFieldSessionID: s.ID,
		constants.LogFieldInitiator: initiator,
		constants.LogFieldTarget:    target,
	})

	go m.run(s)
	return s, nil
}

func mapBeginError(err error, initiator string) error {
	var busy *storage.BusyError
	if errors.As(err, &busy) {
		if busy.UserID == initiator {
			return ErrInitiatorBusy
		}
		return ErrTargetBusy
	}
	var missing *storage.MissingAccountError
	if errors.As(err, &missing) {
		if missing.UserID == initiator {
			return ErrInitiatorNoAccount
		}
		return ErrTargetNoAccount
	}
	return err
}

// prepare reads both accounts again now that their flags are held and loads
// the loadouts.
func (m *Manager) prepare(ctx context.Context, rec *game.DuelRecord) (*Session, error) {
	combatants := make([]*game.Combatant, 0, 2)
	for _, id := range []string{rec.ParticipantA, rec.ParticipantB} {
		acc, err := m.store.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		c := game.NewCombatant(acc)
		if c.Loadout, err = m.inv.Loadout(ctx, id); err != nil {
			return nil, err
		}
		combatants = append(combatants, c)
	}
	src, seed, err := m.settings.source()
	if err != nil {
		return nil, fmt.Errorf("seed random source: %w", err)
	}
	logging.Debug("session random source seeded", logging.Fields{constants.LogFieldSessionID: rec.ID, "seed": seed})
	resolver := engine.NewResolver(m.inv, src, m.settings.Rules)
	return newSession(rec, combatants[0], combatants[1], resolver), nil
}

func (m *Manager) session(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.ID)
	for _, id := range s.participants() {
		if m.byUser[id] == s {
			delete(m.byUser, id)
		}
	}
}

// SubmitAction records userID's action for the current round.
func (m *Manager) SubmitAction(sessionID, userID string, choice game.ActionChoice) error {
	if choice == nil {
		return fmt.Errorf("%w: empty action", ErrNotAwaiting)
	}
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}
	w, err := s.wait(userID)
	if err != nil {
		return err
	}
	return w.Resolve(choice)
}

// BeginChoice moves userID into a selection sub-prompt. The stage's own
// timeout replaces the participant's current deadline, which is returned.
// Every stage other than the action stage can be entered once per round.
func (m *Manager) BeginChoice(sessionID, userID string, stage game.PromptStage) (time.Time, error) {
	if _, err := game.ParsePromptStage(string(stage)); err != nil {
		return time.Time{}, ErrUnknownStage
	}
	s, err := m.session(sessionID)
	if err != nil {
		return time.Time{}, err
	}
	w, err := s.wait(userID)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.enterStage(userID, stage); err != nil {
		return time.Time{}, err
	}
	deadline, err := w.Extend(m.settings.stageTimeout(stage))
	if err != nil {
		return time.Time{}, err
	}
	m.publish(s.ID, events.KindChoicePrompt, events.ChoicePrompt{UserID: userID, Stage: stage, Deadline: deadline})
	return deadline, nil
}

// Snapshot returns the current view of a live session.
func (m *Manager) Snapshot(sessionID string) (View, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return View{}, err
	}
	return s.view(m.settings.MaxTurns), nil
}

// ActiveSession returns the view of the session userID is part of, if any.
func (m *Manager) ActiveSession(userID string) (View, bool) {
	m.mu.Lock()
	s, ok := m.byUser[userID]
	m.mu.Unlock()
	if !ok {
		return View{}, false
	}
	return s.view(m.settings.MaxTurns), true
}

// Close stops accepting duels, cancels the running sessions and waits for
// their cleanup.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) publish(sessionID string, kind events.Kind, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), cleanupTimeout)
	defer cancel()
	if err := m.pub.Publish(ctx, events.New(kind, sessionID, payload)); err != nil {
		logging.Warn("failed to publish duel event", logging.Fields{
			constants.LogFieldSessionID: sessionID,
			constants.LogFieldEvent:     string(kind),
			"error":                     err.Error(),
		})
	}
}

// persistEnd writes the terminal record and clears both flags. If the
// atomic write fails the flags are still released on their own.
func (m *Manager) persistEnd(rec *game.DuelRecord, health map[string]int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), cleanupTimeout)
	defer cancel()
	err := m.store.EndCombat(ctx, rec, health)
	if err == nil {
		return
	}
	logging.Error("failed to end combat; releasing flags", err, logging.Fields{constants.LogFieldSessionID: rec.ID})
	if err := m.store.ReleaseCombat(ctx, rec.ID, rec.ParticipantA, rec.ParticipantB); err != nil {
		logging.Error("failed to release combat flags", err, logging.Fields{constants.LogFieldSessionID: rec.ID})
	}
}
