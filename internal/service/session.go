package service

import (
	"sync"
	"time"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/engine"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/events"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
)

// Session is the live state of one duel. Fields behind mu are read by
// inbound calls while the session goroutine drives the rounds.
type Session struct {
	ID string

	mu       sync.Mutex
	a, b     *game.Combatant
	record   *game.DuelRecord
	turn     int
	status   game.DuelStatus
	waits    map[string]*Await[game.ActionChoice]
	stages   map[string]map[game.PromptStage]bool
	last     *engine.RoundResult
	outcome  game.DuelOutcome
	winner   string
	fled     string
	reason   string
	loot     *lootOffer
	resolver *engine.Resolver
	done     chan struct{}
}

func newSession(rec *game.DuelRecord, a, b *game.Combatant, resolver *engine.Resolver) *Session {
	return &Session{
		ID:       rec.ID,
		a:        a,
		b:        b,
		record:   rec,
		status:   game.StatusAwaitingChoices,
		resolver: resolver,
		done:     make(chan struct{}),
	}
}

func (s *Session) participant(userID string) *game.Combatant {
	switch userID {
	case s.a.UserID:
		return s.a
	case s.b.UserID:
		return s.b
	}
	return nil
}

func (s *Session) participants() []string { return []string{s.a.UserID, s.b.UserID} }

// openRound installs fresh waits for turn and returns them.
func (s *Session) openRound(turn int, timeout time.Duration) map[string]*Await[game.ActionChoice] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turn = turn
	s.status = game.StatusAwaitingChoices
	s.waits = map[string]*Await[game.ActionChoice]{
		s.a.UserID: NewAwait[game.ActionChoice](timeout),
		s.b.UserID: NewAwait[game.ActionChoice](timeout),
	}
	s.stages = map[string]map[game.PromptStage]bool{
		s.a.UserID: {game.StageAction: true},
		s.b.UserID: {game.StageAction: true},
	}
	return s.waits
}

// enterStage records that userID opened stage in the current round. Each
// stage can be opened once per round, and the action stage is opened by the
// round prompt itself, so a participant cannot hold the round open.
func (s *Session) enterStage(userID string, stage game.PromptStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := s.stages[userID]
	if seen == nil {
		return ErrNotAwaiting
	}
	if seen[stage] {
		return ErrStageRepeated
	}
	seen[stage] = true
	return nil
}

// closeRound stops accepting submissions for the current round.
func (s *Session) closeRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.waits {
		w.Close()
	}
	s.waits = nil
	s.status = game.StatusResolving
}

func (s *Session) wait(userID string) (*Await[game.ActionChoice], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participant(userID) == nil {
		return nil, ErrNotParticipant
	}
	w, ok := s.waits[userID]
	if !ok || s.status != game.StatusAwaitingChoices {
		return nil, ErrNotAwaiting
	}
	return w, nil
}

// Done is closed once the session has released its participants and
// settled its loot.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) end(outcome game.DuelOutcome, winner, fled, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == game.StatusCompleted {
		return
	}
	s.status = game.StatusCompleted
	s.outcome, s.winner, s.fled, s.reason = outcome, winner, fled, reason
	for _, w := range s.waits {
		w.Close()
	}
	s.waits = nil
}

func (s *Session) health() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{s.a.UserID: s.a.HealthCurrent, s.b.UserID: s.b.HealthCurrent}
}

// View is a read-only snapshot of a session.
type View struct {
	ID           string                       `json:"id"`
	Participants []string                     `json:"participants"`
	Turn         int                          `json:"turn"`
	MaxTurns     int                          `json:"max_turns"`
	Status       game.DuelStatus              `json:"status"`
	Outcome      game.DuelOutcome             `json:"outcome,omitempty"`
	WinnerID     string                       `json:"winner_id,omitempty"`
	FledID       string                       `json:"fled_id,omitempty"`
	Reason       string                       `json:"reason,omitempty"`
	Health       map[string]int               `json:"health"`
	Afflictions  map[string][]game.Affliction `json:"afflictions"`
	Deadlines    map[string]time.Time         `json:"deadlines,omitempty"`
	LastRound    *engine.RoundResult          `json:"last_round,omitempty"`
	Loot         *events.LootOffered          `json:"loot,omitempty"`
}

func (s *Session) view(maxTurns int) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:           s.ID,
		Participants: []string{s.a.UserID, s.b.UserID},
		Turn:         s.turn,
		MaxTurns:     maxTurns,
		Status:       s.status,
		Outcome:      s.outcome,
		WinnerID:     s.winner,
		FledID:       s.fled,
		Reason:       s.reason,
		Health:       map[string]int{s.a.UserID: s.a.HealthCurrent, s.b.UserID: s.b.HealthCurrent},
		Afflictions: map[string][]game.Affliction{
			s.a.UserID: append([]game.Affliction(nil), s.a.Afflictions...),
			s.b.UserID: append([]game.Affliction(nil), s.b.Afflictions...),
		},
		LastRound: s.last,
	}
	if len(s.waits) > 0 {
		v.Deadlines = map[string]time.Time{}
		for id, w := range s.waits {
			if w.Open() {
				v.Deadlines[id] = w.Deadline()
			}
		}
	}
	if s.loot != nil {
		offer := s.loot.offer
		v.Loot = &offer
	}
	return v
}
