package service

import (
	"time"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/engine"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/random"
)

// Settings tune the duel loop.
type Settings struct {
	ChoiceTimeout     time.Duration
	SubPromptTimeout  time.Duration
	LimbPromptTimeout time.Duration
	MaxTurns          int
	// MaxIdleRounds is how many consecutive rounds with both participants
	// absent end the session.
	MaxIdleRounds int
	LootCap       int
	LootWindow    time.Duration
	// OrphanGrace is how long a non-terminal duel record may go without an
	// update before the sweeper treats it as orphaned.
	OrphanGrace time.Duration
	Rules       engine.Rules
	// NewSource builds the random source of a session. nil seeds each
	// session from crypto/rand.
	NewSource func() (random.Source, int64, error)
}

// DefaultSettings returns the standard timings.
func DefaultSettings() Settings {
	return Settings{
		ChoiceTimeout:     40 * time.Second,
		SubPromptTimeout:  25 * time.Second,
		LimbPromptTimeout: 20 * time.Second,
		MaxTurns:          20,
		MaxIdleRounds:     1,
		LootCap:           5,
		LootWindow:        60 * time.Second,
		OrphanGrace:       10 * time.Minute,
		Rules:             engine.DefaultRules(),
	}
}

func (s Settings) stageTimeout(stage game.PromptStage) time.Duration {
	switch stage {
	case game.StageAction:
		return s.ChoiceTimeout
	case game.StageLimb:
		return s.LimbPromptTimeout
	case game.StageWeapon, game.StageAmmo, game.StageMedical, game.StageStimulant:
		return s.SubPromptTimeout
	}
	return s.SubPromptTimeout
}

func (s Settings) source() (random.Source, int64, error) {
	if s.NewSource != nil {
		return s.NewSource()
	}
	return random.NewSeeded()
}
