package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuelNotFound    = errors.New("duel record not found")
)

// BusyError reports a participant that is already flagged in combat.
type BusyError struct {
	UserID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("user %s is already in combat", e.UserID)
}

// MissingAccountError names the participant without an account. It
// matches ErrAccountNotFound with errors.Is.
type MissingAccountError struct {
	UserID string
}

func (e *MissingAccountError) Error() string { return ErrAccountNotFound.Error() + ": " + e.UserID }
func (e *MissingAccountError) Unwrap() error { return ErrAccountNotFound }

// Repository is the account and duel persistence used by the session
// manager. Combat flags are only changed through BeginCombat, EndCombat and
// ReleaseCombat so the set/clear pairing stays in one place.
type Repository interface {
	GetAccount(ctx context.Context, userID string) (*game.Account, error)
	// EnsureAccount creates the account on first use and refreshes its name.
	EnsureAccount(ctx context.Context, userID, name string, healthMax int) (*game.Account, error)

	// BeginCombat flags both participants and stores rec in one transaction.
	// A participant missing an account yields ErrAccountNotFound; one already
	// flagged yields *BusyError.
	BeginCombat(ctx context.Context, rec *game.DuelRecord) error
	// EndCombat writes the final duel record, the participants' health and
	// clears both flags atomically.
	EndCombat(ctx context.Context, rec *game.DuelRecord, health map[string]int) error
	// ReleaseCombat only clears the flags held by sessionID.
	ReleaseCombat(ctx context.Context, sessionID string, userIDs ...string) error

	UpdateDuelRecord(ctx context.Context, rec *game.DuelRecord) error
	GetDuelRecord(ctx context.Context, id string) (*game.DuelRecord, error)
	// FindOrphanedDuels returns duels that never reached a terminal state
	// and were last updated before the given time.
	FindOrphanedDuels(ctx context.Context, before time.Time) ([]game.DuelRecord, error)
}
