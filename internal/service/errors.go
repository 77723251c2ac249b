package service

import "errors"

// Duel request rejections. None of them mutate state.
var (
	ErrSelfTarget         = errors.New("cannot duel yourself")
	ErrTargetNoAccount    = errors.New("target has no account")
	ErrInitiatorNoAccount = errors.New("initiator has no account")
	ErrInitiatorBusy      = errors.New("initiator is already in combat")
	ErrTargetBusy         = errors.New("target is already in combat")
)

var (
	ErrSessionNotFound = errors.New("duel session not found")
	ErrNotParticipant  = errors.New("user is not a participant of this duel")
	ErrShuttingDown    = errors.New("duel manager is shutting down")
	ErrUnknownStage    = errors.New("unknown prompt stage")
	ErrStageRepeated   = errors.New("prompt stage already opened this round")

	ErrNoLootOffer   = errors.New("no loot offer is open")
	ErrNotWinner     = errors.New("only the winner can claim loot")
	ErrTooManyPicks  = errors.New("too many loot items selected")
	ErrNotInLootPool = errors.New("item is not part of the loot pool")
	// ErrLootUnavailable means some picks were no longer on the ground when
	// the pool was settled.
	ErrLootUnavailable = errors.New("loot item is no longer available")
)
