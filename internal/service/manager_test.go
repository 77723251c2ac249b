package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/engine"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/events"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/ledger"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/random"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/storage"
)

// fixedSource always returns the same roll.
type fixedSource struct{ f float64 }

func (s fixedSource) Float64() float64 { return s.f }
func (s fixedSource) Intn(int) int     { return 0 }

func testCatalog() *game.Catalog {
	return game.NewCatalog([]game.ItemDefinition{
		{ID: "cleaver", Name: "Cleaver", Type: game.ItemMeleeWeapon, Damage: 200, Penetration: 3, Accuracy: 100, Speed: 10, SlotsUsed: 1, DurabilityMax: 5},
		{ID: "crate", Name: "Crate", Type: game.ItemOther, SlotsUsed: 1},
		{ID: "vest", Name: "Vest", Type: game.ItemBodyArmor, ArmorLevel: 1, SlotsUsed: 1, DurabilityMax: 3},
	})
}

type fixture struct {
	repo storage.Repository
	led  *ledger.Ledger
	rec  *events.Recorder
	mgr  *Manager
}

type fixtureOpts struct {
	roll     float64
	settings func(*Settings)
	inv      func(*ledger.Ledger) Inventory
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()
	db, err := storage.OpenAndMigrate(storage.DriverSQLite, fmt.Sprintf("file:service_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		repo: storage.NewRepository(db),
		led:  ledger.New(db, testCatalog(), 10),
		rec:  events.NewRecorder(),
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, err := f.repo.EnsureAccount(context.Background(), id, "name-"+id, 100); err != nil {
			t.Fatalf("EnsureAccount(%s): %v", id, err)
		}
	}

	roll := opts.roll
	settings := DefaultSettings()
	settings.ChoiceTimeout = 2 * time.Second
	settings.SubPromptTimeout = 2 * time.Second
	settings.LimbPromptTimeout = 100 * time.Millisecond
	settings.LootWindow = 2 * time.Second
	settings.NewSource = func() (random.Source, int64, error) { return fixedSource{f: roll}, 0, nil }
	if opts.settings != nil {
		opts.settings(&settings)
	}

	var inv Inventory = f.led
	if opts.inv != nil {
		inv = opts.inv(f.led)
	}
	f.mgr = NewManager(context.Background(), f.repo, inv, f.rec, settings)
	t.Cleanup(f.mgr.Close)
	return f
}

func (f *fixture) grant(t *testing.T, owner, def string) uint {
	t.Helper()
	it, err := f.led.Grant(context.Background(), owner, def, game.ContainerBackpack)
	if err != nil {
		t.Fatalf("Grant(%s, %s): %v", owner, def, err)
	}
	return it.ID
}

func (f *fixture) waitFor(t *testing.T, sessionID string, kind events.Kind, n int) events.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e, err := f.rec.WaitForNth(ctx, sessionID, kind, n)
	if err != nil {
		t.Fatalf("waiting for %s #%d: %v", kind, n, err)
	}
	return e
}

func (f *fixture) waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session %s did not finish", s.ID)
	}
}

func (f *fixture) assertReleased(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		acc, err := f.repo.GetAccount(context.Background(), id)
		if err != nil {
			t.Fatalf("GetAccount(%s): %v", id, err)
		}
		if acc.InCombat || acc.CombatSessionID != "" {
			t.Fatalf("%s still flagged in combat (%q)", id, acc.CombatSessionID)
		}
	}
}

func ended(t *testing.T, e events.Event) events.SessionEnded {
	t.Helper()
	p, ok := e.Payload.(events.SessionEnded)
	if !ok {
		t.Fatalf("unexpected payload %T", e.Payload)
	}
	return p
}

func TestRequestDuel_Validation(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99})
	ctx := context.Background()

	if _, err := f.mgr.RequestDuel(ctx, "a", "a"); !errors.Is(err, ErrSelfTarget) {
		t.Fatalf("expected ErrSelfTarget, got %v", err)
	}
	if _, err := f.mgr.RequestDuel(ctx, "a", "ghost"); !errors.Is(err, ErrTargetNoAccount) {
		t.Fatalf("expected ErrTargetNoAccount, got %v", err)
	}
	if _, err := f.mgr.RequestDuel(ctx, "ghost", "a"); !errors.Is(err, ErrInitiatorNoAccount) {
		t.Fatalf("expected ErrInitiatorNoAccount, got %v", err)
	}

	s, err := f.mgr.RequestDuel(ctx, "a", "b")
	if err != nil {
		t.Fatalf("RequestDuel: %v", err)
	}
	if _, err := f.mgr.RequestDuel(ctx, "a", "c"); !errors.Is(err, ErrInitiatorBusy) {
		t.Fatalf("expected ErrInitiatorBusy, got %v", err)
	}
	if _, err := f.mgr.RequestDuel(ctx, "c", "b"); !errors.Is(err, ErrTargetBusy) {
		t.Fatalf("expected ErrTargetBusy, got %v", err)
	}

	acc, _ := f.repo.GetAccount(ctx, "c")
	if acc.InCombat {
		t.Fatalf("rejected request must not flag the other user")
	}
	for _, id := range []string{"a", "b"} {
		acc, _ := f.repo.GetAccount(ctx, id)
		if !acc.InCombat || acc.CombatSessionID != s.ID {
			t.Fatalf("%s should be flagged for %s, got %+v", id, s.ID, acc)
		}
	}
	if v, ok := f.mgr.ActiveSession("b"); !ok || v.ID != s.ID {
		t.Fatalf("ActiveSession(b) = %+v, %v", v, ok)
	}
}

func TestDuel_WinDropsLootAndClearsFlags(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99})
	ctx := context.Background()
	cleaver := f.grant(t, "a", "cleaver")
	crate := f.grant(t, "b", "crate")
	vest := f.grant(t, "b", "vest")

	s, err := f.mgr.RequestDuel(ctx, "a", "b")
	if err != nil {
		t.Fatalf("RequestDuel: %v", err)
	}
	f.waitFor(t, s.ID, events.KindRoundPrompt, 1)

	view, err := f.mgr.Snapshot(s.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if view.Status != game.StatusAwaitingChoices || view.Turn != 1 || len(view.Deadlines) != 2 {
		t.Fatalf("unexpected view %+v", view)
	}

	if err := f.mgr.SubmitAction(s.ID, "c", game.Flee{}); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if err := f.mgr.SubmitAction(s.ID, "a", game.Attack{Weapon: cleaver}); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}
	if err := f.mgr.SubmitAction(s.ID, "a", game.Flee{}); !errors.Is(err, ErrNotAwaiting) {
		t.Fatalf("second submission must be rejected, got %v", err)
	}

	end := ended(t, f.waitFor(t, s.ID, events.KindSessionEnded, 1))
	if end.Outcome != game.OutcomeWin || end.WinnerID != "a" {
		t.Fatalf("unexpected ending %+v", end)
	}
	if end.Loot == nil || len(end.Loot.Items) != 2 || end.Loot.MaxPicks != 5 {
		t.Fatalf("unexpected loot offer %+v", end.Loot)
	}
	f.assertReleased(t, "a", "b")

	if _, err := f.mgr.ClaimLoot(ctx, s.ID, "b", []uint{crate}); !errors.Is(err, ErrNotWinner) {
		t.Fatalf("expected ErrNotWinner, got %v", err)
	}
	if _, err := f.mgr.ClaimLoot(ctx, s.ID, "a", []uint{cleaver}); !errors.Is(err, ErrNotInLootPool) {
		t.Fatalf("expected ErrNotInLootPool, got %v", err)
	}
	got, err := f.mgr.ClaimLoot(ctx, s.ID, "a", []uint{crate})
	if err != nil {
		t.Fatalf("ClaimLoot: %v", err)
	}
	if len(got) != 1 || got[0] != crate {
		t.Fatalf("transferred = %v, want [%d]", got, crate)
	}
	f.waitDone(t, s)

	if it, _, err := f.led.Item(ctx, "a", crate); err != nil || it.Container != game.ContainerBackpack {
		t.Fatalf("crate should be in the winner's backpack: %+v, %v", it, err)
	}
	if _, _, err := f.led.Item(ctx, "b", vest); !errors.Is(err, game.ErrStateConflict) {
		t.Fatalf("unclaimed vest should be deleted, got %v", err)
	}
	loser, _ := f.repo.GetAccount(ctx, "b")
	if loser.HealthCurrent != loser.HealthMax {
		t.Fatalf("loser should respawn at full health, got %d", loser.HealthCurrent)
	}
	rec, err := f.repo.GetDuelRecord(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetDuelRecord: %v", err)
	}
	if rec.Status != game.StatusCompleted || rec.Outcome != game.OutcomeWin || rec.WinnerID != "a" || rec.EndedAt == nil || rec.TurnNumber != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
	resolved := f.rec.OfKind(events.KindLootResolved)
	if len(resolved) != 1 {
		t.Fatalf("expected one loot_resolved event, got %d", len(resolved))
	}
	if p := resolved[0].Payload.(events.LootResolved); p.TimedOut || p.Deleted != 1 {
		t.Fatalf("unexpected loot resolution %+v", p)
	}
	if _, err := f.mgr.Snapshot(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("finished session should be forgotten, got %v", err)
	}
}

// winLoot runs a one-round duel that a wins against b and returns once the
// claim window is open.
func (f *fixture) winLoot(t *testing.T, defs ...string) (*Session, []uint) {
	t.Helper()
	cleaver := f.grant(t, "a", "cleaver")
	var pool []uint
	for _, def := range defs {
		pool = append(pool, f.grant(t, "b", def))
	}
	s, err := f.mgr.RequestDuel(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("RequestDuel: %v", err)
	}
	f.waitFor(t, s.ID, events.KindRoundPrompt, 1)
	if err := f.mgr.SubmitAction(s.ID, "a", game.Attack{Weapon: cleaver}); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}
	f.waitFor(t, s.ID, events.KindLootOffered, 1)
	return s, pool
}

func TestDuel_LoserCannotReclaimLootDuringWindow(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99})
	ctx := context.Background()
	s, pool := f.winLoot(t, "crate", "vest")
	crate, vest := pool[0], pool[1]

	if err := f.led.MoveItem(ctx, "b", crate, game.ContainerGround, game.ContainerStash); !errors.Is(err, ledger.ErrInvalidContainer) {
		t.Fatalf("loser moved loot off the ground: %v", err)
	}
	if _, err := f.led.Sell(ctx, "b", vest); !errors.Is(err, ledger.ErrNotSellable) {
		t.Fatalf("loser sold loot from the ground: %v", err)
	}

	got, err := f.mgr.ClaimLoot(ctx, s.ID, "a", []uint{crate})
	if err != nil || len(got) != 1 || got[0] != crate {
		t.Fatalf("ClaimLoot = %v, %v", got, err)
	}
	f.waitDone(t, s)
	if it, _, err := f.led.Item(ctx, "a", crate); err != nil || it.Container != game.ContainerBackpack {
		t.Fatalf("crate should reach the winner: %+v, %v", it, err)
	}
	for _, c := range []game.Container{game.ContainerStash, game.ContainerBackpack, game.ContainerGround} {
		left, _ := f.led.List(ctx, "b", c)
		if len(left) != 0 {
			t.Fatalf("loser still holds %+v in %s", left, c)
		}
	}
}

// lossyInventory loses the first pick while distributing loot.
type lossyInventory struct {
	*ledger.Ledger
}

func (l lossyInventory) DistributeLoot(ctx context.Context, loser, winner string, pool, selected []uint) ([]uint, error) {
	if len(selected) > 0 {
		selected = selected[1:]
	}
	return l.Ledger.DistributeLoot(ctx, loser, winner, pool, selected)
}

func TestClaimLoot_ReportsUntransferredPicks(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99, inv: func(l *ledger.Ledger) Inventory { return lossyInventory{l} }})
	s, pool := f.winLoot(t, "crate", "vest")

	got, err := f.mgr.ClaimLoot(context.Background(), s.ID, "a", pool)
	if !errors.Is(err, ErrLootUnavailable) {
		t.Fatalf("expected ErrLootUnavailable, got %v", err)
	}
	if len(got) != 1 || got[0] != pool[1] {
		t.Fatalf("transferred = %v, want [%d]", got, pool[1])
	}
	f.waitDone(t, s)
}

func TestDuel_LootTimeoutDeletesPool(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99, settings: func(s *Settings) { s.LootWindow = 50 * time.Millisecond }})
	ctx := context.Background()
	cleaver := f.grant(t, "a", "cleaver")
	crate := f.grant(t, "b", "crate")

	s, err := f.mgr.RequestDuel(ctx, "b", "a")
	if err != nil {
		t.Fatalf("RequestDuel: %v", err)
	}
	f.waitFor(t, s.ID, events.KindRoundPrompt, 1)
	if err := f.mgr.SubmitAction(s.ID, "a", game.Attack{Weapon: cleaver}); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}
	f.waitDone(t, s)

	if _, _, err := f.led.Item(ctx, "b", crate); !errors.Is(err, game.ErrStateConflict) {
		t.Fatalf("unclaimed loot should be deleted, got %v", err)
	}
	p := f.rec.OfKind(events.KindLootResolved)[0].Payload.(events.LootResolved)
	if !p.TimedOut || len(p.Transferred) != 0 {
		t.Fatalf("unexpected loot resolution %+v", p)
	}
	f.assertReleased(t, "a", "b")
}

func TestDuel_TurnLimitIsTie(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99, settings: func(s *Settings) { s.MaxTurns = 2 }})
	s, err := f.mgr.RequestDuel(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("RequestDuel: %v", err)
	}
	for turn := 1; turn <= 2; turn++ {
		f.waitFor(t, s.ID, events.KindRoundPrompt, turn)
		for _, id := range []string{"a", "b"} {
			if err := f.mgr.SubmitAction(s.ID, id, game.Flee{}); err != nil {
				t.Fatalf("turn %d SubmitAction(%s): %v", turn, id, err)
			}
		}
	}
	end := ended(t, f.waitFor(t, s.ID, events.KindSessionEnded, 1))
	if end.Outcome != game.OutcomeTie || end.Loot != nil {
		t.Fatalf("unexpected ending %+v", end)
	}
	if n := len(f.rec.OfKind(events.KindRoundResult)); n != 2 {
		t.Fatalf("expected 2 resolved rounds, got %d", n)
	}
	f.waitDone(t, s)
	f.assertReleased(t, "a", "b")
}

func TestDuel_SuccessfulFlee(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.0})
	s, err := f.mgr.RequestDuel(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("RequestDuel: %v", err)
	}
	f.waitFor(t, s.ID, events.KindRoundPrompt, 1)
	if err := f.mgr.SubmitAction(s.ID, "b", game.Flee{}); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}
	end := ended(t, f.waitFor(t, s.ID, events.KindSessionEnded, 1))
	if end.Outcome != game.OutcomeFlee || end.FledID != "b" || end.Loot != nil {
		t.Fatalf("unexpected ending %+v", end)
	}
	f.waitDone(t, s)
	f.assertReleased(t, "a", "b")
}

func TestDuel_BothAbsentCancels(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99, settings: func(s *Settings) { s.ChoiceTimeout = 50 * time.Millisecond }})
	s, err := f.mgr.RequestDuel(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("RequestDuel: %v", err)
	}
	end := ended(t, f.waitFor(t, s.ID, events.KindSessionEnded, 1))
	if end.Outcome != game.OutcomeCancelled || end.Reason != reasonIdle {
		t.Fatalf("unexpected ending %+v", end)
	}
	if n := len(f.rec.OfKind(events.KindRoundResult)); n != 0 {
		t.Fatalf("an all-absent round must not be resolved, got %d results", n)
	}
	f.waitDone(t, s)
	f.assertReleased(t, "a", "b")
}

func TestBeginChoice_CannotHoldRoundOpen(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99, settings: func(s *Settings) {
		s.ChoiceTimeout = 300 * time.Millisecond
		s.SubPromptTimeout = 300 * time.Millisecond
		s.MaxTurns = 1
	}})
	s, err := f.mgr.RequestDuel(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("RequestDuel: %v", err)
	}
	f.waitFor(t, s.ID, events.KindRoundPrompt, 1)
	if err := f.mgr.SubmitAction(s.ID, "b", game.Flee{}); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}

	if _, err := f.mgr.BeginChoice(s.ID, "a", game.StageAction); !errors.Is(err, ErrStageRepeated) {
		t.Fatalf("reopening the action stage should fail, got %v", err)
	}
	if _, err := f.mgr.BeginChoice(s.ID, "a", game.StageWeapon); err != nil {
		t.Fatalf("BeginChoice(weapon): %v", err)
	}
	if _, err := f.mgr.BeginChoice(s.ID, "a", game.StageWeapon); !errors.Is(err, ErrStageRepeated) {
		t.Fatalf("reopening the weapon stage should fail, got %v", err)
	}

	start := time.Now()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				f.mgr.BeginChoice(s.ID, "a", game.StageWeapon)
				f.mgr.BeginChoice(s.ID, "a", game.StageAction)
			}
		}
	}()
	f.waitFor(t, s.ID, events.KindRoundResult, 1)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("round stayed open for %v", elapsed)
	}
	f.waitDone(t, s)
	f.assertReleased(t, "a", "b")
}

func TestDuel_SubPromptDeadlineIsPerParticipant(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99, settings: func(s *Settings) { s.MaxTurns = 1 }})
	s, err := f.mgr.RequestDuel(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("RequestDuel: %v", err)
	}
	prompt := f.waitFor(t, s.ID, events.KindRoundPrompt, 1).Payload.(events.RoundPrompt)

	if _, err := f.mgr.BeginChoice(s.ID, "a", game.PromptStage("inventory")); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("expected ErrUnknownStage, got %v", err)
	}
	deadline, err := f.mgr.BeginChoice(s.ID, "a", game.StageLimb)
	if err != nil {
		t.Fatalf("BeginChoice: %v", err)
	}
	if !deadline.Before(prompt.Deadline) {
		t.Fatalf("limb prompt should shorten the deadline: %v vs %v", deadline, prompt.Deadline)
	}
	if n := len(f.rec.OfKind(events.KindChoicePrompt)); n != 1 {
		t.Fatalf("expected one choice_prompt event, got %d", n)
	}
	if err := f.mgr.SubmitAction(s.ID, "b", game.Flee{}); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}

	start := time.Now()
	res := f.waitFor(t, s.ID, events.KindRoundResult, 1).Payload.(events.RoundResult)
	if time.Since(start) > time.Second {
		t.Fatalf("round waited for the original deadline")
	}
	var absent bool
	for _, e := range res.Entries {
		if e.Kind == engine.EntryAbsent && e.Actor == "a" {
			absent = true
		}
	}
	if !absent {
		t.Fatalf("expired participant should be absent, entries %+v", res.Entries)
	}
	f.waitDone(t, s)
	f.assertReleased(t, "a", "b")
}

// failingInventory breaks item lookups the way a lost database would.
type failingInventory struct {
	*ledger.Ledger
	panics bool
}

func (f failingInventory) Item(context.Context, string, uint) (*game.ItemInstance, *game.ItemDefinition, error) {
	if f.panics {
		panic("inventory exploded")
	}
	return nil, nil, errors.New("connection reset")
}

func TestDuel_TransactionFailureCancels(t *testing.T) {
	for _, panics := range []bool{false, true} {
		name := "error"
		if panics {
			name = "panic"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, fixtureOpts{roll: 0.99, inv: func(l *ledger.Ledger) Inventory {
				return failingInventory{Ledger: l, panics: panics}
			}})
			cleaver := f.grant(t, "a", "cleaver")
			s, err := f.mgr.RequestDuel(context.Background(), "a", "b")
			if err != nil {
				t.Fatalf("RequestDuel: %v", err)
			}
			f.waitFor(t, s.ID, events.KindRoundPrompt, 1)
			if err := f.mgr.SubmitAction(s.ID, "a", game.Attack{Weapon: cleaver}); err != nil {
				t.Fatalf("SubmitAction: %v", err)
			}
			end := ended(t, f.waitFor(t, s.ID, events.KindSessionEnded, 1))
			if end.Outcome != game.OutcomeCancelled {
				t.Fatalf("unexpected ending %+v", end)
			}
			f.waitDone(t, s)
			f.assertReleased(t, "a", "b")

			if _, err := f.mgr.RequestDuel(context.Background(), "a", "b"); err != nil {
				t.Fatalf("participants should be able to duel again: %v", err)
			}
		})
	}
}

func TestSweepOrphans(t *testing.T) {
	f := newFixture(t, fixtureOpts{roll: 0.99})
	ctx := context.Background()

	orphan := &game.DuelRecord{ID: "orphan-1", ParticipantA: "b", ParticipantB: "c", MaxTurns: 20, Status: game.StatusAwaitingChoices}
	if err := f.repo.BeginCombat(ctx, orphan); err != nil {
		t.Fatalf("BeginCombat: %v", err)
	}
	if _, err := f.mgr.RequestDuel(ctx, "a", "b"); !errors.Is(err, ErrTargetBusy) {
		t.Fatalf("orphaned flag should still block b, got %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	n, err := f.mgr.SweepOrphans(ctx, 0)
	if err != nil {
		t.Fatalf("SweepOrphans: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	f.assertReleased(t, "b", "c")
	rec, _ := f.repo.GetDuelRecord(ctx, orphan.ID)
	if rec.Status != game.StatusCompleted || rec.Outcome != game.OutcomeCancelled {
		t.Fatalf("orphan record not closed: %+v", rec)
	}

	live, err := f.mgr.RequestDuel(ctx, "a", "b")
	if err != nil {
		t.Fatalf("RequestDuel after sweep: %v", err)
	}
	f.waitFor(t, live.ID, events.KindRoundPrompt, 1)
	time.Sleep(10 * time.Millisecond)
	if n, err := f.mgr.SweepOrphans(ctx, 0); err != nil || n != 0 {
		t.Fatalf("live session must not be swept: n=%d err=%v", n, err)
	}
	acc, _ := f.repo.GetAccount(ctx, "a")
	if !acc.InCombat {
		t.Fatalf("live participant lost its flag")
	}
}
