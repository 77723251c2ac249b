package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/ledger"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/service"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/storage"
	"github.com/gin-gonic/gin"
)

var testSecret = []byte("test-secret")

type fakeDuels struct {
	requestErr error
	submitErr  error
	submitted  []game.ActionChoice
	view       service.View
}

func (f *fakeDuels) RequestDuel(_ context.Context, initiator, target string) (*service.Session, error) {
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &service.Session{ID: initiator + "-vs-" + target}, nil
}

func (f *fakeDuels) SubmitAction(_, _ string, choice game.ActionChoice) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, choice)
	return nil
}

func (f *fakeDuels) BeginChoice(_, _ string, stage game.PromptStage) (time.Time, error) {
	if _, err := game.ParsePromptStage(string(stage)); err != nil {
		return time.Time{}, service.ErrUnknownStage
	}
	return time.Now().Add(time.Second), nil
}

func (f *fakeDuels) ClaimLoot(_ context.Context, _, _ string, ids []uint) ([]uint, error) {
	return ids, nil
}

func (f *fakeDuels) Snapshot(id string) (service.View, error) {
	if id != f.view.ID {
		return service.View{}, service.ErrSessionNotFound
	}
	return f.view, nil
}

func (f *fakeDuels) ActiveSession(string) (service.View, bool) { return f.view, f.view.ID != "" }

type fakeInventory struct {
	sellErr error
	moved   int
}

func (f *fakeInventory) List(context.Context, string, game.Container) ([]game.ItemInstance, error) {
	return nil, nil
}

func (f *fakeInventory) Capacity(context.Context, string) (ledger.Capacity, error) {
	return ledger.Capacity{Used: 3, Limit: 15}, nil
}

func (f *fakeInventory) MoveItem(context.Context, string, uint, game.Container, game.Container) error {
	f.moved++
	return nil
}

func (f *fakeInventory) SetEquipped(context.Context, string, uint, bool) error { return nil }

func (f *fakeInventory) Sell(context.Context, string, uint) (int, error) {
	if f.sellErr != nil {
		return 0, f.sellErr
	}
	return 42, nil
}

func (f *fakeInventory) Buy(_ context.Context, owner, def string, c game.Container) (*game.ItemInstance, error) {
	if def != "bandage" {
		return nil, ledger.ErrNotForSale
	}
	if c == "" {
		c = game.ContainerBackpack
	}
	it := &game.ItemInstance{DefinitionID: def, OwnerID: owner, Container: c}
	it.ID = 9
	return it, nil
}

type fakeAccounts struct {
	accounts map[string]*game.Account
}

func (f *fakeAccounts) GetAccount(_ context.Context, id string) (*game.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeAccounts) EnsureAccount(_ context.Context, id, name string, healthMax int) (*game.Account, error) {
	a := &game.Account{UserID: id, Name: name, HealthCurrent: healthMax, HealthMax: healthMax}
	f.accounts[id] = a
	return a, nil
}

type fakeHistory struct {
	records map[string]*game.DuelRecord
}

func (f *fakeHistory) GetDuelRecord(_ context.Context, id string) (*game.DuelRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, storage.ErrDuelNotFound
	}
	return rec, nil
}

type fakeSnapshots struct {
	latest map[string]json.RawMessage
}

func (f *fakeSnapshots) Latest(_ context.Context, id string) (json.RawMessage, error) {
	return f.latest[id], nil
}

type testServer struct {
	duels    *fakeDuels
	inv      *fakeInventory
	accounts *fakeAccounts
	router   *gin.Engine
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		duels:    &fakeDuels{},
		inv:      &fakeInventory{},
		accounts: &fakeAccounts{accounts: map[string]*game.Account{"alice": {UserID: "alice"}}},
	}
	ts.router = NewRouter(NewHandler(ts.duels, ts.inv, ts.accounts, 100), testSecret)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := IssueToken(testSecret, user, "Name "+user, time.Hour)
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer()
	if w := ts.do(t, http.MethodGet, "/api/account", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	bad, _ := IssueToken([]byte("other"), "alice", "", time.Hour)
	req.Header.Set("Authorization", "Bearer "+bad)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/account", nil)
	expired, _ := IssueToken(testSecret, "alice", "", -time.Minute)
	req.Header.Set("Authorization", "Bearer "+expired)
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: got %d", w.Code)
	}

	if w := ts.do(t, http.MethodGet, "/api/account", "alice", nil); w.Code != http.StatusOK {
		t.Fatalf("valid token: got %d %s", w.Code, w.Body.String())
	}
}

func TestHealthzIsPublic(t *testing.T) {
	ts := newTestServer()
	if w := ts.do(t, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", w.Code)
	}
}

func TestEnsureAccount_DefaultsToTokenName(t *testing.T) {
	ts := newTestServer()
	w := ts.do(t, http.MethodPost, "/api/account", "bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	if a := ts.accounts.accounts["bob"]; a == nil || a.Name != "Name bob" || a.HealthMax != 100 {
		t.Fatalf("unexpected account %+v", a)
	}
}

func TestEnsureAccount_TruncatesByRune(t *testing.T) {
	ts := newTestServer()
	w := ts.do(t, http.MethodPost, "/api/account", "bob", map[string]string{"name": strings.Repeat("é", 70)})
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	name := ts.accounts.accounts["bob"].Name
	if !utf8.ValidString(name) || utf8.RuneCountInString(name) != 64 {
		t.Fatalf("name should be 64 whole runes, got %d runes (valid=%v)", utf8.RuneCountInString(name), utf8.ValidString(name))
	}
}

func TestRequestDuel(t *testing.T) {
	ts := newTestServer()
	w := ts.do(t, http.MethodPost, "/api/duels", "alice", map[string]string{"target_id": "bob"})
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["session_id"] != "alice-vs-bob" {
		t.Fatalf("unexpected response %v", resp)
	}

	if w := ts.do(t, http.MethodPost, "/api/duels", "alice", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing target: got %d", w.Code)
	}

	cases := map[error]int{
		service.ErrSelfTarget:                         http.StatusBadRequest,
		service.ErrTargetNoAccount:                    http.StatusNotFound,
		service.ErrInitiatorBusy:                      http.StatusConflict,
		service.ErrTargetBusy:                         http.StatusConflict,
		fmt.Errorf("db: %w", service.ErrShuttingDown): http.StatusServiceUnavailable,
	}
	for err, want := range cases {
		ts.duels.requestErr = err
		if w := ts.do(t, http.MethodPost, "/api/duels", "alice", map[string]string{"target_id": "bob"}); w.Code != want {
			t.Fatalf("%v: got %d, want %d", err, w.Code, want)
		}
	}
}

func TestSubmitAction(t *testing.T) {
	ts := newTestServer()
	path := "/api/duels/s1/action"

	if w := ts.do(t, http.MethodPost, path, "alice", map[string]interface{}{"kind": "dance"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, path, "alice", map[string]interface{}{"kind": "attack", "weapon_id": 3, "limb": "tail"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown limb: got %d", w.Code)
	}
	w := ts.do(t, http.MethodPost, path, "alice", map[string]interface{}{"kind": "attack", "weapon_id": 3, "ammo_id": 9, "limb": "head"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("valid attack: got %d %s", w.Code, w.Body.String())
	}
	if len(ts.duels.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(ts.duels.submitted))
	}
	a, ok := ts.duels.submitted[0].(game.Attack)
	if !ok || a.Weapon != 3 || a.Ammo == nil || *a.Ammo != 9 || a.Limb == nil || *a.Limb != game.LimbHead {
		t.Fatalf("unexpected choice %#v", ts.duels.submitted[0])
	}

	ts.duels.submitErr = service.ErrNotAwaiting
	if w := ts.do(t, http.MethodPost, path, "alice", map[string]interface{}{"kind": "flee"}); w.Code != http.StatusConflict {
		t.Fatalf("not awaiting: got %d", w.Code)
	}
}

func TestBeginChoice(t *testing.T) {
	ts := newTestServer()
	if w := ts.do(t, http.MethodPost, "/api/duels/s1/prompt", "alice", map[string]string{"stage": "limb"}); w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	if w := ts.do(t, http.MethodPost, "/api/duels/s1/prompt", "alice", map[string]string{"stage": "nap"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown stage: got %d", w.Code)
	}
}

func TestGetDuel_ParticipantsOnly(t *testing.T) {
	ts := newTestServer()
	ts.duels.view = service.View{ID: "s1", Participants: []string{"alice", "bob"}, Turn: 2}
	if w := ts.do(t, http.MethodGet, "/api/duels/s1", "alice", nil); w.Code != http.StatusOK {
		t.Fatalf("participant: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/duels/s1", "carol", nil); w.Code != http.StatusForbidden {
		t.Fatalf("outsider: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/duels/nope", "alice", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/duels/active", "alice", nil); w.Code != http.StatusOK {
		t.Fatalf("active: got %d", w.Code)
	}
}

func TestGetDuel_FallsBackToHistory(t *testing.T) {
	ts := newTestServer()
	history := &fakeHistory{records: map[string]*game.DuelRecord{
		"old": {ID: "old", ParticipantA: "alice", ParticipantB: "bob", TurnNumber: 3, Status: game.StatusCompleted, Outcome: game.OutcomeWin, WinnerID: "alice"},
	}}
	snaps := &fakeSnapshots{latest: map[string]json.RawMessage{
		"old": json.RawMessage(`{"kind":"loot_resolved","session_id":"old"}`),
	}}
	h := NewHandler(ts.duels, ts.inv, ts.accounts, 100).WithHistory(history, snaps)
	ts.router = NewRouter(h, testSecret)

	w := ts.do(t, http.MethodGet, "/api/duels/old", "bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("participant: got %d %s", w.Code, w.Body.String())
	}
	var body struct {
		Record      game.DuelRecord `json:"record"`
		LatestEvent struct {
			Kind string `json:"kind"`
		} `json:"latest_event"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Record.TurnNumber != 3 || body.Record.WinnerID != "alice" || body.LatestEvent.Kind != "loot_resolved" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if w := ts.do(t, http.MethodGet, "/api/duels/old", "carol", nil); w.Code != http.StatusForbidden {
		t.Fatalf("outsider: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/duels/nope", "alice", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing: got %d", w.Code)
	}
}

func TestInventory_LockedDuringCombat(t *testing.T) {
	ts := newTestServer()
	ts.accounts.accounts["alice"].InCombat = true
	w := ts.do(t, http.MethodPost, "/api/inventory/4/move", "alice", map[string]string{"from": "stash", "to": "backpack"})
	if w.Code != http.StatusConflict {
		t.Fatalf("got %d", w.Code)
	}
	if ts.inv.moved != 0 {
		t.Fatalf("move must not reach the ledger during combat")
	}

	ts.accounts.accounts["alice"].InCombat = false
	if w := ts.do(t, http.MethodPost, "/api/inventory/4/move", "alice", map[string]string{"from": "stash", "to": "backpack"}); w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestInventory_Sell(t *testing.T) {
	ts := newTestServer()
	if w := ts.do(t, http.MethodPost, "/api/inventory/abc/sell", "alice", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: got %d", w.Code)
	}
	w := ts.do(t, http.MethodPost, "/api/inventory/4/sell", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	var resp map[string]int
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["price"] != 42 {
		t.Fatalf("unexpected response %v", resp)
	}

	ts.inv.sellErr = fmt.Errorf("%w: item 4", ledger.ErrItemEquipped)
	if w := ts.do(t, http.MethodPost, "/api/inventory/4/sell", "alice", nil); w.Code != http.StatusConflict {
		t.Fatalf("equipped: got %d", w.Code)
	}
	ts.inv.sellErr = fmt.Errorf("%w: item 4", game.ErrStateConflict)
	if w := ts.do(t, http.MethodPost, "/api/inventory/4/sell", "alice", nil); w.Code != http.StatusNotFound {
		t.Fatalf("gone: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/inventory/4/sell", "ghost", nil); w.Code != http.StatusNotFound {
		t.Fatalf("no account: got %d", w.Code)
	}
}

func TestBuyItem(t *testing.T) {
	ts := newTestServer()
	w := ts.do(t, http.MethodPost, "/api/shop/bandage/buy", "alice", map[string]string{"container": "stash"})
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	var it game.ItemInstance
	if err := json.Unmarshal(w.Body.Bytes(), &it); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if it.DefinitionID != "bandage" || it.Container != game.ContainerStash {
		t.Fatalf("unexpected item %+v", it)
	}
	if w := ts.do(t, http.MethodPost, "/api/shop/mosin/buy", "alice", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unstocked item: got %d", w.Code)
	}
	ts.accounts.accounts["alice"].InCombat = true
	if w := ts.do(t, http.MethodPost, "/api/shop/bandage/buy", "alice", nil); w.Code != http.StatusConflict {
		t.Fatalf("in combat: got %d", w.Code)
	}
}

func TestListInventory(t *testing.T) {
	ts := newTestServer()
	w := ts.do(t, http.MethodGet, "/api/inventory", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	var resp struct {
		Container string              `json:"container"`
		Items     []game.ItemInstance `json:"items"`
		Capacity  ledger.Capacity     `json:"capacity"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Container != "backpack" || resp.Items == nil || resp.Capacity.Limit != 15 {
		t.Fatalf("unexpected response %+v", resp)
	}
}
