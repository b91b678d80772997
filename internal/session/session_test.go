package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"battleship/internal/game"
	"battleship/internal/game/battleship"
	"battleship/internal/protocol"
)

func setupTest(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithCoin(func(int) int { return 0 })}, opts...)
	return NewManager(game.Classic(), opts...)
}

// drain returns the event types queued for p without blocking.
func drain(p *Participant) []string {
	var kinds []string
	for {
		select {
		case msg, ok := <-p.Outbound():
			if !ok {
				return kinds
			}
			var env protocol.Envelope
			json.Unmarshal(msg, &env)
			kinds = append(kinds, env.Type)
		default:
			return kinds
		}
	}
}

func contains(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// fakeRecorder captures directory notifications.
type fakeRecorder struct {
	mu      sync.Mutex
	created []string
	removed []string
	status  map[string]string
}

func (r *fakeRecorder) MatchCreated(id, rules string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, id)
}

func (r *fakeRecorder) MatchStatus(id, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == nil {
		r.status = map[string]string{}
	}
	r.status[id] = status
}

func (r *fakeRecorder) MatchRemoved(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
}

func TestConnectGreets(t *testing.T) {
	mgr := setupTest(t)
	p := mgr.Connect()
	if p.ID == "" {
		t.Fatal("expected non-empty participant id")
	}
	kinds := drain(p)
	if len(kinds) != 1 || kinds[0] != protocol.KindConnected {
		t.Fatalf("expected connected, got %v", kinds)
	}
	if _, ok := mgr.Participant(p.ID); !ok {
		t.Fatal("participant not registered")
	}
}

func TestAssignPairs(t *testing.T) {
	mgr := setupTest(t)
	alice, bob := mgr.Connect(), mgr.Connect()
	drain(alice)
	drain(bob)

	id1, err := mgr.Assign(alice.ID)
	if err != nil {
		t.Fatalf("assign alice: %v", err)
	}
	if kinds := drain(alice); !contains(kinds, protocol.KindWaitingForOpponent) {
		t.Fatalf("expected waiting-for-opponent, got %v", kinds)
	}
	if mgr.Stats().Waiting != id1 {
		t.Fatal("expected alice's match to be the waiting slot")
	}

	id2, err := mgr.Assign(bob.ID)
	if err != nil {
		t.Fatalf("assign bob: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected both in one match, got %s and %s", id1, id2)
	}
	if mgr.Stats().Waiting != "" {
		t.Fatal("expected waiting slot to be cleared")
	}
	if !contains(drain(alice), protocol.KindMatchReady) || !contains(drain(bob), protocol.KindMatchReady) {
		t.Fatal("expected match-ready for both")
	}

	match, ok := mgr.MatchOf(alice.ID)
	if !ok || match.ID() != id1 || match.Status() != battleship.StatusAwaitingPlacements {
		t.Fatalf("unexpected match for alice: %v", match)
	}
}

func TestAssignThirdOpensNewMatch(t *testing.T) {
	mgr := setupTest(t)
	a, b, c := mgr.Connect(), mgr.Connect(), mgr.Connect()
	id1, _ := mgr.Assign(a.ID)
	mgr.Assign(b.ID)
	id3, _ := mgr.Assign(c.ID)
	if id3 == id1 {
		t.Fatal("third participant merged into a full match")
	}
	if mgr.Stats().Waiting != id3 {
		t.Fatal("expected new waiting match")
	}
}

func TestAssignErrors(t *testing.T) {
	mgr := setupTest(t)
	if _, err := mgr.Assign("nobody"); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("expected ErrUnknownParticipant, got %v", err)
	}
	p := mgr.Connect()
	mgr.Assign(p.ID)
	if _, err := mgr.Assign(p.ID); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("expected ErrAlreadyQueued, got %v", err)
	}
}

func TestConcurrentAssign(t *testing.T) {
	mgr := setupTest(t)
	const n = 50
	ids := make([]string, n)
	for i := range ids {
		ids[i] = mgr.Connect().ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := mgr.Assign(id); err != nil {
				t.Errorf("assign %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	infos := mgr.List()
	if len(infos) != n/2 {
		t.Fatalf("expected %d matches, got %d", n/2, len(infos))
	}
	for _, info := range infos {
		if info.Players != 2 {
			t.Fatalf("match %s has %d players", info.ID, info.Players)
		}
	}
}

func TestDestroyIdempotent(t *testing.T) {
	rec := &fakeRecorder{}
	mgr := setupTest(t, WithRecorder(rec))
	p := mgr.Connect()
	id, _ := mgr.Assign(p.ID)

	mgr.Destroy(id)
	mgr.Destroy(id)
	mgr.Destroy("nonexistent")

	if _, ok := mgr.Lookup(id); ok {
		t.Fatal("expected match to be gone")
	}
	if _, ok := mgr.MatchOf(p.ID); ok {
		t.Fatal("expected participant to be unrouted")
	}
	if mgr.Stats().Waiting != "" {
		t.Fatal("expected waiting slot to be cleared")
	}
	if len(rec.created) != 1 || len(rec.removed) != 1 {
		t.Fatalf("unexpected recorder calls: created %v removed %v", rec.created, rec.removed)
	}

	// Unrouted again, so assign works.
	if _, err := mgr.Assign(p.ID); err != nil {
		t.Fatalf("assign after destroy: %v", err)
	}
}

func TestDisconnectNotifiesOpponent(t *testing.T) {
	mgr := setupTest(t)
	alice, bob := mgr.Connect(), mgr.Connect()
	id, _ := mgr.Assign(alice.ID)
	mgr.Assign(bob.ID)
	match, _ := mgr.Lookup(id)
	drain(alice)
	drain(bob)

	mgr.Disconnect(bob.ID)

	if !contains(drain(alice), protocol.KindOpponentLeft) {
		t.Fatal("expected opponent-left for alice")
	}
	if _, ok := mgr.Lookup(id); ok {
		t.Fatal("expected match to be removed")
	}
	if match.Status() != battleship.StatusDestroyed {
		t.Fatalf("expected destroyed, got %s", match.Status())
	}
	if _, ok := mgr.Participant(bob.ID); ok {
		t.Fatal("expected bob to be forgotten")
	}
	if _, ok := <-bob.Outbound(); ok {
		t.Fatal("expected bob's queue to be closed")
	}

	// Alice can queue again.
	if _, err := mgr.Requeue(alice.ID); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if !contains(drain(alice), protocol.KindWaitingForOpponent) {
		t.Fatal("expected waiting-for-opponent after requeue")
	}
}

func TestDisconnectWhileWaiting(t *testing.T) {
	mgr := setupTest(t)
	alice := mgr.Connect()
	mgr.Assign(alice.ID)
	mgr.Disconnect(alice.ID)

	if s := mgr.Stats(); s.Matches != 0 || s.Waiting != "" || s.Participants != 0 {
		t.Fatalf("expected empty registry, got %+v", s)
	}

	bob := mgr.Connect()
	id, _ := mgr.Assign(bob.ID)
	match, _ := mgr.Lookup(id)
	if len(match.Players()) != 1 {
		t.Fatal("bob joined a dead match")
	}
}

func TestRequeueRepairsBothSides(t *testing.T) {
	mgr := setupTest(t)
	alice, bob := mgr.Connect(), mgr.Connect()
	old, _ := mgr.Assign(alice.ID)
	mgr.Assign(bob.ID)
	drain(alice)
	drain(bob)

	id, err := mgr.Requeue(alice.ID)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if id == old {
		t.Fatal("requeue reused the old match")
	}
	if _, ok := mgr.Lookup(old); ok {
		t.Fatal("old match still registered")
	}

	bobKinds := drain(bob)
	if !contains(bobKinds, protocol.KindOpponentLeft) || !contains(bobKinds, protocol.KindMatchReady) {
		t.Fatalf("expected bob to be told and re-paired, got %v", bobKinds)
	}
	bobMatch, _ := mgr.MatchOf(bob.ID)
	if bobMatch == nil || bobMatch.ID() != id {
		t.Fatal("expected bob and alice to be paired again")
	}
}

func TestRequeueWithOpponentWaitingElsewhere(t *testing.T) {
	mgr := setupTest(t)
	alice, bob, carol := mgr.Connect(), mgr.Connect(), mgr.Connect()
	mgr.Assign(alice.ID)
	mgr.Assign(bob.ID)
	carolMatch, _ := mgr.Assign(carol.ID)

	// bob is re-assigned first and takes carol's waiting slot.
	aliceMatch, _ := mgr.Requeue(alice.ID)
	bm, _ := mgr.MatchOf(bob.ID)
	if bm.ID() != carolMatch {
		t.Fatalf("expected bob to pair with carol")
	}
	if aliceMatch == carolMatch {
		t.Fatal("alice merged into a full match")
	}
	if mgr.Stats().Waiting != aliceMatch {
		t.Fatal("expected alice to be waiting")
	}
}

func TestRequeueUnrouted(t *testing.T) {
	mgr := setupTest(t)
	p := mgr.Connect()
	if _, err := mgr.Requeue(p.ID); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if _, ok := mgr.MatchOf(p.ID); !ok {
		t.Fatal("expected participant to be routed")
	}
	if _, err := mgr.Requeue("nobody"); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("expected ErrUnknownParticipant, got %v", err)
	}
}

func TestRecordStatus(t *testing.T) {
	rec := &fakeRecorder{}
	mgr := setupTest(t, WithRecorder(rec))
	alice, bob := mgr.Connect(), mgr.Connect()
	id, _ := mgr.Assign(alice.ID)
	mgr.Assign(bob.ID)

	if rec.status[id] != string(battleship.StatusAwaitingPlacements) {
		t.Fatalf("expected awaiting-placements recorded on pairing, got %q", rec.status[id])
	}

	match, _ := mgr.Lookup(id)
	match.Abandon()
	mgr.RecordStatus(match)
	if rec.status[id] != string(battleship.StatusDestroyed) {
		t.Fatalf("expected destroyed, got %q", rec.status[id])
	}
}

func TestListAndMatchIDs(t *testing.T) {
	mgr := setupTest(t)
	for i := 0; i < 3; i++ {
		mgr.Assign(mgr.Connect().ID)
	}
	// 3 participants -> 2 matches
	if n := len(mgr.List()); n != 2 {
		t.Fatalf("expected 2 matches, got %d", n)
	}
	if n := len(mgr.MatchIDs()); n != 2 {
		t.Fatalf("expected 2 ids, got %d", n)
	}
}

func TestDeliverToUnknownIsIgnored(t *testing.T) {
	mgr := setupTest(t)
	// Should not panic
	mgr.Deliver("nobody", protocol.OpponentLeft{})
	mgr.Deliver("", protocol.OpponentLeft{})
}
