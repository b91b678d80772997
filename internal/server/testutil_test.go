package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"nhooyr.io/websocket"

	"battleship/internal/game"
	"battleship/internal/protocol"
	"battleship/internal/session"
	"battleship/internal/storage"
)

// --- Test environment ---

type testEnv struct {
	ts    *httptest.Server
	mgr   *session.Manager
	store *storage.Store
	dir   *storage.Directory
}

// setupTestEnv starts a server on an in-memory database. The first
// participant to join a match always fires first.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dir := storage.NewDirectory(store, 64)
	t.Cleanup(dir.Close)

	mgr := session.NewManager(game.Classic(),
		session.WithRecorder(dir),
		session.WithCoin(func(int) int { return 0 }),
	)

	webFS := fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte("<html><body>test</body></html>")},
	}
	srv := New(game.DefaultRegistry(), mgr, store, webFS)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, mgr: mgr, store: store, dir: dir}
}

// --- WebSocket helpers ---

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

// dial connects a participant and consumes its connected greeting.
func dial(t *testing.T, env *testEnv) *client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(env.ts), nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	c := &client{t: t, conn: conn}
	var hello protocol.Connected
	c.expectInto(protocol.KindConnected, &hello)
	if hello.ParticipantID == "" {
		t.Fatal("expected participant id in greeting")
	}
	c.id = hello.ParticipantID
	return c
}

func (c *client) send(in protocol.Intent) {
	c.t.Helper()
	data, err := protocol.EncodeIntent(in)
	if err != nil {
		c.t.Fatalf("encode intent: %v", err)
	}
	c.sendRaw(string(data))
}

func (c *client) sendRaw(data string) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, []byte(data)); err != nil {
		c.t.Fatalf("ws write: %v", err)
	}
}

func (c *client) next() protocol.Envelope {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		c.t.Fatalf("ws read: %v", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.t.Fatalf("unmarshal event: %v", err)
	}
	return env
}

// expect reads the next event and fails unless it has the given kind.
func (c *client) expect(kind string) json.RawMessage {
	c.t.Helper()
	env := c.next()
	if env.Type != kind {
		c.t.Fatalf("expected %s, got %s: %s", kind, env.Type, string(env.Payload))
	}
	return env.Payload
}

func (c *client) expectInto(kind string, v any) {
	c.t.Helper()
	payload := c.expect(kind)
	if err := json.Unmarshal(payload, v); err != nil {
		c.t.Fatalf("unmarshal %s payload: %v", kind, err)
	}
}

func (c *client) expectError(code string) {
	c.t.Helper()
	var e protocol.Error
	c.expectInto(protocol.KindError, &e)
	if e.Code != code {
		c.t.Fatalf("expected error %s, got %s (%s)", code, e.Code, e.Message)
	}
}

func (c *client) fire(cell int) {
	c.t.Helper()
	c.send(protocol.Fire{Cell: &cell})
}

// --- Game helpers ---

// fleet is a legal classic placement: ships laid along rows 0, 2, 4, 6 and 8.
func fleet() [][]int {
	return [][]int{
		{0, 1, 2, 3, 4},
		{20, 21, 22, 23},
		{40, 41, 42},
		{60, 61, 62},
		{80, 81},
	}
}

func fleetCells() []int {
	var cells []int
	for _, ship := range fleet() {
		cells = append(cells, ship...)
	}
	return cells
}

// startMatch pairs two participants and commits both fleets. a fires first.
func startMatch(t *testing.T, env *testEnv) (a, b *client) {
	t.Helper()
	a = dial(t, env)
	a.expect(protocol.KindWaitingForOpponent)
	b = dial(t, env)
	b.expect(protocol.KindMatchReady)
	a.expect(protocol.KindMatchReady)

	a.send(protocol.CommitPlacement{Ships: fleet()})
	a.expect(protocol.KindPlacementAccepted)
	b.expect(protocol.KindOpponentReady)

	b.send(protocol.CommitPlacement{Ships: fleet()})
	b.expect(protocol.KindPlacementAccepted)
	b.expect(protocol.KindBothReady)
	var bt protocol.Turn
	b.expectInto(protocol.KindTurn, &bt)
	if bt.YourTurn {
		t.Fatal("expected b to wait")
	}

	a.expect(protocol.KindOpponentReady)
	a.expect(protocol.KindBothReady)
	var at protocol.Turn
	a.expectInto(protocol.KindTurn, &at)
	if !at.YourTurn {
		t.Fatal("expected a to fire first")
	}
	return a, b
}
