package battleship

import (
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"battleship/internal/game"
	"battleship/internal/protocol"
)

// Status represents the match lifecycle.
type Status string

const (
	StatusForming            Status = "forming"
	StatusAwaitingPlacements Status = "awaiting-placements"
	StatusPlaying            Status = "playing"
	StatusFinished           Status = "finished"
	StatusDestroyed          Status = "destroyed"
)

// Outbox delivers events to participants. Deliver must not block.
type Outbox interface {
	Deliver(participantID string, ev protocol.Event)
}

// Coin returns a uniform integer in [0, n).
type Coin func(n int) int

// Match is one authoritative two-participant game. All methods are safe for
// concurrent use; events caused by an operation are delivered before the
// operation returns, while the match lock is still held.
type Match struct {
	mu        sync.Mutex
	id        string
	rules     game.Rules
	players   []string
	boards    map[string]*Board
	turn      string
	winner    string
	status    Status
	shots     int
	createdAt time.Time
	out       Outbox
	coin      Coin
}

// NewMatch creates an empty match in the forming state. A nil coin uses
// math/rand/v2.
func NewMatch(id string, rules game.Rules, out Outbox, coin Coin) *Match {
	if coin == nil {
		coin = rand.IntN
	}
	return &Match{
		id:        id,
		rules:     rules,
		players:   make([]string, 0, 2),
		boards:    make(map[string]*Board, 2),
		status:    StatusForming,
		createdAt: time.Now(),
		out:       out,
		coin:      coin,
	}
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// Rules returns the rules the match is played under.
func (m *Match) Rules() game.Rules { return m.rules }

// Status returns the current lifecycle state.
func (m *Match) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Players returns the participant ids in join order.
func (m *Match) Players() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.players...)
}

// Opponent returns the other participant, or "" if there is none.
func (m *Match) Opponent(pid string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opponentLocked(pid)
}

// Turn returns the participant allowed to fire, or "" outside play.
func (m *Match) Turn() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turn
}

// Winner returns the winning participant once the match is finished.
func (m *Match) Winner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner
}

// HasRoom reports whether the match can take another participant.
func (m *Match) HasRoom() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusForming && len(m.players) < 2
}

// Join adds a participant. The first participant is told to wait; the
// second moves the match to awaiting-placements and both are told the
// match is ready.
func (m *Match) Join(pid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.status == StatusDestroyed:
		return ErrMatchClosed
	case m.status != StatusForming || len(m.players) >= 2:
		return ErrMatchFull
	case m.hasLocked(pid):
		return nil
	}
	m.players = append(m.players, pid)
	if len(m.players) == 1 {
		m.out.Deliver(pid, protocol.WaitingForOpponent{})
		return nil
	}
	m.status = StatusAwaitingPlacements
	for _, p := range m.players {
		m.out.Deliver(p, protocol.MatchReady{MatchID: m.id})
	}
	return nil
}

// Commit stores a participant's validated placement. When both sides have
// committed, the starting side is drawn at random and play begins.
func (m *Match) Commit(pid string, p *Placement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusDestroyed {
		return ErrMatchClosed
	}
	if !m.hasLocked(pid) {
		return ErrNotInMatch
	}
	if m.status == StatusForming {
		return ErrNotPaired
	}
	if _, done := m.boards[pid]; done {
		return ErrAlreadyCommitted
	}

	m.boards[pid] = NewBoard(p)
	opp := m.opponentLocked(pid)
	m.out.Deliver(pid, protocol.PlacementAccepted{})
	m.out.Deliver(opp, protocol.OpponentReady{})

	if len(m.boards) < 2 {
		return nil
	}
	m.turn = m.players[m.coin(2)]
	m.status = StatusPlaying
	log.Printf("match %s started, %s fires first", m.id, m.turn)
	for _, p := range m.players {
		m.out.Deliver(p, protocol.BothReady{})
		m.out.Deliver(p, protocol.Turn{YourTurn: p == m.turn})
	}
	return nil
}

// Shot is the resolved result of a fire intent.
type Shot struct {
	Cell      int
	Outcome   Outcome
	Remaining int    // unhit cells left on the target board
	NextTurn  string // "" once the match is finished
	Winner    string
}

// Fire resolves a shot by pid against the opponent's board. Rejected shots
// change nothing and deliver nothing.
func (m *Match) Fire(pid string, cell int) (Shot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.status == StatusDestroyed:
		return Shot{}, ErrMatchClosed
	case !m.hasLocked(pid):
		return Shot{}, ErrNotInMatch
	case m.status == StatusFinished:
		return Shot{}, ErrMatchFinished
	case m.status != StatusPlaying:
		return Shot{}, ErrNotStarted
	case m.turn != pid:
		return Shot{}, ErrNotYourTurn
	}

	opp := m.opponentLocked(pid)
	target := m.boards[opp]
	outcome, err := target.Shoot(cell)
	if err != nil {
		return Shot{}, err
	}
	shot := Shot{Cell: cell, Outcome: outcome, Remaining: target.Remaining()}

	if outcome.Repeat {
		shot.NextTurn = m.turn
		m.out.Deliver(pid, protocol.ShotResult{
			Cell:      cell,
			Hit:       outcome.Hit,
			YourTurn:  true,
			Repeat:    true,
			Remaining: shot.Remaining,
		})
		return shot, nil
	}

	m.shots++
	switch {
	case outcome.Hit && shot.Remaining == 0:
		m.winner = pid
		m.turn = ""
		m.status = StatusFinished
	case outcome.Hit && m.rules.TurnRule == game.HitAndContinue:
		// firer keeps the turn
	default:
		m.turn = opp
	}
	shot.NextTurn = m.turn
	shot.Winner = m.winner

	m.out.Deliver(pid, protocol.ShotResult{
		Cell:      cell,
		Hit:       outcome.Hit,
		YourTurn:  m.turn == pid,
		Sunk:      outcome.Sunk,
		Remaining: shot.Remaining,
	})
	m.out.Deliver(opp, protocol.IncomingFire{
		Cell:      cell,
		Hit:       outcome.Hit,
		YourTurn:  m.turn == opp,
		Sunk:      outcome.Sunk,
		Remaining: shot.Remaining,
	})
	if m.status == StatusFinished {
		log.Printf("match %s finished after %d shots, winner %s", m.id, m.shots, pid)
		for _, p := range m.players {
			m.out.Deliver(p, protocol.GameOver{Winner: pid, YouWon: p == pid})
		}
	}
	return shot, nil
}

// Abandon moves the match to destroyed from any state. Later intents are
// answered with ErrMatchClosed.
func (m *Match) Abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusDestroyed
	m.turn = ""
}

// Info is the public summary of a match. It never includes boards.
type Info struct {
	ID        string    `json:"id"`
	Rules     string    `json:"rules"`
	Status    Status    `json:"status"`
	Players   int       `json:"players"`
	Committed int       `json:"committed"`
	Shots     int       `json:"shots"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *Match) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Info{
		ID:        m.id,
		Rules:     m.rules.Name,
		Status:    m.status,
		Players:   len(m.players),
		Committed: len(m.boards),
		Shots:     m.shots,
		CreatedAt: m.createdAt,
	}
}

func (m *Match) hasLocked(pid string) bool {
	for _, p := range m.players {
		if p == pid {
			return true
		}
	}
	return false
}

func (m *Match) opponentLocked(pid string) string {
	for _, p := range m.players {
		if p != pid {
			return p
		}
	}
	return ""
}
