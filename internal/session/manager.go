package session

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"battleship/internal/game"
	"battleship/internal/game/battleship"
	"battleship/internal/protocol"
)

var (
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrAlreadyQueued      = errors.New("participant already has a match")
)

// Recorder is told about match lifecycle changes. Calls are made while the
// manager lock may be held, so implementations must not block.
type Recorder interface {
	MatchCreated(id, rules string)
	MatchStatus(id, status string)
	MatchRemoved(id string)
}

type nopRecorder struct{}

func (nopRecorder) MatchCreated(string, string) {}
func (nopRecorder) MatchStatus(string, string)  {}
func (nopRecorder) MatchRemoved(string)         {}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder mirrors match lifecycle changes to r.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.rec = r }
}

// WithCoin replaces the random starting-side draw.
func WithCoin(c battleship.Coin) Option {
	return func(m *Manager) { m.coin = c }
}

// WithSendBuffer sets the per-participant outbound queue length.
func WithSendBuffer(n int) Option {
	return func(m *Manager) { m.sendBuffer = n }
}

// Manager is the match registry: live matches, the single waiting slot, and
// which match each connected participant belongs to.
//
// Lock order is mu, then a match's own lock, then peersMu. Matches deliver
// events through Deliver while holding their lock, so Deliver only takes
// peersMu.
type Manager struct {
	mu      sync.RWMutex
	rules   game.Rules
	matches map[string]*battleship.Match
	waiting string            // match id with room for a second participant
	routes  map[string]string // participant id -> match id

	peersMu sync.RWMutex
	peers   map[string]*Participant

	rec        Recorder
	coin       battleship.Coin
	sendBuffer int
}

// NewManager creates a registry that starts every match under rules.
func NewManager(rules game.Rules, opts ...Option) *Manager {
	m := &Manager{
		rules:      rules,
		matches:    make(map[string]*battleship.Match),
		routes:     make(map[string]string),
		peers:      make(map[string]*Participant),
		rec:        nopRecorder{},
		sendBuffer: 64,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rules returns the rules new matches are created with.
func (m *Manager) Rules() game.Rules {
	return m.rules
}

// Deliver implements battleship.Outbox.
func (m *Manager) Deliver(pid string, ev protocol.Event) {
	m.peersMu.RLock()
	p := m.peers[pid]
	m.peersMu.RUnlock()
	if p != nil {
		p.Send(ev)
	}
}

// Connect registers a new participant and greets it with its id.
func (m *Manager) Connect() *Participant {
	p := newParticipant(uuid.NewString(), m.sendBuffer)
	m.peersMu.Lock()
	m.peers[p.ID] = p
	m.peersMu.Unlock()
	p.Send(protocol.Connected{ParticipantID: p.ID})
	return p
}

// Participant returns a connected participant.
func (m *Manager) Participant(pid string) (*Participant, bool) {
	m.peersMu.RLock()
	defer m.peersMu.RUnlock()
	p, ok := m.peers[pid]
	return p, ok
}

// Assign pairs pid with the waiting match, or opens a new waiting match.
func (m *Manager) Assign(pid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Participant(pid); !ok {
		return "", ErrUnknownParticipant
	}
	if _, routed := m.routes[pid]; routed {
		return "", ErrAlreadyQueued
	}
	return m.assignLocked(pid)
}

func (m *Manager) assignLocked(pid string) (string, error) {
	var match *battleship.Match
	if w, ok := m.matches[m.waiting]; ok && w.HasRoom() {
		match = w
	} else {
		id := uuid.NewString()
		match = battleship.NewMatch(id, m.rules, m, m.coin)
		m.matches[id] = match
		m.rec.MatchCreated(id, m.rules.Name)
		log.Printf("match %s created", id)
	}
	if err := match.Join(pid); err != nil {
		return "", fmt.Errorf("join match %s: %w", match.ID(), err)
	}
	id := match.ID()
	m.routes[pid] = id
	if match.HasRoom() {
		m.waiting = id
	} else {
		m.waiting = ""
		m.rec.MatchStatus(id, string(match.Status()))
		log.Printf("match %s paired", id)
	}
	return id, nil
}

// Lookup returns a live match.
func (m *Manager) Lookup(matchID string) (*battleship.Match, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match, ok := m.matches[matchID]
	return match, ok
}

// MatchOf returns the match pid is currently routed to.
func (m *Manager) MatchOf(pid string) (*battleship.Match, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match, ok := m.matches[m.routes[pid]]
	return match, ok
}

// Destroy removes a match and unroutes its participants. Destroying an
// unknown id does nothing.
func (m *Manager) Destroy(matchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyLocked(matchID)
}

func (m *Manager) destroyLocked(matchID string) *battleship.Match {
	match, ok := m.matches[matchID]
	if !ok {
		return nil
	}
	match.Abandon()
	delete(m.matches, matchID)
	if m.waiting == matchID {
		m.waiting = ""
	}
	for _, pid := range match.Players() {
		if m.routes[pid] == matchID {
			delete(m.routes, pid)
		}
	}
	m.rec.MatchRemoved(matchID)
	log.Printf("match %s destroyed", matchID)
	return match
}

// Requeue tears down pid's current match, telling its opponent, and puts
// both back into matchmaking: the opponent first, then pid.
func (m *Manager) Requeue(pid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Participant(pid); !ok {
		return "", ErrUnknownParticipant
	}
	if prev, routed := m.routes[pid]; routed {
		if match := m.destroyLocked(prev); match != nil {
			if opp := match.Opponent(pid); opp != "" {
				m.Deliver(opp, protocol.OpponentLeft{})
				if _, connected := m.Participant(opp); connected {
					if _, err := m.assignLocked(opp); err != nil {
						log.Printf("requeue opponent %s: %v", opp, err)
					}
				}
			}
		}
	}
	return m.assignLocked(pid)
}

// Disconnect tells pid's opponent that it left, destroys the match and
// forgets pid. The participant's outbound queue is closed.
func (m *Manager) Disconnect(pid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.peersMu.Lock()
	p, ok := m.peers[pid]
	delete(m.peers, pid)
	m.peersMu.Unlock()
	if ok {
		p.close()
	}

	if matchID, routed := m.routes[pid]; routed {
		if match := m.destroyLocked(matchID); match != nil {
			if opp := match.Opponent(pid); opp != "" {
				m.Deliver(opp, protocol.OpponentLeft{})
			}
		}
	}
}

// RecordStatus mirrors a match's current status to the recorder.
func (m *Manager) RecordStatus(match *battleship.Match) {
	m.rec.MatchStatus(match.ID(), string(match.Status()))
}

// List returns info for all live matches, oldest first.
func (m *Manager) List() []battleship.Info {
	m.mu.RLock()
	infos := make([]battleship.Info, 0, len(m.matches))
	for _, match := range m.matches {
		infos = append(infos, match.Info())
	}
	m.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos
}

// MatchIDs returns the ids of all live matches.
func (m *Manager) MatchIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.matches))
	for id := range m.matches {
		ids = append(ids, id)
	}
	return ids
}

// Stats is a point-in-time count of registry contents.
type Stats struct {
	Participants int    `json:"participants"`
	Matches      int    `json:"matches"`
	Waiting      string `json:"waiting,omitempty"`
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	s := Stats{Matches: len(m.matches), Waiting: m.waiting}
	m.mu.RUnlock()
	m.peersMu.RLock()
	s.Participants = len(m.peers)
	m.peersMu.RUnlock()
	return s
}
