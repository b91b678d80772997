package session

import (
	"log"
	"sync"
	"time"

	"battleship/internal/protocol"
)

// Participant is one live connection. Its identity is only valid while the
// connection is open.
type Participant struct {
	ID          string
	ConnectedAt time.Time

	mu     sync.Mutex
	send   chan []byte // outbound frames, drained by the connection writer
	closed bool
}

func newParticipant(id string, buffer int) *Participant {
	return &Participant{
		ID:          id,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, buffer),
	}
}

// Outbound returns the frame queue. It is closed on disconnect.
func (p *Participant) Outbound() <-chan []byte {
	return p.send
}

// Send queues an event without blocking. It reports false if the event was
// dropped because the queue is full or the participant is gone.
func (p *Participant) Send(ev protocol.Event) bool {
	msg, err := protocol.Encode(ev)
	if err != nil {
		log.Printf("encode %s for %s: %v", ev.Kind(), p.ID, err)
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.send <- msg:
		return true
	default:
		log.Printf("dropping %s for %s: send buffer full", ev.Kind(), p.ID)
		return false
	}
}

func (p *Participant) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}
