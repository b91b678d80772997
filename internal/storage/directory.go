package storage

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

type opKind int

const (
	opCreate opKind = iota
	opStatus
	opRemove
	opFlush
)

type op struct {
	kind   opKind
	id     string
	rules  string
	status string
	done   chan struct{}
}

// Directory mirrors live matches into the Store from a single writer
// goroutine. Its methods never block, so they may be called while holding
// registry or match locks. Operations apply in the order they were queued.
type Directory struct {
	store *Store
	ops   chan op
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewDirectory starts the writer goroutine.
func NewDirectory(store *Store, buffer int) *Directory {
	d := &Directory{
		store: store,
		ops:   make(chan op, buffer),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Directory) MatchCreated(id, rules string) {
	d.enqueue(op{kind: opCreate, id: id, rules: rules})
}

func (d *Directory) MatchStatus(id, status string) {
	d.enqueue(op{kind: opStatus, id: id, status: status})
}

func (d *Directory) MatchRemoved(id string) {
	d.enqueue(op{kind: opRemove, id: id})
}

func (d *Directory) enqueue(o op) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.ops <- o:
		return true
	default:
		log.Printf("directory queue full, dropping update for match %s", o.id)
		return false
	}
}

// Flush waits until every operation queued before it has been applied.
func (d *Directory) Flush() {
	o := op{kind: opFlush, done: make(chan struct{})}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	// Blocking send: a flush must not be dropped.
	d.ops <- o
	d.mu.Unlock()
	<-o.done
}

// Close applies queued operations and stops the writer.
func (d *Directory) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.ops)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Directory) run() {
	defer close(d.done)
	for o := range d.ops {
		var err error
		switch o.kind {
		case opCreate:
			err = d.store.CreateMatch(o.id, o.rules)
		case opStatus:
			err = d.store.UpdateMatchStatus(o.id, o.status)
		case opRemove:
			err = d.store.DeleteMatch(o.id)
		case opFlush:
			close(o.done)
		}
		if err != nil {
			log.Printf("directory: match %s: %v", o.id, err)
		}
	}
}

// Reconcile deletes rows whose matches are no longer live and reports how
// many were removed.
func (d *Directory) Reconcile(live func() []string) (int, error) {
	rows, err := d.store.ListMatches("")
	if err != nil {
		return 0, err
	}
	alive := make(map[string]bool)
	for _, id := range live() {
		alive[id] = true
	}
	removed := 0
	var oldest time.Time
	for _, row := range rows {
		if alive[row.ID] {
			continue
		}
		if err := d.store.DeleteMatch(row.ID); err != nil {
			return removed, err
		}
		removed++
		if oldest.IsZero() || row.CreatedAt.Before(oldest) {
			oldest = row.CreatedAt
		}
	}
	if removed > 0 {
		log.Printf("directory: removed %d stale matches, oldest created %s", removed, humanize.Time(oldest))
	}
	return removed, nil
}

// ReconcileLoop runs Reconcile every interval until ctx is done.
func (d *Directory) ReconcileLoop(ctx context.Context, interval time.Duration, live func() []string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Reconcile(live); err != nil {
				log.Printf("directory reconcile: %v", err)
			}
		}
	}
}
