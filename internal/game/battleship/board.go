package battleship

type mark uint8

const (
	unshot mark = iota
	markHit
	markMiss
)

// Board is one participant's committed fleet plus the opponent's fire
// against it. Hits and misses are append-only and disjoint.
type Board struct {
	gridSize int
	owner    []int // ship index + 1 per cell, 0 for water
	shipLen  []int
	shipHits []int
	marks    []mark
	hits     int
	misses   int
	total    int
}

// Outcome is the result of one shot against a Board.
type Outcome struct {
	Hit    bool
	Sunk   bool // the hit completed a ship
	Repeat bool // the cell had already been fired upon; nothing changed
}

// NewBoard builds a fresh board from a validated placement.
func NewBoard(p *Placement) *Board {
	cells := p.gridSize * p.gridSize
	b := &Board{
		gridSize: p.gridSize,
		owner:    make([]int, cells),
		shipLen:  make([]int, len(p.ships)),
		shipHits: make([]int, len(p.ships)),
		marks:    make([]mark, cells),
	}
	for i, ship := range p.ships {
		b.shipLen[i] = len(ship)
		b.total += len(ship)
		for _, c := range ship {
			b.owner[c] = i + 1
		}
	}
	return b
}

// Shoot records a shot at cell. Shooting a cell twice returns the first
// result with Repeat set and leaves the board untouched.
func (b *Board) Shoot(cell int) (Outcome, error) {
	if cell < 0 || cell >= len(b.marks) {
		return Outcome{}, ErrCellOutOfRange
	}
	switch b.marks[cell] {
	case markHit:
		return Outcome{Hit: true, Repeat: true}, nil
	case markMiss:
		return Outcome{Repeat: true}, nil
	}

	ship := b.owner[cell]
	if ship == 0 {
		b.marks[cell] = markMiss
		b.misses++
		return Outcome{}, nil
	}
	b.marks[cell] = markHit
	b.hits++
	b.shipHits[ship-1]++
	return Outcome{Hit: true, Sunk: b.shipHits[ship-1] == b.shipLen[ship-1]}, nil
}

// Remaining is the number of ship cells not yet hit.
func (b *Board) Remaining() int {
	return b.total - b.hits
}

// Hits returns the hit cells in ascending order.
func (b *Board) Hits() []int {
	return b.collect(markHit, b.hits)
}

// Misses returns the missed cells in ascending order.
func (b *Board) Misses() []int {
	return b.collect(markMiss, b.misses)
}

func (b *Board) collect(m mark, n int) []int {
	out := make([]int, 0, n)
	for c, v := range b.marks {
		if v == m {
			out = append(out, c)
		}
	}
	return out
}
