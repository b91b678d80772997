package battleship

import "battleship/internal/game"

// Cell converts a row and column to the canonical cell index.
func Cell(row, col, gridSize int) int {
	return row*gridSize + col
}

// RowCol splits a canonical cell index.
func RowCol(cell, gridSize int) (row, col int) {
	return cell / gridSize, cell % gridSize
}

// Placement is a validated fleet layout. It is never modified after
// Validate returns it.
type Placement struct {
	gridSize int
	ships    [][]int
}

// Ships returns a copy of the ship cell groups.
func (p *Placement) Ships() [][]int {
	out := make([][]int, len(p.ships))
	for i, s := range p.ships {
		out[i] = append([]int(nil), s...)
	}
	return out
}

// Validate checks a claimed fleet against the rules. Every constraint is
// checked before a Placement is returned; the first violation found is
// reported as a *PlacementError. Runs in time linear in the number of cells
// submitted plus the grid area.
func Validate(ships [][]int, rules game.Rules) (*Placement, error) {
	if len(ships) != len(rules.Fleet) {
		return nil, rejectf(ReasonShipCount, -1, -1,
			"expected %d ships, got %d", len(rules.Fleet), len(ships))
	}

	want := make(map[int]int, len(rules.Fleet))
	for _, n := range rules.Fleet {
		want[n]++
	}
	flat := 0
	for i, ship := range ships {
		if want[len(ship)] == 0 {
			return nil, rejectf(ReasonShipLength, i, -1,
				"ship %d has length %d, which the fleet does not need", i, len(ship))
		}
		want[len(ship)]--
		flat += len(ship)
	}
	if flat != rules.TotalShipCells() {
		return nil, rejectf(ReasonCellCount, -1, -1,
			"expected %d ship cells, got %d", rules.TotalShipCells(), flat)
	}

	size := rules.GridSize
	cells := rules.Cells()
	owner := make([]int, cells) // ship index + 1, 0 for water
	for i, ship := range ships {
		for _, c := range ship {
			if c < 0 || c >= cells {
				return nil, rejectf(ReasonOutOfBounds, i, c,
					"cell %d of ship %d is outside the %dx%d grid", c, i, size, size)
			}
			if owner[c] != 0 {
				return nil, rejectf(ReasonOverlap, i, c, "cell %d is used twice", c)
			}
			owner[c] = i + 1
		}
	}

	for i, ship := range ships {
		if !straight(ship, size) {
			return nil, rejectf(ReasonNotStraight, i, -1,
				"ship %d is not a straight unbroken line", i)
		}
	}

	if rules.NoTouching {
		for i, ship := range ships {
			for _, c := range ship {
				if n, ok := touching(owner, c, size); ok {
					return nil, rejectf(ReasonAdjacent, i, c,
						"ship %d touches another ship at cell %d", i, n)
				}
			}
		}
	}

	p := &Placement{gridSize: size, ships: make([][]int, len(ships))}
	for i, ship := range ships {
		p.ships[i] = append([]int(nil), ship...)
	}
	return p, nil
}

// straight reports whether the cells form one horizontal or vertical run.
// Cells are known to be distinct and in bounds.
func straight(ship []int, size int) bool {
	r0, c0 := RowCol(ship[0], size)
	minR, maxR, minC, maxC := r0, r0, c0, c0
	sameRow, sameCol := true, true
	for _, cell := range ship[1:] {
		r, c := RowCol(cell, size)
		sameRow = sameRow && r == r0
		sameCol = sameCol && c == c0
		minR, maxR = min(minR, r), max(maxR, r)
		minC, maxC = min(minC, c), max(maxC, c)
	}
	span := len(ship) - 1
	switch {
	case sameRow:
		return maxC-minC == span
	case sameCol:
		return maxR-minR == span
	}
	return false
}

// touching returns a neighbouring cell, diagonals included, that belongs to
// a different ship than cell.
func touching(owner []int, cell, size int) (int, bool) {
	r, c := RowCol(cell, size)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			nr, nc := r+dr, c+dc
			if nr < 0 || nc < 0 || nr >= size || nc >= size {
				continue
			}
			n := Cell(nr, nc, size)
			if owner[n] != 0 && owner[n] != owner[cell] {
				return n, true
			}
		}
	}
	return 0, false
}
