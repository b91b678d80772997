package game

import (
	"errors"
	"fmt"
)

// TurnRule decides who fires next after a shot that does not end the match.
type TurnRule string

const (
	// HitAndContinue lets the firer keep the turn after a hit.
	HitAndContinue TurnRule = "hit-and-continue"
	// Alternate passes the turn after every shot.
	Alternate TurnRule = "alternate"
)

// Rules describes one variant of the game: grid, fleet and turn handling.
// The same Rules value applies to both participants of a match.
type Rules struct {
	Name       string   `json:"name"`
	GridSize   int      `json:"gridSize"`
	Fleet      []int    `json:"fleet"` // ship lengths, order irrelevant
	TurnRule   TurnRule `json:"turnRule"`
	NoTouching bool     `json:"noTouching"` // ships may not touch, diagonals included
}

// Classic is the default variant: 10x10, five ships, hit-and-continue.
func Classic() Rules {
	return Rules{
		Name:     "classic",
		GridSize: 10,
		Fleet:    []int{5, 4, 3, 3, 2},
		TurnRule: HitAndContinue,
	}
}

// ClassicStrict is Classic with the no-touching placement rule.
func ClassicStrict() Rules {
	r := Classic()
	r.Name = "classic-strict"
	r.NoTouching = true
	return r
}

// AlternateTurns is Classic with strict turn alternation.
func AlternateTurns() Rules {
	r := Classic()
	r.Name = "alternate"
	r.TurnRule = Alternate
	return r
}

// Cells is the number of cells on the grid.
func (r Rules) Cells() int {
	return r.GridSize * r.GridSize
}

// TotalShipCells is the sum of all ship lengths.
func (r Rules) TotalShipCells() int {
	total := 0
	for _, n := range r.Fleet {
		total += n
	}
	return total
}

// Validate reports whether the rules describe a playable game.
func (r Rules) Validate() error {
	if r.Name == "" {
		return errors.New("rules need a name")
	}
	if r.GridSize < 1 {
		return fmt.Errorf("grid size %d too small", r.GridSize)
	}
	if len(r.Fleet) == 0 {
		return errors.New("fleet is empty")
	}
	for _, n := range r.Fleet {
		if n < 1 || n > r.GridSize {
			return fmt.Errorf("ship length %d does not fit a %dx%d grid", n, r.GridSize, r.GridSize)
		}
	}
	if r.TotalShipCells() > r.Cells() {
		return fmt.Errorf("fleet needs %d cells, grid has %d", r.TotalShipCells(), r.Cells())
	}
	switch r.TurnRule {
	case HitAndContinue, Alternate:
	default:
		return fmt.Errorf("unknown turn rule %q", r.TurnRule)
	}
	return nil
}
