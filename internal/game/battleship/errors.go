package battleship

import (
	"errors"
	"fmt"
)

var (
	ErrNotInMatch       = errors.New("participant is not in this match")
	ErrMatchFull        = errors.New("match is full")
	ErrNotPaired        = errors.New("waiting for an opponent")
	ErrAlreadyCommitted = errors.New("placement already committed")
	ErrNotStarted       = errors.New("match has not started")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrCellOutOfRange   = errors.New("cell out of range")
	ErrMatchFinished    = errors.New("match is finished")
	ErrMatchClosed      = errors.New("no such match")
)

// Placement rejection reasons.
const (
	ReasonShipCount   = "ship-count"
	ReasonShipLength  = "ship-length"
	ReasonOutOfBounds = "out-of-bounds"
	ReasonOverlap     = "overlap"
	ReasonNotStraight = "not-straight"
	ReasonAdjacent    = "adjacent"
	ReasonCellCount   = "cell-count"
)

// PlacementError reports the first broken placement constraint.
type PlacementError struct {
	Reason string
	Ship   int // index of the offending ship, -1 when not ship specific
	Cell   int // offending cell, -1 when not cell specific
	msg    string
}

func (e *PlacementError) Error() string {
	return e.msg
}

func rejectf(reason string, ship, cell int, format string, args ...any) *PlacementError {
	return &PlacementError{Reason: reason, Ship: ship, Cell: cell, msg: fmt.Sprintf(format, args...)}
}
