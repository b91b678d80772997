package protocol

import "encoding/json"

// Outbound event kinds.
const (
	KindConnected          = "connected"
	KindWaitingForOpponent = "waiting-for-opponent"
	KindMatchReady         = "match-ready"
	KindPlacementAccepted  = "placement-accepted"
	KindPlacementRejected  = "placement-rejected"
	KindOpponentReady      = "opponent-ready"
	KindBothReady          = "both-ready"
	KindTurn               = "turn"
	KindShotResult         = "shot-result"
	KindIncomingFire       = "incoming-fire"
	KindGameOver           = "game-over"
	KindOpponentLeft       = "opponent-left"
	KindError              = "error"
)

// Error codes carried by the error event.
const (
	CodeBadRequest    = "bad-request"
	CodeNoSuchMatch   = "no-such-match"
	CodeNotStarted    = "not-started"
	CodeNotYourTurn   = "not-your-turn"
	CodeMatchFinished = "match-finished"
	CodeInvalidCell   = "invalid-cell"
	CodeAlreadyQueued = "already-queued"
	CodeInternal      = "internal"
)

// Event is a server message for one participant.
type Event interface {
	Kind() string
}

type Connected struct {
	ParticipantID string `json:"participantId"`
}

type WaitingForOpponent struct{}

type MatchReady struct {
	MatchID string `json:"matchId"`
}

type PlacementAccepted struct{}

type PlacementRejected struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type OpponentReady struct{}

type BothReady struct{}

type Turn struct {
	YourTurn bool `json:"yourTurn"`
}

// ShotResult is sent to the firer.
type ShotResult struct {
	Cell      int  `json:"cell"`
	Hit       bool `json:"hit"`
	YourTurn  bool `json:"yourTurn"`
	Repeat    bool `json:"repeat,omitempty"`
	Sunk      bool `json:"sunk,omitempty"`
	Remaining int  `json:"remaining"`
}

// IncomingFire mirrors a shot to the defender.
type IncomingFire struct {
	Cell      int  `json:"cell"`
	Hit       bool `json:"hit"`
	YourTurn  bool `json:"yourTurn"`
	Sunk      bool `json:"sunk,omitempty"`
	Remaining int  `json:"remaining"`
}

type GameOver struct {
	Winner string `json:"winner"`
	YouWon bool   `json:"youWon"`
}

type OpponentLeft struct{}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Connected) Kind() string          { return KindConnected }
func (WaitingForOpponent) Kind() string { return KindWaitingForOpponent }
func (MatchReady) Kind() string         { return KindMatchReady }
func (PlacementAccepted) Kind() string  { return KindPlacementAccepted }
func (PlacementRejected) Kind() string  { return KindPlacementRejected }
func (OpponentReady) Kind() string      { return KindOpponentReady }
func (BothReady) Kind() string          { return KindBothReady }
func (Turn) Kind() string               { return KindTurn }
func (ShotResult) Kind() string         { return KindShotResult }
func (IncomingFire) Kind() string       { return KindIncomingFire }
func (GameOver) Kind() string           { return KindGameOver }
func (OpponentLeft) Kind() string       { return KindOpponentLeft }
func (Error) Kind() string              { return KindError }

// Encode wraps an event in an Envelope.
func Encode(ev Event) ([]byte, error) {
	p, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: ev.Kind(), Payload: p})
}
