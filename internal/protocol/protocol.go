// Package protocol defines the messages exchanged over a participant's
// websocket. Every message is an Envelope whose Type selects one of a
// closed set of intents (client to server) or events (server to client).
//
// Grid cells are always encoded as a single integer row*gridSize+col.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Envelope is the JSON frame for every websocket message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrMalformed wraps every Decode failure.
var ErrMalformed = errors.New("malformed message")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Inbound intent kinds.
const (
	KindJoin            = "join"
	KindCommitPlacement = "commit-placement"
	KindFire            = "fire"
	KindRequeue         = "requeue"
)

// Intent is a decoded client message.
type Intent interface {
	intent() string
}

// Join asks for matchmaking. It is implicit on connect.
type Join struct{}

// CommitPlacement submits a fleet: one group of cells per ship.
type CommitPlacement struct {
	Ships [][]int `json:"ships" validate:"required,min=1,dive,required,min=1,dive,gte=0"`
}

// Fire targets one cell of the opponent's board.
type Fire struct {
	Cell *int `json:"cell" validate:"required,gte=0"`
}

// Requeue leaves the current match and asks for a new one.
type Requeue struct{}

func (Join) intent() string            { return KindJoin }
func (CommitPlacement) intent() string { return KindCommitPlacement }
func (Fire) intent() string            { return KindFire }
func (Requeue) intent() string         { return KindRequeue }

// KindOf returns the wire type of an intent.
func KindOf(in Intent) string {
	return in.intent()
}

// Decode parses a raw frame into a validated intent.
func Decode(data []byte) (Intent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var in Intent
	switch env.Type {
	case KindJoin:
		in = &Join{}
	case KindCommitPlacement:
		in = &CommitPlacement{}
	case KindFire:
		in = &Fire{}
	case KindRequeue:
		in = &Requeue{}
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", ErrMalformed, env.Type)
	}
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, in); err != nil {
			return nil, fmt.Errorf("%w: invalid %s payload: %v", ErrMalformed, env.Type, err)
		}
	}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: invalid %s payload: %v", ErrMalformed, env.Type, err)
	}
	// Return values, not pointers, so callers switch on plain types.
	switch v := in.(type) {
	case *Join:
		return *v, nil
	case *CommitPlacement:
		return *v, nil
	case *Fire:
		return *v, nil
	default:
		return *in.(*Requeue), nil
	}
}

// EncodeIntent builds a frame for an intent. Clients and tests use it.
func EncodeIntent(in Intent) ([]byte, error) {
	p, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: in.intent(), Payload: p})
}
