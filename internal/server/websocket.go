package server

import (
	"errors"
	"log"
	"net/http"

	"nhooyr.io/websocket"

	"battleship/internal/game/battleship"
	"battleship/internal/protocol"
	"battleship/internal/session"
)

// handleWebSocket is the session gateway for one connection: it registers a
// participant, puts it into matchmaking and dispatches its intents until the
// connection closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		log.Printf("websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	p := s.manager.Connect()
	log.Printf("participant %s connected", p.ID)

	// Writer goroutine: send queued frames to the websocket
	go func() {
		for msg := range p.Outbound() {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	s.handleJoin(p)

	// Reader loop: handle incoming intents
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		s.handleIntent(p, data)
	}

	s.manager.Disconnect(p.ID)
	log.Printf("participant %s disconnected", p.ID)
}

func (s *Server) handleIntent(p *session.Participant, data []byte) {
	in, err := protocol.Decode(data)
	if err != nil {
		p.Send(protocol.Error{Code: protocol.CodeBadRequest, Message: err.Error()})
		return
	}
	switch in := in.(type) {
	case protocol.Join:
		s.handleJoin(p)
	case protocol.CommitPlacement:
		s.handleCommit(p, in)
	case protocol.Fire:
		s.handleFire(p, *in.Cell)
	case protocol.Requeue:
		s.handleRequeue(p)
	}
}

func (s *Server) handleJoin(p *session.Participant) {
	if _, err := s.manager.Assign(p.ID); err != nil {
		sendError(p, err)
	}
}

func (s *Server) handleCommit(p *session.Participant, in protocol.CommitPlacement) {
	match, ok := s.manager.MatchOf(p.ID)
	if !ok {
		sendError(p, battleship.ErrMatchClosed)
		return
	}
	placement, err := battleship.Validate(in.Ships, match.Rules())
	if err == nil {
		err = match.Commit(p.ID, placement)
	}
	if err != nil {
		sendError(p, err)
		return
	}
	s.manager.RecordStatus(match)
}

func (s *Server) handleFire(p *session.Participant, cell int) {
	match, ok := s.manager.MatchOf(p.ID)
	if !ok {
		sendError(p, battleship.ErrMatchClosed)
		return
	}
	shot, err := match.Fire(p.ID, cell)
	if err != nil {
		sendError(p, err)
		return
	}
	if shot.Winner != "" {
		s.manager.RecordStatus(match)
	}
}

func (s *Server) handleRequeue(p *session.Participant) {
	if _, err := s.manager.Requeue(p.ID); err != nil {
		sendError(p, err)
	}
}

// sendError answers the sender only. Placement problems become
// placement-rejected; everything else is an error event.
func sendError(p *session.Participant, err error) {
	var pe *battleship.PlacementError
	switch {
	case errors.As(err, &pe):
		p.Send(protocol.PlacementRejected{Reason: pe.Reason, Message: pe.Error()})
	case errors.Is(err, battleship.ErrAlreadyCommitted):
		p.Send(protocol.PlacementRejected{Reason: "already-committed", Message: err.Error()})
	default:
		p.Send(protocol.Error{Code: errorCode(err), Message: err.Error()})
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, battleship.ErrMatchClosed), errors.Is(err, battleship.ErrNotInMatch):
		return protocol.CodeNoSuchMatch
	case errors.Is(err, battleship.ErrMatchFinished):
		return protocol.CodeMatchFinished
	case errors.Is(err, battleship.ErrNotStarted), errors.Is(err, battleship.ErrNotPaired):
		return protocol.CodeNotStarted
	case errors.Is(err, battleship.ErrNotYourTurn):
		return protocol.CodeNotYourTurn
	case errors.Is(err, battleship.ErrCellOutOfRange):
		return protocol.CodeInvalidCell
	case errors.Is(err, session.ErrAlreadyQueued):
		return protocol.CodeAlreadyQueued
	}
	log.Printf("unexpected gateway error: %v", err)
	return protocol.CodeInternal
}
