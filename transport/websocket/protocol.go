package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/game/session"
)

// Inbound event names.
const (
	EventChooseSide = "chooseSide"
	EventGiveUpSeat = "giveUpSeat"
	EventMakeMove   = "makeMove"
)

// Outbound event names. Replies to a single requester use the
// session.ReplyKind value as their event name.
const (
	EventGameState = "gameState"
	EventConnected = "connected"
	EventError     = "error"
)

var ErrUnknownEvent = errors.New("unknown event")

// Message is the envelope for every frame in both directions.
type Message struct {
	Event   string          `json:"event"`
	MatchID string          `json:"match_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// outbound is the encoding form of Message with an arbitrary payload.
type outbound struct {
	Event   string      `json:"event"`
	MatchID string      `json:"match_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ConnectedData is sent once right after the upgrade.
type ConnectedData struct {
	Participant engine.ParticipantID `json:"participant"`
	MatchID     string               `json:"match_id"`
}

type rejectionData struct {
	Reason string `json:"reason"`
}

// movePayload mirrors the client's makeMove body. pieceMovement is accepted
// for compatibility and ignored; the server keeps its own castling rights.
type movePayload struct {
	engine.MoveRequest
	PieceMovement json.RawMessage `json:"pieceMovement,omitempty"`
}

// DecodeEvent parses one inbound frame into a session event.
func DecodeEvent(data []byte) (session.Event, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch msg.Event {
	case EventChooseSide, EventGiveUpSeat:
		var c board.Color
		if err := json.Unmarshal(msg.Data, &c); err != nil {
			return nil, fmt.Errorf("%s: %w", msg.Event, err)
		}
		if msg.Event == EventChooseSide {
			return session.ClaimSeat{Color: c}, nil
		}
		return session.ReleaseSeat{Color: c}, nil

	case EventMakeMove:
		var p movePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", msg.Event, err)
		}
		return session.SubmitMove{Move: p.MoveRequest}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownEvent, msg.Event)
}

// replyMessage renders a direct reply the way the browser client expects:
// seat events carry the color, rejections carry the reason.
func replyMessage(matchID string, r session.Reply) outbound {
	msg := outbound{Event: string(r.Kind), MatchID: matchID}
	switch r.Kind {
	case session.ReplyMoveRejected:
		msg.Data = rejectionData{Reason: r.Reason}
	default:
		msg.Data = r.Color
	}
	return msg
}
