package engine

import (
	"encoding/json"

	"github.com/wricardo/livechess/game/board"
)

// ParticipantID is an opaque, session-scoped handle for a connected
// participant. The empty ID means "nobody".
type ParticipantID string

// MarshalJSON encodes the empty ID as null.
func (id ParticipantID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

func (id *ParticipantID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ParticipantID(s)
	return nil
}

// Seats maps each color to the participant holding it.
type Seats struct {
	White ParticipantID `json:"white"`
	Black ParticipantID `json:"black"`
}

// Holder returns the participant seated at c.
func (s Seats) Holder(c board.Color) ParticipantID {
	switch c {
	case board.White:
		return s.White
	case board.Black:
		return s.Black
	}
	return ""
}

// With returns a copy with c assigned to id. An empty id clears the seat.
func (s Seats) With(c board.Color, id ParticipantID) Seats {
	switch c {
	case board.White:
		s.White = id
	case board.Black:
		s.Black = id
	}
	return s
}

// ColorOf returns the color held by id, or NoColor.
func (s Seats) ColorOf(id ParticipantID) board.Color {
	switch {
	case id == "":
		return board.NoColor
	case s.White == id:
		return board.White
	case s.Black == id:
		return board.Black
	}
	return board.NoColor
}

// Full reports whether both seats are taken.
func (s Seats) Full() bool {
	return s.White != "" && s.Black != ""
}

// Count returns the number of occupied seats.
func (s Seats) Count() int {
	n := 0
	if s.White != "" {
		n++
	}
	if s.Black != "" {
		n++
	}
	return n
}

// Move is a committed (from, to) pair.
type Move struct {
	From board.Square `json:"from"`
	To   board.Square `json:"to"`
}

// Castling names the rook relocation that accompanies a castling king move.
type Castling struct {
	RookFrom board.Square `json:"rookFrom"`
	RookTo   board.Square `json:"rookTo"`
}

// CastlingRights records whether each castling piece has ever left its
// origin square. Flags only ever go from false to true.
type CastlingRights struct {
	WhiteKingMoved  bool `json:"whiteKingMoved"`
	BlackKingMoved  bool `json:"blackKingMoved"`
	WhiteRookAMoved bool `json:"whiteRookAMoved"`
	WhiteRookHMoved bool `json:"whiteRookHMoved"`
	BlackRookAMoved bool `json:"blackRookAMoved"`
	BlackRookHMoved bool `json:"blackRookHMoved"`
}

const (
	kingCol      = 4
	queenRookCol = 0
	kingRookCol  = 7
)

// KingMoved reports whether the king of color c has left its origin.
func (r CastlingRights) KingMoved(c board.Color) bool {
	if c == board.White {
		return r.WhiteKingMoved
	}
	return r.BlackKingMoved
}

// RookMoved reports whether the rook of color c that started on column col
// (0 or 7) has left its origin. Other columns report true.
func (r CastlingRights) RookMoved(c board.Color, col int) bool {
	switch {
	case c == board.White && col == queenRookCol:
		return r.WhiteRookAMoved
	case c == board.White && col == kingRookCol:
		return r.WhiteRookHMoved
	case c == board.Black && col == queenRookCol:
		return r.BlackRookAMoved
	case c == board.Black && col == kingRookCol:
		return r.BlackRookHMoved
	}
	return true
}

// touch marks the flag for sq if it is the origin of a castling piece. A
// piece leaving or being captured on an origin square means the original
// piece is gone from it.
func (r CastlingRights) touch(sq board.Square) CastlingRights {
	switch sq {
	case board.Sq(7, kingCol):
		r.WhiteKingMoved = true
	case board.Sq(7, queenRookCol):
		r.WhiteRookAMoved = true
	case board.Sq(7, kingRookCol):
		r.WhiteRookHMoved = true
	case board.Sq(0, kingCol):
		r.BlackKingMoved = true
	case board.Sq(0, queenRookCol):
		r.BlackRookAMoved = true
	case board.Sq(0, kingRookCol):
		r.BlackRookHMoved = true
	}
	return r
}

// MoveRequest is a proposed move together with the special-move flags the
// client declares.
type MoveRequest struct {
	From      board.Square `json:"from"`
	To        board.Square `json:"to"`
	EnPassant bool         `json:"isEnPassant,omitempty"`
	Promotion board.Kind   `json:"promotionPiece,omitempty"`
	Castling  *Castling    `json:"castling,omitempty"`
}

// GameState is the full authoritative state of one match.
type GameState struct {
	Board board.Board `json:"board"`
	Seats
	Turn      board.Color    `json:"currentTurn"`
	LastMove  *Move          `json:"lastMove"`
	Castling  CastlingRights `json:"pieceMovement"`
	Checkmate bool           `json:"isCheckmate"`
}

// NewGameState returns the opening position with empty seats and no turn.
func NewGameState() GameState {
	return GameState{Board: board.Standard()}
}
