package service

import (
	"time"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/game/session"
)

// MatchInfo provides information about a match
type MatchInfo struct {
	ID           string            `json:"id"`
	Phase        session.Phase     `json:"phase"`
	Moves        int               `json:"moves"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	GameState    *engine.GameState `json:"game_state"`
}

// MoveInput is a move as submitted by a client. When InferFlags is set the
// en passant and castling flags are derived from the current board instead
// of taken from the request.
type MoveInput struct {
	engine.MoveRequest
	InferFlags bool `json:"infer_flags,omitempty"`
}

// ActionResult contains the result of a seat or move operation. Rejections
// are reported here with Success false rather than as an error.
type ActionResult struct {
	Success   bool              `json:"success"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	Reply     *session.Reply    `json:"reply,omitempty"`
	Phase     session.Phase     `json:"phase"`
	GameState *engine.GameState `json:"game_state"`
}

// MoveOption is one legal destination together with the flags a client
// must send to play it.
type MoveOption struct {
	To                board.Square     `json:"to"`
	EnPassant         bool             `json:"is_en_passant,omitempty"`
	Castling          *engine.Castling `json:"castling,omitempty"`
	RequiresPromotion bool             `json:"requires_promotion,omitempty"`
	Capture           bool             `json:"capture,omitempty"`
}

// LegalMovesResult lists where the piece on From may go
type LegalMovesResult struct {
	From  board.Square `json:"from"`
	Piece string       `json:"piece,omitempty"`
	Color board.Color  `json:"color,omitempty"`
	Turn  board.Color  `json:"turn"`
	Moves []MoveOption `json:"moves"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []session.HistoryEntry `json:"moves"`
	TotalMoves  int                    `json:"total_moves"`
	Page        int                    `json:"page"`
	PageSize    int                    `json:"page_size"`
	TotalPages  int                    `json:"total_pages"`
	HasNext     bool                   `json:"has_next"`
	HasPrevious bool                   `json:"has_previous"`
}
