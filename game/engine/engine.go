package engine

import "github.com/wricardo/livechess/game/board"

// Rules validates and applies moves. With the zero value only king moves
// are checked for walking into check.
type Rules struct {
	// StrictSelfCheck also rejects moves by other pieces that leave the
	// mover's own king attacked.
	StrictSelfCheck bool `yaml:"strict_self_check" json:"strict_self_check"`
}

// Destinations returns the destinations for the piece on from under these
// rules.
func (r Rules) Destinations(state GameState, from board.Square) []board.Square {
	if r.StrictSelfCheck {
		return SafeDestinations(state.Board, from, state.LastMove, state.Castling)
	}
	return LegalDestinations(state.Board, from, state.LastMove, state.Castling)
}

// ValidateAndApply checks req against state and returns the resulting
// state. The input is never modified; on error the zero GameState is
// returned together with a *MoveError.
//
// Special-move flags must agree with the board: declaring en passant,
// castling or a promotion piece for a move that is not one, or omitting
// them for a move that is, is an illegal destination.
func (r Rules) ValidateAndApply(state GameState, req MoveRequest) (GameState, error) {
	if !req.From.Valid() || !req.To.Valid() {
		return GameState{}, illegal(req, "square off the board")
	}
	p, ok := state.Board.PieceAt(req.From)
	if !ok {
		return GameState{}, illegal(req, "no piece on origin square")
	}
	if state.Turn == board.NoColor {
		return GameState{}, outOfTurn(req, "no active turn")
	}
	if p.Color != state.Turn {
		return GameState{}, outOfTurn(req, "piece belongs to "+p.Color.String())
	}

	if !containsSquare(r.Destinations(state, req.From), req.To) {
		return GameState{}, illegal(req, "destination not reachable")
	}

	enPassant := isEnPassant(state.Board, p, req.From, req.To)
	if req.EnPassant != enPassant {
		return GameState{}, illegal(req, "en passant flag does not match the board")
	}

	castle, castles := castlingFor(p, req.From, req.To)
	switch {
	case castles && req.Castling == nil:
		return GameState{}, illegal(req, "castling move without rook relocation")
	case castles && *req.Castling != castle:
		return GameState{}, illegal(req, "castling rook squares do not match")
	case !castles && req.Castling != nil:
		return GameState{}, illegal(req, "castling requested for a non-castling move")
	}

	promotes := p.Kind == board.Pawn && req.To.Row == p.Color.PromotionRow()
	switch {
	case promotes && !req.Promotion.IsPromotion():
		return GameState{}, illegal(req, "pawn reaching the last rank needs a promotion piece")
	case !promotes && req.Promotion != board.NoKind:
		return GameState{}, illegal(req, "promotion is only allowed for a pawn reaching the last rank")
	}

	next := state
	next.Board = play(state.Board, p, req.From, req.To, enPassant, req.Castling, req.Promotion)
	next.Castling = state.Castling.touch(req.From).touch(req.To)
	if req.Castling != nil {
		next.Castling = next.Castling.touch(req.Castling.RookFrom)
	}
	next.LastMove = &Move{From: req.From, To: req.To}
	next.Turn = state.Turn.Opponent()
	return next, nil
}

// IsCheckmate reports whether the side to move is in check and no move of
// any of its pieces gets the king out of check. Every piece is filtered for
// self-check here, regardless of StrictSelfCheck.
func IsCheckmate(state GameState) bool {
	c := state.Turn
	if c == board.NoColor || !InCheck(state.Board, c) {
		return false
	}
	for _, sq := range state.Board.Squares(c) {
		if len(SafeDestinations(state.Board, sq, state.LastMove, state.Castling)) > 0 {
			return false
		}
	}
	return true
}

// RequestFor builds the request for from -> to with the special-move flags
// the board implies. promotion is kept only when the move promotes a pawn.
func RequestFor(b board.Board, from, to board.Square, promotion board.Kind) MoveRequest {
	req := MoveRequest{From: from, To: to}
	p, ok := b.PieceAt(from)
	if !ok {
		return req
	}
	req.EnPassant = isEnPassant(b, p, from, to)
	if c, ok := castlingFor(p, from, to); ok {
		req.Castling = &c
	}
	if p.Kind == board.Pawn && to.Row == p.Color.PromotionRow() {
		req.Promotion = promotion
	}
	return req
}

func isEnPassant(b board.Board, p board.Piece, from, to board.Square) bool {
	_, occupied := b.PieceAt(to)
	return p.Kind == board.Pawn && from.Col != to.Col && !occupied
}

// play relocates p and performs the side effects of the move. The moved
// piece is replaced when promotion names a kind.
func play(b board.Board, p board.Piece, from, to board.Square, enPassant bool, castle *Castling, promotion board.Kind) board.Board {
	next := b.WithMove(from, to)
	if castle != nil {
		next = next.WithMove(castle.RookFrom, castle.RookTo)
	}
	if promotion != board.NoKind {
		next = next.WithPiece(to, board.Piece{Kind: promotion, Color: p.Color})
	}
	if enPassant {
		// The captured pawn sits beside the origin, one row behind to.
		next = next.WithCleared(board.Sq(from.Row, to.Col))
	}
	return next
}

// playDerived plays from -> to deriving en passant and castling from the
// board instead of client flags.
func playDerived(b board.Board, p board.Piece, from, to board.Square) board.Board {
	var castle *Castling
	if c, ok := castlingFor(p, from, to); ok {
		castle = &c
	}
	return play(b, p, from, to, isEnPassant(b, p, from, to), castle, board.NoKind)
}
