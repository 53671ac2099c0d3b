// Package engine implements the chess rules used by a live match.
//
// The engine package implements:
//   - Attack detection for any square and color
//   - Legal destination generation, including castling and en passant
//   - Move validation and application with promotion
//   - Castling rights tracking and checkmate detection
//
// Core Types:
//
// GameState is the full authoritative state of a match: board, seats, side
// to move, last move and castling rights. MoveRequest is a proposed move with
// the special-move flags a client declares. Rules selects how strictly moves
// are checked for exposing the mover's own king.
//
// Purity:
//
// Every function here is a pure function of its arguments. ValidateAndApply
// returns a new GameState and never touches the one it was given, so callers
// commit the result only when it succeeds.
//
// Usage:
//
//	state := engine.NewGameState()
//	state.Turn = board.White
//
//	next, err := engine.Rules{StrictSelfCheck: true}.ValidateAndApply(state, engine.MoveRequest{
//		From: board.Sq(6, 4),
//		To:   board.Sq(4, 4),
//	})
//	if errors.Is(err, engine.ErrIllegalDestination) {
//		// rejected, state unchanged
//	}
//
// King Safety:
//
// King destinations are always filtered against squares the opponent
// attacks. With the zero Rules other pieces are not, so a pinned piece may
// still move. StrictSelfCheck closes that gap. IsCheckmate filters every
// piece regardless of Rules.
package engine
