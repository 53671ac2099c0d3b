// Package board provides the chess board model.
//
// A Board is an 8x8 grid of optional pieces. Row 0 is the far rank from
// White's point of view, so White pawns advance toward row 0 and Black pawns
// toward row 7. Boards are plain values: PieceAt reads, while WithMove,
// WithCleared and WithPiece return modified copies. No legality checks are
// done here; the engine package decides which transitions are allowed.
//
// Squares travel on the wire as "row,col" strings and boards as rows of
// unicode glyphs, matching the format browser clients already speak.
//
// Usage:
//
//	b := board.Standard()
//	next := b.WithMove(board.Sq(6, 4), board.Sq(4, 4))
//	p, ok := next.PieceAt(board.Sq(4, 4)) // white pawn, true
package board
