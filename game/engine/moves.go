package engine

import "github.com/wricardo/livechess/game/board"

// LegalDestinations returns the squares the piece on from may move to.
//
// Sliding pieces stop at the first occupied square, including it when it
// holds an enemy. Pawns advance into empty squares, capture diagonally and
// capture en passant right after an adjacent two-square advance. King
// destinations, castling included, are dropped when the king would stand on
// an attacked square. Moves of other pieces are not checked for exposing
// their own king; see SafeDestinations for that.
func LegalDestinations(b board.Board, from board.Square, last *Move, rights CastlingRights) []board.Square {
	p, ok := b.PieceAt(from)
	if !ok {
		return nil
	}

	switch p.Kind {
	case board.Pawn:
		return pawnDestinations(b, from, p.Color, last)
	case board.Knight:
		return stepDestinations(b, from, p.Color, knightOffsets)
	case board.Bishop:
		return slideDestinations(b, from, p.Color, bishopDirs)
	case board.Rook:
		return slideDestinations(b, from, p.Color, rookDirs)
	case board.Queen:
		return slideDestinations(b, from, p.Color, queenDirs)
	case board.King:
		var out []board.Square
		for _, to := range stepDestinations(b, from, p.Color, kingOffsets) {
			if kingSafeAt(b, from, to, p.Color) {
				out = append(out, to)
			}
		}
		return append(out, castlingDestinations(b, from, p.Color, rights)...)
	}
	return nil
}

// SafeDestinations is LegalDestinations with every move that leaves the
// mover's own king attacked removed, whatever piece moves.
func SafeDestinations(b board.Board, from board.Square, last *Move, rights CastlingRights) []board.Square {
	p, ok := b.PieceAt(from)
	if !ok {
		return nil
	}
	var out []board.Square
	for _, to := range LegalDestinations(b, from, last, rights) {
		after := playDerived(b, p, from, to)
		if !InCheck(after, p.Color) {
			out = append(out, to)
		}
	}
	return out
}

func kingSafeAt(b board.Board, from, to board.Square, c board.Color) bool {
	return !AttacksSquare(b.WithMove(from, to), to, c.Opponent())
}

func isEnemy(b board.Board, sq board.Square, c board.Color) bool {
	p, ok := b.PieceAt(sq)
	return ok && p.Color != c
}

func isEmpty(b board.Board, sq board.Square) bool {
	_, ok := b.PieceAt(sq)
	return sq.Valid() && !ok
}

func stepDestinations(b board.Board, from board.Square, c board.Color, offsets []offset) []board.Square {
	var out []board.Square
	for _, o := range offsets {
		to := from.Offset(o.dr, o.dc)
		if isEmpty(b, to) || isEnemy(b, to, c) {
			out = append(out, to)
		}
	}
	return out
}

func slideDestinations(b board.Board, from board.Square, c board.Color, dirs []offset) []board.Square {
	var out []board.Square
	for _, d := range dirs {
		for to := from.Offset(d.dr, d.dc); to.Valid(); to = to.Offset(d.dr, d.dc) {
			if isEmpty(b, to) {
				out = append(out, to)
				continue
			}
			if isEnemy(b, to, c) {
				out = append(out, to)
			}
			break
		}
	}
	return out
}

func pawnDestinations(b board.Board, from board.Square, c board.Color, last *Move) []board.Square {
	var out []board.Square
	dir := c.Forward()

	one := from.Offset(dir, 0)
	if isEmpty(b, one) {
		out = append(out, one)
		two := from.Offset(2*dir, 0)
		if from.Row == c.HomeRow()+dir && isEmpty(b, two) {
			out = append(out, two)
		}
	}

	for _, dc := range []int{-1, 1} {
		if to := from.Offset(dir, dc); isEnemy(b, to, c) {
			out = append(out, to)
		}
	}

	if to, ok := enPassantTarget(b, from, c, last); ok {
		out = append(out, to)
	}
	return out
}

// enPassantTarget returns the square a pawn of color c on from may move to
// by capturing en passant, if last was an adjacent enemy two-square advance.
func enPassantTarget(b board.Board, from board.Square, c board.Color, last *Move) (board.Square, bool) {
	if last == nil {
		return board.Square{}, false
	}
	lp, ok := b.PieceAt(last.To)
	if !ok || lp != (board.Piece{Kind: board.Pawn, Color: c.Opponent()}) {
		return board.Square{}, false
	}
	if abs(last.From.Row-last.To.Row) != 2 || last.From.Col != last.To.Col {
		return board.Square{}, false
	}
	if last.To.Row != from.Row || abs(last.To.Col-from.Col) != 1 {
		return board.Square{}, false
	}
	to := board.Sq(from.Row+c.Forward(), last.To.Col)
	if !isEmpty(b, to) {
		return board.Square{}, false
	}
	return to, true
}

type castleSide struct {
	rookCol int
	kingTo  int
	rookTo  int
	between []int
}

var castleSides = []castleSide{
	{rookCol: kingRookCol, kingTo: 6, rookTo: 5, between: []int{5, 6}},
	{rookCol: queenRookCol, kingTo: 2, rookTo: 3, between: []int{1, 2, 3}},
}

func castlingDestinations(b board.Board, from board.Square, c board.Color, rights CastlingRights) []board.Square {
	home := c.HomeRow()
	if from != board.Sq(home, kingCol) || rights.KingMoved(c) {
		return nil
	}
	if AttacksSquare(b, from, c.Opponent()) {
		return nil
	}

	var out []board.Square
	for _, side := range castleSides {
		if rights.RookMoved(c, side.rookCol) {
			continue
		}
		if p, ok := b.PieceAt(board.Sq(home, side.rookCol)); !ok || p != (board.Piece{Kind: board.Rook, Color: c}) {
			continue
		}
		clear := true
		for _, col := range side.between {
			if !isEmpty(b, board.Sq(home, col)) {
				clear = false
				break
			}
		}
		if !clear {
			continue
		}
		// The king may not pass through or land on an attacked square.
		transit := board.Sq(home, (kingCol+side.kingTo)/2)
		dest := board.Sq(home, side.kingTo)
		if !kingSafeAt(b, from, transit, c) || !kingSafeAt(b, from, dest, c) {
			continue
		}
		out = append(out, dest)
	}
	return out
}

// castlingFor returns the rook relocation implied by a king move from -> to,
// if that move is a castling move.
func castlingFor(p board.Piece, from, to board.Square) (Castling, bool) {
	home := p.Color.HomeRow()
	if p.Kind != board.King || from != board.Sq(home, kingCol) || to.Row != home {
		return Castling{}, false
	}
	for _, side := range castleSides {
		if to.Col == side.kingTo {
			return Castling{
				RookFrom: board.Sq(home, side.rookCol),
				RookTo:   board.Sq(home, side.rookTo),
			}, true
		}
	}
	return Castling{}, false
}

func containsSquare(squares []board.Square, sq board.Square) bool {
	for _, s := range squares {
		if s == sq {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
