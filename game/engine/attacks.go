package engine

import "github.com/wricardo/livechess/game/board"

type offset struct{ dr, dc int }

var (
	rookDirs   = []offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	bishopDirs = []offset{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	queenDirs  = append(append([]offset{}, rookDirs...), bishopDirs...)

	knightOffsets = []offset{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingOffsets   = queenDirs
)

// AttacksSquare reports whether any piece of color by could reach target in
// one geometrically valid move. Turn order and the attacker's own king
// safety are ignored.
func AttacksSquare(b board.Board, target board.Square, by board.Color) bool {
	// A pawn attacks diagonally forward, so it sits one row behind target
	// relative to its own direction of travel.
	for _, dc := range []int{-1, 1} {
		if p, ok := b.PieceAt(target.Offset(-by.Forward(), dc)); ok && p == (board.Piece{Kind: board.Pawn, Color: by}) {
			return true
		}
	}

	for _, o := range knightOffsets {
		if p, ok := b.PieceAt(target.Offset(o.dr, o.dc)); ok && p == (board.Piece{Kind: board.Knight, Color: by}) {
			return true
		}
	}

	if sweepHits(b, target, by, rookDirs, board.Rook) {
		return true
	}
	return sweepHits(b, target, by, bishopDirs, board.Bishop)
}

// sweepHits walks outward from target along dirs and tests only the first
// piece met in each direction: slider (or queen) at any distance, king at
// distance one.
func sweepHits(b board.Board, target board.Square, by board.Color, dirs []offset, slider board.Kind) bool {
	for _, d := range dirs {
		sq := target.Offset(d.dr, d.dc)
		for dist := 1; sq.Valid(); dist++ {
			p, ok := b.PieceAt(sq)
			if !ok {
				sq = sq.Offset(d.dr, d.dc)
				continue
			}
			if p.Color == by {
				if p.Kind == slider || p.Kind == board.Queen {
					return true
				}
				if p.Kind == board.King && dist == 1 {
					return true
				}
			}
			break
		}
	}
	return false
}

// InCheck reports whether the king of color c is attacked. A side without a
// king is never in check.
func InCheck(b board.Board, c board.Color) bool {
	k, ok := b.Find(board.Piece{Kind: board.King, Color: c})
	if !ok {
		return false
	}
	return AttacksSquare(b, k, c.Opponent())
}
