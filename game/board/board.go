package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Size is the number of rows and columns.
const Size = 8

// StandardPlacement is the FEN placement of the opening position.
const StandardPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// Board is an 8x8 grid of optional pieces. It is a value type: every
// With* method returns a modified copy and leaves the receiver untouched.
type Board [Size][Size]Piece

// Standard returns the opening position.
func Standard() Board {
	b, err := ParsePlacement(StandardPlacement)
	if err != nil {
		panic(err)
	}
	return b
}

// PieceAt returns the piece on sq and whether the square is occupied.
// Squares off the board are reported empty.
func (b Board) PieceAt(sq Square) (Piece, bool) {
	if !sq.Valid() {
		return Piece{}, false
	}
	p := b[sq.Row][sq.Col]
	return p, !p.IsEmpty()
}

// WithMove relocates the piece on from to to, discarding whatever was on to.
func (b Board) WithMove(from, to Square) Board {
	p := b[from.Row][from.Col]
	b[from.Row][from.Col] = Piece{}
	b[to.Row][to.Col] = p
	return b
}

// WithCleared empties sq.
func (b Board) WithCleared(sq Square) Board {
	b[sq.Row][sq.Col] = Piece{}
	return b
}

// WithPiece places p on sq.
func (b Board) WithPiece(sq Square, p Piece) Board {
	b[sq.Row][sq.Col] = p
	return b
}

// Find returns the first square holding p, scanning row by row.
func (b Board) Find(p Piece) (Square, bool) {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == p {
				return Sq(r, c), true
			}
		}
	}
	return Square{}, false
}

// Squares returns the squares occupied by pieces of color c.
func (b Board) Squares(c Color) []Square {
	var out []Square
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			if p := b[r][col]; !p.IsEmpty() && p.Color == c {
				out = append(out, Sq(r, col))
			}
		}
	}
	return out
}

// ParsePlacement parses the piece-placement field of a FEN string.
// The first rank listed (rank 8) becomes row 0.
func ParsePlacement(placement string) (Board, error) {
	var b Board
	ranks := strings.Split(strings.TrimSpace(placement), "/")
	if len(ranks) != Size {
		return b, fmt.Errorf("invalid placement: expected 8 ranks, got %d", len(ranks))
	}

	for r, rank := range ranks {
		col := 0
		for i := 0; i < len(rank); i++ {
			ch := rank[i]
			if ch >= '1' && ch <= '8' {
				col += int(ch - '0')
				continue
			}
			p, ok := fenPieces[ch]
			if !ok {
				return b, fmt.Errorf("invalid placement: unknown piece %q in rank %d", ch, r+1)
			}
			if col >= Size {
				return b, fmt.Errorf("invalid placement: too many pieces in rank %d", r+1)
			}
			b[r][col] = p
			col++
		}
		if col != Size {
			return b, fmt.Errorf("invalid placement: rank %d has %d files", r+1, col)
		}
	}

	return b, nil
}

// Placement renders the board as a FEN piece-placement field.
func (b Board) Placement() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for c := 0; c < Size; c++ {
			p := b[r][c]
			if p.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.FEN())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
	}
	return sb.String()
}

// String renders an ASCII diagram with row and column indices.
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("  0 1 2 3 4 5 6 7\n")
	for r := 0; r < Size; r++ {
		sb.WriteString(fmt.Sprintf("%d ", r))
		for c := 0; c < Size; c++ {
			if p := b[r][c]; p.IsEmpty() {
				sb.WriteString(". ")
			} else {
				sb.WriteString(fmt.Sprintf("%c ", p.FEN()))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// MarshalJSON encodes the board as rows of glyph strings, "" for empty.
func (b Board) MarshalJSON() ([]byte, error) {
	rows := make([][]string, Size)
	for r := 0; r < Size; r++ {
		rows[r] = make([]string, Size)
		for c := 0; c < Size; c++ {
			rows[r][c] = b[r][c].Glyph()
		}
	}
	return json.Marshal(rows)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != Size {
		return fmt.Errorf("invalid board: expected 8 rows, got %d", len(rows))
	}
	var out Board
	for r, row := range rows {
		if len(row) != Size {
			return fmt.Errorf("invalid board: row %d has %d columns", r, len(row))
		}
		for c, glyph := range row {
			if glyph == "" {
				continue
			}
			p, ok := glyphPieces[glyph]
			if !ok {
				return fmt.Errorf("invalid board: unknown glyph %q at %d,%d", glyph, r, c)
			}
			out[r][c] = p
		}
	}
	*b = out
	return nil
}
