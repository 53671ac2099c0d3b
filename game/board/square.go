package board

import (
	"fmt"
	"strconv"
	"strings"
)

// Square is a (row, col) coordinate. Row 0 is Black's back rank.
type Square struct {
	Row int
	Col int
}

// Sq is shorthand for Square{row, col}.
func Sq(row, col int) Square {
	return Square{Row: row, Col: col}
}

// Valid reports whether both coordinates are in [0,7].
func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// Offset returns the square shifted by (dr, dc). The result may be invalid.
func (s Square) Offset(dr, dc int) Square {
	return Square{Row: s.Row + dr, Col: s.Col + dc}
}

// String renders the wire form "row,col".
func (s Square) String() string {
	return strconv.Itoa(s.Row) + "," + strconv.Itoa(s.Col)
}

// ParseSquare parses the wire form "row,col".
func ParseSquare(s string) (Square, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Square{}, fmt.Errorf("invalid square %q: expected \"row,col\"", s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Square{}, fmt.Errorf("invalid square %q: %w", s, err)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Square{}, fmt.Errorf("invalid square %q: %w", s, err)
	}
	sq := Square{Row: row, Col: col}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("square %q out of range", s)
	}
	return sq, nil
}

func (s Square) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(text []byte) error {
	parsed, err := ParseSquare(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
