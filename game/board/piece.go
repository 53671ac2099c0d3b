package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color identifies a side. The zero value NoColor means "no side".
type Color int8

const (
	NoColor Color = iota
	White
	Black
)

// Opponent returns the other side. NoColor has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// Forward is the row delta a pawn of this color advances by.
func (c Color) Forward() int {
	if c == White {
		return -1
	}
	return 1
}

// HomeRow is the back rank of the color.
func (c Color) HomeRow() int {
	if c == White {
		return 7
	}
	return 0
}

// PromotionRow is the far rank a pawn of this color promotes on.
func (c Color) PromotionRow() int {
	return c.Opponent().HomeRow()
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// ParseColor accepts "white"/"w" and "black"/"b" in any case.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return NoColor, fmt.Errorf("invalid color %q", s)
}

// MarshalJSON encodes NoColor as null.
func (c Color) MarshalJSON() ([]byte, error) {
	if c == NoColor {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = NoColor
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Kind is a piece type.
type Kind int8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = map[Kind]string{
	Pawn:   "pawn",
	Knight: "knight",
	Bishop: "bishop",
	Rook:   "rook",
	Queen:  "queen",
	King:   "king",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "none"
}

// IsPromotion reports whether a pawn may promote to k.
func (k Kind) IsPromotion() bool {
	return k == Knight || k == Bishop || k == Rook || k == Queen
}

// ParseKind accepts a kind name ("queen"), a FEN letter ("q"/"Q") or a glyph ("♕").
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	if p, ok := glyphPieces[s]; ok {
		return p.Kind, nil
	}
	lower := strings.ToLower(s)
	for k, name := range kindNames {
		if lower == name {
			return k, nil
		}
	}
	if len(s) == 1 {
		if p, ok := fenPieces[s[0]]; ok {
			return p.Kind, nil
		}
	}
	return NoKind, fmt.Errorf("invalid piece kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts anything ParseKind does, plus "" and "none" for
// NoKind.
func (k *Kind) UnmarshalText(text []byte) error {
	if t := strings.TrimSpace(string(text)); t == "" || t == "none" {
		*k = NoKind
		return nil
	}
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Piece is a typed, colored chess piece. The zero Piece is an empty square.
type Piece struct {
	Kind  Kind
	Color Color
}

func (p Piece) IsEmpty() bool {
	return p.Kind == NoKind
}

// Glyph returns the unicode chess symbol, or "" for an empty square.
func (p Piece) Glyph() string {
	return pieceGlyphs[p]
}

// FEN returns the FEN letter, uppercase for white. Empty squares return 0.
func (p Piece) FEN() byte {
	for b, fp := range fenPieces {
		if fp == p {
			return b
		}
	}
	return 0
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.Color.String() + " " + p.Kind.String()
}

var pieceGlyphs = map[Piece]string{
	{King, White}:   "♔",
	{Queen, White}:  "♕",
	{Rook, White}:   "♖",
	{Bishop, White}: "♗",
	{Knight, White}: "♘",
	{Pawn, White}:   "♙",
	{King, Black}:   "♚",
	{Queen, Black}:  "♛",
	{Rook, Black}:   "♜",
	{Bishop, Black}: "♝",
	{Knight, Black}: "♞",
	{Pawn, Black}:   "♟",
}

var glyphPieces = func() map[string]Piece {
	m := make(map[string]Piece, len(pieceGlyphs))
	for p, g := range pieceGlyphs {
		m[g] = p
	}
	return m
}()

var fenPieces = map[byte]Piece{
	'K': {King, White},
	'Q': {Queen, White},
	'R': {Rook, White},
	'B': {Bishop, White},
	'N': {Knight, White},
	'P': {Pawn, White},
	'k': {King, Black},
	'q': {Queen, Black},
	'r': {Rook, Black},
	'b': {Bishop, Black},
	'n': {Knight, Black},
	'p': {Pawn, Black},
}
