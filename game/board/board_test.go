package board

import (
	"encoding/json"
	"testing"
)

func TestStandard(t *testing.T) {
	b := Standard()

	tests := []struct {
		name string
		sq   Square
		want Piece
	}{
		{"white king", Sq(7, 4), Piece{King, White}},
		{"white queen", Sq(7, 3), Piece{Queen, White}},
		{"black king", Sq(0, 4), Piece{King, Black}},
		{"black rook a", Sq(0, 0), Piece{Rook, Black}},
		{"white pawn", Sq(6, 3), Piece{Pawn, White}},
		{"black knight", Sq(0, 6), Piece{Knight, Black}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := b.PieceAt(tt.sq)
			if !ok {
				t.Fatalf("expected piece on %s", tt.sq)
			}
			if got != tt.want {
				t.Errorf("PieceAt(%s) = %v, want %v", tt.sq, got, tt.want)
			}
		})
	}

	if _, ok := b.PieceAt(Sq(4, 4)); ok {
		t.Error("expected empty center square")
	}
	if _, ok := b.PieceAt(Sq(8, 0)); ok {
		t.Error("off-board square should be empty")
	}
}

func TestWithMoveIsPure(t *testing.T) {
	b := Standard()
	next := b.WithMove(Sq(6, 4), Sq(4, 4))

	if _, ok := b.PieceAt(Sq(4, 4)); ok {
		t.Error("original board was modified")
	}
	if p, ok := next.PieceAt(Sq(4, 4)); !ok || p != (Piece{Pawn, White}) {
		t.Errorf("expected white pawn on 4,4, got %v", p)
	}
	if _, ok := next.PieceAt(Sq(6, 4)); ok {
		t.Error("origin square should be empty after move")
	}
}

func TestWithMoveCaptures(t *testing.T) {
	b := Board{}.
		WithPiece(Sq(4, 2), Piece{Pawn, White}).
		WithPiece(Sq(3, 3), Piece{Pawn, Black})

	next := b.WithMove(Sq(4, 2), Sq(3, 3))
	if p, _ := next.PieceAt(Sq(3, 3)); p != (Piece{Pawn, White}) {
		t.Errorf("expected white pawn on 3,3, got %v", p)
	}
	if len(next.Squares(Black)) != 0 {
		t.Error("captured piece should be gone")
	}
}

func TestWithCleared(t *testing.T) {
	b := Standard()
	next := b.WithCleared(Sq(0, 0))
	if _, ok := next.PieceAt(Sq(0, 0)); ok {
		t.Error("expected cleared square")
	}
	if _, ok := b.PieceAt(Sq(0, 0)); !ok {
		t.Error("original board was modified")
	}
}

func TestParsePlacementRoundTrip(t *testing.T) {
	placements := []string{
		StandardPlacement,
		"8/8/8/8/8/8/8/8",
		"r3k2r/8/8/3pP3/8/8/8/R3K2R",
		"4k3/P7/8/8/8/8/8/4K3",
	}
	for _, p := range placements {
		b, err := ParsePlacement(p)
		if err != nil {
			t.Fatalf("ParsePlacement(%q): %v", p, err)
		}
		if got := b.Placement(); got != p {
			t.Errorf("Placement() = %q, want %q", got, p)
		}
	}
}

func TestParsePlacementErrors(t *testing.T) {
	bad := []string{
		"",
		"8/8/8/8/8/8/8",
		"9/8/8/8/8/8/8/8",
		"rnbqkbnrr/8/8/8/8/8/8/8",
		"7x/8/8/8/8/8/8/8",
		"7/8/8/8/8/8/8/8",
	}
	for _, p := range bad {
		if _, err := ParsePlacement(p); err == nil {
			t.Errorf("ParsePlacement(%q) expected error", p)
		}
	}
}

func TestSquareText(t *testing.T) {
	sq, err := ParseSquare(" 3, 5 ")
	if err != nil {
		t.Fatal(err)
	}
	if sq != Sq(3, 5) {
		t.Errorf("got %v", sq)
	}
	if sq.String() != "3,5" {
		t.Errorf("String() = %q", sq.String())
	}

	for _, s := range []string{"3", "a,b", "8,0", "-1,2", "1,2,3"} {
		if _, err := ParseSquare(s); err == nil {
			t.Errorf("ParseSquare(%q) expected error", s)
		}
	}
}

func TestBoardJSON(t *testing.T) {
	b := Standard()
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}

	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatal(err)
	}
	if rows[0][0] != "♜" || rows[7][4] != "♔" || rows[4][4] != "" {
		t.Errorf("unexpected glyph layout: %v", rows)
	}

	var decoded Board
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != b {
		t.Error("decoded board differs from original")
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"queen":  Queen,
		"Q":      Queen,
		"n":      Knight,
		"♕":      Queen,
		"♞":      Knight,
		" rook ": Rook,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil {
			t.Errorf("ParseKind(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseKind(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseKind("dragon"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestColorJSON(t *testing.T) {
	data, _ := json.Marshal(struct {
		Turn Color `json:"turn"`
	}{})
	if string(data) != `{"turn":null}` {
		t.Errorf("NoColor should encode as null, got %s", data)
	}

	var c Color
	if err := json.Unmarshal([]byte(`"black"`), &c); err != nil || c != Black {
		t.Errorf("got %v, %v", c, err)
	}
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Error("Opponent mismatch")
	}
}
