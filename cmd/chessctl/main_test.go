package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/livechess/game/board"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"chessctl"}, args...))
	return out.String(), err
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		input     string
		from, to  board.Square
		promotion board.Kind
		wantErr   bool
	}{
		{"6,4-4,4", board.Sq(6, 4), board.Sq(4, 4), board.NoKind, false},
		{"1,0-0,0=q", board.Sq(1, 0), board.Sq(0, 0), board.Queen, false},
		{" 1,0-0,0=knight ", board.Sq(1, 0), board.Sq(0, 0), board.Knight, false},
		{"6,4", board.Square{}, board.Square{}, board.NoKind, true},
		{"6,4-9,9", board.Square{}, board.Square{}, board.NoKind, true},
		{"1,0-0,0=x", board.Square{}, board.Square{}, board.NoKind, true},
	}

	for _, tt := range tests {
		from, to, promotion, err := parseMove(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseMove(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMove(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if from != tt.from || to != tt.to || promotion != tt.promotion {
			t.Errorf("parseMove(%q) = %v %v %v", tt.input, from, to, promotion)
		}
	}
}

func TestRightsFromBoard(t *testing.T) {
	rights := rightsFromBoard(board.Standard())
	if rights.WhiteKingMoved || rights.BlackRookHMoved {
		t.Errorf("opening position should keep every right: %+v", rights)
	}

	b, err := board.ParsePlacement("4k3/8/8/8/8/8/8/R3K3")
	if err != nil {
		t.Fatal(err)
	}
	rights = rightsFromBoard(b)
	if rights.WhiteKingMoved || rights.WhiteRookAMoved {
		t.Errorf("white king and a-rook are home: %+v", rights)
	}
	if !rights.WhiteRookHMoved || !rights.BlackRookAMoved || !rights.BlackRookHMoved {
		t.Errorf("missing rooks should count as moved: %+v", rights)
	}
}

func TestBoardCommand(t *testing.T) {
	out, err := run(t, "board")
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if !strings.Contains(out, "FEN: "+startPlacement) {
		t.Errorf("missing FEN line:\n%s", out)
	}
	if !strings.Contains(out, "Turn: white") {
		t.Errorf("missing turn line:\n%s", out)
	}
	if strings.Contains(out, "check") {
		t.Errorf("opening position is not check:\n%s", out)
	}

	if _, err := run(t, "board", "--fen", "not/a/board"); err == nil {
		t.Error("expected error for invalid placement")
	}
}

func TestLegalCommand(t *testing.T) {
	out, err := run(t, "legal", "6,4")
	if err != nil {
		t.Fatalf("legal: %v", err)
	}
	if !strings.Contains(out, "2 destination(s)") {
		t.Errorf("e-pawn should have two destinations:\n%s", out)
	}
	if !strings.Contains(out, "5,4") || !strings.Contains(out, "4,4") {
		t.Errorf("missing destinations:\n%s", out)
	}

	out, err = run(t, "legal", "--fen", "r3k2r/8/8/8/8/8/8/R3K2R", "7,4")
	if err != nil {
		t.Fatalf("legal castling: %v", err)
	}
	if !strings.Contains(out, "castling, rook 7,7 -> 7,5") {
		t.Errorf("kingside castling not listed:\n%s", out)
	}

	out, err = run(t, "legal", "4,4")
	if err != nil {
		t.Fatalf("legal empty: %v", err)
	}
	if !strings.Contains(out, "No piece on 4,4") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := run(t, "legal"); err == nil {
		t.Error("expected error without a square")
	}
}

func TestPlayCommand(t *testing.T) {
	t.Run("fool's mate", func(t *testing.T) {
		out, err := run(t, "play", "6,5-5,5", "1,4-3,4", "6,6-4,6", "0,3-4,7")
		if err != nil {
			t.Fatalf("play: %v\n%s", err, out)
		}
		if !strings.Contains(out, "Checkmate: black wins") {
			t.Errorf("expected checkmate:\n%s", out)
		}
	})

	t.Run("out of turn", func(t *testing.T) {
		_, err := run(t, "play", "1,4-3,4")
		if err == nil || !strings.Contains(err.Error(), "out of turn") {
			t.Errorf("expected out of turn rejection, got %v", err)
		}
	})

	t.Run("promotion", func(t *testing.T) {
		out, err := run(t, "play", "--fen", "4k3/P7/8/8/8/8/8/4K3", "1,0-0,0=r")
		if err != nil {
			t.Fatalf("play: %v", err)
		}
		if !strings.Contains(out, "FEN: R3k3/8/8/8/8/8/8/4K3") {
			t.Errorf("expected a rook on 0,0:\n%s", out)
		}
	})

	t.Run("moves after mate", func(t *testing.T) {
		_, err := run(t, "play", "6,5-5,5", "1,4-3,4", "6,6-4,6", "0,3-4,7", "6,0-5,0")
		if err == nil || !strings.Contains(err.Error(), "game is over") {
			t.Errorf("expected game over error, got %v", err)
		}
	})
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("server:\n  port: 9090\nmatch:\n  ttl: 30m\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("log:\n  level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "config", "validate", good)
	if err != nil {
		t.Fatalf("validate good: %v", err)
	}
	if !strings.Contains(out, "✅") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = run(t, "config", "validate", good, bad)
	if err == nil {
		t.Error("expected error for invalid file")
	}
	if !strings.Contains(out, "❌ "+bad) {
		t.Errorf("bad file not reported:\n%s", out)
	}

	out, err = run(t, "config", "show", good)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "port: 9090") {
		t.Errorf("show should reflect the file:\n%s", out)
	}
}
