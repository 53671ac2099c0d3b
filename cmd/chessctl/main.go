// Command chessctl inspects chess positions and server configuration
// offline. It reuses the move engine the server runs, so what it prints is
// what a live match would accept:
//   - board: diagram, check and checkmate status of a position
//   - legal: destinations of one piece with the flags needed to play them
//   - play: replays a move list from a position and reports the first rejection
//   - config validate / config show: loads a YAML file the way the server does
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/config"
	"github.com/wricardo/livechess/game/engine"
)

// startPlacement is the FEN placement of the opening position.
var startPlacement = board.Standard().Placement()

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "chessctl: %v\n", err)
		os.Exit(1)
	}
}

func positionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "fen",
			Value: startPlacement,
			Usage: "FEN piece placement of the position",
		},
		&cli.StringFlag{
			Name:  "turn",
			Value: "white",
			Usage: "side to move (white or black)",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Value: true,
			Usage: "reject moves that leave the mover's own king attacked",
		},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "chessctl",
		Usage: "inspect chess positions and live chess server configuration",
		Commands: []*cli.Command{
			{
				Name:   "board",
				Usage:  "print a position with its check status",
				Flags:  positionFlags(),
				Action: runBoard,
			},
			{
				Name:      "legal",
				Usage:     "list legal destinations of the piece on a square",
				ArgsUsage: "<row,col>",
				Flags:     positionFlags(),
				Action:    runLegal,
			},
			{
				Name:      "play",
				Usage:     "replay moves such as 6,4-4,4 or 1,0-0,0=q",
				ArgsUsage: "<move>...",
				Flags:     positionFlags(),
				Action:    runPlay,
			},
			{
				Name:  "config",
				Usage: "work with server configuration files",
				Commands: []*cli.Command{
					{
						Name:      "validate",
						Usage:     "check a YAML configuration file",
						ArgsUsage: "<file>...",
						Action:    runConfigValidate,
					},
					{
						Name:      "show",
						Usage:     "print the effective configuration (defaults, file, environment)",
						ArgsUsage: "[file]",
						Action:    runConfigShow,
					},
				},
			},
		},
	}
}

// positionFrom builds a game state from the position flags.
func positionFrom(cmd *cli.Command) (engine.GameState, engine.Rules, error) {
	rules := engine.Rules{StrictSelfCheck: cmd.Bool("strict")}

	b, err := board.ParsePlacement(cmd.String("fen"))
	if err != nil {
		return engine.GameState{}, rules, err
	}
	turn, err := board.ParseColor(cmd.String("turn"))
	if err != nil {
		return engine.GameState{}, rules, err
	}

	state := engine.NewGameState()
	state.Board = b
	state.Turn = turn
	// Castling is only offered from a position where the pieces still stand
	// on their origin squares.
	state.Castling = rightsFromBoard(b)
	state.Checkmate = engine.IsCheckmate(state)
	return state, rules, nil
}

// rightsFromBoard marks a castling piece as moved when it is not on its
// origin square.
func rightsFromBoard(b board.Board) engine.CastlingRights {
	missing := func(sq board.Square, want board.Piece) bool {
		p, ok := b.PieceAt(sq)
		return !ok || p != want
	}
	return engine.CastlingRights{
		WhiteKingMoved:  missing(board.Sq(7, 4), board.Piece{Kind: board.King, Color: board.White}),
		WhiteRookAMoved: missing(board.Sq(7, 0), board.Piece{Kind: board.Rook, Color: board.White}),
		WhiteRookHMoved: missing(board.Sq(7, 7), board.Piece{Kind: board.Rook, Color: board.White}),
		BlackKingMoved:  missing(board.Sq(0, 4), board.Piece{Kind: board.King, Color: board.Black}),
		BlackRookAMoved: missing(board.Sq(0, 0), board.Piece{Kind: board.Rook, Color: board.Black}),
		BlackRookHMoved: missing(board.Sq(0, 7), board.Piece{Kind: board.Rook, Color: board.Black}),
	}
}

func printStatus(w io.Writer, state engine.GameState) {
	fmt.Fprint(w, state.Board.String())
	fmt.Fprintf(w, "FEN: %s\n", state.Board.Placement())
	fmt.Fprintf(w, "Turn: %s\n", state.Turn)
	for _, c := range []board.Color{board.White, board.Black} {
		if _, ok := state.Board.Find(board.Piece{Kind: board.King, Color: c}); !ok {
			fmt.Fprintf(w, "⚠️  %s has no king\n", c)
			continue
		}
		if engine.InCheck(state.Board, c) {
			fmt.Fprintf(w, "⚠️  %s is in check\n", c)
		}
	}
	if state.Checkmate {
		fmt.Fprintf(w, "♚ Checkmate: %s wins\n", state.Turn.Opponent())
	}
}

func runBoard(ctx context.Context, cmd *cli.Command) error {
	state, _, err := positionFrom(cmd)
	if err != nil {
		return err
	}
	printStatus(cmd.Root().Writer, state)
	return nil
}

func runLegal(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected one square, got %d arguments", cmd.Args().Len())
	}
	from, err := board.ParseSquare(cmd.Args().First())
	if err != nil {
		return err
	}
	state, rules, err := positionFrom(cmd)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	p, ok := state.Board.PieceAt(from)
	if !ok {
		fmt.Fprintf(w, "No piece on %s\n", from)
		return nil
	}

	dests := rules.Destinations(state, from)
	fmt.Fprintf(w, "%s %s on %s: %d destination(s)\n", p.Glyph(), p, from, len(dests))
	for _, to := range dests {
		req := engine.RequestFor(state.Board, from, to, board.Queen)
		var notes []string
		if _, occupied := state.Board.PieceAt(to); occupied || req.EnPassant {
			notes = append(notes, "capture")
		}
		if req.EnPassant {
			notes = append(notes, "en passant")
		}
		if req.Castling != nil {
			notes = append(notes, fmt.Sprintf("castling, rook %s -> %s", req.Castling.RookFrom, req.Castling.RookTo))
		}
		if req.Promotion != board.NoKind {
			notes = append(notes, "promotion")
		}
		if len(notes) > 0 {
			fmt.Fprintf(w, "  %s (%s)\n", to, strings.Join(notes, ", "))
		} else {
			fmt.Fprintf(w, "  %s\n", to)
		}
	}
	if p.Color != state.Turn {
		fmt.Fprintf(w, "Note: it is %s's turn\n", state.Turn)
	}
	return nil
}

// parseMove reads "from-to" with an optional "=kind" promotion suffix.
func parseMove(s string) (from, to board.Square, promotion board.Kind, err error) {
	body, promo, hasPromo := strings.Cut(strings.TrimSpace(s), "=")
	a, b, ok := strings.Cut(body, "-")
	if !ok {
		return from, to, promotion, fmt.Errorf("invalid move %q: expected from-to", s)
	}
	if from, err = board.ParseSquare(a); err != nil {
		return from, to, promotion, err
	}
	if to, err = board.ParseSquare(b); err != nil {
		return from, to, promotion, err
	}
	if hasPromo {
		if promotion, err = board.ParseKind(promo); err != nil {
			return from, to, promotion, err
		}
	}
	return from, to, promotion, nil
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	state, rules, err := positionFrom(cmd)
	if err != nil {
		return err
	}
	w := cmd.Root().Writer

	for i, arg := range cmd.Args().Slice() {
		if state.Checkmate {
			return fmt.Errorf("move %d (%s): game is over", i+1, arg)
		}
		from, to, promotion, err := parseMove(arg)
		if err != nil {
			return fmt.Errorf("move %d: %w", i+1, err)
		}
		mover := state.Turn
		next, err := rules.ValidateAndApply(state, engine.RequestFor(state.Board, from, to, promotion))
		if err != nil {
			printStatus(w, state)
			return fmt.Errorf("move %d (%s) rejected: %w", i+1, arg, err)
		}
		next.Checkmate = engine.IsCheckmate(next)
		state = next
		fmt.Fprintf(w, "%d. %s %s -> %s\n", i+1, mover, from, to)
	}

	printStatus(w, state)
	return nil
}

func runConfigValidate(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("expected at least one configuration file")
	}

	w := cmd.Root().Writer
	failed := 0
	for _, path := range cmd.Args().Slice() {
		if _, err := config.Load(path); err != nil {
			failed++
			fmt.Fprintf(w, "❌ %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(w, "✅ %s\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d configuration files are invalid", failed, cmd.Args().Len())
	}
	return nil
}

func runConfigShow(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.Args().First())
	if err != nil {
		return err
	}
	if cfg.Ngrok.AuthToken != "" {
		cfg.Ngrok.AuthToken = "********"
	}

	enc := yaml.NewEncoder(cmd.Root().Writer)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
