package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/game/service"
	"github.com/wricardo/livechess/game/session"
)

func newService(t *testing.T) (service.GameService, *session.Manager) {
	t.Helper()
	manager := session.NewManager(session.Options{
		Rules:               engine.Rules{StrictSelfCheck: true},
		ConcludeOnCheckmate: true,
		NotifyRejections:    true,
	})
	return service.NewGameService(manager), manager
}

func mv(fr, fc, tr, tc int) service.MoveInput {
	return service.MoveInput{MoveRequest: engine.MoveRequest{From: board.Sq(fr, fc), To: board.Sq(tr, tc)}}
}

func TestMatchLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	info, err := svc.CreateMatch(ctx, "lobby")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if info.ID != "lobby" || info.Phase != session.PhaseEmpty || info.GameState == nil {
		t.Errorf("unexpected info %+v", info)
	}

	if _, err := svc.CreateMatch(ctx, "lobby"); !errors.Is(err, session.ErrMatchAlreadyExists) {
		t.Errorf("duplicate create: err = %v", err)
	}

	matches, _ := svc.ListMatches(ctx)
	if len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(matches))
	}

	if err := svc.DeleteMatch(ctx, "lobby"); err != nil {
		t.Fatalf("DeleteMatch: %v", err)
	}
	if _, err := svc.GetMatch(ctx, "lobby"); !errors.Is(err, session.ErrMatchNotFound) {
		t.Errorf("get after delete: err = %v", err)
	}
}

func TestNewParticipantIsUnique(t *testing.T) {
	svc, _ := newService(t)
	a, err := svc.NewParticipant(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, _ := svc.NewParticipant(context.Background())
	if a == "" || a == b {
		t.Errorf("participants %q and %q", a, b)
	}
}

func TestSeatsAndMoves(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	svc.CreateMatch(ctx, "g1")

	res, err := svc.ClaimSeat(ctx, "g1", "alice", board.White)
	if err != nil || !res.Success {
		t.Fatalf("claim white: %+v, %v", res, err)
	}
	if res.Reply == nil || res.Reply.Kind != session.ReplySeatClaimed {
		t.Errorf("reply = %+v", res.Reply)
	}

	res, _ = svc.ClaimSeat(ctx, "g1", "bob", board.White)
	if res.Success || res.Code != "seat_unavailable" {
		t.Errorf("claim taken seat: %+v", res)
	}

	res, _ = svc.ClaimSeat(ctx, "g1", "bob", board.Black)
	if !res.Success || res.Phase != session.PhaseReady {
		t.Fatalf("claim black: %+v", res)
	}

	res, _ = svc.SubmitMove(ctx, "g1", "bob", mv(1, 4, 3, 4))
	if res.Success || res.Code != "out_of_turn" {
		t.Errorf("black first: %+v", res)
	}

	res, _ = svc.SubmitMove(ctx, "g1", "alice", mv(6, 4, 2, 4))
	if res.Success || res.Code != "illegal_destination" {
		t.Errorf("illegal: %+v", res)
	}

	res, _ = svc.SubmitMove(ctx, "g1", "alice", mv(6, 4, 4, 4))
	if !res.Success || res.GameState.Turn != board.Black || res.Phase != session.PhaseInProgress {
		t.Errorf("legal: %+v", res)
	}

	res, _ = svc.ReleaseSeat(ctx, "g1", "alice", board.Black)
	if res.Success || res.Code != "seat_not_held" {
		t.Errorf("release other seat: %+v", res)
	}

	res, _ = svc.Disconnect(ctx, "g1", "bob")
	if !res.Success || res.GameState.Black != "" || res.GameState.Turn != board.NoColor {
		t.Errorf("disconnect: %+v", res)
	}

	if _, err := svc.ClaimSeat(ctx, "g1", "", board.Black); !errors.Is(err, service.ErrInvalidParticipant) {
		t.Errorf("empty participant: err = %v", err)
	}
	if _, err := svc.ClaimSeat(ctx, "nope", "alice", board.Black); !errors.Is(err, session.ErrMatchNotFound) {
		t.Errorf("missing match: err = %v", err)
	}
}

func TestSubmitMoveInferFlags(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	svc.CreateMatch(ctx, "ep")
	svc.ClaimSeat(ctx, "ep", "w", board.White)
	svc.ClaimSeat(ctx, "ep", "b", board.Black)

	moves := []struct {
		who engine.ParticipantID
		in  service.MoveInput
	}{
		{"w", mv(6, 4, 4, 4)},
		{"b", mv(1, 0, 2, 0)},
		{"w", mv(4, 4, 3, 4)},
		{"b", mv(1, 3, 3, 3)},
	}
	for i, m := range moves {
		if res, _ := svc.SubmitMove(ctx, "ep", m.who, m.in); !res.Success {
			t.Fatalf("move %d: %+v", i, res)
		}
	}

	// Without flags the en passant capture is rejected.
	res, _ := svc.SubmitMove(ctx, "ep", "w", mv(3, 4, 2, 3))
	if res.Success {
		t.Fatal("en passant without flag should be rejected")
	}

	in := mv(3, 4, 2, 3)
	in.InferFlags = true
	res, _ = svc.SubmitMove(ctx, "ep", "w", in)
	if !res.Success {
		t.Fatalf("inferred en passant: %+v", res)
	}
	if _, ok := res.GameState.Board.PieceAt(board.Sq(3, 3)); ok {
		t.Error("captured pawn should be gone")
	}
}

func TestLegalMoves(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	svc.CreateMatch(ctx, "lm")

	res, err := svc.LegalMoves(ctx, "lm", board.Sq(7, 6))
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if res.Piece != "♘" || res.Color != board.White || len(res.Moves) != 2 {
		t.Errorf("unexpected result %+v", res)
	}

	res, _ = svc.LegalMoves(ctx, "lm", board.Sq(4, 4))
	if res.Piece != "" || len(res.Moves) != 0 || res.Moves == nil {
		t.Errorf("empty square: %+v", res)
	}

	if _, err := svc.LegalMoves(ctx, "lm", board.Sq(9, 9)); !errors.Is(err, engine.ErrIllegalDestination) {
		t.Errorf("off-board: err = %v", err)
	}
}

func TestGetMoveHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	svc.CreateMatch(ctx, "h")
	svc.ClaimSeat(ctx, "h", "w", board.White)
	svc.ClaimSeat(ctx, "h", "b", board.Black)

	plies := []struct {
		who engine.ParticipantID
		in  service.MoveInput
	}{
		{"w", mv(6, 4, 4, 4)},
		{"b", mv(1, 4, 3, 4)},
		{"w", mv(7, 6, 5, 5)},
	}
	for _, p := range plies {
		svc.SubmitMove(ctx, "h", p.who, p.in)
	}

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantSeqs  []int
		wantPages int
		hasNext   bool
	}{
		{"default desc", service.HistoryOptions{}, []int{3, 2, 1}, 1, false},
		{"asc page 1", service.HistoryOptions{Limit: 2, Order: "asc"}, []int{1, 2}, 2, true},
		{"asc page 2", service.HistoryOptions{Page: 2, Limit: 2, Order: "asc"}, []int{3}, 2, false},
		{"desc page 2", service.HistoryOptions{Page: 2, Limit: 2}, []int{1}, 2, false},
		{"past the end", service.HistoryOptions{Page: 5, Limit: 2, Order: "asc"}, []int{}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetMoveHistory(ctx, "h", tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if resp.TotalMoves != 3 || resp.TotalPages != tt.wantPages || resp.HasNext != tt.hasNext {
				t.Errorf("resp = %+v", resp)
			}
			if len(resp.Moves) != len(tt.wantSeqs) {
				t.Fatalf("got %d moves, want %d", len(resp.Moves), len(tt.wantSeqs))
			}
			for i, seq := range tt.wantSeqs {
				if resp.Moves[i].Seq != seq {
					t.Errorf("move %d seq = %d, want %d", i, resp.Moves[i].Seq, seq)
				}
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := map[string]error{
		"":                    nil,
		"out_of_turn":         &engine.MoveError{Err: engine.ErrOutOfTurn},
		"illegal_destination": &engine.MoveError{Err: engine.ErrIllegalDestination},
		"match_concluded":     &engine.MoveError{Err: session.ErrMatchConcluded},
		"seat_unavailable":    session.ErrSeatUnavailable,
		"match_not_found":     session.ErrMatchNotFound,
		"internal":            errors.New("boom"),
	}
	for want, err := range tests {
		if got := service.ErrorCode(err); got != want {
			t.Errorf("ErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}
