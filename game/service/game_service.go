package service

import (
	"context"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/game/session"
)

// GameService defines all match-related operations
type GameService interface {
	// Match Management
	CreateMatch(ctx context.Context, matchID string) (*MatchInfo, error)
	GetMatch(ctx context.Context, matchID string) (*MatchInfo, error)
	ListMatches(ctx context.Context) ([]*MatchInfo, error)
	DeleteMatch(ctx context.Context, matchID string) error

	// Participants
	NewParticipant(ctx context.Context) (engine.ParticipantID, error)

	// Match Operations
	ClaimSeat(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*ActionResult, error)
	ReleaseSeat(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*ActionResult, error)
	SubmitMove(ctx context.Context, matchID string, p engine.ParticipantID, req MoveInput) (*ActionResult, error)
	Disconnect(ctx context.Context, matchID string, p engine.ParticipantID) (*ActionResult, error)

	// Match State
	GetGameState(ctx context.Context, matchID string) (*engine.GameState, error)
	LegalMoves(ctx context.Context, matchID string, from board.Square) (*LegalMovesResult, error)
	GetMoveHistory(ctx context.Context, matchID string, opts HistoryOptions) (*HistoryResponse, error)
}

// MatchStore defines match storage and event dispatch
type MatchStore interface {
	Create(id string) (session.Summary, error)
	Get(id string) (session.Summary, error)
	List() []session.Summary
	Delete(id string) error
	Dispatch(id string, p engine.ParticipantID, ev session.Event) (session.Outcome, error)
	Snapshot(id string) (engine.GameState, error)
	Destinations(id string, from board.Square) ([]board.Square, error)
	History(id string) ([]session.HistoryEntry, error)
}
