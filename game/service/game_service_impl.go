package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/game/session"
	"github.com/wricardo/livechess/internal/obslog"
)

var ErrInvalidParticipant = errors.New("invalid participant")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	matches MatchStore
}

// NewGameService creates a new game service instance
func NewGameService(matches MatchStore) GameService {
	return &gameServiceImpl{matches: matches}
}

// CreateMatch creates a new match. An empty ID asks for a generated one.
func (s *gameServiceImpl) CreateMatch(ctx context.Context, matchID string) (*MatchInfo, error) {
	summary, err := s.matches.Create(matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return toMatchInfo(summary), nil
}

// GetMatch retrieves match information
func (s *gameServiceImpl) GetMatch(ctx context.Context, matchID string) (*MatchInfo, error) {
	summary, err := s.matches.Get(matchID)
	if err != nil {
		return nil, err
	}
	return toMatchInfo(summary), nil
}

// ListMatches returns all live matches
func (s *gameServiceImpl) ListMatches(ctx context.Context) ([]*MatchInfo, error) {
	summaries := s.matches.List()
	infos := make([]*MatchInfo, 0, len(summaries))
	for _, summary := range summaries {
		infos = append(infos, toMatchInfo(summary))
	}
	return infos, nil
}

// DeleteMatch removes a match
func (s *gameServiceImpl) DeleteMatch(ctx context.Context, matchID string) error {
	return s.matches.Delete(matchID)
}

// NewParticipant issues a fresh participant handle
func (s *gameServiceImpl) NewParticipant(ctx context.Context) (engine.ParticipantID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate participant ID: %w", err)
	}
	return engine.ParticipantID(id.String()), nil
}

func (s *gameServiceImpl) ClaimSeat(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*ActionResult, error) {
	return s.dispatch(ctx, matchID, p, session.ClaimSeat{Color: color})
}

func (s *gameServiceImpl) ReleaseSeat(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*ActionResult, error) {
	return s.dispatch(ctx, matchID, p, session.ReleaseSeat{Color: color})
}

// SubmitMove proposes a move for the participant's color
func (s *gameServiceImpl) SubmitMove(ctx context.Context, matchID string, p engine.ParticipantID, in MoveInput) (*ActionResult, error) {
	req := in.MoveRequest
	if in.InferFlags {
		state, err := s.matches.Snapshot(matchID)
		if err != nil {
			return nil, err
		}
		// A stale board only yields flags the engine rejects.
		req = engine.RequestFor(state.Board, req.From, req.To, req.Promotion)
	}
	return s.dispatch(ctx, matchID, p, session.SubmitMove{Move: req})
}

func (s *gameServiceImpl) Disconnect(ctx context.Context, matchID string, p engine.ParticipantID) (*ActionResult, error) {
	return s.dispatch(ctx, matchID, p, session.Disconnect{})
}

func (s *gameServiceImpl) dispatch(ctx context.Context, matchID string, p engine.ParticipantID, ev session.Event) (*ActionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p == "" {
		return nil, ErrInvalidParticipant
	}

	out, err := s.matches.Dispatch(matchID, p, ev)
	if err != nil {
		return nil, err
	}

	result := &ActionResult{
		Success: out.Err == nil,
		Reply:   out.Reply,
	}
	if out.Err != nil {
		result.Code = ErrorCode(out.Err)
		result.Message = out.Err.Error()
	}

	summary, err := s.matches.Get(matchID)
	if err != nil {
		// Deleted between the dispatch and now; report what was committed.
		obslog.L().Debug("match_gone_after_dispatch", zap.String("match_id", matchID))
		result.GameState = out.Snapshot
		return result, nil
	}
	result.Phase = summary.Phase
	state := summary.State
	result.GameState = &state
	return result, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, matchID string) (*engine.GameState, error) {
	state, err := s.matches.Snapshot(matchID)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// LegalMoves lists the destinations of the piece on from, with the flags
// needed to play each one.
func (s *gameServiceImpl) LegalMoves(ctx context.Context, matchID string, from board.Square) (*LegalMovesResult, error) {
	if !from.Valid() {
		return nil, fmt.Errorf("%w: %s", engine.ErrIllegalDestination, from)
	}
	state, err := s.matches.Snapshot(matchID)
	if err != nil {
		return nil, err
	}
	dests, err := s.matches.Destinations(matchID, from)
	if err != nil {
		return nil, err
	}

	result := &LegalMovesResult{From: from, Turn: state.Turn, Moves: []MoveOption{}}
	p, ok := state.Board.PieceAt(from)
	if !ok {
		return result, nil
	}
	result.Piece = p.Glyph()
	result.Color = p.Color

	for _, to := range dests {
		req := engine.RequestFor(state.Board, from, to, board.Queen)
		_, occupied := state.Board.PieceAt(to)
		result.Moves = append(result.Moves, MoveOption{
			To:                to,
			EnPassant:         req.EnPassant,
			Castling:          req.Castling,
			RequiresPromotion: req.Promotion != board.NoKind,
			Capture:           occupied || req.EnPassant,
		})
	}
	return result, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, matchID string, opts HistoryOptions) (*HistoryResponse, error) {
	history, err := s.matches.History(matchID)
	if err != nil {
		return nil, err
	}
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []session.HistoryEntry{}
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ErrorCode maps a rejection to a stable machine-friendly code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrOutOfTurn):
		return "out_of_turn"
	case errors.Is(err, engine.ErrIllegalDestination):
		return "illegal_destination"
	case errors.Is(err, session.ErrSeatUnavailable):
		return "seat_unavailable"
	case errors.Is(err, session.ErrSeatNotHeld):
		return "seat_not_held"
	case errors.Is(err, session.ErrMatchConcluded):
		return "match_concluded"
	case errors.Is(err, session.ErrInvalidColor):
		return "invalid_color"
	case errors.Is(err, session.ErrMatchNotFound):
		return "match_not_found"
	}
	return "internal"
}

func toMatchInfo(summary session.Summary) *MatchInfo {
	state := summary.State
	return &MatchInfo{
		ID:           summary.ID,
		Phase:        summary.Phase,
		Moves:        summary.Moves,
		CreatedAt:    summary.CreatedAt,
		LastActivity: summary.LastActivity,
		GameState:    &state,
	}
}
