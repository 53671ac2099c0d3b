package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/internal/obslog"
)

var (
	ErrSeatUnavailable = errors.New("seat unavailable")
	ErrSeatNotHeld     = errors.New("seat not held")
	ErrMatchConcluded  = errors.New("match concluded")
	ErrInvalidColor    = errors.New("invalid color")
)

// Phase is the occupancy and progress status of a match. It is derived from
// the match state rather than stored.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseOneSeated
	PhaseReady
	PhaseInProgress
	PhaseConcluded
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseOneSeated:
		return "one_seated"
	case PhaseReady:
		return "ready"
	case PhaseInProgress:
		return "in_progress"
	case PhaseConcluded:
		return "concluded"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for candidate := PhaseEmpty; candidate <= PhaseConcluded; candidate++ {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Event is an inbound request from a participant. The set of events is
// closed: ClaimSeat, ReleaseSeat, SubmitMove and Disconnect.
type Event interface {
	isEvent()
}

type ClaimSeat struct {
	Color board.Color
}

type ReleaseSeat struct {
	Color board.Color
}

type SubmitMove struct {
	Move engine.MoveRequest
}

// Disconnect releases whatever seat the participant holds.
type Disconnect struct{}

func (ClaimSeat) isEvent()   {}
func (ReleaseSeat) isEvent() {}
func (SubmitMove) isEvent()  {}
func (Disconnect) isEvent()  {}

// ReplyKind names the message sent back to the requester only.
type ReplyKind string

const (
	ReplySeatClaimed     ReplyKind = "sideChosen"
	ReplySeatUnavailable ReplyKind = "sideUnavailable"
	ReplySeatReleased    ReplyKind = "sideGivenUp"
	ReplySeatNotHeld     ReplyKind = "seatNotHeld"
	ReplyMoveRejected    ReplyKind = "moveRejected"
)

type Reply struct {
	Kind   ReplyKind   `json:"kind"`
	Color  board.Color `json:"color,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// Outcome is the result of handling one event. Snapshot is set only when
// the state changed and must be broadcast. Reply is set when the requester
// gets a direct answer. Err is the rejection cause, if any.
type Outcome struct {
	Snapshot *engine.GameState
	Reply    *Reply
	Err      error
}

// Changed reports whether the event committed a new state.
func (o Outcome) Changed() bool {
	return o.Snapshot != nil
}

// Options tune match behavior.
type Options struct {
	Rules engine.Rules `yaml:"rules"`
	// ConcludeOnCheckmate runs checkmate detection after every committed move
	// and concludes the match when it holds.
	ConcludeOnCheckmate bool `yaml:"conclude_on_checkmate"`
	// NotifyRejections replies to the requester when a move or a release is
	// rejected. Without it those rejections are only logged.
	NotifyRejections bool `yaml:"notify_rejections"`
}

// HistoryEntry records one committed move.
type HistoryEntry struct {
	Seq       int          `json:"seq"`
	Color     board.Color  `json:"color"`
	From      board.Square `json:"from"`
	To        board.Square `json:"to"`
	Promotion board.Kind   `json:"promotion,omitempty"`
	EnPassant bool         `json:"en_passant,omitempty"`
	Castling  bool         `json:"castling,omitempty"`
	Check     bool         `json:"check,omitempty"`
	At        time.Time    `json:"at"`
}

// Match owns the authoritative state of one game. It is not safe for
// concurrent use; Manager serializes access.
type Match struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time

	opts    Options
	state   engine.GameState
	started bool // a move was committed since both seats were last filled
	history []HistoryEntry
	now     func() time.Time
}

// NewMatch returns a match in the opening position with no seats taken.
func NewMatch(id string, opts Options) *Match {
	now := time.Now()
	return &Match{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		opts:         opts,
		state:        engine.NewGameState(),
		now:          time.Now,
	}
}

// State returns a copy of the current state.
func (m *Match) State() engine.GameState {
	return m.state
}

// Options returns the options the match was created with.
func (m *Match) Options() Options {
	return m.opts
}

// History returns a copy of the committed moves in order.
func (m *Match) History() []HistoryEntry {
	return append([]HistoryEntry(nil), m.history...)
}

func (m *Match) Phase() Phase {
	switch {
	case m.state.Checkmate:
		return PhaseConcluded
	case m.state.Seats.Count() == 0:
		return PhaseEmpty
	case m.state.Seats.Count() == 1:
		return PhaseOneSeated
	case !m.started:
		return PhaseReady
	}
	return PhaseInProgress
}

// Destinations lists legal destinations for the piece on from under the
// match rules.
func (m *Match) Destinations(from board.Square) []board.Square {
	return m.opts.Rules.Destinations(m.state, from)
}

// Handle applies ev on behalf of participant p.
func (m *Match) Handle(p engine.ParticipantID, ev Event) Outcome {
	m.LastActivity = m.now()

	switch ev := ev.(type) {
	case ClaimSeat:
		return m.claimSeat(p, ev.Color)
	case ReleaseSeat:
		return m.releaseSeat(p, ev.Color, false)
	case SubmitMove:
		return m.submitMove(p, ev.Move)
	case Disconnect:
		c := m.state.Seats.ColorOf(p)
		if c == board.NoColor {
			return Outcome{}
		}
		return m.releaseSeat(p, c, true)
	}
	return Outcome{Err: fmt.Errorf("unknown event %T", ev)}
}

func (m *Match) claimSeat(p engine.ParticipantID, c board.Color) Outcome {
	unavailable := func(err error) Outcome {
		return Outcome{Reply: &Reply{Kind: ReplySeatUnavailable, Color: c}, Err: err}
	}

	if c != board.White && c != board.Black {
		return unavailable(ErrInvalidColor)
	}
	if m.state.Seats.Holder(c) != "" {
		return unavailable(ErrSeatUnavailable)
	}
	if held := m.state.Seats.ColorOf(p); held != board.NoColor {
		return unavailable(fmt.Errorf("%w: already seated as %s", ErrSeatUnavailable, held))
	}

	m.state.Seats = m.state.Seats.With(c, p)
	if m.state.Seats.Full() && m.state.Turn == board.NoColor {
		m.state.Turn = board.White
		m.started = false
	}

	obslog.L().Info("seat_claimed",
		zap.String("match_id", m.ID),
		zap.String("participant", string(p)),
		zap.Stringer("color", c),
		zap.Stringer("phase", m.Phase()),
	)
	return m.committed(&Reply{Kind: ReplySeatClaimed, Color: c})
}

func (m *Match) releaseSeat(p engine.ParticipantID, c board.Color, disconnect bool) Outcome {
	if p == "" || m.state.Seats.Holder(c) != p {
		obslog.L().Debug("release_rejected",
			zap.String("match_id", m.ID),
			zap.String("participant", string(p)),
			zap.Stringer("color", c),
		)
		out := Outcome{Err: ErrSeatNotHeld}
		if m.opts.NotifyRejections {
			out.Reply = &Reply{Kind: ReplySeatNotHeld, Color: c}
		}
		return out
	}

	m.state.Seats = m.state.Seats.With(c, "")
	if !m.state.Seats.Full() {
		m.state.Turn = board.NoColor
	}

	obslog.L().Info("seat_released",
		zap.String("match_id", m.ID),
		zap.String("participant", string(p)),
		zap.Stringer("color", c),
		zap.Bool("disconnect", disconnect),
	)
	if disconnect {
		return m.committed(nil)
	}
	return m.committed(&Reply{Kind: ReplySeatReleased, Color: c})
}

func (m *Match) submitMove(p engine.ParticipantID, req engine.MoveRequest) Outcome {
	if m.state.Checkmate {
		return m.rejectMove(p, req, &engine.MoveError{Err: ErrMatchConcluded, From: req.From, To: req.To, Reason: "match is over"})
	}

	c := m.state.Seats.ColorOf(p)
	if c == board.NoColor || c != m.state.Turn {
		return m.rejectMove(p, req, &engine.MoveError{Err: engine.ErrOutOfTurn, From: req.From, To: req.To, Reason: "requester does not hold the side to move"})
	}

	next, err := m.opts.Rules.ValidateAndApply(m.state, req)
	if err != nil {
		return m.rejectMove(p, req, err)
	}

	check := engine.InCheck(next.Board, next.Turn)
	if m.opts.ConcludeOnCheckmate && check && engine.IsCheckmate(next) {
		next.Checkmate = true
	}
	m.state = next
	m.started = true
	m.history = append(m.history, HistoryEntry{
		Seq:       len(m.history) + 1,
		Color:     c,
		From:      req.From,
		To:        req.To,
		Promotion: req.Promotion,
		EnPassant: req.EnPassant,
		Castling:  req.Castling != nil,
		Check:     check,
		At:        m.now(),
	})

	obslog.L().Info("move_applied",
		zap.String("match_id", m.ID),
		zap.String("participant", string(p)),
		zap.Stringer("color", c),
		zap.Stringer("from", req.From),
		zap.Stringer("to", req.To),
		zap.Bool("check", check),
		zap.Bool("checkmate", next.Checkmate),
	)
	return m.committed(nil)
}

func (m *Match) rejectMove(p engine.ParticipantID, req engine.MoveRequest, err error) Outcome {
	reason := err.Error()
	var moveErr *engine.MoveError
	if errors.As(err, &moveErr) {
		reason = moveErr.Reason
	}
	obslog.L().Info("move_rejected",
		zap.String("match_id", m.ID),
		zap.String("participant", string(p)),
		zap.Stringer("from", req.From),
		zap.Stringer("to", req.To),
		zap.String("reason", reason),
		zap.Error(err),
	)

	out := Outcome{Err: err}
	if m.opts.NotifyRejections {
		out.Reply = &Reply{Kind: ReplyMoveRejected, Reason: reason}
	}
	return out
}

func (m *Match) committed(reply *Reply) Outcome {
	snapshot := m.state
	return Outcome{Snapshot: &snapshot, Reply: reply}
}
