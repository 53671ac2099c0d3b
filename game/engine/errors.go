package engine

import (
	"errors"
	"fmt"

	"github.com/wricardo/livechess/game/board"
)

var (
	ErrOutOfTurn          = errors.New("out of turn")
	ErrIllegalDestination = errors.New("illegal destination")
)

// MoveError describes why a proposed move was rejected. It unwraps to
// ErrOutOfTurn or ErrIllegalDestination.
type MoveError struct {
	Err    error
	From   board.Square
	To     board.Square
	Reason string
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("%v: %s -> %s: %s", e.Err, e.From, e.To, e.Reason)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

func illegal(req MoveRequest, reason string) *MoveError {
	return &MoveError{Err: ErrIllegalDestination, From: req.From, To: req.To, Reason: reason}
}

func outOfTurn(req MoveRequest, reason string) *MoveError {
	return &MoveError{Err: ErrOutOfTurn, From: req.From, To: req.To, Reason: reason}
}
