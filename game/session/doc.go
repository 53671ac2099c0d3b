// Package session owns the authoritative state of live chess matches.
//
// The session package implements:
//   - Seat arbitration for the two colors of a match
//   - Turn enforcement and move application through the engine package
//   - Per-match serialization of inbound events
//   - Match lifecycle: creation, listing, expiry and deletion
//
// Core Types:
//
// Match holds one GameState and applies Events to it. The event set is
// closed (ClaimSeat, ReleaseSeat, SubmitMove, Disconnect) and Handle
// matches it exhaustively. Each call returns an Outcome naming the snapshot
// to broadcast, if any, and the reply for the requester, if any.
//
// Manager keeps many matches keyed by a short case-insensitive ID. It locks
// a match while an event is applied and while the Notifier is told about
// the result, so observers see snapshots in commit order.
//
// Phases:
//
// A match is Empty, OneSeated, Ready (both seats taken, White to move, no
// move yet), InProgress, or Concluded once checkmate is detected. Releasing
// a seat clears the turn but leaves the board as it was.
//
// Usage:
//
//	manager := session.NewManager(session.Options{
//		Rules:               engine.Rules{StrictSelfCheck: true},
//		ConcludeOnCheckmate: true,
//	})
//	manager.AttachNotifier(hub)
//
//	match, _ := manager.Create("")
//	out, err := manager.Dispatch(match.ID, "p1", session.ClaimSeat{Color: board.White})
package session
