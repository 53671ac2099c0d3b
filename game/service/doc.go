// Package service provides the business logic layer for the chess server.
//
// The service package implements:
//   - Match creation, lookup, listing and deletion
//   - Participant handle issuing
//   - Seat and move operations with machine-friendly rejection codes
//   - Legal move queries annotated with special-move flags
//   - Paginated move history
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// MatchStore is the storage and dispatch contract it depends on; the
// session Manager satisfies it.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the session package. Seat and move rejections are not Go errors here:
// they come back as an ActionResult with Success false and a Code such as
// "out_of_turn" or "seat_unavailable". Errors are reserved for a missing
// match or a malformed request.
//
// Usage:
//
//	manager := session.NewManager(cfg.SessionOptions())
//	svc := service.NewGameService(manager)
//
//	match, _ := svc.CreateMatch(ctx, "")
//	me, _ := svc.NewParticipant(ctx)
//	res, _ := svc.ClaimSeat(ctx, match.ID, me, board.White)
package service
