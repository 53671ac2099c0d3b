// Package api provides the HTTP REST API for live chess matches.
//
// Endpoints:
//
// Matches:
//   - POST /api/matches - Create a match (optional {"id": "..."})
//   - GET /api/matches - List matches (sort=created|activity, order=asc|desc, limit)
//   - GET /api/matches/{id} - Get one match
//   - DELETE /api/matches/{id} - Delete a match
//
// Play:
//   - POST /api/participants - Issue a participant handle
//   - POST /api/matches/{id}/seats - Claim a color
//   - POST /api/matches/{id}/seats/release - Give up a color
//   - POST /api/matches/{id}/moves - Submit a move
//   - POST /api/matches/{id}/disconnect - Release the seat the participant holds
//
// Queries:
//   - GET /api/matches/{id}/state - Current game state
//   - GET /api/matches/{id}/legal?from=row,col - Legal destinations of a piece
//   - GET /api/matches/{id}/history - Committed moves (page, limit, order)
//
// Live updates:
//   - GET /ws?match={id} - WebSocket upgrade, see package websocket
//
// A move body looks like:
//
//	{
//	  "participant": "3f1c...",
//	  "from": "6,4",
//	  "to": "4,4",
//	  "promotionPiece": "queen",  // optional
//	  "infer_flags": true         // derive en passant and castling from the board
//	}
//
// Rejected seat and move events are not HTTP errors. They return 200 with
// "success": false and a machine-friendly "code" such as out_of_turn or
// illegal_destination.
//
// Error Handling:
//
// Request errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "error message",
//	  "code": 400
//	}
package api
