// Package websocket provides the live WebSocket transport for chess matches.
//
// The websocket package implements:
//   - One participant identity per connection
//   - Decoding of client events into match events
//   - Broadcast of committed state to every client in a match
//   - Direct replies routed to the requesting participant only
//   - Seat release when a connection closes
//
// Architecture:
//
// A central Hub owns the set of clients per match. Each connection has a
// read goroutine that dispatches events to the match store and a write
// goroutine that drains its send buffer. The Hub implements
// session.Notifier, so the match store pushes broadcasts and replies into
// the hub loop in commit order.
//
// Message Protocol:
//
// Every frame is a JSON object {event, match_id, data}.
//   - Incoming: chooseSide("white"|"black"), giveUpSeat(color),
//     makeMove({from, to, isEnPassant, promotionPiece, castling})
//   - Outgoing: connected, gameState, sideChosen, sideUnavailable,
//     sideGivenUp, and the optional seatNotHeld and moveRejected
//
// Squares are encoded as "row,col" with row 0 on Black's back rank.
//
// Usage:
//
//	manager := session.NewManager(opts)
//	hub := websocket.NewHub(manager, cfg.Server.AllowedOrigins)
//	manager.AttachNotifier(hub)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("match"))
//	})
//
// Connection Lifecycle:
//
// 1. Client connects with a match ID
// 2. Connection registered with the hub and assigned a participant ID
// 3. connected and the current gameState are sent to the client
// 4. Client sends events, receives state updates and replies
// 5. Disconnection releases any seat and unregisters the client
package websocket
