// Package mcp provides a Model Context Protocol interface to live chess
// matches.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for match, seat and move operations
//   - A thin proxy over the REST API, so agents and browsers share matches
//
// MCP Tools:
//   - create_match, list_matches, get_match: match management
//   - join: issue a participant ID
//   - claim_seat, release_seat, leave_match: seat management
//   - match_state: board diagram with seats and side to move
//   - legal_moves: destinations for a piece with the flags each one needs
//   - submit_move: play a move, inferring special-move flags by default
//   - move_history: committed moves with pagination
//   - chess_rules: coordinates and the rules the server enforces
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST JSON-RPC messages to /mcp on the main server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
