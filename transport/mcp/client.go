package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Live Chess",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Live Chess - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A match has two seats, white and black. Join once to get a participant ID,
claim a seat, then submit moves when it is your turn. White moves first once
both seats are taken. Squares are "row,col" with row 0 on Black's back rank
and row 7 on White's.

AVAILABLE TOOLS:
- create_match / list_matches / get_match: match management
- join: get a participant ID
- claim_seat / release_seat / leave_match: seat management
- match_state: board diagram, seats and side to move
- legal_moves: where a piece may go, with the flags each move needs
- submit_move: play a move (flags are inferred unless infer_flags is false)
- move_history: committed moves
- chess_rules: board coordinates and the rules this server enforces

NOTE: The 'intent' parameter on submit_move serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func colorProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"white", "black"},
		"description": "Seat color",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Match management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_match",
		Description: "Create a new match in the opening position",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": stringProp("Custom match ID (optional, generated when empty)"),
			},
		},
	}, c.handleCreateMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_matches",
		Description: "List all live matches",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListMatches)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_match",
		Description: "Get details of a specific match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": stringProp("Match ID"),
			},
			Required: []string{"match_id"},
		},
	}, c.handleGetMatch)

	// Participants and seats
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join",
		Description: "Get a new participant ID to claim seats and move with",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleJoin)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "claim_seat",
		Description: "Claim the white or black seat of a match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id":    stringProp("Match ID"),
				"participant": stringProp("Participant ID from join"),
				"color":       colorProp(),
			},
			Required: []string{"match_id", "participant", "color"},
		},
	}, c.handleClaimSeat)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "release_seat",
		Description: "Give up a seat you hold",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id":    stringProp("Match ID"),
				"participant": stringProp("Participant ID from join"),
				"color":       colorProp(),
			},
			Required: []string{"match_id", "participant", "color"},
		},
	}, c.handleReleaseSeat)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_match",
		Description: "Leave a match, releasing whatever seat you hold",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id":    stringProp("Match ID"),
				"participant": stringProp("Participant ID from join"),
			},
			Required: []string{"match_id", "participant"},
		},
	}, c.handleLeaveMatch)

	// Match state
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_state",
		Description: "Get the board, seats and side to move",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": stringProp("Match ID"),
			},
			Required: []string{"match_id"},
		},
	}, c.handleMatchState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "legal_moves",
		Description: "List legal destinations for the piece on a square",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": stringProp("Match ID"),
				"from":     stringProp(`Origin square as "row,col"`),
			},
			Required: []string{"match_id", "from"},
		},
	}, c.handleLegalMoves)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_move",
		Description: "Move a piece of your color",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id":    stringProp("Match ID"),
				"participant": stringProp("Participant ID from join"),
				"from":        stringProp(`Origin square as "row,col"`),
				"to":          stringProp(`Destination square as "row,col"`),
				"promotion": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"queen", "rook", "bishop", "knight"},
					"description": "Promotion piece when a pawn reaches the last rank",
				},
				"infer_flags": map[string]interface{}{
					"type":        "boolean",
					"description": "Derive en passant and castling flags from the board (default true)",
				},
				"intent": stringProp("Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)"),
			},
			Required: []string{"match_id", "participant", "from", "to"},
		},
	}, c.handleSubmitMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the committed moves of a match with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": stringProp("Match ID"),
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Moves per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"match_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "chess_rules",
		Description: "Get board coordinates and the rules this server enforces",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleChessRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"].(string); ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func matchPath(matchID string, parts ...string) string {
	return "/api/matches/" + url.PathEscape(matchID) + strings.Join(parts, "")
}

// Tool handlers

func (c *Client) handleCreateMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)

	var match service.MatchInfo
	if err := c.apiCall(ctx, "POST", "/api/matches", map[string]string{"id": matchID}, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Match created: %s\n\n%s", match.ID, formatMatchInfo(&match))), nil
}

func (c *Client) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count   int                  `json:"count"`
		Matches []*service.MatchInfo `json:"matches"`
	}
	if err := c.apiCall(ctx, "GET", "/api/matches", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Matches) == 0 {
		return mcp.NewToolResultText("No live matches. Use create_match to start one."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Live matches (%d):\n", resp.Count))
	for _, m := range resp.Matches {
		sb.WriteString(fmt.Sprintf("- %s  phase=%s moves=%d", m.ID, m.Phase, m.Moves))
		if m.GameState != nil {
			sb.WriteString(fmt.Sprintf("  white=%s black=%s", seatLabel(m.GameState.White), seatLabel(m.GameState.Black)))
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID, _ := arguments(request)["match_id"].(string)

	var match service.MatchInfo
	if err := c.apiCall(ctx, "GET", matchPath(matchID), nil, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMatchInfo(&match)), nil
}

func (c *Client) handleJoin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Participant string `json:"participant"`
	}
	if err := c.apiCall(ctx, "POST", "/api/participants", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Your participant ID: %s\nPass it as 'participant' to claim_seat and submit_move.", resp.Participant)), nil
}

func (c *Client) handleClaimSeat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.seatAction(ctx, request, "/seats")
}

func (c *Client) handleReleaseSeat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.seatAction(ctx, request, "/seats/release")
}

func (c *Client) seatAction(ctx context.Context, request mcp.CallToolRequest, suffix string) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)
	participant, _ := args["participant"].(string)
	color, _ := args["color"].(string)

	body := map[string]string{
		"participant": participant,
		"color":       color,
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", matchPath(matchID, suffix), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleLeaveMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)
	participant, _ := args["participant"].(string)

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", matchPath(matchID, "/disconnect"), map[string]string{"participant": participant}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleMatchState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID, _ := arguments(request)["match_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", matchPath(matchID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleLegalMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)
	from, _ := args["from"].(string)

	var result service.LegalMovesResult
	path := matchPath(matchID, "/legal") + "?from=" + url.QueryEscape(from)
	if err := c.apiCall(ctx, "GET", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLegalMoves(&result)), nil
}

func (c *Client) handleSubmitMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)
	participant, _ := args["participant"].(string)
	from, _ := args["from"].(string)
	to, _ := args["to"].(string)
	promotion, _ := args["promotion"].(string)
	intent, _ := args["intent"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = intent

	inferFlags := true
	if v, ok := args["infer_flags"].(bool); ok {
		inferFlags = v
	}

	body := map[string]interface{}{
		"participant":    participant,
		"from":           from,
		"to":             to,
		"promotionPiece": promotion,
		"infer_flags":    inferFlags,
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", matchPath(matchID, "/moves"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)

	query := url.Values{}
	if page, ok := args["page"].(float64); ok && page > 0 {
		query.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		query.Set("order", order)
	}

	path := matchPath(matchID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleChessRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(chessRules), nil
}

const chessRules = `Live Chess - Rules and Coordinates

BOARD COORDINATES:
Squares are written "row,col", both 0-7. Row 0 is Black's back rank and
row 7 is White's. Column 0 is the a-file, so White's king starts on "7,4"
and Black's king on "0,4". White pawns move toward row 0.

SEATS AND TURNS:
- A match has one white seat and one black seat.
- A participant may hold only one seat per match.
- White moves first once both seats are taken.
- Leaving the match or disconnecting releases your seat. The board is kept.
- Moving out of turn, or without a seat, is rejected and nothing changes.

MOVES:
- Every piece moves by the standard rules. Captures take the enemy piece.
- A king can never move onto a square the opponent attacks.
- Pawns may advance two squares from their starting row if both squares are empty.
- En passant: right after an enemy pawn advances two squares beside your pawn,
  you may capture it by moving diagonally behind it.
- Castling: king moves two squares toward a rook when neither has moved, the
  squares between are empty, and the king does not start in, cross, or land on
  an attacked square.
- Promotion: a pawn reaching the last row must name queen, rook, bishop or knight.

SPECIAL-MOVE FLAGS:
submit_move infers en passant and castling from the board by default. With
infer_flags=false the flags you send must match the move exactly, or it is
rejected as an illegal destination.

CHECKMATE:
When checkmate detection is enabled the match concludes on mate and no
further moves are accepted.`

// Formatting helpers

func seatLabel(p engine.ParticipantID) string {
	if p == "" {
		return "(open)"
	}
	return string(p)
}

func formatMatchInfo(match *service.MatchInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Match: %s\nPhase: %s\nMoves: %d\n", match.ID, match.Phase, match.Moves))
	if match.GameState != nil {
		sb.WriteString("\n")
		sb.WriteString(formatGameState(match.GameState))
	}
	return sb.String()
}

func formatGameState(state *engine.GameState) string {
	var sb strings.Builder

	sb.WriteString(state.Board.String())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("White: %s\n", seatLabel(state.White)))
	sb.WriteString(fmt.Sprintf("Black: %s\n", seatLabel(state.Black)))

	switch {
	case state.Checkmate:
		sb.WriteString(fmt.Sprintf("♚ CHECKMATE - %s wins\n", state.Turn.Opponent()))
	case state.Turn == board.NoColor:
		sb.WriteString("Turn: waiting for both seats\n")
	default:
		sb.WriteString(fmt.Sprintf("Turn: %s\n", state.Turn))
		if engine.InCheck(state.Board, state.Turn) {
			sb.WriteString("⚠ CHECK\n")
		}
	}

	if state.LastMove != nil {
		sb.WriteString(fmt.Sprintf("Last move: %s -> %s\n", state.LastMove.From, state.LastMove.To))
	}
	return sb.String()
}

func formatActionResult(result *service.ActionResult) string {
	var sb strings.Builder

	if result.Success {
		sb.WriteString("✓ Accepted")
	} else {
		sb.WriteString("✗ Rejected")
		if result.Code != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", result.Code))
		}
		if result.Message != "" {
			sb.WriteString(": " + result.Message)
		}
	}
	sb.WriteString(fmt.Sprintf("\nPhase: %s\n", result.Phase))

	if result.GameState != nil {
		sb.WriteString("\n")
		sb.WriteString(formatGameState(result.GameState))
	}
	return sb.String()
}

func formatLegalMoves(result *service.LegalMovesResult) string {
	if result.Piece == "" {
		return fmt.Sprintf("No piece on %s.", result.From)
	}
	if len(result.Moves) == 0 {
		return fmt.Sprintf("%s %s on %s has no legal moves.", result.Color, result.Piece, result.From)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s on %s can move to:\n", result.Color, result.Piece, result.From))
	for _, m := range result.Moves {
		sb.WriteString("- " + m.To.String())
		var notes []string
		if m.Capture {
			notes = append(notes, "capture")
		}
		if m.EnPassant {
			notes = append(notes, "en passant")
		}
		if m.Castling != nil {
			notes = append(notes, fmt.Sprintf("castling, rook %s -> %s", m.Castling.RookFrom, m.Castling.RookTo))
		}
		if m.RequiresPromotion {
			notes = append(notes, "promotion required")
		}
		if len(notes) > 0 {
			sb.WriteString(" (" + strings.Join(notes, ", ") + ")")
		}
		sb.WriteString("\n")
	}
	if result.Turn != result.Color {
		sb.WriteString(fmt.Sprintf("Note: it is %s's turn.\n", result.Turn))
	}
	return sb.String()
}

func formatHistory(history *service.HistoryResponse) string {
	if history.TotalMoves == 0 {
		return "No moves played yet."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Move history (page %d/%d, %d total):\n", history.Page, history.TotalPages, history.TotalMoves))
	for _, m := range history.Moves {
		sb.WriteString(fmt.Sprintf("%3d. %-5s %s -> %s", m.Seq, m.Color, m.From, m.To))
		if m.Promotion != board.NoKind {
			sb.WriteString(" =" + m.Promotion.String())
		}
		if m.Castling {
			sb.WriteString(" castle")
		}
		if m.EnPassant {
			sb.WriteString(" e.p.")
		}
		if m.Check {
			sb.WriteString(" +")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
