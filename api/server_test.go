package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/livechess/game/board"
	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/game/service"
	"github.com/wricardo/livechess/game/session"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Match Management
	CreateMatchFunc func(ctx context.Context, matchID string) (*service.MatchInfo, error)
	GetMatchFunc    func(ctx context.Context, matchID string) (*service.MatchInfo, error)
	ListMatchesFunc func(ctx context.Context) ([]*service.MatchInfo, error)
	DeleteMatchFunc func(ctx context.Context, matchID string) error

	NewParticipantFunc func(ctx context.Context) (engine.ParticipantID, error)

	// Match Operations
	ClaimSeatFunc   func(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*service.ActionResult, error)
	ReleaseSeatFunc func(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*service.ActionResult, error)
	SubmitMoveFunc  func(ctx context.Context, matchID string, p engine.ParticipantID, in service.MoveInput) (*service.ActionResult, error)
	DisconnectFunc  func(ctx context.Context, matchID string, p engine.ParticipantID) (*service.ActionResult, error)

	// Match State
	GetGameStateFunc   func(ctx context.Context, matchID string) (*engine.GameState, error)
	LegalMovesFunc     func(ctx context.Context, matchID string, from board.Square) (*service.LegalMovesResult, error)
	GetMoveHistoryFunc func(ctx context.Context, matchID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
}

func (m *MockGameService) CreateMatch(ctx context.Context, matchID string) (*service.MatchInfo, error) {
	if m.CreateMatchFunc != nil {
		return m.CreateMatchFunc(ctx, matchID)
	}
	return &service.MatchInfo{ID: "test-match", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetMatch(ctx context.Context, matchID string) (*service.MatchInfo, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(ctx, matchID)
	}
	return &service.MatchInfo{ID: matchID, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListMatches(ctx context.Context) ([]*service.MatchInfo, error) {
	if m.ListMatchesFunc != nil {
		return m.ListMatchesFunc(ctx)
	}
	return []*service.MatchInfo{}, nil
}

func (m *MockGameService) DeleteMatch(ctx context.Context, matchID string) error {
	if m.DeleteMatchFunc != nil {
		return m.DeleteMatchFunc(ctx, matchID)
	}
	return nil
}

func (m *MockGameService) NewParticipant(ctx context.Context) (engine.ParticipantID, error) {
	if m.NewParticipantFunc != nil {
		return m.NewParticipantFunc(ctx)
	}
	return "participant-1", nil
}

func (m *MockGameService) ClaimSeat(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*service.ActionResult, error) {
	if m.ClaimSeatFunc != nil {
		return m.ClaimSeatFunc(ctx, matchID, p, color)
	}
	return &service.ActionResult{Success: true}, nil
}

func (m *MockGameService) ReleaseSeat(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*service.ActionResult, error) {
	if m.ReleaseSeatFunc != nil {
		return m.ReleaseSeatFunc(ctx, matchID, p, color)
	}
	return &service.ActionResult{Success: true}, nil
}

func (m *MockGameService) SubmitMove(ctx context.Context, matchID string, p engine.ParticipantID, in service.MoveInput) (*service.ActionResult, error) {
	if m.SubmitMoveFunc != nil {
		return m.SubmitMoveFunc(ctx, matchID, p, in)
	}
	return &service.ActionResult{Success: true}, nil
}

func (m *MockGameService) Disconnect(ctx context.Context, matchID string, p engine.ParticipantID) (*service.ActionResult, error) {
	if m.DisconnectFunc != nil {
		return m.DisconnectFunc(ctx, matchID, p)
	}
	return &service.ActionResult{Success: true}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, matchID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, matchID)
	}
	state := engine.NewGameState()
	return &state, nil
}

func (m *MockGameService) LegalMoves(ctx context.Context, matchID string, from board.Square) (*service.LegalMovesResult, error) {
	if m.LegalMovesFunc != nil {
		return m.LegalMovesFunc(ctx, matchID, from)
	}
	return &service.LegalMovesResult{From: from}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, matchID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, matchID, opts)
	}
	return &service.HistoryResponse{
		Moves:      []session.HistoryEntry{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

// Test helpers
func setupTestServer(mockService *MockGameService) *Server {
	return NewServer(mockService, nil)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	msg, _ := resp["error"].(string)
	return msg
}

// Match Management Tests

func TestCreateMatch(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create match with generated ID",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateMatchFunc = func(ctx context.Context, matchID string) (*service.MatchInfo, error) {
					if matchID != "" {
						t.Errorf("Expected empty match ID, got %q", matchID)
					}
					return &service.MatchInfo{ID: "a1b2"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MatchInfo
				parseResponse(t, w, &resp)
				if resp.ID != "a1b2" {
					t.Errorf("Expected match ID a1b2, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create match with custom ID",
			requestBody: map[string]string{"id": "friday"},
			setupMock: func(m *MockGameService) {
				m.CreateMatchFunc = func(ctx context.Context, matchID string) (*service.MatchInfo, error) {
					return &service.MatchInfo{ID: matchID}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Duplicate ID",
			requestBody: map[string]string{"id": "friday"},
			setupMock: func(m *MockGameService) {
				m.CreateMatchFunc = func(ctx context.Context, matchID string) (*service.MatchInfo, error) {
					return nil, fmt.Errorf("failed to create match: %w", session.ErrMatchAlreadyExists)
				}
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "ID too long",
			requestBody:    map[string]string{"id": string(bytes.Repeat([]byte("x"), 65))},
			expectedStatus: http.StatusBadRequest,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorOf(t, w); msg != "validation failed: ID must be at most 64 characters" {
					t.Errorf("unexpected error %q", msg)
				}
			},
		},
		{
			name:        "Handle service error",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateMatchFunc = func(ctx context.Context, matchID string) (*service.MatchInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorOf(t, w); msg != "service error" {
					t.Errorf("Expected error message 'service error', got %s", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/matches", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListMatches(t *testing.T) {
	now := time.Now()
	mockService := &MockGameService{
		ListMatchesFunc: func(ctx context.Context) ([]*service.MatchInfo, error) {
			return []*service.MatchInfo{
				{ID: "old", CreatedAt: now.Add(-time.Hour), LastActivity: now.Add(-time.Minute)},
				{ID: "new", CreatedAt: now, LastActivity: now.Add(-time.Hour)},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		query     string
		wantFirst string
		wantCount int
	}{
		{"", "old", 2},
		{"?sort=created", "new", 2},
		{"?sort=created&order=asc", "old", 2},
		{"?sort=created&limit=1", "new", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/matches"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status %d", w.Code)
			}
			var resp struct {
				Count   int                  `json:"count"`
				Total   int                  `json:"total"`
				Matches []*service.MatchInfo `json:"matches"`
			}
			parseResponse(t, w, &resp)
			if resp.Count != tt.wantCount || resp.Total != 2 {
				t.Errorf("count = %d total = %d", resp.Count, resp.Total)
			}
			if resp.Matches[0].ID != tt.wantFirst {
				t.Errorf("first = %s, want %s", resp.Matches[0].ID, tt.wantFirst)
			}
		})
	}
}

func TestGetAndDeleteMatch(t *testing.T) {
	mockService := &MockGameService{
		GetMatchFunc: func(ctx context.Context, matchID string) (*service.MatchInfo, error) {
			if matchID == "missing" {
				return nil, session.ErrMatchNotFound
			}
			return &service.MatchInfo{ID: matchID}, nil
		},
		DeleteMatchFunc: func(ctx context.Context, matchID string) error {
			if matchID == "missing" {
				return session.ErrMatchNotFound
			}
			return nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/api/matches/abcd", http.StatusOK},
		{"GET", "/api/matches/missing", http.StatusNotFound},
		{"DELETE", "/api/matches/abcd", http.StatusOK},
		{"DELETE", "/api/matches/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestNewParticipant(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/participants", nil))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["participant"] != "participant-1" {
		t.Errorf("participant = %q", resp["participant"])
	}
}

// Match Event Tests

func TestClaimSeat(t *testing.T) {
	var gotColor board.Color
	var gotParticipant engine.ParticipantID
	mockService := &MockGameService{
		ClaimSeatFunc: func(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*service.ActionResult, error) {
			gotColor, gotParticipant = color, p
			return &service.ActionResult{Success: true, Phase: session.PhaseOneSeated}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"valid", map[string]string{"participant": "p1", "color": "black"}, http.StatusOK},
		{"missing participant", map[string]string{"color": "black"}, http.StatusBadRequest},
		{"bad color", map[string]string{"participant": "p1", "color": "green"}, http.StatusBadRequest},
		{"empty body", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/matches/abcd/seats", tt.body))
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}

	if gotColor != board.Black || gotParticipant != "p1" {
		t.Errorf("service got color %v participant %q", gotColor, gotParticipant)
	}
}

func TestReleaseSeatAndDisconnect(t *testing.T) {
	released, disconnected := false, false
	mockService := &MockGameService{
		ReleaseSeatFunc: func(ctx context.Context, matchID string, p engine.ParticipantID, color board.Color) (*service.ActionResult, error) {
			released = color == board.White && p == "p1"
			return &service.ActionResult{Success: true}, nil
		},
		DisconnectFunc: func(ctx context.Context, matchID string, p engine.ParticipantID) (*service.ActionResult, error) {
			disconnected = p == "p1"
			return &service.ActionResult{Success: true}, nil
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/matches/abcd/seats/release", map[string]string{"participant": "p1", "color": "white"}))
	if w.Code != http.StatusOK || !released {
		t.Errorf("release: status %d released %v", w.Code, released)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/matches/abcd/disconnect", map[string]string{"participant": "p1"}))
	if w.Code != http.StatusOK || !disconnected {
		t.Errorf("disconnect: status %d disconnected %v", w.Code, disconnected)
	}
}

func TestSubmitMove(t *testing.T) {
	var got service.MoveInput
	mockService := &MockGameService{
		SubmitMoveFunc: func(ctx context.Context, matchID string, p engine.ParticipantID, in service.MoveInput) (*service.ActionResult, error) {
			got = in
			return &service.ActionResult{Success: false, Code: "out_of_turn"}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		check  func(t *testing.T)
	}{
		{
			name:   "promotion",
			body:   map[string]interface{}{"participant": "p1", "from": "1,0", "to": "0,0", "promotionPiece": "queen"},
			status: http.StatusOK,
			check: func(t *testing.T) {
				if got.From != board.Sq(1, 0) || got.To != board.Sq(0, 0) || got.Promotion != board.Queen {
					t.Errorf("service got %+v", got.MoveRequest)
				}
			},
		},
		{
			name:   "castling with inferred flags",
			body:   map[string]interface{}{"participant": "p1", "from": "7,4", "to": "7,6", "infer_flags": true},
			status: http.StatusOK,
			check: func(t *testing.T) {
				if !got.InferFlags {
					t.Error("infer_flags not passed through")
				}
			},
		},
		{
			name:   "bad square",
			body:   map[string]interface{}{"participant": "p1", "from": "8,0", "to": "0,0"},
			status: http.StatusBadRequest,
		},
		{
			name:   "bad promotion piece",
			body:   map[string]interface{}{"participant": "p1", "from": "1,0", "to": "0,0", "promotionPiece": "dragon"},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing to",
			body:   map[string]interface{}{"participant": "p1", "from": "6,4"},
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/matches/abcd/moves", tt.body))
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if tt.check != nil {
				tt.check(t)
			}
		})
	}
}

// State Tests

func TestLegalMoves(t *testing.T) {
	mockService := &MockGameService{
		LegalMovesFunc: func(ctx context.Context, matchID string, from board.Square) (*service.LegalMovesResult, error) {
			return &service.LegalMovesResult{
				From:  from,
				Moves: []service.MoveOption{{To: board.Sq(5, 4)}, {To: board.Sq(4, 4)}},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/matches/abcd/legal?from=6,4", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp service.LegalMovesResult
	parseResponse(t, w, &resp)
	if resp.From != board.Sq(6, 4) || len(resp.Moves) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/matches/abcd/legal?from=e2", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed square, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name          string
		queryParams   string
		expectedPage  int
		expectedLimit int
		expectedOrder string
	}{
		{"Default parameters", "", 1, 20, "desc"},
		{"Custom page and limit", "?page=2&limit=10", 2, 10, "desc"},
		{"Ascending order", "?order=asc", 1, 20, "asc"},
		{"Invalid values fall back", "?page=-1&limit=abc&order=sideways", 1, 20, "desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				GetMoveHistoryFunc: func(ctx context.Context, matchID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					if opts.Page != tt.expectedPage || opts.Limit != tt.expectedLimit || opts.Order != tt.expectedOrder {
						t.Errorf("opts = %+v", opts)
					}
					return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit}, nil
				},
			}
			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/matches/abcd/history"+tt.queryParams, nil))
			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}
		})
	}
}

func TestWebSocketEndpoint(t *testing.T) {
	mockService := &MockGameService{
		GetMatchFunc: func(ctx context.Context, matchID string) (*service.MatchInfo, error) {
			return nil, session.ErrMatchNotFound
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/ws", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a match parameter, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/ws?match=abcd", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a hub, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

// TestMatchOverHTTP drives a real match through the REST surface.
func TestMatchOverHTTP(t *testing.T) {
	manager := session.NewManager(session.Options{Rules: engine.Rules{StrictSelfCheck: true}, NotifyRejections: true})
	server := NewServer(service.NewGameService(manager), nil)

	do := func(method, path string, body interface{}, target interface{}) int {
		t.Helper()
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest(method, path, body))
		if target != nil {
			parseResponse(t, w, target)
		}
		return w.Code
	}

	var match service.MatchInfo
	if code := do("POST", "/api/matches", map[string]string{"id": "http-game"}, &match); code != http.StatusCreated {
		t.Fatalf("create: %d", code)
	}

	var white, black map[string]string
	do("POST", "/api/participants", nil, &white)
	do("POST", "/api/participants", nil, &black)

	var result service.ActionResult
	do("POST", "/api/matches/http-game/seats", map[string]string{"participant": white["participant"], "color": "white"}, &result)
	do("POST", "/api/matches/http-game/seats", map[string]string{"participant": black["participant"], "color": "black"}, &result)
	if !result.Success || result.Phase != session.PhaseReady {
		t.Fatalf("seating: %+v", result)
	}

	result = service.ActionResult{}
	do("POST", "/api/matches/http-game/moves", map[string]string{"participant": black["participant"], "from": "1,4", "to": "3,4"}, &result)
	if result.Success || result.Code != "out_of_turn" {
		t.Errorf("black first: %+v", result)
	}

	result = service.ActionResult{}
	do("POST", "/api/matches/http-game/moves", map[string]string{"participant": white["participant"], "from": "6,4", "to": "4,4"}, &result)
	if !result.Success || result.GameState.Turn != board.Black {
		t.Errorf("white e-pawn: %+v", result)
	}

	var history service.HistoryResponse
	do("GET", "/api/matches/http-game/history", nil, &history)
	if history.TotalMoves != 1 {
		t.Errorf("history total = %d", history.TotalMoves)
	}

	if code := do("GET", "/api/matches/nope/state", nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown match state: %d", code)
	}
}
