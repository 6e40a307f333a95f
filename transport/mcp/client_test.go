package mcp

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/huarongpass/api"
	"github.com/wricardo/huarongpass/game/config"
	"github.com/wricardo/huarongpass/game/engine"
	"github.com/wricardo/huarongpass/game/service"
	"github.com/wricardo/huarongpass/game/session"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "ab12", "move_count": 3})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]any
	if err := client.apiCall(context.Background(), "GET", "/api", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "ab12" {
		t.Errorf("Expected id ab12, got %v", response["id"])
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://invalid-url-that-does-not-exist:9999")
		if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
			t.Error("Expected error for invalid URL")
		}
	})

	t.Run("plain status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "API error") {
			t.Errorf("Expected 'API error', got: %v", err)
		}
	})

	t.Run("error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"error": "session zz99: session not found", "code": 404})
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || err.Error() != "session zz99: session not found" {
			t.Errorf("Expected API error message, got: %v", err)
		}
	})
}

func TestClient_createSession(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(service.SessionInfo{ID: "ab12", ConfigName: "classic"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateSession(context.Background(), callRequest("create_session", map[string]any{"config_id": "classic"}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	if text := resultText(t, result); !strings.Contains(text, "ab12") {
		t.Errorf("Expected session ID in result, got: %s", text)
	}
	if gotBody["config_id"] != "classic" {
		t.Errorf("Expected config_id to be forwarded, got %v", gotBody)
	}
}

func TestClient_moveForwardsArguments(t *testing.T) {
	var gotBody map[string]any
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(service.MoveResult{Success: true, GameState: &engine.GameState{}})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.handleMove(context.Background(), callRequest("move", map[string]any{
		"session_id": "ab12",
		"piece":      "bing0",
		"direction":  "right",
		"cells":      float64(2),
		"reset":      true,
	}))
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}

	if gotPath != "/api/sessions/ab12/move" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotBody["piece"] != "bing0" || gotBody["direction"] != "right" || gotBody["cells"] != float64(2) || gotBody["reset"] != true {
		t.Errorf("Unexpected body %v", gotBody)
	}
}

func TestMoveInputFromArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		want    service.MoveInput
		wantErr string
	}{
		{"direction and cells", map[string]any{"piece": "bing0", "direction": "up", "cells": float64(2)}, service.MoveInput{Piece: "bing0", Direction: "up", Cells: 2}, ""},
		{"axis and delta", map[string]any{"piece": "cao", "axis": "vertical", "delta": float64(-150)}, service.MoveInput{Piece: "cao", Axis: "vertical", Delta: -150}, ""},
		{"cells as text", map[string]any{"piece": "guan", "direction": "left", "cells": "1"}, service.MoveInput{Piece: "guan", Direction: "left", Cells: 1}, ""},
		{"fractional cells", map[string]any{"piece": "bing0", "direction": "up", "cells": 1.5}, service.MoveInput{}, "whole number"},
		{"huge cells", map[string]any{"piece": "bing0", "direction": "up", "cells": 2305843009213693953.0}, service.MoveInput{}, "between"},
		{"huge delta", map[string]any{"piece": "bing0", "axis": "x", "delta": -1e300}, service.MoveInput{}, "between"},
		{"infinite delta", map[string]any{"piece": "bing0", "axis": "x", "delta": math.Inf(1)}, service.MoveInput{}, "whole number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := moveInputFromArgs(tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestClient_moveRejectsOverflowingCells(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handleMove(context.Background(), callRequest("move", map[string]any{
		"session_id": "ab12",
		"piece":      "bing0",
		"direction":  "up",
		"cells":      2305843009213693953.0,
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsError {
		t.Errorf("Expected a tool error, got: %s", resultText(t, result))
	}
	if called {
		t.Error("Expected the move to be rejected before reaching the API")
	}
}

func TestClient_missingSessionID(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	result, err := client.handleBoardState(context.Background(), callRequest("board_state", map[string]any{}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected a tool error without session_id")
	}
}

func TestParseMoveString(t *testing.T) {
	tests := []struct {
		in      string
		want    service.MoveInput
		wantErr bool
	}{
		{"bing1 down", service.MoveInput{Piece: "bing1", Direction: "down"}, false},
		{"bing0 RIGHT 2", service.MoveInput{Piece: "bing0", Direction: "right", Cells: 2}, false},
		{"guan:left", service.MoveInput{Piece: "guan", Direction: "left"}, false},
		{"cao", service.MoveInput{}, true},
		{"cao up two", service.MoveInput{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMoveString(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestFormatGameState(t *testing.T) {
	state := engine.NewEngineWithDefaults().GetState()
	state.MoveCount = 2
	state.TotalMoves = 9

	result := formatGameState(state)

	for _, want := range []string{
		"Moves: 2 | Total: 9",
		"aKKb\naKKb\nceed\ncghd\nf..i\n",
		"K cao",
		"1x1 at (200,600)",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in formatted output, got:\n%s", want, result)
		}
	}
}

func TestFormatGameState_ActiveDrag(t *testing.T) {
	eng := engine.NewEngineWithDefaults()
	if _, err := eng.Drag("bing1", 0, 50); err != nil {
		t.Fatal(err)
	}

	result := formatGameState(eng.GetState())
	if !strings.Contains(result, "Dragging: bing1 from (200,600)") {
		t.Errorf("Expected open drag in output, got:\n%s", result)
	}
}

func TestFormatGameState_Nil(t *testing.T) {
	if formatGameState(nil) != "No game state available" {
		t.Error("Expected placeholder for nil state")
	}
}

// newLiveClient runs the real REST stack behind an MCP client
func newLiveClient(t *testing.T) *Client {
	t.Helper()
	configs, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	gameService := service.NewGameService(session.NewManager(), configs)

	server := httptest.NewServer(api.NewServer(gameService, nil))
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func TestClient_PlayThroughREST(t *testing.T) {
	client := newLiveClient(t)
	ctx := context.Background()

	created, _ := client.handleCreateSession(ctx, callRequest("create_session", map[string]any{}))
	text := resultText(t, created)
	if created.IsError {
		t.Fatalf("create_session failed: %s", text)
	}
	sessionID := strings.TrimSpace(strings.SplitN(strings.TrimPrefix(text, "Created session: "), "\n", 2)[0])

	moved, _ := client.handleMove(ctx, callRequest("move", map[string]any{
		"session_id": sessionID,
		"piece":      "bing1",
		"direction":  "down",
	}))
	if text := resultText(t, moved); moved.IsError || !strings.Contains(text, "✓ Move successful") || !strings.Contains(text, "fg.i") {
		t.Fatalf("Unexpected move output:\n%s", text)
	}

	blocked, _ := client.handleMove(ctx, callRequest("move", map[string]any{
		"session_id": sessionID,
		"piece":      "cao",
		"direction":  "up",
	}))
	if text := resultText(t, blocked); !strings.Contains(text, "did not move") {
		t.Errorf("Expected blocked move, got:\n%s", text)
	}

	bulk, _ := client.handleBulkMove(ctx, callRequest("bulk_move", map[string]any{
		"session_id": sessionID,
		"moves": []any{
			"bing2 down",
			map[string]any{"piece": "lu", "direction": "up"},
			"bing3 left",
		},
	}))
	text = resultText(t, bulk)
	if !strings.Contains(text, "Executed 1/3 moves") || !strings.Contains(text, "Stopped:") {
		t.Errorf("Expected bulk move to stop at the unknown piece, got:\n%s", text)
	}

	dragged, _ := client.handleDrag(ctx, callRequest("drag", map[string]any{
		"session_id": sessionID,
		"piece":      "bing2",
		"dy":         float64(-500),
	}))
	if text := resultText(t, dragged); dragged.IsError || !strings.Contains(text, "requested -500, applied -200") {
		t.Errorf("Unexpected drag output:\n%s", text)
	}
	ended, _ := client.handleEndDrag(ctx, callRequest("end_drag", map[string]any{"session_id": sessionID}))
	if ended.IsError {
		t.Errorf("end_drag failed: %s", resultText(t, ended))
	}

	again, _ := client.handleCancelDrag(ctx, callRequest("cancel_drag", map[string]any{"session_id": sessionID}))
	if !again.IsError {
		t.Error("Expected cancel_drag to fail without an open gesture")
	}

	history, _ := client.handleMoveHistory(ctx, callRequest("move_history", map[string]any{
		"session_id": sessionID,
		"limit":      float64(10),
	}))
	if text := resultText(t, history); !strings.Contains(text, "Total: 4 moves") {
		t.Errorf("Unexpected history:\n%s", text)
	}

	possible, _ := client.handlePossibleMoves(ctx, callRequest("possible_moves", map[string]any{"session_id": sessionID}))
	if possible.IsError {
		t.Errorf("possible_moves failed: %s", resultText(t, possible))
	}

	reset, _ := client.handleReset(ctx, callRequest("reset_game", map[string]any{"session_id": sessionID}))
	if text := resultText(t, reset); !strings.Contains(text, "cghd") {
		t.Errorf("Expected opening layout after reset, got:\n%s", text)
	}

	missing, _ := client.handleBoardState(ctx, callRequest("board_state", map[string]any{"session_id": "zz99"}))
	if !missing.IsError {
		t.Error("Expected error for unknown session")
	}
}
