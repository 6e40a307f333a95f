package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/huarongpass/game/engine"
	"github.com/wricardo/huarongpass/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	log        log15.Logger
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log15.New("module", "mcp"),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Huarong Pass",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Huarong Pass - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Slide the blocks so the 2x2 key piece (K) reaches the gate in the bottom
edge of the board. Blocks slide along one axis at a time and stop flush
against neighbours and walls.

AVAILABLE TOOLS:
- board_state: Current board with a character grid and legend
- possible_moves: Every one-cell move that would displace a piece
- move: Slide one piece (direction and cells, or axis and pixel delta)
- bulk_move: Several moves in sequence, stops at the first invalid one
- drag / end_drag / cancel_drag: Step-by-step gesture control
- reset_game: Back to the opening layout
- move_history: Completed moves
- create_session / get_session / list_sessions: Session management
- list_configs: Available layouts
- game_instructions: Full rules

NOTE: The 'intent' parameter on move/bulk_move tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

func moveProperties() map[string]any {
	return map[string]any{
		"piece": map[string]any{
			"type":        "string",
			"description": "Name of the piece to slide",
		},
		"direction": map[string]any{
			"type":        "string",
			"enum":        []string{"up", "down", "left", "right"},
			"description": "Direction to slide (use with cells)",
		},
		"cells": map[string]any{
			"type":        "integer",
			"description": "Number of grid cells to slide (default 1)",
		},
		"axis": map[string]any{
			"type":        "string",
			"enum":        []string{"horizontal", "vertical"},
			"description": "Axis for a raw pixel move (use with delta)",
		},
		"delta": map[string]any{
			"type":        "integer",
			"description": "Signed pixel displacement along axis",
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new puzzle session with optional layout selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_id": map[string]any{
					"type":        "string",
					"description": "Layout to start from (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active puzzle sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_state",
		Description: "Get the current board, move count and any open drag",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleBoardState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "possible_moves",
		Description: "List every one-cell move that would displace a piece",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handlePossibleMoves)

	moveProps := moveProperties()
	moveProps["session_id"] = sessionProperty()
	moveProps["intent"] = map[string]any{
		"type":        "string",
		"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
	}
	moveProps["reset"] = map[string]any{
		"type":        "boolean",
		"description": "Reset before moving",
	}
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Slide one piece as far as it can go up to the requested distance",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: moveProps,
			Required:   []string{"session_id", "piece"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d moves in sequence. Each move is an object or a string like \"bing1 down 2\".", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"moves": map[string]any{
					"type": "array",
					"items": map[string]any{
						"anyOf": []any{
							map[string]any{"type": "string"},
							map[string]any{"type": "object", "properties": moveProperties()},
						},
					},
					"description": "Array of moves",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]any{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drag",
		Description: "Send one drag update: dx and dy are pixel displacements since the previous update, on one axis only",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"piece": map[string]any{
					"type":        "string",
					"description": "Name of the piece being dragged",
				},
				"dx": map[string]any{
					"type":        "number",
					"description": "Horizontal displacement in pixels",
				},
				"dy": map[string]any{
					"type":        "number",
					"description": "Vertical displacement in pixels",
				},
			},
			Required: []string{"session_id", "piece"},
		},
	}, c.handleDrag)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_drag",
		Description: "Finish the open drag gesture and record it as a move",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleEndDrag)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cancel_drag",
		Description: "Drop the open drag gesture without counting a move. The piece stays where it is.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleCancelDrag)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the board to its opening layout",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"page": map[string]any{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available layouts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the puzzle and how the tools map to them",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
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
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// numberArg reads a JSON number argument, which arrives as float64
func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// intArg reads a whole-number argument no larger in magnitude than limit
func intArg(args map[string]any, key string, limit int) (int, bool, error) {
	v, ok := numberArg(args, key)
	if !ok {
		return 0, false, nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, true, fmt.Errorf("%s must be a whole number, got %v", key, v)
	}
	if math.Abs(v) > float64(limit) {
		return 0, true, fmt.Errorf("%s must be between %d and %d, got %v", key, -limit, limit, v)
	}
	return int(v), true, nil
}

// moveInputFromArgs reads one move from tool arguments
func moveInputFromArgs(args map[string]any) (service.MoveInput, error) {
	var in service.MoveInput
	in.Piece, _ = args["piece"].(string)
	in.Direction, _ = args["direction"].(string)
	in.Axis, _ = args["axis"].(string)
	if v, ok, err := intArg(args, "cells", engine.MaxDragDelta); err != nil {
		return in, err
	} else if ok {
		in.Cells = v
	}
	if v, ok, err := intArg(args, "delta", engine.MaxDragDelta); err != nil {
		return in, err
	} else if ok {
		in.Delta = v
	}
	return in, nil
}

// parseMoveString reads the compact form "piece direction [cells]"
func parseMoveString(s string) (service.MoveInput, error) {
	fields := strings.Fields(strings.NewReplacer(":", " ", ",", " ").Replace(s))
	if len(fields) < 2 || len(fields) > 3 {
		return service.MoveInput{}, fmt.Errorf("move %q: expected \"piece direction [cells]\"", s)
	}
	in := service.MoveInput{Piece: fields[0], Direction: strings.ToLower(fields[1])}
	if len(fields) == 3 {
		cells, err := strconv.Atoi(fields[2])
		if err != nil {
			return service.MoveInput{}, fmt.Errorf("move %q: cells must be a number", s)
		}
		in.Cells = cells
	}
	return in, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configID := request.GetString("config_id", "")

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nLayout: %s\n", session.ID, session.ConfigName)
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		moves := 0
		if s.GameState != nil {
			moves = s.GameState.MoveCount
		}
		fmt.Fprintf(&b, "- %s (Layout: %s, Moves: %d, Created: %s)\n",
			s.ID, s.ConfigName, moves, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handlePossibleMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Count int                   `json:"count"`
		Moves []engine.PossibleMove `json:"moves"`
	}
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/possible-moves"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No piece can move."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Possible moves (%d):\n%s", response.Count, formatPossibleMoves(response.Moves))), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = request.GetString("intent", "")

	in, err := moveInputFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := map[string]any{
		"piece":     in.Piece,
		"direction": in.Direction,
		"cells":     in.Cells,
		"axis":      in.Axis,
		"delta":     in.Delta,
		"reset":     request.GetBool("reset", false),
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	movesRaw, _ := args["moves"].([]any)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = request.GetString("intent", "")

	moves := make([]service.MoveInput, 0, len(movesRaw))
	for i, m := range movesRaw {
		switch v := m.(type) {
		case string:
			in, err := parseMoveString(v)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("move %d: %v", i+1, err)), nil
			}
			moves = append(moves, in)
		case map[string]any:
			in, err := moveInputFromArgs(v)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("move %d: %v", i+1, err)), nil
			}
			moves = append(moves, in)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("move %d: expected a string or an object", i+1)), nil
		}
	}
	if len(moves) == 0 {
		return mcp.NewToolResultError("no moves provided"), nil
	}

	body := map[string]any{
		"moves": moves,
		"reset": request.GetBool("reset", false),
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c.log.Debug("bulk move", "session", sessionID, "exec", result.MovesExecuted, "requested", result.RequestedMoves)
	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleDrag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := service.DragRequest{Piece: request.GetString("piece", "")}
	req.DX, _ = numberArg(args, "dx")
	req.DY, _ = numberArg(args, "dy")

	var result service.DragResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drag"), req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Dragged %s along %s: requested %d, applied %d, now at (%d,%d)\n\n%s",
		result.Piece.Name, result.Axis, result.Requested, result.Applied,
		result.Piece.Offset.X, result.Piece.Offset.Y, formatGameState(result.GameState))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleEndDrag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drag/end"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleCancelDrag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drag/cancel"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page, ok := numberArg(args, "page"); ok {
		params.Set("page", strconv.Itoa(int(page)))
	}
	if limit, ok := numberArg(args, "limit"); ok {
		params.Set("limit", strconv.Itoa(int(limit)))
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Layouts:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Board: %dx%d, Pieces: %d, Key piece: %s\n\n",
			config.Name, config.ConfigID, config.Description, config.Columns, config.Rows, config.Pieces, config.KeyPiece)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Huarong Pass - Complete Instructions

GAME OBJECTIVE:
Cao Cao (the 2x2 key piece, shown as K) is trapped at the top of the pass.
Slide the other blocks out of the way until K can leave through the gate
in the middle of the bottom edge.

BOARD:
• The classic board is 4 cells wide and 5 cells tall
• Positions are pixels; one cell is grid_unit pixels (200 by default)
• Pieces are rectangles: 2x2 (key), 1x2 and 2x1 (generals), 1x1 (soldiers)
• Two cells are always empty

MOVEMENT RULES:
• A piece moves along one axis at a time, never diagonally
• A piece slides until it touches another piece or the edge of the board
• A move never makes pieces overlap and never pushes other pieces
• Asking for more distance than is free moves the piece as far as it can go
• A blocked move is recorded but leaves the board unchanged

GRID LEGEND:
• K - the key piece
• a, b, c, ... - other pieces in board order (see the legend under the grid)
• . - empty cell

TOOLS:
• move: piece + direction (+ cells, default 1), or piece + axis + delta in pixels
• bulk_move: a list of moves like ["bing1 down", "bing0 right 2"]; stops at
  the first unknown piece or invalid axis
• drag / end_drag / cancel_drag: raw gestures, one axis per update
• possible_moves: everything that can move one cell right now
• reset_game: back to the opening; total moves keep counting

STRATEGY:
• Work out which empty cells K needs before moving anything
• Move soldiers to open space for the generals
• The general across the middle (guan) is usually the last obstacle

SESSION MANAGEMENT:
• Multiple sessions can run simultaneously
• Each session has a unique 4-character ID
• Sessions keep independent boards and layouts`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLayout: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	board := state.Board

	fmt.Fprintf(&b, "Layout: %s | Moves: %d | Total: %d | Board: %dx%d px (cell %d)\n\n",
		state.ConfigName, state.MoveCount, state.TotalMoves, board.Width, board.Height, board.GridUnit)

	grid := state.GridView
	if len(grid) == 0 {
		grid = engine.RenderGrid(board)
	}
	for _, row := range grid {
		b.WriteString(row)
		b.WriteString("\n")
	}

	if len(board.Pieces) > 0 {
		labels := engine.PieceLabels(board)
		b.WriteString("\nPieces:\n")
		for _, p := range board.Pieces {
			fmt.Fprintf(&b, "  %c %-8s %dx%d at (%d,%d)\n", labels[p.Name], p.Name,
				cells(p.Width, board.GridUnit), cells(p.Height, board.GridUnit), p.Offset.X, p.Offset.Y)
		}
	}

	if state.ActiveDrag != nil {
		fmt.Fprintf(&b, "\nDragging: %s from (%d,%d), %d updates\n",
			state.ActiveDrag.Piece, state.ActiveDrag.Start.X, state.ActiveDrag.Start.Y, state.ActiveDrag.Updates)
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

func cells(px, unit int) int {
	if unit <= 0 {
		return 0
	}
	return px / unit
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		b.WriteString("✗ Piece did not move\n")
	}

	if m := result.Move; m != nil {
		fmt.Fprintf(&b, "Move %d: %s (%d,%d)→(%d,%d)\n",
			m.MoveNumber, m.Piece, m.From.X, m.From.Y, m.To.X, m.To.Y)
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	configName := ""
	if result.GameState != nil {
		configName = result.GameState.ConfigName
	}
	fmt.Fprintf(&b, "Session: %s • Layout: %s\n", sessionID, configName)

	fmt.Fprintf(&b, "Executed %d/%d moves\n", result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d moves\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", result.StoppedReason)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for _, s := range result.Steps {
			status := "✗"
			if s.Moved {
				status = "✓"
			}
			fmt.Fprintf(&b, "%d. %s %s (%d,%d)→(%d,%d) %s\n",
				s.Idx, s.Piece, engine.DirectionName(s.Axis, s.Delta), s.From.X, s.From.Y, s.To.X, s.To.Y, status)
		}
	}

	if len(result.PossibleMoves) > 0 {
		b.WriteString("\nPossible moves:\n")
		b.WriteString(formatPossibleMoves(result.PossibleMoves))
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatPossibleMoves(moves []engine.PossibleMove) string {
	var b strings.Builder
	for _, m := range moves {
		fmt.Fprintf(&b, "- %s %s (%d px)\n", m.Piece, m.Direction, abs(m.Distance))
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d, Total: %d moves)\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, m := range history.Moves {
		status := "✗"
		if m.Moved {
			status = "✓"
		}
		fmt.Fprintf(&b, "%d. %s (%d,%d)→(%d,%d) %s\n",
			m.MoveNumber, m.Piece, m.From.X, m.From.Y, m.To.X, m.To.Y, status)
	}

	if history.HasNext {
		b.WriteString("\nMore moves available on next page")
	}
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
