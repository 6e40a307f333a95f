package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log15 "github.com/inconshreveable/log15/v3"

	"github.com/wricardo/huarongpass/game/engine"
)

// gameServiceImpl implements the GameService interface. Every engine mutation
// happens under mu, so all transports share one serialized mutation point.
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	log      log15.Logger
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      log15.New("module", "service"),
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.LayoutConfig
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, s.configNotFound(configName)
			}
			return nil, fmt.Errorf("failed to load layout %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.configs.ConfigID(config)
	}

	s.log.Info("session created", "session", sess.ID, "layout", configID)

	info := s.sessionInfo(sess)
	info.ConfigName = configID
	return info, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.log.Info("session deleted", "session", sessionID)
	return nil
}

// Drag applies one raw gesture update to a session's board
func (s *gameServiceImpl) Drag(ctx context.Context, sessionID string, req DragRequest) (*DragResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	axis, delta, err := engine.AxisDelta(req.DX, req.DY)
	if err != nil {
		return nil, err
	}

	before, err := sess.Engine.GetBoard().Lookup(req.Piece)
	if err != nil {
		return nil, err
	}

	piece, err := sess.Engine.DragAxis(req.Piece, axis, delta)
	if err != nil {
		return nil, err
	}

	applied := piece.Offset.X - before.Offset.X
	if axis == engine.Vertical {
		applied = piece.Offset.Y - before.Offset.Y
	}

	s.log.Debug("drag", "session", sessionID, "piece", req.Piece, "axis", axis, "delta", delta, "applied", applied)

	state := s.snapshot(sess)
	return &DragResult{
		Piece:     piece,
		Axis:      axis,
		Requested: delta,
		Applied:   applied,
		Gesture:   state.ActiveDrag,
		GameState: state,
	}, nil
}

// EndDrag completes the open gesture and counts it as one move
func (s *gameServiceImpl) EndDrag(ctx context.Context, sessionID string) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	entry, err := sess.Engine.EndDrag()
	if err != nil {
		return nil, err
	}

	result := s.moveResult(sess, entry, nil)
	s.save(sessionID, "drag end")
	return result, nil
}

// CancelDrag forgets the open gesture without counting it
func (s *gameServiceImpl) CancelDrag(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.Engine.CancelDrag() {
		return nil, engine.ErrNoActiveDrag
	}

	s.save(sessionID, "drag cancel")
	return s.snapshot(sess), nil
}

// Move executes one complete single-axis move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, req engine.MoveRequest, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	// Reject a bad request before reset touches the board
	if _, err := engine.ResolveMove(sess.Engine.GetBoard(), req.Piece, req.Axis, req.Delta); err != nil {
		return nil, err
	}

	var events []GameEvent
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	entry, err := sess.Engine.Move(req.Piece, req.Axis, req.Delta)
	if err != nil {
		return nil, err
	}

	result := s.moveResult(sess, entry, events)
	s.save(sessionID, "move")
	return result, nil
}

// BulkMove executes multiple moves in sequence, stopping at the first failure
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []engine.MoveRequest, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, m := range moves {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("cancelled before move %d: %v", i+1, err)
			result.StopReasonCode = "cancelled"
			result.StoppedOnMove = i + 1
			break
		}

		entry, err := sess.Engine.Move(m.Piece, m.Axis, m.Delta)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d (%s): %v", i+1, m.Piece, err)
			result.StopReasonCode = stopReasonCode(err)
			result.StoppedOnMove = i + 1
			break
		}

		result.MovesExecuted++
		result.Steps = append(result.Steps, StepInfo{
			Idx:   i + 1,
			Piece: entry.Piece,
			Axis:  m.Axis,
			Delta: m.Delta,
			From:  entry.From,
			To:    entry.To,
			Moved: entry.Moved,
		})
		result.Events = append(result.Events, moveEvent(entry, sess.Engine.GetState().Message))
	}

	result.GameState = s.snapshot(sess)
	result.Message = result.GameState.Message
	result.PossibleMoves = engine.PossibleMoves(result.GameState.Board)

	s.save(sessionID, "bulk move")
	return result, nil
}

// Reset restores a session's opening layout
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.Reset()
	s.save(sessionID, "reset")
	return s.snapshot(sess), nil
}

// GetGameState retrieves a snapshot of the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return s.snapshot(sess), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// GetPossibleMoves lists the one-cell moves that would displace a piece
func (s *gameServiceImpl) GetPossibleMoves(ctx context.Context, sessionID string) ([]engine.PossibleMove, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return sess.Engine.GetPossibleMoves(), nil
}

// ListConfigs returns available layouts
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific layout
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.LayoutConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a layout to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.LayoutConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// snapshot copies the session state so callers can encode it outside the lock
func (s *gameServiceImpl) snapshot(sess *Session) *engine.GameState {
	state := sess.Engine.GetState().Clone()
	state.GridView = engine.RenderGrid(state.Board)
	return state
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.configs.ConfigID(sess.Config),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		GameState:      s.snapshot(sess),
		GameConfig:     sess.Config,
	}
}

func (s *gameServiceImpl) moveResult(sess *Session, entry *engine.MoveHistoryEntry, events []GameEvent) *MoveResult {
	state := s.snapshot(sess)
	return &MoveResult{
		Success:   entry.Moved,
		GameState: state,
		Message:   state.Message,
		Events:    append(events, moveEvent(entry, state.Message)),
		Move:      entry,
	}
}

func (s *gameServiceImpl) save(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.Warn("failed to persist session", "session", sessionID, "after", after, "err", err)
	}
}

func (s *gameServiceImpl) configNotFound(configName string) error {
	available, err := s.configs.ListConfigs()
	if err == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, cfg := range available {
			ids = append(ids, cfg.ConfigID)
		}
		return fmt.Errorf("%w: '%s'. Available layouts: %v", ErrConfigNotFound, configName, ids)
	}
	return fmt.Errorf("%w: '%s'. Use /api/configs to list available layouts", ErrConfigNotFound, configName)
}

func moveEvent(entry *engine.MoveHistoryEntry, message string) GameEvent {
	to := entry.To
	event := GameEvent{
		Type:      "move",
		Message:   message,
		Timestamp: time.Unix(entry.Timestamp, 0),
		Piece:     entry.Piece,
		Offset:    &to,
	}
	if !entry.Moved {
		event.Type = "blocked"
	}
	return event
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "Board reset to the opening layout",
		Timestamp: time.Now(),
	}
}

func stopReasonCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return "not_found"
	case errors.Is(err, engine.ErrInvalidAxis):
		return "invalid_axis"
	case errors.Is(err, engine.ErrInvalidDelta):
		return "invalid_delta"
	default:
		return "error"
	}
}
