package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/huarongpass/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("layout not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Gestures
	Drag(ctx context.Context, sessionID string, req DragRequest) (*DragResult, error)
	EndDrag(ctx context.Context, sessionID string) (*MoveResult, error)
	CancelDrag(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game Operations
	Move(ctx context.Context, sessionID string, req engine.MoveRequest, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []engine.MoveRequest, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetPossibleMoves(ctx context.Context, sessionID string) ([]engine.PossibleMove, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.LayoutConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.LayoutConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.LayoutConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.LayoutConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles layout loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.LayoutConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.LayoutConfig
	SaveConfig(name string, config *engine.LayoutConfig) error
	ConfigID(config *engine.LayoutConfig) string
}

// Session represents an active puzzle session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Config         *engine.LayoutConfig
	CreatedAt      time.Time
	// LastAccessedAt is set when the session is built. Once the session is
	// shared it is read and written through LastAccessed and Touch.
	LastAccessedAt time.Time

	accessMu sync.Mutex
}

// Touch stamps the access time and returns it
func (s *Session) Touch() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	s.LastAccessedAt = time.Now()
	return s.LastAccessedAt
}

// LastAccessed returns the access time
func (s *Session) LastAccessed() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	return s.LastAccessedAt
}
