package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/huarongpass/game/engine"
	"github.com/wricardo/huarongpass/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session. The engine is rebuilt
// from the layout named by ConfigName and then given GameState.
type PersistedSessionData struct {
	ID             string            `json:"id"`
	ConfigName     string            `json:"config_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

func persistedData(session *service.Session, configs service.ConfigManager) (*PersistedSessionData, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	if session.Engine == nil {
		return nil, fmt.Errorf("session %s has no engine", session.ID)
	}

	state := session.Engine.GetState().Clone()
	state.GridView = nil

	return &PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configs.ConfigID(session.Config), // layout ID, not display name
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessed(),
		GameState:      state,
	}, nil
}

func restoreSession(data *PersistedSessionData, configs service.ConfigManager) (*service.Session, error) {
	if data.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", data.ID)
	}

	layout, err := configs.LoadConfig(data.ConfigName)
	if err != nil {
		// Sessions on the built-in layout have no file behind them
		def := configs.GetDefault()
		if !errors.Is(err, service.ErrConfigNotFound) || def == nil || def.Name != data.ConfigName {
			return nil, fmt.Errorf("failed to load layout '%s': %w", data.ConfigName, err)
		}
		layout = def
	}

	gameEngine, err := engine.NewEngine(layout)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}

	if err := gameEngine.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		Engine:         gameEngine,
		Config:         layout,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}
