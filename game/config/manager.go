package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log15 "github.com/inconshreveable/log15/v3"

	"github.com/wricardo/huarongpass/game/engine"
	"github.com/wricardo/huarongpass/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = engine.ErrInvalidLayout
)

// DefaultLayoutID is the layout file tried first when picking a default
const DefaultLayoutID = "classic"

// Manager handles layout loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.LayoutConfig
	configs       map[string]*engine.LayoutConfig
	log           log15.Logger
	mu            sync.RWMutex
}

// NewManager creates a new layout manager reading JSON files from configDir
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.LayoutConfig),
		log:       log15.New("module", "config", "dir", configDir),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default layout: %w", err)
	}

	return m, nil
}

// LoadConfig loads a layout by its ID (the file name without .json)
func (m *Manager) LoadConfig(name string) (*engine.LayoutConfig, error) {
	id := layoutID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("%w: bad layout id %q", ErrInvalidConfig, name)
	}

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	data, err := os.ReadFile(m.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
		}
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	var config engine.LayoutConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, id, err)
	}

	if err := engine.ValidateLayoutConfig(&config); err != nil {
		return nil, fmt.Errorf("layout %s: %w", id, err)
	}

	m.configs[id] = &config
	return &config, nil
}

// ListConfigs returns information about every valid layout on disk
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := layoutID(entry.Name())
		config, err := m.LoadConfig(id)
		if err != nil {
			m.log.Warn("skipping layout", "file", entry.Name(), "err", err)
			continue
		}

		configs = append(configs, describeLayout(entry.Name(), id, config))
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default layout
func (m *Manager) GetDefault() *engine.LayoutConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default layout by ID
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached layout and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.LayoutConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// SaveConfig validates a layout and writes it to disk under the given ID
func (m *Manager) SaveConfig(name string, config *engine.LayoutConfig) error {
	if err := engine.ValidateLayoutConfig(config); err != nil {
		return err
	}

	id := layoutID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: bad layout id %q", ErrInvalidConfig, name)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}

	if err := os.WriteFile(m.path(id), data, 0644); err != nil {
		return fmt.Errorf("failed to write layout file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	m.log.Info("layout saved", "id", id, "pieces", len(config.Pieces))
	return nil
}

// ConfigID returns the layout ID a config was loaded from, or its display
// name when it did not come from this manager's directory.
func (m *Manager) ConfigID(config *engine.LayoutConfig) string {
	if config == nil {
		return ""
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, c := range m.configs {
		if c == config {
			return id
		}
	}
	for id, c := range m.configs {
		if c.Name == config.Name {
			return id
		}
	}
	return config.Name
}

// loadDefaultConfig picks classic.json, then the first valid layout, then
// the built-in classic opening.
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultLayoutID)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			m.log.Info("no layout files found, using built-in classic opening")
			m.setDefault(engine.DefaultLayoutConfig())
			return nil
		}

		config, err = m.LoadConfig(configs[0].ConfigID)
		if err != nil {
			m.setDefault(engine.DefaultLayoutConfig())
			return nil
		}
	}

	m.setDefault(config)
	return nil
}

func (m *Manager) setDefault(config *engine.LayoutConfig) {
	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.configDir, id+".json")
}

func layoutID(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ".json")
}

func describeLayout(filename, id string, config *engine.LayoutConfig) *service.ConfigInfo {
	return &service.ConfigInfo{
		Filename:    filename,
		ConfigID:    id,
		Name:        config.Name,
		Description: config.Description,
		Columns:     config.Columns,
		Rows:        config.Rows,
		Pieces:      len(config.Pieces),
		KeyPiece:    config.KeyPiece,
	}
}
