// Package config provides layout and server settings management for the
// Huarong Pass server.
//
// The config package handles:
//   - Loading opening layouts from JSON files
//   - Layout validation before any board is built
//   - Default layout selection with a built-in classic fallback
//   - Layout discovery and listing
//   - Server settings from the environment and .env files
//
// Layout Format:
//
// Layouts are stored as JSON files in the configs directory. Each layout
// defines the board size in grid cells, the grid unit in pixels, the key
// piece and its gate column, and one placement per piece:
//
//	{"name": "cao", "cols": 2, "rows": 2, "x": 1, "y": 0}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	layout, err := manager.LoadConfig("classic")
//	layouts, err := manager.ListConfigs()
//
// Settings are read with ParseEnv (caarlos0/env struct tags); LoadDotEnv
// loads a .env file first when one exists.
package config
