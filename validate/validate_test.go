package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/huarongpass/game/engine"
)

// writeLayout stores the classic layout, changed by mutate, as dir/name
func writeLayout(t *testing.T, dir, name string, mutate func(*engine.LayoutConfig)) string {
	t.Helper()
	config := engine.DefaultLayoutConfig()
	if mutate != nil {
		mutate(config)
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal layout: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write layout: %v", err)
	}
	return path
}

func hasMessage(result ValidationResult, substr string) bool {
	for _, msg := range result.Errors {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestValidateConfig_ValidLayout(t *testing.T) {
	path := writeLayout(t, t.TempDir(), "classic.json", nil)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid layout, got errors: %v", result.Errors)
	}
	if result.File != "classic.json" {
		t.Errorf("Expected file name classic.json, got %s", result.File)
	}

	for _, want := range []string{
		"✓ Board: 4x5 cells, unit 200 px",
		"✓ Pieces: 10",
		"✓ Empty cells: 2",
		"✓ Key piece: cao at (1,0), gate at column 1",
		"✓ Opening moves: 4",
	} {
		if !hasMessage(result, want) {
			t.Errorf("Expected %q in %v", want, result.Errors)
		}
	}
}

func TestValidateConfig_InvalidJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `{"name": "test", invalid json}`},
		{"unknown field", `{"name": "test", "time_limit": 10}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			result := validateConfig(path)
			if result.Valid {
				t.Fatal("Expected invalid layout")
			}
			if !hasMessage(result, "Invalid JSON") {
				t.Errorf("Expected 'Invalid JSON' error, got %v", result.Errors)
			}
		})
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig("/non/existent/file.json")
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasMessage(result, "Failed to read file") {
		t.Errorf("Expected 'Failed to read file' error, got %v", result.Errors)
	}
}

func TestValidateConfig_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*engine.LayoutConfig)
		want   string
	}{
		{
			name: "overlap",
			mutate: func(c *engine.LayoutConfig) {
				c.Pieces[len(c.Pieces)-1].X = 0
			},
			want: "overlap",
		},
		{
			name: "outside board",
			mutate: func(c *engine.LayoutConfig) {
				c.Pieces[0].Y = 4
			},
			want: "outside",
		},
		{
			name: "unknown key piece",
			mutate: func(c *engine.LayoutConfig) {
				c.KeyPiece = "liu"
			},
			want: "key_piece",
		},
		{
			name: "missing welcome",
			mutate: func(c *engine.LayoutConfig) {
				c.Messages.Welcome = ""
			},
			want: "welcome",
		},
		{
			name: "no empty cell",
			mutate: func(c *engine.LayoutConfig) {
				c.Columns, c.Rows, c.GateColumn = 2, 2, 0
				c.Pieces = []engine.Placement{{Name: "cao", Cols: 2, Rows: 2}}
			},
			want: "No empty cell",
		},
		{
			name: "nothing can move",
			mutate: func(c *engine.LayoutConfig) {
				// four dominoes locked around the single empty centre cell
				c.Columns, c.Rows, c.GateColumn = 3, 3, 0
				c.Pieces = []engine.Placement{
					{Name: "cao", Cols: 2, Rows: 1, X: 0, Y: 0},
					{Name: "zhao", Cols: 1, Rows: 2, X: 2, Y: 0},
					{Name: "guan", Cols: 2, Rows: 1, X: 1, Y: 2},
					{Name: "zhang", Cols: 1, Rows: 2, X: 0, Y: 1},
				}
			},
			want: "No piece can move",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLayout(t, t.TempDir(), "layout.json", tt.mutate)

			result := validateConfig(path)
			if result.Valid {
				t.Fatalf("Expected invalid layout, got %v", result.Errors)
			}
			if !hasMessage(result, tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, result.Errors)
			}
			if hasMessage(result, "✓") {
				t.Errorf("Expected no info lines for an invalid layout, got %v", result.Errors)
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	dir := t.TempDir()
	good := writeLayout(t, dir, "good.json", nil)
	bad := writeLayout(t, dir, "bad.json", func(c *engine.LayoutConfig) {
		c.Messages.Welcome = ""
	})

	var out bytes.Buffer
	if !validateAll(&out, []string{good}) {
		t.Errorf("Expected a valid report, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "✅ All layouts are valid!") {
		t.Errorf("Unexpected report:\n%s", out.String())
	}

	out.Reset()
	if validateAll(&out, []string{good, bad}) {
		t.Error("Expected the report to fail")
	}
	report := out.String()
	for _, want := range []string{"good.json", "✅ VALID", "bad.json", "❌ INVALID", "❌ Missing required message: welcome", "❌ Some layouts have errors"} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected %q in report:\n%s", want, report)
		}
	}
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeLayout(t, dir, "good.json", nil)

	t.Run("files", func(t *testing.T) {
		var out bytes.Buffer
		if err := newCommand(&out).Run(context.Background(), []string{"validate", good}); err != nil {
			t.Fatalf("Unexpected error: %v\n%s", err, out.String())
		}
		if !strings.Contains(out.String(), "good.json") {
			t.Errorf("Expected the file in the report:\n%s", out.String())
		}
	})

	t.Run("dir", func(t *testing.T) {
		var out bytes.Buffer
		if err := newCommand(&out).Run(context.Background(), []string{"validate", "--dir", dir}); err != nil {
			t.Fatalf("Unexpected error: %v\n%s", err, out.String())
		}
		if !strings.Contains(out.String(), "✅ All layouts are valid!") {
			t.Errorf("Unexpected report:\n%s", out.String())
		}
	})

	t.Run("invalid layout", func(t *testing.T) {
		bad := writeLayout(t, t.TempDir(), "bad.json", func(c *engine.LayoutConfig) {
			c.Description = ""
		})
		var out bytes.Buffer
		err := newCommand(&out).Run(context.Background(), []string{"validate", bad})
		if err == nil || !strings.Contains(err.Error(), "some layouts have errors") {
			t.Errorf("Expected failure, got %v", err)
		}
	})

	t.Run("empty dir", func(t *testing.T) {
		var out bytes.Buffer
		err := newCommand(&out).Run(context.Background(), []string{"validate", "--dir", t.TempDir()})
		if err == nil || !strings.Contains(err.Error(), "no layout files") {
			t.Errorf("Expected missing files error, got %v", err)
		}
	})
}

func TestShippedLayouts(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "configs", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Skip("no shipped layouts")
	}
	for _, file := range files {
		if result := validateConfig(file); !result.Valid {
			t.Errorf("%s: %v", filepath.Base(file), result.Errors)
		}
	}
}
