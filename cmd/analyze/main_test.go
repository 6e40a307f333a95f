package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/wricardo/huarongpass/game/engine"
)

func writeLayout(t *testing.T, dir, name string, config *engine.LayoutConfig) string {
	t.Helper()
	data, err := json.Marshal(config)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestShapeCounts(t *testing.T) {
	got := shapeCounts(engine.ClassicOpening())
	// equal areas keep first-seen order
	want := []ShapeCount{
		{Cols: 2, Rows: 2, Count: 1},
		{Cols: 1, Rows: 2, Count: 4},
		{Cols: 2, Rows: 1, Count: 1},
		{Cols: 1, Rows: 1, Count: 4},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("shapeCounts() = %v, want %v", got, want)
	}
}

func TestGateReport(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*engine.LayoutConfig)
		want   GateReport
	}{
		{
			name: "classic",
			want: GateReport{RowsToExit: 3, ColumnsOff: 0, Blockers: []string{"guan", "bing1", "bing2"}},
		},
		{
			name: "clear path",
			mutate: func(c *engine.LayoutConfig) {
				c.Pieces = []engine.Placement{
					{Name: "cao", Cols: 2, Rows: 2, X: 1, Y: 3},
					{Name: "bing0", Cols: 1, Rows: 1, X: 0, Y: 0},
				}
			},
			want: GateReport{RowsToExit: 0, ColumnsOff: 0},
		},
		{
			name: "off the gate",
			mutate: func(c *engine.LayoutConfig) {
				c.Pieces = []engine.Placement{
					{Name: "cao", Cols: 2, Rows: 2, X: 2, Y: 1},
					{Name: "zhang", Cols: 1, Rows: 2, X: 1, Y: 1},
					{Name: "bing0", Cols: 1, Rows: 1, X: 0, Y: 4},
				}
			},
			want: GateReport{RowsToExit: 2, ColumnsOff: 1, Blockers: []string{"zhang"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := engine.DefaultLayoutConfig()
			if tt.mutate != nil {
				tt.mutate(config)
			}
			if got := gateReport(config); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("gateReport() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeConfig(t *testing.T) {
	path := writeLayout(t, t.TempDir(), "classic.json", engine.DefaultLayoutConfig())

	var out bytes.Buffer
	if err := analyzeConfig(&out, path); err != nil {
		t.Fatalf("analyzeConfig failed: %v", err)
	}

	for _, want := range []string{
		"Name: classic",
		"Board: 4 x 5 cells (800 x 1000 px)",
		"Pieces: 10",
		"Shapes: 2x2: 1, 1x2: 4, 2x1: 1, 1x1: 4",
		"Empty cells: 2",
		"Key piece: cao, 3 rows from the exit, 0 columns off the gate",
		"In the way: guan, bing1, bing2",
		"  aKKb\n  aKKb\n  ceed\n  cghd\n  f..i\n",
		"Opening moves: 4",
		"bing1 down (200 px)",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestAnalyzeConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if err := analyzeConfig(&bytes.Buffer{}, filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := engine.DefaultLayoutConfig()
	bad.KeyPiece = "liu"
	if err := analyzeConfig(&bytes.Buffer{}, writeLayout(t, dir, "bad.json", bad)); err == nil {
		t.Error("Expected error for a layout without its key piece")
	}
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	writeLayout(t, dir, "classic.json", engine.DefaultLayoutConfig())

	var out bytes.Buffer
	if err := newCommand(&out).Run(context.Background(), []string{"analyze", "--dir", dir}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "=== Analyzing classic.json ===") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}

	bad := engine.DefaultLayoutConfig()
	bad.Pieces = nil
	writeLayout(t, dir, "empty.json", bad)

	out.Reset()
	err := newCommand(&out).Run(context.Background(), []string{"analyze", "--dir", dir})
	if err == nil || !strings.Contains(err.Error(), "1 of 2 layouts") {
		t.Errorf("Expected one failed layout, got %v", err)
	}
}
