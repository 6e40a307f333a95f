// Command analyze prints quick, human-readable facts about the layout files
// in the project's configs directory: board size, piece shapes, empty cells,
// how far the key piece sits from the gate and what can move at the opening.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/huarongpass/game/engine"
)

// ShapeCount is the number of pieces of one size, in cells.
type ShapeCount struct {
	Cols, Rows int
	Count      int
}

func (s ShapeCount) String() string {
	return fmt.Sprintf("%dx%d: %d", s.Cols, s.Rows, s.Count)
}

// GateReport says how the key piece sits relative to the gate.
type GateReport struct {
	// RowsToExit is the number of cell rows between the key piece and the bottom edge.
	RowsToExit int
	// ColumnsOff is how far the key piece is from the gate column.
	ColumnsOff int
	// Blockers are the pieces standing between the key piece and the gate.
	Blockers []string
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize Huarong Pass layout files",
		ArgsUsage: "[file.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "configs", Usage: "Directory scanned when no files are given"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = filepath.Glob(filepath.Join(cmd.String("dir"), "*.json"))
				if err != nil {
					return err
				}
				sort.Strings(files)
			}

			failed := 0
			for _, file := range files {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filepath.Base(file))
				if err := analyzeConfig(out, file); err != nil {
					fmt.Fprintf(out, "Error: %v\n", err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d layouts could not be analyzed", failed, len(files))
			}
			return nil
		},
	}
}

func analyzeConfig(w io.Writer, path string) error {
	config, err := engine.LoadLayoutConfig(path)
	if err != nil {
		return err
	}

	board := engine.BuildBoard(config)
	unit := config.GridUnit

	fmt.Fprintf(w, "Name: %s\n", config.Name)
	fmt.Fprintf(w, "Board: %d x %d cells (%d x %d px)\n", config.Columns, config.Rows, board.Width, board.Height)
	fmt.Fprintf(w, "Pieces: %d\n", len(config.Pieces))

	var shapes []string
	for _, s := range shapeCounts(config.Pieces) {
		shapes = append(shapes, s.String())
	}
	fmt.Fprintf(w, "Shapes: %s\n", strings.Join(shapes, ", "))
	fmt.Fprintf(w, "Empty cells: %d\n", engine.FreeArea(board)/(unit*unit))

	gate := gateReport(config)
	fmt.Fprintf(w, "Key piece: %s, %d rows from the exit, %d columns off the gate\n", config.KeyPiece, gate.RowsToExit, gate.ColumnsOff)
	if len(gate.Blockers) > 0 {
		fmt.Fprintf(w, "In the way: %s\n", strings.Join(gate.Blockers, ", "))
	} else {
		fmt.Fprintln(w, "✅ Nothing stands between the key piece and the gate")
	}

	fmt.Fprintln(w, "Grid:")
	for _, line := range engine.RenderGrid(board) {
		fmt.Fprintf(w, "  %s\n", line)
	}

	moves := engine.PossibleMoves(board)
	if len(moves) == 0 {
		fmt.Fprintln(w, "⚠️  WARNING: no piece can move from the opening position")
		return nil
	}
	fmt.Fprintf(w, "Opening moves: %d\n", len(moves))
	for _, m := range moves {
		fmt.Fprintf(w, "  %s %s (%d px)\n", m.Piece, m.Direction, m.Distance)
	}
	return nil
}

// shapeCounts groups pieces by size, largest area first.
func shapeCounts(pieces []engine.Placement) []ShapeCount {
	index := map[[2]int]int{}
	var counts []ShapeCount
	for _, p := range pieces {
		key := [2]int{p.Cols, p.Rows}
		i, ok := index[key]
		if !ok {
			i = len(counts)
			index[key] = i
			counts = append(counts, ShapeCount{Cols: p.Cols, Rows: p.Rows})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Cols*counts[i].Rows > counts[j].Cols*counts[j].Rows
	})
	return counts
}

// gateReport measures the key piece against the gate in cell units. A piece
// is in the way when it overlaps the column band of the gate below the key
// piece, or the band the key piece sweeps to reach the gate column.
func gateReport(config *engine.LayoutConfig) GateReport {
	var key engine.Placement
	for _, p := range config.Pieces {
		if p.Name == config.KeyPiece {
			key = p
		}
	}

	report := GateReport{
		RowsToExit: config.Rows - (key.Y + key.Rows),
		ColumnsOff: abs(key.X - config.GateColumn),
	}

	sweepLo, sweepHi := min(key.X, config.GateColumn), max(key.X, config.GateColumn)+key.Cols
	for _, p := range config.Pieces {
		if p.Name == key.Name {
			continue
		}
		sideways := overlaps(p.X, p.X+p.Cols, sweepLo, sweepHi) && overlaps(p.Y, p.Y+p.Rows, key.Y, key.Y+key.Rows)
		below := overlaps(p.X, p.X+p.Cols, config.GateColumn, config.GateColumn+key.Cols) && p.Y >= key.Y+key.Rows
		if sideways || below {
			report.Blockers = append(report.Blockers, p.Name)
		}
	}
	return report
}

func overlaps(lo1, hi1, lo2, hi2 int) bool {
	return lo1 < hi2 && lo2 < hi1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
