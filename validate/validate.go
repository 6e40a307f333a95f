// Command validate checks layout JSON files before they are deployed to a
// server's config directory. For each file it checks:
//   - JSON structure, with unknown fields rejected
//   - everything the server checks on load (sizes, bounds, key piece, gate, overlap)
//   - that at least one cell is empty and at least one piece can move
//   - that a welcome message is present
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/huarongpass/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single layout file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.LayoutConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := engine.ValidateLayoutConfig(&config); err != nil {
		result.fail("%v", err)
		return result
	}

	if config.Messages.Welcome == "" {
		result.fail("Missing required message: welcome")
	}

	board := engine.BuildBoard(&config)
	unit := config.GridUnit
	empty := engine.FreeArea(board) / (unit * unit)
	if empty == 0 {
		result.fail("No empty cell: nothing can move")
	}

	moves := engine.PossibleMoves(board)
	if empty > 0 && len(moves) == 0 {
		result.fail("No piece can move from the opening position")
	}

	if !result.Valid {
		return result
	}

	key, _ := board.Lookup(config.KeyPiece)
	result.info("Name: %s", config.Name)
	result.info("Board: %dx%d cells, unit %d px", config.Columns, config.Rows, unit)
	result.info("Pieces: %d", len(config.Pieces))
	result.info("Empty cells: %d", empty)
	result.info("Key piece: %s at (%d,%d), gate at column %d", key.Name, key.Offset.X/unit, key.Offset.Y/unit, config.GateColumn)
	result.info("Opening moves: %d", len(moves))
	return result
}

// validateAll validates every file and writes a report. It returns false
// when any file is invalid.
func validateAll(w io.Writer, files []string) bool {
	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
			continue
		}

		fmt.Fprintln(w, "❌ INVALID")
		allValid = false
		for _, err := range result.Errors {
			if !strings.HasPrefix(err, "✓") {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All layouts are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some layouts have errors")
	}
	return allValid
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate Huarong Pass layout files",
		ArgsUsage: "[file.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "../configs", Usage: "Directory scanned when no files are given"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = filepath.Glob(filepath.Join(cmd.String("dir"), "*.json"))
				if err != nil {
					return fmt.Errorf("finding layout files: %w", err)
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("no layout files found")
			}

			if !validateAll(out, files) {
				return fmt.Errorf("some layouts have errors")
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
