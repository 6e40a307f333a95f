package engine

import "testing"

func TestPossibleMoves(t *testing.T) {
	board := BuildBoard(DefaultLayoutConfig())
	moves := PossibleMoves(board)

	expected := map[string]string{
		"bing0": "right",
		"bing1": "down",
		"bing2": "down",
		"bing3": "left",
	}
	if len(moves) != len(expected) {
		t.Fatalf("Expected %d possible moves, got %d: %+v", len(expected), len(moves), moves)
	}
	for _, m := range moves {
		if expected[m.Piece] != m.Direction {
			t.Errorf("Unexpected move %s %s", m.Piece, m.Direction)
		}
		if m.Distance != m.Delta {
			t.Errorf("Expected a full cell for %s, got %d of %d", m.Piece, m.Distance, m.Delta)
		}
	}
}

func TestRenderGrid(t *testing.T) {
	lines := RenderGrid(BuildBoard(DefaultLayoutConfig()))
	expected := []string{
		"aKKb",
		"aKKb",
		"ceed",
		"cghd",
		"f..i",
	}

	if len(lines) != len(expected) {
		t.Fatalf("Expected %d rows, got %d", len(expected), len(lines))
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("Row %d: expected %q, got %q", i, expected[i], lines[i])
		}
	}
}

func TestFreeArea(t *testing.T) {
	board := BuildBoard(DefaultLayoutConfig())
	if got := FreeArea(board); got != 2*DefaultGridUnit*DefaultGridUnit {
		t.Errorf("Expected two free cells, got area %d", got)
	}

	key, _ := board.Lookup("cao")
	key.Offset = Offset{X: 200, Y: 900}
	board, _ = board.Replace(key)
	if got := FreeArea(board); got <= 2*DefaultGridUnit*DefaultGridUnit {
		t.Errorf("Key piece outside the board should free area, got %d", got)
	}
}
