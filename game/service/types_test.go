package service

import (
	"errors"
	"testing"

	"github.com/wricardo/huarongpass/game/engine"
)

func TestMoveInputRequest(t *testing.T) {
	tests := []struct {
		name    string
		in      MoveInput
		want    engine.MoveRequest
		wantErr error
	}{
		{
			name: "axis and delta",
			in:   MoveInput{Piece: "cao", Axis: "vertical", Delta: 150},
			want: engine.MoveRequest{Piece: "cao", Axis: engine.Vertical, Delta: 150},
		},
		{
			name: "short axis name",
			in:   MoveInput{Piece: "guan", Axis: "x", Delta: -40},
			want: engine.MoveRequest{Piece: "guan", Axis: engine.Horizontal, Delta: -40},
		},
		{
			name: "direction defaults to one cell",
			in:   MoveInput{Piece: "bing1", Direction: "down"},
			want: engine.MoveRequest{Piece: "bing1", Axis: engine.Vertical, Delta: 200},
		},
		{
			name: "direction with cells",
			in:   MoveInput{Piece: "bing0", Direction: "left", Cells: 2},
			want: engine.MoveRequest{Piece: "bing0", Axis: engine.Horizontal, Delta: -400},
		},
		{
			name:    "unknown direction",
			in:      MoveInput{Piece: "bing0", Direction: "sideways"},
			wantErr: engine.ErrInvalidAxis,
		},
		{
			name:    "negative cells",
			in:      MoveInput{Piece: "bing0", Direction: "up", Cells: -1},
			wantErr: engine.ErrInvalidDelta,
		},
		{
			name:    "cells past the drag limit",
			in:      MoveInput{Piece: "bing0", Direction: "up", Cells: engine.MaxDragDelta/200 + 1},
			wantErr: engine.ErrInvalidDelta,
		},
		{
			name:    "cells that would wrap around",
			in:      MoveInput{Piece: "bing0", Direction: "up", Cells: 2305843009213693953},
			wantErr: engine.ErrInvalidDelta,
		},
		{
			name: "cells at the drag limit",
			in:   MoveInput{Piece: "bing0", Direction: "up", Cells: engine.MaxDragDelta / 200},
			want: engine.MoveRequest{Piece: "bing0", Axis: engine.Vertical, Delta: -(engine.MaxDragDelta / 200) * 200},
		},
		{
			name:    "missing axis",
			in:      MoveInput{Piece: "bing0", Delta: 10},
			wantErr: engine.ErrInvalidAxis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Request(200)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
