package facematch

import (
	"image"
	"math"
	"testing"
)

func TestScaleRectToFrame(t *testing.T) {
	tests := []struct {
		name     string
		rect     image.Rectangle
		scale    float64
		expected image.Rectangle
	}{
		{
			name:     "half scale doubles coordinates",
			rect:     image.Rect(10, 20, 30, 40),
			scale:    0.5,
			expected: image.Rect(20, 40, 60, 80),
		},
		{
			name:     "unit scale unchanged",
			rect:     image.Rect(1, 2, 3, 4),
			scale:    1,
			expected: image.Rect(1, 2, 3, 4),
		},
		{
			name:     "invalid scale unchanged",
			rect:     image.Rect(1, 2, 3, 4),
			scale:    0,
			expected: image.Rect(1, 2, 3, 4),
		},
		{
			name:     "quarter scale",
			rect:     image.Rect(5, 5, 10, 10),
			scale:    0.25,
			expected: image.Rect(20, 20, 40, 40),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScaleRectToFrame(tt.rect, tt.scale)
			if result != tt.expected {
				t.Errorf("ScaleRectToFrame(%v, %v) = %v, want %v", tt.rect, tt.scale, result, tt.expected)
			}
		})
	}
}

func TestRelativeBBox(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)

	tests := []struct {
		name     string
		rect     image.Rectangle
		expected []float64
	}{
		{
			name:     "inside",
			rect:     image.Rect(50, 25, 150, 75),
			expected: []float64{0.25, 0.25, 0.5, 0.5},
		},
		{
			name:     "clamped to frame",
			rect:     image.Rect(-20, -10, 100, 50),
			expected: []float64{0, 0, 0.5, 0.5},
		},
		{
			name:     "outside",
			rect:     image.Rect(300, 300, 400, 400),
			expected: []float64{0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RelativeBBox(tt.rect, bounds)
			if len(result) != 4 {
				t.Fatalf("expected 4 values, got %v", result)
			}
			for i := range result {
				if math.Abs(result[i]-tt.expected[i]) > 1e-9 {
					t.Errorf("RelativeBBox(%v) = %v, want %v", tt.rect, result, tt.expected)
					break
				}
			}
		})
	}
}

func TestRelativeBBox_EmptyBounds(t *testing.T) {
	if got := RelativeBBox(image.Rect(0, 0, 1, 1), image.Rectangle{}); got != nil {
		t.Errorf("expected nil for empty bounds, got %v", got)
	}
}
