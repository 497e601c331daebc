package survey

import (
	"bytes"
	"image/png"
	"testing"
)

func TestNewMapRenderer(t *testing.T) {
	sol := solvedSolution()
	r := NewMapRenderer(sol)

	if r.TargetWidth != 800 {
		t.Errorf("TargetWidth = %d, want 800", r.TargetWidth)
	}
	if len(r.Colors) != 2 {
		t.Errorf("colors assigned for %d sensors, want 2", len(r.Colors))
	}
	if _, ok := r.Colors[0]; !ok {
		t.Error("no color for sensor 0")
	}
}

func TestMapRenderer_RenderPNG(t *testing.T) {
	r := NewMapRenderer(solvedSolution())

	var buf bytes.Buffer
	if err := r.RenderPNG(&buf); err != nil {
		t.Fatalf("RenderPNG() error = %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not valid PNG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 800+2*r.Padding {
		t.Errorf("width = %d, want %d", bounds.Dx(), 800+2*r.Padding)
	}
	if bounds.Dy() <= 0 {
		t.Errorf("height = %d", bounds.Dy())
	}
}

func TestMapRenderer_NoSolution(t *testing.T) {
	r := NewMapRenderer(nil)

	var buf bytes.Buffer
	if err := r.RenderPNG(&buf); err == nil {
		t.Error("RenderPNG() without a solution should fail")
	}
}

func TestProjectionBounds(t *testing.T) {
	landmarks := []Landmark{{-5, 10, 0}, {20, -3, 0}}
	origins := map[int]Landmark{0: {0, 0, 0}, 1: {30, 15, 0}}

	minX, minY, maxX, maxY := projectionBounds(landmarks, origins)
	if minX != -5 || maxX != 30 || minY != -3 || maxY != 15 {
		t.Errorf("bounds = (%d,%d)-(%d,%d)", minX, minY, maxX, maxY)
	}
}

func TestDefaultPalette(t *testing.T) {
	palette := DefaultPalette()
	if len(palette) < 5 {
		t.Fatalf("palette has %d colors, want at least 5", len(palette))
	}
	seen := make(map[[4]uint8]bool)
	for _, c := range palette {
		key := [4]uint8{c.R, c.G, c.B, c.A}
		if seen[key] {
			t.Errorf("duplicate palette color %v", c)
		}
		seen[key] = true
	}
}
