package survey

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultPalette returns distinct sensor colors, reference first.
func DefaultPalette() []color.NRGBA {
	return []color.NRGBA{
		{0, 0, 255, 255},    // reference - blue
		{255, 0, 0, 255},    // red
		{0, 170, 0, 255},    // green
		{255, 140, 0, 255},  // orange
		{160, 32, 240, 255}, // purple
		{0, 180, 180, 255},  // teal
	}
}

// MapRenderer draws a solved constellation as a top-down PNG: every distinct
// landmark projected onto the XY plane, with sensor origins marked and
// labelled.
type MapRenderer struct {
	Solution    *Solution
	TargetWidth int                 // output width in pixels before padding
	Padding     int                 // padding around the drawing, in pixels
	Colors      map[int]color.NRGBA // per-sensor origin colors

	LandmarkColor color.NRGBA
	Background    color.NRGBA
}

// NewMapRenderer creates a renderer with default size and palette.
func NewMapRenderer(sol *Solution) *MapRenderer {
	colors := make(map[int]color.NRGBA)
	if sol != nil && sol.Map != nil {
		palette := DefaultPalette()
		for i, id := range sortedKeys(sol.Map.Origins()) {
			colors[id] = palette[i%len(palette)]
		}
	}
	return &MapRenderer{
		Solution:      sol,
		TargetWidth:   800,
		Padding:       24,
		Colors:        colors,
		LandmarkColor: color.NRGBA{70, 70, 70, 255},
		Background:    color.NRGBA{255, 255, 255, 255},
	}
}

// RenderPNG encodes the projection to PNG.
func (r *MapRenderer) RenderPNG(w io.Writer) error {
	if r.Solution == nil || r.Solution.Map == nil {
		return fmt.Errorf("no solution to render")
	}

	landmarks := r.Solution.Map.Landmarks()
	origins := r.Solution.Map.Origins()

	minX, minY, maxX, maxY := projectionBounds(landmarks, origins)
	spanX := maxX - minX
	spanY := maxY - minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}

	scale := float64(r.TargetWidth) / float64(spanX)
	width := r.TargetWidth + 2*r.Padding
	height := int(float64(spanY)*scale) + 2*r.Padding

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, r.Background)
		}
	}

	// World Y grows up, image Y grows down.
	toPixel := func(l Landmark) (int, int) {
		px := int(float64(l.X-minX)*scale) + r.Padding
		py := height - (int(float64(l.Y-minY)*scale) + r.Padding)
		return px, py
	}

	for _, l := range landmarks {
		px, py := toPixel(l)
		drawDot(img, px, py, 2, r.LandmarkColor)
	}

	for _, id := range sortedKeys(origins) {
		c, ok := r.Colors[id]
		if !ok {
			c = color.NRGBA{0, 0, 0, 255}
		}
		px, py := toPixel(origins[id])
		drawCross(img, px, py, 5, c)
		drawLabel(img, px+7, py-4, fmt.Sprintf("S%d", id), c)
	}

	return png.Encode(w, img)
}

func projectionBounds(landmarks []Landmark, origins map[int]Landmark) (minX, minY, maxX, maxY int64) {
	first := true
	consider := func(l Landmark) {
		if first {
			minX, maxX = l.X, l.X
			minY, maxY = l.Y, l.Y
			first = false
			return
		}
		if l.X < minX {
			minX = l.X
		}
		if l.X > maxX {
			maxX = l.X
		}
		if l.Y < minY {
			minY = l.Y
		}
		if l.Y > maxY {
			maxY = l.Y
		}
	}
	for _, l := range landmarks {
		consider(l)
	}
	for _, o := range origins {
		consider(o)
	}
	return minX, minY, maxX, maxY
}

func drawDot(img *image.NRGBA, cx, cy, radius int, c color.NRGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				setIfInside(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func drawCross(img *image.NRGBA, cx, cy, arm int, c color.NRGBA) {
	for d := -arm; d <= arm; d++ {
		setIfInside(img, cx+d, cy, c)
		setIfInside(img, cx, cy+d, c)
	}
}

func setIfInside(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetNRGBA(x, y, c)
	}
}

// drawLabel renders small text with the fixed basicfont face.
func drawLabel(img *image.NRGBA, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
