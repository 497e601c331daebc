package survey

import (
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// canvasRenderer is the subset both the svg and rasterizer backends implement.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// VectorRenderer draws a solved constellation as vector graphics (SVG, or
// rasterized PNG) in world units: landmark dots, sensor origin markers and a
// reference grid.
type VectorRenderer struct {
	Solution    *Solution
	Padding     float64             // padding around the drawing, world units
	GridSpacing float64             // grid line spacing in world units; 0 disables
	DotRadius   float64             // landmark dot radius, world units
	Colors      map[int]color.NRGBA // per-sensor origin colors
	Resolution  canvas.Resolution   // DPMM for PNG output
}

// NewVectorRenderer creates a vector renderer with default settings.
func NewVectorRenderer(sol *Solution) *VectorRenderer {
	colors := make(map[int]color.NRGBA)
	if sol != nil && sol.Map != nil {
		palette := DefaultPalette()
		for i, id := range sortedKeys(sol.Map.Origins()) {
			colors[id] = palette[i%len(palette)]
		}
	}
	return &VectorRenderer{
		Solution:    sol,
		Padding:     200.0,
		GridSpacing: 1000.0,
		DotRadius:   12.0,
		Colors:      colors,
		Resolution:  canvas.DPI(96),
	}
}

// RenderToSVG writes the projection as an SVG document.
func (r *VectorRenderer) RenderToSVG(w io.Writer) error {
	minX, minY, width, height, err := r.layout()
	if err != nil {
		return err
	}

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, minX, minY, width, height)
	return svgRenderer.Close()
}

// RenderToPNG rasterizes the projection and encodes it as PNG.
func (r *VectorRenderer) RenderToPNG(w io.Writer) error {
	minX, minY, width, height, err := r.layout()
	if err != nil {
		return err
	}

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, minX, minY, width, height)
	return png.Encode(w, rast)
}

// layout computes the world-space bounds and the padded canvas size.
func (r *VectorRenderer) layout() (minX, minY, width, height float64, err error) {
	if r.Solution == nil || r.Solution.Map == nil {
		return 0, 0, 0, 0, fmt.Errorf("no solution to render")
	}

	loX, loY, hiX, hiY := projectionBounds(r.Solution.Map.Landmarks(), r.Solution.Map.Origins())
	minX = float64(loX)
	minY = float64(loY)
	width = float64(hiX-loX) + 2*r.Padding
	height = float64(hiY-loY) + 2*r.Padding
	if width <= 2*r.Padding {
		width = 2*r.Padding + 1
	}
	if height <= 2*r.Padding {
		height = 2*r.Padding + 1
	}
	return minX, minY, width, height, nil
}

func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, minX, minY, width, height float64) {
	toCanvas := func(l Landmark) (float64, float64) {
		return float64(l.X) - minX + r.Padding, float64(l.Y) - minY + r.Padding
	}

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	if r.GridSpacing > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		gridStyle.StrokeWidth = 2.0
		gridStyle.Dashes = []float64{10.0, 10.0}

		for x := math.Floor(minX/r.GridSpacing) * r.GridSpacing; x <= minX+width; x += r.GridSpacing {
			gridPath := &canvas.Path{}
			gridPath.MoveTo(x-minX+r.Padding, 0)
			gridPath.LineTo(x-minX+r.Padding, height)
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
		for y := math.Floor(minY/r.GridSpacing) * r.GridSpacing; y <= minY+height; y += r.GridSpacing {
			gridPath := &canvas.Path{}
			gridPath.MoveTo(0, y-minY+r.Padding)
			gridPath.LineTo(width, y-minY+r.Padding)
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
	}

	dotStyle := canvas.DefaultStyle
	dotStyle.Fill = canvas.Paint{Color: color.RGBA{70, 70, 70, 255}}
	dotStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	for _, l := range r.Solution.Map.Landmarks() {
		cx, cy := toCanvas(l)
		renderer.RenderPath(canvas.Circle(r.DotRadius).Translate(cx, cy), dotStyle, canvas.Identity)
	}

	origins := r.Solution.Map.Origins()
	for _, id := range sortedKeys(origins) {
		c, ok := r.Colors[id]
		if !ok {
			c = color.NRGBA{0, 0, 0, 255}
		}

		originStyle := canvas.DefaultStyle
		originStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(c)}
		originStyle.Stroke = canvas.Paint{Color: canvas.Black}
		originStyle.StrokeWidth = 3.0

		cx, cy := toCanvas(origins[id])
		renderer.RenderPath(canvas.Circle(r.DotRadius*2.5).Translate(cx, cy), originStyle, canvas.Identity)
	}
}

// nrgbaToRGBA premultiplies alpha; the canvas library expects premultiplied
// RGBA.
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha := uint32(c.A)
	return color.RGBA{
		R: uint8(uint32(c.R) * alpha / 255),
		G: uint8(uint32(c.G) * alpha / 255),
		B: uint8(uint32(c.B) * alpha / 255),
		A: c.A,
	}
}
