package layers

import (
	"image"
	"image/color"
	"math"

	"github.com/pufflab/layers/internal/blend"
)

// Surface is a rectangular pixel buffer with drawing operations: the
// editable canvas backing paint layers, masks and composition output.
// Pixels are stored as straight (non-premultiplied) RGBA bytes.
//
// Surfaces are pooled; obtain them from a [SurfacePool] and release them
// when done rather than allocating directly, except for short-lived
// scratch surfaces in tests.
type Surface struct {
	width  int
	height int
	data   []uint8 // RGBA, 4 bytes per pixel
}

// NewSurface creates a surface with the given dimensions, cleared to
// transparent.
func NewSurface(width, height int) *Surface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Surface{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.width }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.height }

// Data returns the raw pixel data (straight RGBA).
func (s *Surface) Data() []uint8 { return s.data }

// SetPixel sets the color of a single pixel.
// Coordinates outside the surface are ignored.
func (s *Surface) SetPixel(x, y int, c RGBA) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	i := (y*s.width + x) * 4
	s.data[i+0] = uint8(clamp255(c.R * 255))
	s.data[i+1] = uint8(clamp255(c.G * 255))
	s.data[i+2] = uint8(clamp255(c.B * 255))
	s.data[i+3] = uint8(clamp255(c.A * 255))
}

// GetPixel returns the color of a single pixel.
// Coordinates outside the surface return Transparent.
func (s *Surface) GetPixel(x, y int) RGBA {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return Transparent
	}
	i := (y*s.width + x) * 4
	return RGBA{
		R: float64(s.data[i+0]) / 255,
		G: float64(s.data[i+1]) / 255,
		B: float64(s.data[i+2]) / 255,
		A: float64(s.data[i+3]) / 255,
	}
}

// Clear resets every pixel to transparent.
func (s *Surface) Clear() {
	clearBytes(s.data)
}

// Fill fills the entire surface with a color.
func (s *Surface) Fill(c RGBA) {
	r := uint8(clamp255(c.R * 255))
	g := uint8(clamp255(c.G * 255))
	b := uint8(clamp255(c.B * 255))
	a := uint8(clamp255(c.A * 255))
	for i := 0; i < len(s.data); i += 4 {
		s.data[i+0] = r
		s.data[i+1] = g
		s.data[i+2] = b
		s.data[i+3] = a
	}
}

// Clone returns an independent deep copy of the surface.
// The copy is allocated outside any pool.
func (s *Surface) Clone() *Surface {
	out := NewSurface(s.width, s.height)
	copy(out.data, s.data)
	return out
}

// CopyFrom replaces this surface's pixels with src's, resizing if needed.
func (s *Surface) CopyFrom(src *Surface) {
	if s.width != src.width || s.height != src.height {
		s.Resize(src.width, src.height)
	}
	copy(s.data, src.data)
}

// Resize reallocates the pixel buffer at the new dimensions.
// Existing content is dropped. Resizing to 0x0 releases the backing
// storage entirely (used by the pool to dispose surfaces).
func (s *Surface) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		s.width = 0
		s.height = 0
		s.data = nil
		return
	}
	if width == s.width && height == s.height {
		s.Clear()
		return
	}
	s.width = width
	s.height = height
	s.data = make([]uint8, width*height*4)
}

// IsDisposed reports whether the backing storage has been dropped.
func (s *Surface) IsDisposed() bool { return s.data == nil }

// SizeBytes returns the estimated memory footprint of the pixel buffer.
func (s *Surface) SizeBytes() int { return len(s.data) }

// ColorModel implements image.Image.
func (s *Surface) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// At implements image.Image.
func (s *Surface) At(x, y int) color.Color {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return color.NRGBA{}
	}
	i := (y*s.width + x) * 4
	return color.NRGBA{R: s.data[i], G: s.data[i+1], B: s.data[i+2], A: s.data[i+3]}
}

// Set implements draw.Image, letting x/image drawers render directly
// into the surface.
func (s *Surface) Set(x, y int, c color.Color) {
	s.SetPixel(x, y, FromColor(c))
}

// blendPixel combines a source color into the pixel at (x, y) using fn.
func (s *Surface) blendPixel(x, y int, c RGBA, fn blend.Func) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	if fn == nil {
		fn = blend.SourceOver
	}
	d := s.GetPixel(x, y)
	r, g, b, a := fn(c.R, c.G, c.B, c.A, d.R, d.G, d.B, d.A)
	s.SetPixel(x, y, RGBA{R: r, G: g, B: b, A: a})
}

// sample returns the bilinearly interpolated color at a fractional
// position. Samples outside the surface are transparent.
func (s *Surface) sample(x, y float64) RGBA {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	c00 := s.GetPixel(int(x0), int(y0))
	c10 := s.GetPixel(int(x0)+1, int(y0))
	c01 := s.GetPixel(int(x0), int(y0)+1)
	c11 := s.GetPixel(int(x0)+1, int(y0)+1)
	top := c00.Lerp(c10, fx)
	bot := c01.Lerp(c11, fx)
	return top.Lerp(bot, fy)
}

// DrawOptions control how one surface is drawn over another.
type DrawOptions struct {
	// Opacity multiplies the source alpha, in [0, 1]. Zero draws nothing.
	Opacity float64
	// Blend selects the pixel-combination rule. BlendNormal is source-over.
	Blend BlendMode
	// Transform maps source pixel coordinates into destination
	// coordinates. The zero Matrix is treated as identity.
	Transform Matrix
}

// DrawSurface draws src over s applying opacity, blend mode and an affine
// transform. The source is sampled bilinearly under non-identity
// transforms.
func (s *Surface) DrawSurface(src *Surface, opts DrawOptions) {
	if src == nil || src.IsDisposed() || opts.Opacity <= 0 {
		return
	}
	opacity := clamp01(opts.Opacity)
	fn := opts.Blend.fn()
	m := opts.Transform
	if (m == Matrix{}) {
		m = Identity()
	}

	if m.IsIdentity() {
		w := minInt(s.width, src.width)
		h := minInt(s.height, src.height)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := src.GetPixel(x, y)
				if c.A == 0 {
					continue
				}
				c.A *= opacity
				s.blendPixel(x, y, c, fn)
			}
		}
		return
	}

	// Inverse-map the destination pixels covered by the transformed
	// source bounds.
	inv := m.Invert()
	x0, y0, x1, y1 := transformedBounds(m, src.width, src.height)
	x0 = maxInt(x0, 0)
	y0 = maxInt(y0, 0)
	x1 = minInt(x1, s.width)
	y1 = minInt(y1, s.height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sp := inv.Apply(Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			if sp.X < -0.5 || sp.Y < -0.5 || sp.X > float64(src.width)-0.5 || sp.Y > float64(src.height)-0.5 {
				continue
			}
			c := src.sample(sp.X-0.5, sp.Y-0.5)
			if c.A == 0 {
				continue
			}
			c.A *= opacity
			s.blendPixel(x, y, c, fn)
		}
	}
}

// FillRect fills an axis-aligned rectangle with a color using source-over.
func (s *Surface) FillRect(r Rect, c RGBA) {
	x0 := maxInt(int(math.Floor(r.X)), 0)
	y0 := maxInt(int(math.Floor(r.Y)), 0)
	x1 := minInt(int(math.Ceil(r.X+r.W)), s.width)
	y1 := minInt(int(math.Ceil(r.Y+r.H)), s.height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			s.blendPixel(x, y, c, blend.SourceOver)
		}
	}
}

// FillCircle stamps an antialiased filled disc, the primitive behind
// brush stamping. The edge is feathered over one pixel.
func (s *Surface) FillCircle(cx, cy, radius float64, c RGBA) {
	s.stampCircle(cx, cy, radius, c, blend.SourceOver)
}

// EraseCircle removes alpha inside a disc (destination-out), the
// primitive behind the eraser tool.
func (s *Surface) EraseCircle(cx, cy, radius float64, strength float64) {
	s.stampCircle(cx, cy, radius, RGBA{A: clamp01(strength)}, blend.DestinationOut)
}

func (s *Surface) stampCircle(cx, cy, radius float64, c RGBA, fn blend.Func) {
	if radius <= 0 || c.A <= 0 {
		return
	}
	x0 := maxInt(int(math.Floor(cx-radius-1)), 0)
	y0 := maxInt(int(math.Floor(cy-radius-1)), 0)
	x1 := minInt(int(math.Ceil(cx+radius+1)), s.width)
	y1 := minInt(int(math.Ceil(cy+radius+1)), s.height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			cov := radius - d + 0.5
			if cov <= 0 {
				continue
			}
			if cov > 1 {
				cov = 1
			}
			s.blendPixel(x, y, c.WithAlpha(c.A*cov), fn)
		}
	}
}

// ApplyMask stencils the surface's alpha by the mask. Where the mask is
// transparent the surface becomes transparent; inverted reverses the
// stencil. Masks smaller than the surface are sampled with nearest
// scaling.
func (s *Surface) ApplyMask(m *Mask, inverted bool) {
	if m == nil || m.width == 0 || m.height == 0 {
		return
	}
	for y := 0; y < s.height; y++ {
		my := y * m.height / s.height
		for x := 0; x < s.width; x++ {
			mx := x * m.width / s.width
			a := float64(m.At(mx, my)) / 255
			if inverted {
				a = 1 - a
			}
			i := (y*s.width + x) * 4
			s.data[i+3] = uint8(clamp255(float64(s.data[i+3]) * a))
		}
	}
}

// transformedBounds returns the integer AABB of a w*h rectangle under m.
func transformedBounds(m Matrix, w, h int) (int, int, int, int) {
	corners := [4]Point{
		m.Apply(Point{0, 0}),
		m.Apply(Point{float64(w), 0}),
		m.Apply(Point{0, float64(h)}),
		m.Apply(Point{float64(w), float64(h)}),
	}
	minX, minY := corners[0].X, corners[0].Y
	maxX, maxY := minX, minY
	for _, p := range corners[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY))
}

func clearBytes(b []uint8) {
	for i := range b {
		b[i] = 0
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
