package layers

// UV is a normalized texture coordinate in [0,1]x[0,1], independent of
// surface resolution. UV coordinates are the authoritative placement
// representation; pixel positions are cached projections.
//
// The canonical axis convention is Y-down: V=0 is the top row of the
// surface, matching pixel row order, so UVToPixel involves no flip.
type UV struct {
	U, V float64
}

// Mapper converts between UV space and the pixel space of a surface of a
// specific size. The zero Mapper maps everything to the origin.
type Mapper struct {
	width  float64
	height float64
}

// NewMapper creates a mapper for a surface of the given pixel dimensions.
func NewMapper(width, height int) Mapper {
	return Mapper{width: float64(width), height: float64(height)}
}

// MapperFor creates a mapper sized to the given surface.
func MapperFor(s *Surface) Mapper {
	if s == nil {
		return Mapper{}
	}
	return NewMapper(s.Width(), s.Height())
}

// UVToPixel projects a UV coordinate onto the surface's pixel grid.
func (m Mapper) UVToPixel(uv UV) Point {
	return Point{X: uv.U * m.width, Y: uv.V * m.height}
}

// PixelToUV derives the UV coordinate of a pixel position.
// A zero-sized mapper yields UV{0, 0}.
func (m Mapper) PixelToUV(p Point) UV {
	if m.width == 0 || m.height == 0 {
		return UV{}
	}
	return UV{U: p.X / m.width, V: p.Y / m.height}
}

// UVSizeToPixel converts a normalized width/height pair to pixels.
func (m Mapper) UVSizeToPixel(w, h float64) (float64, float64) {
	return w * m.width, h * m.height
}

// PixelSizeToUV converts a pixel width/height pair to normalized units.
func (m Mapper) PixelSizeToUV(w, h float64) (float64, float64) {
	if m.width == 0 || m.height == 0 {
		return 0, 0
	}
	return w / m.width, h / m.height
}

// Placement stores both the authoritative UV position/size of a content
// element and its cached pixel projection. The two representations are
// kept in sync through SyncFromUV and SyncFromPixel; they must never be
// mutated independently.
type Placement struct {
	// Authoritative normalized placement.
	UV     UV
	USize  float64
	VSize  float64
	// Cached pixel projection, recomputed on sync.
	Pixel  Point
	PxSize Point
}

// SyncFromUV recomputes the cached pixel fields from the UV fields.
func (p *Placement) SyncFromUV(m Mapper) {
	p.Pixel = m.UVToPixel(p.UV)
	w, h := m.UVSizeToPixel(p.USize, p.VSize)
	p.PxSize = Point{X: w, Y: h}
}

// SyncFromPixel re-derives the authoritative UV fields from the pixel
// fields after a pixel-space mutation (move, resize).
func (p *Placement) SyncFromPixel(m Mapper) {
	p.UV = m.PixelToUV(p.Pixel)
	p.USize, p.VSize = m.PixelSizeToUV(p.PxSize.X, p.PxSize.Y)
}

// Bounds returns the pixel-space bounding rectangle of the placement.
func (p *Placement) Bounds() Rect {
	return Rect{X: p.Pixel.X, Y: p.Pixel.Y, W: p.PxSize.X, H: p.PxSize.Y}
}
