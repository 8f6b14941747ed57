package layers

import (
	"image"
	"time"
)

// ContentKind discriminates the layer content union. A layer's kind is
// fixed at construction and never changes.
type ContentKind uint8

const (
	ContentPaint ContentKind = iota
	ContentText
	ContentImage
	ContentAdjustment
	ContentGroup
)

var contentKindNames = [...]string{"paint", "text", "image", "adjustment", "group"}

// String returns the lower-case kind name.
func (k ContentKind) String() string {
	if int(k) < len(contentKindNames) {
		return contentKindNames[k]
	}
	return "unknown"
}

// Content is the tagged union over layer content variants.
type Content interface {
	// Kind returns the variant tag.
	Kind() ContentKind
	// Clone returns an independent deep copy. Element ids are preserved;
	// use reassignIDs after cloning when duplicating a layer.
	Clone() Content
	// reassignIDs gives every list element a fresh id so a duplicate
	// never shares element identity with its source.
	reassignIDs()
}

// BrushStroke is a freehand stroke: an ordered point list in pixel space
// stamped as overlapping antialiased discs. Strokes are immutable once
// appended except through explicit transform operations, which re-stamp
// the underlying raster rather than translating the bitmap.
type BrushStroke struct {
	ID      string
	Points  []Point
	Color   RGBA
	Size    float64
	Opacity float64
	Created time.Time
}

// Clone returns an independent deep copy of the stroke.
func (s *BrushStroke) Clone() *BrushStroke {
	out := *s
	out.Points = make([]Point, len(s.Points))
	copy(out.Points, s.Points)
	return &out
}

// Bounds returns the stroke's axis-aligned bounding box including the
// brush radius.
func (s *BrushStroke) Bounds() Rect {
	if len(s.Points) == 0 {
		return Rect{}
	}
	minX, minY := s.Points[0].X, s.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range s.Points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	r := s.Size / 2
	return Rect{X: minX - r, Y: minY - r, W: maxX - minX + s.Size, H: maxY - minY + s.Size}
}

// PaintContent backs a freehand paint layer: a raster surface plus the
// ordered stroke list that produced it, and any relief puff elements
// placed on the layer.
type PaintContent struct {
	Surface *Surface
	Strokes []*BrushStroke
	Puffs   []*PuffElement
}

func (c *PaintContent) Kind() ContentKind { return ContentPaint }

func (c *PaintContent) Clone() Content {
	out := &PaintContent{}
	if c.Surface != nil {
		out.Surface = c.Surface.Clone()
	}
	out.Strokes = make([]*BrushStroke, len(c.Strokes))
	for i, s := range c.Strokes {
		out.Strokes[i] = s.Clone()
	}
	out.Puffs = make([]*PuffElement, len(c.Puffs))
	for i, p := range c.Puffs {
		out.Puffs[i] = p.Clone()
	}
	return out
}

func (c *PaintContent) reassignIDs() {
	for _, s := range c.Strokes {
		s.ID = newID()
	}
	for _, p := range c.Puffs {
		p.ID = newID()
	}
}

// TextAlign controls horizontal alignment within a wrapped text block.
type TextAlign uint8

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// TextRun is a placed run of styled text. UV placement is authoritative;
// pixel fields are cached projections (see Placement).
type TextRun struct {
	ID         string
	Text       string
	FontFamily string
	FontSize   float64 // pixels
	Bold       bool
	Italic     bool
	Color      RGBA
	Align      TextAlign
	// Language is a BCP-47 tag ("en", "ar", ...) used during shaping.
	Language string
	// MaxWidth enables greedy word wrap when > 0 (pixels).
	MaxWidth   float64
	LineHeight float64 // multiplier, 0 means 1.2
	Underline  bool
	Strike     bool
	Visible    bool
	Rotation   float64
	Placement  Placement
	Created    time.Time
}

// Clone returns an independent deep copy of the run.
func (r *TextRun) Clone() *TextRun {
	out := *r
	return &out
}

// TextContent backs a text layer: an ordered list of text runs.
type TextContent struct {
	Runs []*TextRun
}

func (c *TextContent) Kind() ContentKind { return ContentText }

func (c *TextContent) Clone() Content {
	out := &TextContent{Runs: make([]*TextRun, len(c.Runs))}
	for i, r := range c.Runs {
		out.Runs[i] = r.Clone()
	}
	return out
}

func (c *TextContent) reassignIDs() {
	for _, r := range c.Runs {
		r.ID = newID()
	}
}

// PlacedImage is a bitmap placement. Image is nil while an asynchronous
// decode is in flight; the engine draws a neutral placeholder and
// recomposites when the decode completes.
type PlacedImage struct {
	ID     string
	Source string // origin tag (path, URL) for logs only
	Image  image.Image
	// Loading marks an in-flight decode.
	Loading   bool
	Opacity   float64
	Rotation  float64 // about the image's own center
	FlipH     bool
	FlipV     bool
	Visible   bool
	Placement Placement
	Created   time.Time

	// cached rasterization of Image at the current pixel size
	cached *Surface
}

// Clone returns an independent deep copy. The decoded image is shared
// (immutable once decoded); placement and flags are copied.
func (pi *PlacedImage) Clone() *PlacedImage {
	out := *pi
	out.cached = nil
	return &out
}

// InvalidateCache drops the cached rasterization, forcing a re-render at
// the next composite.
func (pi *PlacedImage) InvalidateCache() { pi.cached = nil }

// ImageContent backs an image layer: an ordered list of placed images.
type ImageContent struct {
	Images []*PlacedImage
}

func (c *ImageContent) Kind() ContentKind { return ContentImage }

func (c *ImageContent) Clone() Content {
	out := &ImageContent{Images: make([]*PlacedImage, len(c.Images))}
	for i, im := range c.Images {
		out.Images[i] = im.Clone()
	}
	return out
}

func (c *ImageContent) reassignIDs() {
	for _, im := range c.Images {
		im.ID = newID()
	}
}

// PuffElement is a relief item: a filled disc on the diffuse surface plus
// an amplitude-encoded radial gradient on the height/displacement
// surfaces, with a cosine falloff controlled by Softness.
type PuffElement struct {
	ID string
	// Center in UV space is authoritative; CenterPx/RadiusPx are cached
	// projections kept in sync by the mapper.
	Center    UV
	CenterPx  Point
	RadiusUV  float64 // fraction of surface width
	RadiusPx  float64
	Color     RGBA
	Amplitude float64 // peak height contribution in [0, 1]
	Softness  float64 // falloff width in [0, 1]; 0 is a hard edge
	Visible   bool
	Created   time.Time
}

// Clone returns an independent copy of the element.
func (p *PuffElement) Clone() *PuffElement {
	out := *p
	return &out
}

// SyncFromUV recomputes the cached pixel center/radius.
func (p *PuffElement) SyncFromUV(m Mapper) {
	p.CenterPx = m.UVToPixel(p.Center)
	p.RadiusPx, _ = m.UVSizeToPixel(p.RadiusUV, 0)
}

// SyncFromPixel re-derives the authoritative UV fields after a
// pixel-space mutation.
func (p *PuffElement) SyncFromPixel(m Mapper) {
	p.Center = m.PixelToUV(p.CenterPx)
	p.RadiusUV, _ = m.PixelSizeToUV(p.RadiusPx, 0)
}

// AdjustmentKind discriminates the closed set of adjustment variants.
type AdjustmentKind uint8

const (
	AdjustBrightnessContrast AdjustmentKind = iota
	AdjustHueSaturation
	AdjustLevels
)

// AdjustmentParams is the closed tagged union of adjustment parameters.
// Each kind carries its own strongly-typed struct; there is no untyped
// parameter bag.
type AdjustmentParams interface {
	AdjustKind() AdjustmentKind
	// apply transforms a single pixel color.
	apply(RGBA) RGBA
}

// BrightnessContrast shifts brightness by Brightness in [-1, 1] and
// scales contrast by Contrast in [-1, 1] about mid-gray.
type BrightnessContrast struct {
	Brightness float64
	Contrast   float64
}

func (a BrightnessContrast) AdjustKind() AdjustmentKind { return AdjustBrightnessContrast }

func (a BrightnessContrast) apply(c RGBA) RGBA {
	k := 1 + a.Contrast
	adj := func(v float64) float64 {
		return clamp01((v-0.5)*k + 0.5 + a.Brightness)
	}
	return RGBA{R: adj(c.R), G: adj(c.G), B: adj(c.B), A: c.A}
}

// HueShift rotates hue by Degrees and scales saturation/lightness by the
// given multipliers.
type HueShift struct {
	Degrees    float64
	Saturation float64 // 1 = unchanged
	Lightness  float64 // 1 = unchanged
}

func (a HueShift) AdjustKind() AdjustmentKind { return AdjustHueSaturation }

func (a HueShift) apply(c RGBA) RGBA {
	h, s, l := rgbToHSL(c.R, c.G, c.B)
	h += a.Degrees / 360
	h -= float64(int(h))
	if h < 0 {
		h++
	}
	s = clamp01(s * a.Saturation)
	l = clamp01(l * a.Lightness)
	r, g, b := hslToRGB(h, s, l)
	return RGBA{R: r, G: g, B: b, A: c.A}
}

// Levels remaps the input range [InBlack, InWhite] through Gamma onto
// [OutBlack, OutWhite].
type Levels struct {
	InBlack  float64
	InWhite  float64
	Gamma    float64 // 1 = linear
	OutBlack float64
	OutWhite float64
}

func (a Levels) AdjustKind() AdjustmentKind { return AdjustLevels }

func (a Levels) apply(c RGBA) RGBA {
	in := a.InWhite - a.InBlack
	if in <= 0 {
		in = 1
	}
	gamma := a.Gamma
	if gamma <= 0 {
		gamma = 1
	}
	adj := func(v float64) float64 {
		v = clamp01((v - a.InBlack) / in)
		v = pow(v, 1/gamma)
		return clamp01(a.OutBlack + v*(a.OutWhite-a.OutBlack))
	}
	return RGBA{R: adj(c.R), G: adj(c.G), B: adj(c.B), A: c.A}
}

// AdjustmentContent backs an adjustment layer: a color transform applied
// to the composite accumulated below it.
type AdjustmentContent struct {
	Params AdjustmentParams
}

func (c *AdjustmentContent) Kind() ContentKind { return ContentAdjustment }

func (c *AdjustmentContent) Clone() Content {
	// Params are value types; copying the interface copies the struct.
	return &AdjustmentContent{Params: c.Params}
}

func (c *AdjustmentContent) reassignIDs() {}

// GroupContent backs a group layer: an ordered list of member layer ids.
// Members keep a GroupID back-reference; the store maintains the edge in
// both directions.
type GroupContent struct {
	ChildIDs  []string
	Collapsed bool
}

func (c *GroupContent) Kind() ContentKind { return ContentGroup }

func (c *GroupContent) Clone() Content {
	out := &GroupContent{Collapsed: c.Collapsed}
	out.ChildIDs = make([]string, len(c.ChildIDs))
	copy(out.ChildIDs, c.ChildIDs)
	return out
}

func (c *GroupContent) reassignIDs() {}
