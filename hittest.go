package layers

import "math"

// Hit identifies the topmost content element found under a pointer.
// ElementID addresses the stroke, run, image or puff inside the layer;
// manipulation calls re-resolve it so a Hit stays valid across edits
// until the element is deleted.
type Hit struct {
	LayerID   string
	Kind      ContentKind
	ElementID string
	Bounds    Rect
}

// SelectionHitTester maps pointer positions to content elements and
// applies move, resize and rotate manipulations to them. The store is
// injected at construction; the tester holds no other state.
type SelectionHitTester struct {
	store *LayerStore
}

// NewSelectionHitTester creates a hit tester over the given store.
func NewSelectionHitTester(store *LayerStore) *SelectionHitTester {
	return &SelectionHitTester{store: store}
}

// HitTest converts uv to pixel coordinates using the composition
// surface's actual dimensions and scans content topmost-first, element
// drawn last winning ties within a layer. Bounds checks are against
// each element's axis-aligned bounding box. Returns false when nothing
// is under the pointer.
func (t *SelectionHitTester) HitTest(uv UV, surfaceW, surfaceH int) (Hit, bool) {
	pt := NewMapper(surfaceW, surfaceH).UVToPixel(uv)

	// Element bounds are cached in the store's pixel space; rescale when
	// the composition surface has different dimensions.
	sw, sh := t.store.SurfaceSize()
	if surfaceW != sw || surfaceH != sh {
		pt.X = pt.X * float64(sw) / float64(surfaceW)
		pt.Y = pt.Y * float64(sh) / float64(surfaceH)
	}

	order := t.store.Order()
	for i := len(order) - 1; i >= 0; i-- {
		l := t.store.Layer(order[i])
		if l == nil || !l.Visible || l.IsGroup() {
			continue
		}
		if hit, ok := hitLayer(l, layerLocal(l, pt)); ok {
			return hit, true
		}
	}
	return Hit{}, false
}

// layerLocal maps a store-space point into the layer's local pixel
// space by inverting the layer transform.
func layerLocal(l *Layer, pt Point) Point {
	m := l.Transform.Matrix()
	if m.IsIdentity() {
		return pt
	}
	return m.Invert().Apply(pt)
}

func hitLayer(l *Layer, pt Point) (Hit, bool) {
	switch c := l.Content.(type) {
	case *PaintContent:
		for i := len(c.Puffs) - 1; i >= 0; i-- {
			p := c.Puffs[i]
			if p.Visible && puffBounds(p).Contains(pt) {
				return Hit{LayerID: l.ID, Kind: ContentPaint, ElementID: p.ID, Bounds: puffBounds(p)}, true
			}
		}
		for i := len(c.Strokes) - 1; i >= 0; i-- {
			s := c.Strokes[i]
			if s.Bounds().Contains(pt) {
				return Hit{LayerID: l.ID, Kind: ContentPaint, ElementID: s.ID, Bounds: s.Bounds()}, true
			}
		}
	case *TextContent:
		for i := len(c.Runs) - 1; i >= 0; i-- {
			r := c.Runs[i]
			if r.Visible && r.Placement.Bounds().Contains(pt) {
				return Hit{LayerID: l.ID, Kind: ContentText, ElementID: r.ID, Bounds: r.Placement.Bounds()}, true
			}
		}
	case *ImageContent:
		for i := len(c.Images) - 1; i >= 0; i-- {
			im := c.Images[i]
			if im.Visible && im.Placement.Bounds().Contains(pt) {
				return Hit{LayerID: l.ID, Kind: ContentImage, ElementID: im.ID, Bounds: im.Placement.Bounds()}, true
			}
		}
	}
	return Hit{}, false
}

func puffBounds(p *PuffElement) Rect {
	return Rect{
		X: p.CenterPx.X - p.RadiusPx,
		Y: p.CenterPx.Y - p.RadiusPx,
		W: 2 * p.RadiusPx,
		H: 2 * p.RadiusPx,
	}
}

// Move translates the hit element by delta pixels. Strokes are
// re-stamped along their translated points rather than blitted, so the
// painted appearance stays continuous. Rejected with a lock violation
// when the layer's position is locked. Commits a history snapshot.
func (t *SelectionHitTester) Move(hit Hit, delta Point) error {
	l := t.store.Layer(hit.LayerID)
	if l == nil {
		return ErrLayerNotFound
	}
	if l.Lock.IsPositionLocked() {
		Logger().Info("move rejected, position locked", "layer", l.ID)
		return &LockViolationError{LayerID: l.ID, Lock: "position"}
	}
	m := t.store.Mapper()
	switch c := l.Content.(type) {
	case *PaintContent:
		if p := findPuff(c, hit.ElementID); p != nil {
			p.CenterPx = p.CenterPx.Add(delta)
			p.SyncFromPixel(m)
			break
		}
		s := findStroke(c, hit.ElementID)
		if s == nil {
			return ErrLayerNotFound
		}
		translateStroke(s, delta)
		restampStrokes(c)
	case *TextContent:
		r := findRun(c, hit.ElementID)
		if r == nil {
			return ErrLayerNotFound
		}
		r.Placement.Pixel = r.Placement.Pixel.Add(delta)
		r.Placement.SyncFromPixel(m)
	case *ImageContent:
		im := findImage(c, hit.ElementID)
		if im == nil {
			return ErrLayerNotFound
		}
		im.Placement.Pixel = im.Placement.Pixel.Add(delta)
		im.Placement.SyncFromPixel(m)
	default:
		return ErrContentKindMismatch
	}
	l.Touch()
	t.store.MarkDirty()
	t.commit("Move", l.ID)
	return nil
}

// Resize scales the hit element to the given pixel size about its
// bounds origin. Stroke points are scaled and re-stamped. Commits a
// history snapshot.
func (t *SelectionHitTester) Resize(hit Hit, size Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return nil
	}
	l := t.store.Layer(hit.LayerID)
	if l == nil {
		return ErrLayerNotFound
	}
	if l.Lock.IsPositionLocked() {
		Logger().Info("resize rejected, position locked", "layer", l.ID)
		return &LockViolationError{LayerID: l.ID, Lock: "position"}
	}
	m := t.store.Mapper()
	switch c := l.Content.(type) {
	case *PaintContent:
		if p := findPuff(c, hit.ElementID); p != nil {
			p.RadiusPx = size.X / 2
			p.SyncFromPixel(m)
			break
		}
		s := findStroke(c, hit.ElementID)
		if s == nil {
			return ErrLayerNotFound
		}
		b := s.Bounds()
		if b.W > 0 && b.H > 0 {
			scaleStrokeAbout(s, b.Center(), size.X/b.W, size.Y/b.H)
			restampStrokes(c)
		}
	case *TextContent:
		r := findRun(c, hit.ElementID)
		if r == nil {
			return ErrLayerNotFound
		}
		if r.Placement.PxSize.X > 0 {
			r.FontSize *= size.X / r.Placement.PxSize.X
		}
		r.Placement.PxSize = size
		r.Placement.SyncFromPixel(m)
	case *ImageContent:
		im := findImage(c, hit.ElementID)
		if im == nil {
			return ErrLayerNotFound
		}
		im.Placement.PxSize = size
		im.Placement.SyncFromPixel(m)
		im.InvalidateCache()
	default:
		return ErrContentKindMismatch
	}
	l.Touch()
	t.store.MarkDirty()
	t.commit("Resize", l.ID)
	return nil
}

// Rotate rotates the hit element by angle radians about its bounds
// center. Puffs are rotation invariant and ignore the call. Commits a
// history snapshot.
func (t *SelectionHitTester) Rotate(hit Hit, angle float64) error {
	if angle == 0 || math.IsNaN(angle) || math.IsInf(angle, 0) {
		return nil
	}
	l := t.store.Layer(hit.LayerID)
	if l == nil {
		return ErrLayerNotFound
	}
	if l.Lock.IsPositionLocked() {
		Logger().Info("rotate rejected, position locked", "layer", l.ID)
		return &LockViolationError{LayerID: l.ID, Lock: "position"}
	}
	switch c := l.Content.(type) {
	case *PaintContent:
		if findPuff(c, hit.ElementID) != nil {
			return nil
		}
		s := findStroke(c, hit.ElementID)
		if s == nil {
			return ErrLayerNotFound
		}
		rotateStrokeAbout(s, s.Bounds().Center(), angle)
		restampStrokes(c)
	case *TextContent:
		r := findRun(c, hit.ElementID)
		if r == nil {
			return ErrLayerNotFound
		}
		r.Rotation += angle
	case *ImageContent:
		im := findImage(c, hit.ElementID)
		if im == nil {
			return ErrLayerNotFound
		}
		im.Rotation += angle
	default:
		return ErrContentKindMismatch
	}
	l.Touch()
	t.store.MarkDirty()
	t.commit("Rotate", l.ID)
	return nil
}

func (t *SelectionHitTester) commit(label, layerID string) {
	t.store.commit(label, "hit-tester", layerID)
}

func findStroke(c *PaintContent, id string) *BrushStroke {
	for _, s := range c.Strokes {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func findPuff(c *PaintContent, id string) *PuffElement {
	for _, p := range c.Puffs {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func findRun(c *TextContent, id string) *TextRun {
	for _, r := range c.Runs {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func findImage(c *ImageContent, id string) *PlacedImage {
	for _, im := range c.Images {
		if im.ID == id {
			return im
		}
	}
	return nil
}
