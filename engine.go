package layers

import (
	"time"

	"github.com/gogpu/gputypes"
)

// TextureKind tags a published surface for the 3D pipeline.
type TextureKind uint8

const (
	TextureDiffuse TextureKind = iota
	TextureNormal
	TextureHeight
	TextureDisplacement
)

var textureKindNames = [...]string{"diffuse", "normal", "height", "displacement"}

func (k TextureKind) String() string {
	if int(k) < len(textureKindNames) {
		return textureKindNames[k]
	}
	return "unknown"
}

// TextureUpdate is the publish payload handed to the 3D texture
// consumer: raw pixels plus the upload descriptor metadata. Pixels stay
// valid until the next composition pass.
type TextureUpdate struct {
	Kind   TextureKind
	Pixels []uint8
	Width  int
	Height int
	Format gputypes.TextureFormat
}

// TextureConsumer receives finished surfaces each time a composition
// pass publishes.
type TextureConsumer interface {
	PublishTexture(TextureUpdate)
}

// BaseTextureProvider optionally supplies a base surface drawn first at
// full opacity (never subject to layer opacity). When no base texture
// exists yet the engine invokes the regeneration trigger.
type BaseTextureProvider interface {
	BaseSurface() *Surface
	RegenerateBase()
}

// SelectionProvider lets the engine draw the selection overlay without
// reaching into tool state through globals: the active tool reports its
// current selection bounds, if any.
type SelectionProvider interface {
	CurrentSelection() (bounds Rect, kind ContentKind, ok bool)
}

// EngineOption configures a CompositionEngine.
type EngineOption func(*CompositionEngine)

// WithEngineConfig overrides the default engine configuration.
func WithEngineConfig(cfg EngineConfig) EngineOption {
	return func(e *CompositionEngine) { e.cfg = cfg }
}

// WithBaseProvider attaches the base-texture collaborator.
func WithBaseProvider(p BaseTextureProvider) EngineOption {
	return func(e *CompositionEngine) { e.base = p }
}

// WithFontProvider attaches font resolution for text layers.
func WithFontProvider(p FontProvider) EngineOption {
	return func(e *CompositionEngine) { e.text = NewTextRenderer(p) }
}

// WithSelectionProvider attaches the overlay selection source.
func WithSelectionProvider(p SelectionProvider) EngineOption {
	return func(e *CompositionEngine) { e.selection = p }
}

// WithClock injects the time source used for throttling (tests).
func WithClock(clock func() time.Time) EngineOption {
	return func(e *CompositionEngine) { e.clock = clock }
}

// WithDisplacementStrength scales the baked displacement surface.
func WithDisplacementStrength(s float64) EngineOption {
	return func(e *CompositionEngine) { e.displacement = s }
}

// CompositeResult is the output of one composition pass. Normal, Height
// and Displacement are nil when the stack contains no relief content.
// Surfaces are owned by the engine and valid until the next pass.
type CompositeResult struct {
	Diffuse      *Surface
	Normal       *Surface
	Height       *Surface
	Displacement *Surface
	// Coalesced marks a request that arrived inside the throttle window
	// and returned the previously published result.
	Coalesced bool
	PassAt    time.Time
}

// CompositionEngine flattens the layer stack into the output surfaces.
// It pulls scratch space from the surface pool, applies per-layer
// opacity, blend mode, mask and transform with strictly scoped state,
// and publishes finished surfaces to the texture consumer.
type CompositionEngine struct {
	store    *LayerStore
	pool     *SurfacePool
	consumer TextureConsumer

	base      BaseTextureProvider
	selection SelectionProvider
	text      *TextRenderer

	cfg          EngineConfig
	clock        func() time.Time
	displacement float64

	last     *CompositeResult
	lastPass time.Time
}

// NewCompositionEngine creates an engine over the given store and pool.
// consumer may be nil; results are then only returned, not published.
func NewCompositionEngine(store *LayerStore, pool *SurfacePool, consumer TextureConsumer, opts ...EngineOption) *CompositionEngine {
	e := &CompositionEngine{
		store:        store,
		pool:         pool,
		consumer:     consumer,
		cfg:          DefaultConfig().Engine,
		clock:        time.Now,
		displacement: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LastResult returns the most recently published result, or nil.
func (e *CompositionEngine) LastResult() *CompositeResult { return e.last }

// Composite runs one full composition pass, throttled: a request
// arriving within the throttle interval of the previous pass is
// coalesced into a no-op returning the last published result.
func (e *CompositionEngine) Composite() *CompositeResult {
	now := e.clock()
	if e.last != nil && now.Sub(e.lastPass) < e.cfg.ThrottleInterval {
		Logger().Debug("composite coalesced", "since_last", now.Sub(e.lastPass))
		out := *e.last
		out.Coalesced = true
		return &out
	}

	prev := e.last
	res, err := e.renderPass(now)
	if err != nil {
		Logger().Warn("composition pass failed", "err", err)
		return e.last
	}
	e.releaseResult(prev)
	e.last = res
	e.lastPass = now
	e.store.ClearDirty()
	e.publish(res)
	return res
}

func (e *CompositionEngine) renderPass(now time.Time) (*CompositeResult, error) {
	w, h := e.cfg.Width, e.cfg.Height
	out, err := e.pool.Acquire(w, h)
	if err != nil {
		return nil, err
	}

	// Base texture first, at full opacity, never subject to layer
	// opacity. Absent base triggers regeneration for the next pass.
	if e.base != nil {
		if bs := e.base.BaseSurface(); bs != nil {
			out.DrawSurface(bs, DrawOptions{Opacity: 1})
		} else {
			e.base.RegenerateBase()
		}
	}

	render := e.renderList()
	Logger().Debug("composition pass", "layers", len(render))

	m := NewMapper(w, h)
	for _, l := range render {
		if err := e.compositeLayer(out, l, m); err != nil {
			e.pool.Release(out)
			return nil, err
		}
	}

	res := &CompositeResult{Diffuse: out, PassAt: now}

	if e.stackHasRelief(render) {
		if err := e.renderRelief(res, render, w, h); err != nil {
			// Relief failure degrades to diffuse-only output.
			Logger().Warn("relief pass failed", "err", err)
		}
	}

	// Selection overlay last, unscoped, visual-only.
	e.drawSelectionOverlay(out)

	return res, nil
}

// renderList produces the flat paint-order list: top-level layers bottom
// first, groups recursively substituted by their visible children in
// their own relative order. Invisible and collapsed groups are skipped
// entirely, as are zero-opacity layers (a pure no-op, not a zero-alpha
// draw).
func (e *CompositionEngine) renderList() []*Layer {
	var out []*Layer
	for _, id := range e.store.Order() {
		l := e.store.Layer(id)
		if l == nil || l.GroupID != "" {
			continue // grouped layers render with their group
		}
		e.appendRenderable(&out, l)
	}
	return out
}

func (e *CompositionEngine) appendRenderable(out *[]*Layer, l *Layer) {
	if !l.Visible || l.Opacity <= 0 {
		return
	}
	if g := l.Group(); g != nil {
		if g.Collapsed {
			return
		}
		for _, cid := range g.ChildIDs {
			if c := e.store.Layer(cid); c != nil {
				e.appendRenderable(out, c)
			}
		}
		return
	}
	*out = append(*out, l)
}

// compositeLayer renders one layer with scoped state: content is drawn
// to a scratch surface, the mask stenciled onto it, and the result
// composited under the layer's opacity, blend mode and transform. No
// drawing state leaks to subsequent layers.
func (e *CompositionEngine) compositeLayer(out *Surface, l *Layer, m Mapper) error {
	if ac, ok := l.Content.(*AdjustmentContent); ok {
		e.applyAdjustment(out, l, ac)
		return nil
	}

	scratch, err := e.pool.Acquire(out.Width(), out.Height())
	if err != nil {
		return err
	}
	defer e.pool.Release(scratch)

	renderLayerContent(scratch, l, m, e.text)

	if l.Mask != nil && l.Mask.Enabled && l.Mask.Mask != nil {
		scratch.ApplyMask(l.Mask.Mask, l.Mask.Inverted)
	}

	out.DrawSurface(scratch, DrawOptions{
		Opacity:   l.Opacity,
		Blend:     l.Blend,
		Transform: l.Transform.Matrix(),
	})
	return nil
}

// applyAdjustment applies an adjustment layer's color transform to the
// accumulated composite, weighted by layer opacity and mask coverage.
func (e *CompositionEngine) applyAdjustment(out *Surface, l *Layer, ac *AdjustmentContent) {
	if ac.Params == nil {
		return
	}
	var mask *Mask
	inverted := false
	if l.Mask != nil && l.Mask.Enabled {
		mask = l.Mask.Mask
		inverted = l.Mask.Inverted
	}
	w, h := out.Width(), out.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := out.GetPixel(x, y)
			if c.A == 0 {
				continue
			}
			weight := l.Opacity
			if mask != nil {
				mx := x * mask.Width() / w
				my := y * mask.Height() / h
				a := float64(mask.At(mx, my)) / 255
				if inverted {
					a = 1 - a
				}
				weight *= a
			}
			if weight <= 0 {
				continue
			}
			adj := ac.Params.apply(c)
			out.SetPixel(x, y, c.Lerp(adj, weight).WithAlpha(c.A))
		}
	}
}

func (e *CompositionEngine) stackHasRelief(render []*Layer) bool {
	for _, l := range render {
		if p := l.Paint(); p != nil {
			for _, puff := range p.Puffs {
				if puff.Visible {
					return true
				}
			}
		}
	}
	return false
}

// renderRelief composites the height, displacement and normal surfaces
// from each layer's displacement-relevant sub-content, honoring the
// same ordering, opacity, transform and mask rules as the diffuse pass:
// puff centers are mapped through the layer transform so the relief
// stays registered with the drawn discs, and mask coverage scales each
// pixel's contribution.
func (e *CompositionEngine) renderRelief(res *CompositeResult, render []*Layer, w, h int) error {
	hf := newHeightField(w, h)
	for _, l := range render {
		p := l.Paint()
		if p == nil {
			continue
		}
		m := l.Transform.Matrix()
		scale := m.ScaleFactor()
		weight := reliefMaskWeight(l, w, h)
		for _, puff := range p.Puffs {
			if puff.Visible {
				hf.stamp(m.Apply(puff.CenterPx), puff.RadiusPx*scale, puff.Softness,
					clamp01(puff.Amplitude)*clamp01(l.Opacity), weight)
			}
		}
	}
	if !hf.hasRelief() {
		return nil
	}
	hf.normalize()

	height, err := e.pool.Acquire(w, h)
	if err != nil {
		return err
	}
	disp, err := e.pool.Acquire(w, h)
	if err != nil {
		e.pool.Release(height)
		return err
	}
	normal, err := e.pool.Acquire(w, h)
	if err != nil {
		e.pool.Release(height)
		e.pool.Release(disp)
		return err
	}
	hf.heightSurface(height)
	hf.displacementSurface(disp, e.displacement)
	hf.normalSurface(normal, 2*e.displacement)
	res.Height = height
	res.Displacement = disp
	res.Normal = normal
	return nil
}

// reliefMaskWeight returns the layer's mask coverage sampled in output
// space, or nil when the layer has no enabled mask. The diffuse pass
// stencils the mask onto layer-local content before transforming, so
// output pixels are mapped back through the inverse transform before
// sampling.
func reliefMaskWeight(l *Layer, w, h int) func(x, y int) float64 {
	if l.Mask == nil || !l.Mask.Enabled || l.Mask.Mask == nil {
		return nil
	}
	mask := l.Mask.Mask
	inverted := l.Mask.Inverted
	inv := l.Transform.Matrix().Invert()
	mw, mh := mask.Width(), mask.Height()
	return func(x, y int) float64 {
		q := inv.Apply(Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
		mx := int(q.X) * mw / w
		my := int(q.Y) * mh / h
		if mx < 0 || my < 0 || mx >= mw || my >= mh {
			return 0
		}
		a := float64(mask.At(mx, my)) / 255
		if inverted {
			a = 1 - a
		}
		return a
	}
}

// releaseResult returns a previous pass's surfaces to the pool.
func (e *CompositionEngine) releaseResult(r *CompositeResult) {
	if r == nil {
		return
	}
	e.pool.Release(r.Diffuse)
	if r.Normal != nil {
		e.pool.Release(r.Normal)
	}
	if r.Height != nil {
		e.pool.Release(r.Height)
	}
	if r.Displacement != nil {
		e.pool.Release(r.Displacement)
	}
}

func (e *CompositionEngine) publish(res *CompositeResult) {
	if e.consumer == nil {
		return
	}
	pub := func(kind TextureKind, s *Surface) {
		if s == nil {
			return
		}
		e.consumer.PublishTexture(TextureUpdate{
			Kind:   kind,
			Pixels: s.Data(),
			Width:  s.Width(),
			Height: s.Height(),
			Format: gputypes.TextureFormatRGBA8Unorm,
		})
	}
	pub(TextureDiffuse, res.Diffuse)
	pub(TextureNormal, res.Normal)
	pub(TextureHeight, res.Height)
	pub(TextureDisplacement, res.Displacement)
}

// selectionDashLength is the dash period of the selection outline.
const selectionDashLength = 6

// drawSelectionOverlay draws the active tool selection as a dashed
// outline with resize handles for image selections. Overlays are
// visual-only: they are drawn after publishing-relevant state is
// complete and never affect relief surfaces.
func (e *CompositionEngine) drawSelectionOverlay(out *Surface) {
	if e.selection == nil {
		return
	}
	bounds, kind, ok := e.selection.CurrentSelection()
	if !ok || bounds.W <= 0 || bounds.H <= 0 {
		return
	}
	outline := RGBA{R: 0.1, G: 0.45, B: 0.95, A: 1}
	drawDashedRect(out, bounds, outline)
	if kind == ContentImage {
		handle := func(cx, cy float64) {
			out.FillRect(Rect{X: cx - 3, Y: cy - 3, W: 6, H: 6}, outline)
		}
		handle(bounds.X, bounds.Y)
		handle(bounds.X+bounds.W, bounds.Y)
		handle(bounds.X, bounds.Y+bounds.H)
		handle(bounds.X+bounds.W, bounds.Y+bounds.H)
		handle(bounds.X+bounds.W/2, bounds.Y)
		handle(bounds.X+bounds.W/2, bounds.Y+bounds.H)
		handle(bounds.X, bounds.Y+bounds.H/2)
		handle(bounds.X+bounds.W, bounds.Y+bounds.H/2)
	}
}

func drawDashedRect(out *Surface, r Rect, c RGBA) {
	dash := func(x, y float64, i int) {
		if (i/selectionDashLength)%2 == 0 {
			out.SetPixel(int(x), int(y), c)
		}
	}
	for i := 0; float64(i) <= r.W; i++ {
		dash(r.X+float64(i), r.Y, i)
		dash(r.X+float64(i), r.Y+r.H, i)
	}
	for i := 0; float64(i) <= r.H; i++ {
		dash(r.X, r.Y+float64(i), i)
		dash(r.X+r.W, r.Y+float64(i), i)
	}
}
