package layers

// renderLayerContent draws one layer's own content onto dst in the fixed
// sub-order: raster surface, text runs, placed images, puff discs.
// Brush strokes are already rasterized into the paint surface when they
// are added, so the surface draw covers them. The layer's transform,
// opacity, blend mode and mask are applied by the caller when the result
// is composited; this function renders untransformed content only.
//
// tr may be nil (thumbnail generation); text runs then render as
// placeholders.
func renderLayerContent(dst *Surface, l *Layer, m Mapper, tr *TextRenderer) {
	switch c := l.Content.(type) {
	case *PaintContent:
		if c.Surface != nil && !c.Surface.IsDisposed() {
			dst.DrawSurface(c.Surface, DrawOptions{Opacity: 1})
		}
		for _, p := range c.Puffs {
			if p.Visible {
				drawPuffDiffuse(dst, p)
			}
		}
	case *TextContent:
		for _, r := range c.Runs {
			if !r.Visible {
				continue
			}
			drawn := tr.DrawRun(dst, r, m)
			// Cache the measured block size on the placement so
			// hit-testing sees real bounds.
			if drawn.W > 0 && drawn.H > 0 {
				r.Placement.PxSize = Point{X: drawn.W, Y: drawn.H}
				r.Placement.USize, r.Placement.VSize = m.PixelSizeToUV(drawn.W, drawn.H)
			}
		}
	case *ImageContent:
		for _, pi := range c.Images {
			if pi.Visible {
				drawPlacedImage(dst, pi)
			}
		}
	}
}
