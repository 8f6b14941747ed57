package layers

import "math"

// stampSpacingFactor is the stamp spacing as a fraction of brush size.
// Stamps overlap enough that a stroke reads as a continuous line with
// round caps and joins.
const stampSpacingFactor = 0.25

// stampStroke rasterizes a brush stroke onto the surface by stamping
// antialiased discs along interpolated sub-points between the recorded
// points. Single-point strokes stamp one dot.
func stampStroke(dst *Surface, s *BrushStroke) {
	if dst == nil || len(s.Points) == 0 || s.Size <= 0 {
		return
	}
	c := s.Color.WithAlpha(s.Color.A * clamp01(s.Opacity))
	r := s.Size / 2
	dst.FillCircle(s.Points[0].X, s.Points[0].Y, r, c)
	spacing := math.Max(s.Size*stampSpacingFactor, 0.5)
	for i := 1; i < len(s.Points); i++ {
		a, b := s.Points[i-1], s.Points[i]
		dist := a.Distance(b)
		steps := int(math.Ceil(dist / spacing))
		for j := 1; j <= steps; j++ {
			p := a.Lerp(b, float64(j)/float64(steps))
			dst.FillCircle(p.X, p.Y, r, c)
		}
	}
}

// restampStrokes regenerates a paint surface from its stroke list:
// the surface is cleared and every stroke re-stamped in order. Used
// after stroke transforms (move, resize) so the raster is regenerated
// rather than translated as a bitmap, preserving continuous stroke
// appearance. Erases and imported pixels on the surface are lost; the
// stroke list is the authority after a transform.
func restampStrokes(p *PaintContent) {
	if p.Surface == nil {
		return
	}
	p.Surface.Clear()
	for _, s := range p.Strokes {
		stampStroke(p.Surface, s)
	}
}

// translateStroke shifts every point of a stroke by delta.
func translateStroke(s *BrushStroke, delta Point) {
	for i := range s.Points {
		s.Points[i] = s.Points[i].Add(delta)
	}
}

// scaleStrokeAbout scales a stroke's points about a center. The brush
// size scales by the mean of the axis factors so line weight follows the
// resize.
func scaleStrokeAbout(s *BrushStroke, center Point, sx, sy float64) {
	for i := range s.Points {
		d := s.Points[i].Sub(center)
		s.Points[i] = Point{X: center.X + d.X*sx, Y: center.Y + d.Y*sy}
	}
	s.Size *= (math.Abs(sx) + math.Abs(sy)) / 2
}

// rotateStrokeAbout rotates a stroke's points about a center.
func rotateStrokeAbout(s *BrushStroke, center Point, angle float64) {
	sin, cos := math.Sincos(angle)
	for i := range s.Points {
		d := s.Points[i].Sub(center)
		s.Points[i] = Point{
			X: center.X + d.X*cos - d.Y*sin,
			Y: center.Y + d.X*sin + d.Y*cos,
		}
	}
}
