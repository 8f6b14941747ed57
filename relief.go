package layers

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// heightField accumulates puff relief contributions as a float grid
// before they are baked into height, displacement and normal surfaces.
type heightField struct {
	w, h int
	data []float64
}

func newHeightField(w, h int) *heightField {
	return &heightField{w: w, h: h, data: make([]float64, w*h)}
}

func (hf *heightField) at(x, y int) float64 {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= hf.w {
		x = hf.w - 1
	}
	if y >= hf.h {
		y = hf.h - 1
	}
	return hf.data[y*hf.w+x]
}

// hasRelief reports whether any contribution was stamped.
func (hf *heightField) hasRelief() bool {
	for _, v := range hf.data {
		if v > 0 {
			return true
		}
	}
	return false
}

// stampPuff adds one puff element's profile at its layer-local position,
// scaled by the owning layer's effective opacity.
func (hf *heightField) stampPuff(p *PuffElement, opacity float64) {
	hf.stamp(p.CenterPx, p.RadiusPx, p.Softness, clamp01(p.Amplitude)*clamp01(opacity), nil)
}

// stamp adds one cosine-falloff dome at center. The profile keeps full
// amplitude inside the core radius r*(1-softness) and falls off over the
// soft rim with a raised-cosine curve, so the relief reads as a smooth
// dome edge. weight, when non-nil, scales each pixel's contribution
// (mask coverage in field space).
func (hf *heightField) stamp(center Point, r, softness, amp float64, weight func(x, y int) float64) {
	if r <= 0 || amp <= 0 {
		return
	}
	soft := clamp01(softness)
	core := r * (1 - soft)

	x0 := maxInt(int(math.Floor(center.X-r)), 0)
	y0 := maxInt(int(math.Floor(center.Y-r)), 0)
	x1 := minInt(int(math.Ceil(center.X+r))+1, hf.w)
	y1 := minInt(int(math.Ceil(center.Y+r))+1, hf.h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d := math.Hypot(float64(x)+0.5-center.X, float64(y)+0.5-center.Y)
			if d > r {
				continue
			}
			v := amp
			if d > core && r > core {
				t := (d - core) / (r - core)
				v = amp * 0.5 * (1 + math.Cos(math.Pi*t))
			}
			if weight != nil {
				v *= weight(x, y)
				if v <= 0 {
					continue
				}
			}
			i := y*hf.w + x
			// Overlapping puffs accumulate and are normalized later.
			hf.data[i] += v
		}
	}
}

// normalize rescales the field into [0, 1] when accumulation pushed any
// sample above full height.
func (hf *heightField) normalize() {
	if len(hf.data) == 0 {
		return
	}
	max := floats.Max(hf.data)
	if max > 1 {
		floats.Scale(1/max, hf.data)
	}
}

// heightSurface bakes the field into a grayscale surface: R=G=B=height,
// fully opaque, ready for upload as a height texture.
func (hf *heightField) heightSurface(dst *Surface) {
	for y := 0; y < minInt(hf.h, dst.Height()); y++ {
		for x := 0; x < minInt(hf.w, dst.Width()); x++ {
			v := clamp01(hf.at(x, y))
			dst.SetPixel(x, y, RGBA{R: v, G: v, B: v, A: 1})
		}
	}
}

// displacementSurface bakes the field scaled by strength, the form the
// 3D pipeline feeds to vertex displacement.
func (hf *heightField) displacementSurface(dst *Surface, strength float64) {
	for y := 0; y < minInt(hf.h, dst.Height()); y++ {
		for x := 0; x < minInt(hf.w, dst.Width()); x++ {
			v := clamp01(hf.at(x, y) * strength)
			dst.SetPixel(x, y, RGBA{R: v, G: v, B: v, A: 1})
		}
	}
}

// normalSurface derives a tangent-space normal map from the field using
// central differences. Flat areas encode as the usual (0.5, 0.5, 1).
func (hf *heightField) normalSurface(dst *Surface, strength float64) {
	for y := 0; y < minInt(hf.h, dst.Height()); y++ {
		for x := 0; x < minInt(hf.w, dst.Width()); x++ {
			dx := (hf.at(x+1, y) - hf.at(x-1, y)) * strength
			dy := (hf.at(x, y+1) - hf.at(x, y-1)) * strength
			nx, ny, nz := -dx, -dy, 1.0
			inv := 1 / math.Sqrt(nx*nx+ny*ny+nz*nz)
			dst.SetPixel(x, y, RGBA{
				R: nx*inv*0.5 + 0.5,
				G: ny*inv*0.5 + 0.5,
				B: nz*inv*0.5 + 0.5,
				A: 1,
			})
		}
	}
}

// drawPuffDiffuse renders the visible disc of a puff element onto the
// diffuse surface with the same soft cosine rim as the relief profile.
func drawPuffDiffuse(dst *Surface, p *PuffElement) {
	if p.RadiusPx <= 0 {
		return
	}
	r := p.RadiusPx
	soft := clamp01(p.Softness)
	core := r * (1 - soft)
	x0 := maxInt(int(math.Floor(p.CenterPx.X-r)), 0)
	y0 := maxInt(int(math.Floor(p.CenterPx.Y-r)), 0)
	x1 := minInt(int(math.Ceil(p.CenterPx.X+r))+1, dst.Width())
	y1 := minInt(int(math.Ceil(p.CenterPx.Y+r))+1, dst.Height())
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d := math.Hypot(float64(x)+0.5-p.CenterPx.X, float64(y)+0.5-p.CenterPx.Y)
			if d > r {
				continue
			}
			a := p.Color.A
			if d > core && r > core {
				t := (d - core) / (r - core)
				a *= 0.5 * (1 + math.Cos(math.Pi*t))
			}
			dst.blendPixel(x, y, p.Color.WithAlpha(a), nil)
		}
	}
}
