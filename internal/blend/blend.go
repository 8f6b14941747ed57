// Package blend implements the pixel-combination rules used when layers are
// composited: Porter-Duff operators plus the separable and non-separable
// blend modes of the W3C Compositing and Blending Level 1 specification.
//
// All functions operate on non-premultiplied color components in [0, 1].
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
package blend

// Mode identifies a blend mode.
type Mode uint8

const (
	// Normal is plain source-over alpha compositing. It is always mapped
	// to source-over regardless of any requested operator name.
	Normal Mode = iota
	Multiply
	Screen
	Overlay
	SoftLight
	HardLight
	ColorDodge
	ColorBurn
	Darken
	Lighten
	Difference
	Exclusion
	// Non-separable modes operate on the whole RGB triplet.
	Hue
	Saturation
	Color
	Luminosity
)

// Func combines a source pixel with a destination pixel.
// All components are non-premultiplied, in [0, 1].
type Func func(sr, sg, sb, sa, dr, dg, db, da float64) (r, g, b, a float64)

// ModeFunc returns the blend function for the given mode.
// Unknown modes fall back to source-over.
func ModeFunc(mode Mode) Func {
	switch mode {
	case Multiply:
		return separable(func(cb, cs float64) float64 { return cb * cs })
	case Screen:
		return separable(func(cb, cs float64) float64 { return cb + cs - cb*cs })
	case Overlay:
		return separable(func(cb, cs float64) float64 { return hardLight(cs, cb) })
	case SoftLight:
		return separable(softLight)
	case HardLight:
		return separable(hardLight)
	case ColorDodge:
		return separable(colorDodge)
	case ColorBurn:
		return separable(colorBurn)
	case Darken:
		return separable(minf)
	case Lighten:
		return separable(maxf)
	case Difference:
		return separable(func(cb, cs float64) float64 { return absf(cb - cs) })
	case Exclusion:
		return separable(func(cb, cs float64) float64 { return cb + cs - 2*cb*cs })
	case Hue, Saturation, Color, Luminosity:
		return nonSeparable(mode)
	default:
		return SourceOver
	}
}

// SourceOver is the default alpha compositing operator.
func SourceOver(sr, sg, sb, sa, dr, dg, db, da float64) (float64, float64, float64, float64) {
	inv := 1 - sa
	oa := sa + da*inv
	if oa == 0 {
		return 0, 0, 0, 0
	}
	or := (sr*sa + dr*da*inv) / oa
	og := (sg*sa + dg*da*inv) / oa
	ob := (sb*sa + db*da*inv) / oa
	return or, og, ob, oa
}

// DestinationIn keeps destination color where the source is opaque.
// Used for applying alpha-stencil masks.
func DestinationIn(_, _, _, sa, dr, dg, db, da float64) (float64, float64, float64, float64) {
	return dr, dg, db, da * sa
}

// DestinationOut keeps destination color where the source is transparent.
// Used for erasing and inverted masks.
func DestinationOut(_, _, _, sa, dr, dg, db, da float64) (float64, float64, float64, float64) {
	return dr, dg, db, da * (1 - sa)
}

// separable lifts a per-channel blend function B(Cb, Cs) into the full
// compositing formula
//
//	co = as*(1-ab)*Cs + as*ab*B(Cb, Cs) + (1-as)*ab*Cb
//	ao = as + ab*(1-as)
func separable(b func(cb, cs float64) float64) Func {
	return func(sr, sg, sb, sa, dr, dg, db, da float64) (float64, float64, float64, float64) {
		if sa == 0 {
			return dr, dg, db, da
		}
		if da == 0 {
			return sr, sg, sb, sa
		}
		oa := sa + da*(1-sa)
		or := blendChannel(sr, sa, dr, da, oa, b(dr, sr))
		og := blendChannel(sg, sa, dg, da, oa, b(dg, sg))
		ob := blendChannel(sb, sa, db, da, oa, b(db, sb))
		return or, og, ob, oa
	}
}

func blendChannel(cs, sa, cb, da, oa, blended float64) float64 {
	co := sa*(1-da)*cs + sa*da*blended + (1-sa)*da*cb
	return clamp01(co / oa)
}

func hardLight(cb, cs float64) float64 {
	if cs <= 0.5 {
		return cb * 2 * cs
	}
	// Screen with doubled source.
	d := 2*cs - 1
	return cb + d - cb*d
}

func softLight(cb, cs float64) float64 {
	if cs <= 0.5 {
		return cb - (1-2*cs)*cb*(1-cb)
	}
	var d float64
	if cb <= 0.25 {
		d = ((16*cb-12)*cb + 4) * cb
	} else {
		d = sqrt(cb)
	}
	return cb + (2*cs-1)*(d-cb)
}

func colorDodge(cb, cs float64) float64 {
	if cb == 0 {
		return 0
	}
	if cs == 1 {
		return 1
	}
	return minf(1, cb/(1-cs))
}

func colorBurn(cb, cs float64) float64 {
	if cb == 1 {
		return 1
	}
	if cs == 0 {
		return 0
	}
	return 1 - minf(1, (1-cb)/cs)
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
