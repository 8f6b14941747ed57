package blend

import "math"

// Non-separable blend modes per W3C Compositing and Blending Level 1 §8.
// These operate on the whole RGB triplet via luminance and saturation
// transfer rather than per-channel formulas.

func nonSeparable(mode Mode) Func {
	return func(sr, sg, sb, sa, dr, dg, db, da float64) (float64, float64, float64, float64) {
		if sa == 0 {
			return dr, dg, db, da
		}
		if da == 0 {
			return sr, sg, sb, sa
		}
		var br, bg, bb float64
		switch mode {
		case Hue:
			hr, hg, hb := setSat(sr, sg, sb, sat(dr, dg, db))
			br, bg, bb = setLum(hr, hg, hb, lum(dr, dg, db))
		case Saturation:
			hr, hg, hb := setSat(dr, dg, db, sat(sr, sg, sb))
			br, bg, bb = setLum(hr, hg, hb, lum(dr, dg, db))
		case Color:
			br, bg, bb = setLum(sr, sg, sb, lum(dr, dg, db))
		case Luminosity:
			br, bg, bb = setLum(dr, dg, db, lum(sr, sg, sb))
		}
		oa := sa + da*(1-sa)
		or := blendChannel(sr, sa, dr, da, oa, br)
		og := blendChannel(sg, sa, dg, da, oa, bg)
		ob := blendChannel(sb, sa, db, da, oa, bb)
		return or, og, ob, oa
	}
}

// lum returns the luminance of a color using BT.601 coefficients.
func lum(r, g, b float64) float64 {
	return 0.30*r + 0.59*g + 0.11*b
}

// sat returns the saturation (max - min) of a color.
func sat(r, g, b float64) float64 {
	return max3(r, g, b) - min3(r, g, b)
}

// clipColor clips components to [0,1] while preserving luminance.
func clipColor(r, g, b float64) (float64, float64, float64) {
	l := lum(r, g, b)
	n := min3(r, g, b)
	x := max3(r, g, b)
	if n < 0 {
		r = l + (r-l)*l/(l-n)
		g = l + (g-l)*l/(l-n)
		b = l + (b-l)*l/(l-n)
	}
	if x > 1 {
		r = l + (r-l)*(1-l)/(x-l)
		g = l + (g-l)*(1-l)/(x-l)
		b = l + (b-l)*(1-l)/(x-l)
	}
	return r, g, b
}

// setLum shifts a color to the given luminance, then clips.
func setLum(r, g, b, l float64) (float64, float64, float64) {
	d := l - lum(r, g, b)
	return clipColor(r+d, g+d, b+d)
}

// setSat scales a color's saturation to s, anchoring the mid channel.
func setSat(r, g, b, s float64) (float64, float64, float64) {
	c := [3]float64{r, g, b}
	// Index of min, mid, max channels.
	mn, md, mx := 0, 1, 2
	order := func(i, j int) (int, int) {
		if c[i] > c[j] {
			return j, i
		}
		return i, j
	}
	mn, md = order(mn, md)
	md, mx = order(md, mx)
	mn, md = order(mn, md)
	if c[mx] > c[mn] {
		c[md] = (c[md] - c[mn]) * s / (c[mx] - c[mn])
		c[mx] = s
	} else {
		c[md] = 0
		c[mx] = 0
	}
	c[mn] = 0
	return c[0], c[1], c[2]
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}

func sqrt(x float64) float64 { return math.Sqrt(x) }
