package layers

import "github.com/pufflab/layers/internal/blend"

// BlendMode selects the pixel-combination rule used when a layer is drawn
// over the accumulated composite.
type BlendMode uint8

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendSoftLight
	BlendHardLight
	BlendColorDodge
	BlendColorBurn
	BlendDarken
	BlendLighten
	BlendDifference
	BlendExclusion
	BlendHue
	BlendSaturation
	BlendColor
	BlendLuminosity
)

var blendModeNames = [...]string{
	"normal", "multiply", "screen", "overlay", "soft-light", "hard-light",
	"color-dodge", "color-burn", "darken", "lighten", "difference",
	"exclusion", "hue", "saturation", "color", "luminosity",
}

// String returns the CSS-style name of the blend mode.
func (m BlendMode) String() string {
	if int(m) < len(blendModeNames) {
		return blendModeNames[m]
	}
	return "normal"
}

// ParseBlendMode maps a CSS-style operator name to a BlendMode.
// Unknown names map to BlendNormal, reported by ok=false.
func ParseBlendMode(name string) (BlendMode, bool) {
	for i, n := range blendModeNames {
		if n == name {
			return BlendMode(i), true
		}
	}
	return BlendNormal, false
}

// fn returns the blend function for the mode. BlendNormal always maps to
// plain source-over regardless of the requested operator name.
func (m BlendMode) fn() blend.Func {
	if m == BlendNormal {
		return blend.SourceOver
	}
	return blend.ModeFunc(blend.Mode(m))
}
