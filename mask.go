package layers

import "image"

// Mask is an alpha stencil applied to a layer after its content is drawn.
// Values range from 0 (removes the pixel) to 255 (keeps it). The Enabled
// and Inverted flags live on the owning layer's mask reference.
type Mask struct {
	width  int
	height int
	data   []uint8
}

// NewMask creates an empty mask with the given dimensions.
// All values are initialized to 0.
func NewMask(width, height int) *Mask {
	return &Mask{
		width:  width,
		height: height,
		data:   make([]uint8, width*height),
	}
}

// NewMaskFromAlpha creates a mask from an image's alpha channel.
func NewMaskFromAlpha(img image.Image) *Mask {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	m := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			_, _, _, a := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			m.data[y*w+x] = uint8(a >> 8)
		}
	}
	return m
}

// Width returns the mask width.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height.
func (m *Mask) Height() int { return m.height }

// At returns the mask value at (x, y), 0 outside the bounds.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return 0
	}
	return m.data[y*m.width+x]
}

// Set sets the mask value at (x, y). Out-of-bounds writes are ignored.
func (m *Mask) Set(x, y int, value uint8) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return
	}
	m.data[y*m.width+x] = value
}

// Fill fills the entire mask with a value.
func (m *Mask) Fill(value uint8) {
	for i := range m.data {
		m.data[i] = value
	}
}

// Clone returns an independent deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.width, m.height)
	copy(out.data, m.data)
	return out
}

// LayerMask pairs a mask surface with its per-layer flags.
type LayerMask struct {
	Mask     *Mask
	Enabled  bool
	Inverted bool
}

// Clone returns an independent deep copy.
func (lm *LayerMask) Clone() *LayerMask {
	if lm == nil {
		return nil
	}
	out := &LayerMask{Enabled: lm.Enabled, Inverted: lm.Inverted}
	if lm.Mask != nil {
		out.Mask = lm.Mask.Clone()
	}
	return out
}
