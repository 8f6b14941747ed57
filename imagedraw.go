package layers

import (
	"fmt"
	"image"
	"io"
	"math"

	// Standard and extended decoders for PlacedImage sources.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	xdraw "golang.org/x/image/draw"
)

// DecodeImage decodes a registered image format (PNG, JPEG, GIF, BMP,
// TIFF, WebP) from r. Decoding is typically done off the mutator path;
// install the result with LayerStore.FinishImageLoad.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("layers: decode image: %w", err)
	}
	return img, format, nil
}

// placeholderColor fills the stand-in rectangle for images that are
// still decoding at composite time.
var placeholderColor = RGBA{R: 0.78, G: 0.78, B: 0.78, A: 0.9}

// drawPlacedImage renders one placed image onto dst: scaled to its pixel
// placement, flipped, rotated about its own center, with per-image
// opacity. An image whose decode has not resolved draws a neutral
// placeholder rectangle instead.
func drawPlacedImage(dst *Surface, pi *PlacedImage) {
	b := pi.Placement.Bounds()
	w := int(math.Round(b.W))
	h := int(math.Round(b.H))
	if w <= 0 || h <= 0 {
		return
	}
	if pi.Image == nil {
		dst.FillRect(b, placeholderColor)
		return
	}

	if pi.cached == nil || pi.cached.Width() != w || pi.cached.Height() != h {
		pi.cached = rasterizePlaced(pi.Image, w, h, pi.FlipH, pi.FlipV)
	}

	opts := DrawOptions{Opacity: clamp01(pi.Opacity)}
	if pi.Rotation != 0 {
		cx, cy := b.W/2, b.H/2
		opts.Transform = Translation(b.X+cx, b.Y+cy).
			Multiply(Rotation(pi.Rotation)).
			Multiply(Translation(-cx, -cy))
	} else {
		opts.Transform = Translation(b.X, b.Y)
	}
	dst.DrawSurface(pi.cached, opts)
}

// rasterizePlaced scales a decoded image to w x h and applies flips.
func rasterizePlaced(img image.Image, w, h int, flipH, flipV bool) *Surface {
	s := NewSurface(w, h)
	xdraw.ApproxBiLinear.Scale(s, s.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	if flipH {
		flipSurfaceH(s)
	}
	if flipV {
		flipSurfaceV(s)
	}
	return s
}

func flipSurfaceH(s *Surface) {
	w, h := s.Width(), s.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			a := s.GetPixel(x, y)
			b := s.GetPixel(w-1-x, y)
			s.SetPixel(x, y, b)
			s.SetPixel(w-1-x, y, a)
		}
	}
}

func flipSurfaceV(s *Surface) {
	w, h := s.Width(), s.Height()
	for y := 0; y < h/2; y++ {
		for x := 0; x < w; x++ {
			a := s.GetPixel(x, y)
			b := s.GetPixel(x, h-1-y)
			s.SetPixel(x, y, b)
			s.SetPixel(x, h-1-y, a)
		}
	}
}
