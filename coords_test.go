package layers

import (
	"math"
	"testing"
)

func TestUVPixelRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		px   Point
	}{
		{"square surface", 1024, 1024, Point{X: 512, Y: 256}},
		{"wide surface", 2048, 512, Point{X: 100.5, Y: 300.25}},
		{"origin", 640, 480, Point{}},
		{"far corner", 640, 480, Point{X: 640, Y: 480}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMapper(tt.w, tt.h)
			got := m.UVToPixel(m.PixelToUV(tt.px))
			if math.Abs(got.X-tt.px.X) > 1 || math.Abs(got.Y-tt.px.Y) > 1 {
				t.Errorf("round trip = %+v, want %+v within one pixel", got, tt.px)
			}
		})
	}
}

func TestUVAxisConvention(t *testing.T) {
	// V=0 is the top row; no flip between UV and pixel rows.
	m := NewMapper(100, 200)
	p := m.UVToPixel(UV{U: 0, V: 0})
	if p.Y != 0 {
		t.Errorf("V=0 maps to y=%v, want 0", p.Y)
	}
	p = m.UVToPixel(UV{U: 1, V: 1})
	if p.X != 100 || p.Y != 200 {
		t.Errorf("UV(1,1) = %+v, want (100,200)", p)
	}
}

func TestZeroMapper(t *testing.T) {
	var m Mapper
	if uv := m.PixelToUV(Point{X: 50, Y: 50}); uv != (UV{}) {
		t.Errorf("zero mapper PixelToUV = %+v, want zero", uv)
	}
	w, h := m.PixelSizeToUV(10, 10)
	if w != 0 || h != 0 {
		t.Errorf("zero mapper PixelSizeToUV = %v,%v", w, h)
	}
}

func TestPlacementSync(t *testing.T) {
	m := NewMapper(1000, 500)

	p := Placement{UV: UV{U: 0.25, V: 0.5}, USize: 0.1, VSize: 0.2}
	p.SyncFromUV(m)
	if p.Pixel.X != 250 || p.Pixel.Y != 250 {
		t.Errorf("Pixel = %+v, want (250,250)", p.Pixel)
	}
	if p.PxSize.X != 100 || p.PxSize.Y != 100 {
		t.Errorf("PxSize = %+v, want (100,100)", p.PxSize)
	}

	// Mutate in pixel space and sync back; UV must follow.
	p.Pixel = Point{X: 500, Y: 125}
	p.SyncFromPixel(m)
	if math.Abs(p.UV.U-0.5) > 1e-9 || math.Abs(p.UV.V-0.25) > 1e-9 {
		t.Errorf("UV after pixel sync = %+v, want (0.5,0.25)", p.UV)
	}

	b := p.Bounds()
	if b.X != 500 || b.Y != 125 || b.W != 100 || b.H != 100 {
		t.Errorf("Bounds = %+v", b)
	}
}

func TestPlacementRoundTripWithinOnePixel(t *testing.T) {
	m := NewMapper(1920, 1080)
	orig := Point{X: 1234.5, Y: 678.9}

	p := Placement{Pixel: orig, PxSize: Point{X: 64, Y: 64}}
	p.SyncFromPixel(m)
	p.SyncFromUV(m)

	if math.Abs(p.Pixel.X-orig.X) > 1 || math.Abs(p.Pixel.Y-orig.Y) > 1 {
		t.Errorf("pixel -> UV -> pixel = %+v, want %+v within one pixel", p.Pixel, orig)
	}
}

func TestPuffElementSync(t *testing.T) {
	m := NewMapper(800, 800)
	p := &PuffElement{Center: UV{U: 0.5, V: 0.5}, RadiusUV: 0.05}
	p.SyncFromUV(m)
	if p.CenterPx.X != 400 || p.CenterPx.Y != 400 {
		t.Errorf("CenterPx = %+v, want (400,400)", p.CenterPx)
	}
	if p.RadiusPx != 40 {
		t.Errorf("RadiusPx = %v, want 40", p.RadiusPx)
	}

	p.CenterPx = Point{X: 200, Y: 600}
	p.RadiusPx = 80
	p.SyncFromPixel(m)
	if math.Abs(p.Center.U-0.25) > 1e-9 || math.Abs(p.Center.V-0.75) > 1e-9 {
		t.Errorf("Center after sync = %+v", p.Center)
	}
	if math.Abs(p.RadiusUV-0.1) > 1e-9 {
		t.Errorf("RadiusUV = %v, want 0.1", p.RadiusUV)
	}
}
