package layers

import (
	"errors"
	"math"
	"testing"
)

func TestLockStateOverride(t *testing.T) {
	tests := []struct {
		name                string
		lock                LockState
		pos, pixels, transp bool
	}{
		{"no locks", LockState{}, false, false, false},
		{"position only", LockState{Position: true}, true, false, false},
		{"pixels only", LockState{Pixels: true}, false, true, false},
		{"transparency only", LockState{Transparency: true}, false, false, true},
		{"all overrides everything", LockState{All: true}, true, true, true},
		{"all with flags clear", LockState{All: true, Position: false}, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.lock.IsPositionLocked(); got != tt.pos {
				t.Errorf("IsPositionLocked = %v, want %v", got, tt.pos)
			}
			if got := tt.lock.IsPixelsLocked(); got != tt.pixels {
				t.Errorf("IsPixelsLocked = %v, want %v", got, tt.pixels)
			}
			if got := tt.lock.IsTransparencyLocked(); got != tt.transp {
				t.Errorf("IsTransparencyLocked = %v, want %v", got, tt.transp)
			}
		})
	}
}

func TestLockStateAllNotDerived(t *testing.T) {
	// Setting the three individual flags does not turn All on.
	l := LockState{Position: true, Pixels: true, Transparency: true}
	if l.All {
		t.Error("All was derived from individual flags")
	}
	if !l.IsAnyLocked() {
		t.Error("IsAnyLocked = false with all individual flags set")
	}
}

func TestLayerValidate(t *testing.T) {
	l := NewLayer("paint", &PaintContent{})
	if err := l.Validate(); err != nil {
		t.Errorf("valid layer: %v", err)
	}

	l.Opacity = 1.7
	if err := l.Validate(); err != nil {
		t.Errorf("over-range opacity: %v", err)
	}
	if l.Opacity != 1 {
		t.Errorf("opacity clamped to %v, want 1", l.Opacity)
	}
	l.Opacity = -0.3
	_ = l.Validate()
	if l.Opacity != 0 {
		t.Errorf("opacity clamped to %v, want 0", l.Opacity)
	}

	l.Transform.X = math.NaN()
	if err := l.Validate(); !errors.Is(err, ErrNonFiniteTransform) {
		t.Errorf("non-finite transform err = %v", err)
	}
}

func TestLayerValidateSelfMembership(t *testing.T) {
	g := NewLayer("group", &GroupContent{})
	g.Group().ChildIDs = []string{g.ID}
	if err := g.Validate(); !errors.Is(err, ErrSelfMembership) {
		t.Errorf("self membership err = %v", err)
	}
}

func TestLayerCloneIndependence(t *testing.T) {
	l := NewLayer("paint", &PaintContent{
		Surface: NewSurface(4, 4),
		Strokes: []*BrushStroke{{ID: "s1", Points: []Point{{X: 1, Y: 1}}, Size: 2, Opacity: 1}},
	})
	l.Mask = &LayerMask{Mask: NewMask(4, 4), Enabled: true}
	l.Paint().Surface.SetPixel(0, 0, RGB(1, 0, 0))

	c := l.Clone()

	// Element ids are preserved on plain clones.
	if c.Paint().Strokes[0].ID != "s1" {
		t.Errorf("clone stroke id = %q", c.Paint().Strokes[0].ID)
	}

	c.Paint().Surface.SetPixel(0, 0, RGB(0, 1, 0))
	c.Paint().Strokes[0].Points[0] = Point{X: 9, Y: 9}
	c.Mask.Mask.Set(0, 0, 255)

	if got := l.Paint().Surface.GetPixel(0, 0); !colorsClose(got, RGB(1, 0, 0), 0.01) {
		t.Errorf("clone mutation changed original surface: %+v", got)
	}
	if l.Paint().Strokes[0].Points[0].X != 1 {
		t.Error("clone mutation changed original stroke points")
	}
	if l.Mask.Mask.At(0, 0) != 0 {
		t.Error("clone mutation changed original mask")
	}
}

func TestContentBounds(t *testing.T) {
	l := NewLayer("paint", &PaintContent{
		Strokes: []*BrushStroke{{
			Points: []Point{{X: 10, Y: 10}, {X: 20, Y: 30}},
			Size:   4,
		}},
	})
	b := l.ContentBounds()
	if b.W == 0 || b.H == 0 {
		t.Fatalf("empty bounds: %+v", b)
	}
	if !b.Contains(Point{X: 15, Y: 20}) {
		t.Errorf("bounds %+v does not contain stroke midpoint", b)
	}
}

func TestContentKindAccessors(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		kind    ContentKind
	}{
		{"paint", &PaintContent{}, ContentPaint},
		{"text", &TextContent{}, ContentText},
		{"image", &ImageContent{}, ContentImage},
		{"adjustment", &AdjustmentContent{}, ContentAdjustment},
		{"group", &GroupContent{}, ContentGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLayer(tt.name, tt.content)
			if l.Kind() != tt.kind {
				t.Errorf("Kind = %v, want %v", l.Kind(), tt.kind)
			}
		})
	}
}
