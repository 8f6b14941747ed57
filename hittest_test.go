package layers

import (
	"errors"
	"math"
	"testing"
)

func addCenterStroke(t *testing.T, s *LayerStore, layerID string) string {
	t.Helper()
	stroke := &BrushStroke{
		Points:  []Point{{X: 24, Y: 24}, {X: 40, Y: 40}},
		Color:   RGBA{R: 1, A: 1},
		Size:    6,
		Opacity: 1,
	}
	if err := s.AddStroke(layerID, stroke); err != nil {
		t.Fatal(err)
	}
	return stroke.ID
}

func TestHitTestTopmostWins(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)

	bottom, _ := store.CreateLayer(ContentPaint, "bottom")
	top, _ := store.CreateLayer(ContentPaint, "top")
	addCenterStroke(t, store, bottom)
	topStroke := addCenterStroke(t, store, top)

	hit, ok := tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
	if !ok {
		t.Fatal("no hit at stroke center")
	}
	if hit.LayerID != top || hit.ElementID != topStroke {
		t.Errorf("hit = %+v, want topmost layer %s", hit, top)
	}
	if hit.Kind != ContentPaint {
		t.Errorf("hit kind = %v", hit.Kind)
	}

	// Hidden layers never hit.
	if err := store.SetLayerVisible(top, false); err != nil {
		t.Fatal(err)
	}
	hit, ok = tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
	if !ok || hit.LayerID != bottom {
		t.Errorf("hit after hiding top = %+v, %v", hit, ok)
	}
}

func TestHitTestLastElementWins(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)
	id, _ := store.CreateLayer(ContentPaint, "")
	addCenterStroke(t, store, id)
	second := addCenterStroke(t, store, id)

	hit, ok := tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
	if !ok || hit.ElementID != second {
		t.Errorf("hit = %+v, want last-added stroke %s", hit, second)
	}

	// Puffs sit above strokes within a paint layer.
	puff := &PuffElement{Center: UV{U: 0.5, V: 0.5}, RadiusUV: 0.1}
	if err := store.AddPuff(id, puff); err != nil {
		t.Fatal(err)
	}
	hit, ok = tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
	if !ok || hit.ElementID != puff.ID {
		t.Errorf("hit = %+v, want puff %s", hit, puff.ID)
	}
}

func TestHitTestMiss(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)
	id, _ := store.CreateLayer(ContentPaint, "")
	addCenterStroke(t, store, id)

	if _, ok := tester.HitTest(UV{U: 0.05, V: 0.05}, 64, 64); ok {
		t.Error("hit reported in empty corner")
	}
	if _, ok := tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64); !ok {
		t.Error("center stroke not hit")
	}
}

func TestHitTestRescalesSurfaceSpace(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)
	id, _ := store.CreateLayer(ContentPaint, "")
	addCenterStroke(t, store, id)

	// Larger composition surface, same uv: the point still lands on
	// the stroke in store space.
	if _, ok := tester.HitTest(UV{U: 0.5, V: 0.5}, 256, 256); !ok {
		t.Error("hit lost under a larger composition surface")
	}
	if _, ok := tester.HitTest(UV{U: 0.05, V: 0.05}, 256, 256); ok {
		t.Error("corner miss became a hit under rescaling")
	}
}

func TestHitTestAppliesLayerTransform(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)
	id, _ := store.CreateLayer(ContentPaint, "")
	addCenterStroke(t, store, id)

	if err := store.SetLayerTransform(id, TransformPatch{X: Float(32)}); err != nil {
		t.Fatal(err)
	}

	// The stroke now appears 32px to the right; its old position is
	// empty and the shifted position hits.
	if _, ok := tester.HitTest(UV{U: 0.2, V: 0.5}, 64, 64); ok {
		t.Error("hit at pre-transform position")
	}
	if _, ok := tester.HitTest(UV{U: 0.95, V: 0.5}, 64, 64); !ok {
		t.Error("no hit at transformed position")
	}
}

func TestMoveStroke(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)
	id, _ := store.CreateLayer(ContentPaint, "")
	addCenterStroke(t, store, id)

	hit, ok := tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
	if !ok {
		t.Fatal("no hit")
	}
	if err := tester.Move(hit, Point{X: 10, Y: 0}); err != nil {
		t.Fatal(err)
	}

	p := store.Layer(id).Paint()
	if got := p.Strokes[0].Points[0]; got.X != 34 || got.Y != 24 {
		t.Errorf("moved start point = %+v, want (34, 24)", got)
	}
	// Re-stamping regenerates the raster: old leftmost pixels clear,
	// shifted pixels painted.
	if a := p.Surface.GetPixel(22, 24).A; a != 0 {
		t.Errorf("pixel at old position alpha = %v, want 0", a)
	}
	if a := p.Surface.GetPixel(34, 24).A; a == 0 {
		t.Error("pixel at new position not painted")
	}
}

func TestMovePositionLocked(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)
	id, _ := store.CreateLayer(ContentPaint, "")
	addCenterStroke(t, store, id)
	if err := store.SetLayerLock(id, LockState{Position: true}); err != nil {
		t.Fatal(err)
	}

	hit, _ := tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
	err := tester.Move(hit, Point{X: 5})
	var lv *LockViolationError
	if !errors.As(err, &lv) {
		t.Fatalf("err = %v, want lock violation", err)
	}
	if lv.Lock != "position" {
		t.Errorf("violated lock = %q", lv.Lock)
	}
}

func TestMoveTextRun(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)
	id, _ := store.CreateLayer(ContentText, "")
	run := &TextRun{
		Text: "hello",
		Placement: Placement{
			UV:    UV{U: 0.25, V: 0.25},
			USize: 0.25, VSize: 0.25,
		},
	}
	if err := store.AddTextRun(id, run); err != nil {
		t.Fatal(err)
	}

	hit, ok := tester.HitTest(UV{U: 0.3, V: 0.3}, 64, 64)
	if !ok || hit.Kind != ContentText || hit.ElementID != run.ID {
		t.Fatalf("hit = %+v, %v", hit, ok)
	}
	if err := tester.Move(hit, Point{X: 8, Y: 0}); err != nil {
		t.Fatal(err)
	}
	if run.Placement.Pixel.X != 24 {
		t.Errorf("pixel x = %v, want 24", run.Placement.Pixel.X)
	}
	if math.Abs(run.Placement.UV.U-0.375) > 1e-9 {
		t.Errorf("uv not re-synced, u = %v", run.Placement.UV.U)
	}
}

func TestResizeElements(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)

	t.Run("stroke", func(t *testing.T) {
		id, _ := store.CreateLayer(ContentPaint, "")
		strokeID := addCenterStroke(t, store, id)
		hit, _ := tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
		if err := tester.Resize(hit, Point{X: 44, Y: 44}); err != nil {
			t.Fatal(err)
		}
		s := findStroke(store.Layer(id).Paint(), strokeID)
		b := s.Bounds()
		if math.Abs(b.W-44) > 1 {
			t.Errorf("resized width = %v, want 44", b.W)
		}
		if s.Size <= 6 {
			t.Errorf("brush size = %v, want scaled up", s.Size)
		}
	})

	t.Run("text scales font", func(t *testing.T) {
		id, _ := store.CreateLayer(ContentText, "")
		run := &TextRun{
			Text:      "hi",
			Placement: Placement{UV: UV{U: 0.25, V: 0.25}, USize: 0.25, VSize: 0.25},
		}
		if err := store.AddTextRun(id, run); err != nil {
			t.Fatal(err)
		}
		hit, _ := tester.HitTest(UV{U: 0.3, V: 0.3}, 64, 64)
		if err := tester.Resize(hit, Point{X: 32, Y: 32}); err != nil {
			t.Fatal(err)
		}
		if run.FontSize != 48 {
			t.Errorf("font size = %v, want 48", run.FontSize)
		}
		if run.Placement.PxSize.X != 32 {
			t.Errorf("pixel size = %v", run.Placement.PxSize)
		}
		store.DeleteLayer(id, DeleteOptions{Force: true})
	})

	t.Run("puff radius from width", func(t *testing.T) {
		id, _ := store.CreateLayer(ContentPaint, "")
		puff := &PuffElement{Center: UV{U: 0.5, V: 0.5}, RadiusUV: 0.1}
		if err := store.AddPuff(id, puff); err != nil {
			t.Fatal(err)
		}
		hit, _ := tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
		if hit.ElementID != puff.ID {
			t.Fatalf("hit = %+v", hit)
		}
		if err := tester.Resize(hit, Point{X: 20, Y: 20}); err != nil {
			t.Fatal(err)
		}
		if puff.RadiusPx != 10 {
			t.Errorf("radius = %v, want 10", puff.RadiusPx)
		}
	})

	t.Run("degenerate size ignored", func(t *testing.T) {
		if err := tester.Resize(Hit{}, Point{X: 0, Y: 10}); err != nil {
			t.Errorf("zero-size resize errored: %v", err)
		}
	})
}

func TestRotateElements(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)

	t.Run("stroke points", func(t *testing.T) {
		id, _ := store.CreateLayer(ContentPaint, "")
		strokeID := addCenterStroke(t, store, id)
		hit, _ := tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
		if err := tester.Rotate(hit, math.Pi/2); err != nil {
			t.Fatal(err)
		}
		s := findStroke(store.Layer(id).Paint(), strokeID)
		// (24, 24) rotated 90 degrees about the bounds center (32, 32)
		// lands at (40, 24).
		got := s.Points[0]
		if math.Abs(got.X-40) > 1e-9 || math.Abs(got.Y-24) > 1e-9 {
			t.Errorf("rotated point = %+v, want (40, 24)", got)
		}
	})

	t.Run("image rotation accumulates", func(t *testing.T) {
		id, _ := store.CreateLayer(ContentImage, "")
		pi := &PlacedImage{
			Source:    "a.png",
			Loading:   true,
			Placement: Placement{UV: UV{U: 0.25, V: 0.25}, USize: 0.5, VSize: 0.5},
		}
		if err := store.AddPlacedImage(id, pi); err != nil {
			t.Fatal(err)
		}
		hit, ok := tester.HitTest(UV{U: 0.4, V: 0.4}, 64, 64)
		if !ok || hit.Kind != ContentImage {
			t.Fatalf("hit = %+v, %v", hit, ok)
		}
		if err := tester.Rotate(hit, 0.5); err != nil {
			t.Fatal(err)
		}
		if err := tester.Rotate(hit, 0.25); err != nil {
			t.Fatal(err)
		}
		if math.Abs(pi.Rotation-0.75) > 1e-9 {
			t.Errorf("rotation = %v, want 0.75", pi.Rotation)
		}
		store.DeleteLayer(id, DeleteOptions{Force: true})
	})

	t.Run("puff ignores rotation", func(t *testing.T) {
		id, _ := store.CreateLayer(ContentPaint, "")
		puff := &PuffElement{Center: UV{U: 0.5, V: 0.5}, RadiusUV: 0.1}
		if err := store.AddPuff(id, puff); err != nil {
			t.Fatal(err)
		}
		hit, _ := tester.HitTest(UV{U: 0.5, V: 0.5}, 64, 64)
		before := *puff
		if err := tester.Rotate(hit, 1); err != nil {
			t.Fatal(err)
		}
		if *puff != before {
			t.Error("rotation modified puff")
		}
	})

	t.Run("non-finite angle ignored", func(t *testing.T) {
		if err := tester.Rotate(Hit{}, math.NaN()); err != nil {
			t.Errorf("NaN rotate errored: %v", err)
		}
	})
}

func TestManipulationUnknownTargets(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)
	id, _ := store.CreateLayer(ContentPaint, "")
	addCenterStroke(t, store, id)

	if err := tester.Move(Hit{LayerID: "nope"}, Point{X: 1}); !errors.Is(err, ErrLayerNotFound) {
		t.Errorf("unknown layer err = %v", err)
	}
	if err := tester.Move(Hit{LayerID: id, ElementID: "nope"}, Point{X: 1}); !errors.Is(err, ErrLayerNotFound) {
		t.Errorf("unknown element err = %v", err)
	}
}

func TestHitTestFreshTextRun(t *testing.T) {
	store, _ := newTestStore(t)
	tester := NewSelectionHitTester(store)
	id, _ := store.CreateLayer(ContentText, "")

	// No explicit size and no composition pass yet: the estimated
	// block size makes the run hit-testable immediately.
	run := &TextRun{Text: "hello", Placement: Placement{UV: UV{U: 0.25, V: 0.25}}}
	if err := store.AddTextRun(id, run); err != nil {
		t.Fatal(err)
	}
	if run.Placement.PxSize.X <= 0 || run.Placement.PxSize.Y <= 0 {
		t.Fatalf("no estimated size: %+v", run.Placement.PxSize)
	}
	if run.Placement.USize <= 0 || run.Placement.VSize <= 0 {
		t.Errorf("estimate not synced to uv: %+v", run.Placement)
	}

	hit, ok := tester.HitTest(UV{U: 0.3, V: 0.3}, 64, 64)
	if !ok || hit.ElementID != run.ID || hit.Kind != ContentText {
		t.Errorf("hit = %+v, %v, want fresh run %s", hit, ok, run.ID)
	}
}
