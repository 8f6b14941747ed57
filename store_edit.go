package layers

import "image"

// SetLayerVisible toggles a layer's visibility.
func (s *LayerStore) SetLayerVisible(id string, visible bool) error {
	l, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("set visible: layer not found", "id", id)
		return ErrLayerNotFound
	}
	if l.Visible == visible {
		return nil
	}
	l.Visible = visible
	s.commit("Toggle visibility", "visibility", id)
	return nil
}

// SetLayerOpacity sets a layer's opacity, clamped to [0, 1]. Rejected
// when the transparency lock is active.
func (s *LayerStore) SetLayerOpacity(id string, opacity float64) error {
	l, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("set opacity: layer not found", "id", id)
		return ErrLayerNotFound
	}
	if l.Lock.IsTransparencyLocked() {
		err := &LockViolationError{LayerID: id, Lock: "transparency"}
		Logger().Warn("set opacity rejected", "id", id, "lock", err.Lock)
		return err
	}
	l.Opacity = clamp01(opacity)
	s.commit("Change opacity", "opacity", id)
	return nil
}

// SetLayerBlendMode sets a layer's blend mode.
func (s *LayerStore) SetLayerBlendMode(id string, mode BlendMode) error {
	l, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("set blend: layer not found", "id", id)
		return ErrLayerNotFound
	}
	l.Blend = mode
	s.commit("Change blend mode", "blend", id)
	return nil
}

// SetLayerLock replaces a layer's lock state. Locking itself is never
// blocked by existing locks.
func (s *LayerStore) SetLayerLock(id string, lock LockState) error {
	l, ok := s.layerMap[id]
	if !ok {
		return ErrLayerNotFound
	}
	l.Lock = lock
	s.snapshot("Change locks")
	return nil
}

// TransformPatch is a partial transform update: nil fields are left
// unchanged. Translation fields are subject to the position lock;
// scale, rotation and skew apply even when position is locked.
type TransformPatch struct {
	X, Y     *float64
	ScaleX   *float64
	ScaleY   *float64
	Rotation *float64
	SkewX    *float64
	SkewY    *float64
}

// Float returns a pointer to v, a convenience for building patches.
func Float(v float64) *float64 { return &v }

// SetLayerTransform applies a partial transform update. Translation
// components blocked by the position lock are skipped and logged; the
// call returns a LockViolationError only when the lock blocked every
// requested component.
func (s *LayerStore) SetLayerTransform(id string, patch TransformPatch) error {
	l, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("set transform: layer not found", "id", id)
		return ErrLayerNotFound
	}
	applied, blocked := 0, 0
	setf := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
			applied++
		}
	}
	if l.Lock.IsPositionLocked() {
		if patch.X != nil || patch.Y != nil {
			if patch.X != nil {
				blocked++
			}
			if patch.Y != nil {
				blocked++
			}
			Logger().Warn("transform translation blocked by position lock", "id", id)
		}
	} else {
		setf(&l.Transform.X, patch.X)
		setf(&l.Transform.Y, patch.Y)
	}
	setf(&l.Transform.ScaleX, patch.ScaleX)
	setf(&l.Transform.ScaleY, patch.ScaleY)
	setf(&l.Transform.Rotation, patch.Rotation)
	setf(&l.Transform.SkewX, patch.SkewX)
	setf(&l.Transform.SkewY, patch.SkewY)

	if applied == 0 {
		if blocked > 0 {
			return &LockViolationError{LayerID: id, Lock: "position"}
		}
		return nil
	}
	if !l.Transform.IsFinite() {
		l.Transform = IdentityTransform()
		Logger().Warn("non-finite transform reset to identity", "id", id)
	}
	l.Touch()
	s.commit("Transform layer", "transform", id)
	return nil
}

// AddStroke appends a brush stroke to a paint layer and stamps it onto
// the layer's surface. Rejected when the pixels lock is active.
func (s *LayerStore) AddStroke(id string, stroke *BrushStroke) error {
	l, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("add stroke: layer not found", "id", id)
		return ErrLayerNotFound
	}
	p := l.Paint()
	if p == nil {
		Logger().Warn("add stroke: not a paint layer", "id", id, "kind", l.Kind())
		return ErrContentKindMismatch
	}
	if l.Lock.IsPixelsLocked() {
		err := &LockViolationError{LayerID: id, Lock: "pixels"}
		Logger().Warn("add stroke rejected", "id", id, "lock", err.Lock)
		return err
	}
	if stroke.ID == "" {
		stroke.ID = newID()
	}
	if stroke.Opacity <= 0 {
		stroke.Opacity = 1
	}
	p.Strokes = append(p.Strokes, stroke)
	stampStroke(p.Surface, stroke)
	l.Touch()
	s.commit("Brush stroke", "stroke", id)
	return nil
}

// EraseAt erases a disc from a paint layer's surface. Rejected when the
// pixels lock is active.
func (s *LayerStore) EraseAt(id string, center Point, radius float64) error {
	l, ok := s.layerMap[id]
	if !ok {
		return ErrLayerNotFound
	}
	p := l.Paint()
	if p == nil || p.Surface == nil {
		return ErrContentKindMismatch
	}
	if l.Lock.IsPixelsLocked() {
		return &LockViolationError{LayerID: id, Lock: "pixels"}
	}
	p.Surface.EraseCircle(center.X, center.Y, radius, 1)
	l.Touch()
	s.commit("Erase", "erase", id)
	return nil
}

// AddTextRun appends a text run to a text layer. The accessibility
// registrar is notified best-effort.
func (s *LayerStore) AddTextRun(id string, run *TextRun) error {
	l, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("add text: layer not found", "id", id)
		return ErrLayerNotFound
	}
	t := l.Text()
	if t == nil {
		Logger().Warn("add text: not a text layer", "id", id, "kind", l.Kind())
		return ErrContentKindMismatch
	}
	if run.ID == "" {
		run.ID = newID()
	}
	if run.FontSize <= 0 {
		run.FontSize = 24
	}
	run.Visible = true
	run.Placement.SyncFromUV(s.mapper)
	if run.Placement.PxSize.X <= 0 || run.Placement.PxSize.Y <= 0 {
		run.Placement.PxSize = estimateRunSize(run)
		run.Placement.USize, run.Placement.VSize = s.mapper.PixelSizeToUV(
			run.Placement.PxSize.X, run.Placement.PxSize.Y)
	}
	t.Runs = append(t.Runs, run)
	l.Touch()
	s.notifyAccessibility("add", run.ID, run.Text)
	s.commit("Add text", "text", id)
	return nil
}

// RemoveTextRun removes a text run by id.
func (s *LayerStore) RemoveTextRun(id, runID string) error {
	l, ok := s.layerMap[id]
	if !ok {
		return ErrLayerNotFound
	}
	t := l.Text()
	if t == nil {
		return ErrContentKindMismatch
	}
	for i, r := range t.Runs {
		if r.ID == runID {
			t.Runs = append(t.Runs[:i], t.Runs[i+1:]...)
			l.Touch()
			s.notifyAccessibility("remove", r.ID, r.Text)
			s.commit("Remove text", "text", id)
			return nil
		}
	}
	return ErrLayerNotFound
}

// AddPlacedImage appends a placed image to an image layer. The image may
// still be decoding (Loading=true, Image=nil); the engine draws a
// placeholder until FinishImageLoad is called.
func (s *LayerStore) AddPlacedImage(id string, pi *PlacedImage) error {
	l, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("add image: layer not found", "id", id)
		return ErrLayerNotFound
	}
	ic := l.Images()
	if ic == nil {
		Logger().Warn("add image: not an image layer", "id", id, "kind", l.Kind())
		return ErrContentKindMismatch
	}
	if pi.ID == "" {
		pi.ID = newID()
	}
	if pi.Opacity <= 0 {
		pi.Opacity = 1
	}
	pi.Visible = true
	pi.Placement.SyncFromUV(s.mapper)
	ic.Images = append(ic.Images, pi)
	l.Touch()
	s.commit("Place image", "image", id)
	return nil
}

// FinishImageLoad installs the decoded image for an in-flight placement
// and marks the composition dirty so the scheduler re-renders. No
// history snapshot: the decode completion is not a user edit.
func (s *LayerStore) FinishImageLoad(id, imageID string, img image.Image) error {
	l, ok := s.layerMap[id]
	if !ok {
		return ErrLayerNotFound
	}
	ic := l.Images()
	if ic == nil {
		return ErrContentKindMismatch
	}
	for _, pi := range ic.Images {
		if pi.ID == imageID {
			pi.Image = img
			pi.Loading = false
			pi.InvalidateCache()
			l.Touch()
			s.dirty = true
			s.notifyRefresh("image-load", id)
			return nil
		}
	}
	return ErrLayerNotFound
}

// AddPuff places a relief puff element on a paint layer.
func (s *LayerStore) AddPuff(id string, puff *PuffElement) error {
	l, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("add puff: layer not found", "id", id)
		return ErrLayerNotFound
	}
	p := l.Paint()
	if p == nil {
		Logger().Warn("add puff: not a paint layer", "id", id, "kind", l.Kind())
		return ErrContentKindMismatch
	}
	if l.Lock.IsPixelsLocked() {
		return &LockViolationError{LayerID: id, Lock: "pixels"}
	}
	if puff.ID == "" {
		puff.ID = newID()
	}
	if puff.Amplitude <= 0 {
		puff.Amplitude = 1
	}
	puff.Visible = true
	puff.SyncFromUV(s.mapper)
	p.Puffs = append(p.Puffs, puff)
	l.Touch()
	s.commit("Add puff", "puff", id)
	return nil
}

// EnsureLayerForTool resolves a target layer for a tool on demand: the
// active layer if it matches the kind and is not pixel-locked, else the
// topmost matching unlocked layer, else a freshly created one (lazy
// layer creation).
func (s *LayerStore) EnsureLayerForTool(kind ContentKind) (string, bool) {
	usable := func(l *Layer) bool {
		return l != nil && l.Kind() == kind && !l.Lock.IsPixelsLocked()
	}
	if l := s.ActiveLayer(); usable(l) {
		return l.ID, true
	}
	for i := len(s.order) - 1; i >= 0; i-- {
		if l := s.layerMap[s.order[i]]; usable(l) {
			s.activeID = l.ID
			return l.ID, true
		}
	}
	return s.CreateLayer(kind, "")
}
