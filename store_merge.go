package layers

import (
	"fmt"

	xdraw "golang.org/x/image/draw"
)

// DuplicateOptions control layer duplication.
type DuplicateOptions struct {
	// OffsetX/OffsetY shift the duplicate's transform, the usual
	// "paste slightly below-right" affordance.
	OffsetX, OffsetY float64
	// TargetGroupID places the duplicate into a specific group.
	TargetGroupID string
	// ResetOpacity and ResetBlend restore the defaults instead of
	// copying the source's values.
	ResetOpacity bool
	ResetBlend   bool
}

// DuplicateLayer deep-copies a layer: raster content gets a new surface
// with a pixel copy, and every sub-element (stroke, run, image, puff)
// gets a fresh id, so later mutation of the copy never touches the
// original. The duplicate is inserted directly above the source.
func (s *LayerStore) DuplicateLayer(id string, opts DuplicateOptions) (string, error) {
	src, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("duplicate: layer not found", "id", id)
		return "", ErrLayerNotFound
	}
	if src.IsGroup() {
		return "", fmt.Errorf("layers: cannot duplicate a group directly")
	}
	if len(s.order) >= s.cfg.MaxLayers {
		Logger().Warn("duplicate rejected: layer ceiling reached", "max", s.cfg.MaxLayers)
		return "", fmt.Errorf("layers: layer ceiling reached")
	}

	dup := src.Clone()
	dup.ID = newID()
	dup.Name = src.Name + " copy"
	dup.GroupID = ""
	dup.Content.reassignIDs()
	dup.Transform.X += opts.OffsetX
	dup.Transform.Y += opts.OffsetY
	if opts.ResetOpacity {
		dup.Opacity = 1
	}
	if opts.ResetBlend {
		dup.Blend = BlendNormal
	}
	dup.Touch()
	if p := dup.Paint(); p != nil && p.Surface != nil {
		s.pool.Adopt(p.Surface)
	}

	s.layerMap[dup.ID] = dup
	// Insert directly above the source.
	pos := len(s.order)
	for i, oid := range s.order {
		if oid == id {
			pos = i + 1
			break
		}
	}
	s.order = append(s.order, "")
	copy(s.order[pos+1:], s.order[pos:])
	s.order[pos] = dup.ID

	if opts.TargetGroupID != "" {
		if gl := s.layerMap[opts.TargetGroupID]; gl != nil && gl.IsGroup() {
			dup.GroupID = opts.TargetGroupID
			g := gl.Group()
			g.ChildIDs = append(g.ChildIDs, dup.ID)
		} else {
			Logger().Warn("duplicate: target group not found", "group", opts.TargetGroupID)
		}
	}

	s.activeID = dup.ID
	s.reindex()
	s.commit("Duplicate layer", "duplicate", dup.ID)
	return dup.ID, nil
}

// MergeLayers merges the listed layers into the first id, which survives.
// The target absorbs list-valued content (stroke, run, image and puff
// lists) from the others in listed order, concatenated after its own;
// paint surfaces are drawn onto the target's surface. The merged paint
// order matches z-order only insofar as the listed order does: layers
// with differing blend modes may repaint differently from their
// pre-merge composite. All layers but the target are then permanently
// deleted.
func (s *LayerStore) MergeLayers(ids []string) error {
	if len(ids) < 2 {
		return fmt.Errorf("layers: merge requires at least two layers")
	}
	target, ok := s.layerMap[ids[0]]
	if !ok {
		Logger().Warn("merge: target not found", "id", ids[0])
		return ErrLayerNotFound
	}
	if target.IsGroup() {
		return fmt.Errorf("layers: cannot merge into a group")
	}
	for _, id := range ids[1:] {
		l, ok := s.layerMap[id]
		if !ok {
			Logger().Warn("merge: source not found", "id", id)
			return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
		}
		if l.IsGroup() {
			return fmt.Errorf("layers: cannot merge a group (id %s)", id)
		}
	}

	for _, id := range ids[1:] {
		src := s.layerMap[id]
		s.absorbContent(target, src)
		_ = s.DeleteLayer(id, DeleteOptions{
			Force:       true,
			SkipHistory: true,
			SkipRefresh: true,
		})
	}
	target.Touch()
	s.activeID = target.ID
	s.commit("Merge layers", "merge", target.ID)
	return nil
}

// FlattenAll merges every top-level layer into the bottom-most one.
func (s *LayerStore) FlattenAll() error {
	ids := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if l := s.layerMap[id]; l != nil && !l.IsGroup() {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil
	}
	return s.MergeLayers(ids)
}

// absorbContent concatenates src's list-valued content onto dst where
// dst's kind supports it. Unabsorbable content is dropped with a log.
func (s *LayerStore) absorbContent(dst, src *Layer) {
	switch sc := src.Content.(type) {
	case *PaintContent:
		if dp := dst.Paint(); dp != nil {
			if dp.Surface != nil && sc.Surface != nil {
				dp.Surface.DrawSurface(sc.Surface, DrawOptions{
					Opacity:   src.Opacity,
					Blend:     src.Blend,
					Transform: src.Transform.Matrix(),
				})
			}
			// The source surface itself is released when the source
			// layer is deleted; its pixels now live in dst.
			dp.Strokes = append(dp.Strokes, sc.Strokes...)
			dp.Puffs = append(dp.Puffs, sc.Puffs...)
		} else {
			Logger().Warn("merge: dropping paint content", "into", dst.Kind().String())
		}
	case *TextContent:
		if dt := dst.Text(); dt != nil {
			dt.Runs = append(dt.Runs, sc.Runs...)
		} else {
			Logger().Warn("merge: dropping text content", "into", dst.Kind().String())
		}
	case *ImageContent:
		if di := dst.Images(); di != nil {
			di.Images = append(di.Images, sc.Images...)
		} else {
			Logger().Warn("merge: dropping image content", "into", dst.Kind().String())
		}
	case *AdjustmentContent:
		Logger().Warn("merge: dropping adjustment content", "id", src.ID)
	}
}

// thumbnailSize is the fixed edge length of generated layer thumbnails.
const thumbnailSize = 64

// Thumbnail returns the layer's cached thumbnail, generating it on
// demand. Generation is best-effort: content that cannot be rasterized
// yields a neutral placeholder, never an error.
func (s *LayerStore) Thumbnail(id string) *Surface {
	l, ok := s.layerMap[id]
	if !ok {
		return nil
	}
	if l.Thumbnail != nil {
		return l.Thumbnail
	}
	l.Thumbnail = s.renderThumbnail(l)
	return l.Thumbnail
}

func (s *LayerStore) renderThumbnail(l *Layer) *Surface {
	thumb := NewSurface(thumbnailSize, thumbnailSize)
	if l.IsGroup() || l.Kind() == ContentAdjustment {
		// No intrinsic raster content: generic placeholder.
		thumb.Fill(RGBA{R: 0.85, G: 0.85, B: 0.85, A: 1})
		return thumb
	}
	full, err := s.pool.Acquire(s.surfW, s.surfH)
	if err != nil {
		Logger().Warn("thumbnail: scratch allocation failed", "err", err)
		thumb.Fill(RGBA{R: 0.85, G: 0.85, B: 0.85, A: 1})
		return thumb
	}
	defer s.pool.Release(full)

	renderLayerContent(full, l, s.mapper, nil)
	xdraw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), full, full.Bounds(), xdraw.Over, nil)
	return thumb
}
