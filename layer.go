package layers

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors reported by Layer.Validate.
var (
	ErrContentKindMismatch = errors.New("layers: content variant does not match declared kind")
	ErrNonFiniteTransform  = errors.New("layers: transform contains non-finite components")
	ErrSelfMembership      = errors.New("layers: group cannot contain itself")
)

// LockState holds the four independent lock flags of a layer. All acts as
// an OR-override on read: the Is* accessors report a lock when either the
// individual flag or All is set. Setting All does not rewrite the
// individual flags.
type LockState struct {
	Position     bool
	Pixels       bool
	Transparency bool
	All          bool
}

// IsPositionLocked reports whether translation is locked.
func (l LockState) IsPositionLocked() bool { return l.All || l.Position }

// IsPixelsLocked reports whether pixel mutation is locked.
func (l LockState) IsPixelsLocked() bool { return l.All || l.Pixels }

// IsTransparencyLocked reports whether opacity changes are locked.
func (l LockState) IsTransparencyLocked() bool { return l.All || l.Transparency }

// IsAnyLocked reports whether any lock is active.
func (l LockState) IsAnyLocked() bool {
	return l.All || l.Position || l.Pixels || l.Transparency
}

// Layer is a node in the layer stack: identity, visual state, lock state,
// an affine transform, exactly one content variant fixed at construction,
// an optional alpha-stencil mask, and a cached thumbnail.
type Layer struct {
	ID   string
	Name string
	// Order caches the layer's index in the store's order list; it is
	// re-derived after every structural operation.
	Order int
	// GroupID back-references the owning group, empty when ungrouped.
	// The layer never owns its parent.
	GroupID string

	Visible bool
	Opacity float64
	Blend   BlendMode
	Lock    LockState

	Transform Transform
	Content   Content
	Mask      *LayerMask

	// Thumbnail is derived and best-effort; it is invalidated on content
	// mutation and regenerated lazily.
	Thumbnail *Surface

	Created  time.Time
	Modified time.Time
}

// NewLayer constructs a layer with the given content. Opacity defaults to
// 1, visibility to true, transform to identity.
func NewLayer(name string, content Content) *Layer {
	now := time.Now()
	return &Layer{
		ID:        newID(),
		Name:      name,
		Visible:   true,
		Opacity:   1,
		Blend:     BlendNormal,
		Transform: IdentityTransform(),
		Content:   content,
		Created:   now,
		Modified:  now,
	}
}

// Kind returns the content variant tag.
func (l *Layer) Kind() ContentKind {
	return l.Content.Kind()
}

// IsGroup reports whether the layer is a group node.
func (l *Layer) IsGroup() bool {
	return l.Content.Kind() == ContentGroup
}

// Group returns the group content, or nil for non-group layers.
func (l *Layer) Group() *GroupContent {
	g, _ := l.Content.(*GroupContent)
	return g
}

// Paint returns the paint content, or nil for non-paint layers.
func (l *Layer) Paint() *PaintContent {
	p, _ := l.Content.(*PaintContent)
	return p
}

// Text returns the text content, or nil for non-text layers.
func (l *Layer) Text() *TextContent {
	t, _ := l.Content.(*TextContent)
	return t
}

// Images returns the image content, or nil for non-image layers.
func (l *Layer) Images() *ImageContent {
	i, _ := l.Content.(*ImageContent)
	return i
}

// Validate checks the layer's structural invariants. Opacity is clamped
// rather than rejected.
func (l *Layer) Validate() error {
	if l.Content == nil {
		return fmt.Errorf("%w: nil content", ErrContentKindMismatch)
	}
	l.Opacity = clamp01(l.Opacity)
	if !l.Transform.IsFinite() {
		return ErrNonFiniteTransform
	}
	if g := l.Group(); g != nil {
		for _, id := range g.ChildIDs {
			if id == l.ID {
				return ErrSelfMembership
			}
		}
	}
	return nil
}

// Clone returns a structural deep copy of the layer: content, mask and
// thumbnail are copied recursively, and raster pixels are duplicated.
// Element ids are preserved (history snapshots rely on this); call
// reassignIDs on the clone's content when duplicating.
func (l *Layer) Clone() *Layer {
	out := *l
	out.Content = l.Content.Clone()
	out.Mask = l.Mask.Clone()
	if l.Thumbnail != nil {
		out.Thumbnail = l.Thumbnail.Clone()
	}
	return &out
}

// Touch updates the modification timestamp and invalidates the thumbnail.
func (l *Layer) Touch() {
	l.Modified = time.Now()
	l.Thumbnail = nil
}

// ContentBounds returns the pixel-space AABB of the layer's drawable
// content, before the layer transform. Group and adjustment layers have
// no intrinsic bounds.
func (l *Layer) ContentBounds() Rect {
	var b Rect
	switch c := l.Content.(type) {
	case *PaintContent:
		for _, s := range c.Strokes {
			b = b.Union(s.Bounds())
		}
		for _, p := range c.Puffs {
			if p.Visible {
				b = b.Union(Rect{
					X: p.CenterPx.X - p.RadiusPx,
					Y: p.CenterPx.Y - p.RadiusPx,
					W: 2 * p.RadiusPx,
					H: 2 * p.RadiusPx,
				})
			}
		}
	case *TextContent:
		for _, r := range c.Runs {
			if r.Visible {
				b = b.Union(r.Placement.Bounds())
			}
		}
	case *ImageContent:
		for _, im := range c.Images {
			if im.Visible {
				b = b.Union(im.Placement.Bounds())
			}
		}
	}
	return b
}
