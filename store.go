package layers

import (
	"errors"
	"fmt"
)

// ErrLayerNotFound is returned when an operation targets a nonexistent
// layer or group id. Per the error-handling policy such operations are
// no-ops: the store's state is never partially mutated.
var ErrLayerNotFound = errors.New("layers: layer not found")

// LockViolationError reports which lock blocked a mutation.
type LockViolationError struct {
	LayerID string
	Lock    string
}

func (e *LockViolationError) Error() string {
	return fmt.Sprintf("layers: layer %s is %s-locked", e.LayerID, e.Lock)
}

// RefreshFunc is notified after structural edits (visibility, opacity,
// blend, order) so the external 3D-texture collaborator can refresh. The
// signal is decoupled from the surface payload itself.
type RefreshFunc func(source, layerID string)

// AccessibilityFunc is notified best-effort when text runs are created or
// removed. Event is "add" or "remove". Failures inside the callback are
// recovered and logged, never propagated.
type AccessibilityFunc func(event, runID, text string)

// StoreOption configures a LayerStore.
type StoreOption func(*LayerStore)

// WithStoreConfig overrides the default store configuration.
func WithStoreConfig(cfg StoreConfig) StoreOption {
	return func(s *LayerStore) { s.cfg = cfg }
}

// WithHistory attaches a history manager; without one no snapshots are
// recorded and Undo/Redo are no-ops.
func WithHistory(h *HistoryManager) StoreOption {
	return func(s *LayerStore) { s.history = h }
}

// WithRefreshFunc registers the texture-refresh notification callback.
func WithRefreshFunc(fn RefreshFunc) StoreOption {
	return func(s *LayerStore) { s.onRefresh = fn }
}

// WithAccessibilityFunc registers the accessibility registrar callback.
func WithAccessibilityFunc(fn AccessibilityFunc) StoreOption {
	return func(s *LayerStore) { s.onAccessibility = fn }
}

// WithSurfaceSize sets the pixel dimensions used for newly allocated
// paint surfaces and UV/pixel mapping. Defaults to the engine defaults.
func WithSurfaceSize(w, h int) StoreOption {
	return func(s *LayerStore) {
		s.surfW, s.surfH = w, h
		s.mapper = NewMapper(w, h)
	}
}

// LayerStore owns the ordered layer/group collection, the selection
// state, and the locking rules. All mutation goes through it; nearly
// every mutating operation marks the composition dirty, optionally
// records a history snapshot, and notifies the refresh callback.
//
// LayerStore is not safe for concurrent use: the concurrency model is a
// single logical mutator thread.
type LayerStore struct {
	cfg  StoreConfig
	pool *SurfacePool

	layerMap map[string]*Layer
	order    []string // paint order: index 0 is painted first (bottom)
	activeID string

	trash []*Layer

	history         *HistoryManager
	onRefresh       RefreshFunc
	onAccessibility AccessibilityFunc

	surfW, surfH int
	mapper       Mapper
	dirty        bool
}

// NewLayerStore creates an empty store backed by the given surface pool.
func NewLayerStore(pool *SurfacePool, opts ...StoreOption) *LayerStore {
	def := DefaultConfig()
	s := &LayerStore{
		cfg:      def.Store,
		pool:     pool,
		layerMap: map[string]*Layer{},
		surfW:    def.Engine.Width,
		surfH:    def.Engine.Height,
	}
	s.mapper = NewMapper(s.surfW, s.surfH)
	for _, opt := range opts {
		opt(s)
	}
	if s.history != nil {
		// Baseline snapshot so the first mutation can be undone.
		s.history.Record("Initial state", nil, nil, "")
	}
	return s
}

// Mapper returns the UV/pixel mapper for the store's surface size.
func (s *LayerStore) Mapper() Mapper { return s.mapper }

// SurfaceSize returns the pixel dimensions of the composition surface.
func (s *LayerStore) SurfaceSize() (int, int) { return s.surfW, s.surfH }

// Layer returns the layer with the given id, or nil.
func (s *LayerStore) Layer(id string) *Layer { return s.layerMap[id] }

// Order returns a copy of the current paint order (bottom first).
func (s *LayerStore) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Layers returns the layers in paint order.
func (s *LayerStore) Layers() []*Layer {
	out := make([]*Layer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.layerMap[id])
	}
	return out
}

// Count returns the number of layers (groups included).
func (s *LayerStore) Count() int { return len(s.order) }

// ActiveLayerID returns the id of the active (selected) layer, or "".
func (s *LayerStore) ActiveLayerID() string { return s.activeID }

// ActiveLayer returns the active layer, or nil.
func (s *LayerStore) ActiveLayer() *Layer { return s.layerMap[s.activeID] }

// SetActiveLayer selects a layer. Selecting an unknown id clears the
// selection.
func (s *LayerStore) SetActiveLayer(id string) {
	if _, ok := s.layerMap[id]; !ok {
		s.activeID = ""
		return
	}
	s.activeID = id
}

// Dirty reports whether the composition is out of date.
func (s *LayerStore) Dirty() bool { return s.dirty }

// MarkDirty flags the composition as needing a re-render.
func (s *LayerStore) MarkDirty() { s.dirty = true }

// ClearDirty is called by the composition engine after a pass.
func (s *LayerStore) ClearDirty() { s.dirty = false }

// CreateLayer appends a new layer of the given kind at the top of the
// order, makes it active, and records a history snapshot. Paint layers
// get a fresh cleared surface from the pool. The only failure path is
// the global layer-count ceiling, reported by ok=false; the operation is
// then a silent no-op.
func (s *LayerStore) CreateLayer(kind ContentKind, name string) (id string, ok bool) {
	return s.createLayer(kind, name, true)
}

// createLayer is CreateLayer with an optional commit: compound
// operations like CreateGroup create the layer as part of their own
// single snapshot.
func (s *LayerStore) createLayer(kind ContentKind, name string, commit bool) (id string, ok bool) {
	if len(s.order) >= s.cfg.MaxLayers {
		Logger().Warn("layer ceiling reached", "max", s.cfg.MaxLayers)
		return "", false
	}
	var content Content
	switch kind {
	case ContentPaint:
		surf, err := s.pool.Acquire(s.surfW, s.surfH)
		if err != nil {
			Logger().Warn("paint surface allocation failed", "err", err)
			return "", false
		}
		content = &PaintContent{Surface: surf}
	case ContentText:
		content = &TextContent{}
	case ContentImage:
		content = &ImageContent{}
	case ContentAdjustment:
		content = &AdjustmentContent{Params: BrightnessContrast{}}
	case ContentGroup:
		content = &GroupContent{}
	default:
		Logger().Warn("unknown content kind", "kind", kind)
		return "", false
	}
	if name == "" {
		name = fmt.Sprintf("%s %d", kind, len(s.order)+1)
	}
	l := NewLayer(name, content)
	s.layerMap[l.ID] = l
	s.order = append(s.order, l.ID)
	s.activeID = l.ID
	s.reindex()
	if commit {
		s.commit("Create "+kind.String()+" layer", "create", l.ID)
	}
	return l.ID, true
}

// DeleteOptions control layer deletion.
type DeleteOptions struct {
	// Force permits deleting a locked layer.
	Force bool
	// MoveToTrash keeps the layer in a bounded trash list for restore
	// instead of disposing it.
	MoveToTrash bool
	// KeepGroupRefs skips removal of the layer from its owning group.
	KeepGroupRefs bool
	// SkipHistory suppresses the history snapshot.
	SkipHistory bool
	// SkipRefresh suppresses the refresh notification.
	SkipRefresh bool
}

// DeleteLayer removes a layer. It refuses (no state change) when the
// layer is locked and Force is not set. Deleting the last layer is
// allowed: an empty stack is a valid UI state.
func (s *LayerStore) DeleteLayer(id string, opts DeleteOptions) error {
	l, ok := s.layerMap[id]
	if !ok {
		Logger().Warn("delete: layer not found", "id", id)
		return ErrLayerNotFound
	}
	if l.Lock.IsAnyLocked() && !opts.Force {
		err := &LockViolationError{LayerID: id, Lock: lockName(l.Lock)}
		Logger().Warn("delete rejected", "id", id, "lock", err.Lock)
		return err
	}
	if !opts.KeepGroupRefs {
		s.detachFromGroup(l)
	}
	if g := l.Group(); g != nil {
		// Promote members of a directly deleted group; DeleteGroup
		// offers the cascade policy.
		for _, cid := range g.ChildIDs {
			if c := s.layerMap[cid]; c != nil {
				c.GroupID = ""
			}
		}
	}
	s.removeFromOrder(id)
	delete(s.layerMap, id)
	if s.activeID == id {
		s.activeID = s.topmostID()
	}
	if opts.MoveToTrash {
		s.pushTrash(l)
	} else {
		s.disposeLayer(l)
	}
	s.reindex()
	s.dirty = true
	if !opts.SkipHistory {
		s.snapshot("Delete layer")
	}
	if !opts.SkipRefresh {
		s.notifyRefresh("delete", id)
	}
	return nil
}

// DeleteAllLayers moves every deletable layer to the trash. Because it
// can leave the stack empty, the caller must explicitly pass
// allowEmpty=true; otherwise the call is a no-op returning false.
func (s *LayerStore) DeleteAllLayers(allowEmpty bool) bool {
	if !allowEmpty {
		Logger().Warn("delete-all rejected: allowEmpty not set")
		return false
	}
	for _, id := range s.Order() {
		_ = s.DeleteLayer(id, DeleteOptions{
			Force:       true,
			MoveToTrash: true,
			SkipHistory: true,
			SkipRefresh: true,
		})
	}
	s.snapshot("Delete all layers")
	s.notifyRefresh("delete-all", "")
	return true
}

// ReorderLayers replaces the order list verbatim. The new order must be
// a bijection on the current id set; duplicate or missing ids reject the
// operation atomically.
func (s *LayerStore) ReorderLayers(newOrder []string) error {
	if len(newOrder) != len(s.order) {
		Logger().Warn("reorder rejected: length mismatch",
			"want", len(s.order), "got", len(newOrder))
		return fmt.Errorf("layers: reorder requires %d ids, got %d", len(s.order), len(newOrder))
	}
	seen := make(map[string]bool, len(newOrder))
	for _, id := range newOrder {
		if _, ok := s.layerMap[id]; !ok {
			Logger().Warn("reorder rejected: unknown id", "id", id)
			return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
		}
		if seen[id] {
			Logger().Warn("reorder rejected: duplicate id", "id", id)
			return fmt.Errorf("layers: duplicate id %s in reorder", id)
		}
		seen[id] = true
	}
	s.order = append(s.order[:0], newOrder...)
	s.reindex()
	s.dirty = true
	s.snapshot("Reorder layers")
	s.notifyRefresh("reorder", "")
	return nil
}

// RenameLayer sets the layer's display name.
func (s *LayerStore) RenameLayer(id, name string) error {
	l, ok := s.layerMap[id]
	if !ok {
		return ErrLayerNotFound
	}
	l.Name = name
	s.snapshot("Rename layer")
	return nil
}

// reindex re-derives every layer's cached Order field from its index.
func (s *LayerStore) reindex() {
	for i, id := range s.order {
		if l := s.layerMap[id]; l != nil {
			l.Order = i
		}
	}
}

func (s *LayerStore) removeFromOrder(id string) {
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *LayerStore) topmostID() string {
	if len(s.order) == 0 {
		return ""
	}
	return s.order[len(s.order)-1]
}

// disposeLayer releases a layer's pooled resources.
func (s *LayerStore) disposeLayer(l *Layer) {
	if p := l.Paint(); p != nil && p.Surface != nil {
		s.pool.Release(p.Surface)
		p.Surface = nil
	}
}

// commit is the common tail of a structural mutation: dirty flag,
// snapshot, refresh notification.
func (s *LayerStore) commit(label, source, layerID string) {
	s.dirty = true
	s.snapshot(label)
	s.notifyRefresh(source, layerID)
}

func (s *LayerStore) snapshot(label string) {
	if s.history == nil {
		return
	}
	s.history.Record(label, s.Layers(), s.order, s.activeID)
}

func (s *LayerStore) notifyRefresh(source, layerID string) {
	if s.onRefresh == nil {
		return
	}
	s.onRefresh(source, layerID)
}

// notifyAccessibility invokes the registrar best-effort: a panicking or
// missing registrar never affects the caller.
func (s *LayerStore) notifyAccessibility(event, runID, text string) {
	if s.onAccessibility == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("accessibility registrar panicked", "event", event, "panic", r)
		}
	}()
	s.onAccessibility(event, runID, text)
}

func lockName(l LockState) string {
	switch {
	case l.All:
		return "all"
	case l.Position:
		return "position"
	case l.Pixels:
		return "pixels"
	case l.Transparency:
		return "transparency"
	default:
		return "none"
	}
}

// Undo restores the previous history snapshot. Returns false when there
// is nothing to undo.
func (s *LayerStore) Undo() bool {
	if s.history == nil {
		return false
	}
	snap := s.history.Undo()
	if snap == nil {
		return false
	}
	s.restore(snap)
	return true
}

// Redo restores the next history snapshot. Returns false when there is
// nothing to redo.
func (s *LayerStore) Redo() bool {
	if s.history == nil {
		return false
	}
	snap := s.history.Redo()
	if snap == nil {
		return false
	}
	s.restore(snap)
	return true
}

// restore replaces the entire layer array and active id with the
// snapshot's deep copies. Replaced paint surfaces go back to the pool;
// restored surfaces are adopted into it so their eventual disposal stays
// pool-arbitrated.
func (s *LayerStore) restore(snap *Snapshot) {
	for _, l := range s.Layers() {
		s.disposeLayer(l)
	}
	s.layerMap = make(map[string]*Layer, len(snap.Layers))
	for _, l := range snap.Layers {
		s.layerMap[l.ID] = l
		if p := l.Paint(); p != nil && p.Surface != nil {
			s.pool.Adopt(p.Surface)
		}
	}
	s.order = append(s.order[:0], snap.Order...)
	s.activeID = snap.ActiveLayerID
	if _, ok := s.layerMap[s.activeID]; !ok {
		s.activeID = s.topmostID()
	}
	s.reindex()
	s.dirty = true
	s.notifyRefresh("history", s.activeID)
}
