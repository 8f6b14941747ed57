package layers

import "time"

// Snapshot is an immutable deep copy of the editable state: the full
// layer array, the active-layer id, a human-readable action label, and a
// timestamp. Snapshots never alias live state; both capture and restore
// go through structural deep copies.
type Snapshot struct {
	Layers        []*Layer
	Order         []string
	ActiveLayerID string
	Label         string
	Time          time.Time
}

// HistoryManager implements linear snapshot-based undo/redo over a
// bounded ring. Any mutation recorded after an undo discards all
// snapshots past the cursor; there is no branching.
type HistoryManager struct {
	snapshots []*Snapshot
	cursor    int // index of the current snapshot, -1 when empty
	capacity  int
}

// NewHistoryManager creates a history ring with the given capacity.
// Capacities below one fall back to the default of 50.
func NewHistoryManager(capacity int) *HistoryManager {
	if capacity < 1 {
		capacity = 50
	}
	return &HistoryManager{
		snapshots: make([]*Snapshot, 0, capacity),
		cursor:    -1,
		capacity:  capacity,
	}
}

// Record captures a snapshot of the given state. Everything after the
// cursor is truncated, the snapshot is appended, and the oldest entry is
// evicted once capacity is exceeded.
func (h *HistoryManager) Record(label string, layerList []*Layer, order []string, activeID string) {
	snap := &Snapshot{
		Layers:        make([]*Layer, len(layerList)),
		Order:         make([]string, len(order)),
		ActiveLayerID: activeID,
		Label:         label,
		Time:          time.Now(),
	}
	for i, l := range layerList {
		snap.Layers[i] = l.Clone()
	}
	copy(snap.Order, order)

	h.snapshots = h.snapshots[:h.cursor+1]
	h.snapshots = append(h.snapshots, snap)
	h.cursor++
	if len(h.snapshots) > h.capacity {
		n := copy(h.snapshots, h.snapshots[1:])
		h.snapshots = h.snapshots[:n]
		h.cursor--
	}
	Logger().Debug("history snapshot", "label", label, "cursor", h.cursor, "count", len(h.snapshots))
}

// CanUndo reports whether an undo step is available.
func (h *HistoryManager) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether a redo step is available.
func (h *HistoryManager) CanRedo() bool { return h.cursor >= 0 && h.cursor < len(h.snapshots)-1 }

// Undo steps the cursor back and returns a deep copy of that snapshot.
// Returns nil when there is nothing to undo.
func (h *HistoryManager) Undo() *Snapshot {
	if !h.CanUndo() {
		return nil
	}
	h.cursor--
	return h.restoreCopy(h.snapshots[h.cursor])
}

// Redo steps the cursor forward and returns a deep copy of that snapshot.
// Returns nil when there is nothing to redo.
func (h *HistoryManager) Redo() *Snapshot {
	if !h.CanRedo() {
		return nil
	}
	h.cursor++
	return h.restoreCopy(h.snapshots[h.cursor])
}

// Len returns the number of retained snapshots.
func (h *HistoryManager) Len() int { return len(h.snapshots) }

// Cursor returns the current cursor index, -1 when empty.
func (h *HistoryManager) Cursor() int { return h.cursor }

// Labels returns the snapshot labels in order, oldest first.
func (h *HistoryManager) Labels() []string {
	out := make([]string, len(h.snapshots))
	for i, s := range h.snapshots {
		out[i] = s.Label
	}
	return out
}

// Clear drops all snapshots.
func (h *HistoryManager) Clear() {
	h.snapshots = h.snapshots[:0]
	h.cursor = -1
}

// restoreCopy deep-copies a stored snapshot so future mutation of the
// restored state cannot corrupt history.
func (h *HistoryManager) restoreCopy(s *Snapshot) *Snapshot {
	out := &Snapshot{
		Layers:        make([]*Layer, len(s.Layers)),
		Order:         make([]string, len(s.Order)),
		ActiveLayerID: s.ActiveLayerID,
		Label:         s.Label,
		Time:          s.Time,
	}
	for i, l := range s.Layers {
		out.Layers[i] = l.Clone()
	}
	copy(out.Order, s.Order)
	return out
}
