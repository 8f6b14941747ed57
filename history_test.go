package layers

import (
	"fmt"
	"testing"
)

func snapshotState(names ...string) ([]*Layer, []string) {
	var list []*Layer
	var order []string
	for _, n := range names {
		l := NewLayer(n, &PaintContent{})
		list = append(list, l)
		order = append(order, l.ID)
	}
	return list, order
}

func TestHistoryUndoRedo(t *testing.T) {
	h := NewHistoryManager(10)

	l1, o1 := snapshotState("one")
	h.Record("first", l1, o1, o1[0])
	l2, o2 := snapshotState("one", "two")
	h.Record("second", l2, o2, o2[1])

	if !h.CanUndo() {
		t.Fatal("CanUndo = false after two records")
	}
	if h.CanRedo() {
		t.Fatal("CanRedo = true at the head")
	}

	s := h.Undo()
	if s == nil || len(s.Layers) != 1 {
		t.Fatalf("Undo returned %+v", s)
	}
	if s.Layers[0].Name != "one" {
		t.Errorf("undone to %q, want %q", s.Layers[0].Name, "one")
	}

	if !h.CanRedo() {
		t.Fatal("CanRedo = false after undo")
	}
	s = h.Redo()
	if s == nil || len(s.Layers) != 2 {
		t.Fatalf("Redo returned %+v", s)
	}
}

func TestHistoryUndoRedoIdempotence(t *testing.T) {
	h := NewHistoryManager(10)

	l1, o1 := snapshotState("base")
	h.Record("base", l1, o1, o1[0])
	l2, o2 := snapshotState("base", "edit")
	h.Record("edit", l2, o2, o2[1])

	before := h.snapshots[h.cursor]
	h.Undo()
	after := h.Redo()

	if after.ActiveLayerID != before.ActiveLayerID || len(after.Layers) != len(before.Layers) {
		t.Fatalf("redo state differs: %+v vs %+v", after, before)
	}
	for i := range after.Layers {
		if after.Layers[i].ID != before.Layers[i].ID || after.Layers[i].Name != before.Layers[i].Name {
			t.Errorf("layer %d differs after undo+redo", i)
		}
	}
}

func TestHistoryTruncatesOnRecordAfterUndo(t *testing.T) {
	h := NewHistoryManager(10)
	for i := 0; i < 3; i++ {
		l, o := snapshotState(fmt.Sprintf("v%d", i))
		h.Record(fmt.Sprintf("v%d", i), l, o, o[0])
	}
	h.Undo()
	h.Undo()

	l, o := snapshotState("branch")
	h.Record("branch", l, o, o[0])

	if h.CanRedo() {
		t.Error("redo available after recording past the cursor")
	}
	want := []string{"v0", "branch"}
	got := h.Labels()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Labels = %v, want %v", got, want)
	}
}

func TestHistoryEviction(t *testing.T) {
	h := NewHistoryManager(3)
	for i := 0; i < 5; i++ {
		l, o := snapshotState(fmt.Sprintf("v%d", i))
		h.Record(fmt.Sprintf("v%d", i), l, o, o[0])
	}
	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	got := h.Labels()
	want := []string{"v2", "v3", "v4"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Labels = %v, want %v", got, want)
		}
	}
	// Cursor still points at the newest snapshot.
	if h.CanRedo() {
		t.Error("CanRedo = true after eviction")
	}
}

func TestHistorySnapshotIsolation(t *testing.T) {
	h := NewHistoryManager(10)

	live := NewLayer("paint", &PaintContent{Surface: NewSurface(2, 2)})
	h.Record("first", []*Layer{live}, []string{live.ID}, live.ID)
	h.Record("second", []*Layer{live}, []string{live.ID}, live.ID)

	// Mutating live state after recording must not leak into snapshots.
	live.Name = "mutated"
	live.Paint().Surface.SetPixel(0, 0, RGB(1, 0, 0))

	s := h.Undo()
	if s.Layers[0].Name != "paint" {
		t.Errorf("snapshot name = %q, want %q", s.Layers[0].Name, "paint")
	}
	if got := s.Layers[0].Paint().Surface.GetPixel(0, 0); got != Transparent {
		t.Errorf("snapshot surface mutated: %+v", got)
	}

	// Mutating a restored snapshot must not corrupt the stored one.
	s.Layers[0].Name = "scribble"
	s2 := h.Redo()
	_ = s2
	s3 := h.Undo()
	if s3.Layers[0].Name != "paint" {
		t.Errorf("stored snapshot corrupted: %q", s3.Layers[0].Name)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistoryManager(10)
	l, o := snapshotState("one")
	h.Record("one", l, o, o[0])
	h.Clear()
	if h.Len() != 0 || h.Cursor() != -1 {
		t.Errorf("after Clear: len=%d cursor=%d", h.Len(), h.Cursor())
	}
	if h.Undo() != nil {
		t.Error("Undo after Clear returned a snapshot")
	}
}
