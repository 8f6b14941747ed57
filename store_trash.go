package layers

import "fmt"

// pushTrash moves a deleted layer into the bounded trash list. When the
// list is full the oldest entry is disposed for real.
func (s *LayerStore) pushTrash(l *Layer) {
	s.trash = append(s.trash, l)
	for len(s.trash) > s.cfg.TrashCapacity {
		old := s.trash[0]
		s.trash = s.trash[1:]
		s.disposeLayer(old)
		Logger().Debug("trash evicted", "id", old.ID, "name", old.Name)
	}
}

// DeletedLayers returns the trashed layers, oldest first. The returned
// slice is a copy; the layers themselves are live trash entries.
func (s *LayerStore) DeletedLayers() []*Layer {
	out := make([]*Layer, len(s.trash))
	copy(out, s.trash)
	return out
}

// RestoreDeletedLayer re-inserts a trashed layer at the top of the stack
// under a new id with identical content. Returns the new id.
func (s *LayerStore) RestoreDeletedLayer(trashedID string) (string, error) {
	for i, l := range s.trash {
		if l.ID != trashedID {
			continue
		}
		if len(s.order) >= s.cfg.MaxLayers {
			Logger().Warn("restore rejected: layer ceiling reached", "max", s.cfg.MaxLayers)
			return "", fmt.Errorf("layers: layer ceiling reached (%d)", s.cfg.MaxLayers)
		}
		s.trash = append(s.trash[:i], s.trash[i+1:]...)
		l.ID = newID()
		l.GroupID = ""
		l.Touch()
		s.layerMap[l.ID] = l
		s.order = append(s.order, l.ID)
		s.activeID = l.ID
		s.reindex()
		s.commit("Restore layer", "restore", l.ID)
		return l.ID, nil
	}
	Logger().Warn("restore: layer not in trash", "id", trashedID)
	return "", ErrLayerNotFound
}

// EmptyTrash disposes every trashed layer permanently.
func (s *LayerStore) EmptyTrash() {
	for _, l := range s.trash {
		s.disposeLayer(l)
	}
	s.trash = nil
}
