package layers

import "fmt"

// ChildPolicy decides what happens to a deleted group's members.
type ChildPolicy uint8

const (
	// PromoteChildren detaches members, keeping them in the stack.
	// This is the default policy.
	PromoteChildren ChildPolicy = iota
	// DeleteChildren cascades the deletion to every member.
	DeleteChildren
)

// CreateGroup creates a group layer containing the given members, in the
// listed order. Members already in another group are moved. Unknown
// member ids reject the operation atomically.
func (s *LayerStore) CreateGroup(name string, memberIDs []string) (string, error) {
	for _, id := range memberIDs {
		l, ok := s.layerMap[id]
		if !ok {
			Logger().Warn("create group: member not found", "id", id)
			return "", fmt.Errorf("%w: %s", ErrLayerNotFound, id)
		}
		if l.IsGroup() {
			return "", fmt.Errorf("layers: nested groups are not supported (id %s)", id)
		}
	}
	// One user gesture, one undo step: the group layer's creation is
	// folded into this operation's "Group layers" snapshot.
	gid, ok := s.createLayer(ContentGroup, name, false)
	if !ok {
		return "", fmt.Errorf("layers: layer ceiling reached")
	}
	g := s.layerMap[gid].Group()
	for _, id := range memberIDs {
		l := s.layerMap[id]
		s.detachFromGroup(l)
		l.GroupID = gid
		g.ChildIDs = append(g.ChildIDs, id)
	}
	s.commit("Group layers", "group", gid)
	return gid, nil
}

// AddToGroup appends a layer to a group, maintaining the bidirectional
// edge (Group.ChildIDs and Layer.GroupID).
func (s *LayerStore) AddToGroup(groupID, layerID string) error {
	gl, ok := s.layerMap[groupID]
	if !ok || !gl.IsGroup() {
		Logger().Warn("add to group: group not found", "id", groupID)
		return ErrLayerNotFound
	}
	l, ok := s.layerMap[layerID]
	if !ok {
		return ErrLayerNotFound
	}
	if layerID == groupID {
		return ErrSelfMembership
	}
	if l.IsGroup() {
		return fmt.Errorf("layers: nested groups are not supported (id %s)", layerID)
	}
	if l.GroupID == groupID {
		return nil
	}
	s.detachFromGroup(l)
	l.GroupID = groupID
	g := gl.Group()
	g.ChildIDs = append(g.ChildIDs, layerID)
	s.commit("Add to group", "group", groupID)
	return nil
}

// RemoveFromGroup detaches a layer from its owning group. The layer
// itself is never deleted.
func (s *LayerStore) RemoveFromGroup(layerID string) error {
	l, ok := s.layerMap[layerID]
	if !ok {
		return ErrLayerNotFound
	}
	if l.GroupID == "" {
		return nil
	}
	gid := l.GroupID
	s.detachFromGroup(l)
	s.commit("Remove from group", "group", gid)
	return nil
}

// Ungroup dissolves a group: members are promoted and the empty group
// layer is deleted.
func (s *LayerStore) Ungroup(groupID string) error {
	gl, ok := s.layerMap[groupID]
	if !ok || !gl.IsGroup() {
		return ErrLayerNotFound
	}
	g := gl.Group()
	for _, cid := range g.ChildIDs {
		if c := s.layerMap[cid]; c != nil {
			c.GroupID = ""
		}
	}
	g.ChildIDs = nil
	err := s.DeleteLayer(groupID, DeleteOptions{SkipHistory: true, SkipRefresh: true})
	if err != nil {
		return err
	}
	s.commit("Ungroup", "group", groupID)
	return nil
}

// DeleteGroup deletes a group applying the given child policy.
func (s *LayerStore) DeleteGroup(groupID string, policy ChildPolicy) error {
	gl, ok := s.layerMap[groupID]
	if !ok || !gl.IsGroup() {
		Logger().Warn("delete group: group not found", "id", groupID)
		return ErrLayerNotFound
	}
	children := append([]string(nil), gl.Group().ChildIDs...)
	if policy == DeleteChildren {
		for _, cid := range children {
			_ = s.DeleteLayer(cid, DeleteOptions{
				Force:       true,
				SkipHistory: true,
				SkipRefresh: true,
			})
		}
	}
	// DeleteLayer promotes any remaining members.
	if err := s.DeleteLayer(groupID, DeleteOptions{SkipHistory: true, SkipRefresh: true}); err != nil {
		return err
	}
	s.commit("Delete group", "group", groupID)
	return nil
}

// SetGroupCollapsed toggles a group's collapsed flag. Collapsed groups
// are skipped entirely during composition.
func (s *LayerStore) SetGroupCollapsed(groupID string, collapsed bool) error {
	gl, ok := s.layerMap[groupID]
	if !ok || !gl.IsGroup() {
		return ErrLayerNotFound
	}
	gl.Group().Collapsed = collapsed
	s.commit("Toggle group", "group", groupID)
	return nil
}

// detachFromGroup removes the layer from its owning group's member list
// and clears the back-reference.
func (s *LayerStore) detachFromGroup(l *Layer) {
	if l.GroupID == "" {
		return
	}
	if gl := s.layerMap[l.GroupID]; gl != nil {
		if g := gl.Group(); g != nil {
			for i, cid := range g.ChildIDs {
				if cid == l.ID {
					g.ChildIDs = append(g.ChildIDs[:i], g.ChildIDs[i+1:]...)
					break
				}
			}
		}
	}
	l.GroupID = ""
}
