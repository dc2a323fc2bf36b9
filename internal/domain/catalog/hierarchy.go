package catalog

// Edge is one parent pointer of the category tree
type Edge struct {
	ID       uint64
	ParentID *uint64
}

// Hierarchy is an in-memory adjacency view of the category tree built from
// its parent pointers. It is a snapshot and does not track later writes.
type Hierarchy struct {
	nodes    map[uint64]struct{}
	children map[uint64][]uint64
}

// NewHierarchy builds the parent to children adjacency map from an edge list.
// Children keep the order in which their edges were given.
func NewHierarchy(edges []Edge) *Hierarchy {
	h := &Hierarchy{
		nodes:    make(map[uint64]struct{}, len(edges)),
		children: make(map[uint64][]uint64),
	}
	for _, e := range edges {
		h.nodes[e.ID] = struct{}{}
		if e.ParentID != nil {
			h.children[*e.ParentID] = append(h.children[*e.ParentID], e.ID)
		}
	}
	return h
}

// Len returns the number of nodes
func (h *Hierarchy) Len() int {
	return len(h.nodes)
}

// Contains reports whether id is a node of the hierarchy
func (h *Hierarchy) Contains(id uint64) bool {
	_, ok := h.nodes[id]
	return ok
}

// Children returns the direct children of id
func (h *Hierarchy) Children(id uint64) []uint64 {
	return h.children[id]
}

// SelfAndDescendants returns root followed by every node reachable through
// child edges, in breadth-first order. Each node is visited at most once,
// so the walk terminates even when the stored pointers contain a cycle.
// It returns nil when root is not a node of the hierarchy.
func (h *Hierarchy) SelfAndDescendants(root uint64) []uint64 {
	if !h.Contains(root) {
		return nil
	}

	visited := map[uint64]struct{}{root: {}}
	result := []uint64{root}
	for i := 0; i < len(result); i++ {
		for _, child := range h.children[result[i]] {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			result = append(result, child)
		}
	}
	return result
}

// IsDescendant reports whether node lies strictly below ancestor
func (h *Hierarchy) IsDescendant(ancestor, node uint64) bool {
	if ancestor == node {
		return false
	}
	for _, id := range h.SelfAndDescendants(ancestor) {
		if id == node {
			return true
		}
	}
	return false
}

// WouldCreateCycle reports whether placing id under newParent would make id
// its own ancestor
func (h *Hierarchy) WouldCreateCycle(id uint64, newParent *uint64) bool {
	if newParent == nil {
		return false
	}
	return *newParent == id || h.IsDescendant(id, *newParent)
}
