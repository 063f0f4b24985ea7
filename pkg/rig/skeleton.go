package rig

// Skeleton is a bone hierarchy with a fixed traversal order.
// The structure must not change after New; poses may.
type Skeleton struct {
	Name   string
	Source string

	roots        []Node
	order        []Node
	depth        map[Node]int
	freeStanding bool
}

// New builds a skeleton over the given roots.
func New(name string, roots ...Node) *Skeleton {
	s := &Skeleton{Name: name, roots: roots, depth: make(map[Node]int)}
	for _, r := range roots {
		s.collect(r, 0)
	}
	return s
}

func (s *Skeleton) collect(n Node, depth int) {
	if n == nil {
		return
	}
	s.order = append(s.order, n)
	s.depth[n] = depth
	for _, c := range n.Children() {
		s.collect(c, depth+1)
	}
}

// Roots returns the top-level nodes.
func (s *Skeleton) Roots() []Node {
	if s == nil {
		return nil
	}
	return s.roots
}

// Nodes returns every node in depth-first pre-order. Parents always
// precede their children.
func (s *Skeleton) Nodes() []Node {
	if s == nil {
		return nil
	}
	return s.order
}

// Walk visits nodes in traversal order until fn returns false.
func (s *Skeleton) Walk(fn func(n Node, depth int) bool) {
	if s == nil {
		return
	}
	for _, n := range s.order {
		if !fn(n, s.depth[n]) {
			return
		}
	}
}

// Len returns the node count.
func (s *Skeleton) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Find returns the first node named name, or nil.
func (s *Skeleton) Find(name string) Node {
	for _, n := range s.Nodes() {
		if n.Name() == name {
			return n
		}
	}
	return nil
}

// Depth returns the depth of n, or -1 when n is not part of s.
func (s *Skeleton) Depth(n Node) int {
	if s == nil {
		return -1
	}
	d, ok := s.depth[n]
	if !ok {
		return -1
	}
	return d
}

// FreeStanding reports whether segments are independent meshes positioned
// in world space rather than bones of a connected hierarchy.
func (s *Skeleton) FreeStanding() bool {
	return s != nil && s.freeStanding
}

// Reset restores the rest pose of every node that supports it.
func (s *Skeleton) Reset() {
	for _, n := range s.Nodes() {
		if r, ok := n.(Resetter); ok {
			r.ResetPose()
		}
	}
}
