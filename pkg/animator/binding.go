package animator

import (
	"sort"

	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/pose"
	"github.com/teslashibe/go-mocap/pkg/rig"
)

// binding adapts a resolved rig to pose.Binding.
type binding struct {
	mapping *bonemap.Mapping
	free    bool
}

func (b binding) Has(l bonemap.Label) bool { return b.mapping.Has(l) }
func (b binding) FreeStanding() bool       { return b.free }

func (b binding) RestLength(l bonemap.Label) float64 {
	if n, ok := b.mapping.Node(l).(rig.Lengther); ok {
		return n.RestLength()
	}
	return 0
}

var _ pose.Binding = binding{}

// bound is one label/node pair in application order.
type bound struct {
	label bonemap.Label
	node  rig.Node
}

// applyOrder lists the mapping's bindings in skeleton traversal order so
// parents receive their transform before children convert world targets.
// Labels sharing a node keep label order.
func applyOrder(s *rig.Skeleton, m *bonemap.Mapping) []bound {
	rank := make(map[rig.Node]int, s.Len())
	for i, n := range s.Nodes() {
		rank[n] = i
	}
	out := make([]bound, 0, m.Len())
	for _, match := range m.Matches() {
		out = append(out, bound{label: match.Label, node: match.Node})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].node] < rank[out[j].node]
	})
	return out
}
