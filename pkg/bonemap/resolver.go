package bonemap

import (
	"sort"
	"strings"

	"github.com/teslashibe/go-mocap/pkg/rig"
)

// Match records how a label was bound.
type Match struct {
	Label Label    `json:"label"`
	Node  rig.Node `json:"-"`
	Name  string   `json:"node"`
	Alias string   `json:"alias"`
}

// Mapping binds labels to rig nodes. Unmapped labels are absent.
type Mapping struct {
	matches map[Label]Match
}

// Node returns the node bound to l, or nil.
func (m *Mapping) Node(l Label) rig.Node {
	if m == nil {
		return nil
	}
	return m.matches[l].Node
}

// Has reports whether l is bound.
func (m *Mapping) Has(l Label) bool {
	if m == nil {
		return false
	}
	_, ok := m.matches[l]
	return ok
}

// Len returns the number of bound labels.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.matches)
}

// Matches returns every binding in label order.
func (m *Mapping) Matches() []Match {
	out := make([]Match, 0, m.Len())
	for _, l := range Labels() {
		if m.Has(l) {
			out = append(out, m.matches[l])
		}
	}
	return out
}

// Resolved returns bound labels in label order.
func (m *Mapping) Resolved() []Label {
	var out []Label
	for _, l := range Labels() {
		if m.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// Unresolved returns unbound labels in label order.
func (m *Mapping) Unresolved() []Label {
	var out []Label
	for _, l := range Labels() {
		if !m.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// Report summarizes a mapping for diagnostics.
type Report struct {
	Resolved   map[string]string `json:"resolved"`
	Unresolved []string          `json:"unresolved"`
	Coverage   float64           `json:"coverage"`
}

// Report returns resolved label→node names and the unresolved labels.
func (m *Mapping) Report() Report {
	r := Report{Resolved: make(map[string]string)}
	for _, match := range m.Matches() {
		r.Resolved[match.Label.String()] = match.Name
	}
	for _, l := range m.Unresolved() {
		r.Unresolved = append(r.Unresolved, l.String())
	}
	sort.Strings(r.Unresolved)
	r.Coverage = float64(m.Len()) / float64(labelCount)
	return r
}

// Resolver matches labels against node names.
type Resolver struct {
	aliases map[Label][]string
}

// NewResolver returns a resolver using the default alias table. Extra
// aliases for a label are tried before the defaults.
func NewResolver(extra map[Label][]string) *Resolver {
	r := &Resolver{aliases: make(map[Label][]string, labelCount)}
	for _, l := range Labels() {
		list := append(append([]string{}, extra[l]...), defaultAliases[l]...)
		r.aliases[l] = normalize(list)
	}
	return r
}

// Resolve binds labels using the default alias table.
func Resolve(s *rig.Skeleton) *Mapping {
	return NewResolver(nil).Resolve(s)
}

// Resolve binds each label to the first node, in traversal order, whose
// lower-cased name equals or contains the label's highest-priority
// matching alias. It never modifies the skeleton. A nil or empty skeleton
// yields an empty mapping.
func (r *Resolver) Resolve(s *rig.Skeleton) *Mapping {
	m := &Mapping{matches: make(map[Label]Match)}

	nodes := s.Nodes()
	if len(nodes) == 0 {
		return m
	}
	lower := make([]string, len(nodes))
	for i, n := range nodes {
		lower[i] = strings.ToLower(n.Name())
	}

	for _, l := range Labels() {
	aliases:
		for _, alias := range r.aliases[l] {
			for i, name := range lower {
				if name == alias || strings.Contains(name, alias) {
					m.matches[l] = Match{Label: l, Node: nodes[i], Name: nodes[i].Name(), Alias: alias}
					break aliases
				}
			}
		}
	}
	return m
}
