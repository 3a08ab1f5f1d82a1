package concretizer

import (
	"maps"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/sprig/internal/core/domain"
)

// constraint restricts the node attributes of one package. reason says where
// it came from, either a requested atom or a package rule.
type constraint struct {
	spec   *domain.Spec
	reason string
}

// choice is a decision for one node name. Exactly one form is used:
// a provider for a virtual, a reused installed spec, or a fresh node spec.
type choice struct {
	spec     *domain.Spec
	reused   bool
	provider string
	rule     *domain.ProvidesRule
}

func (c *choice) key() string {
	switch {
	case c.provider != "":
		return "provider " + c.provider
	case c.reused:
		return "reuse " + c.spec.Hash
	default:
		return "build " + c.spec.NodeString()
	}
}

// assignment maps node names to decisions. It is never mutated once built.
type assignment map[string]*choice

func (a assignment) with(updates map[string]*choice) assignment {
	out := maps.Clone(a)
	if out == nil {
		out = make(assignment, len(updates))
	}
	maps.Copy(out, updates)
	return out
}

// signature identifies the set of decisions independent of the order they
// were made in.
func (a assignment) signature() uint64 {
	d := xxhash.New()
	for _, name := range slices.Sorted(maps.Keys(a)) {
		_, _ = d.WriteString(name)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(a[name].key())
		_, _ = d.WriteString("\n")
	}
	return d.Sum64()
}

// decided returns the node spec chosen for name, following a virtual to its
// provider. It returns nil while name or its provider is open.
func (a assignment) decided(name string) *domain.Spec {
	ch := a[name]
	if ch == nil {
		return nil
	}
	if ch.provider != "" {
		if p := a[ch.provider]; p != nil && p.provider == "" {
			return p.spec
		}
		return nil
	}
	return ch.spec
}

type edgeView struct {
	to    string
	kinds domain.DepKind
}

// nodeView is everything derived about one name under an assignment.
type nodeView struct {
	name        string
	pkg         *domain.Package
	virtual     bool
	constraints []constraint
	required    bool
	parent      string
	edges       []edgeView
}

func (n *nodeView) add(spec *domain.Spec, reason string) {
	n.constraints = append(n.constraints, constraint{spec: spec, reason: reason})
}

func (n *nodeView) reasons() []string {
	out := make([]string, 0, len(n.constraints))
	for _, c := range n.constraints {
		out = append(out, c.reason)
	}
	return out
}

// view is the propagated state of an assignment: which names the DAG needs,
// in discovery order, and the constraints on each.
type view struct {
	nodes map[string]*nodeView
	order []string
}

func newView() *view {
	return &view{nodes: make(map[string]*nodeView)}
}

func (v *view) node(name string) *nodeView {
	n, ok := v.nodes[name]
	if !ok {
		n = &nodeView{name: name}
		v.nodes[name] = n
	}
	return n
}

// nextOpen returns the first required name without a decision.
func (v *view) nextOpen(a assignment) string {
	for _, name := range v.order {
		if a[name] == nil {
			return name
		}
	}
	return ""
}

// conflict is a contradiction together with the reasons involved.
type conflict struct {
	reasons []string
}

func newConflict(reasons ...string) *conflict {
	c := &conflict{}
	c.add(reasons...)
	return c
}

func (c *conflict) add(reasons ...string) {
	for _, r := range reasons {
		if r != "" && !slices.Contains(c.reasons, r) {
			c.reasons = append(c.reasons, r)
		}
	}
}

func (c *conflict) merge(o *conflict) *conflict {
	if o == nil {
		return c
	}
	if c == nil {
		return newConflict(o.reasons...)
	}
	c.add(o.reasons...)
	return c
}

// nodePart copies the node attributes of s without its dependency constraints.
func nodePart(s *domain.Spec) *domain.Spec {
	return &domain.Spec{
		Name:     s.Name,
		Versions: s.Versions,
		Variants: s.Variants,
		Compiler: s.Compiler,
		Arch:     s.Arch,
	}
}
