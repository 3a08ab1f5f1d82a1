package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// DAG is a validated graph of concrete specs keyed by hash.
type DAG struct {
	roots      []*Spec
	nodes      map[string]*Spec
	dependents map[string][]string
	order      []string
}

// NewDAG builds a DAG from concrete roots and validates it.
// Nodes with equal hashes are merged.
func NewDAG(roots ...*Spec) (*DAG, error) {
	d := &DAG{
		nodes:      make(map[string]*Spec),
		dependents: make(map[string][]string),
	}
	for _, r := range roots {
		if err := checkAcyclic(r); err != nil {
			return nil, err
		}
		if !r.Concrete() {
			return nil, zerr.With(zerr.Wrap(ErrNotConcrete, "concrete spec required"), "spec", r.String())
		}
		if canonical, ok := d.nodes[r.Hash]; ok {
			r = canonical
		}
		if !slices.Contains(d.roots, r) {
			d.roots = append(d.roots, r)
		}
		for _, n := range r.Traverse() {
			if _, ok := d.nodes[n.Hash]; !ok {
				d.nodes[n.Hash] = n
			}
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks that every node is concrete with a consistent hash and
// every edge points at a node of the graph. It computes the topological order.
func (d *DAG) Validate() error {
	d.dependents = make(map[string][]string)
	inDegree := make(map[string]int, len(d.nodes))
	for hash, n := range d.nodes {
		if !n.Concrete() {
			return zerr.With(zerr.Wrap(ErrNotConcrete, "concrete spec required"), "spec", n.String())
		}
		if err := VerifyHash(n); err != nil {
			return err
		}
		for _, e := range n.Dependencies {
			if _, ok := d.nodes[e.Spec.Hash]; !ok {
				return zerr.With(zerr.With(zerr.Wrap(ErrMissingDependency, "edge target not in graph"), "spec", n.Name), "dependency", e.Spec.Name)
			}
			d.dependents[e.Spec.Hash] = append(d.dependents[e.Spec.Hash], hash)
			inDegree[hash]++
		}
	}
	for h := range d.dependents {
		slices.SortFunc(d.dependents[h], d.compareHashes)
	}

	// Kahn's algorithm over a sorted ready list keeps the order deterministic.
	var ready []string
	for hash := range d.nodes {
		if inDegree[hash] == 0 {
			ready = append(ready, hash)
		}
	}
	d.order = d.order[:0]
	for len(ready) > 0 {
		slices.SortFunc(ready, d.compareHashes)
		next := ready[0]
		ready = ready[1:]
		d.order = append(d.order, next)
		for _, dep := range d.dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	if len(d.order) != len(d.nodes) {
		return zerr.Wrap(ErrCycleDetected, "dag contains a cycle")
	}
	return nil
}

func (d *DAG) compareHashes(a, b string) int {
	if c := strings.Compare(d.nodes[a].Name, d.nodes[b].Name); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Roots returns the requested root specs in request order.
func (d *DAG) Roots() []*Spec {
	return d.roots
}

// Len returns the number of distinct nodes.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// Lookup returns the node with the given hash.
func (d *DAG) Lookup(hash string) (*Spec, bool) {
	n, ok := d.nodes[hash]
	return n, ok
}

// IsRoot reports whether hash is one of the requested roots.
func (d *DAG) IsRoot(hash string) bool {
	return slices.ContainsFunc(d.roots, func(r *Spec) bool { return r.Hash == hash })
}

// TopologicalOrder returns every node with dependencies before dependents.
func (d *DAG) TopologicalOrder() []*Spec {
	out := make([]*Spec, len(d.order))
	for i, h := range d.order {
		out[i] = d.nodes[h]
	}
	return out
}

// Walk yields nodes in topological order.
func (d *DAG) Walk() iter.Seq[*Spec] {
	return func(yield func(*Spec) bool) {
		for _, h := range d.order {
			if !yield(d.nodes[h]) {
				return
			}
		}
	}
}

// Dependents returns the direct dependents of hash.
func (d *DAG) Dependents(hash string) []*Spec {
	out := make([]*Spec, 0, len(d.dependents[hash]))
	for _, h := range d.dependents[hash] {
		out = append(out, d.nodes[h])
	}
	return out
}

// TransitiveDependents returns every node that depends on hash through any
// chain of edges, in topological order.
func (d *DAG) TransitiveDependents(hash string) []*Spec {
	seen := map[string]bool{}
	queue := []string{hash}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		for _, dep := range d.dependents[h] {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	var out []*Spec
	for _, h := range d.order {
		if seen[h] {
			out = append(out, d.nodes[h])
		}
	}
	return out
}
