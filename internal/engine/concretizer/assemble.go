package concretizer

import (
	"slices"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

// assemble builds concrete specs from a complete assignment, dependencies
// first, seals their hashes and validates the resulting DAG. Reused nodes
// are the recorded specs and keep their hashes.
func (s *solver) assemble(v *view, a assignment) (*domain.DAG, error) {
	built := make(map[string]*domain.Spec)
	var build func(name string) *domain.Spec
	build = func(name string) *domain.Spec {
		ch := a[name]
		if ch.provider != "" {
			return build(ch.provider)
		}
		if spec, ok := built[name]; ok {
			return spec
		}
		if ch.reused {
			built[name] = ch.spec
			return ch.spec
		}

		spec := ch.spec.Clone()
		built[name] = spec

		var targets []string
		edges := make(map[string]*domain.DependencyEdge)
		for _, e := range v.nodes[name].edges {
			target := e.to
			var virtual string
			if dep := a[e.to]; dep != nil && dep.provider != "" {
				target, virtual = dep.provider, e.to
			}
			edge, ok := edges[target]
			if !ok {
				edge = &domain.DependencyEdge{}
				edges[target] = edge
				targets = append(targets, target)
			}
			edge.Kinds |= e.kinds
			if virtual != "" && !slices.Contains(edge.Virtuals, virtual) {
				edge.Virtuals = append(edge.Virtuals, virtual)
			}
		}
		for _, target := range targets {
			edge := edges[target]
			edge.Spec = build(target)
			slices.Sort(edge.Virtuals)
			spec.Dependencies = append(spec.Dependencies, *edge)
		}
		return spec
	}

	roots := make([]*domain.Spec, 0, len(s.roots))
	for _, r := range s.roots {
		root := build(r.Name)
		if err := domain.Seal(root); err != nil {
			return nil, zerr.With(err, "spec", r.String())
		}
		roots = append(roots, root)
	}
	return domain.NewDAG(roots...)
}
