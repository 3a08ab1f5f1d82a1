package concretizer

import (
	"maps"
	"slices"

	"go.trai.ch/sprig/internal/core/domain"
)

// derive propagates an assignment: it walks the decided nodes from the
// roots, collects the constraints their rules impose, and checks every
// required node for consistency. A non-nil conflict means the assignment
// cannot be extended to a solution.
//
// Rules whose condition names dependencies wait until the walk settles and
// are retried until none fires, since a fired rule can add the edge another
// condition needs.
func (s *solver) derive(a assignment) (*view, *conflict, error) {
	v := newView()
	var queue []string
	require := func(name, parent string) {
		n := v.node(name)
		if n.required {
			return
		}
		n.required = true
		n.parent = parent
		v.order = append(v.order, name)
		queue = append(queue, name)
	}
	apply := func(name string, spec *domain.Spec, rule domain.DependencyRule) {
		reason := dependsReason(spec, rule)
		v.node(rule.Spec.Name).add(nodePart(rule.Spec), reason)
		for _, e := range rule.Spec.Dependencies {
			v.node(e.Spec.Name).add(nodePart(e.Spec), reason)
		}
		require(rule.Spec.Name, name)
		n := v.nodes[name]
		n.edges = append(n.edges, edgeView{to: rule.Spec.Name, kinds: rule.Kinds})
	}

	for _, r := range s.roots {
		require(r.Name, "")
	}
	for i, at := range s.atoms {
		if s.active[i] {
			v.node(at.target).add(at.spec, at.text)
		}
	}

	var pending []deferredRule
	for {
		for len(queue) > 0 {
			name := queue[0]
			queue = queue[1:]
			n := v.nodes[name]

			ch := a[name]
			switch {
			case ch == nil:
				continue
			case ch.provider != "":
				n.virtual = true
				require(ch.provider, name)
			case ch.reused:
				for _, e := range ch.spec.Dependencies {
					require(e.Spec.Name, name)
					n.edges = append(n.edges, edgeView{to: e.Spec.Name, kinds: e.Kinds})
				}
			default:
				pkg, _, err := s.resolve(name)
				if err != nil {
					return nil, nil, err
				}
				n.pkg = pkg
				for _, rule := range pkg.Dependencies {
					switch {
					case rule.When != nil && len(rule.When.Dependencies) > 0:
						pending = append(pending, deferredRule{name: name, spec: ch.spec, rule: rule})
					case domain.Holds(rule.When, ch.spec):
						apply(name, ch.spec, rule)
					}
				}
			}
		}

		waiting := pending[:0]
		for _, d := range pending {
			if v.holds(a, d.name, d.spec, d.rule.When) {
				apply(d.name, d.spec, d.rule)
			} else {
				waiting = append(waiting, d)
			}
		}
		if len(waiting) == len(pending) {
			break
		}
		pending = waiting
	}

	// Providers inherit what was asked of their virtual before any node is checked.
	for _, name := range v.order {
		if c := s.forwardVirtual(v, a, v.nodes[name]); c != nil {
			return v, c, nil
		}
	}

	for _, name := range v.order {
		n := v.nodes[name]
		ch := a[name]
		var c *conflict
		var err error
		switch {
		case ch == nil:
			c, err = s.checkOpen(v, a, n)
		case ch.provider != "":
		case ch.reused:
			c = checkDecided(n, ch.spec)
		default:
			if c = checkDecided(n, ch.spec); c == nil {
				c = s.checkConflicts(v, a, n, ch.spec)
			}
		}
		if err != nil {
			return nil, nil, err
		}
		if c != nil {
			return v, c, nil
		}
	}

	if v.nextOpen(a) == "" {
		for _, name := range slices.Sorted(maps.Keys(v.nodes)) {
			if n := v.nodes[name]; !n.required && len(n.constraints) > 0 {
				return v, newConflict(n.reasons()...), nil
			}
		}
	}
	return v, nil, nil
}

// forwardVirtual checks the constraints on a decided virtual against the
// chosen provides rule and hands the remaining attributes to the provider.
func (s *solver) forwardVirtual(v *view, a assignment, n *nodeView) *conflict {
	ch := a[n.name]
	if ch == nil || ch.provider == "" {
		return nil
	}
	p := v.node(ch.provider)
	reason := ""
	if ch.rule != nil {
		reason = providesReason(ch.provider, *ch.rule)
		if ch.rule.When != nil {
			when := nodePart(ch.rule.When)
			when.Name = ""
			p.add(when, reason)
		}
	}
	for _, c := range n.constraints {
		if ch.rule != nil && !c.spec.Versions.Intersects(ch.rule.Virtual.Versions) {
			return newConflict(c.reason, reason)
		}
		if len(c.spec.Variants) == 0 && c.spec.Compiler.IsZero() && c.spec.Arch.IsZero() {
			continue
		}
		p.add(&domain.Spec{
			Name:     ch.provider,
			Variants: c.spec.Variants,
			Compiler: c.spec.Compiler,
			Arch:     c.spec.Arch,
		}, c.reason)
	}
	return nil
}

// checkDecided reports the constraints a decided node spec fails.
func checkDecided(n *nodeView, spec *domain.Spec) *conflict {
	for _, c := range n.constraints {
		if !domain.NodeSatisfies(spec, c.spec) {
			return newConflict(c.reason)
		}
	}
	return nil
}

// checkConflicts evaluates the conflict rules of a freshly decided package.
// Rules that mention other packages only fire once those are decided.
func (s *solver) checkConflicts(v *view, a assignment, n *nodeView, spec *domain.Spec) *conflict {
	for _, rule := range n.pkg.Conflicts {
		if !v.holds(a, n.name, spec, rule.When) {
			continue
		}
		if conflictMatches(a, n.name, spec, rule.Spec) {
			return newConflict(conflictReason(n.pkg.Name, rule))
		}
	}
	return nil
}

func conflictMatches(a assignment, name string, spec, rule *domain.Spec) bool {
	target := spec
	if rule.Name != "" && rule.Name != name {
		if target = a.decided(rule.Name); target == nil {
			return false
		}
	}
	if !domain.NodeSatisfies(target, nodePart(rule)) {
		return false
	}
	for _, e := range rule.Dependencies {
		dep := a.decided(e.Spec.Name)
		if dep == nil || !domain.NodeSatisfies(dep, nodePart(e.Spec)) {
			return false
		}
	}
	return true
}

// deferredRule is a dependency rule whose condition names other packages.
type deferredRule struct {
	name string
	spec *domain.Spec
	rule domain.DependencyRule
}

// holds evaluates a rule condition on the decided node name. The node part
// is checked against spec. Each ^dependency must be decided, reachable from
// name over the edges derived so far, and meet its constraint; a virtual is
// met through its chosen provider.
func (v *view) holds(a assignment, name string, spec, when *domain.Spec) bool {
	if when == nil {
		return true
	}
	if !domain.NodeSatisfies(spec, nodePart(when)) {
		return false
	}
	if len(when.Dependencies) == 0 {
		return true
	}
	reach := v.reachable(a, name)
	for _, e := range when.Dependencies {
		if !reach[e.Spec.Name] || !dependencyHolds(a, e.Spec) {
			return false
		}
	}
	return true
}

func dependencyHolds(a assignment, c *domain.Spec) bool {
	target := a.decided(c.Name)
	if target == nil {
		return false
	}
	ch := a[c.Name]
	if ch.provider == "" {
		return domain.NodeSatisfies(target, nodePart(c))
	}
	if ch.rule == nil || !ch.rule.Virtual.Versions.Subset(c.Versions) {
		return false
	}
	anon := nodePart(c)
	anon.Name = ""
	anon.Versions = nil
	return domain.NodeSatisfies(target, anon)
}

// reachable returns the names below name, following virtuals to their
// chosen providers.
func (v *view) reachable(a assignment, name string) map[string]bool {
	seen := map[string]bool{}
	stack := []string{name}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		var next []string
		if ch := a[cur]; ch != nil && ch.provider != "" {
			next = append(next, ch.provider)
		}
		if n := v.nodes[cur]; n != nil {
			for _, e := range n.edges {
				next = append(next, e.to)
			}
		}
		for _, to := range next {
			if !seen[to] {
				seen[to] = true
				stack = append(stack, to)
			}
		}
	}
	return seen
}

// checkOpen checks that an undecided node still has at least one candidate.
func (s *solver) checkOpen(v *view, a assignment, n *nodeView) (*conflict, error) {
	pkg, virtual, err := s.resolve(n.name)
	if err != nil {
		return nil, err
	}
	if virtual {
		n.virtual = true
		for range s.providerChoices(v, a, n) {
			return nil, nil
		}
		return newConflict(n.reasons()...), nil
	}
	n.pkg = pkg

	if _, c := variantConstraints(pkg, n); c != nil {
		return c, nil
	}
	if len(versionCandidates(pkg, n)) == 0 {
		var reasons []string
		for _, c := range n.constraints {
			if !c.spec.Versions.IsAny() {
				reasons = append(reasons, c.reason)
			}
		}
		if len(reasons) == 0 {
			reasons = append(reasons, pkg.Name+": no versions declared")
		}
		return newConflict(reasons...), nil
	}
	if len(s.compilerCandidates(a, v, n)) == 0 {
		var reasons []string
		for _, c := range n.constraints {
			if !c.spec.Compiler.IsZero() {
				reasons = append(reasons, c.reason)
			}
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "config: no compilers configured")
		}
		return newConflict(reasons...), nil
	}
	for i, c := range n.constraints {
		for _, o := range n.constraints[i+1:] {
			if !c.spec.Arch.Intersects(o.spec.Arch) {
				return newConflict(c.reason, o.reason), nil
			}
		}
	}
	return nil, nil
}

// boundValue is a constrained variant value converted to the declared kind.
type boundValue struct {
	value  domain.VariantValue
	reason string
}

// variantConstraints groups the variant values constrained on n by name.
// Undeclared variants, disallowed values and disagreeing values are conflicts.
func variantConstraints(pkg *domain.Package, n *nodeView) (map[string][]boundValue, *conflict) {
	out := make(map[string][]boundValue)
	for _, c := range n.constraints {
		for _, name := range slices.Sorted(maps.Keys(c.spec.Variants)) {
			def, ok := pkg.Variant(name)
			if !ok {
				return nil, newConflict(c.reason)
			}
			val, err := def.Coerce(c.spec.Variants[name])
			if err != nil {
				return nil, newConflict(c.reason)
			}
			for _, prev := range out[name] {
				if !prev.value.Compatible(val) {
					return nil, newConflict(prev.reason, c.reason)
				}
			}
			out[name] = append(out[name], boundValue{value: val, reason: c.reason})
		}
	}
	return out, nil
}
