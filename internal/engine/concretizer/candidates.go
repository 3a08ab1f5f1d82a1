package concretizer

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/sprig/internal/core/domain"
)

// maxVariantCombos bounds full enumeration of unconstrained variants. Above
// it only assignments with at most maxVariantDeviations non-default values
// are tried.
const (
	maxVariantCombos     = 256
	maxVariantDeviations = 2
)

// candidates yields the decisions to try for the open node name, best first.
func (s *solver) candidates(v *view, a assignment, name string) iter.Seq[map[string]*choice] {
	n := v.nodes[name]
	if n.virtual {
		return func(yield func(map[string]*choice) bool) {
			for ch := range s.providerChoices(v, a, n) {
				if !yield(map[string]*choice{name: ch}) {
					return
				}
			}
		}
	}
	return func(yield func(map[string]*choice) bool) {
		if s.policy.Reuse {
			for updates := range s.reuseChoices(a, n) {
				if !yield(updates) {
					return
				}
			}
		}
		for ch := range s.freshChoices(v, a, n) {
			if !yield(map[string]*choice{name: ch}) {
				return
			}
		}
	}
}

// providerChoices yields (provider, provides rule) pairs for a virtual node.
// Providers the request already mentions come first, then the configured
// preference order, then names lexically.
func (s *solver) providerChoices(v *view, a assignment, n *nodeView) iter.Seq[*choice] {
	return func(yield func(*choice) bool) {
		providers := slices.Clone(s.providerIndex[n.name])
		prefs := s.policy.Providers[n.name]
		rank := func(p string) (int, int) {
			mentioned := 1
			if pv, ok := v.nodes[p]; ok && (pv.required || len(pv.constraints) > 0) {
				mentioned = 0
			}
			pref := slices.Index(prefs, p)
			if pref < 0 {
				pref = len(prefs)
			}
			return mentioned, pref
		}
		slices.SortStableFunc(providers, func(x, y string) int {
			xm, xp := rank(x)
			ym, yp := rank(y)
			return cmp.Or(cmp.Compare(xm, ym), cmp.Compare(xp, yp), strings.Compare(x, y))
		})

		for _, p := range providers {
			pkg, _, err := s.resolve(p)
			if err != nil || pkg == nil {
				continue
			}
			decided := a.decided(p)
			for i := range pkg.Provides {
				rule := &pkg.Provides[i]
				if rule.Virtual.Name != n.name {
					continue
				}
				if decided != nil && !domain.Holds(rule.When, decided) {
					continue
				}
				compatible := true
				for _, c := range n.constraints {
					if !c.spec.Versions.Intersects(rule.Virtual.Versions) {
						compatible = false
						break
					}
				}
				if compatible && !yield(&choice{provider: p, rule: rule}) {
					return
				}
			}
		}
	}
}

// reuseChoices yields installed records of the node's package that satisfy
// its constraints, newest version first and then by hash. Each choice pins
// the record's whole dependency closure.
func (s *solver) reuseChoices(a assignment, n *nodeView) iter.Seq[map[string]*choice] {
	return func(yield func(map[string]*choice) bool) {
		for _, rec := range s.installed[n.name] {
			if checkDecided(n, rec.Spec) != nil {
				continue
			}
			if updates, ok := s.pin(a, rec.Spec); ok && !yield(updates) {
				return
			}
		}
	}
}

// pin builds the decisions that reuse root and everything below it. It fails
// when any of those names is already decided differently.
func (s *solver) pin(a assignment, root *domain.Spec) (map[string]*choice, bool) {
	updates := make(map[string]*choice)
	for _, node := range root.Traverse() {
		if prev := a[node.Name]; prev != nil {
			if !prev.reused || prev.spec.Hash != node.Hash {
				return nil, false
			}
		} else {
			updates[node.Name] = &choice{spec: node, reused: true}
		}
		for _, e := range node.Dependencies {
			for _, virt := range e.Virtuals {
				if prev := a[virt]; prev != nil {
					if prev.provider != e.Spec.Name {
						return nil, false
					}
					continue
				}
				if prev := updates[virt]; prev != nil && prev.provider != e.Spec.Name {
					return nil, false
				}
				updates[virt] = &choice{provider: e.Spec.Name, rule: s.heldRule(e.Spec, virt)}
			}
		}
	}
	return updates, true
}

// heldRule finds the provides rule through which an installed spec provides virtual.
func (s *solver) heldRule(spec *domain.Spec, virtual string) *domain.ProvidesRule {
	pkg, _, err := s.resolve(spec.Name)
	if err != nil || pkg == nil {
		return nil
	}
	for i := range pkg.Provides {
		r := &pkg.Provides[i]
		if r.Virtual.Name == virtual && domain.Holds(r.When, spec) {
			return r
		}
	}
	return nil
}

// freshChoices yields new node specs: versions first, then toolchains, then
// variant assignments.
func (s *solver) freshChoices(v *view, a assignment, n *nodeView) iter.Seq[*choice] {
	return func(yield func(*choice) bool) {
		if n.pkg == nil {
			return
		}
		bound, c := variantConstraints(n.pkg, n)
		if c != nil {
			return
		}
		versions := versionCandidates(n.pkg, n)
		compilers := s.compilerCandidates(a, v, n)
		arch := s.archFor(a, v, n)
		variants := s.variantCandidates(n.pkg, bound)

		for _, ver := range versions {
			for _, comp := range compilers {
				for _, vs := range variants {
					spec := &domain.Spec{
						Name:     n.name,
						Versions: domain.ExactVersion(ver),
						Variants: maps.Clone(vs),
						Compiler: comp.Spec(),
						Arch:     arch,
					}
					if !yield(&choice{spec: spec}) {
						return
					}
				}
			}
		}
	}
}

// versionCandidates lists the declared versions allowed by every constraint:
// preferred versions, then releases newest first, then branch versions,
// then deprecated ones.
func versionCandidates(pkg *domain.Package, n *nodeView) []domain.Version {
	type ranked struct {
		tier int
		v    domain.Version
	}
	var out []ranked
	for _, d := range pkg.Versions {
		allowed := true
		for _, c := range n.constraints {
			if !c.spec.Versions.Contains(d.Version) {
				allowed = false
				break
			}
		}
		if !allowed {
			continue
		}
		tier := 1
		switch {
		case d.Preferred:
			tier = 0
		case d.Deprecated:
			tier = 3
		case d.Version.IsDevelop():
			tier = 2
		}
		out = append(out, ranked{tier: tier, v: d.Version})
	}
	slices.SortStableFunc(out, func(x, y ranked) int {
		return cmp.Or(cmp.Compare(x.tier, y.tier), y.v.Compare(x.v))
	})
	versions := make([]domain.Version, len(out))
	for i, r := range out {
		versions[i] = r.v
	}
	return versions
}

// compilerCandidates lists configured compilers meeting every constraint,
// newest first. Under the one-toolchain policy the compiler of the node that
// introduced n is tried first.
func (s *solver) compilerCandidates(a assignment, v *view, n *nodeView) []domain.Compiler {
	var out []domain.Compiler
	for _, comp := range s.policy.Compilers {
		ok := true
		for _, c := range n.constraints {
			if !comp.Spec().Satisfies(c.spec.Compiler) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, comp)
		}
	}
	slices.SortStableFunc(out, func(x, y domain.Compiler) int {
		return cmp.Or(y.Version.Compare(x.Version), strings.Compare(x.Name, y.Name))
	})
	if s.policy.OneToolchain {
		if parent := v.parentSpec(a, n); parent != nil {
			i := slices.IndexFunc(out, func(c domain.Compiler) bool {
				return c.Spec().Satisfies(parent.Compiler)
			})
			if i > 0 {
				inherited := out[i]
				out = slices.Delete(out, i, i+1)
				out = slices.Insert(out, 0, inherited)
			}
		}
	}
	return out
}

// archFor merges the constrained arch fields, then the introducing node's
// arch, then the configured default.
func (s *solver) archFor(a assignment, v *view, n *nodeView) domain.Arch {
	var arch domain.Arch
	for _, c := range n.constraints {
		arch = arch.Merge(c.spec.Arch)
	}
	if parent := v.parentSpec(a, n); parent != nil {
		arch = arch.Merge(parent.Arch)
	}
	return arch.Merge(s.policy.DefaultArch)
}

// parentSpec returns the decided spec of the package that introduced n,
// looking through virtual nodes.
func (v *view) parentSpec(a assignment, n *nodeView) *domain.Spec {
	for p := n.parent; p != ""; {
		ch := a[p]
		if ch == nil {
			return nil
		}
		if ch.provider == "" {
			return ch.spec
		}
		p = v.nodes[p].parent
	}
	return nil
}

// variantCandidates enumerates full variant assignments ordered by: matches
// an installed configuration, fewest deviations from defaults, lexical.
func (s *solver) variantCandidates(pkg *domain.Package, bound map[string][]boundValue) []map[string]domain.VariantValue {
	options := make([][]domain.VariantValue, len(pkg.Variants))
	total := 1
	for i, def := range pkg.Variants {
		options[i] = variantOptions(def, bound[def.Name])
		total *= len(options[i])
		if total > maxVariantCombos {
			total = maxVariantCombos + 1
		}
	}
	maxDev := len(pkg.Variants)
	if total > maxVariantCombos {
		maxDev = maxVariantDeviations
	}

	type combo struct {
		values     map[string]domain.VariantValue
		deviations int
		installed  bool
		text       string
	}
	var combos []combo
	picks := make([]int, len(pkg.Variants))
	var walk func(i, dev int)
	walk = func(i, dev int) {
		if i == len(pkg.Variants) {
			values := make(map[string]domain.VariantValue, len(picks))
			for j, def := range pkg.Variants {
				values[def.Name] = options[j][picks[j]]
			}
			combos = append(combos, combo{
				values:     values,
				deviations: dev,
				installed:  s.matchesInstalled(pkg.Name, values),
				text:       (&domain.Spec{Variants: values}).NodeString(),
			})
			return
		}
		for k := range options[i] {
			d := dev
			if k > 0 {
				d++
			}
			if d > maxDev {
				break
			}
			picks[i] = k
			walk(i+1, d)
		}
	}
	walk(0, 0)

	slices.SortStableFunc(combos, func(x, y combo) int {
		xi, yi := 1, 1
		if x.installed {
			xi = 0
		}
		if y.installed {
			yi = 0
		}
		return cmp.Or(cmp.Compare(xi, yi), cmp.Compare(x.deviations, y.deviations), strings.Compare(x.text, y.text))
	})
	out := make([]map[string]domain.VariantValue, len(combos))
	for i, c := range combos {
		out[i] = c.values
	}
	return out
}

// variantOptions lists the values to try for one variant, default first.
// A constrained variant has exactly one option.
func variantOptions(def domain.VariantDef, bound []boundValue) []domain.VariantValue {
	if len(bound) > 0 {
		val := bound[0].value
		for _, b := range bound[1:] {
			val = val.Union(b.value)
		}
		return []domain.VariantValue{val}
	}
	opts := []domain.VariantValue{def.Default}
	switch def.Default.Kind {
	case domain.VariantBool:
		opts = append(opts, domain.BoolVariant(!def.Default.Bool()))
	case domain.VariantSingle:
		for _, value := range slices.Sorted(slices.Values(def.Values)) {
			if value != def.Default.Values[0] {
				opts = append(opts, domain.SingleVariant(value))
			}
		}
	}
	return opts
}

func (s *solver) matchesInstalled(name string, values map[string]domain.VariantValue) bool {
	for _, rec := range s.installed[name] {
		same := true
		for k, val := range values {
			if have, ok := rec.Spec.Variants[k]; !ok || !have.Equal(val) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}
