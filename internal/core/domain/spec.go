package domain

import (
	"maps"
	"slices"
	"strings"
)

// DepKind is a bit set describing how a package uses a dependency.
type DepKind uint8

const (
	// DepBuild marks a dependency needed while building.
	DepBuild DepKind = 1 << iota
	// DepLink marks a dependency linked into the installed package.
	DepLink
	// DepRun marks a dependency needed when running the installed package.
	DepRun
)

// DefaultDepKinds is used when a dependency rule declares no kinds.
const DefaultDepKinds = DepBuild | DepLink

var depKindNames = []struct {
	kind DepKind
	name string
}{
	{DepBuild, "build"},
	{DepLink, "link"},
	{DepRun, "run"},
}

// ParseDepKinds converts names like "build" or "run" into a DepKind.
func ParseDepKinds(names []string) (DepKind, bool) {
	var k DepKind
	for _, n := range names {
		found := false
		for _, dk := range depKindNames {
			if dk.name == n {
				k |= dk.kind
				found = true
			}
		}
		if !found {
			return 0, false
		}
	}
	return k, true
}

// Has reports whether k includes any kind in o.
func (k DepKind) Has(o DepKind) bool {
	return k&o != 0
}

// Gates reports whether a dependency of this kind must be installed before
// its dependent starts building.
func (k DepKind) Gates() bool {
	return k.Has(DepBuild | DepLink)
}

// Names returns the kind names in canonical order.
func (k DepKind) Names() []string {
	var out []string
	for _, dk := range depKindNames {
		if k.Has(dk.kind) {
			out = append(out, dk.name)
		}
	}
	return out
}

// String returns the comma separated kind names.
func (k DepKind) String() string {
	return strings.Join(k.Names(), ",")
}

// DependencyEdge connects a spec to one of its dependencies.
type DependencyEdge struct {
	Spec     *Spec
	Kinds    DepKind
	Virtuals []string
}

// Spec describes a package configuration. An abstract spec constrains only
// some attributes; a concrete spec fixes every attribute and carries its
// structural hash.
type Spec struct {
	Name         string
	Versions     VersionList
	Variants     map[string]VariantValue
	Compiler     CompilerSpec
	Arch         Arch
	Dependencies []DependencyEdge
	Hash         string
}

// Concrete reports whether s is fully resolved and hashed.
func (s *Spec) Concrete() bool {
	return s.Hash != ""
}

// Version returns the exact version of s, if it has one.
func (s *Spec) Version() Version {
	v, _ := s.Versions.Concrete()
	return v
}

// ShortHash returns the first seven characters of the hash.
func (s *Spec) ShortHash() string {
	if len(s.Hash) < 7 {
		return s.Hash
	}
	return s.Hash[:7]
}

// Dependency returns the direct dependency named name.
func (s *Spec) Dependency(name string) *Spec {
	for _, e := range s.Dependencies {
		if e.Spec.Name == name {
			return e.Spec
		}
	}
	return nil
}

// Edge returns the direct edge whose target is named name or provides the
// virtual name.
func (s *Spec) Edge(name string) (DependencyEdge, bool) {
	for _, e := range s.Dependencies {
		if e.Spec.Name == name || slices.Contains(e.Virtuals, name) {
			return e, true
		}
	}
	return DependencyEdge{}, false
}

// Traverse returns s and every node reachable from it, each once, in
// depth-first preorder with dependencies visited by name.
func (s *Spec) Traverse() []*Spec {
	var out []*Spec
	seen := make(map[*Spec]bool)
	var visit func(n *Spec)
	visit = func(n *Spec) {
		if seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
		for _, e := range sortedEdges(n.Dependencies) {
			visit(e.Spec)
		}
	}
	visit(s)
	return out
}

// Clone deep-copies s. Nodes shared within the DAG stay shared in the copy.
func (s *Spec) Clone() *Spec {
	return s.clone(make(map[*Spec]*Spec))
}

func (s *Spec) clone(seen map[*Spec]*Spec) *Spec {
	if c, ok := seen[s]; ok {
		return c
	}
	c := &Spec{
		Name:     s.Name,
		Versions: slices.Clone(s.Versions),
		Variants: maps.Clone(s.Variants),
		Compiler: CompilerSpec{Name: s.Compiler.Name, Versions: slices.Clone(s.Compiler.Versions)},
		Arch:     s.Arch,
		Hash:     s.Hash,
	}
	seen[s] = c
	for _, e := range s.Dependencies {
		c.Dependencies = append(c.Dependencies, DependencyEdge{
			Spec:     e.Spec.clone(seen),
			Kinds:    e.Kinds,
			Virtuals: slices.Clone(e.Virtuals),
		})
	}
	return c
}

// NodeString formats the attributes of s without its dependencies.
func (s *Spec) NodeString() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if !s.Versions.IsAny() {
		b.WriteByte('@')
		if v, ok := s.Versions.Concrete(); ok && s.Concrete() {
			b.WriteString(v.String())
		} else {
			b.WriteString(s.Versions.String())
		}
	}
	for _, name := range sortedVariantNames(s.Variants) {
		v := s.Variants[name]
		if v.Kind != VariantBool {
			b.WriteByte(' ')
		}
		b.WriteString(v.Format(name))
	}
	if !s.Compiler.IsZero() {
		b.WriteString(" %")
		b.WriteString(s.Compiler.String())
	}
	switch {
	case s.Arch.Complete():
		b.WriteString(" arch=")
		b.WriteString(s.Arch.String())
	case !s.Arch.IsZero():
		for _, kv := range [][2]string{{"platform", s.Arch.Platform}, {"os", s.Arch.OS}, {"target", s.Arch.Target}} {
			if kv[1] != "" {
				b.WriteString(" " + kv[0] + "=" + kv[1])
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// String formats s in spec expression syntax. Abstract dependency
// constraints are appended as ^dep terms; the edges of a concrete spec are not.
func (s *Spec) String() string {
	out := s.NodeString()
	if s.Concrete() {
		return out
	}
	for _, e := range s.Dependencies {
		if out != "" {
			out += " "
		}
		out += "^" + e.Spec.String()
	}
	return out
}

// sortedEdges returns edges ordered by dependency name.
func sortedEdges(edges []DependencyEdge) []DependencyEdge {
	out := slices.Clone(edges)
	slices.SortStableFunc(out, func(a, b DependencyEdge) int {
		return strings.Compare(a.Spec.Name, b.Spec.Name)
	})
	return out
}
