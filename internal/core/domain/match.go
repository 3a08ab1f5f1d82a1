package domain

import (
	"errors"
	"slices"

	"go.trai.ch/zerr"
)

// PackageSource resolves package definitions by name.
type PackageSource interface {
	Get(name string) (*Package, error)
}

// Satisfies reports whether s meets every requirement stated by c, including
// c's ^dependency constraints, which must each be met by some node below s.
// A dependency constraint naming a virtual is met by the node on an edge
// recorded as providing it.
func Satisfies(s, c *Spec) bool {
	if !NodeSatisfies(s, c) {
		return false
	}
	if len(c.Dependencies) == 0 {
		return true
	}
	closure := s.Traverse()[1:]
	for _, ce := range c.Dependencies {
		if !slices.ContainsFunc(closure, func(n *Spec) bool { return dependencySatisfies(s, n, ce.Spec) }) {
			return false
		}
	}
	return true
}

func dependencySatisfies(root, n, c *Spec) bool {
	if n.Name == c.Name {
		return Satisfies(n, c)
	}
	if !providesVirtual(root, n, c.Name) {
		return false
	}
	anon := *c
	anon.Name = ""
	anon.Versions = nil
	return Satisfies(n, &anon)
}

func providesVirtual(root, n *Spec, virtual string) bool {
	for _, p := range root.Traverse() {
		for _, e := range p.Dependencies {
			if e.Spec == n && slices.Contains(e.Virtuals, virtual) {
				return true
			}
		}
	}
	return false
}

// NodeSatisfies compares only the node attributes of s and c, ignoring
// dependencies.
func NodeSatisfies(s, c *Spec) bool {
	if c.Name != "" && c.Name != s.Name {
		return false
	}
	if !versionsSatisfy(s.Versions, c.Versions) {
		return false
	}
	for name, cv := range c.Variants {
		sv, ok := s.Variants[name]
		if !ok || !sv.Satisfies(cv) {
			return false
		}
	}
	return s.Compiler.Satisfies(c.Compiler) && s.Arch.Satisfies(c.Arch)
}

// versionsSatisfy reports whether the versions allowed by have all lie in want.
func versionsSatisfy(have, want VersionList) bool {
	if want.IsAny() {
		return true
	}
	if v, ok := have.Concrete(); ok {
		return want.Contains(v)
	}
	return have.Subset(want)
}

// Intersects reports whether some concrete spec could satisfy both a and b.
func Intersects(a, b *Spec) bool {
	if a.Name != "" && b.Name != "" && a.Name != b.Name {
		return false
	}
	if !a.Versions.Intersects(b.Versions) {
		return false
	}
	for name, av := range a.Variants {
		if bv, ok := b.Variants[name]; ok && !av.Compatible(bv) {
			return false
		}
	}
	if !a.Compiler.Intersects(b.Compiler) || !a.Arch.Intersects(b.Arch) {
		return false
	}
	for _, ae := range a.Dependencies {
		for _, be := range b.Dependencies {
			if ae.Spec.Name == be.Spec.Name && !Intersects(ae.Spec, be.Spec) {
				return false
			}
		}
	}
	return true
}

// Holds evaluates a when-condition against a concrete node and the
// dependencies below it. A nil condition always holds.
func Holds(when *Spec, node *Spec) bool {
	if when == nil {
		return true
	}
	return Satisfies(node, when)
}

// Canonicalize checks that every variant set on s and on its ^constraints is
// declared by the package, and converts values to the declared kind.
// Constraints naming packages the source does not know are left untouched,
// since they may name virtuals.
func Canonicalize(s *Spec, src PackageSource) (*Spec, error) {
	out := s.Clone()
	for i, n := range out.Traverse() {
		if n.Name == "" {
			continue
		}
		pkg, err := src.Get(n.Name)
		if err != nil {
			if i > 0 && errors.Is(err, ErrUnknownPackage) {
				continue
			}
			return nil, err
		}
		for name, v := range n.Variants {
			def, ok := pkg.Variant(name)
			if !ok {
				return nil, zerr.With(zerr.With(zerr.Wrap(ErrUnknownVariant, name), "package", pkg.Name), "variant", name)
			}
			cv, err := def.Coerce(v)
			if err != nil {
				return nil, zerr.With(err, "package", pkg.Name)
			}
			n.Variants[name] = cv
		}
	}
	return out, nil
}

// Normalize canonicalizes s and fills every variant that is not set
// explicitly with the package default. Versions and toolchain stay open.
func Normalize(s *Spec, src PackageSource) (*Spec, error) {
	out, err := Canonicalize(s, src)
	if err != nil {
		return nil, err
	}
	for _, n := range out.Traverse() {
		if n.Name == "" {
			continue
		}
		pkg, err := src.Get(n.Name)
		if err != nil {
			continue
		}
		for _, def := range pkg.Variants {
			if _, ok := n.Variants[def.Name]; ok {
				continue
			}
			if n.Variants == nil {
				n.Variants = make(map[string]VariantValue)
			}
			n.Variants[def.Name] = def.Default
		}
	}
	return out, nil
}
