package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// CompilerSpec names a compiler and the versions acceptable for it.
type CompilerSpec struct {
	Name     string
	Versions VersionList
}

// IsZero reports whether no compiler is named.
func (c CompilerSpec) IsZero() bool {
	return c.Name == ""
}

// String returns "name" or "name@versions".
func (c CompilerSpec) String() string {
	if c.Versions.IsAny() {
		return c.Name
	}
	if v, ok := c.Versions.Concrete(); ok {
		return c.Name + "@" + v.String()
	}
	return c.Name + "@" + c.Versions.String()
}

// Satisfies reports whether c meets the constraint o.
func (c CompilerSpec) Satisfies(o CompilerSpec) bool {
	if o.IsZero() {
		return true
	}
	if c.Name != o.Name {
		return false
	}
	return versionsSatisfy(c.Versions, o.Versions)
}

// Intersects reports whether some compiler satisfies both c and o.
func (c CompilerSpec) Intersects(o CompilerSpec) bool {
	if c.IsZero() || o.IsZero() {
		return true
	}
	return c.Name == o.Name && c.Versions.Intersects(o.Versions)
}

// Arch is the platform, operating system and microarchitecture target a spec
// is built for. Empty fields are unconstrained.
type Arch struct {
	Platform string
	OS       string
	Target   string
}

// ParseArch parses "platform-os-target".
func ParseArch(s string) (Arch, error) {
	first := strings.Index(s, "-")
	last := strings.LastIndex(s, "-")
	if first <= 0 || last == first || last == len(s)-1 {
		return Arch{}, zerr.With(zerr.Wrap(ErrInvalidSpec, "arch must be platform-os-target"), "arch", s)
	}
	return Arch{Platform: s[:first], OS: s[first+1 : last], Target: s[last+1:]}, nil
}

// IsZero reports whether no arch field is set.
func (a Arch) IsZero() bool {
	return a == Arch{}
}

// Complete reports whether every arch field is set.
func (a Arch) Complete() bool {
	return a.Platform != "" && a.OS != "" && a.Target != ""
}

// String returns "platform-os-target", using "*" for unset fields.
func (a Arch) String() string {
	return orStar(a.Platform) + "-" + orStar(a.OS) + "-" + orStar(a.Target)
}

// Satisfies reports whether every field set in o equals the field in a.
func (a Arch) Satisfies(o Arch) bool {
	return fieldSatisfies(a.Platform, o.Platform) &&
		fieldSatisfies(a.OS, o.OS) &&
		fieldSatisfies(a.Target, o.Target)
}

// Intersects reports whether a and o agree on every field both set.
func (a Arch) Intersects(o Arch) bool {
	return fieldIntersects(a.Platform, o.Platform) &&
		fieldIntersects(a.OS, o.OS) &&
		fieldIntersects(a.Target, o.Target)
}

// Merge fills the unset fields of a from o.
func (a Arch) Merge(o Arch) Arch {
	if a.Platform == "" {
		a.Platform = o.Platform
	}
	if a.OS == "" {
		a.OS = o.OS
	}
	if a.Target == "" {
		a.Target = o.Target
	}
	return a
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

func fieldSatisfies(have, want string) bool {
	return want == "" || have == want
}

func fieldIntersects(a, b string) bool {
	return a == "" || b == "" || a == b
}

// Compiler is a compiler available on the host.
type Compiler struct {
	Name    string
	Version Version
	CC      string
	CXX     string
	FC      string
}

// Spec returns the concrete compiler spec for c.
func (c Compiler) Spec() CompilerSpec {
	return CompilerSpec{Name: c.Name, Versions: ExactVersion(c.Version)}
}
