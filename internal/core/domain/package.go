package domain

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Build systems with built-in phase commands.
const (
	BuildSystemAutotools = "autotools"
	BuildSystemCMake     = "cmake"
	BuildSystemMakefile  = "makefile"
	BuildSystemGeneric   = "generic"
)

// Package is a declarative package definition loaded from a repository.
type Package struct {
	Name          string
	Description   string
	Homepage      string
	URL           string
	BuildSystem   string
	Versions      []VersionDecl
	Variants      []VariantDef
	Dependencies  []DependencyRule
	Conflicts     []ConflictRule
	Provides      []ProvidesRule
	Patches       []PatchRule
	ConfigureArgs []ArgRule
	Phases        []PhaseOverride
	// Dir is the directory the definition was loaded from; patch files are
	// resolved relative to it.
	Dir string
}

// VersionDecl declares one known version of a package and where to get it.
type VersionDecl struct {
	Version    Version
	Checksum   string
	URL        string
	Git        string
	Branch     string
	Preferred  bool
	Deprecated bool
}

// VariantDef declares a variant, its default and its allowed values.
// Boolean variants have no Values.
type VariantDef struct {
	Name        string
	Default     VariantValue
	Values      []string
	Multi       bool
	Description string
}

// DependencyRule adds a dependency when its condition holds on the depender.
type DependencyRule struct {
	Spec  *Spec
	When  *Spec
	Kinds DepKind
}

// ConflictRule forbids the depender from matching Spec when When holds.
type ConflictRule struct {
	Spec    *Spec
	When    *Spec
	Message string
}

// ProvidesRule declares that the package implements a virtual package when
// its condition holds.
type ProvidesRule struct {
	Virtual *Spec
	When    *Spec
}

// PatchRule applies a patch file when its condition holds.
type PatchRule struct {
	File  string
	Level int
	When  *Spec
}

// ArgRule contributes configure arguments when its condition holds.
type ArgRule struct {
	Args []string
	When *Spec
}

// PhaseOverride replaces the commands of one build phase.
type PhaseOverride struct {
	Phase    Phase
	Commands []string
}

// Variant returns the definition of the named variant.
func (p *Package) Variant(name string) (VariantDef, bool) {
	for _, v := range p.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return VariantDef{}, false
}

// KnownVersions returns the declared versions, newest first.
func (p *Package) KnownVersions() []Version {
	out := make([]Version, len(p.Versions))
	for i, d := range p.Versions {
		out[i] = d.Version
	}
	slices.SortStableFunc(out, func(a, b Version) int { return b.Compare(a) })
	return out
}

// VersionDecl returns the declaration of v.
func (p *Package) VersionDecl(v Version) (VersionDecl, bool) {
	for _, d := range p.Versions {
		if d.Version.Equal(v) {
			return d, true
		}
	}
	return VersionDecl{}, false
}

// Defaults returns the default value of every declared variant.
func (p *Package) Defaults() map[string]VariantValue {
	out := make(map[string]VariantValue, len(p.Variants))
	for _, v := range p.Variants {
		out[v.Name] = v.Default
	}
	return out
}

// ProvidedVirtuals returns the virtual names the package can provide under
// some condition.
func (p *Package) ProvidedVirtuals() []string {
	var out []string
	for _, r := range p.Provides {
		if !slices.Contains(out, r.Virtual.Name) {
			out = append(out, r.Virtual.Name)
		}
	}
	return out
}

// SourceURL returns the download URL for v: the per-version URL if declared,
// otherwise the package URL template with {version} substituted.
func (p *Package) SourceURL(v Version) string {
	if d, ok := p.VersionDecl(v); ok && d.URL != "" {
		return d.URL
	}
	return strings.ReplaceAll(p.URL, "{version}", v.String())
}

// Coerce converts a parsed value to the kind this variant declares and
// checks it against the allowed values.
func (d VariantDef) Coerce(v VariantValue) (VariantValue, error) {
	switch d.Default.Kind {
	case VariantBool:
		if v.Kind == VariantBool {
			return v, nil
		}
		if len(v.Values) == 1 && (v.Values[0] == "true" || v.Values[0] == "false") {
			return BoolVariant(v.Values[0] == "true"), nil
		}
		return VariantValue{}, d.invalid(v)
	case VariantMulti:
		if v.Kind == VariantBool {
			return VariantValue{}, d.invalid(v)
		}
		v = MultiVariant(v.Values...)
	default:
		if v.Kind != VariantSingle {
			return VariantValue{}, d.invalid(v)
		}
	}
	if len(d.Values) > 0 {
		for _, val := range v.Values {
			if !slices.Contains(d.Values, val) {
				return VariantValue{}, d.invalid(v)
			}
		}
	}
	return v, nil
}

func (d VariantDef) invalid(v VariantValue) error {
	return zerr.With(zerr.With(zerr.Wrap(ErrInvalidVariantValue, "value not allowed"), "variant", d.Name), "value", strings.Join(v.Values, ","))
}

// Phase names a step of a package build.
type Phase string

// Build phases in execution order.
const (
	PhaseFetch     Phase = "fetch"
	PhasePatch     Phase = "patch"
	PhaseConfigure Phase = "configure"
	PhaseBuild     Phase = "build"
	PhaseInstall   Phase = "install"
)

// AllPhases lists every phase in execution order.
var AllPhases = []Phase{PhaseFetch, PhasePatch, PhaseConfigure, PhaseBuild, PhaseInstall}
