package repo

import (
	"encoding/hex"
	"errors"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var buildSystems = []string{
	domain.BuildSystemAutotools,
	domain.BuildSystemCMake,
	domain.BuildSystemMakefile,
	domain.BuildSystemGeneric,
}

// toPackage validates a decoded definition and converts it to a domain.Package.
func toPackage(f *PackageFile, dir string) (*domain.Package, error) {
	invalid := func(reason string) error {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, reason), "package", f.Name), "detail", dir)
	}

	if f.Name == "" {
		return nil, invalid("package name is missing")
	}

	pkg := &domain.Package{
		Name:        f.Name,
		Description: strings.TrimSpace(f.Description),
		Homepage:    f.Homepage,
		URL:         f.URL,
		BuildSystem: f.BuildSystem,
		Dir:         dir,
	}
	if pkg.BuildSystem == "" {
		pkg.BuildSystem = domain.BuildSystemGeneric
	}
	if !slices.Contains(buildSystems, pkg.BuildSystem) {
		return nil, invalid("unknown build system " + pkg.BuildSystem)
	}

	if len(f.Versions) == 0 {
		return nil, invalid("no versions declared")
	}
	for _, vd := range f.Versions {
		decl, err := toVersionDecl(vd)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		if _, dup := pkg.VersionDecl(decl.Version); dup {
			return nil, invalid("version declared twice: " + decl.Version.String())
		}
		pkg.Versions = append(pkg.Versions, decl)
	}

	for _, vd := range f.Variants {
		def, err := toVariantDef(vd)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		if _, dup := pkg.Variant(def.Name); dup {
			return nil, invalid("variant declared twice: " + def.Name)
		}
		pkg.Variants = append(pkg.Variants, def)
	}

	for _, d := range f.DependsOn {
		spec, err := parseNamed(d.Spec)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		when, err := parseWhen(d.When)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		kinds := domain.DefaultDepKinds
		if len(d.Type) > 0 {
			var ok bool
			if kinds, ok = domain.ParseDepKinds(d.Type); !ok {
				return nil, invalid("unknown dependency type " + strings.Join(d.Type, ","))
			}
		}
		if spec.Name == f.Name {
			return nil, invalid("package depends on itself")
		}
		pkg.Dependencies = append(pkg.Dependencies, domain.DependencyRule{Spec: spec, When: when, Kinds: kinds})
	}

	for _, c := range f.Conflicts {
		spec, err := parseSpec(c.Spec)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		when, err := parseWhen(c.When)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		pkg.Conflicts = append(pkg.Conflicts, domain.ConflictRule{Spec: spec, When: when, Message: c.Msg})
	}

	for _, p := range f.Provides {
		virtual, err := parseNamed(p.Virtual)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		when, err := parseWhen(p.When)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		if when != nil && len(when.Dependencies) > 0 {
			return nil, invalid("provides condition cannot constrain dependencies: " + p.When)
		}
		pkg.Provides = append(pkg.Provides, domain.ProvidesRule{Virtual: virtual, When: when})
	}

	for _, p := range f.Patches {
		if p.File == "" {
			return nil, invalid("patch without file")
		}
		when, err := parseWhen(p.When)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		level := 1
		if p.Level != nil {
			level = *p.Level
		}
		pkg.Patches = append(pkg.Patches, domain.PatchRule{File: p.File, Level: level, When: when})
	}

	for _, a := range f.ConfigureArgs {
		when, err := parseWhen(a.When)
		if err != nil {
			return nil, malformed(err, f.Name, dir)
		}
		pkg.ConfigureArgs = append(pkg.ConfigureArgs, domain.ArgRule{Args: a.Args, When: when})
	}

	for _, phase := range domain.AllPhases {
		if cmds, ok := f.Phases[string(phase)]; ok {
			pkg.Phases = append(pkg.Phases, domain.PhaseOverride{Phase: phase, Commands: cmds})
		}
	}
	if len(pkg.Phases) != len(f.Phases) {
		return nil, invalid("phases must be one of fetch, patch, configure, build, install")
	}

	return pkg, nil
}

func toVersionDecl(vd VersionDTO) (domain.VersionDecl, error) {
	v, err := domain.ParseVersion(vd.Version)
	if err != nil {
		return domain.VersionDecl{}, err
	}
	sum := firstNonEmpty(vd.Checksum, vd.SHA256, vd.MD5)
	if sum != "" {
		if _, err := hex.DecodeString(sum); err != nil || (len(sum) != 32 && len(sum) != 64) {
			return domain.VersionDecl{}, zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, "checksum must be md5 or sha256 hex"), "version", vd.Version)
		}
	}
	if vd.Branch != "" && vd.Git == "" {
		return domain.VersionDecl{}, zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, "branch requires git"), "version", vd.Version)
	}
	return domain.VersionDecl{
		Version:    v,
		Checksum:   strings.ToLower(sum),
		URL:        vd.URL,
		Git:        vd.Git,
		Branch:     vd.Branch,
		Preferred:  vd.Preferred,
		Deprecated: vd.Deprecated,
	}, nil
}

func toVariantDef(vd VariantDTO) (domain.VariantDef, error) {
	invalid := func(reason string) error {
		return zerr.With(zerr.Wrap(domain.ErrInvalidVariantValue, reason), "variant", vd.Name)
	}
	if vd.Name == "" {
		return domain.VariantDef{}, invalid("variant name is missing")
	}

	var def domain.VariantValue
	n := vd.Default
	switch {
	case n.Kind == 0:
		switch {
		case vd.Multi && len(vd.Values) > 0:
			def = domain.MultiVariant(vd.Values[0])
		case len(vd.Values) > 0:
			def = domain.SingleVariant(vd.Values[0])
		case vd.Multi:
			return domain.VariantDef{}, invalid("multi-valued variant needs values")
		default:
			def = domain.BoolVariant(false)
		}
	case n.Kind == yaml.SequenceNode:
		var values []string
		if err := n.Decode(&values); err != nil {
			return domain.VariantDef{}, invalid(err.Error())
		}
		def = domain.MultiVariant(values...)
	case n.Kind == yaml.ScalarNode && n.Tag == "!!bool":
		var on bool
		if err := n.Decode(&on); err != nil {
			return domain.VariantDef{}, invalid(err.Error())
		}
		def = domain.BoolVariant(on)
	case n.Kind == yaml.ScalarNode:
		if vd.Multi {
			def = domain.MultiVariant(strings.Split(n.Value, ",")...)
		} else {
			def = domain.SingleVariant(n.Value)
		}
	default:
		return domain.VariantDef{}, invalid("default must be a bool, a string or a list")
	}

	if def.Kind == domain.VariantBool && len(vd.Values) > 0 {
		return domain.VariantDef{}, invalid("boolean variant cannot list values")
	}

	out := domain.VariantDef{
		Name:        vd.Name,
		Default:     def,
		Values:      vd.Values,
		Multi:       def.Kind == domain.VariantMulti,
		Description: vd.Description,
	}
	if _, err := out.Coerce(def); err != nil {
		return domain.VariantDef{}, err
	}
	return out, nil
}

func parseSpec(text string) (*domain.Spec, error) {
	return domain.ParseSpec(text)
}

// parseNamed parses a spec that must name a package.
func parseNamed(text string) (*domain.Spec, error) {
	s, err := domain.ParseSpec(text)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidSpec, "spec must name a package"), "spec", text)
	}
	return s, nil
}

// parseWhen parses a condition; an empty condition always holds.
func parseWhen(text string) (*domain.Spec, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return domain.ParseCondition(text)
}

// malformed files a failure found inside a definition under
// ErrAmbiguousRegistry, carrying over the metadata of the inner error.
func malformed(err error, name, dir string) error {
	if errors.Is(err, domain.ErrAmbiguousRegistry) {
		return zerr.With(err, "package", name)
	}
	out := zerr.Wrap(domain.ErrAmbiguousRegistry, err.Error())
	var inner *zerr.Error
	if errors.As(err, &inner) {
		meta := inner.Metadata()
		for _, k := range slices.Sorted(maps.Keys(meta)) {
			out = zerr.With(out, k, meta[k])
		}
	}
	return zerr.With(zerr.With(out, "package", name), "detail", dir)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
