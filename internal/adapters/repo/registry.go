// Package repo implements the package registry over directories of
// package.yaml and package.hcl definitions.
package repo

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// File names recognised inside a package directory.
const (
	PackagesDirName = "packages"
	YAMLFileName    = "package.yaml"
	HCLFileName     = "package.hcl"
)

// Registry implements ports.Registry. Repositories are searched in order and
// the first one that defines a package wins.
type Registry struct {
	repos []string

	mu    sync.Mutex
	cache map[string]*domain.Package
}

// New creates a registry over the given repository directories.
func New(repos []string) *Registry {
	return &Registry{
		repos: repos,
		cache: make(map[string]*domain.Package),
	}
}

// Get returns the definition of name, loading it on first use.
func (r *Registry) Get(name string) (*domain.Package, error) {
	r.mu.Lock()
	if pkg, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return pkg, nil
	}
	r.mu.Unlock()

	pkg, err := r.load(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}
	r.cache[name] = pkg
	return pkg, nil
}

// AllNames lists every package defined in any repository, sorted.
func (r *Registry) AllNames() ([]string, error) {
	var names []string
	for _, repo := range r.repos {
		entries, err := os.ReadDir(filepath.Join(repo, PackagesDirName))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, err.Error()), "detail", repo)
		}
		for _, e := range entries {
			if e.IsDir() && !slices.Contains(names, e.Name()) {
				names = append(names, e.Name())
			}
		}
	}
	slices.Sort(names)
	return names, nil
}

func (r *Registry) load(name string) (*domain.Package, error) {
	for _, repo := range r.repos {
		dir := filepath.Join(repo, PackagesDirName, name)
		yamlPath := filepath.Join(dir, YAMLFileName)
		hclPath := filepath.Join(dir, HCLFileName)
		hasYAML, hasHCL := exists(yamlPath), exists(hclPath)

		switch {
		case hasYAML && hasHCL:
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, "package defined in both YAML and HCL"), "package", name), "detail", dir)
		case hasYAML:
			f, err := loadYAML(yamlPath)
			return finish(f, err, name, dir)
		case hasHCL:
			f, err := loadHCL(hclPath)
			return finish(f, err, name, dir)
		}
	}
	return nil, zerr.With(zerr.Wrap(domain.ErrUnknownPackage, "no repository defines the package"), "package", name)
}

func finish(f *PackageFile, err error, name, dir string) (*domain.Package, error) {
	if err != nil {
		return nil, zerr.With(err, "package", name)
	}
	if f.Name == "" {
		f.Name = name
	}
	if f.Name != name {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, "package name does not match its directory"), "package", name), "detail", f.Name)
	}
	return toPackage(f, dir)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func loadYAML(path string) (*PackageFile, error) {
	//nolint:gosec // path is built from a configured repository
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, err.Error()), "detail", path)
	}
	var f PackageFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, err.Error()), "detail", path)
	}
	return &f, nil
}

func loadHCL(path string) (*PackageFile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, diags.Error()), "detail", path)
	}

	var parsed hclPackageFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, zerr.With(zerr.Wrap(domain.ErrAmbiguousRegistry, diags.Error()), "detail", path)
	}

	return fromHCL(&parsed.Package, path)
}

// fromHCL maps the HCL schema onto PackageFile so both formats share validation.
func fromHCL(p *hclPackage, path string) (*PackageFile, error) {
	f := &PackageFile{
		Name:        p.Name,
		Description: p.Description,
		Homepage:    p.Homepage,
		URL:         p.URL,
		BuildSystem: p.BuildSystem,
	}
	for _, v := range p.Versions {
		f.Versions = append(f.Versions, VersionDTO(v))
	}
	for _, v := range p.Variants {
		node, err := ctyToNode(v.Default)
		if err != nil {
			return nil, malformed(zerr.With(err, "variant", v.Name), p.Name, path)
		}
		f.Variants = append(f.Variants, VariantDTO{
			Name:        v.Name,
			Default:     node,
			Values:      v.Values,
			Multi:       v.Multi,
			Description: v.Description,
		})
	}
	for _, d := range p.DependsOn {
		f.DependsOn = append(f.DependsOn, DependencyDTO(d))
	}
	for _, c := range p.Conflicts {
		f.Conflicts = append(f.Conflicts, ConflictDTO(c))
	}
	for _, pr := range p.Provides {
		f.Provides = append(f.Provides, ProvidesDTO(pr))
	}
	for _, pa := range p.Patches {
		f.Patches = append(f.Patches, PatchDTO(pa))
	}
	for _, a := range p.ConfigureArgs {
		f.ConfigureArgs = append(f.ConfigureArgs, ArgsDTO(a))
	}
	if len(p.Phases) > 0 {
		f.Phases = make(map[string][]string, len(p.Phases))
		for _, ph := range p.Phases {
			f.Phases[ph.Phase] = ph.Commands
		}
	}
	return f, nil
}

// ctyToNode converts an HCL variant default into the YAML node form.
func ctyToNode(expr hcl.Expression) (yaml.Node, error) {
	if expr == nil {
		return yaml.Node{}, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return yaml.Node{}, zerr.Wrap(domain.ErrInvalidVariantValue, diags.Error())
	}
	if v.IsNull() {
		return yaml.Node{}, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		value := "false"
		if v.True() {
			value = "true"
		}
		return yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: value}, nil
	case ty == cty.String:
		return yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.AsString()}, nil
	case ty == cty.Number:
		return yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.AsBigFloat().Text('f', -1)}, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		seq := yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			if el.Type() != cty.String {
				return yaml.Node{}, zerr.Wrap(domain.ErrInvalidVariantValue, "list defaults must hold strings")
			}
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: el.AsString()})
		}
		return seq, nil
	default:
		return yaml.Node{}, zerr.Wrap(domain.ErrInvalidVariantValue, "default must be a bool, a string or a list")
	}
}

// Factory implements ports.RegistryFactory.
type Factory struct{}

// Open creates a registry over repos.
func (Factory) Open(repos []string) (ports.Registry, error) {
	return New(repos), nil
}
