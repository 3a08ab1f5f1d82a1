package repo

import (
	"github.com/hashicorp/hcl/v2"
	"gopkg.in/yaml.v3"
)

// PackageFile is the structure of package.yaml.
type PackageFile struct {
	Name          string              `yaml:"name"`
	Description   string              `yaml:"description"`
	Homepage      string              `yaml:"homepage"`
	URL           string              `yaml:"url"`
	BuildSystem   string              `yaml:"build_system"`
	Versions      []VersionDTO        `yaml:"versions"`
	Variants      []VariantDTO        `yaml:"variants"`
	DependsOn     []DependencyDTO     `yaml:"depends_on"`
	Conflicts     []ConflictDTO       `yaml:"conflicts"`
	Provides      []ProvidesDTO       `yaml:"provides"`
	Patches       []PatchDTO          `yaml:"patches"`
	ConfigureArgs []ArgsDTO           `yaml:"configure_args"`
	Phases        map[string][]string `yaml:"phases"`
}

// VersionDTO declares one version.
type VersionDTO struct {
	Version    string `yaml:"version"`
	Checksum   string `yaml:"checksum"`
	SHA256     string `yaml:"sha256"`
	MD5        string `yaml:"md5"`
	URL        string `yaml:"url"`
	Git        string `yaml:"git"`
	Branch     string `yaml:"branch"`
	Preferred  bool   `yaml:"preferred"`
	Deprecated bool   `yaml:"deprecated"`
}

// VariantDTO declares one variant. Default is a bool, a string or a list.
type VariantDTO struct {
	Name        string    `yaml:"name"`
	Default     yaml.Node `yaml:"default"`
	Values      []string  `yaml:"values"`
	Multi       bool      `yaml:"multi"`
	Description string    `yaml:"description"`
}

// DependencyDTO declares a conditional dependency.
type DependencyDTO struct {
	Spec string   `yaml:"spec"`
	When string   `yaml:"when"`
	Type []string `yaml:"type"`
}

// ConflictDTO declares a conditional conflict.
type ConflictDTO struct {
	Spec string `yaml:"spec"`
	When string `yaml:"when"`
	Msg  string `yaml:"msg"`
}

// ProvidesDTO declares a provided virtual.
type ProvidesDTO struct {
	Virtual string `yaml:"virtual"`
	When    string `yaml:"when"`
}

// PatchDTO declares a conditional patch.
type PatchDTO struct {
	File  string `yaml:"file"`
	Level *int   `yaml:"level"`
	When  string `yaml:"when"`
}

// ArgsDTO declares conditional configure arguments.
type ArgsDTO struct {
	Args []string `yaml:"args"`
	When string   `yaml:"when"`
}

// hclPackageFile is the top level of package.hcl.
type hclPackageFile struct {
	Package hclPackage `hcl:"package,block"`
}

type hclPackage struct {
	Name          string          `hcl:"name,label"`
	Description   string          `hcl:"description,optional"`
	Homepage      string          `hcl:"homepage,optional"`
	URL           string          `hcl:"url,optional"`
	BuildSystem   string          `hcl:"build_system,optional"`
	Versions      []hclVersion    `hcl:"version,block"`
	Variants      []hclVariant    `hcl:"variant,block"`
	DependsOn     []hclDependency `hcl:"depends_on,block"`
	Conflicts     []hclConflict   `hcl:"conflicts,block"`
	Provides      []hclProvides   `hcl:"provides,block"`
	Patches       []hclPatch      `hcl:"patch,block"`
	ConfigureArgs []hclArgs       `hcl:"configure_args,block"`
	Phases        []hclPhase      `hcl:"phase,block"`
}

type hclVersion struct {
	Version    string `hcl:"version,label"`
	Checksum   string `hcl:"checksum,optional"`
	SHA256     string `hcl:"sha256,optional"`
	MD5        string `hcl:"md5,optional"`
	URL        string `hcl:"url,optional"`
	Git        string `hcl:"git,optional"`
	Branch     string `hcl:"branch,optional"`
	Preferred  bool   `hcl:"preferred,optional"`
	Deprecated bool   `hcl:"deprecated,optional"`
}

type hclVariant struct {
	Name        string         `hcl:"name,label"`
	Default     hcl.Expression `hcl:"default,optional"`
	Values      []string       `hcl:"values,optional"`
	Multi       bool           `hcl:"multi,optional"`
	Description string         `hcl:"description,optional"`
}

type hclDependency struct {
	Spec string   `hcl:"spec,label"`
	When string   `hcl:"when,optional"`
	Type []string `hcl:"type,optional"`
}

type hclConflict struct {
	Spec string `hcl:"spec,label"`
	When string `hcl:"when,optional"`
	Msg  string `hcl:"msg,optional"`
}

type hclProvides struct {
	Virtual string `hcl:"virtual,label"`
	When    string `hcl:"when,optional"`
}

type hclPatch struct {
	File  string `hcl:"file,label"`
	Level *int   `hcl:"level,optional"`
	When  string `hcl:"when,optional"`
}

type hclArgs struct {
	Args []string `hcl:"args"`
	When string   `hcl:"when,optional"`
}

type hclPhase struct {
	Phase    string   `hcl:"phase,label"`
	Commands []string `hcl:"commands"`
}
