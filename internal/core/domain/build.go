package domain

import "path/filepath"

// BuildRequest carries everything a builder needs to install one node.
type BuildRequest struct {
	Spec    *Spec
	Package *Package
	// Prefix is where the node is installed.
	Prefix string
	// StageDir is a scratch directory owned by this build.
	StageDir string
	// DependencyPrefixes maps every dependency in the node's closure to its
	// install prefix.
	DependencyPrefixes map[string]string
	// DependencyKinds maps each direct dependency name to its edge kinds.
	DependencyKinds map[string]DepKind
	Compiler        Compiler
	Jobs            int
	// Source is what the fetcher obtained for this build.
	Source FetchResult
}

// SourceDir is the directory the package source is unpacked into.
func (r *BuildRequest) SourceDir() string {
	return filepath.Join(r.StageDir, "src")
}

// FetchResult describes the source obtained for a build.
type FetchResult struct {
	// Path is an archive file, or a checkout directory when IsDir is set.
	Path  string
	IsDir bool
}
