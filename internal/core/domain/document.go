package domain

import (
	"encoding/json"

	"go.trai.ch/zerr"
)

// SpecDocument is the serialized form of a concrete spec and its closure.
// Nodes are listed dependencies first; the last node is the root.
type SpecDocument struct {
	Nodes []NodeDocument `json:"nodes"`
}

// NodeDocument is one serialized node of a SpecDocument.
type NodeDocument struct {
	Name         string                  `json:"name"`
	Version      string                  `json:"version"`
	Variants     map[string]VariantValue `json:"variants,omitempty"`
	Compiler     CompilerDocument        `json:"compiler"`
	Arch         ArchDocument            `json:"arch"`
	Dependencies []EdgeDocument          `json:"dependencies,omitempty"`
	Hash         string                  `json:"hash"`
}

// CompilerDocument is the serialized compiler of a node.
type CompilerDocument struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ArchDocument is the serialized arch of a node.
type ArchDocument struct {
	Platform string `json:"platform"`
	OS       string `json:"os"`
	Target   string `json:"target"`
}

// EdgeDocument references a dependency node by hash.
type EdgeDocument struct {
	Name     string   `json:"name"`
	Hash     string   `json:"hash"`
	Kinds    []string `json:"kinds"`
	Virtuals []string `json:"virtuals,omitempty"`
}

// NewSpecDocument serializes the closure of a concrete spec.
func NewSpecDocument(root *Spec) (SpecDocument, error) {
	var doc SpecDocument
	seen := make(map[string]bool)
	var visit func(n *Spec) error
	visit = func(n *Spec) error {
		if seen[n.Hash] {
			return nil
		}
		if !n.Concrete() {
			return zerr.With(zerr.Wrap(ErrNotConcrete, "concrete spec required"), "spec", n.String())
		}
		seen[n.Hash] = true
		node := NodeDocument{
			Name:     n.Name,
			Version:  n.Version().String(),
			Variants: n.Variants,
			Compiler: CompilerDocument{Name: n.Compiler.Name},
			Arch:     ArchDocument{Platform: n.Arch.Platform, OS: n.Arch.OS, Target: n.Arch.Target},
			Hash:     n.Hash,
		}
		if v, ok := n.Compiler.Versions.Concrete(); ok {
			node.Compiler.Version = v.String()
		}
		for _, e := range sortedEdges(n.Dependencies) {
			if err := visit(e.Spec); err != nil {
				return err
			}
			node.Dependencies = append(node.Dependencies, EdgeDocument{
				Name:     e.Spec.Name,
				Hash:     e.Spec.Hash,
				Kinds:    e.Kinds.Names(),
				Virtuals: e.Virtuals,
			})
		}
		doc.Nodes = append(doc.Nodes, node)
		return nil
	}
	if err := visit(root); err != nil {
		return SpecDocument{}, err
	}
	return doc, nil
}

// Spec rebuilds the concrete spec from the document, verifying every hash.
func (doc SpecDocument) Spec() (*Spec, error) {
	if len(doc.Nodes) == 0 {
		return nil, zerr.Wrap(ErrInvalidSpec, "empty spec document")
	}
	built := make(map[string]*Spec, len(doc.Nodes))
	var last *Spec
	for _, nd := range doc.Nodes {
		v, err := ParseVersion(nd.Version)
		if err != nil {
			return nil, err
		}
		s := &Spec{
			Name:     nd.Name,
			Versions: ExactVersion(v),
			Variants: nd.Variants,
			Compiler: CompilerSpec{Name: nd.Compiler.Name},
			Arch:     Arch{Platform: nd.Arch.Platform, OS: nd.Arch.OS, Target: nd.Arch.Target},
			Hash:     nd.Hash,
		}
		if nd.Compiler.Version != "" {
			cv, err := ParseVersion(nd.Compiler.Version)
			if err != nil {
				return nil, err
			}
			s.Compiler.Versions = ExactVersion(cv)
		}
		for _, ed := range nd.Dependencies {
			dep, ok := built[ed.Hash]
			if !ok {
				return nil, zerr.With(zerr.With(zerr.Wrap(ErrMissingDependency, "edge target not in graph"), "spec", nd.Name), "dependency", ed.Name)
			}
			kinds, ok := ParseDepKinds(ed.Kinds)
			if !ok {
				return nil, zerr.With(zerr.Wrap(ErrInvalidSpec, "unknown dependency kind"), "spec", nd.Name)
			}
			s.Dependencies = append(s.Dependencies, DependencyEdge{Spec: dep, Kinds: kinds, Virtuals: ed.Virtuals})
		}
		if err := VerifyHash(s); err != nil {
			return nil, err
		}
		built[s.Hash] = s
		last = s
	}
	return last, nil
}

// EncodeSpec marshals the closure of a concrete spec to JSON.
func EncodeSpec(root *Spec) ([]byte, error) {
	doc, err := NewSpecDocument(root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// DecodeSpec unmarshals a spec encoded by EncodeSpec.
func DecodeSpec(data []byte) (*Spec, error) {
	var doc SpecDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zerr.Wrap(ErrInvalidSpec, err.Error())
	}
	return doc.Spec()
}
