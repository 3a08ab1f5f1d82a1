package app

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.trai.ch/sprig/internal/core/domain"
)

// SpecOptions configures the Spec method.
type SpecOptions struct {
	ConcretizeOptions
	// JSON prints one serialized spec document per root instead of a tree.
	JSON bool
}

// Spec concretizes exprs and prints the result to w.
func (a *App) Spec(ctx context.Context, exprs []string, opts SpecOptions, w io.Writer) error {
	s, err := a.open()
	if err != nil {
		return err
	}
	dag, err := a.concretize(ctx, s, exprs, opts.ConcretizeOptions)
	if err != nil {
		return err
	}

	if opts.JSON {
		for _, root := range dag.Roots() {
			data, err := domain.EncodeSpec(root)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
				return err
			}
		}
		return nil
	}

	installed := func(hash string) bool {
		rec, err := s.db.Lookup(hash)
		return err == nil && rec.Installed()
	}
	return WriteTree(w, dag, installed)
}

// WriteTree prints every root of dag followed by its dependencies, indented
// by depth. Each line carries an [+] marker when installed reports the node
// as installed, [-] otherwise, and the node's short hash. A node already
// printed under the same root is not repeated.
func WriteTree(w io.Writer, dag *domain.DAG, installed func(hash string) bool) error {
	for i, root := range dag.Roots() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		seen := make(map[string]bool)
		if err := writeTreeNode(w, root, 0, seen, installed); err != nil {
			return err
		}
	}
	return nil
}

func writeTreeNode(w io.Writer, s *domain.Spec, depth int, seen map[string]bool, installed func(string) bool) error {
	seen[s.Hash] = true

	marker := "[-]"
	if installed(s.Hash) {
		marker = "[+]"
	}
	indent := ""
	if depth > 0 {
		indent = strings.Repeat("    ", depth) + "^"
	}
	if _, err := fmt.Fprintf(w, "%s  %s  %s%s\n", marker, s.ShortHash(), indent, s.NodeString()); err != nil {
		return err
	}

	edges := slices.Clone(s.Dependencies)
	slices.SortFunc(edges, func(a, b domain.DependencyEdge) int {
		return strings.Compare(a.Spec.Name, b.Spec.Name)
	})
	for _, e := range edges {
		if seen[e.Spec.Hash] {
			continue
		}
		if err := writeTreeNode(w, e.Spec, depth+1, seen, installed); err != nil {
			return err
		}
	}
	return nil
}
