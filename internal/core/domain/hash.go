package domain

import (
	"crypto/sha256"
	"encoding/base32"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// HashLength is the number of characters kept from the encoded digest.
const HashLength = 32

var hashEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// ComputeHash returns the structural hash of s. Dependencies contribute their
// own hashes, so equal configurations hash equally regardless of how the
// DAG was built. s must be acyclic and fully resolved.
func ComputeHash(s *Spec) string {
	return computeHash(s, make(map[*Spec]string))
}

func computeHash(s *Spec, memo map[*Spec]string) string {
	if h, ok := memo[s]; ok {
		return h
	}
	h := hashCanonical(s, func(dep *Spec) string { return computeHash(dep, memo) })
	memo[s] = h
	return h
}

// Seal assigns hashes to every node reachable from root, dependencies first.
// It fails with ErrCycleDetected if the graph is not acyclic.
func Seal(root *Spec) error {
	if err := checkAcyclic(root); err != nil {
		return err
	}
	memo := make(map[*Spec]string)
	for _, n := range root.Traverse() {
		n.Hash = computeHash(n, memo)
	}
	return nil
}

// VerifyHash recomputes the hash of a concrete node from its dependencies'
// recorded hashes and compares it with s.Hash.
func VerifyHash(s *Spec) error {
	got := hashCanonical(s, func(dep *Spec) string { return dep.Hash })
	if got != s.Hash {
		return zerr.With(zerr.With(zerr.Wrap(ErrHashMismatch, s.Name), "expected", s.Hash), "actual", got)
	}
	return nil
}

func hashCanonical(s *Spec, depHash func(*Spec) string) string {
	var b strings.Builder
	b.WriteString("name ")
	b.WriteString(s.Name)
	b.WriteString("\nversion ")
	b.WriteString(s.Versions.String())
	names := make([]string, 0, len(s.Variants))
	for name := range s.Variants {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		v := s.Variants[name]
		b.WriteString("\nvariant ")
		b.WriteString(name)
		b.WriteByte(' ')
		b.WriteString(strings.Join(v.Values, ","))
	}
	b.WriteString("\ncompiler ")
	b.WriteString(s.Compiler.String())
	b.WriteString("\narch ")
	b.WriteString(s.Arch.String())
	for _, e := range sortedEdges(s.Dependencies) {
		virtuals := slices.Clone(e.Virtuals)
		slices.Sort(virtuals)
		b.WriteString("\ndep ")
		b.WriteString(e.Spec.Name)
		b.WriteByte(' ')
		b.WriteString(depHash(e.Spec))
		b.WriteByte(' ')
		b.WriteString(e.Kinds.String())
		b.WriteByte(' ')
		b.WriteString(strings.Join(virtuals, ","))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hashEncoding.EncodeToString(sum[:])[:HashLength]
}

// checkAcyclic walks the graph below root and reports the first cycle found
// as a path "a -> b -> a".
func checkAcyclic(root *Spec) error {
	state := make(map[*Spec]int) // 0: unvisited, 1: visiting, 2: done
	var path []*Spec
	var visit func(n *Spec) error
	visit = func(n *Spec) error {
		state[n] = 1
		path = append(path, n)
		for _, e := range n.Dependencies {
			switch state[e.Spec] {
			case 1:
				return cycleError(path, e.Spec)
			case 0:
				if err := visit(e.Spec); err != nil {
					return err
				}
			}
		}
		state[n] = 2
		path = path[:len(path)-1]
		return nil
	}
	return visit(root)
}

func cycleError(path []*Spec, dep *Spec) error {
	start := slices.Index(path, dep)
	names := make([]string, 0, len(path)-start+1)
	for _, n := range path[start:] {
		names = append(names, n.Name)
	}
	names = append(names, dep.Name)
	return zerr.With(zerr.Wrap(ErrCycleDetected, "dependency cycle"), "cycle", strings.Join(names, " -> "))
}
