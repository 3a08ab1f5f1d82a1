package app

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// FindOptions configures the Find method.
type FindOptions struct {
	// Explicit limits the result to specs installed on request.
	Explicit bool
	// Failed lists failed records instead of installed ones.
	Failed bool
	// Installing lists records of builds that have not finished.
	Installing bool
	JSON       bool
}

// FoundRecord is the JSON form of a Find result.
type FoundRecord struct {
	Hash        string    `json:"hash"`
	Spec        string    `json:"spec"`
	Status      string    `json:"status"`
	Explicit    bool      `json:"explicit"`
	Prefix      string    `json:"prefix"`
	InstalledAt time.Time `json:"installed_at,omitzero"`
	Failure     string    `json:"failure,omitempty"`
}

// Find lists database records matching the abstract specs in exprs.
func (a *App) Find(_ context.Context, exprs []string, opts FindOptions, w io.Writer) error {
	s, err := a.open()
	if err != nil {
		return err
	}
	queries, err := parseQueries(exprs)
	if err != nil {
		return err
	}

	status := domain.StatusInstalled
	switch {
	case opts.Failed:
		status = domain.StatusFailed
	case opts.Installing:
		status = domain.StatusInstalling
	}

	records, err := s.db.Query(func(r *domain.Record) bool {
		return r.Status == status && (!opts.Explicit || r.Explicit) && matchesAny(r, queries)
	})
	if err != nil {
		return err
	}
	if len(records) == 0 && len(queries) > 0 {
		return zerr.With(zerr.Wrap(domain.ErrNoMatch, "find"), "query", strings.Join(exprs, " "))
	}
	sortRecords(records)

	if opts.JSON {
		return writeRecordsJSON(w, records)
	}
	return writeRecords(w, records)
}

func sortRecords(records []*domain.Record) {
	slices.SortFunc(records, func(a, b *domain.Record) int {
		return cmp.Or(
			strings.Compare(groupOf(a.Spec), groupOf(b.Spec)),
			strings.Compare(a.Spec.Name, b.Spec.Name),
			b.Spec.Version().Compare(a.Spec.Version()),
			strings.Compare(a.Hash, b.Hash),
		)
	})
}

func groupOf(s *domain.Spec) string {
	return s.Arch.String() + " / " + s.Compiler.String()
}

// writeRecords prints records grouped by arch and compiler.
func writeRecords(w io.Writer, records []*domain.Record) error {
	group := ""
	for _, r := range records {
		if g := groupOf(r.Spec); g != group {
			if group != "" {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			group = g
			if _, err := fmt.Fprintf(w, "-- %s --\n", g); err != nil {
				return err
			}
		}
		line := r.Spec.ShortHash() + " " + r.Spec.Name + "@" + r.Spec.Version().String()
		if r.Failure != nil {
			line += fmt.Sprintf(" (%s: %s)", r.Failure.Phase, r.Failure.Message)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeRecordsJSON(w io.Writer, records []*domain.Record) error {
	out := make([]FoundRecord, 0, len(records))
	for _, r := range records {
		f := FoundRecord{
			Hash:        r.Hash,
			Spec:        r.Spec.NodeString(),
			Status:      string(r.Status),
			Explicit:    r.Explicit,
			Prefix:      r.Prefix,
			InstalledAt: r.InstalledAt,
		}
		if r.Failure != nil {
			f.Failure = string(r.Failure.Phase) + ": " + r.Failure.Message
		}
		out = append(out, f)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Verify checks installed prefixes against their manifests. With no
// expressions every installed spec is checked.
func (a *App) Verify(ctx context.Context, exprs []string, w io.Writer) error {
	s, err := a.open()
	if err != nil {
		return err
	}
	queries, err := parseQueries(exprs)
	if err != nil {
		return err
	}
	records, err := s.db.Query(func(r *domain.Record) bool {
		return r.Installed() && matchesAny(r, queries)
	})
	if err != nil {
		return err
	}
	if len(records) == 0 && len(queries) > 0 {
		return zerr.With(zerr.Wrap(domain.ErrNoMatch, "verify"), "query", strings.Join(exprs, " "))
	}
	sortRecords(records)

	var errs error
	for _, r := range records {
		label := r.Spec.ShortHash() + " " + r.Spec.Name + "@" + r.Spec.Version().String()
		if err := a.manifester.Verify(ctx, r.Prefix, r.ManifestDigest); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, "verification failed"), "spec", r.Spec.NodeString()))
			_, _ = fmt.Fprintf(w, "✗ %s\n", label)
			continue
		}
		_, _ = fmt.Fprintf(w, "✓ %s\n", label)
	}
	return errs
}

// preloadLimit bounds concurrent definition loads.
const preloadLimit = 8

// loadAll loads every package definition of the registry.
func loadAll(ctx context.Context, registry ports.Registry) ([]*domain.Package, error) {
	names, err := registry.AllNames()
	if err != nil {
		return nil, err
	}
	pkgs := make([]*domain.Package, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadLimit)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pkg, err := registry.Get(name)
			if err != nil {
				return err
			}
			pkgs[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pkgs, nil
}

// Providers prints the packages providing virtual. With an empty virtual it
// prints every virtual with its providers.
func (a *App) Providers(ctx context.Context, virtual string, w io.Writer) error {
	s, err := a.open()
	if err != nil {
		return err
	}
	pkgs, err := loadAll(ctx, s.registry)
	if err != nil {
		return err
	}

	providers := make(map[string][]string)
	for _, pkg := range pkgs {
		for _, v := range pkg.ProvidedVirtuals() {
			providers[v] = append(providers[v], pkg.Name)
		}
	}
	for v := range providers {
		slices.Sort(providers[v])
	}

	if virtual != "" {
		names, ok := providers[virtual]
		if !ok {
			return zerr.With(zerr.Wrap(domain.ErrUnknownPackage, "no package provides virtual"), "virtual", virtual)
		}
		for _, n := range names {
			if _, err := fmt.Fprintln(w, n); err != nil {
				return err
			}
		}
		return nil
	}

	for _, v := range slices.Sorted(maps.Keys(providers)) {
		if _, err := fmt.Fprintf(w, "%s: %s\n", v, strings.Join(providers[v], ", ")); err != nil {
			return err
		}
	}
	return nil
}
