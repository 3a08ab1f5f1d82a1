package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

// UninstallOptions configures the Uninstall method.
type UninstallOptions struct {
	// Force removes specs even when installed specs depend on them.
	Force bool
	// All removes every spec a query matches instead of refusing.
	All bool
}

// Uninstall removes the installed specs matching exprs. Dependents are
// removed before their dependencies.
func (a *App) Uninstall(ctx context.Context, exprs []string, opts UninstallOptions) error {
	s, err := a.open()
	if err != nil {
		return err
	}
	queries, err := parseQueries(exprs)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return domain.ErrNoSpecsRequested
	}

	installed, err := s.db.Query((*domain.Record).Installed)
	if err != nil {
		return err
	}
	targets, err := selectTargets(installed, queries, opts.All)
	if err != nil {
		return err
	}
	if !opts.Force {
		if err := checkDependents(installed, targets); err != nil {
			return err
		}
	}

	locker, err := a.lockers.Open(domain.LocksDir(s.cfg.Database))
	if err != nil {
		return zerr.Wrap(err, "failed to open lock directory")
	}

	var errs error
	for _, r := range removalOrder(targets) {
		if err := a.uninstall(ctx, s, locker, r); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func selectTargets(installed []*domain.Record, queries []*domain.Spec, all bool) (map[string]*domain.Record, error) {
	targets := make(map[string]*domain.Record)
	for _, q := range queries {
		var matched []*domain.Record
		for _, r := range installed {
			if domain.Satisfies(r.Spec, q) {
				matched = append(matched, r)
			}
		}
		switch {
		case len(matched) == 0:
			return nil, zerr.With(zerr.Wrap(domain.ErrNoMatch, "nothing to uninstall"), "query", q.String())
		case len(matched) > 1 && !all:
			candidates := make([]string, 0, len(matched))
			for _, r := range matched {
				candidates = append(candidates, recordLabel(r))
			}
			slices.Sort(candidates)
			err := zerr.With(zerr.Wrap(domain.ErrAmbiguousMatch, "use a more specific spec or --all"), "query", q.String())
			return nil, zerr.With(err, "candidates", candidates)
		}
		for _, r := range matched {
			targets[r.Hash] = r
		}
	}
	return targets, nil
}

// checkDependents fails when an installed spec outside targets depends on
// one of them.
func checkDependents(installed []*domain.Record, targets map[string]*domain.Record) error {
	for _, t := range sortedByHash(targets) {
		var dependents []string
		for _, r := range installed {
			if _, removing := targets[r.Hash]; removing {
				continue
			}
			if dependsOn(r.Spec, t.Hash) {
				dependents = append(dependents, recordLabel(r))
			}
		}
		if len(dependents) > 0 {
			slices.Sort(dependents)
			err := zerr.With(zerr.Wrap(domain.ErrHasDependents, "use --force to remove anyway"), "spec", recordLabel(t))
			return zerr.With(err, "dependents", dependents)
		}
	}
	return nil
}

func dependsOn(s *domain.Spec, hash string) bool {
	return slices.ContainsFunc(s.Traverse()[1:], func(n *domain.Spec) bool { return n.Hash == hash })
}

// removalOrder puts larger closures first. A dependent always has a larger
// closure than any of its dependencies.
func removalOrder(targets map[string]*domain.Record) []*domain.Record {
	order := sortedByHash(targets)
	slices.SortStableFunc(order, func(a, b *domain.Record) int {
		return cmp.Compare(len(b.Spec.Traverse()), len(a.Spec.Traverse()))
	})
	return order
}

func sortedByHash(records map[string]*domain.Record) []*domain.Record {
	out := make([]*domain.Record, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *domain.Record) int { return cmp.Compare(a.Hash, b.Hash) })
	return out
}

func (a *App) uninstall(ctx context.Context, s *session, locker ports.Locker, r *domain.Record) error {
	lockCtx := ctx
	if d := s.cfg.Install.LockTimeout; d > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	lock, err := locker.Acquire(lockCtx, r.Hash)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "cannot uninstall while the spec is being installed"), "spec", recordLabel(r))
	}
	defer func() {
		_ = lock.Release()
	}()

	if err := os.RemoveAll(r.Prefix); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove install prefix"), "prefix", r.Prefix)
	}
	if err := s.db.Remove(r.Hash); err != nil {
		return err
	}
	a.logger.Info("uninstalled " + recordLabel(r))
	return nil
}

func recordLabel(r *domain.Record) string {
	return r.Spec.Name + "@" + r.Spec.Version().String() + "/" + r.Spec.ShortHash()
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Stage   bool
	Sources bool
}

// Clean removes build stages and downloaded sources based on the provided
// options.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	var errs error

	// Helper to remove a directory and log the action
	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Stage {
		remove(cfg.Stage, "build stage")
	}
	if options.Sources {
		remove(cfg.SourceCache, "source cache")
	}

	return errs
}
