package fetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

// clone checks out a git version with a shallow clone into the stage.
func (f *Fetcher) clone(ctx context.Context, pkg *domain.Package, decl domain.VersionDecl, stageDir string) (domain.FetchResult, error) {
	dir := filepath.Join(stageDir, "git")
	if err := os.RemoveAll(dir); err != nil {
		return domain.FetchResult{}, zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", dir)
	}
	if err := os.MkdirAll(stageDir, domain.DirPerm); err != nil {
		return domain.FetchResult{}, zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", stageDir)
	}

	args := []string{"clone", "--quiet", "--depth", "1"}
	if decl.Branch != "" {
		args = append(args, "--branch", decl.Branch)
	}
	args = append(args, decl.Git, dir)

	//nolint:gosec // repository URLs come from package definitions
	cmd := exec.CommandContext(ctx, f.gitBinary, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		return domain.FetchResult{}, zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrFetchFailed, "git clone failed"),
			"package", pkg.Name), "repository", decl.Git), "output", strings.TrimSpace(string(out)))
	}
	return domain.FetchResult{Path: dir, IsDir: true}, nil
}
