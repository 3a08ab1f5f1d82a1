package installer_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/adapters/database"
	"go.trai.ch/sprig/internal/adapters/fs"
	"go.trai.ch/sprig/internal/adapters/lock"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/engine/installer"
	"golang.org/x/sync/errgroup"
)

// storeInstaller builds an installer on the real on-disk database, lock
// directory and manifester below root, as a separate sprig process would.
func storeInstaller(t *testing.T, root string, b *fakeBuilder) *installer.Installer {
	t.Helper()
	log := quietLogger(t)
	db, err := database.New(filepath.Join(root, "db"), log)
	require.NoError(t, err)
	locker, err := lock.New(filepath.Join(root, "locks"))
	require.NoError(t, err)
	manifester := fs.NewManifester(fs.NewWalker(), fs.NewHasher())
	return installer.New(memRegistry{}, db, locker, b, emptyFetcher{}, manifester, nil, &planTracer{}, log)
}

func storeOptions(root string) installer.Options {
	return installer.Options{
		InstallTree: filepath.Join(root, "opt"),
		Stage:       filepath.Join(root, "stage"),
		Compilers:   []domain.Compiler{gcc12},
		Install: domain.InstallConfig{
			Jobs:        2,
			LockTimeout: 5 * time.Second,
			LockRetries: 2,
		},
	}
}

func TestInstaller_ConcurrentRunsBuildOnce(t *testing.T) {
	root := t.TempDir()
	zlib := node(t, "zlib", "1.3")
	libpng := node(t, "libpng", "1.6.40", link(zlib))
	app := node(t, "app", "1.0", link(libpng), link(zlib))

	b := newFakeBuilder()
	b.delay = 50 * time.Millisecond
	opts := storeOptions(root)

	reports := make([]*installer.Report, 2)
	var g errgroup.Group
	for n := range reports {
		inst := storeInstaller(t, root, b)
		g.Go(func() error {
			r, err := inst.Install(context.Background(), newDAG(t, app), opts)
			reports[n] = r
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, s := range []*domain.Spec{zlib, libpng, app} {
		assert.Equal(t, 1, b.count(s.Name), s.Name)

		outcomes := map[domain.Outcome]int{}
		for _, r := range reports {
			res, ok := r.Result(s.Hash)
			require.True(t, ok)
			outcomes[res.Outcome]++
		}
		assert.Equal(t, map[domain.Outcome]int{domain.OutcomeInstalled: 1, domain.OutcomeReused: 1}, outcomes, s.Name)
	}

	db, err := database.New(filepath.Join(root, "db"), quietLogger(t))
	require.NoError(t, err)
	manifester := fs.NewManifester(fs.NewWalker(), fs.NewHasher())
	for _, s := range []*domain.Spec{zlib, libpng, app} {
		rec, err := db.Lookup(s.Hash)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, domain.StatusInstalled, rec.Status)
		require.NoError(t, manifester.Verify(context.Background(), rec.Prefix, rec.ManifestDigest))
	}
}

func TestInstaller_FailureIsolationOnDisk(t *testing.T) {
	root := t.TempDir()
	a := node(t, "a", "1.0")
	b := node(t, "b", "1.0")
	app := node(t, "app", "1.0", link(a), link(b))
	c := node(t, "c", "1.0")

	builder := newFakeBuilder()
	builder.fail["a"] = true
	opts := storeOptions(root)

	_, err := storeInstaller(t, root, builder).Install(context.Background(), newDAG(t, app, c), opts)
	require.ErrorIs(t, err, domain.ErrBuildFailure)

	db, err := database.New(filepath.Join(root, "db"), quietLogger(t))
	require.NoError(t, err)
	statuses := map[string]domain.InstallStatus{}
	for _, s := range []*domain.Spec{a, b, app, c} {
		rec, err := db.Lookup(s.Hash)
		require.NoError(t, err)
		if rec != nil {
			statuses[s.Name] = rec.Status
		}
	}
	assert.Equal(t, map[string]domain.InstallStatus{
		"a": domain.StatusFailed,
		"b": domain.StatusInstalled,
		"c": domain.StatusInstalled,
	}, statuses)

	// A second run retries the failed node and completes the blocked one.
	delete(builder.fail, "a")
	report, err := storeInstaller(t, root, builder).Install(context.Background(), newDAG(t, app, c), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(domain.OutcomeInstalled))
	assert.Equal(t, 2, report.Count(domain.OutcomeReused))
	assert.Equal(t, 2, builder.count("a"))
	assert.Equal(t, 1, builder.count("b"))
}
