package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	userAgent         = "sprig"
)

// archiveSuffixes are recognized in source URLs, longest first.
var archiveSuffixes = []string{
	".tar.gz", ".tar.bz2", ".tar.xz", ".tar.zst",
	".tgz", ".tbz2", ".txz", ".tar", ".zip",
}

// Fetcher implements ports.Fetcher.
type Fetcher struct {
	client      *http.Client
	breakers    *breakers
	mirrors     []string
	sourceCache string
	logger      ports.Logger
	maxRetries  uint64
	baseDelay   time.Duration
	gitBinary   string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithMaxRetries sets how often a download is retried after a transient error.
func WithMaxRetries(n uint64) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the first retry delay.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// WithGitBinary sets the git executable used for repository checkouts.
func WithGitBinary(bin string) Option {
	return func(f *Fetcher) {
		f.gitBinary = bin
	}
}

// New creates a Fetcher that tries mirrors before upstream URLs and keeps
// downloaded archives in sourceCache. An empty sourceCache stores archives
// in the stage directory of each build.
func New(mirrors []string, sourceCache string, logger ports.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		breakers:    newBreakers(),
		mirrors:     mirrors,
		sourceCache: sourceCache,
		logger:      logger,
		maxRetries:  defaultMaxRetries,
		baseDelay:   defaultBaseDelay,
		gitBinary:   "git",
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = newHTTPClient()
	}
	return f
}

// Fetch obtains the source of version v of pkg.
func (f *Fetcher) Fetch(ctx context.Context, pkg *domain.Package, v domain.Version, stageDir string) (domain.FetchResult, error) {
	decl, _ := pkg.VersionDecl(v)
	if decl.Git != "" {
		return f.clone(ctx, pkg, decl, stageDir)
	}

	src := pkg.SourceURL(v)
	if src == "" {
		return domain.FetchResult{}, zerr.With(zerr.With(zerr.Wrap(domain.ErrNoSource, "version declares no url or git repository"),
			"package", pkg.Name), "version", v.String())
	}

	name := archiveName(pkg.Name, v, src)
	dest := filepath.Join(stageDir, name)
	if f.sourceCache != "" {
		dest = filepath.Join(f.sourceCache, pkg.Name, name)
		if err := verifyFile(dest, decl.Checksum); err == nil {
			return domain.FetchResult{Path: dest}, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), domain.DirPerm); err != nil {
		return domain.FetchResult{}, zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", filepath.Dir(dest))
	}

	var errs []error
	for _, candidate := range f.candidates(pkg.Name, name, src) {
		err := f.download(ctx, candidate, dest, decl.Checksum)
		if err == nil {
			return domain.FetchResult{Path: dest}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.FetchResult{}, zerr.Wrap(ctxErr, "fetch cancelled")
		}
		errs = append(errs, zerr.With(err, "url", candidate))
		f.logger.Warn("fetching " + pkg.Name + "@" + v.String() + " from " + candidate + " failed: " + err.Error())
	}
	return domain.FetchResult{}, zerr.With(zerr.With(zerr.Wrap(errors.Join(errs...), "no source location succeeded"),
		"package", pkg.Name), "version", v.String())
}

// BreakerStates reports the circuit state of every host contacted so far.
func (f *Fetcher) BreakerStates() map[string]string {
	return f.breakers.states()
}

// candidates lists the locations to try: each mirror, then the upstream URL.
func (f *Fetcher) candidates(pkgName, archive, upstream string) []string {
	out := make([]string, 0, len(f.mirrors)+1)
	for _, m := range f.mirrors {
		if isLocal(m) {
			out = append(out, filepath.Join(strings.TrimPrefix(m, "file://"), pkgName, archive))
			continue
		}
		out = append(out, strings.TrimSuffix(m, "/")+"/"+pkgName+"/"+archive)
	}
	return append(out, upstream)
}

// download stores the archive at location in dest once it verifies.
func (f *Fetcher) download(ctx context.Context, location, dest, checksum string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return zerr.Wrap(domain.ErrFetchFailed, err.Error())
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if isLocal(location) {
		err = copyLocal(strings.TrimPrefix(location, "file://"), tmp)
	} else {
		err = f.downloadHTTP(ctx, location, tmp)
	}
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = zerr.Wrap(domain.ErrFetchFailed, cerr.Error())
	}
	if err != nil {
		return err
	}

	if err := verifyFile(tmpPath, checksum); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", dest)
	}
	return nil
}

// downloadHTTP streams location into w behind the host's circuit breaker,
// retrying rate limits, server errors and network failures with exponential
// backoff.
func (f *Fetcher) downloadHTTP(ctx context.Context, location string, w *os.File) error {
	breaker, host := f.breakers.forURL(location)
	if !breaker.Ready() {
		return zerr.With(zerr.Wrap(domain.ErrUpstreamDown, "circuit open"), "host", host)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.baseDelay
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, f.maxRetries), ctx)

	var final error
	err := breaker.Call(func() error {
		retryErr := backoff.Retry(func() error {
			if _, err := w.Seek(0, io.SeekStart); err != nil {
				final = err
				return nil
			}
			if err := w.Truncate(0); err != nil {
				final = err
				return nil
			}
			err := f.get(ctx, location, w)
			if err != nil && retryable(ctx, err) {
				return err
			}
			final = err
			return nil
		}, policy)
		if retryErr != nil {
			return retryErr
		}
		var status *statusError
		if errors.As(final, &status) {
			return final
		}
		return nil
	}, 0)

	switch {
	case errors.Is(err, circuit.ErrBreakerOpen):
		return zerr.With(zerr.Wrap(domain.ErrUpstreamDown, "circuit open"), "host", host)
	case err != nil:
		return classify(err)
	case final != nil:
		return classify(final)
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, location string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// statusError is an HTTP response other than 200.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.code) + " " + http.StatusText(e.code)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var status *statusError
	if errors.As(err, &status) {
		return status.code == http.StatusTooManyRequests || status.code >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func classify(err error) error {
	var status *statusError
	if errors.As(err, &status) && status.code >= http.StatusInternalServerError {
		return zerr.With(zerr.Wrap(domain.ErrUpstreamDown, err.Error()), "status", status.code)
	}
	return zerr.Wrap(domain.ErrFetchFailed, err.Error())
}

func copyLocal(src string, w io.Writer) error {
	//nolint:gosec // mirrors and file URLs come from user configuration
	in, err := os.Open(src)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", src)
	}
	defer func() { _ = in.Close() }()
	if _, err := io.Copy(w, in); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", src)
	}
	return nil
}

func isLocal(location string) bool {
	return strings.HasPrefix(location, "file://") || filepath.IsAbs(location)
}

// archiveName is the file name an archive is stored under:
// <name>-<version><suffix>, keeping the archive suffix of the source URL.
func archiveName(pkgName string, v domain.Version, src string) string {
	base := path.Base(src)
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		base = path.Base(u.Path)
	}
	suffix := ""
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(base, s) {
			suffix = s
			break
		}
	}
	return pkgName + "-" + v.String() + suffix
}

// Factory implements ports.FetcherFactory. Fetchers it creates share one
// HTTP client.
type Factory struct {
	Logger ports.Logger

	once   sync.Once
	client *http.Client
}

// New creates a fetcher for the mirrors and source cache of cfg.
func (fa *Factory) New(cfg *domain.Config) ports.Fetcher {
	fa.once.Do(func() {
		fa.client = newHTTPClient()
	})
	return New(cfg.Mirrors, cfg.SourceCache, fa.Logger, WithHTTPClient(fa.client))
}
