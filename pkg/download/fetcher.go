package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	cerrors "github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Fetcher copies the resource at rawURL to dest.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dest string) (int64, error)
}

// FetcherOptions configures an HTTPFetcher.
type FetcherOptions struct {
	// Retries is the number of retries for transient HTTP failures.
	Retries int
	// Timeout bounds a single Fetch call. Zero means no limit beyond ctx.
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// HTTPFetcher fetches http(s) URLs with retries, and file:// URLs or bare
// paths from the local disk.
type HTTPFetcher struct {
	client  *retryablehttp.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHTTPFetcher creates a fetcher.
func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	logger := logging.OrDefault(opts.Logger, "fetch")

	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = leveledLogger{logger}

	return &HTTPFetcher{
		client:  client,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, cerrors.Wrapf(err, cerrors.ErrFilesystem, "creating download directory for %s", dest)
	}

	var (
		n   int64
		err error
	)
	if path, ok := localPath(rawURL); ok {
		n, err = copyLocal(path, dest)
	} else {
		n, err = f.fetchHTTP(ctx, rawURL, dest)
	}
	if err != nil {
		return 0, fetchError(ctx, rawURL, err)
	}

	f.logger.Debug().
		Str("url", rawURL).
		Str("dest", dest).
		Str("size", humanize.Bytes(uint64(n))).
		Msg("Fetched source")
	return n, nil
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 > 3 {
		return 0, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return n, copyErr
	}
	return n, closeErr
}

func copyLocal(path, dest string) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		return n, copyErr
	}
	return n, closeErr
}

// localPath reports whether rawURL names a file on disk.
func localPath(rawURL string) (string, bool) {
	if filepath.IsAbs(rawURL) {
		return rawURL, true
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return rawURL, true
	}
	if u.Scheme == "file" {
		return u.Path, true
	}
	return "", false
}

func fetchError(ctx context.Context, rawURL string, err error) error {
	ferr := cerrors.Wrapf(err, cerrors.ErrFetch, "fetching %s", rawURL).WithDetail("url", rawURL)
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		ferr.WithDetail(cerrors.DetailTimeout, true)
	}
	return ferr
}

// archiveName picks the local file name for a source URL.
func archiveName(rawURL string) string {
	if path, ok := localPath(rawURL); ok {
		return filepath.Base(path)
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "source"
	}
	return filepath.Base(u.Path)
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l zerolog.Logger
}

func (z leveledLogger) Error(msg string, kv ...interface{}) { z.l.Error().Fields(kv).Msg(msg) }
func (z leveledLogger) Info(msg string, kv ...interface{})  { z.l.Debug().Fields(kv).Msg(msg) }
func (z leveledLogger) Debug(msg string, kv ...interface{}) { z.l.Trace().Fields(kv).Msg(msg) }
func (z leveledLogger) Warn(msg string, kv ...interface{})  { z.l.Warn().Fields(kv).Msg(msg) }

var _ retryablehttp.LeveledLogger = leveledLogger{}
