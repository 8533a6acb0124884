// Package fetcher turns input locations into local files. Local paths pass
// through, http(s) and ftp URLs are downloaded and zip archives are unpacked
// to their primary data file.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/model"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options configures a Resolver.
type Options struct {
	Timeout    time.Duration
	RatePerSec float64
	UserAgent  string
	MaxRetries int
	// WorkDir receives downloads and extracted archives. A temporary
	// directory is created on first use when empty.
	WorkDir string
}

// Resolver maps input URIs to local file paths.
type Resolver struct {
	remote map[string]Fetcher

	mu      sync.Mutex
	dir     string
	ownsDir bool
}

// NewResolver returns a Resolver for local, http, https and ftp inputs.
func NewResolver(opts Options) *Resolver {
	h := NewHTTPFetcher(HTTPOptions{
		UserAgent:  opts.UserAgent,
		Timeout:    opts.Timeout,
		MaxRetries: opts.MaxRetries,
		RatePerSec: opts.RatePerSec,
	})
	f := NewFTPFetcher(FTPOptions{Timeout: opts.Timeout})
	return &Resolver{
		remote: map[string]Fetcher{"http": h, "https": h, "ftp": f},
		dir:    opts.WorkDir,
	}
}

// Resolve returns a local path holding the data behind uri. Missing local
// files are reported as model.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, uri string) (string, error) {
	local, err := r.localize(ctx, uri)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(local), ".zip") {
		return local, nil
	}

	dir, err := r.workDir()
	if err != nil {
		return "", err
	}
	dest := filepath.Join(dir, strings.TrimSuffix(filepath.Base(local), filepath.Ext(local)))
	files, err := ExtractZIP(local, dest)
	if err != nil {
		return "", err
	}
	return PrimaryFile(files)
}

func (r *Resolver) localize(ctx context.Context, uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || len(u.Scheme) <= 1 {
		// Plain paths, including Windows drive letters.
		return checkLocal(uri)
	}
	if u.Scheme == "file" {
		return checkLocal(u.Path)
	}
	f, ok := r.remote[u.Scheme]
	if !ok {
		return "", eris.Wrapf(model.ErrInvalidInput, "fetcher: unsupported scheme %q", u.Scheme)
	}

	dir, err := r.workDir()
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	dst := filepath.Join(dir, name)

	body, err := f.Download(ctx, uri)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: download %s", uri)
	}
	defer body.Close() //nolint:errcheck

	n, err := writeFile(dst, body)
	if err != nil {
		return "", err
	}
	zap.L().Info("fetcher: downloaded input",
		zap.String("uri", uri),
		zap.String("path", dst),
		zap.Int64("bytes", n),
	)
	return dst, nil
}

func checkLocal(p string) (string, error) {
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", eris.Wrapf(model.ErrNotFound, "fetcher: %s", p)
		}
		return "", eris.Wrapf(err, "fetcher: stat %s", p)
	}
	if info.IsDir() {
		return "", eris.Wrapf(model.ErrInvalidInput, "fetcher: %s is a directory", p)
	}
	return p, nil
}

func (r *Resolver) workDir() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dir != "" {
		return r.dir, nil
	}
	dir, err := os.MkdirTemp("", "popframe-")
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create work dir")
	}
	r.dir = dir
	r.ownsDir = true
	return dir, nil
}

// Close removes the temporary work directory, if the Resolver created one.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ownsDir {
		return nil
	}
	r.ownsDir = false
	if err := os.RemoveAll(r.dir); err != nil {
		return eris.Wrap(err, "fetcher: remove work dir")
	}
	return nil
}

func writeFile(dst string, src io.Reader) (int64, error) {
	file, err := os.Create(dst)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, src)
	if err != nil {
		return n, eris.Wrap(err, "fetcher: write file")
	}
	return n, nil
}
