// Package download fetches configuration import sources: workspace-relative
// files, http(s) URLs, and files inside git repositories.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Downloader resolves an import source into its raw bytes. Local-relative
// paths are resolved against the provided scopes in order; remote URIs are
// fetched.
type Downloader interface {
	Download(ctx context.Context, source string, scopes []string) ([]byte, error)
}

// Client is the default Downloader supporting local paths, http(s) URLs, and
// git:: references of the form git::<repo-url>//<path-in-repo>[?ref=<name>].
type Client struct {
	httpClient *http.Client
	maxSize    int64
	log        *zap.Logger
}

// Options configures a download client.
type Options struct {
	// HTTPClient overrides the HTTP client. Nil uses a client with a
	// 30-second timeout.
	HTTPClient *http.Client

	// MaxSize bounds fetched document size in bytes. Zero means 8 MiB.
	MaxSize int64

	Logger *zap.Logger
}

// New creates a download client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 8 << 20
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{httpClient: httpClient, maxSize: maxSize, log: log}
}

// Download fetches source. Scheme selection:
//   - "git::" prefix: clone and read a file from a git repository
//   - "http://" / "https://": GET
//   - anything else: local path, resolved against scopes when relative
func (c *Client) Download(ctx context.Context, source string, scopes []string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, gitSourcePrefix):
		return c.downloadGit(ctx, source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return c.downloadHTTP(ctx, source)
	default:
		return c.readLocal(source, scopes)
	}
}

func (c *Client) downloadHTTP(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, source)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxSize {
		return nil, fmt.Errorf("%s exceeds the %d byte size limit", source, c.maxSize)
	}

	c.log.Debug("fetched import over http",
		zap.String("source", source),
		zap.Int("bytes", len(data)))
	return data, nil
}

// readLocal resolves a local path. Relative paths are tried against each
// scope in order; the first existing file wins.
func (c *Client) readLocal(source string, scopes []string) ([]byte, error) {
	if filepath.IsAbs(source) {
		return os.ReadFile(source)
	}

	// Allow explicit file:// URIs
	if strings.HasPrefix(source, "file://") {
		parsed, err := url.Parse(source)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(parsed.Path)
	}

	for _, scope := range scopes {
		candidate := filepath.Join(scope, filepath.FromSlash(source))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return os.ReadFile(candidate)
		}
	}

	return nil, fmt.Errorf("%s not found in any search scope", source)
}
