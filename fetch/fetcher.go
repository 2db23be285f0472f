// Package fetch downloads the registry dump and selects the record file
// inside the release archive.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrUnavailable is returned when the dataset cannot be retrieved.
var ErrUnavailable = errors.New("dataset unavailable")

// Options configures a Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string

	// MaxSize bounds the response body in bytes.
	MaxSize int64

	// CacheDir keeps downloaded archives; empty disables caching.
	CacheDir string

	// Refresh ignores cached archives.
	Refresh bool

	// AllowInsecure skips URL and address validation (tests, LAN mirrors).
	AllowInsecure bool

	// Retry controls download retries; zero MaxAttempts means DefaultRetryConfig.
	Retry RetryConfig

	Logger *slog.Logger
}

// Result is a retrieved payload.
type Result struct {
	Body []byte

	// Name is the file name of the payload (URL path segment or local file).
	Name string

	// FromCache is true when no network request was made.
	FromCache bool
}

// Fetcher retrieves the dump over HTTP with size limits and address checks.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// New creates a fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "rorio"
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1 << 30
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
	}

	client := &http.Client{Transport: transport, Timeout: opts.Timeout}

	if !opts.AllowInsecure {
		// Resolved addresses are checked again at dial time against DNS rebinding.
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("invalid address: %w", err)
			}
			ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("DNS lookup failed: %w", err)
			}
			for _, ip := range ips {
				if IsPrivateIP(ip.IP) {
					return nil, fmt.Errorf("%w: %s resolves to private address %s", ErrBlockedURL, host, ip.IP)
				}
			}
			var lastErr error
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), port))
				if err == nil {
					return conn, nil
				}
				lastErr = err
			}
			return nil, fmt.Errorf("connect %s: %w", host, lastErr)
		}
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			if err := ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		}
	}

	return &Fetcher{client: client, opts: opts, logger: logger}
}

// Fetch retrieves source, which is an HTTP(S) URL or a local path. Remote
// payloads are cached under CacheDir. Every failure wraps ErrUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*Result, error) {
	if IsLocal(source) {
		path := LocalPath(source)
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		f.logger.Debug("Read local dump", "path", path, "bytes", len(body))
		return &Result{Body: body, Name: filepath.Base(path), FromCache: true}, nil
	}

	if !f.opts.AllowInsecure {
		if err := ValidateURL(source); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	name := CacheName(source)
	cachePath := ""
	if f.opts.CacheDir != "" {
		cachePath = filepath.Join(f.opts.CacheDir, name)
		if !f.opts.Refresh {
			if body, err := os.ReadFile(cachePath); err == nil {
				f.logger.Info("Using cached dump", "path", cachePath, "bytes", len(body))
				return &Result{Body: body, Name: name, FromCache: true}, nil
			}
		}
	}

	body, err := f.withRetry(ctx, source, func() ([]byte, error) {
		return f.download(ctx, source)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	f.logger.Info("Downloaded dump", "url", source, "bytes", len(body))

	if cachePath != "" {
		if err := writeCache(cachePath, body); err != nil {
			f.logger.Warn("Failed to cache dump", "path", cachePath, "error", err)
		}
	}
	return &Result{Body: body, Name: name}, nil
}

func (f *Fetcher) download(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/zip,application/json;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedURL) {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		return nil, transient(fmt.Errorf("fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		switch {
		case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusRequestTimeout:
			return nil, transient(err)
		default:
			return nil, err
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxSize+1))
	if err != nil {
		return nil, transient(fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > f.opts.MaxSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.opts.MaxSize)
	}
	return body, nil
}

// writeCache stores body at path through a temporary file so a partial
// download never looks complete.
func writeCache(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
