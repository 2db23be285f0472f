package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LatestVersion is the key segment that always points at the newest upload.
const LatestVersion = "latest"

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	// Prefix is prepended to every key
	Prefix string
	// Overwrite allows replacing an already published version
	Overwrite bool
	// URLTTL is passed to GetURL when reporting download URLs
	URLTTL time.Duration
	Logger *slog.Logger
}

// Published describes one uploaded artifact.
type Published struct {
	File       string
	VersionKey string
	LatestKey  string
	Size       int64
	Checksum   string
	URL        string
}

// Publisher uploads an output directory under <prefix>/<version>/<file> and
// <prefix>/latest/<file>. After a publish, latest holds exactly the files of
// that release.
type Publisher struct {
	store Storage
	opts  PublisherOptions
}

// NewPublisher creates a publisher writing to store.
func NewPublisher(store Storage, opts PublisherOptions) *Publisher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = time.Hour
	}
	return &Publisher{store: store, opts: opts}
}

// Key returns the object key of file under version.
func (p *Publisher) Key(version, file string) string {
	return path.Join(p.opts.Prefix, version, file)
}

// Artifacts lists the regular, non-hidden files of dir, sorted by name.
func Artifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Publish uploads every artifact in dir. Versioned keys are checked before
// anything is uploaded, so an existing version fails the whole call with
// ErrAlreadyPublished unless Overwrite is set.
func (p *Publisher) Publish(ctx context.Context, dir, version string) ([]Published, error) {
	if version == "" || version == LatestVersion || strings.ContainsAny(version, `/\`) {
		return nil, fmt.Errorf("invalid publish version %q", version)
	}

	files, err := Artifacts(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no artifacts in %s", dir)
	}

	if !p.opts.Overwrite {
		for _, name := range files {
			key := p.Key(version, name)
			exists, err := p.store.Exists(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("failed to check %s: %w", key, err)
			}
			if exists {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyPublished, key)
			}
		}
	}

	out := make([]Published, 0, len(files))
	for _, name := range files {
		pub, err := p.publishFile(ctx, filepath.Join(dir, name), name, version)
		if err != nil {
			return out, err
		}
		out = append(out, pub)
	}

	if err := p.pruneLatest(ctx, files); err != nil {
		return out, err
	}

	p.opts.Logger.Info("Publish complete", "version", version, "artifacts", len(out))
	return out, nil
}

// pruneLatest deletes keys under latest/ that the release just published
// does not contain, so latest never serves an artifact of an older release.
func (p *Publisher) pruneLatest(ctx context.Context, files []string) error {
	keep := make(map[string]bool, len(files))
	for _, name := range files {
		keep[p.Key(LatestVersion, name)] = true
	}

	prefix := p.Key(LatestVersion, "") + "/"
	keys, err := p.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	for _, key := range keys {
		if keep[key] {
			continue
		}
		if err := p.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to remove stale %s: %w", key, err)
		}
		p.opts.Logger.Info("Removed stale artifact", "key", key)
	}
	return nil
}

func (p *Publisher) publishFile(ctx context.Context, local, name, version string) (Published, error) {
	pub := Published{
		File:       name,
		VersionKey: p.Key(version, name),
		LatestKey:  p.Key(LatestVersion, name),
	}

	versioned, err := p.upload(ctx, local, pub.VersionKey)
	if err != nil {
		return pub, err
	}
	latest, err := p.upload(ctx, local, pub.LatestKey)
	if err != nil {
		return pub, err
	}
	if versioned.Checksum != latest.Checksum {
		return pub, fmt.Errorf("checksum mismatch publishing %s: %s != %s", name, versioned.Checksum, latest.Checksum)
	}
	pub.Size = versioned.Size
	pub.Checksum = versioned.Checksum

	url, err := p.store.GetURL(ctx, pub.LatestKey, p.opts.URLTTL)
	if err != nil && !errors.Is(err, ErrNotFound) {
		p.opts.Logger.Warn("Could not resolve download URL", "key", pub.LatestKey, "error", err)
	}
	pub.URL = url

	p.opts.Logger.Info("Published artifact",
		"file", name,
		"key", pub.VersionKey,
		"size", pub.Size,
		"sha256", pub.Checksum,
		"url", pub.URL)
	return pub, nil
}

func (p *Publisher) upload(ctx context.Context, local, key string) (*UploadResult, error) {
	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}

	res, err := p.store.Upload(ctx, key, f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return res, nil
}
