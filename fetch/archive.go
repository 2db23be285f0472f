package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zip"

	"github.com/c360studio/rorio/ror"
)

// Archive member selection defaults. Release archives also ship the schema
// v2 file, which the parser does not read.
const (
	DefaultPattern = "**/*ror-data.json"
	DefaultExclude = "**/*schema_v2*"
)

var (
	// ErrNoMatch is returned when no archive member matches the pattern.
	ErrNoMatch = errors.New("no archive member matches")

	// ErrAmbiguous is returned when more than one member matches.
	ErrAmbiguous = errors.New("more than one archive member matches")
)

// Dump is the record file selected from a retrieved payload.
type Dump struct {
	// Name is the record file name, e.g. "v1.17.1-2022-12-16-ror-data.json".
	Name string

	// Version is derived from Name, empty if Name does not follow the
	// release naming.
	Version string

	Data      []byte
	FromCache bool
}

// IsZip reports whether data starts with a zip local file header.
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

// Extract returns the single archive member matching pattern and not
// matching exclude. Members larger than maxSize are rejected.
func Extract(data []byte, pattern, exclude string, maxSize int64) (string, []byte, error) {
	if !doublestar.ValidatePattern(pattern) {
		return "", nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	if exclude != "" && !doublestar.ValidatePattern(exclude) {
		return "", nil, fmt.Errorf("invalid exclude pattern %q", exclude)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("open archive: %w", err)
	}

	var matches []*zip.File
	for _, file := range zr.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if ok, _ := doublestar.Match(pattern, file.Name); !ok {
			continue
		}
		if exclude != "" {
			if skip, _ := doublestar.Match(exclude, file.Name); skip {
				continue
			}
		}
		matches = append(matches, file)
	}

	switch len(matches) {
	case 0:
		return "", nil, fmt.Errorf("%w %q", ErrNoMatch, pattern)
	case 1:
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Name)
		}
		sort.Strings(names)
		return "", nil, fmt.Errorf("%w %q: %s", ErrAmbiguous, pattern, strings.Join(names, ", "))
	}

	file := matches[0]
	rc, err := file.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()

	payload, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", file.Name, err)
	}
	if int64(len(payload)) > maxSize {
		return "", nil, fmt.Errorf("%s too large (exceeds %d bytes)", file.Name, maxSize)
	}
	return file.Name, payload, nil
}

// FetchDump retrieves source and, for zip payloads, selects the record file
// with pattern and exclude (DefaultPattern and DefaultExclude when empty).
// Every failure wraps ErrUnavailable.
func (f *Fetcher) FetchDump(ctx context.Context, source, pattern, exclude string) (*Dump, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if exclude == "" {
		exclude = DefaultExclude
	}

	res, err := f.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	dump := &Dump{Name: res.Name, Data: res.Body, FromCache: res.FromCache}
	if IsZip(res.Body) {
		name, payload, err := Extract(res.Body, pattern, exclude, f.opts.MaxSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		f.logger.Debug("Selected archive member", "member", name, "bytes", len(payload))
		dump.Name = name
		dump.Data = payload
	}
	dump.Version = ror.VersionFromFilename(dump.Name)
	return dump, nil
}
