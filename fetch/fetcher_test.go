package fetch

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"zenodo", "https://zenodo.org/record/7448410/files/v1.17.1-2022-12-16-ror-data.zip?download=1", false},
		{"http rejected", "http://zenodo.org/record/1", true},
		{"localhost rejected", "https://localhost:8080/dump.zip", true},
		{"loopback rejected", "https://127.0.0.1/dump.zip", true},
		{"private IP rejected", "https://192.168.1.1/dump.zip", true},
		{"cgnat rejected", "https://100.64.0.1/dump.zip", true},
		{"ipv6 loopback rejected", "https://[::1]/dump.zip", true},
		{"local domain rejected", "https://mirror.local/dump.zip", true},
		{"internal domain rejected", "https://mirror.corp.internal/dump.zip", true},
		{"missing host", "https:///dump.zip", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBlockedURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	assert.True(t, IsPrivateIP(net.ParseIP("10.0.0.1")))
	assert.True(t, IsPrivateIP(net.ParseIP("::ffff:192.168.0.1")))
	assert.True(t, IsPrivateIP(net.ParseIP("fd00::1")))
	assert.True(t, IsPrivateIP(net.ParseIP("0.0.0.0")))
	assert.False(t, IsPrivateIP(net.ParseIP("188.184.21.108")))
}

func TestCacheName(t *testing.T) {
	assert.Equal(t, "v1.17.1-2022-12-16-ror-data.zip",
		CacheName("https://zenodo.org/record/7448410/files/v1.17.1-2022-12-16-ror-data.zip?download=1"))
	assert.Equal(t, "download", CacheName("https://zenodo.org"))
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "rorio-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cache := t.TempDir()
	f := New(Options{UserAgent: "rorio-test", CacheDir: cache, AllowInsecure: true})

	res, err := f.Fetch(context.Background(), srv.URL+"/files/dump.json?download=1")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(res.Body))
	assert.Equal(t, "dump.json", res.Name)
	assert.False(t, res.FromCache)

	cached, err := os.ReadFile(filepath.Join(cache, "dump.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(cached))

	res, err = f.Fetch(context.Background(), srv.URL+"/files/dump.json?download=1")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, int32(1), hits.Load())

	refresh := New(Options{UserAgent: "rorio-test", CacheDir: cache, AllowInsecure: true, Refresh: true})
	res, err = refresh.Fetch(context.Background(), srv.URL+"/files/dump.json")
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		default:
			_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
		}
	}))
	defer srv.Close()

	f := New(Options{AllowInsecure: true, MaxSize: 16})

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "404")

	_, err = f.Fetch(context.Background(), srv.URL+"/big")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "too large")

	// Validation applies unless explicitly disabled.
	strict := New(Options{})
	_, err = strict.Fetch(context.Background(), srv.URL+"/dump.json")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, ErrBlockedURL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, srv.URL+"/dump.json")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.17.1-2022-12-16-ror-data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	f := New(Options{})
	for _, source := range []string{path, "file://" + path} {
		dump, err := f.FetchDump(context.Background(), source, "", "")
		require.NoError(t, err)
		assert.Equal(t, "[]", string(dump.Data))
		assert.Equal(t, "v1.17.1-2022-12-16", dump.Version)
	}

	_, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchDumpFromArchive(t *testing.T) {
	archive := zipOf(t, map[string]string{
		"v1.17.1-2022-12-16-ror-data.json":           `[{"id": "r1"}]`,
		"v1.17.1-2022-12-16-ror-data_schema_v2.json": `[{"id": "v2"}]`,
		"README.md": "release notes",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	f := New(Options{AllowInsecure: true})
	dump, err := f.FetchDump(context.Background(), srv.URL+"/files/v1.17.1-2022-12-16-ror-data.zip?download=1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "v1.17.1-2022-12-16-ror-data.json", dump.Name)
	assert.Equal(t, "v1.17.1-2022-12-16", dump.Version)
	assert.Equal(t, `[{"id": "r1"}]`, string(dump.Data))
}

func TestExtract(t *testing.T) {
	archive := zipOf(t, map[string]string{
		"data/a-ror-data.json": "a",
		"data/b-ror-data.json": "b",
		"other.txt":            "c",
	})

	_, _, err := Extract(archive, DefaultPattern, DefaultExclude, 1024)
	assert.ErrorIs(t, err, ErrAmbiguous)

	name, payload, err := Extract(archive, "**/a-*.json", "", 1024)
	require.NoError(t, err)
	assert.Equal(t, "data/a-ror-data.json", name)
	assert.Equal(t, "a", string(payload))

	_, _, err = Extract(archive, "**/*.csv", "", 1024)
	assert.ErrorIs(t, err, ErrNoMatch)

	_, _, err = Extract(archive, "**/a-*.json", "", 0)
	assert.ErrorContains(t, err, "too large")

	_, _, err = Extract(archive, "[", "", 1024)
	assert.Error(t, err)

	_, _, err = Extract([]byte("PK\x03\x04 truncated"), DefaultPattern, "", 1024)
	assert.Error(t, err)

	assert.True(t, IsZip(archive))
	assert.False(t, IsZip([]byte("[]")))
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		switch {
		case r.URL.Path == "/gone":
			http.NotFound(w, r)
		case r.URL.Path == "/down":
			w.WriteHeader(http.StatusBadGateway)
		case n == 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	retry := RetryConfig{MaxAttempts: 3, BackoffBase: time.Millisecond, BackoffMultiplier: 2, MaxBackoff: 5 * time.Millisecond}
	f := New(Options{AllowInsecure: true, Retry: retry})

	res, err := f.Fetch(context.Background(), srv.URL+"/flaky.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(res.Body))
	assert.Equal(t, int32(2), hits.Load())

	hits.Store(0)
	_, err = f.Fetch(context.Background(), srv.URL+"/gone")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), hits.Load(), "4xx responses are not retried")

	hits.Store(0)
	_, err = f.Fetch(context.Background(), srv.URL+"/down")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetryBackoff(t *testing.T) {
	cfg := RetryConfig{BackoffBase: time.Second, BackoffMultiplier: 2, MaxBackoff: 3 * time.Second}

	first := cfg.backoff(1)
	assert.GreaterOrEqual(t, first, 750*time.Millisecond)
	assert.LessOrEqual(t, first, 1250*time.Millisecond)

	capped := cfg.backoff(5)
	assert.GreaterOrEqual(t, capped, 2250*time.Millisecond)
	assert.LessOrEqual(t, capped, 3750*time.Millisecond)

	assert.Equal(t, 3, DefaultRetryConfig().MaxAttempts)
}
